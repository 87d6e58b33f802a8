package fitfile

import (
	"errors"
)

// Sentinel kinds for FIT decoding errors.
var (
	ErrEmptyFile   = errors.New("empty fit file")
	ErrCorruptFile = errors.New("corrupt fit file")
	ErrNoRecords   = errors.New("no record messages in fit file")
)
