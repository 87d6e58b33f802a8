package repository

import "errors"

// Sentinel kinds for cache errors.
var (
	ErrNotFound = errors.New("ride not found")
	ErrNilEntry = errors.New("nil analysis")
)
