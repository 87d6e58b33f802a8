package analysis

import "errors"

// Sentinel kinds for analysis errors.
var (
	// ErrInvalidConfig marks a malformed analysis configuration. It is raised
	// when a Builder is constructed, before any ride data is touched.
	ErrInvalidConfig = errors.New("invalid analysis configuration")
)
