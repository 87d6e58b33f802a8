package zone

import "errors"

// Sentinel kinds for zone configuration errors.
var (
	// ErrInvalidConfig marks a malformed zone-boundary table. It is raised at
	// setup, before any ride data is touched.
	ErrInvalidConfig = errors.New("invalid zone configuration")
)
