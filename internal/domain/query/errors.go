package query

import "errors"

// Sentinel kinds for query errors.
var (
	// ErrNoMatchingData is the typed empty result: the request was valid but
	// its filter selected zero samples or segments.
	ErrNoMatchingData = errors.New("no matching data")

	// ErrInvalidRequest marks a request with an unknown metric, channel,
	// scope or comparator.
	ErrInvalidRequest = errors.New("invalid query request")
)
