package telemetry

import "errors"

// Sentinel kinds for telemetry errors.
var (
	// ErrCorruptTelemetry marks a ride whose missing-sample fraction exceeds
	// the configured ceiling. The ride is unanalyzable and no series is built.
	ErrCorruptTelemetry = errors.New("corrupt telemetry")

	// ErrEmptyInput marks a submission with no samples at all.
	ErrEmptyInput = errors.New("empty telemetry input")
)
