// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/grimpeur/internal/domain/telemetry"
)

// Submission represents one uploaded ride awaiting analysis. It is the
// payload flowing from the HTTP layer through the queue to the workers.
type Submission struct {
	RideID      string // unique id for idempotency and cache lookup
	Samples     []telemetry.RawSample
	SubmittedAt time.Time
}
