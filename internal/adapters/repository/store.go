// Package repository defines the analysis cache interface and errors.
//
// The cache maps ride id -> completed analysis. Entries are immutable, so
// only insertion and eviction take the write lock; a returned analysis can
// be read by any number of goroutines without further synchronization.
package repository

import (
	"context"

	"github.com/okian/grimpeur/internal/domain/analysis"
)

// Store provides access to completed ride analyses.
type Store interface {
	// Put inserts a completed analysis under its ride id. An existing entry
	// for the same id is replaced.
	Put(ctx context.Context, a *analysis.Analysis) error

	// Get returns the analysis for a ride id.
	// Returns ErrNotFound if the ride is unknown or has been evicted.
	Get(ctx context.Context, rideID string) (*analysis.Analysis, error)

	// Delete removes the analysis for a ride id, if present.
	Delete(ctx context.Context, rideID string)

	// Count returns the number of cached analyses.
	Count(ctx context.Context) int
}
