// Package zone buckets power samples into configured training zones and
// tracks time-in-zone alongside the fraction of the ride with no power data.
package zone

import (
	"fmt"
	"math"
	"time"

	"github.com/okian/grimpeur/internal/domain/telemetry"
)

// Zone is one power band of the distribution. The last zone's upper bound is
// +Inf so the table partitions [0, Inf) with no overlap and no gaps.
type Zone struct {
	ID          int
	LowerBoundW float64
	UpperBoundW float64
	TimeInZone  time.Duration
	// FractionOfRide is TimeInZone over the total ride time, including the
	// no-data share, so all fractions plus NoDataFraction sum to one.
	FractionOfRide float64
}

// Distribution is the full time-in-zone result for one ride.
type Distribution struct {
	Zones          []Zone
	NoData         time.Duration
	NoDataFraction float64
	Total          time.Duration
}

// Classifier assigns samples to zones by their power value.
type Classifier struct {
	boundaries []float64
}

// ValidateBoundaries checks a zone-boundary table: at least one boundary,
// first exactly zero, strictly increasing.
func ValidateBoundaries(boundaries []float64) error {
	const op = "zone.validate"
	if len(boundaries) == 0 {
		return fmt.Errorf("%s: no boundaries: %w", op, ErrInvalidConfig)
	}
	if boundaries[0] != 0 {
		return fmt.Errorf("%s: boundaries must start at 0, got %g: %w", op, boundaries[0], ErrInvalidConfig)
	}
	for i := 1; i < len(boundaries); i++ {
		if boundaries[i] <= boundaries[i-1] {
			return fmt.Errorf("%s: boundaries not strictly increasing at index %d: %w", op, i, ErrInvalidConfig)
		}
	}
	return nil
}

// NewClassifier creates a classifier from an ordered boundary table. Each
// boundary opens a zone [boundaries[i], boundaries[i+1]); the last zone is
// unbounded above.
func NewClassifier(boundaries []float64) (*Classifier, error) {
	if err := ValidateBoundaries(boundaries); err != nil {
		return nil, err
	}
	b := make([]float64, len(boundaries))
	copy(b, boundaries)
	return &Classifier{boundaries: b}, nil
}

// Classify accumulates elapsed time per zone over the series. Each sample
// contributes the interval to the next sample, the nominal interval for the
// last one. Samples without a power value land in the no-data bucket, as do
// gap placeholders.
func (c *Classifier) Classify(series *telemetry.Series) Distribution {
	dist := Distribution{Zones: make([]Zone, len(c.boundaries))}
	for i, lower := range c.boundaries {
		upper := math.Inf(1)
		if i+1 < len(c.boundaries) {
			upper = c.boundaries[i+1]
		}
		dist.Zones[i] = Zone{ID: i + 1, LowerBoundW: lower, UpperBoundW: upper}
	}

	for i := 0; i < series.Len(); i++ {
		elapsed := series.Interval()
		if i+1 < series.Len() {
			elapsed = series.At(i + 1).Timestamp.Sub(series.At(i).Timestamp)
		}
		dist.Total += elapsed

		s := series.At(i)
		if series.IsMissing(i) || !s.HasPower {
			dist.NoData += elapsed
			continue
		}
		dist.Zones[c.index(s.PowerW)].TimeInZone += elapsed
	}

	if dist.Total > 0 {
		for i := range dist.Zones {
			dist.Zones[i].FractionOfRide = float64(dist.Zones[i].TimeInZone) / float64(dist.Total)
		}
		dist.NoDataFraction = float64(dist.NoData) / float64(dist.Total)
	}
	return dist
}

// index returns the zone index whose [lower, upper) band contains power.
func (c *Classifier) index(power float64) int {
	for i := len(c.boundaries) - 1; i > 0; i-- {
		if power >= c.boundaries[i] {
			return i
		}
	}
	return 0
}
