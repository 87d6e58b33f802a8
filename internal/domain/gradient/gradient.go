// Package gradient derives a smoothed gradient-vs-distance profile from the
// elevation and distance channels of a normalized ride series.
package gradient

import (
	"github.com/okian/grimpeur/internal/domain/telemetry"
)

// Default profiler configuration constants.
const (
	defaultWindowM    = 40.0
	defaultMinPercent = -40.0
	defaultMaxPercent = 40.0

	// minDistanceDeltaM guards the division: below this the rider is stopped
	// or the GPS is frozen and the previous gradient is held instead.
	minDistanceDeltaM = 0.5
)

// Point is one smoothed gradient reading, aligned with the series sample of
// the same index.
type Point struct {
	DistanceM       float64
	GradientPercent float64
}

// Option applies a configuration option to the Profiler.
type Option func(*Profiler)

// WithWindow sets the rolling distance window, in meters, used to smooth out
// GPS and altimeter jitter.
func WithWindow(m float64) Option {
	return func(p *Profiler) {
		if m > 0 {
			p.windowM = m
		}
	}
}

// WithBounds clamps gradients to the given sane range.
func WithBounds(minPct, maxPct float64) Option {
	return func(p *Profiler) {
		if minPct < maxPct {
			p.minPercent = minPct
			p.maxPercent = maxPct
		}
	}
}

// Profiler computes rise-over-run percentages over a rolling distance window
// rather than point-to-point.
type Profiler struct {
	windowM    float64
	minPercent float64
	maxPercent float64
}

// NewProfiler creates a profiler with configuration options.
func NewProfiler(opts ...Option) *Profiler {
	p := &Profiler{
		windowM:    defaultWindowM,
		minPercent: defaultMinPercent,
		maxPercent: defaultMaxPercent,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Profile produces one Point per series sample. Samples whose window spans
// less than the minimum distance delta carry the previous value forward, so
// the profile never contains NaN or Inf.
func (p *Profiler) Profile(s *telemetry.Series) []Point {
	points := make([]Point, s.Len())
	prev := 0.0
	tail := 0

	for i := 0; i < s.Len(); i++ {
		cur := s.At(i)

		// Advance the tail until the window is at most windowM wide while
		// keeping at least one sample of span.
		for tail < i-1 && cur.DistanceM-s.At(tail+1).DistanceM >= p.windowM {
			tail++
		}
		base := s.At(tail)

		dd := cur.DistanceM - base.DistanceM
		if dd < minDistanceDeltaM {
			points[i] = Point{DistanceM: cur.DistanceM, GradientPercent: prev}
			continue
		}

		g := (cur.ElevationM - base.ElevationM) / dd * 100
		if g > p.maxPercent {
			g = p.maxPercent
		} else if g < p.minPercent {
			g = p.minPercent
		}
		points[i] = Point{DistanceM: cur.DistanceM, GradientPercent: g}
		prev = g
	}
	return points
}
