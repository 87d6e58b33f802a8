// Package telemetry defines the ride sample types and the normalizer that
// turns a raw, possibly irregular record sequence into a uniform,
// gap-annotated series.
//
// Conventions:
// - A Series is immutable once built and safe for concurrent readers.
// - External errors must be wrapped via this package's sentinel kinds.
package telemetry

import "time"

// RawSample is one decoded record as delivered by the upstream file-format
// collaborator. Optional channels carry a Has flag instead of a pointer so
// the zero value stays cheap to copy.
type RawSample struct {
	Timestamp    time.Time
	DistanceM    float64
	ElevationM   float64
	SpeedMPS     float64
	PowerW       float64
	HasPower     bool
	HeartRateBPM float64
	HasHeartRate bool
	CadenceRPM   float64
	HasCadence   bool
}

// Sample is one entry of a normalized Series. It shares the RawSample field
// layout; normalized samples sit on the nominal interval grid.
type Sample struct {
	Timestamp    time.Time
	DistanceM    float64
	ElevationM   float64
	SpeedMPS     float64
	PowerW       float64
	HasPower     bool
	HeartRateBPM float64
	HasHeartRate bool
	CadenceRPM   float64
	HasCadence   bool
}

// Series is a uniformly sampled ride with a parallel gap mask. The mask is
// true for grid slots that could not be interpolated and hold carried-forward
// placeholder values only.
type Series struct {
	samples  []Sample
	missing  []bool
	interval time.Duration
}

// Len returns the number of samples in the series.
func (s *Series) Len() int { return len(s.samples) }

// At returns the sample at index i.
func (s *Series) At(i int) Sample { return s.samples[i] }

// IsMissing reports whether the sample at index i is a gap placeholder.
func (s *Series) IsMissing(i int) bool { return s.missing[i] }

// Interval returns the nominal sampling interval.
func (s *Series) Interval() time.Duration { return s.interval }

// StartTime returns the timestamp of the first sample, or the zero time for
// an empty series.
func (s *Series) StartTime() time.Time {
	if len(s.samples) == 0 {
		return time.Time{}
	}
	return s.samples[0].Timestamp
}

// Duration returns the elapsed time covered by the series.
func (s *Series) Duration() time.Duration {
	if len(s.samples) < 2 {
		return 0
	}
	return s.samples[len(s.samples)-1].Timestamp.Sub(s.samples[0].Timestamp)
}

// TotalDistanceM returns the distance covered by the series in meters.
func (s *Series) TotalDistanceM() float64 {
	if len(s.samples) == 0 {
		return 0
	}
	return s.samples[len(s.samples)-1].DistanceM - s.samples[0].DistanceM
}

// MissingCount returns the number of gap placeholder samples.
func (s *Series) MissingCount() int {
	n := 0
	for _, m := range s.missing {
		if m {
			n++
		}
	}
	return n
}

// MissingFraction returns the share of samples that are gap placeholders.
func (s *Series) MissingFraction() float64 {
	if len(s.missing) == 0 {
		return 0
	}
	return float64(s.MissingCount()) / float64(len(s.missing))
}
