package telemetry

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Default normalizer configuration constants.
const (
	defaultInterval          = time.Second
	defaultMaxInterpolateGap = 5 * time.Second
	defaultMaxGapFraction    = 0.15
)

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithInterval sets the nominal sampling interval of the output series.
func WithInterval(d time.Duration) Option {
	return func(n *Normalizer) {
		if d > 0 {
			n.interval = d
		}
	}
}

// WithMaxInterpolateGap sets the longest gap that is filled by interpolation.
// Gaps longer than this are filled with placeholders marked missing.
func WithMaxInterpolateGap(d time.Duration) Option {
	return func(n *Normalizer) {
		if d > 0 {
			n.maxInterpolateGap = d
		}
	}
}

// WithMaxGapFraction sets the missing-sample ceiling above which the ride is
// rejected as corrupt.
func WithMaxGapFraction(f float64) Option {
	return func(n *Normalizer) {
		if f > 0 && f < 1 {
			n.maxGapFraction = f
		}
	}
}

// Normalizer resamples raw records onto the nominal interval grid.
type Normalizer struct {
	interval          time.Duration
	maxInterpolateGap time.Duration
	maxGapFraction    float64
}

// NewNormalizer creates a normalizer with configuration options.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{
		interval:          defaultInterval,
		maxInterpolateGap: defaultMaxInterpolateGap,
		maxGapFraction:    defaultMaxGapFraction,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize builds a Series from raw samples. Duplicate timestamps are
// merged (last wins), out-of-order input is sorted, short gaps are
// interpolated and long gaps are filled with placeholders marked missing.
// It returns ErrCorruptTelemetry when the missing fraction exceeds the
// configured ceiling.
func (n *Normalizer) Normalize(ctx context.Context, raw []RawSample) (*Series, error) {
	const op = "telemetry.normalize"
	if len(raw) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	clean := dedupe(raw)
	if len(clean) == 1 {
		s := &Series{
			samples:  []Sample{sampleFromRaw(clean[0])},
			missing:  []bool{false},
			interval: n.interval,
		}
		return s, nil
	}

	start := clean[0].Timestamp
	end := clean[len(clean)-1].Timestamp
	expected := int(end.Sub(start)/n.interval) + 1

	samples := make([]Sample, 0, expected)
	missing := make([]bool, 0, expected)
	missingCount := 0

	// Walk the grid, advancing through the clean records in lockstep.
	next := 0
	for slot := 0; slot < expected; slot++ {
		ts := start.Add(time.Duration(slot) * n.interval)
		for next < len(clean) && clean[next].Timestamp.Before(ts) {
			next++
		}

		// Exact (or near-exact) hit on the grid.
		if next < len(clean) && absDuration(clean[next].Timestamp.Sub(ts)) < n.interval/2 {
			samples = append(samples, sampleFromRaw(clean[next]))
			samples[len(samples)-1].Timestamp = ts
			missing = append(missing, false)
			continue
		}

		// Gap slot: decide between interpolation and a missing placeholder
		// based on the distance between the surrounding real records.
		prev := clean[next-1]
		var gap time.Duration
		if next < len(clean) {
			gap = clean[next].Timestamp.Sub(prev.Timestamp)
		} else {
			gap = n.maxInterpolateGap + n.interval // trailing slot, never interpolated
		}

		if gap <= n.maxInterpolateGap && next < len(clean) {
			samples = append(samples, interpolate(prev, clean[next], ts))
			missing = append(missing, false)
		} else {
			samples = append(samples, placeholder(prev, ts))
			missing = append(missing, true)
			missingCount++
		}
	}

	if frac := float64(missingCount) / float64(expected); frac > n.maxGapFraction {
		return nil, fmt.Errorf("%s: %.0f%% of expected samples missing: %w",
			op, frac*100, ErrCorruptTelemetry)
	}

	return &Series{samples: samples, missing: missing, interval: n.interval}, nil
}

// dedupe sorts raw samples by timestamp and merges duplicates, keeping the
// last record for each timestamp.
func dedupe(raw []RawSample) []RawSample {
	sorted := make([]RawSample, len(raw))
	copy(sorted, raw)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	out := sorted[:0]
	for _, r := range sorted {
		if len(out) > 0 && out[len(out)-1].Timestamp.Equal(r.Timestamp) {
			out[len(out)-1] = r
			continue
		}
		out = append(out, r)
	}
	return out
}

// interpolate fills a grid slot between two real records: continuous
// channels linearly, power and heart rate by carry-forward.
func interpolate(a, b RawSample, ts time.Time) Sample {
	span := b.Timestamp.Sub(a.Timestamp)
	frac := float64(ts.Sub(a.Timestamp)) / float64(span)

	s := Sample{
		Timestamp:  ts,
		DistanceM:  a.DistanceM + (b.DistanceM-a.DistanceM)*frac,
		ElevationM: a.ElevationM + (b.ElevationM-a.ElevationM)*frac,
		SpeedMPS:   a.SpeedMPS + (b.SpeedMPS-a.SpeedMPS)*frac,
	}
	if a.HasPower {
		s.PowerW, s.HasPower = a.PowerW, true
	}
	if a.HasHeartRate {
		s.HeartRateBPM, s.HasHeartRate = a.HeartRateBPM, true
	}
	if a.HasCadence {
		s.CadenceRPM, s.HasCadence = a.CadenceRPM, true
	}
	return s
}

// placeholder fills a long-gap slot with carried-forward position and no
// channel data. Speed is zeroed so moving-time never counts the gap.
func placeholder(prev RawSample, ts time.Time) Sample {
	return Sample{
		Timestamp:  ts,
		DistanceM:  prev.DistanceM,
		ElevationM: prev.ElevationM,
	}
}

func sampleFromRaw(r RawSample) Sample {
	return Sample{
		Timestamp:    r.Timestamp,
		DistanceM:    r.DistanceM,
		ElevationM:   r.ElevationM,
		SpeedMPS:     r.SpeedMPS,
		PowerW:       r.PowerW,
		HasPower:     r.HasPower,
		HeartRateBPM: r.HeartRateBPM,
		HasHeartRate: r.HasHeartRate,
		CadenceRPM:   r.CadenceRPM,
		HasCadence:   r.HasCadence,
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
