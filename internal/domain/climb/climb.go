// Package climb detects sustained climb segments in a gradient profile using
// entry/exit hysteresis, and merges segments separated by short flats.
package climb

import (
	"time"

	"github.com/okian/grimpeur/internal/domain/gradient"
	"github.com/okian/grimpeur/internal/domain/telemetry"
)

// Default segmenter configuration constants.
const (
	defaultEntryPct    = 2.5
	defaultExitPct     = 1.5
	defaultMinSustainM = 100.0
	defaultMergeGapM   = 100.0
)

// Segment is one detected climb. Aggregates are computed from the ride
// series over [StartTime, EndTime], skipping gap placeholder samples.
// A Segment is never mutated after the segmenter returns it.
type Segment struct {
	StartDistanceM  float64
	EndDistanceM    float64
	StartTime       time.Time
	EndTime         time.Time
	AvgGradient     float64
	MaxGradient     float64
	AvgPowerW       float64
	HasPower        bool
	AvgHeartRateBPM float64
	HasHeartRate    bool
	AvgSpeedMPS     float64
}

// LengthM returns the distance covered by the segment.
func (s Segment) LengthM() float64 { return s.EndDistanceM - s.StartDistanceM }

// Option applies a configuration option to the Segmenter.
type Option func(*Segmenter)

// WithThresholds sets the hysteresis pair. Exit must sit below entry so the
// state machine does not flap at the boundary; invalid pairs are ignored.
func WithThresholds(entryPct, exitPct float64) Option {
	return func(s *Segmenter) {
		if exitPct > 0 && exitPct < entryPct {
			s.entryPct = entryPct
			s.exitPct = exitPct
		}
	}
}

// WithMinSustainedDistance sets how far a gradient condition must hold
// before the state machine transitions.
func WithMinSustainedDistance(m float64) Option {
	return func(s *Segmenter) {
		if m > 0 {
			s.minSustainM = m
		}
	}
}

// WithMergeGap sets the flat-gap distance below which two consecutive
// segments are merged into one.
func WithMergeGap(m float64) Option {
	return func(s *Segmenter) {
		if m >= 0 {
			s.mergeGapM = m
		}
	}
}

// Segmenter runs the flat/climbing state machine over a gradient profile.
type Segmenter struct {
	entryPct    float64
	exitPct     float64
	minSustainM float64
	mergeGapM   float64
}

// NewSegmenter creates a segmenter with configuration options.
func NewSegmenter(opts ...Option) *Segmenter {
	s := &Segmenter{
		entryPct:    defaultEntryPct,
		exitPct:     defaultExitPct,
		minSustainM: defaultMinSustainM,
		mergeGapM:   defaultMergeGapM,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// span is a half-open candidate interval in sample indexes.
type span struct {
	start, end int
}

// Segments detects climbs in the profile, merges those separated by flats
// shorter than the merge gap, and returns them ordered by start distance.
// The profile must be index-aligned with the series.
func (sg *Segmenter) Segments(series *telemetry.Series, profile []gradient.Point) []Segment {
	spans := sg.detect(profile)
	spans = sg.merge(spans, profile)

	segs := make([]Segment, 0, len(spans))
	for _, sp := range spans {
		seg := aggregate(series, profile, sp.start, sp.end)
		// Merging can pull a segment's average below the exit threshold when
		// the joined flat is long relative to the climbs; such results are
		// not climbs and are discarded.
		if seg.AvgGradient < sg.exitPct {
			continue
		}
		segs = append(segs, seg)
	}
	return segs
}

// detect runs the two-state hysteresis machine and returns raw climb spans.
func (sg *Segmenter) detect(profile []gradient.Point) []span {
	var spans []span

	const (
		flat = iota
		climbing
	)
	state := flat
	candidate := -1 // pending entry (flat) or pending exit (climbing)
	climbStart := -1

	for i, pt := range profile {
		switch state {
		case flat:
			if pt.GradientPercent >= sg.entryPct {
				if candidate < 0 {
					candidate = i
				}
				if pt.DistanceM-profile[candidate].DistanceM >= sg.minSustainM {
					state = climbing
					climbStart = candidate
					candidate = -1
				}
			} else {
				candidate = -1
			}
		case climbing:
			if pt.GradientPercent < sg.exitPct {
				if candidate < 0 {
					candidate = i
				}
				if pt.DistanceM-profile[candidate].DistanceM >= sg.minSustainM {
					spans = append(spans, span{start: climbStart, end: candidate})
					state = flat
					climbStart = -1
					candidate = -1
				}
			} else {
				candidate = -1
			}
		}
	}

	// Series ended mid-climb: the climb runs to where the gradient last fell
	// below the exit threshold, or to the final sample.
	if state == climbing {
		end := len(profile) - 1
		if candidate >= 0 {
			end = candidate
		}
		if end > climbStart {
			spans = append(spans, span{start: climbStart, end: end})
		}
	}
	return spans
}

// merge joins consecutive spans whose flat gap is shorter than the merge
// distance. Joining is applied left to right, so a chain of close climbs
// collapses into one span.
func (sg *Segmenter) merge(spans []span, profile []gradient.Point) []span {
	if len(spans) < 2 {
		return spans
	}
	merged := spans[:1]
	for _, sp := range spans[1:] {
		last := &merged[len(merged)-1]
		gap := profile[sp.start].DistanceM - profile[last.end].DistanceM
		if gap < sg.mergeGapM {
			last.end = sp.end
			continue
		}
		merged = append(merged, sp)
	}
	return merged
}

// aggregate recomputes a segment's statistics from the series over the
// sample index interval [start, end], skipping gap placeholders.
func aggregate(series *telemetry.Series, profile []gradient.Point, start, end int) Segment {
	seg := Segment{
		StartDistanceM: profile[start].DistanceM,
		EndDistanceM:   profile[end].DistanceM,
		StartTime:      series.At(start).Timestamp,
		EndTime:        series.At(end).Timestamp,
		MaxGradient:    profile[start].GradientPercent,
	}

	var gradSum float64
	var gradCount int
	var powerSum, hrSum, speedSum float64
	var powerCount, hrCount, speedCount int

	for i := start; i <= end; i++ {
		g := profile[i].GradientPercent
		gradSum += g
		gradCount++
		if g > seg.MaxGradient {
			seg.MaxGradient = g
		}

		if series.IsMissing(i) {
			continue
		}
		s := series.At(i)
		speedSum += s.SpeedMPS
		speedCount++
		if s.HasPower {
			powerSum += s.PowerW
			powerCount++
		}
		if s.HasHeartRate {
			hrSum += s.HeartRateBPM
			hrCount++
		}
	}

	if gradCount > 0 {
		seg.AvgGradient = gradSum / float64(gradCount)
	}
	if speedCount > 0 {
		seg.AvgSpeedMPS = speedSum / float64(speedCount)
	}
	if powerCount > 0 {
		seg.AvgPowerW = powerSum / float64(powerCount)
		seg.HasPower = true
	}
	if hrCount > 0 {
		seg.AvgHeartRateBPM = hrSum / float64(hrCount)
		seg.HasHeartRate = true
	}
	return seg
}
