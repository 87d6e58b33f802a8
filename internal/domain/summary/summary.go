// Package summary computes ride-level scalar statistics: channel averages
// and maxima, elevation gain and loss, moving time, and a training stress
// score relative to the rider's threshold power.
package summary

import (
	"time"

	"github.com/okian/grimpeur/internal/domain/telemetry"
)

// Default aggregator configuration constants.
const (
	defaultNoiseFloorM      = 1.0
	defaultStopThresholdMPS = 1.0
	defaultCoverageFloor    = 0.5
	defaultThresholdPowerW  = 250.0

	secondsPerHour = 3600.0
)

// Summary holds the ride-level statistics. Channel values carry a Valid flag
// instead of sentinel zeros; TSS additionally degrades to unavailable when
// power coverage is too thin to be representative.
type Summary struct {
	AvgPowerW       float64
	MaxPowerW       float64
	PowerValid      bool
	PowerCoverage   float64
	AvgHeartRateBPM float64
	MaxHeartRateBPM float64
	HeartRateValid  bool
	AvgSpeedMPS     float64
	MaxSpeedMPS     float64
	TotalDistanceM  float64
	ElevationGainM  float64
	ElevationLossM  float64
	MovingTime      time.Duration
	TotalTime       time.Duration
	TSS             float64
	TSSAvailable    bool
}

// ScoreFunc computes a training stress score from moving time, average power
// and threshold power. It is a field on the Aggregator so the formula stays
// pluggable.
type ScoreFunc func(movingTime time.Duration, avgPowerW, thresholdPowerW float64) float64

// DefaultScore is the standard approximation:
// movingTime * avgPower * IF / (FTP * 3600) * 100, with IF = avgPower/FTP.
func DefaultScore(movingTime time.Duration, avgPowerW, thresholdPowerW float64) float64 {
	if thresholdPowerW <= 0 {
		return 0
	}
	intensity := avgPowerW / thresholdPowerW
	return movingTime.Seconds() * avgPowerW * intensity / (thresholdPowerW * secondsPerHour) * 100
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithNoiseFloor sets the minimum positive elevation delta, in meters,
// counted toward elevation gain. Smaller deltas are altimeter noise.
func WithNoiseFloor(m float64) Option {
	return func(a *Aggregator) {
		if m >= 0 {
			a.noiseFloorM = m
		}
	}
}

// WithStopThreshold sets the speed below which the rider counts as stopped.
func WithStopThreshold(mps float64) Option {
	return func(a *Aggregator) {
		if mps >= 0 {
			a.stopThresholdMPS = mps
		}
	}
}

// WithThresholdPower sets the rider's threshold power in watts.
func WithThresholdPower(w float64) Option {
	return func(a *Aggregator) {
		if w > 0 {
			a.thresholdPowerW = w
		}
	}
}

// WithCoverageFloor sets the minimum power-data coverage for TSS to be
// reported at all.
func WithCoverageFloor(f float64) Option {
	return func(a *Aggregator) {
		if f > 0 && f <= 1 {
			a.coverageFloor = f
		}
	}
}

// WithScoreFunc replaces the TSS formula.
func WithScoreFunc(fn ScoreFunc) Option {
	return func(a *Aggregator) {
		if fn != nil {
			a.score = fn
		}
	}
}

// Aggregator computes a Summary from a normalized ride series.
type Aggregator struct {
	noiseFloorM      float64
	stopThresholdMPS float64
	thresholdPowerW  float64
	coverageFloor    float64
	score            ScoreFunc
}

// NewAggregator creates an aggregator with configuration options.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		noiseFloorM:      defaultNoiseFloorM,
		stopThresholdMPS: defaultStopThresholdMPS,
		thresholdPowerW:  defaultThresholdPowerW,
		coverageFloor:    defaultCoverageFloor,
		score:            DefaultScore,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate walks the series once and fills a Summary. Gap placeholders are
// skipped for every channel; a channel with zero valid samples is reported
// invalid rather than zero.
func (a *Aggregator) Aggregate(series *telemetry.Series) Summary {
	sum := Summary{
		TotalTime:      series.Duration(),
		TotalDistanceM: series.TotalDistanceM(),
	}

	var powerSum, hrSum, speedSum float64
	var powerCount, hrCount, speedCount int

	// Reference-point elevation accumulator: per-sample deltas at 1s are far
	// below the noise floor, so gain is counted whenever elevation moves more
	// than the floor away from the last counted reference.
	var refElev float64
	haveElev := false

	for i := 0; i < series.Len(); i++ {
		elapsed := series.Interval()
		if i+1 < series.Len() {
			elapsed = series.At(i + 1).Timestamp.Sub(series.At(i).Timestamp)
		}

		if series.IsMissing(i) {
			continue
		}
		s := series.At(i)

		speedSum += s.SpeedMPS
		speedCount++
		if s.SpeedMPS > sum.MaxSpeedMPS {
			sum.MaxSpeedMPS = s.SpeedMPS
		}
		if s.SpeedMPS > a.stopThresholdMPS {
			sum.MovingTime += elapsed
		}

		if s.HasPower {
			powerSum += s.PowerW
			powerCount++
			if s.PowerW > sum.MaxPowerW {
				sum.MaxPowerW = s.PowerW
			}
		}
		if s.HasHeartRate {
			hrSum += s.HeartRateBPM
			hrCount++
			if s.HeartRateBPM > sum.MaxHeartRateBPM {
				sum.MaxHeartRateBPM = s.HeartRateBPM
			}
		}

		if !haveElev {
			refElev = s.ElevationM
			haveElev = true
		} else {
			delta := s.ElevationM - refElev
			if delta >= a.noiseFloorM {
				sum.ElevationGainM += delta
				refElev = s.ElevationM
			} else if delta <= -a.noiseFloorM {
				sum.ElevationLossM += -delta
				refElev = s.ElevationM
			}
		}
	}

	if speedCount > 0 {
		sum.AvgSpeedMPS = speedSum / float64(speedCount)
	}
	if hrCount > 0 {
		sum.AvgHeartRateBPM = hrSum / float64(hrCount)
		sum.HeartRateValid = true
	}
	if powerCount > 0 {
		sum.AvgPowerW = powerSum / float64(powerCount)
		sum.PowerValid = true
	}
	if series.Len() > 0 {
		sum.PowerCoverage = float64(powerCount) / float64(series.Len())
	}

	if sum.PowerValid && sum.PowerCoverage >= a.coverageFloor {
		sum.TSS = a.score(sum.MovingTime, sum.AvgPowerW, a.thresholdPowerW)
		sum.TSSAvailable = true
	}

	return sum
}
