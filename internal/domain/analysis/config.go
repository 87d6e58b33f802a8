package analysis

import (
	"fmt"
	"time"

	"github.com/okian/grimpeur/internal/domain/zone"
)

// Default analysis configuration constants. The smoothing window and merge
// distance follow the common choices for per-second cycling data.
const (
	defaultEntryThresholdPct        = 2.5
	defaultExitThresholdPct         = 1.5
	defaultMinSustainedDistanceM    = 100.0
	defaultSegmentMergeDistanceM    = 100.0
	defaultThresholdPowerW          = 250.0
	defaultMaxGapFraction           = 0.15
	defaultGradientSmoothingWindowM = 40.0
	defaultNominalInterval          = time.Second
	defaultMaxInterpolateGap        = 5 * time.Second
	defaultNoiseFloorM              = 1.0
	defaultStopThresholdMPS         = 1.0
	defaultPowerCoverageFloor       = 0.5
)

// Config is the full analysis configuration surface. It is validated as a
// whole before any ride is processed; a Builder is never constructed from a
// partially valid Config.
type Config struct {
	EntryThresholdPct        float64
	ExitThresholdPct         float64
	MinSustainedDistanceM    float64
	SegmentMergeDistanceM    float64
	ZoneBoundariesW          []float64
	ThresholdPowerW          float64
	MaxGapFraction           float64
	GradientSmoothingWindowM float64
	NominalInterval          time.Duration
	MaxInterpolateGap        time.Duration
	NoiseFloorM              float64
	StopThresholdMPS         float64
	PowerCoverageFloor       float64
}

// DefaultConfig returns the documented defaults with a conventional 6-zone
// table for a 250 W threshold rider.
func DefaultConfig() Config {
	return Config{
		EntryThresholdPct:        defaultEntryThresholdPct,
		ExitThresholdPct:         defaultExitThresholdPct,
		MinSustainedDistanceM:    defaultMinSustainedDistanceM,
		SegmentMergeDistanceM:    defaultSegmentMergeDistanceM,
		ZoneBoundariesW:          []float64{0, 137, 187, 225, 262, 300},
		ThresholdPowerW:          defaultThresholdPowerW,
		MaxGapFraction:           defaultMaxGapFraction,
		GradientSmoothingWindowM: defaultGradientSmoothingWindowM,
		NominalInterval:          defaultNominalInterval,
		MaxInterpolateGap:        defaultMaxInterpolateGap,
		NoiseFloorM:              defaultNoiseFloorM,
		StopThresholdMPS:         defaultStopThresholdMPS,
		PowerCoverageFloor:       defaultPowerCoverageFloor,
	}
}

// Validate checks every field and fails fast on the first violation. All
// failures wrap ErrInvalidConfig so callers can errors.Is against one kind.
func (c Config) Validate() error {
	const op = "analysis.config"
	switch {
	case c.EntryThresholdPct <= 0:
		return fmt.Errorf("%s: entry threshold must be positive: %w", op, ErrInvalidConfig)
	case c.ExitThresholdPct <= 0:
		return fmt.Errorf("%s: exit threshold must be positive: %w", op, ErrInvalidConfig)
	case c.ExitThresholdPct >= c.EntryThresholdPct:
		return fmt.Errorf("%s: exit threshold %g must sit below entry threshold %g: %w",
			op, c.ExitThresholdPct, c.EntryThresholdPct, ErrInvalidConfig)
	case c.MinSustainedDistanceM <= 0:
		return fmt.Errorf("%s: min sustained distance must be positive: %w", op, ErrInvalidConfig)
	case c.SegmentMergeDistanceM < 0:
		return fmt.Errorf("%s: segment merge distance must not be negative: %w", op, ErrInvalidConfig)
	case c.ThresholdPowerW <= 0:
		return fmt.Errorf("%s: threshold power must be positive: %w", op, ErrInvalidConfig)
	case c.MaxGapFraction <= 0 || c.MaxGapFraction >= 1:
		return fmt.Errorf("%s: max gap fraction must be in (0, 1): %w", op, ErrInvalidConfig)
	case c.GradientSmoothingWindowM <= 0:
		return fmt.Errorf("%s: gradient smoothing window must be positive: %w", op, ErrInvalidConfig)
	case c.NominalInterval <= 0:
		return fmt.Errorf("%s: nominal interval must be positive: %w", op, ErrInvalidConfig)
	case c.MaxInterpolateGap < c.NominalInterval:
		return fmt.Errorf("%s: max interpolate gap must cover at least one interval: %w", op, ErrInvalidConfig)
	case c.PowerCoverageFloor <= 0 || c.PowerCoverageFloor > 1:
		return fmt.Errorf("%s: power coverage floor must be in (0, 1]: %w", op, ErrInvalidConfig)
	}
	if err := zone.ValidateBoundaries(c.ZoneBoundariesW); err != nil {
		return fmt.Errorf("%s: %v: %w", op, err, ErrInvalidConfig)
	}
	return nil
}
