// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
	"time"

	"github.com/okian/grimpeur/internal/domain/analysis"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory submission queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of analysis workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the ride-ID deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// CacheSize caps the number of retained ride analyses.
	CacheSize int `koanf:"cache_size"`

	// EntryThresholdPct and ExitThresholdPct are the climb-detection
	// hysteresis bounds, as gradient percentages.
	EntryThresholdPct float64 `koanf:"entry_threshold_pct"`
	ExitThresholdPct  float64 `koanf:"exit_threshold_pct"`

	// MinSustainedDistanceM is the distance a gradient condition must hold
	// before a climb starts or ends.
	MinSustainedDistanceM float64 `koanf:"min_sustained_distance_m"`

	// SegmentMergeDistanceM joins climbs separated by short flat gaps.
	SegmentMergeDistanceM float64 `koanf:"segment_merge_distance_m"`

	// ZoneBoundariesW are the lower bounds of the power zones, in watts.
	// The first entry must be 0 and the values strictly increasing.
	ZoneBoundariesW []float64 `koanf:"zone_boundaries_w"`

	// ThresholdPowerW is the rider's functional threshold power.
	ThresholdPowerW float64 `koanf:"threshold_power_w"`

	// MaxGapFraction rejects rides whose timeline is mostly holes.
	MaxGapFraction float64 `koanf:"max_gap_fraction"`

	// GradientSmoothingWindowM is the rolling distance window for the
	// gradient profile.
	GradientSmoothingWindowM float64 `koanf:"gradient_smoothing_window_m"`

	// NoiseFloorM filters elevation jitter out of the gain total.
	NoiseFloorM float64 `koanf:"noise_floor_m"`

	// StopThresholdMPS separates moving time from stopped time.
	StopThresholdMPS float64 `koanf:"stop_threshold_mps"`

	// PowerCoverageFloor is the minimum fraction of samples with power
	// readings required to report a training stress score.
	PowerCoverageFloor float64 `koanf:"power_coverage_floor"`
}

// New creates a Config populated with defaults. Analysis knobs mirror
// analysis.DefaultConfig so a bare process and an explicit default file
// behave identically.
func New() *Config {
	a := analysis.DefaultConfig()
	return &Config{
		LogLevel:                 "info",
		Addr:                     ":9080",
		QueueSize:                10_000,
		WorkerCount:              runtime.NumCPU() * 2,
		DedupeSize:               50_000,
		CacheSize:                1024,
		EntryThresholdPct:        a.EntryThresholdPct,
		ExitThresholdPct:         a.ExitThresholdPct,
		MinSustainedDistanceM:    a.MinSustainedDistanceM,
		SegmentMergeDistanceM:    a.SegmentMergeDistanceM,
		ZoneBoundariesW:          a.ZoneBoundariesW,
		ThresholdPowerW:          a.ThresholdPowerW,
		MaxGapFraction:           a.MaxGapFraction,
		GradientSmoothingWindowM: a.GradientSmoothingWindowM,
		NoiseFloorM:              a.NoiseFloorM,
		StopThresholdMPS:         a.StopThresholdMPS,
		PowerCoverageFloor:       a.PowerCoverageFloor,
	}
}

// AnalysisConfig projects the flat service configuration onto the analysis
// pipeline's own Config type.
func (c *Config) AnalysisConfig() analysis.Config {
	a := analysis.DefaultConfig()
	a.EntryThresholdPct = c.EntryThresholdPct
	a.ExitThresholdPct = c.ExitThresholdPct
	a.MinSustainedDistanceM = c.MinSustainedDistanceM
	a.SegmentMergeDistanceM = c.SegmentMergeDistanceM
	a.ZoneBoundariesW = c.ZoneBoundariesW
	a.ThresholdPowerW = c.ThresholdPowerW
	a.MaxGapFraction = c.MaxGapFraction
	a.GradientSmoothingWindowM = c.GradientSmoothingWindowM
	a.NominalInterval = time.Second
	a.NoiseFloorM = c.NoiseFloorM
	a.StopThresholdMPS = c.StopThresholdMPS
	a.PowerCoverageFloor = c.PowerCoverageFloor
	return a
}
