// Package analysis assembles the full ride analysis: it runs the
// normalize/profile/segment/classify/aggregate pipeline and owns the
// resulting immutable aggregate.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/grimpeur/internal/domain/climb"
	"github.com/okian/grimpeur/internal/domain/gradient"
	"github.com/okian/grimpeur/internal/domain/summary"
	"github.com/okian/grimpeur/internal/domain/telemetry"
	"github.com/okian/grimpeur/internal/domain/zone"
	"github.com/okian/grimpeur/pkg/metrics"
)

// Analysis is the aggregate root for one processed ride. It is read-only
// after Build returns and safe to share across concurrent query callers.
type Analysis struct {
	id      string
	series  *telemetry.Series
	profile []gradient.Point
	climbs  []climb.Segment
	zones   zone.Distribution
	summary summary.Summary
	builtAt time.Time
}

// ID returns the ride identifier the analysis was built for.
func (a *Analysis) ID() string { return a.id }

// Series returns the normalized ride series.
func (a *Analysis) Series() *telemetry.Series { return a.series }

// Profile returns the smoothed gradient profile, index-aligned with Series.
func (a *Analysis) Profile() []gradient.Point { return a.profile }

// Climbs returns the detected climb segments ordered by start distance.
func (a *Analysis) Climbs() []climb.Segment { return a.climbs }

// Zones returns the power-zone time distribution.
func (a *Analysis) Zones() zone.Distribution { return a.zones }

// Summary returns the ride-level scalar statistics.
func (a *Analysis) Summary() summary.Summary { return a.summary }

// BuiltAt returns when the pipeline finished.
func (a *Analysis) BuiltAt() time.Time { return a.builtAt }

// Builder runs the analysis pipeline with a validated configuration. One
// Builder serves any number of rides and is safe for concurrent use; each
// Build call is independent.
type Builder struct {
	cfg        Config
	normalizer *telemetry.Normalizer
	profiler   *gradient.Profiler
	segmenter  *climb.Segmenter
	classifier *zone.Classifier
	aggregator *summary.Aggregator
}

// NewBuilder validates cfg and constructs the pipeline stages. It returns
// ErrInvalidConfig before any ride is processed when cfg is malformed.
func NewBuilder(cfg Config) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	classifier, err := zone.NewClassifier(cfg.ZoneBoundariesW)
	if err != nil {
		return nil, err
	}
	return &Builder{
		cfg: cfg,
		normalizer: telemetry.NewNormalizer(
			telemetry.WithInterval(cfg.NominalInterval),
			telemetry.WithMaxInterpolateGap(cfg.MaxInterpolateGap),
			telemetry.WithMaxGapFraction(cfg.MaxGapFraction),
		),
		profiler: gradient.NewProfiler(
			gradient.WithWindow(cfg.GradientSmoothingWindowM),
		),
		segmenter: climb.NewSegmenter(
			climb.WithThresholds(cfg.EntryThresholdPct, cfg.ExitThresholdPct),
			climb.WithMinSustainedDistance(cfg.MinSustainedDistanceM),
			climb.WithMergeGap(cfg.SegmentMergeDistanceM),
		),
		classifier: classifier,
		aggregator: summary.NewAggregator(
			summary.WithThresholdPower(cfg.ThresholdPowerW),
			summary.WithNoiseFloor(cfg.NoiseFloorM),
			summary.WithStopThreshold(cfg.StopThresholdMPS),
			summary.WithCoverageFloor(cfg.PowerCoverageFloor),
		),
	}, nil
}

// Config returns the builder's validated configuration.
func (b *Builder) Config() Config { return b.cfg }

// Build runs the full pipeline for one ride. It honors ctx between stages:
// a cancelled build returns the context error and no partial Analysis.
func (b *Builder) Build(ctx context.Context, rideID string, raw []telemetry.RawSample) (*Analysis, error) {
	const op = "analysis.build"

	start := time.Now()
	series, err := b.normalizer.Normalize(ctx, raw)
	metrics.RecordPipelineStageLatency("normalize", msSince(start))
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, rideID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, rideID, err)
	}

	start = time.Now()
	profile := b.profiler.Profile(series)
	metrics.RecordPipelineStageLatency("gradient", msSince(start))
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, rideID, err)
	}

	start = time.Now()
	climbs := b.segmenter.Segments(series, profile)
	metrics.RecordPipelineStageLatency("climbs", msSince(start))
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, rideID, err)
	}

	start = time.Now()
	zones := b.classifier.Classify(series)
	metrics.RecordPipelineStageLatency("zones", msSince(start))

	start = time.Now()
	sum := b.aggregator.Aggregate(series)
	metrics.RecordPipelineStageLatency("summary", msSince(start))

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, rideID, err)
	}

	return &Analysis{
		id:      rideID,
		series:  series,
		profile: profile,
		climbs:  climbs,
		zones:   zones,
		summary: sum,
		builtAt: time.Now(),
	}, nil
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Milliseconds())
}
