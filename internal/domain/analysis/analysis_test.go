package analysis_test

import (
	"context"
	"errors"
	"testing"
	"time"

	analysis "github.com/okian/grimpeur/internal/domain/analysis"
	telemetry "github.com/okian/grimpeur/internal/domain/telemetry"
	. "github.com/smartystreets/goconvey/convey"
)

// hillRide builds a 600 second ride at 5 m/s with a 10% climb from second
// 100 to 200, full power and heart rate.
func hillRide() []telemetry.RawSample {
	start := time.Date(2026, 7, 14, 9, 0, 0, 0, time.UTC)
	raw := make([]telemetry.RawSample, 0, 600)
	elev := 100.0
	for i := 0; i < 600; i++ {
		power := 150.0
		if i >= 100 && i < 200 {
			elev += 0.5
			power = 250
		}
		raw = append(raw, telemetry.RawSample{
			Timestamp:    start.Add(time.Duration(i) * time.Second),
			DistanceM:    float64(i) * 5,
			ElevationM:   elev,
			SpeedMPS:     5,
			PowerW:       power,
			HasPower:     true,
			HeartRateBPM: 150,
			HasHeartRate: true,
		})
	}
	return raw
}

func TestConfigValidate(t *testing.T) {
	Convey("Given analysis configurations", t, func() {
		Convey("When validating the defaults", func() {
			So(analysis.DefaultConfig().Validate(), ShouldBeNil)
		})

		Convey("When the exit threshold meets or exceeds the entry threshold", func() {
			cfg := analysis.DefaultConfig()
			cfg.ExitThresholdPct = cfg.EntryThresholdPct
			So(errors.Is(cfg.Validate(), analysis.ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("When the gap fraction is out of range", func() {
			cfg := analysis.DefaultConfig()
			cfg.MaxGapFraction = 1.5
			So(errors.Is(cfg.Validate(), analysis.ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("When the zone table does not start at zero", func() {
			cfg := analysis.DefaultConfig()
			cfg.ZoneBoundariesW = []float64{100, 200}
			So(errors.Is(cfg.Validate(), analysis.ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("When the interpolation gap is shorter than the interval", func() {
			cfg := analysis.DefaultConfig()
			cfg.MaxInterpolateGap = 500 * time.Millisecond
			So(errors.Is(cfg.Validate(), analysis.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}

func TestBuilder(t *testing.T) {
	Convey("Given a builder with the default configuration", t, func() {
		builder, err := analysis.NewBuilder(analysis.DefaultConfig())
		So(err, ShouldBeNil)

		Convey("When building a ride with one climb", func() {
			a, err := builder.Build(context.Background(), "ride-1", hillRide())

			Convey("Then all pipeline products are populated and aligned", func() {
				So(err, ShouldBeNil)
				So(a.ID(), ShouldEqual, "ride-1")
				So(a.Series().Len(), ShouldEqual, 600)
				So(a.Profile(), ShouldHaveLength, 600)
				So(a.Climbs(), ShouldHaveLength, 1)
				So(a.Zones().Zones, ShouldHaveLength, 6)
				So(a.Summary().TotalDistanceM, ShouldAlmostEqual, 2995, 1)
				So(a.BuiltAt().IsZero(), ShouldBeFalse)
			})

			Convey("And repeated builds of the same input agree", func() {
				So(err, ShouldBeNil)
				b, err := builder.Build(context.Background(), "ride-1", hillRide())
				So(err, ShouldBeNil)
				So(b.Climbs(), ShouldResemble, a.Climbs())
				So(b.Summary(), ShouldResemble, a.Summary())
				So(b.Zones(), ShouldResemble, a.Zones())
			})
		})

		Convey("When the telemetry is mostly missing", func() {
			start := time.Date(2026, 7, 14, 9, 0, 0, 0, time.UTC)
			raw := []telemetry.RawSample{
				{Timestamp: start, DistanceM: 0, ElevationM: 100, SpeedMPS: 5},
				{Timestamp: start.Add(100 * time.Second), DistanceM: 500, ElevationM: 100, SpeedMPS: 5},
			}
			a, err := builder.Build(context.Background(), "ride-2", raw)

			Convey("Then the build fails with ErrCorruptTelemetry and no partial result", func() {
				So(a, ShouldBeNil)
				So(errors.Is(err, telemetry.ErrCorruptTelemetry), ShouldBeTrue)
			})
		})

		Convey("When the input is empty", func() {
			a, err := builder.Build(context.Background(), "ride-3", nil)

			Convey("Then the build fails", func() {
				So(a, ShouldBeNil)
				So(errors.Is(err, telemetry.ErrEmptyInput), ShouldBeTrue)
			})
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			a, err := builder.Build(ctx, "ride-4", hillRide())

			Convey("Then the build stops with the context error", func() {
				So(a, ShouldBeNil)
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})

	Convey("Given an invalid configuration", t, func() {
		cfg := analysis.DefaultConfig()
		cfg.ThresholdPowerW = -1

		Convey("When constructing the builder", func() {
			builder, err := analysis.NewBuilder(cfg)

			Convey("Then construction fails before any ride is processed", func() {
				So(builder, ShouldBeNil)
				So(errors.Is(err, analysis.ErrInvalidConfig), ShouldBeTrue)
			})
		})
	})
}
