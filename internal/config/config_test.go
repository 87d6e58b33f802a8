package config_test

import (
	"runtime"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/grimpeur/internal/config"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 50_000)
			convey.So(cfg.CacheSize, convey.ShouldEqual, 1024)
		})

		convey.Convey("Then the analysis defaults should carry through", func() {
			convey.So(cfg.EntryThresholdPct, convey.ShouldEqual, 2.5)
			convey.So(cfg.ExitThresholdPct, convey.ShouldEqual, 1.5)
			convey.So(cfg.MinSustainedDistanceM, convey.ShouldEqual, 100.0)
			convey.So(cfg.SegmentMergeDistanceM, convey.ShouldEqual, 100.0)
			convey.So(cfg.GradientSmoothingWindowM, convey.ShouldEqual, 40.0)
			convey.So(cfg.ThresholdPowerW, convey.ShouldEqual, 250.0)
			convey.So(cfg.ZoneBoundariesW[0], convey.ShouldEqual, 0.0)
			convey.So(len(cfg.ZoneBoundariesW), convey.ShouldEqual, 6)
		})
	})
}

func TestConfig_AnalysisConfig(t *testing.T) {
	convey.Convey("Given a config with tuned analysis knobs", t, func() {
		cfg := config.New()
		cfg.EntryThresholdPct = 4.0
		cfg.ExitThresholdPct = 2.0
		cfg.ThresholdPowerW = 310
		cfg.ZoneBoundariesW = []float64{0, 100, 200}

		convey.Convey("When projecting to an analysis config", func() {
			a := cfg.AnalysisConfig()

			convey.Convey("Then the projection should carry the tuned values", func() {
				convey.So(a.EntryThresholdPct, convey.ShouldEqual, 4.0)
				convey.So(a.ExitThresholdPct, convey.ShouldEqual, 2.0)
				convey.So(a.ThresholdPowerW, convey.ShouldEqual, 310.0)
				convey.So(a.ZoneBoundariesW, convey.ShouldResemble, []float64{0, 100, 200})
			})

			convey.Convey("Then the projection should validate", func() {
				convey.So(a.Validate(), convey.ShouldBeNil)
			})
		})
	})
}
