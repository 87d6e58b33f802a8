package summary_test

import (
	"context"
	"testing"
	"time"

	summary "github.com/okian/grimpeur/internal/domain/summary"
	telemetry "github.com/okian/grimpeur/internal/domain/telemetry"
	. "github.com/smartystreets/goconvey/convey"
)

// rideSeries builds a per-second series from a shaping callback that may
// mutate the default sample.
func rideSeries(t *testing.T, n int, shape func(i int, s *telemetry.RawSample)) *telemetry.Series {
	t.Helper()
	start := time.Date(2026, 7, 14, 9, 0, 0, 0, time.UTC)
	raw := make([]telemetry.RawSample, 0, n)
	for i := 0; i < n; i++ {
		s := telemetry.RawSample{
			Timestamp:  start.Add(time.Duration(i) * time.Second),
			DistanceM:  float64(i) * 5,
			ElevationM: 100,
			SpeedMPS:   5,
		}
		if shape != nil {
			shape(i, &s)
		}
		raw = append(raw, s)
	}
	series, err := telemetry.NewNormalizer().Normalize(context.Background(), raw)
	So(err, ShouldBeNil)
	return series
}

func TestAggregator(t *testing.T) {
	Convey("Given an aggregator with default options", t, func() {
		agg := summary.NewAggregator()

		Convey("When aggregating a steady ride with full power data", func() {
			series := rideSeries(t, 3600, func(i int, s *telemetry.RawSample) {
				s.PowerW, s.HasPower = 250, true
				s.HeartRateBPM, s.HasHeartRate = 150, true
			})
			sum := agg.Aggregate(series)

			Convey("Then channel statistics are exact", func() {
				So(sum.AvgPowerW, ShouldAlmostEqual, 250, 0.001)
				So(sum.MaxPowerW, ShouldEqual, 250)
				So(sum.PowerValid, ShouldBeTrue)
				So(sum.PowerCoverage, ShouldAlmostEqual, 1.0, 0.001)
				So(sum.AvgHeartRateBPM, ShouldAlmostEqual, 150, 0.001)
				So(sum.HeartRateValid, ShouldBeTrue)
				So(sum.AvgSpeedMPS, ShouldAlmostEqual, 5, 0.001)
				So(sum.TotalDistanceM, ShouldAlmostEqual, 3599*5, 0.001)
			})

			Convey("And riding at threshold for an hour scores about 100 TSS", func() {
				So(sum.TSSAvailable, ShouldBeTrue)
				So(sum.TSS, ShouldAlmostEqual, 100, 1)
			})
		})

		Convey("When the ride includes stopped time", func() {
			series := rideSeries(t, 600, func(i int, s *telemetry.RawSample) {
				if i >= 300 {
					s.SpeedMPS = 0
					s.DistanceM = 299 * 5
				}
			})
			sum := agg.Aggregate(series)

			Convey("Then moving time excludes the stop", func() {
				So(sum.MovingTime, ShouldEqual, 300*time.Second)
				So(sum.TotalTime, ShouldEqual, 599*time.Second)
			})
		})

		Convey("When elevation oscillates below the noise floor", func() {
			series := rideSeries(t, 600, func(i int, s *telemetry.RawSample) {
				if i%2 == 0 {
					s.ElevationM = 100.4
				}
			})
			sum := agg.Aggregate(series)

			Convey("Then no gain or loss is counted", func() {
				So(sum.ElevationGainM, ShouldEqual, 0)
				So(sum.ElevationLossM, ShouldEqual, 0)
			})
		})

		Convey("When the ride climbs and descends", func() {
			series := rideSeries(t, 600, func(i int, s *telemetry.RawSample) {
				switch {
				case i < 200:
					s.ElevationM = 100 + float64(i)*0.5
				case i < 400:
					s.ElevationM = 200 - float64(i-200)*0.25
				default:
					s.ElevationM = 150
				}
			})
			sum := agg.Aggregate(series)

			Convey("Then gain and loss are tracked separately", func() {
				So(sum.ElevationGainM, ShouldAlmostEqual, 99.5, 2)
				So(sum.ElevationLossM, ShouldAlmostEqual, 49.75, 2)
			})
		})

		Convey("When no sample carries power", func() {
			series := rideSeries(t, 600, nil)
			sum := agg.Aggregate(series)

			Convey("Then power is invalid and TSS unavailable", func() {
				So(sum.PowerValid, ShouldBeFalse)
				So(sum.PowerCoverage, ShouldEqual, 0)
				So(sum.TSSAvailable, ShouldBeFalse)
				So(sum.AvgSpeedMPS, ShouldAlmostEqual, 5, 0.001)
			})
		})

		Convey("When power coverage is below the floor", func() {
			series := rideSeries(t, 600, func(i int, s *telemetry.RawSample) {
				if i < 120 { // 20% coverage
					s.PowerW, s.HasPower = 250, true
				}
			})
			sum := agg.Aggregate(series)

			Convey("Then averages are reported but TSS degrades to unavailable", func() {
				So(sum.PowerValid, ShouldBeTrue)
				So(sum.AvgPowerW, ShouldAlmostEqual, 250, 0.001)
				So(sum.PowerCoverage, ShouldAlmostEqual, 0.2, 0.001)
				So(sum.TSSAvailable, ShouldBeFalse)
			})
		})
	})

	Convey("Given an aggregator with custom options", t, func() {
		Convey("When the score function is replaced", func() {
			agg := summary.NewAggregator(
				summary.WithThresholdPower(300),
				summary.WithScoreFunc(func(moving time.Duration, avg, ftp float64) float64 {
					return avg / ftp
				}),
			)
			series := rideSeries(t, 600, func(i int, s *telemetry.RawSample) {
				s.PowerW, s.HasPower = 150, true
			})
			sum := agg.Aggregate(series)

			Convey("Then the custom formula is used", func() {
				So(sum.TSSAvailable, ShouldBeTrue)
				So(sum.TSS, ShouldAlmostEqual, 0.5, 0.001)
			})
		})

		Convey("When the coverage floor is lowered", func() {
			agg := summary.NewAggregator(summary.WithCoverageFloor(0.1))
			series := rideSeries(t, 600, func(i int, s *telemetry.RawSample) {
				if i < 120 {
					s.PowerW, s.HasPower = 250, true
				}
			})
			sum := agg.Aggregate(series)

			Convey("Then 20% coverage clears the floor", func() {
				So(sum.TSSAvailable, ShouldBeTrue)
			})
		})
	})
}
