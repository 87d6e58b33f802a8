package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	repository "github.com/okian/grimpeur/internal/adapters/repository"
	analysis "github.com/okian/grimpeur/internal/domain/analysis"
	telemetry "github.com/okian/grimpeur/internal/domain/telemetry"
	. "github.com/smartystreets/goconvey/convey"
)

// buildAnalysis produces a small valid analysis under the given ride id.
func buildAnalysis(t *testing.T, rideID string) *analysis.Analysis {
	t.Helper()
	start := time.Date(2026, 7, 14, 9, 0, 0, 0, time.UTC)
	raw := make([]telemetry.RawSample, 0, 30)
	for i := 0; i < 30; i++ {
		raw = append(raw, telemetry.RawSample{
			Timestamp:  start.Add(time.Duration(i) * time.Second),
			DistanceM:  float64(i) * 5,
			ElevationM: 100,
			SpeedMPS:   5,
		})
	}
	builder, err := analysis.NewBuilder(analysis.DefaultConfig())
	So(err, ShouldBeNil)
	a, err := builder.Build(context.Background(), rideID, raw)
	So(err, ShouldBeNil)
	return a
}

func TestLRUStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new LRUStore", t, func() {
		Convey("When storing and retrieving an analysis", func() {
			s := repository.NewLRUStore(ctx)
			a := buildAnalysis(t, "ride-1")
			So(s.Put(ctx, a), ShouldBeNil)

			got, err := s.Get(ctx, "ride-1")

			Convey("Then the same analysis comes back", func() {
				So(err, ShouldBeNil)
				So(got, ShouldEqual, a)
				So(s.Count(ctx), ShouldEqual, 1)
			})
		})

		Convey("When getting an unknown ride", func() {
			s := repository.NewLRUStore(ctx)
			_, err := s.Get(ctx, "missing")

			Convey("Then it returns ErrNotFound", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When putting nil", func() {
			s := repository.NewLRUStore(ctx)
			err := s.Put(ctx, nil)

			Convey("Then it returns ErrNilEntry", func() {
				So(errors.Is(err, repository.ErrNilEntry), ShouldBeTrue)
			})
		})

		Convey("When re-putting the same ride id", func() {
			s := repository.NewLRUStore(ctx)
			first := buildAnalysis(t, "ride-1")
			second := buildAnalysis(t, "ride-1")
			So(s.Put(ctx, first), ShouldBeNil)
			So(s.Put(ctx, second), ShouldBeNil)

			got, err := s.Get(ctx, "ride-1")

			Convey("Then the newer analysis replaces the older without growing", func() {
				So(err, ShouldBeNil)
				So(got, ShouldEqual, second)
				So(s.Count(ctx), ShouldEqual, 1)
			})
		})

		Convey("When inserting past capacity", func() {
			s := repository.NewLRUStore(ctx, repository.WithCapacity(3))
			for i := 0; i < 5; i++ {
				So(s.Put(ctx, buildAnalysis(t, fmt.Sprintf("ride-%d", i))), ShouldBeNil)
			}

			Convey("Then the oldest entries are evicted", func() {
				So(s.Count(ctx), ShouldEqual, 3)
				_, err := s.Get(ctx, "ride-0")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				_, err = s.Get(ctx, "ride-1")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				_, err = s.Get(ctx, "ride-4")
				So(err, ShouldBeNil)
			})
		})

		Convey("When deleting an entry", func() {
			s := repository.NewLRUStore(ctx)
			So(s.Put(ctx, buildAnalysis(t, "ride-1")), ShouldBeNil)
			s.Delete(ctx, "ride-1")

			Convey("Then it is gone", func() {
				So(s.Count(ctx), ShouldEqual, 0)
				_, err := s.Get(ctx, "ride-1")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("And deleting again is a no-op", func() {
				So(func() { s.Delete(ctx, "ride-1") }, ShouldNotPanic)
			})
		})

		Convey("When readers and writers run concurrently", func() {
			s := repository.NewLRUStore(ctx, repository.WithCapacity(16))
			analyses := make([]*analysis.Analysis, 8)
			for i := range analyses {
				analyses[i] = buildAnalysis(t, fmt.Sprintf("ride-%d", i))
			}

			var wg sync.WaitGroup
			for _, a := range analyses {
				wg.Add(1)
				go func(a *analysis.Analysis) {
					defer wg.Done()
					_ = s.Put(ctx, a)
					_, _ = s.Get(ctx, a.ID())
				}(a)
			}
			wg.Wait()

			Convey("Then every entry is present", func() {
				So(s.Count(ctx), ShouldEqual, 8)
			})
		})
	})
}
