package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/grimpeur/internal/adapters/http/api"
	"github.com/okian/grimpeur/internal/adapters/repository"
	"github.com/okian/grimpeur/internal/domain/analysis"
	"github.com/okian/grimpeur/internal/domain/model"
	"github.com/okian/grimpeur/internal/domain/query"
	"github.com/okian/grimpeur/internal/domain/telemetry"
	"github.com/okian/grimpeur/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// fakeDeps satisfies api.Dependencies with in-memory state.
type fakeDeps struct {
	seen      map[string]bool
	enqueueOK bool
	enqueued  []model.Submission
	analyses  map[string]*analysis.Analysis
}

func newFakeDeps() *fakeDeps {
	return &fakeDeps{
		seen:      make(map[string]bool),
		enqueueOK: true,
		analyses:  make(map[string]*analysis.Analysis),
	}
}

func (f *fakeDeps) SeenAndRecord(_ context.Context, id string) bool {
	if f.seen[id] {
		return true
	}
	f.seen[id] = true
	return false
}

func (f *fakeDeps) Unrecord(_ context.Context, id string) {
	delete(f.seen, id)
}

func (f *fakeDeps) Size() int64 {
	return int64(len(f.seen))
}

func (f *fakeDeps) Enqueue(_ context.Context, sub model.Submission) bool {
	if !f.enqueueOK {
		return false
	}
	f.enqueued = append(f.enqueued, sub)
	return true
}

func (f *fakeDeps) Analysis(_ context.Context, rideID string) (*analysis.Analysis, error) {
	a, ok := f.analyses[rideID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return a, nil
}

func (f *fakeDeps) Query(ctx context.Context, rideID string, req query.Request) (query.Response, error) {
	a, err := f.Analysis(ctx, rideID)
	if err != nil {
		return query.Response{}, err
	}
	return query.Evaluate(a, req)
}

func (f *fakeDeps) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true}
}

// hillRide is a per-second ride with a 10 percent climb in the middle.
func hillRide() []telemetry.RawSample {
	start := time.Date(2026, 7, 14, 9, 0, 0, 0, time.UTC)
	samples := make([]telemetry.RawSample, 0, 600)
	dist, elev := 0.0, 100.0
	for i := 0; i < 600; i++ {
		climbing := i >= 100 && i < 200
		power := 150.0
		if climbing {
			power = 250.0
		}
		samples = append(samples, telemetry.RawSample{
			Timestamp:  start.Add(time.Duration(i) * time.Second),
			DistanceM:  dist,
			ElevationM: elev,
			SpeedMPS:   5.0,
			PowerW:     power,
			HasPower:   true,
		})
		dist += 5.0
		if climbing {
			elev += 0.5
		}
	}
	return samples
}

func newTestServer(deps *fakeDeps) *httptest.Server {
	mux := http.NewServeMux()
	api.NewServer(deps, deps).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func analyzeRide(rideID string) *analysis.Analysis {
	builder, err := analysis.NewBuilder(analysis.DefaultConfig())
	if err != nil {
		panic(err)
	}
	a, err := builder.Build(context.Background(), rideID, hillRide())
	if err != nil {
		panic(err)
	}
	return a
}

func TestPostRide(t *testing.T) {
	Convey("Given an API server", t, func() {
		deps := newFakeDeps()
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When posting a valid ride", func() {
			body := `{"ride_id":"ride-1","samples":[{"ts":"2026-07-14T09:00:00Z","distance_m":0,"elevation_m":100,"speed_mps":5,"power_w":150}]}`
			resp, err := http.Post(srv.URL+"/rides", "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the submission should be accepted", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusAccepted)

				var ack map[string]any
				So(json.NewDecoder(resp.Body).Decode(&ack), ShouldBeNil)
				So(ack["status"], ShouldEqual, "accepted")
				So(ack["ride_id"], ShouldEqual, "ride-1")
				So(ack["duplicate"], ShouldEqual, false)
			})

			Convey("Then the submission should reach the queue", func() {
				So(len(deps.enqueued), ShouldEqual, 1)
				So(deps.enqueued[0].RideID, ShouldEqual, "ride-1")
				So(deps.enqueued[0].Samples[0].HasPower, ShouldBeTrue)
				So(deps.enqueued[0].Samples[0].HasHeartRate, ShouldBeFalse)
			})
		})

		Convey("When posting a ride without an id", func() {
			body := `{"samples":[{"ts":"2026-07-14T09:00:00Z","distance_m":0,"elevation_m":100,"speed_mps":5}]}`
			resp, err := http.Post(srv.URL+"/rides", "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the server should assign one", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusAccepted)

				var ack map[string]any
				So(json.NewDecoder(resp.Body).Decode(&ack), ShouldBeNil)
				So(ack["ride_id"], ShouldNotBeEmpty)
			})
		})

		Convey("When posting the same ride twice", func() {
			body := `{"ride_id":"ride-dup","samples":[{"ts":"2026-07-14T09:00:00Z","distance_m":0,"elevation_m":100,"speed_mps":5}]}`
			first, err := http.Post(srv.URL+"/rides", "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			first.Body.Close()

			second, err := http.Post(srv.URL+"/rides", "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			defer second.Body.Close()

			Convey("Then the second submission should be flagged a duplicate", func() {
				So(second.StatusCode, ShouldEqual, http.StatusOK)

				var ack map[string]any
				So(json.NewDecoder(second.Body).Decode(&ack), ShouldBeNil)
				So(ack["duplicate"], ShouldEqual, true)
			})

			Convey("Then only one submission should reach the queue", func() {
				So(len(deps.enqueued), ShouldEqual, 1)
			})
		})

		Convey("When posting a ride with no samples", func() {
			resp, err := http.Post(srv.URL+"/rides", "application/json", strings.NewReader(`{"ride_id":"r","samples":[]}`))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the request should be rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When posting a ride with a malformed timestamp", func() {
			body := `{"ride_id":"r","samples":[{"ts":"yesterday","distance_m":0,"elevation_m":0,"speed_mps":0}]}`
			resp, err := http.Post(srv.URL+"/rides", "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the request should be rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the queue is full", func() {
			deps.enqueueOK = false
			body := `{"ride_id":"ride-bp","samples":[{"ts":"2026-07-14T09:00:00Z","distance_m":0,"elevation_m":100,"speed_mps":5}]}`
			resp, err := http.Post(srv.URL+"/rides", "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the server should report backpressure", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusTooManyRequests)
			})

			Convey("Then the ride id should be retryable", func() {
				So(deps.seen["ride-bp"], ShouldBeFalse)
			})
		})
	})
}

func TestGetRide(t *testing.T) {
	Convey("Given an API server with one analyzed ride", t, func() {
		deps := newFakeDeps()
		deps.analyses["ride-1"] = analyzeRide("ride-1")
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When fetching the ride", func() {
			resp, err := http.Get(srv.URL + "/rides/ride-1")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the summary view should be returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)

				var view map[string]any
				So(json.NewDecoder(resp.Body).Decode(&view), ShouldBeNil)
				So(view["ride_id"], ShouldEqual, "ride-1")
				So(view["sample_count"], ShouldEqual, float64(600))

				summary, ok := view["summary"].(map[string]any)
				So(ok, ShouldBeTrue)
				So(summary["total_distance_m"], ShouldAlmostEqual, 2995.0, 1.0)
				So(summary["avg_power_w"], ShouldNotBeNil)
			})
		})

		Convey("When fetching the ride's climbs", func() {
			resp, err := http.Get(srv.URL + "/rides/ride-1/climbs")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the climb list should be returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)

				var climbs []map[string]any
				So(json.NewDecoder(resp.Body).Decode(&climbs), ShouldBeNil)
				So(len(climbs), ShouldEqual, 1)
				So(climbs[0]["avg_gradient"], ShouldBeGreaterThan, 5.0)
			})
		})

		Convey("When fetching the ride's zones", func() {
			resp, err := http.Get(srv.URL + "/rides/ride-1/zones")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the zone distribution should be returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)

				var view map[string]any
				So(json.NewDecoder(resp.Body).Decode(&view), ShouldBeNil)

				zones, ok := view["zones"].([]any)
				So(ok, ShouldBeTrue)
				So(len(zones), ShouldEqual, 6)

				last, ok := zones[len(zones)-1].(map[string]any)
				So(ok, ShouldBeTrue)
				So(last["upper_bound_w"], ShouldBeNil)
			})
		})

		Convey("When fetching a ride that does not exist", func() {
			resp, err := http.Get(srv.URL + "/rides/ride-unknown")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the server should return 404", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When fetching an unknown subresource", func() {
			resp, err := http.Get(srv.URL + "/rides/ride-1/watts")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the server should return 404", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestPostQuery(t *testing.T) {
	Convey("Given an API server with one analyzed ride", t, func() {
		deps := newFakeDeps()
		deps.analyses["ride-1"] = analyzeRide("ride-1")
		srv := newTestServer(deps)
		defer srv.Close()

		post := func(body string) *http.Response {
			resp, err := http.Post(srv.URL+"/rides/ride-1/query", "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			return resp
		}

		Convey("When asking for average power over the whole ride", func() {
			resp := post(`{"metric":"avg","channel":"power","scope":"all"}`)
			defer resp.Body.Close()

			Convey("Then the answer should cover all samples", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)

				var out map[string]any
				So(json.NewDecoder(resp.Body).Decode(&out), ShouldBeNil)
				So(out["value"], ShouldAlmostEqual, 166.66, 1.0)
				So(out["sample_count"], ShouldEqual, float64(600))
			})
		})

		Convey("When asking for max gradient on climbs", func() {
			resp := post(`{"metric":"max","channel":"gradient","scope":"climbs"}`)
			defer resp.Body.Close()

			Convey("Then the answer should reflect the hill", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)

				var out map[string]any
				So(json.NewDecoder(resp.Body).Decode(&out), ShouldBeNil)
				So(out["value"], ShouldBeGreaterThan, 8.0)
			})
		})

		Convey("When filtering climbs down to nothing", func() {
			resp := post(`{"metric":"avg","channel":"power","scope":"climbs","filter":{"field":"avg_gradient","comparator":">","value":30}}`)
			defer resp.Body.Close()

			Convey("Then the server should report no matching data", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusUnprocessableEntity)
			})
		})

		Convey("When sending an unknown metric", func() {
			resp := post(`{"metric":"median","channel":"power","scope":"all"}`)
			defer resp.Body.Close()

			Convey("Then the request should be rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When querying a ride that does not exist", func() {
			resp, err := http.Post(srv.URL+"/rides/ride-unknown/query", "application/json",
				strings.NewReader(`{"metric":"avg","channel":"power","scope":"all"}`))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the server should return 404", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestStatsAndHealth(t *testing.T) {
	Convey("Given an API server", t, func() {
		deps := newFakeDeps()
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When fetching stats", func() {
			resp, err := http.Get(srv.URL + "/stats")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the service stats should be returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)

				var stats map[string]any
				So(json.NewDecoder(resp.Body).Decode(&stats), ShouldBeNil)
				So(stats["started"], ShouldEqual, true)
			})
		})

		Convey("When fetching healthz", func() {
			resp, err := http.Get(srv.URL + "/healthz")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then metrics should be served", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
			})
		})
	})
}
