// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/okian/grimpeur/internal/domain/analysis"
	"github.com/okian/grimpeur/internal/domain/climb"
	"github.com/okian/grimpeur/internal/domain/query"
	"github.com/okian/grimpeur/internal/domain/zone"
)

// RideReadDependencies defines the interface for ride read operations.
type RideReadDependencies interface {
	Analysis(ctx context.Context, rideID string) (*analysis.Analysis, error)
	Query(ctx context.Context, rideID string, req query.Request) (query.Response, error)
}

// RideResourceHandler serves everything under /rides/{id}.
type RideResourceHandler struct {
	deps  RideReadDependencies
	query *QueryHandler
}

// NewRideResourceHandler creates a new ride resource handler.
func NewRideResourceHandler(deps RideReadDependencies) *RideResourceHandler {
	return &RideResourceHandler{
		deps:  deps,
		query: NewQueryHandler(deps),
	}
}

// HandleRide dispatches /rides/{id}, /rides/{id}/climbs, /rides/{id}/zones
// and /rides/{id}/query by subresource and method.
func (h *RideResourceHandler) HandleRide(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_ride"
	rideID, sub, ok := ridePath(r.URL.Path)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	if sub == "query" {
		h.query.HandlePostQuery(w, r, rideID)
		return
	}

	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	a, err := h.deps.Analysis(r.Context(), rideID)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	switch sub {
	case "":
		writeJSON(w, http.StatusOK, newRideResponse(a))
	case "climbs":
		writeJSON(w, http.StatusOK, newClimbsResponse(a.Climbs()))
	case "zones":
		writeJSON(w, http.StatusOK, newZonesResponse(a.Zones()))
	default:
		http.NotFound(w, r)
	}
}

// rideResponse is the read shape for GET /rides/{id}.
type rideResponse struct {
	RideID      string          `json:"ride_id"`
	BuiltAt     time.Time       `json:"built_at"`
	SampleCount int             `json:"sample_count"`
	ClimbCount  int             `json:"climb_count"`
	Summary     summaryResponse `json:"summary"`
}

type summaryResponse struct {
	AvgPowerW       *float64 `json:"avg_power_w"`
	MaxPowerW       *float64 `json:"max_power_w"`
	PowerCoverage   float64  `json:"power_coverage"`
	AvgHeartRateBPM *float64 `json:"avg_heart_rate_bpm"`
	MaxHeartRateBPM *float64 `json:"max_heart_rate_bpm"`
	AvgSpeedMPS     float64  `json:"avg_speed_mps"`
	MaxSpeedMPS     float64  `json:"max_speed_mps"`
	TotalDistanceM  float64  `json:"total_distance_m"`
	ElevationGainM  float64  `json:"elevation_gain_m"`
	ElevationLossM  float64  `json:"elevation_loss_m"`
	MovingTimeS     float64  `json:"moving_time_s"`
	TotalTimeS      float64  `json:"total_time_s"`
	TSS             *float64 `json:"tss"`
}

type climbResponse struct {
	StartDistanceM  float64   `json:"start_distance_m"`
	EndDistanceM    float64   `json:"end_distance_m"`
	LengthM         float64   `json:"length_m"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	AvgGradient     float64   `json:"avg_gradient"`
	MaxGradient     float64   `json:"max_gradient"`
	AvgPowerW       *float64  `json:"avg_power_w"`
	AvgHeartRateBPM *float64  `json:"avg_heart_rate_bpm"`
	AvgSpeedMPS     float64   `json:"avg_speed_mps"`
}

type zoneResponse struct {
	ID             int      `json:"id"`
	LowerBoundW    float64  `json:"lower_bound_w"`
	UpperBoundW    *float64 `json:"upper_bound_w"`
	TimeInZoneS    float64  `json:"time_in_zone_s"`
	FractionOfRide float64  `json:"fraction_of_ride"`
}

type zonesResponse struct {
	Zones          []zoneResponse `json:"zones"`
	NoDataS        float64        `json:"no_data_s"`
	NoDataFraction float64        `json:"no_data_fraction"`
	TotalS         float64        `json:"total_s"`
}

func newRideResponse(a *analysis.Analysis) rideResponse {
	s := a.Summary()
	resp := rideResponse{
		RideID:      a.ID(),
		BuiltAt:     a.BuiltAt(),
		SampleCount: a.Series().Len(),
		ClimbCount:  len(a.Climbs()),
		Summary: summaryResponse{
			PowerCoverage:  s.PowerCoverage,
			AvgSpeedMPS:    s.AvgSpeedMPS,
			MaxSpeedMPS:    s.MaxSpeedMPS,
			TotalDistanceM: s.TotalDistanceM,
			ElevationGainM: s.ElevationGainM,
			ElevationLossM: s.ElevationLossM,
			MovingTimeS:    s.MovingTime.Seconds(),
			TotalTimeS:     s.TotalTime.Seconds(),
		},
	}
	if s.PowerValid {
		resp.Summary.AvgPowerW = ptr(s.AvgPowerW)
		resp.Summary.MaxPowerW = ptr(s.MaxPowerW)
	}
	if s.HeartRateValid {
		resp.Summary.AvgHeartRateBPM = ptr(s.AvgHeartRateBPM)
		resp.Summary.MaxHeartRateBPM = ptr(s.MaxHeartRateBPM)
	}
	if s.TSSAvailable {
		resp.Summary.TSS = ptr(s.TSS)
	}
	return resp
}

func newClimbsResponse(climbs []climb.Segment) []climbResponse {
	out := make([]climbResponse, 0, len(climbs))
	for _, c := range climbs {
		v := climbResponse{
			StartDistanceM: c.StartDistanceM,
			EndDistanceM:   c.EndDistanceM,
			LengthM:        c.LengthM(),
			StartTime:      c.StartTime,
			EndTime:        c.EndTime,
			AvgGradient:    c.AvgGradient,
			MaxGradient:    c.MaxGradient,
			AvgSpeedMPS:    c.AvgSpeedMPS,
		}
		if c.HasPower {
			v.AvgPowerW = ptr(c.AvgPowerW)
		}
		if c.HasHeartRate {
			v.AvgHeartRateBPM = ptr(c.AvgHeartRateBPM)
		}
		out = append(out, v)
	}
	return out
}

func newZonesResponse(d zone.Distribution) zonesResponse {
	resp := zonesResponse{
		Zones:          make([]zoneResponse, 0, len(d.Zones)),
		NoDataS:        d.NoData.Seconds(),
		NoDataFraction: d.NoDataFraction,
		TotalS:         d.Total.Seconds(),
	}
	for _, z := range d.Zones {
		v := zoneResponse{
			ID:             z.ID,
			LowerBoundW:    z.LowerBoundW,
			TimeInZoneS:    z.TimeInZone.Seconds(),
			FractionOfRide: z.FractionOfRide,
		}
		// The last zone is open-ended; its upper bound serializes as null.
		if !math.IsInf(z.UpperBoundW, 1) {
			v.UpperBoundW = ptr(z.UpperBoundW)
		}
		resp.Zones = append(resp.Zones, v)
	}
	return resp
}

func ptr(v float64) *float64 { return &v }
