// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/grimpeur/internal/domain/dedupe"
	"github.com/okian/grimpeur/internal/domain/model"
	"github.com/okian/grimpeur/internal/domain/telemetry"
)

// RideDependencies defines the interface for ride submission dependencies.
type RideDependencies interface {
	dedupe.Deduper
	Enqueue(ctx context.Context, sub model.Submission) bool
}

// RidesHandler handles ride submissions.
type RidesHandler struct {
	deps RideDependencies
}

// NewRidesHandler creates a new rides handler.
func NewRidesHandler(deps RideDependencies) *RidesHandler {
	return &RidesHandler{deps: deps}
}

// rideRequest mirrors the OpenAPI schema for POST /rides.
type rideRequest struct {
	RideID  string          `json:"ride_id"`
	Samples []sampleRequest `json:"samples"`
}

// sampleRequest is one telemetry record. Optional channels are pointers so
// absence survives the decode.
type sampleRequest struct {
	TS           string   `json:"ts"`
	DistanceM    float64  `json:"distance_m"`
	ElevationM   float64  `json:"elevation_m"`
	SpeedMPS     float64  `json:"speed_mps"`
	PowerW       *float64 `json:"power_w,omitempty"`
	HeartRateBPM *float64 `json:"heart_rate_bpm,omitempty"`
	CadenceRPM   *float64 `json:"cadence_rpm,omitempty"`
}

func (r rideRequest) validate() error {
	if len(r.Samples) == 0 {
		return errors.New("missing samples")
	}
	for _, s := range r.Samples {
		if strings.TrimSpace(s.TS) == "" {
			return errors.New("missing ts on sample")
		}
		if _, err := time.Parse(time.RFC3339, s.TS); err != nil {
			return errors.New("invalid ts; must be RFC3339")
		}
		if s.DistanceM < 0 {
			return errors.New("negative distance_m on sample")
		}
	}
	return nil
}

// rawSamples converts the request body into domain samples. Timestamps were
// already validated.
func (r rideRequest) rawSamples() []telemetry.RawSample {
	out := make([]telemetry.RawSample, 0, len(r.Samples))
	for _, s := range r.Samples {
		ts, _ := time.Parse(time.RFC3339, s.TS)
		raw := telemetry.RawSample{
			Timestamp:  ts,
			DistanceM:  s.DistanceM,
			ElevationM: s.ElevationM,
			SpeedMPS:   s.SpeedMPS,
		}
		if s.PowerW != nil {
			raw.PowerW = *s.PowerW
			raw.HasPower = true
		}
		if s.HeartRateBPM != nil {
			raw.HeartRateBPM = *s.HeartRateBPM
			raw.HasHeartRate = true
		}
		if s.CadenceRPM != nil {
			raw.CadenceRPM = *s.CadenceRPM
			raw.HasCadence = true
		}
		out = append(out, raw)
	}
	return out
}

// HandlePostRide handles POST /rides requests.
func (h *RidesHandler) HandlePostRide(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_ride"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req rideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	// Server-assigned id when the client submits without one.
	if strings.TrimSpace(req.RideID) == "" {
		req.RideID = uuid.NewString()
	}

	// Idempotency check - mark as seen first
	if h.deps.SeenAndRecord(r.Context(), req.RideID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", RideID: req.RideID, Duplicate: true})
		return
	}

	sub := model.Submission{
		RideID:      req.RideID,
		Samples:     req.rawSamples(),
		SubmittedAt: time.Now(),
	}

	// Try to enqueue for async processing
	if ok := h.deps.Enqueue(r.Context(), sub); !ok {
		// Rollback the "seen" status since enqueue failed
		h.deps.Unrecord(r.Context(), req.RideID)
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", RideID: req.RideID, Duplicate: false})
}
