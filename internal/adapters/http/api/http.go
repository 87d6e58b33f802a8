// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/grimpeur/internal/adapters/repository"
	"github.com/okian/grimpeur/internal/domain/analysis"
	"github.com/okian/grimpeur/internal/domain/dedupe"
	"github.com/okian/grimpeur/internal/domain/model"
	"github.com/okian/grimpeur/internal/domain/query"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper

	// Enqueue pushes a submission for async analysis. Returns false on backpressure.
	Enqueue(ctx context.Context, sub model.Submission) bool

	// Read operations expose completed analyses.
	Analysis(ctx context.Context, rideID string) (*analysis.Analysis, error)
	Query(ctx context.Context, rideID string, req query.Request) (query.Response, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	ridesHandler  *RidesHandler
	rideHandler   *RideResourceHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		ridesHandler:  NewRidesHandler(deps),
		rideHandler:   NewRideResourceHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/rides", MetricsMiddleware(s.ridesHandler.HandlePostRide, "rides"))
	mux.HandleFunc("/rides/", MetricsMiddleware(s.rideHandler.HandleRide, "ride"))
}

type ackResponse struct {
	Status    string `json:"status"`
	RideID    string `json:"ride_id"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// isNotFound allows the API to translate upstream not-found errors to 404.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}

// ridePath splits "/rides/{id}" and "/rides/{id}/{sub}" into id and subresource.
func ridePath(path string) (rideID, sub string, ok bool) {
	trimmed := strings.TrimPrefix(path, "/rides/")
	if trimmed == "" || trimmed == path {
		return "", "", false
	}
	parts := strings.Split(strings.TrimSuffix(trimmed, "/"), "/")
	switch len(parts) {
	case 1:
		return parts[0], "", parts[0] != ""
	case 2:
		return parts[0], parts[1], parts[0] != "" && parts[1] != ""
	default:
		return "", "", false
	}
}
