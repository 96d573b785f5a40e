package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/oddsflow/swarm/infrastructure/observability"
	"github.com/oddsflow/swarm/internal/domain"
	"github.com/oddsflow/swarm/internal/ports"
	"github.com/oddsflow/swarm/internal/swarm"
)

// server wires the HTTP API to the orchestrator and settler.
type server struct {
	orchestrator *swarm.Orchestrator
	settler      *swarm.Settler
	predictions  ports.PredictionStore
	leaderboard  *swarm.LeaderboardReader
	metrics      *observability.PrometheusMetrics
	logger       *zap.Logger

	// cacheTTL is the configured result-cache TTL applied to every
	// analyze request.
	cacheTTL time.Duration
}

// routes builds the service router.
func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Post("/predictions/{id}/settle", s.handleSettle)
	})

	return r
}

// analyzeRequest is the POST /v1/analyze body: the event plus per-request
// orchestration options.
type analyzeRequest struct {
	domain.AnalysisRequest

	// AgentIDs restricts the fan-out to a subset of registered agents.
	AgentIDs []string `json:"agent_ids,omitempty"`

	// Sequential invokes agents one at a time instead of concurrently.
	Sequential bool `json:"sequential,omitempty"`

	// SkipCache bypasses the result cache for this request.
	SkipCache bool `json:"skip_cache,omitempty"`

	// Record persists the result as a pending prediction for later
	// settlement.
	Record bool `json:"record,omitempty"`
}

type analyzeResponse struct {
	domain.SwarmResult

	// PredictionID is set when the result was recorded for settlement.
	PredictionID *uuid.UUID `json:"prediction_id,omitempty"`
}

func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	opts := swarm.DefaultOptions()
	opts.AgentIDs = req.AgentIDs
	opts.Sequential = req.Sequential
	opts.UseCache = !req.SkipCache
	opts.CacheTTL = s.cacheTTL

	result, err := s.orchestrator.Analyze(r.Context(), req.AnalysisRequest, opts)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidRequest),
			errors.Is(err, domain.ErrUnknownAgent),
			errors.Is(err, domain.ErrNoAgentsSelected):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Error("analyze failed", zap.String("event_id", req.EventID), zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "analysis failed")
		}
		return
	}

	resp := analyzeResponse{SwarmResult: *result}
	if req.Record {
		record := domain.NewPredictionRecord(*result, time.Now().UTC())
		if err := s.predictions.Create(r.Context(), &record); err != nil {
			s.logger.Error("failed to record prediction",
				zap.String("event_id", req.EventID), zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "failed to record prediction")
			return
		}
		resp.PredictionID = &record.ID
	}

	s.writeJSON(w, http.StatusOK, resp)
}

type settleRequest struct {
	Outcome domain.Outcome `json:"outcome"`
}

func (s *server) handleSettle(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid prediction id")
		return
	}

	var req settleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err = s.settler.SettlePrediction(r.Context(), id, req.Outcome)
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "settled"})
	case errors.Is(err, domain.ErrInvalidOutcome):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrPredictionNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrAlreadySettled):
		s.writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error("settlement failed", zap.String("prediction_id", id.String()), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "settlement failed")
	}
}

func (s *server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := s.leaderboard.Snapshot(r.Context())
	if err != nil {
		s.logger.Error("leaderboard read failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "leaderboard unavailable")
		return
	}

	entries := make([]domain.LeaderboardEntry, 0, len(board))
	for _, entry := range board {
		entries = append(entries, entry)
	}
	sortLeaderboard(entries)

	s.writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// sortLeaderboard orders entries by win rate, then total predictions, then
// agent id for a stable display order.
func sortLeaderboard(entries []domain.LeaderboardEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.WinRate != b.WinRate {
			return a.WinRate > b.WinRate
		}
		if a.TotalPredictions != b.TotalPredictions {
			return a.TotalPredictions > b.TotalPredictions
		}
		return a.AgentID < b.AgentID
	})
}
