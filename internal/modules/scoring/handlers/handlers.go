// Package handlers provides HTTP handlers for directives, strategies and score history.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/tradesignal/internal/domain"
	"github.com/aristath/tradesignal/internal/modules/scoring"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// ScoreReader reads stored composite scores.
type ScoreReader interface {
	Latest(ctx context.Context, symbol, strategyID string) (*scoring.CompositeScore, error)
	History(ctx context.Context, symbol, strategyID string, limit int) ([]scoring.CompositeScore, error)
}

// Handler handles scoring configuration and history HTTP requests
type Handler struct {
	service *scoring.Service
	scores  ScoreReader
	log     zerolog.Logger
}

// NewHandler creates a new scoring handler
func NewHandler(service *scoring.Service, scores ScoreReader, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		scores:  scores,
		log:     log.With().Str("handler", "scoring").Logger(),
	}
}

// HandleListDirectives handles GET /api/directives
func (h *Handler) HandleListDirectives(w http.ResponseWriter, r *http.Request) {
	directives := h.service.Registry().Directives()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": directives,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"count":     len(directives),
		},
	})
}

// HandleEnableDirective handles POST /api/directives/{id}/enable
func (h *Handler) HandleEnableDirective(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, true)
}

// HandleDisableDirective handles POST /api/directives/{id}/disable
func (h *Handler) HandleDisableDirective(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, false)
}

func (h *Handler) setEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	id := chi.URLParam(r, "id")
	if err := h.service.SetEnabled(r.Context(), id, enabled); err != nil {
		h.writeServiceError(w, err, "Failed to change directive state")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"id":      id,
			"enabled": enabled,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleListStrategies handles GET /api/strategies
func (h *Handler) HandleListStrategies(w http.ResponseWriter, r *http.Request) {
	strategies := h.service.Registry().Strategies()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": strategies,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"count":     len(strategies),
		},
	})
}

// HandleGetStrategy handles GET /api/strategies/{id}
func (h *Handler) HandleGetStrategy(w http.ResponseWriter, r *http.Request) {
	strategy, err := h.service.Registry().Strategy(chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err, "Failed to get strategy")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": strategy,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetSnapshot handles GET /api/strategies/{id}/snapshot
// Returns the directives and effective weights a scoring run would use right now.
func (h *Handler) HandleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.Registry().Snapshot(chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err, "Failed to snapshot strategy")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"strategy_id": snapshot.StrategyID,
			"version":     snapshot.Version,
			"weights":     snapshot.Weights(),
			"thresholds":  snapshot.Thresholds,
			"taken_at":    snapshot.TakenAt,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// WeightsRequest is the body of PUT /api/strategies/{id}/weights
type WeightsRequest struct {
	Weights map[string]float64 `json:"weights"`
}

// HandleConfigureWeights handles PUT /api/strategies/{id}/weights
// Weights are validated as submitted and never normalized.
func (h *Handler) HandleConfigureWeights(w http.ResponseWriter, r *http.Request) {
	var req WeightsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	strategy, err := h.service.ConfigureWeights(r.Context(), chi.URLParam(r, "id"), req.Weights)
	if err != nil {
		h.writeServiceError(w, err, "Failed to configure weights")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": strategy,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleConfigureThresholds handles PUT /api/strategies/{id}/thresholds
func (h *Handler) HandleConfigureThresholds(w http.ResponseWriter, r *http.Request) {
	var thresholds scoring.Thresholds
	if err := json.NewDecoder(r.Body).Decode(&thresholds); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	strategy, err := h.service.ConfigureThresholds(r.Context(), chi.URLParam(r, "id"), thresholds)
	if err != nil {
		h.writeServiceError(w, err, "Failed to configure thresholds")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": strategy,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleLatestScore handles GET /api/scores/{symbol}/latest?strategy=
func (h *Handler) HandleLatestScore(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	score, err := h.scores.Latest(r.Context(), symbol, strategyParam(r))
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get latest score")
		h.writeError(w, http.StatusInternalServerError, "Failed to get latest score")
		return
	}
	if score == nil {
		h.writeError(w, http.StatusNotFound, "No score recorded for "+symbol)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": score,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleScoreHistory handles GET /api/scores/{symbol}/history?strategy=&limit=
func (h *Handler) HandleScoreHistory(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	scores, err := h.scores.History(r.Context(), symbol, strategyParam(r), limit)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get score history")
		h.writeError(w, http.StatusInternalServerError, "Failed to get score history")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": scores,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"count":     len(scores),
		},
	})
}

func strategyParam(r *http.Request) string {
	if s := r.URL.Query().Get("strategy"); s != "" {
		return s
	}
	return "default"
}

// writeServiceError maps domain errors to status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, domain.ErrUnknownDirective), errors.Is(err, domain.ErrUnknownStrategy):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidWeightConfiguration):
		var wErr *domain.InvalidWeightConfigurationError
		if errors.As(err, &wErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error": wErr.Error(),
				"sum":   wErr.Sum,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg(message)
		h.writeError(w, http.StatusBadRequest, err.Error())
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
