// Package handlers provides HTTP handlers for position risk assessments.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/tradesignal/internal/domain"
	"github.com/aristath/tradesignal/internal/modules/risk"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles risk assessment HTTP requests
type Handler struct {
	service *risk.Service
	log     zerolog.Logger
}

// NewHandler creates a new risk handler
func NewHandler(service *risk.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "risk").Logger(),
	}
}

// AssessRequest is the body of POST /api/risk/assess
type AssessRequest struct {
	Position domain.Position      `json:"position"`
	Context  domain.MarketContext `json:"context"`
}

// HandleAssess handles POST /api/risk/assess
func (h *Handler) HandleAssess(w http.ResponseWriter, r *http.Request) {
	var req AssessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Position.Symbol == "" {
		h.writeError(w, http.StatusBadRequest, "position.symbol is required")
		return
	}

	assessment, err := h.service.Assess(r.Context(), req.Position, req.Context)
	if err != nil {
		// The assessment itself is valid; only storing it failed.
		h.log.Error().Err(err).Str("symbol", req.Position.Symbol).Msg("Failed to store risk assessment")
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": assessment,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"stored":    err == nil,
		},
	})
}

// HandleListAssessments handles GET /api/risk/assessments/{symbol}
func (h *Handler) HandleListAssessments(w http.ResponseWriter, r *http.Request) {
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

	assessments, err := h.service.History(r.Context(), symbol, limit)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to list risk assessments")
		h.writeError(w, http.StatusInternalServerError, "Failed to list risk assessments")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": assessments,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"count":     len(assessments),
		},
	})
}

// HandleGetModel handles GET /api/risk/model
func (h *Handler) HandleGetModel(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": h.service.Assessor().Model(),
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
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
