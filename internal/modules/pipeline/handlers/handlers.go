// Package handlers exposes batch runs and fired signals over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/tradesignal/internal/domain"
	"github.com/aristath/tradesignal/internal/modules/pipeline"
	"github.com/aristath/tradesignal/internal/modules/signals"
	"github.com/rs/zerolog"
)

// BatchRunner runs one scoring batch.
type BatchRunner interface {
	Run(ctx context.Context, strategyID string, symbols []string) (pipeline.BatchResult, error)
}

// SignalLister reads stored trade signals, newest first.
type SignalLister interface {
	List(ctx context.Context, symbol string, limit int) ([]signals.TradeSignal, error)
}

// RunRequest is the body of POST /api/pipeline/run. Symbols defaults to the configured universe.
type RunRequest struct {
	Strategy string   `json:"strategy"`
	Symbols  []string `json:"symbols"`
}

// Handler handles pipeline HTTP requests
type Handler struct {
	runner   BatchRunner
	signals  SignalLister
	universe []string
	log      zerolog.Logger
}

// NewHandler creates a new pipeline handler
func NewHandler(runner BatchRunner, signals SignalLister, universe []string, log zerolog.Logger) *Handler {
	return &Handler{
		runner:   runner,
		signals:  signals,
		universe: append([]string(nil), universe...),
		log:      log.With().Str("handler", "pipeline").Logger(),
	}
}

// HandleRun handles POST /api/pipeline/run
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	if req.Strategy == "" {
		req.Strategy = "default"
	}
	symbols := normalizeSymbols(req.Symbols)
	if len(symbols) == 0 {
		symbols = h.universe
	}
	if len(symbols) == 0 {
		h.writeError(w, http.StatusBadRequest, "No symbols to score")
		return
	}

	batch, err := h.runner.Run(r.Context(), req.Strategy, symbols)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownStrategy):
			h.writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, domain.ErrInvalidWeightConfiguration):
			h.writeError(w, http.StatusConflict, err.Error())
		default:
			h.log.Error().Err(err).Str("strategy", req.Strategy).Msg("Failed to run batch")
			h.writeError(w, http.StatusInternalServerError, "Failed to run batch")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": batch,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"count":     len(batch.Results),
		},
	})
}

// HandleListSignals handles GET /api/signals?symbol=&limit=
func (h *Handler) HandleListSignals(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))

	list, err := h.signals.List(r.Context(), symbol, limit)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to list signals")
		h.writeError(w, http.StatusInternalServerError, "Failed to list signals")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": list,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"count":     len(list),
		},
	})
}

func normalizeSymbols(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// writeError writes an error response
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
