// Package handlers provides HTTP handlers for market hours operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/tradesignal/internal/domain"
	"github.com/aristath/tradesignal/internal/modules/market_hours"
	"github.com/aristath/tradesignal/internal/modules/scoring"
	"github.com/rs/zerolog"
)

// StrategyLookup resolves a strategy by id.
type StrategyLookup interface {
	Strategy(id string) (scoring.Strategy, error)
}

// Handler handles market hours HTTP requests
type Handler struct {
	service    *market_hours.Service
	strategies StrategyLookup
	log        zerolog.Logger
}

// NewHandler creates a new market hours handler
func NewHandler(
	service *market_hours.Service,
	strategies StrategyLookup,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service:    service,
		strategies: strategies,
		log:        log.With().Str("handler", "market_hours").Logger(),
	}
}

// window returns the strategy's window when ?strategy= is given, the default window otherwise.
// ok is false when the strategy exists but has no market hours gate.
func (h *Handler) window(r *http.Request) (w market_hours.Window, ok bool, err error) {
	id := r.URL.Query().Get("strategy")
	if id == "" {
		return market_hours.DefaultWindow(), true, nil
	}
	s, err := h.strategies.Strategy(id)
	if err != nil {
		return market_hours.Window{}, false, err
	}
	if s.Thresholds.MarketHours == nil {
		return market_hours.Window{}, false, nil
	}
	return *s.Thresholds.MarketHours, true, nil
}

// HandleGetStatus handles GET /api/market-hours/status
// Returns whether the trading window is open now
func (h *Handler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	window, ok, err := h.window(r)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	if !ok {
		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"data": map[string]interface{}{
				"open":  true,
				"gated": false,
			},
			"metadata": map[string]interface{}{
				"timestamp": time.Now().Format(time.RFC3339),
			},
		})
		return
	}

	status, err := h.service.Status(window, time.Now())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get market status")
		http.Error(w, "Invalid market hours window", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"open":      status.Open,
			"gated":     true,
			"reason":    status.Reason,
			"timezone":  status.Timezone,
			"opens_at":  status.OpensAt.Format(time.RFC3339),
			"closes_at": status.ClosesAt.Format(time.RFC3339),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetHolidays handles GET /api/market-hours/holidays
// Returns the holidays observed by the window for ?year= (default current year)
func (h *Handler) HandleGetHolidays(w http.ResponseWriter, r *http.Request) {
	year := time.Now().Year()
	if v := r.URL.Query().Get("year"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1900 || parsed > 2200 {
			http.Error(w, "Invalid year", http.StatusBadRequest)
			return
		}
		year = parsed
	}

	window, ok, err := h.window(r)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}

	dates := []string{}
	if ok {
		holidays, err := h.service.Holidays(window, year)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to get holidays")
			http.Error(w, "Invalid market hours window", http.StatusInternalServerError)
			return
		}
		for _, d := range holidays {
			dates = append(dates, d.Format("2006-01-02"))
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"year":     year,
			"holidays": dates,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrUnknownStrategy) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	h.log.Error().Err(err).Msg("Failed to look up strategy")
	http.Error(w, "Failed to look up strategy", http.StatusInternalServerError)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
