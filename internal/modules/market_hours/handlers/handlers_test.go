package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aristath/tradesignal/internal/domain"
	"github.com/aristath/tradesignal/internal/modules/market_hours"
	"github.com/aristath/tradesignal/internal/modules/scoring"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStrategies map[string]scoring.Strategy

func (f fakeStrategies) Strategy(id string) (scoring.Strategy, error) {
	s, ok := f[id]
	if !ok {
		return scoring.Strategy{}, domain.ErrUnknownStrategy
	}
	return s, nil
}

func setupRouter() *chi.Mux {
	weekend := market_hours.Window{Timezone: "UTC", Days: []string{"sat"}, Open: "00:00", Close: "23:59"}
	gated := scoring.Strategy{ID: "gated", Thresholds: scoring.Thresholds{MarketHours: &weekend}}
	ungated := scoring.Strategy{ID: "ungated", Thresholds: scoring.DefaultThresholds()}

	h := NewHandler(market_hours.NewService(), fakeStrategies{"gated": gated, "ungated": ungated}, zerolog.Nop())
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func get(t *testing.T, r http.Handler, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp map[string]interface{}
	if w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestHandleGetStatus(t *testing.T) {
	r := setupRouter()

	w, resp := get(t, r, "/market-hours/status")
	require.Equal(t, http.StatusOK, w.Code)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, true, data["gated"])
	assert.Equal(t, "America/New_York", data["timezone"])

	w, resp = get(t, r, "/market-hours/status?strategy=ungated")
	require.Equal(t, http.StatusOK, w.Code)
	data = resp["data"].(map[string]interface{})
	assert.Equal(t, false, data["gated"])

	w, resp = get(t, r, "/market-hours/status?strategy=gated")
	require.Equal(t, http.StatusOK, w.Code)
	data = resp["data"].(map[string]interface{})
	assert.Equal(t, "UTC", data["timezone"])

	w, _ = get(t, r, "/market-hours/status?strategy=missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleGetHolidays(t *testing.T) {
	r := setupRouter()

	w, resp := get(t, r, "/market-hours/holidays?year=2024")
	require.Equal(t, http.StatusOK, w.Code)
	data := resp["data"].(map[string]interface{})
	holidays := data["holidays"].([]interface{})
	assert.Len(t, holidays, 10)
	assert.Contains(t, holidays, "2024-07-04")

	w, resp = get(t, r, "/market-hours/holidays?year=2024&strategy=gated")
	require.Equal(t, http.StatusOK, w.Code)
	data = resp["data"].(map[string]interface{})
	assert.Empty(t, data["holidays"])

	w, _ = get(t, r, "/market-hours/holidays?year=abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
