package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aristath/tradesignal/internal/modules/scoring"
	"github.com/aristath/tradesignal/internal/modules/scoring/directives"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) (*chi.Mux, *scoring.MemoryHistory) {
	t.Helper()
	logger := zerolog.Nop()

	registry := scoring.NewRegistry(directives.Builtins(), logger)
	require.NoError(t, registry.RegisterBuiltins(directives.IDRSI, directives.IDMACD))
	service := scoring.NewService(registry, nil, nil, logger)
	_, err := service.ConfigureWeights(context.Background(), "default", map[string]float64{
		directives.IDRSI:  0.6,
		directives.IDMACD: 0.4,
	})
	require.NoError(t, err)

	history := scoring.NewMemoryHistory()
	router := chi.NewRouter()
	NewHandler(service, history, logger).RegisterRoutes(router)
	return router, history
}

func do(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleListDirectives(t *testing.T) {
	router, _ := setupRouter(t)

	w := do(t, router, http.MethodGet, "/directives/", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []scoring.DirectiveInfo `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Data, 2)
	for _, d := range resp.Data {
		assert.True(t, d.Enabled)
	}
}

func TestHandleDisableDirective(t *testing.T) {
	router, _ := setupRouter(t)

	w := do(t, router, http.MethodPost, "/directives/"+directives.IDMACD+"/disable", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// The strategy still weights the disabled directive, so it cannot be snapshotted.
	w = do(t, router, http.MethodGet, "/strategies/default/snapshot", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodPost, "/directives/"+directives.IDMACD+"/enable", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, router, http.MethodGet, "/strategies/default/snapshot", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodPost, "/directives/nope/disable", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleConfigureWeights(t *testing.T) {
	router, _ := setupRouter(t)

	w := do(t, router, http.MethodPut, "/strategies/default/weights", WeightsRequest{
		Weights: map[string]float64{directives.IDRSI: 0.7, directives.IDMACD: 0.5},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var errResp struct {
		Error string  `json:"error"`
		Sum   float64 `json:"sum"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&errResp))
	assert.InDelta(t, 1.2, errResp.Sum, 1e-9)

	w = do(t, router, http.MethodPut, "/strategies/default/weights", WeightsRequest{
		Weights: map[string]float64{directives.IDRSI: 0.5, directives.IDMACD: 0.5},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var ok struct {
		Data scoring.Strategy `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&ok))
	assert.Equal(t, 2, ok.Data.Version)
	assert.Equal(t, 0.5, ok.Data.Weights[directives.IDRSI])

	w = do(t, router, http.MethodPut, "/strategies/default/weights", WeightsRequest{
		Weights: map[string]float64{"unknown": 1},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "unregistered directive")
}

func TestHandleConfigureThresholds(t *testing.T) {
	router, _ := setupRouter(t)

	w := do(t, router, http.MethodPut, "/strategies/default/thresholds", scoring.Thresholds{ScoreThreshold: 80, MinChange: 5})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodPut, "/strategies/default/thresholds", scoring.Thresholds{ScoreThreshold: 120})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodPut, "/strategies/missing/thresholds", scoring.DefaultThresholds())
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodGet, "/strategies/default", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data scoring.Strategy `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 80.0, resp.Data.Thresholds.ScoreThreshold)
}

func TestHandleScores(t *testing.T) {
	router, history := setupRouter(t)

	w := do(t, router, http.MethodGet, "/scores/AAPL/latest", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	now := time.Now().UTC()
	ctx := context.Background()
	require.NoError(t, history.Save(ctx, scoring.CompositeScore{ID: "1", Symbol: "AAPL", StrategyID: "default", Score: 60, Timestamp: now}))
	require.NoError(t, history.Save(ctx, scoring.CompositeScore{ID: "2", Symbol: "AAPL", StrategyID: "default", Score: 72, Timestamp: now.Add(time.Second)}))

	w = do(t, router, http.MethodGet, "/scores/AAPL/latest?strategy=default", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var latest struct {
		Data scoring.CompositeScore `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&latest))
	assert.Equal(t, "2", latest.Data.ID)

	w = do(t, router, http.MethodGet, "/scores/AAPL/history?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var hist struct {
		Data []scoring.CompositeScore `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&hist))
	require.Len(t, hist.Data, 1)
	assert.Equal(t, "2", hist.Data[0].ID)

	w = do(t, router, http.MethodGet, "/scores/AAPL/history?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
