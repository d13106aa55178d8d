package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aristath/tradesignal/internal/domain"
	"github.com/aristath/tradesignal/internal/modules/pipeline"
	"github.com/aristath/tradesignal/internal/modules/signals"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	strategy string
	symbols  []string
	err      error
}

func (f *fakeRunner) Run(_ context.Context, strategyID string, symbols []string) (pipeline.BatchResult, error) {
	f.strategy = strategyID
	f.symbols = symbols
	if f.err != nil {
		return pipeline.BatchResult{}, f.err
	}
	res := pipeline.BatchResult{StrategyID: strategyID}
	for _, s := range symbols {
		res.Results = append(res.Results, pipeline.SymbolResult{Symbol: s})
	}
	return res, nil
}

type fakeSignals struct {
	symbol string
	limit  int
}

func (f *fakeSignals) List(_ context.Context, symbol string, limit int) ([]signals.TradeSignal, error) {
	f.symbol = symbol
	f.limit = limit
	return []signals.TradeSignal{{ID: "s1", Symbol: "AAPL", Action: domain.ActionBuy}}, nil
}

func newRouter(runner *fakeRunner, list *fakeSignals) *chi.Mux {
	h := NewHandler(runner, list, []string{"AAPL", "MSFT"}, zerolog.Nop())
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestHandleRun_DefaultsToUniverse(t *testing.T) {
	runner := &fakeRunner{}
	r := newRouter(runner, &fakeSignals{})

	req := httptest.NewRequest(http.MethodPost, "/pipeline/run", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "default", runner.strategy)
	assert.Equal(t, []string{"AAPL", "MSFT"}, runner.symbols)

	var body struct {
		Data     pipeline.BatchResult   `json:"data"`
		Metadata map[string]interface{} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data.Results, 2)
	assert.Equal(t, 2.0, body.Metadata["count"])
}

func TestHandleRun_NormalizesSymbols(t *testing.T) {
	runner := &fakeRunner{}
	r := newRouter(runner, &fakeSignals{})

	req := httptest.NewRequest(http.MethodPost, "/pipeline/run",
		strings.NewReader(`{"strategy":"momentum","symbols":[" nvda","NVDA","",  "tsla"]}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "momentum", runner.strategy)
	assert.Equal(t, []string{"NVDA", "TSLA"}, runner.symbols)
}

func TestHandleRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		body string
		want int
	}{
		{"unknown strategy", fmt.Errorf("failed: %w", domain.ErrUnknownStrategy), `{}`, http.StatusNotFound},
		{"bad weights", &domain.InvalidWeightConfigurationError{Owner: "default", Sum: 0.8}, `{}`, http.StatusConflict},
		{"other", fmt.Errorf("boom"), `{}`, http.StatusInternalServerError},
		{"bad body", nil, `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(&fakeRunner{err: tt.err}, &fakeSignals{})
			req := httptest.NewRequest(http.MethodPost, "/pipeline/run", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestHandleListSignals(t *testing.T) {
	list := &fakeSignals{}
	r := newRouter(&fakeRunner{}, list)

	req := httptest.NewRequest(http.MethodGet, "/signals?symbol=aapl&limit=5", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "AAPL", list.symbol)
	assert.Equal(t, 5, list.limit)
	assert.Contains(t, rec.Body.String(), `"id":"s1"`)

	req = httptest.NewRequest(http.MethodGet, "/signals?limit=-1", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
