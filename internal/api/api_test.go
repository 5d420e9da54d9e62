package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WeeklyStockPrice/internal/apperr"
	"WeeklyStockPrice/internal/cache"
	"WeeklyStockPrice/internal/collector"
	"WeeklyStockPrice/internal/model"
	"WeeklyStockPrice/internal/query"
	"WeeklyStockPrice/internal/recorder"
	"WeeklyStockPrice/internal/window"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Wednesday noon.
var now = time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

var watchlist = []model.Company{
	{Symbol: "EA", Name: "Electronic Arts", Country: "US", Market: "NASDAQ"},
	{Symbol: "7974.T", Name: "Nintendo", Country: "JP", Market: "TSE"},
}

func newTestRouter(t *testing.T, opts Options) (*gin.Engine, *recorder.SQLiteRecorder) {
	t.Helper()
	clock := window.NewFixedClock(now)
	mock := collector.NewMockFetcher(100, clock.Now)
	mock.Unknown = map[model.Symbol]bool{"GONE": true}
	loader := cache.NewLoader(cache.NewMemoryBackend(time.Minute), clock)
	svc := query.NewService(mock, loader, window.NewWindower(clock, 1), query.DefaultConfig())

	rec, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })
	return NewRouter(svc, rec, watchlist, opts), rec
}

func do(r http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t, Options{})
	w := do(r, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "mock", body["source"])
	assert.Contains(t, body, "cache")

	assert.Equal(t, http.StatusOK, do(r, http.MethodHead, "/health").Code)
}

func TestPrice(t *testing.T) {
	r, _ := newTestRouter(t, Options{})

	w := do(r, http.MethodGet, "/api/v1/stocks/ea/price")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "EA", body["symbol"])
	assert.Equal(t, "100", body["price"])
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w = do(r, http.MethodGet, "/api/v1/stocks/GONE/price")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode(t, w)["error"])

	w = do(r, http.MethodGet, "/api/v1/stocks/bad!/price")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_input", decode(t, w)["error"])
}

func TestTrend(t *testing.T) {
	r, _ := newTestRouter(t, Options{})

	w := do(r, http.MethodGet, "/api/v1/stocks/EA/trend?period=3m")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "EA", body["symbol"])
	assert.Equal(t, "3m", body["period"])
	assert.Equal(t, "up", body["direction"])
	assert.Equal(t, "100", body["endPrice"])
	assert.Greater(t, body["sampleCount"], 50.0)

	w = do(r, http.MethodGet, "/api/v1/stocks/EA/trend")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1m", decode(t, w)["period"])

	w = do(r, http.MethodGet, "/api/v1/stocks/EA/trend?period=2y")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalysis(t *testing.T) {
	r, _ := newTestRouter(t, Options{})

	w := do(r, http.MethodGet, "/api/v1/stocks/EA/analysis?windows=50,5,5&period=1m")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "1m", body["period"])
	assert.Equal(t, []any{5.0, 50.0}, body["windows"])
	mas := body["movingAverages"].(map[string]any)
	assert.Contains(t, mas, "5")
	assert.NotContains(t, mas, "50")

	w = do(r, http.MethodGet, "/api/v1/stocks/EA/analysis")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decode(t, w)
	assert.Equal(t, "1y", body["period"])
	assert.Equal(t, []any{5.0, 20.0, 50.0}, body["windows"])

	for _, q := range []string{"windows=a", "windows=0", "windows=5,-1", "period=forever"} {
		w = do(r, http.MethodGet, "/api/v1/stocks/EA/analysis?"+q)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestInvalidate(t *testing.T) {
	r, _ := newTestRouter(t, Options{})
	require.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/v1/stocks/EA/price").Code)
	require.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/v1/stocks/EA/trend").Code)

	w := do(r, http.MethodDelete, "/api/v1/stocks/EA/cache")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2.0, decode(t, w)["invalidated"])
}

func TestCompanies(t *testing.T) {
	r, _ := newTestRouter(t, Options{})

	body := decode(t, do(r, http.MethodGet, "/api/v1/companies"))
	assert.Equal(t, 2.0, body["total"])

	body = decode(t, do(r, http.MethodGet, "/api/v1/companies?country=jp"))
	assert.Equal(t, 1.0, body["total"])
	companies := body["companies"].([]any)
	assert.Equal(t, "7974.T", companies[0].(map[string]any)["symbol"])
}

func TestWeekly(t *testing.T) {
	r, rec := newTestRouter(t, Options{})

	w := do(r, http.MethodGet, "/api/v1/weekly/top-gainers")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	var snaps []model.WeeklySnapshot
	for i, rate := range []string{"5.5", "-2.25", "1"} {
		snaps = append(snaps, model.WeeklySnapshot{
			Symbol:        model.Symbol(fmt.Sprintf("S%d", i)),
			ThisFriday:    "2024-05-10",
			LastFriday:    "2024-05-03",
			Close:         decimal.NewFromInt(10),
			LastWeekClose: decimal.NewFromInt(10),
			ChangeRate:    decimal.RequireFromString(rate),
			CollectedAt:   now,
		})
	}
	require.NoError(t, rec.RecordWeekly(context.Background(), snaps))

	var gainers []map[string]any
	w = do(r, http.MethodGet, "/api/v1/weekly/top-gainers?limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &gainers))
	require.Len(t, gainers, 1)
	assert.Equal(t, "S0", gainers[0]["symbol"])

	var losers []map[string]any
	w = do(r, http.MethodGet, "/api/v1/weekly/top-losers")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &losers))
	require.Len(t, losers, 1)
	assert.Equal(t, "S1", losers[0]["symbol"])

	body := decode(t, do(r, http.MethodGet, "/api/v1/weekly/stats"))
	assert.Equal(t, 3.0, body["totalCompanies"])
	assert.Equal(t, 2.0, body["positiveChange"])

	var latest []map[string]any
	w = do(r, http.MethodGet, "/api/v1/weekly/latest")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &latest))
	assert.Len(t, latest, 3)

	for _, q := range []string{"limit=0", "limit=101", "limit=ten"} {
		assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/v1/weekly/top-gainers?"+q).Code, q)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{apperr.NotFound("X"), http.StatusNotFound, "not_found"},
		{fmt.Errorf("%w: bad", apperr.ErrInvalidInput), http.StatusBadRequest, "invalid_input"},
		{apperr.Insufficient("trend", 2, 0), http.StatusUnprocessableEntity, "insufficient_data"},
		{apperr.Malformed("price %d", -1), http.StatusBadGateway, "malformed_data"},
		{apperr.Provider("yahoo", errors.New("timeout")), http.StatusServiceUnavailable, "provider_error"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			r := gin.New()
			r.Use(RequestID())
			r.GET("/x", func(c *gin.Context) { abortWithError(c, tt.err) })

			w := do(r, http.MethodGet, "/x")
			assert.Equal(t, tt.status, w.Code)
			body := decode(t, w)
			assert.Equal(t, tt.code, body["error"])
			assert.Equal(t, w.Header().Get(RequestIDHeader), body["requestId"])
		})
	}

	r := gin.New()
	r.GET("/x", func(c *gin.Context) { abortWithError(c, context.Canceled) })
	assert.Equal(t, statusClientClosed, do(r, http.MethodGet, "/x").Code)
}

func TestRequestIDIsPropagated(t *testing.T) {
	r, _ := newTestRouter(t, Options{})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestRateLimiter(t *testing.T) {
	r, _ := newTestRouter(t, Options{RateLimit: 0.001, RateBurst: 2})

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/v1/companies").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/v1/companies").Code)
	w := do(r, http.MethodGet, "/api/v1/companies")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// Health is outside the limited group.
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health").Code)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), RecoveryMiddleware)
	r.GET("/panic", func(*gin.Context) { panic("boom") })

	w := do(r, http.MethodGet, "/panic")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal_error", decode(t, w)["error"])
}
