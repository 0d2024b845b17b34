package api

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketScan/internal/breaker"
	"MarketScan/internal/budget"
	"MarketScan/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return log
}

func TestHealthReportsProviderBudgetsAndBreakers(t *testing.T) {
	now := func() time.Time { return time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC) }

	daily := budget.NewDailyTracker(map[string]int{"finnhub": 100}, now)
	for i := 0; i < 5; i++ {
		require.True(t, daily.Spend("finnhub", 1))
	}
	breakers := breaker.NewRegistry(breaker.WithClock(now))
	breakers.Trip("fmp")

	h := NewScanEchoHandler(testLogger(t), nil, daily, breakers)

	e := echo.New()
	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.Health(e.NewContext(req, rec)))

	var body struct {
		Data struct {
			Status    string `json:"status"`
			Providers map[string]struct {
				Used   int `json:"used"`
				Limit  int `json:"limit"`
				WarnAt int `json:"warn_at"`
			} `json:"providers"`
			BreakersOpen map[string]time.Time `json:"breakers_open"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "ok", body.Data.Status)
	fh, ok := body.Data.Providers["finnhub"]
	require.True(t, ok)
	assert.Equal(t, 5, fh.Used)
	assert.Equal(t, 100, fh.Limit)
	assert.Equal(t, 70, fh.WarnAt)
	assert.Contains(t, body.Data.BreakersOpen, "fmp")
}

func TestHealthWithoutTrackersStaysMinimal(t *testing.T) {
	h := NewScanEchoHandler(testLogger(t), nil, nil, nil)

	e := echo.New()
	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.Health(e.NewContext(req, rec)))

	var body struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Data, "status")
	assert.NotContains(t, body.Data, "providers")
	assert.NotContains(t, body.Data, "breakers_open")
}
