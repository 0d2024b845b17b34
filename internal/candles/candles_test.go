package candles

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketScan/internal/breaker"
	"MarketScan/internal/budget"
	"MarketScan/internal/domain/models"
	"MarketScan/internal/domain/repository"
	"MarketScan/pkg/cache"
	"MarketScan/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordProviderCall(provider, outcome string) {}
func (nopMetrics) RecordCacheHit(category string)              {}
func (nopMetrics) RecordBudgetExhausted(phase string)          {}
func (nopMetrics) RecordScan(kind string, seconds float64)     {}
func (nopMetrics) RecordStageCount(stage string, n int)        {}

// fakeBars is a scripted BarProvider: each Fetch consumes the next
// scripted outcome, repeating the last one once exhausted.
type fakeBars struct {
	name  string
	bars  [][]models.Bar
	errs  []error
	calls int
}

func (f *fakeBars) Name() string { return f.name }

func (f *fakeBars) FetchBars(ctx context.Context, symbol string, days int) ([]models.Bar, error) {
	i := f.calls
	if i >= len(f.errs) {
		i = len(f.errs) - 1
	}
	f.calls++
	return f.bars[i], f.errs[i]
}

func scriptedOK(name string, n int) *fakeBars {
	return &fakeBars{name: name, bars: [][]models.Bar{series(n)}, errs: []error{nil}}
}

func scriptedErr(name string, err error) *fakeBars {
	return &fakeBars{name: name, bars: [][]models.Bar{nil}, errs: []error{err}}
}

func series(n int) []models.Bar {
	bars := make([]models.Bar, n)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		price := 100.0 + float64(i)
		bars[i] = models.Bar{
			Timestamp: base.AddDate(0, 0, i),
			Open:      price,
			High:      price * 1.01,
			Low:       price * 0.99,
			Close:     price,
			Volume:    1_000_000,
		}
	}
	return bars
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return log
}

func newTestService(t *testing.T, chain ...repository.BarProvider) (*Service, *breaker.Registry, *budget.DailyTracker) {
	t.Helper()
	now := func() time.Time { return time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC) }
	breakers := breaker.NewRegistry(breaker.WithClock(now))
	daily := budget.NewDailyTracker(nil, now)
	svc := NewService(cache.NewMemoryCache(), chain, breakers, daily, nopMetrics{}, testLogger(t), time.Minute)
	return svc, breakers, daily
}

func TestFetchFirstProviderWins(t *testing.T) {
	second := scriptedOK("polygon", 60)
	svc, _, _ := newTestService(t, scriptedOK("finnhub", 60), second)

	bars, source, err := svc.Fetch(context.Background(), "AAPL", 90, nil, NewStats())
	require.NoError(t, err)
	assert.Equal(t, "finnhub", source)
	assert.Len(t, bars, 60)
	assert.Zero(t, second.calls)
}

func TestFetchCachesAndServesSecondCall(t *testing.T) {
	primary := scriptedOK("finnhub", 60)
	svc, _, _ := newTestService(t, primary)
	stats := NewStats()

	_, source, err := svc.Fetch(context.Background(), "AAPL", 90, nil, stats)
	require.NoError(t, err)
	assert.Equal(t, "finnhub", source)

	bars, source, err := svc.Fetch(context.Background(), "AAPL", 90, nil, stats)
	require.NoError(t, err)
	assert.Equal(t, "cache", source)
	assert.Len(t, bars, 60)
	assert.Equal(t, 1, primary.calls)

	health := stats.Health()
	assert.Equal(t, 1, health.CacheHits)
	assert.Equal(t, "finnhub", health.CandlesSource)
}

func TestFetchAuthFailureTripsBreaker(t *testing.T) {
	bad := scriptedErr("polygon", models.ErrAuthFailure)
	good := scriptedOK("finnhub", 45)
	svc, breakers, _ := newTestService(t, bad, good)
	stats := NewStats()

	bars, source, err := svc.Fetch(context.Background(), "TSLA", 90, nil, stats)
	require.NoError(t, err)
	assert.Equal(t, "finnhub", source)
	assert.Len(t, bars, 45)

	assert.False(t, breakers.Allow("polygon"))
	health := stats.Health()
	assert.True(t, health.AuthErrors)
	assert.Equal(t, 1, health.Providers["polygon"].Failures)

	// second symbol skips the tripped provider entirely
	_, source, err = svc.Fetch(context.Background(), "NVDA", 90, nil, stats)
	require.NoError(t, err)
	assert.Equal(t, "finnhub", source)
	assert.Equal(t, 1, bad.calls)
}

func TestFetchRateLimitFallsThrough(t *testing.T) {
	limited := scriptedErr("alphavantage", models.ErrRateLimited)
	good := scriptedOK("polygon", 30)
	svc, breakers, _ := newTestService(t, limited, good)
	stats := NewStats()

	_, source, err := svc.Fetch(context.Background(), "AMD", 90, nil, stats)
	require.NoError(t, err)
	assert.Equal(t, "polygon", source)

	// rate limits do not trip the breaker
	assert.True(t, breakers.Allow("alphavantage"))
	health := stats.Health()
	assert.True(t, health.RateLimited)
	assert.False(t, health.AuthErrors)
	assert.Equal(t, 1, health.Providers["alphavantage"].RateLimit)
}

func TestFetchShortSeriesFallsThrough(t *testing.T) {
	thin := scriptedOK("finnhub", 5)
	good := scriptedOK("polygon", 40)
	svc, _, _ := newTestService(t, thin, good)
	stats := NewStats()

	bars, source, err := svc.Fetch(context.Background(), "IONQ", 90, nil, stats)
	require.NoError(t, err)
	assert.Equal(t, "polygon", source)
	assert.Len(t, bars, 40)
	assert.Equal(t, 1, stats.Health().Providers["finnhub"].Failures)
}

func TestFetchAllProvidersFail(t *testing.T) {
	svc, _, _ := newTestService(t,
		scriptedErr("finnhub", models.ErrUnavailable),
		scriptedErr("polygon", models.ErrUnavailable),
	)

	_, _, err := svc.Fetch(context.Background(), "GME", 90, nil, NewStats())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUnavailable)
}

func TestFetchBudgetExhausted(t *testing.T) {
	primary := scriptedOK("finnhub", 60)
	svc, _, _ := newTestService(t, primary)
	stats := NewStats()

	b := budget.New(1, time.Hour)
	b.Tick(budget.OpScreener) // 3 points, over the 1-point ceiling

	_, _, err := svc.Fetch(context.Background(), "AAPL", 90, b, stats)
	require.Error(t, err)
	assert.ErrorIs(t, err, budget.ErrExhausted)
	assert.Zero(t, primary.calls)
	assert.Equal(t, 1, stats.Health().Blocked)
}

func TestFetchBudgetExhaustedStillServesCache(t *testing.T) {
	primary := scriptedOK("finnhub", 60)
	svc, _, _ := newTestService(t, primary)
	stats := NewStats()

	_, _, err := svc.Fetch(context.Background(), "AAPL", 90, nil, stats)
	require.NoError(t, err)

	b := budget.New(1, time.Hour)
	b.Tick(budget.OpScreener)

	bars, source, err := svc.Fetch(context.Background(), "AAPL", 90, b, stats)
	require.NoError(t, err)
	assert.Equal(t, "cache", source)
	assert.Len(t, bars, 60)
}

func TestFetchDailyLimitBlocks(t *testing.T) {
	primary := scriptedOK("alphavantage", 60)
	good := scriptedOK("polygon", 30)
	svc, _, daily := newTestService(t, primary, good)
	stats := NewStats()

	// burn alphavantage past its 90% hard stop (25/day)
	for i := 0; i < 23; i++ {
		daily.Spend("alphavantage", 1)
	}

	_, source, err := svc.Fetch(context.Background(), "AAPL", 90, nil, stats)
	require.NoError(t, err)
	assert.Equal(t, "polygon", source)
	assert.Zero(t, primary.calls)
	assert.Equal(t, 1, stats.Health().Blocked)
}

func TestHealthEmptySource(t *testing.T) {
	health := NewStats().Health()
	assert.Equal(t, "none", health.CandlesSource)
	assert.Zero(t, health.CacheHits)
	assert.Empty(t, health.Providers)
}
