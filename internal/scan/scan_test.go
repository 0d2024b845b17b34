package scan

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketScan/internal/breaker"
	"MarketScan/internal/budget"
	"MarketScan/internal/candles"
	"MarketScan/internal/domain/models"
	"MarketScan/internal/domain/repository"
	"MarketScan/internal/ranker"
	"MarketScan/internal/ta"
	"MarketScan/pkg/cache"
	"MarketScan/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordProviderCall(provider, outcome string) {}
func (nopMetrics) RecordCacheHit(category string)              {}
func (nopMetrics) RecordBudgetExhausted(phase string)          {}
func (nopMetrics) RecordScan(kind string, seconds float64)     {}
func (nopMetrics) RecordStageCount(stage string, n int)        {}

type fakeScreener struct {
	byScreen map[string][]*models.Candidate
	err      error
}

func (f *fakeScreener) FetchScreener(ctx context.Context, screen string) ([]*models.Candidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byScreen[screen], nil
}

type fakeQuotes struct{ calls atomic.Int64 }

func (f *fakeQuotes) FetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	f.calls.Add(1)
	return &models.Quote{Price: 50, ChangePct: 4.2, Volume: 2_000_000}, nil
}

type fakeSentiments struct {
	bearish   map[string]bool
	headlines map[string][]string
}

func (f *fakeSentiments) FetchSentiment(ctx context.Context, symbol string) (*models.Sentiment, error) {
	s := &models.Sentiment{BullPct: 70, BearPct: 30, Watchers: 1200}
	if f.bearish[symbol] {
		s = &models.Sentiment{BullPct: 15, BearPct: 85, Watchers: 900}
	}
	s.Headlines = f.headlines[symbol]
	return s, nil
}

type fakeSocial struct {
	cands []*models.Candidate
	err   error
}

func (f *fakeSocial) FetchTrendingSymbols(ctx context.Context) ([]*models.Candidate, error) {
	return f.cands, f.err
}

func trendingCandidate(symbol string, class models.AssetClass, why string) *models.Candidate {
	return &models.Candidate{
		Symbol:      symbol,
		AssetClass:  class,
		SourceCount: 1,
		Sources:     []string{"stocktwits_trending"},
		XAnalysis:   &models.XSentiment{WhyTrending: why, MentionIntensity: "high"},
	}
}

type fakeOverviews struct{}

func (fakeOverviews) FetchOverview(ctx context.Context, symbol string) (*models.Overview, error) {
	mc := 5e9
	av := 1_500_000.0
	return &models.Overview{Name: symbol + " Inc", Sector: "Technology", MarketCap: &mc, AvgVolume: &av}, nil
}

type fakeBarProvider struct {
	name string
	bars []models.Bar
	err  error
}

func (f *fakeBarProvider) Name() string { return f.name }

func (f *fakeBarProvider) FetchBars(ctx context.Context, symbol string, days int) ([]models.Bar, error) {
	return f.bars, f.err
}

func risingBarsWithSpike(n int) []models.Bar {
	bars := make([]models.Bar, n)
	base := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		price := 40.0 + float64(i)*0.6
		bars[i] = models.Bar{
			Timestamp: base.AddDate(0, 0, i),
			Open:      price,
			High:      price * 1.01,
			Low:       price * 0.99,
			Close:     price,
			Volume:    1_000_000,
		}
	}
	bars[n-1].Volume = 3_000_000
	return bars
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return log
}

func testCandles(t *testing.T, provider *fakeBarProvider) *candles.Service {
	t.Helper()
	now := func() time.Time { return time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC) }
	return candles.NewService(
		cache.NewMemoryCache(),
		[]repository.BarProvider{provider},
		breaker.NewRegistry(breaker.WithClock(now)),
		budget.NewDailyTracker(nil, now),
		nopMetrics{},
		testLogger(t),
		time.Minute,
	)
}

func stockCandidate(symbol string, mcap, volume, changePct float64) *models.Candidate {
	c := &models.Candidate{
		Symbol:      symbol,
		AssetClass:  models.AssetStock,
		SourceCount: 1,
		Sources:     []string{"fmp_actives"},
	}
	c.MarketCap = &mcap
	c.Volume = &volume
	c.PriceChangePct = &changePct
	return c
}

func generousBudget(string) *budget.Budget { return budget.New(10_000, time.Hour) }

func TestWideScanHappyPath(t *testing.T) {
	screener := &fakeScreener{byScreen: map[string][]*models.Candidate{
		"gainers": {
			stockCandidate("AAPL", 80e9, 5_000_000, 4.5),
			stockCandidate("BAD", 6e9, 3_000_000, 6.0),
			stockCandidate("NVDA", 40e9, 8_000_000, 3.1),
		},
	}}
	quotes := &fakeQuotes{}
	o := New(Deps{
		Screener:   screener,
		Quotes:     quotes,
		Sentiments: &fakeSentiments{bearish: map[string]bool{"BAD": true}},
		Overviews:  fakeOverviews{},
		Candles:    testCandles(t, &fakeBarProvider{name: "finnhub", bars: risingBarsWithSpike(60)}),
		Engine:     ta.NewEngine(),
		Metrics:    nopMetrics{},
		Log:        testLogger(t),
	}, WithBudgetFactory(generousBudget), WithConcurrency(2))

	res, err := o.WideScan(context.Background(), models.CategoryTrades, Filters{})
	require.NoError(t, err)

	assert.Equal(t, models.CategoryTrades, res.Category)
	assert.Equal(t, 3, res.TotalScanned)
	assert.Equal(t, "full", res.DataCompleteness)
	assert.Empty(t, res.BudgetExhaustedAt)
	assert.EqualValues(t, 3, quotes.calls.Load())

	assert.Len(t, res.EnrichedData, 3)
	assert.Equal(t, 3, res.EnrichedCount)
	assert.NotEmpty(t, res.TopRanked)

	// flagged but never dropped
	require.Len(t, res.FlaggedTickers, 1)
	assert.Equal(t, "BAD", res.FlaggedTickers[0].Symbol)
	assert.Contains(t, res.FlaggedTickers[0].Reason, "bearish")
	assert.Contains(t, res.EnrichedData, "BAD")

	for _, sym := range []string{"AAPL", "BAD", "NVDA"} {
		c := res.EnrichedData[sym]
		require.NotNil(t, c, sym)
		assert.NotNil(t, c.Quote, sym)
		assert.NotNil(t, c.Overview, sym)
		assert.NotNil(t, c.Technicals, sym)
		assert.NotNil(t, c.CategoryScore, sym)
	}

	for _, phase := range []models.ScanPhase{
		models.PhaseDiscovery, models.PhaseLightEnrichment, models.PhasePrimaryScoring,
		models.PhaseSentimentGate, models.PhaseDeepEnrichment, models.PhaseAssembly,
	} {
		assert.Contains(t, res.StageCounts, string(phase))
	}
	assert.Equal(t, 3, res.StageCounts[string(models.PhaseDiscovery)])
	assert.Equal(t, 2, res.StageCounts[string(models.PhaseSentimentGate)])
}

func TestWideScanUnknownCategory(t *testing.T) {
	o := New(Deps{Screener: &fakeScreener{}, Log: testLogger(t)})
	_, err := o.WideScan(context.Background(), models.Category("made_up"), Filters{})
	require.Error(t, err)
}

func TestWideScanEmptyDiscoveryKeepsShape(t *testing.T) {
	o := New(Deps{
		Screener: &fakeScreener{err: models.ErrUnavailable},
		Metrics:  nopMetrics{},
		Log:      testLogger(t),
	}, WithBudgetFactory(generousBudget))

	res, err := o.WideScan(context.Background(), models.CategoryMarketScan, Filters{})
	require.NoError(t, err)

	assert.Zero(t, res.TotalScanned)
	assert.NotNil(t, res.EnrichedData)
	assert.NotNil(t, res.TopRanked)
	assert.NotNil(t, res.FlaggedTickers)
	assert.Empty(t, res.TopRanked)
	assert.Equal(t, "full", res.DataCompleteness)
}

func TestWideScanBudgetExhaustedDuringLightEnrichment(t *testing.T) {
	screener := &fakeScreener{byScreen: map[string][]*models.Candidate{
		"gainers": {
			stockCandidate("AAPL", 80e9, 5_000_000, 4.5),
			stockCandidate("NVDA", 40e9, 8_000_000, 3.1),
		},
	}}
	quotes := &fakeQuotes{}
	o := New(Deps{
		Screener: screener,
		Quotes:   quotes,
		Metrics:  nopMetrics{},
		Log:      testLogger(t),
	}, WithBudgetFactory(func(string) *budget.Budget {
		// the discovery screener call alone spends the whole budget
		return budget.New(3, time.Hour)
	}))

	res, err := o.WideScan(context.Background(), models.CategoryTrades, Filters{})
	require.NoError(t, err)

	assert.Equal(t, "partial", res.DataCompleteness)
	assert.Equal(t, models.PhaseLightEnrichment, res.BudgetExhaustedAt)
	assert.Zero(t, quotes.calls.Load())
	assert.Equal(t, 2, res.TotalScanned)
}

func TestBestSetupsSurfacesTrades(t *testing.T) {
	screener := &fakeScreener{byScreen: map[string][]*models.Candidate{
		"actives": {
			stockCandidate("NVDA", 40e9, 8_000_000, 3.1),
			stockCandidate("AAPL", 80e9, 5_000_000, 1.2),
		},
		"gainers": {
			stockCandidate("NVDA", 40e9, 8_000_000, 3.1),
			stockCandidate("SMCI", 20e9, 6_000_000, 9.4),
		},
	}}
	o := New(Deps{
		Screener: screener,
		Candles:  testCandles(t, &fakeBarProvider{name: "finnhub", bars: risingBarsWithSpike(60)}),
		Engine:   ta.NewEngine(),
		Metrics:  nopMetrics{},
		Log:      testLogger(t),
	}, WithBudgetFactory(generousBudget), WithConcurrency(2))

	res, err := o.BestSetups(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, res.Stats.Discovered)
	assert.LessOrEqual(t, res.Stats.Shortlisted, maxShortlist)
	assert.Equal(t, res.Stats.Shortlisted, res.Stats.Analyzed)
	assert.NotEmpty(t, res.TopTrades)
	assert.Equal(t, len(res.TopTrades)+len(res.BearishSetups), res.Stats.Surfaced)

	first := res.TopTrades[0]
	assert.Equal(t, "long", first.Direction)
	assert.NotZero(t, first.Plan.Entry)
	assert.NotEmpty(t, first.Plan.Targets)

	assert.Equal(t, "finnhub", res.Health.CandlesSource)
	assert.Contains(t, res.Health.Providers, "finnhub")
	assert.Empty(t, res.Health.EmptyReason)
}

func TestBestSetupsShortlistPrefersMomentum(t *testing.T) {
	var cands []*models.Candidate
	for _, sym := range []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"} {
		cands = append(cands, stockCandidate(sym, 5e9, 1_000_000, 1.0))
	}
	hot := stockCandidate("HOT", 5e9, 9_000_000, 12.0)
	cands = append(cands, hot)

	short := shortlistByMomentum(cands, maxShortlist)
	require.Len(t, short, maxShortlist)
	assert.Equal(t, "HOT", short[0].Symbol)
}

func TestBestSetupsEmptyHasReason(t *testing.T) {
	screener := &fakeScreener{byScreen: map[string][]*models.Candidate{
		"actives": {stockCandidate("GME", 8e9, 4_000_000, 2.0)},
	}}
	o := New(Deps{
		Screener: screener,
		Candles:  testCandles(t, &fakeBarProvider{name: "finnhub", err: models.ErrRateLimited}),
		Engine:   ta.NewEngine(),
		Metrics:  nopMetrics{},
		Log:      testLogger(t),
	}, WithBudgetFactory(generousBudget))

	res, err := o.BestSetups(context.Background())
	require.NoError(t, err)

	assert.Empty(t, res.TopTrades)
	assert.Empty(t, res.BearishSetups)
	assert.True(t, res.Health.RateLimited)
	assert.Equal(t, "candle providers rate limited", res.Health.EmptyReason)
	assert.Positive(t, res.Health.Providers["finnhub"].RateLimit)
}

type fakeCrypto struct{ cands []*models.Candidate }

func (f *fakeCrypto) FetchTrending(ctx context.Context) ([]*models.Candidate, error) {
	return f.cands, nil
}

type fakeCommodities struct{ cands []*models.Candidate }

func (f *fakeCommodities) FetchCommodities(ctx context.Context) ([]*models.Candidate, error) {
	return f.cands, nil
}

type fakeMacro struct {
	ctx *models.MacroContext
	err error
}

func (f *fakeMacro) FetchMacroContext(ctx context.Context) (*models.MacroContext, error) {
	return f.ctx, f.err
}

func TestCrossMarketRanksBundles(t *testing.T) {
	stock := stockCandidate("NVDA", 40e9, 8_000_000, 6.0)
	stock.SourceCount = 3
	stock.Analyst = &models.AnalystData{Consensus: "Buy", TotalAnalysts: 30}

	gold := &models.Candidate{Symbol: "GLD", AssetClass: models.AssetCommodity, IsMajor: true}
	pct := 1.4
	gold.PriceChangePct = &pct

	fg := 80
	o := New(Deps{
		Screener:    &fakeScreener{byScreen: map[string][]*models.Candidate{"actives": {stock}}},
		Crypto:      &fakeCrypto{},
		Commodities: &fakeCommodities{cands: []*models.Candidate{gold}},
		Macro:       &fakeMacro{ctx: &models.MacroContext{FearGreedIndex: &fg}},
		Ranker:      ranker.New(),
		Metrics:     nopMetrics{},
		Log:         testLogger(t),
	}, WithBudgetFactory(generousBudget))

	res, err := o.CrossMarket(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res.Debug)
	assert.Equal(t, models.RegimeRiskOn, res.Debug.MacroRegime)
	assert.LessOrEqual(t, len(res.RankedCandidates), 7)
}

func TestCrossMarketMacroFailureFallsBackToUnknown(t *testing.T) {
	o := New(Deps{
		Screener: &fakeScreener{},
		Macro:    &fakeMacro{err: models.ErrUnavailable},
		Ranker:   ranker.New(),
		Metrics:  nopMetrics{},
		Log:      testLogger(t),
	}, WithBudgetFactory(generousBudget))

	res, err := o.CrossMarket(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.RegimeUnknown, res.Debug.MacroRegime)
	assert.Empty(t, res.RankedCandidates)
}

func TestWideScanServesQuotesFromStreamCache(t *testing.T) {
	screener := &fakeScreener{byScreen: map[string][]*models.Candidate{
		"gainers": {
			stockCandidate("AAPL", 80e9, 5_000_000, 4.5),
			stockCandidate("NVDA", 40e9, 8_000_000, 3.1),
		},
	}}
	mem := cache.NewMemoryCache()
	// A websocket trade warmed this entry; price only, no volume.
	key := cache.ProviderKey("stream", "NVDA", "quote")
	require.NoError(t, mem.Set(context.Background(), key, &models.Quote{Price: 183.4}, time.Minute))

	quotes := &fakeQuotes{}
	o := New(Deps{
		Screener: screener,
		Quotes:   quotes,
		Cache:    mem,
		Metrics:  nopMetrics{},
		Log:      testLogger(t),
	}, WithBudgetFactory(generousBudget))

	res, err := o.WideScan(context.Background(), models.CategoryTrades, Filters{})
	require.NoError(t, err)

	// Only AAPL needed a REST quote.
	assert.EqualValues(t, 1, quotes.calls.Load())

	nvda := res.EnrichedData["NVDA"]
	require.NotNil(t, nvda)
	require.NotNil(t, nvda.Quote)
	assert.Equal(t, 183.4, nvda.Quote.Price)
	// The screener row's volume backfills the tick's missing volume.
	assert.Equal(t, 8_000_000.0, nvda.Quote.Volume)
}

func TestMergeDiscoveryCountsMentions(t *testing.T) {
	primary := []*models.Candidate{
		stockCandidate("AAPL", 80e9, 5_000_000, 4.5),
		stockCandidate("NVDA", 40e9, 8_000_000, 3.1),
	}
	secondary := []*models.Candidate{
		trendingCandidate("NVDA", models.AssetStock, "earnings chatter"),
		trendingCandidate("SOFI", models.AssetStock, "trending on StockTwits"),
		trendingCandidate("BTC", models.AssetCrypto, "trending on StockTwits"),
	}

	merged := mergeDiscovery(primary, secondary)
	require.Len(t, merged, 3, "crypto tickers stay out of the stock scan")

	bySym := map[string]*models.Candidate{}
	for _, c := range merged {
		bySym[c.Symbol] = c
	}
	nvda := bySym["NVDA"]
	require.NotNil(t, nvda)
	assert.Equal(t, 2, nvda.SourceCount)
	assert.Contains(t, nvda.Sources, "fmp_actives")
	assert.Contains(t, nvda.Sources, "stocktwits_trending")
	require.NotNil(t, nvda.XAnalysis)
	assert.Equal(t, "earnings chatter", nvda.XAnalysis.WhyTrending)

	require.NotNil(t, bySym["SOFI"])
	assert.Equal(t, 1, bySym["SOFI"].SourceCount)
	assert.Equal(t, 1, bySym["AAPL"].SourceCount)
}

func TestWideScanAddsSocialTrendingSource(t *testing.T) {
	screener := &fakeScreener{byScreen: map[string][]*models.Candidate{
		"gainers": {stockCandidate("NVDA", 40e9, 8_000_000, 3.1)},
	}}
	social := &fakeSocial{cands: []*models.Candidate{
		trendingCandidate("NVDA", models.AssetStock, "earnings chatter"),
		trendingCandidate("SOFI", models.AssetStock, "trending on StockTwits"),
	}}
	o := New(Deps{
		Screener:   screener,
		Social:     social,
		Quotes:     &fakeQuotes{},
		Sentiments: &fakeSentiments{},
		Overviews:  fakeOverviews{},
		Metrics:    nopMetrics{},
		Log:        testLogger(t),
	}, WithBudgetFactory(generousBudget))

	res, err := o.WideScan(context.Background(), models.CategoryTrades, Filters{})
	require.NoError(t, err)

	assert.Equal(t, 2, res.TotalScanned)
	nvda := res.EnrichedData["NVDA"]
	require.NotNil(t, nvda)
	assert.Equal(t, 2, nvda.SourceCount)
	require.NotNil(t, res.EnrichedData["SOFI"])
}

func TestWideScanFlagsNegativeCatalystHeadline(t *testing.T) {
	screener := &fakeScreener{byScreen: map[string][]*models.Candidate{
		"gainers": {
			stockCandidate("DLTN", 400e6, 9_000_000, 22.0),
			stockCandidate("NVDA", 40e9, 8_000_000, 3.1),
		},
	}}
	o := New(Deps{
		Screener: screener,
		Quotes:   &fakeQuotes{},
		Sentiments: &fakeSentiments{headlines: map[string][]string{
			"DLTN": {"Dilutn Corp announces $50M registered direct offering"},
		}},
		Metrics: nopMetrics{},
		Log:     testLogger(t),
	}, WithBudgetFactory(generousBudget))

	res, err := o.WideScan(context.Background(), models.CategoryTrades, Filters{})
	require.NoError(t, err)

	require.Len(t, res.FlaggedTickers, 1)
	assert.Equal(t, "DLTN", res.FlaggedTickers[0].Symbol)
	assert.Equal(t, "negative catalyst: offering", res.FlaggedTickers[0].Reason)

	// Flagged, not dropped; the headline lands as the catalyst.
	dltn := res.EnrichedData["DLTN"]
	require.NotNil(t, dltn)
	require.NotNil(t, dltn.XAnalysis)
	assert.Contains(t, dltn.XAnalysis.Catalyst, "offering")
	assert.Equal(t, "bullish", dltn.XAnalysis.Sentiment)
}

func TestCrossMarketCountsSocialMentions(t *testing.T) {
	stock := stockCandidate("NVDA", 40e9, 8_000_000, 6.0)
	btc := &models.Candidate{
		Symbol:      "BTC",
		AssetClass:  models.AssetCrypto,
		SourceCount: 1,
		Sources:     []string{"coingecko_trending"},
	}
	pct := 3.0
	btc.PriceChangePct = &pct

	fg := 60
	o := New(Deps{
		Screener: &fakeScreener{byScreen: map[string][]*models.Candidate{"actives": {stock}}},
		Crypto:   &fakeCrypto{cands: []*models.Candidate{btc}},
		Social: &fakeSocial{cands: []*models.Candidate{
			trendingCandidate("BTC", models.AssetCrypto, "trending on StockTwits"),
			trendingCandidate("NVDA", models.AssetStock, "earnings chatter"),
		}},
		Macro:   &fakeMacro{ctx: &models.MacroContext{FearGreedIndex: &fg}},
		Ranker:  ranker.New(),
		Metrics: nopMetrics{},
		Log:     testLogger(t),
	}, WithBudgetFactory(generousBudget))

	_, err := o.CrossMarket(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, btc.SourceCount)
	assert.Contains(t, btc.Sources, "stocktwits_trending")
	assert.Equal(t, 2, stock.SourceCount)
	require.NotNil(t, btc.XAnalysis)
}
