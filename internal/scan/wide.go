package scan

import (
	"context"
	"fmt"
	"strings"
	"time"

	"MarketScan/internal/budget"
	"MarketScan/internal/candles"
	"MarketScan/internal/domain/models"
	"MarketScan/internal/scoring"
	"MarketScan/pkg/cache"
	"MarketScan/pkg/logger"
)

// negativeCatalysts are keywords in a candidate's catalyst/trending text
// that warrant a warning flag. Flagged candidates are carried through with
// the reason attached, never dropped.
var negativeCatalysts = []string{
	"offering", "dilution", "bankruptcy", "delisting", "delist",
	"investigation", "lawsuit", "fraud", "going concern", "downgrade",
	"recall", "short report",
}

const extremeBearPct = 70.0

// WideScan runs the category-driven pipeline: discovery, light enrichment,
// primary scoring, sentiment/news gating, deep enrichment of survivors and
// final assembly. The payload shape is stable even when every enrichment
// failed; budget exhaustion is recorded, not returned as an error.
func (o *Orchestrator) WideScan(ctx context.Context, category models.Category, f Filters) (*models.WideScanResult, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("unknown scan category %q", category)
	}

	start := time.Now()
	b := o.newBudget(string(category))
	res := &models.WideScanResult{
		Category:         category,
		EnrichedData:     map[string]*models.Candidate{},
		TopRanked:        []models.ScoredCandidate{},
		FlaggedTickers:   []models.FlaggedTicker{},
		StageCounts:      map[string]int{},
		DataCompleteness: "full",
	}

	discovered := o.discover(ctx, category, f, b)
	res.TotalScanned = len(discovered)
	o.stage(res, models.PhaseDiscovery, len(discovered))
	if len(discovered) == 0 {
		o.finalize(ctx, res, b, start)
		return res, nil
	}

	o.lightEnrich(ctx, b, discovered)
	o.stage(res, models.PhaseLightEnrichment, enrichedCount(discovered))

	limit := f.Limit
	primary := scoring.Rank(discovered, category, limit)
	o.stage(res, models.PhasePrimaryScoring, len(primary))

	survivors := make([]*models.Candidate, 0, len(primary))
	for _, sc := range primary {
		survivors = append(survivors, sc.Candidate)
	}

	res.FlaggedTickers = o.sentimentGate(ctx, b, survivors)
	o.stage(res, models.PhaseSentimentGate, len(survivors)-len(res.FlaggedTickers))

	o.deepEnrich(ctx, b, survivors)
	o.stage(res, models.PhaseDeepEnrichment, len(survivors))

	// Re-rank with the full enrichment picture.
	res.TopRanked = scoring.Rank(survivors, category, limit)
	for _, c := range survivors {
		res.EnrichedData[c.Symbol] = c
	}
	res.EnrichedCount = len(res.EnrichedData)
	o.stage(res, models.PhaseAssembly, len(res.TopRanked))

	o.finalize(ctx, res, b, start)
	return res, nil
}

func (o *Orchestrator) discover(ctx context.Context, category models.Category, f Filters, b *budget.Budget) []*models.Candidate {
	screen := f.Screen
	if screen == "" {
		screen = defaultScreen(category)
	}

	b.Tick(budget.OpScreener)
	cctx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	cands, err := o.d.Screener.FetchScreener(cctx, screen)
	if err != nil {
		o.d.Log.Warn("screener discovery failed",
			logger.String("category", string(category)),
			logger.String("screen", screen), logger.Error(err))
		cands = nil
	}

	if o.d.Social != nil && b.CanContinue() {
		b.Tick(budget.OpSentiment)
		sctx, scancel := context.WithTimeout(ctx, o.callTimeout)
		defer scancel()
		social, serr := o.d.Social.FetchTrendingSymbols(sctx)
		if serr != nil {
			o.d.Log.Debug("social trending discovery failed", logger.Error(serr))
		} else {
			cands = mergeDiscovery(cands, social)
		}
	}
	return cands
}

// mergeDiscovery folds a second discovery source into the primary list,
// counting how many independent sources mentioned each symbol. Crypto
// tickers from the social feed are dropped here; the wide scan is
// stock-only.
func mergeDiscovery(primary, secondary []*models.Candidate) []*models.Candidate {
	bySymbol := make(map[string]*models.Candidate, len(primary))
	for _, c := range primary {
		bySymbol[c.Symbol] = c
	}
	for _, s := range secondary {
		if s.AssetClass == models.AssetCrypto {
			continue
		}
		if c, ok := bySymbol[s.Symbol]; ok {
			c.SourceCount += s.SourceCount
			c.Sources = append(c.Sources, s.Sources...)
			if c.XAnalysis == nil {
				c.XAnalysis = s.XAnalysis
			}
			continue
		}
		bySymbol[s.Symbol] = s
		primary = append(primary, s)
	}
	return primary
}

func defaultScreen(category models.Category) string {
	switch category {
	case models.CategorySmallCapSpec:
		return "small_cap"
	case models.CategoryBearish:
		return "losers"
	case models.CategoryTrades:
		return "gainers"
	default:
		return "actives"
	}
}

func (o *Orchestrator) lightEnrich(ctx context.Context, b *budget.Budget, cands []*models.Candidate) {
	if o.d.Quotes == nil {
		return
	}
	o.forEach(ctx, models.PhaseLightEnrichment, b, cands, func(cctx context.Context, c *models.Candidate) {
		if c.Quote != nil {
			return
		}
		if o.streamQuote(cctx, b, c) {
			return
		}
		if !o.allow("finnhub") {
			return
		}
		b.Tick(budget.OpQuote)
		q, err := o.d.Quotes.FetchQuote(cctx, c.Symbol)
		if err != nil {
			o.d.Log.Debug("quote fetch failed",
				logger.String("symbol", c.Symbol), logger.Error(err))
			return
		}
		backfillVolume(q, c)
		c.Quote = q
	})
}

// streamQuote serves the quote from the websocket-warmed cache when a fresh
// entry exists, spending no budget points.
func (o *Orchestrator) streamQuote(ctx context.Context, b *budget.Budget, c *models.Candidate) bool {
	if o.d.Cache == nil {
		return false
	}
	var q models.Quote
	key := cache.ProviderKey("stream", c.Symbol, "quote")
	if err := o.d.Cache.Get(ctx, key, &q); err != nil || q.Price <= 0 {
		return false
	}
	backfillVolume(&q, c)
	c.Quote = &q
	b.RecordCacheHit()
	if o.d.Metrics != nil {
		o.d.Metrics.RecordCacheHit("quotes")
	}
	return true
}

// backfillVolume fills a quote's volume from the screener row when the
// quote source omitted it, so volume-confirmation scoring terms keep their
// input.
func backfillVolume(q *models.Quote, c *models.Candidate) {
	if q.Volume <= 0 && c.Volume != nil && *c.Volume > 0 {
		q.Volume = *c.Volume
	}
}

// sentimentGate fetches sentiment for each scored candidate and splits them
// into clean and flagged. Flagged candidates keep flowing downstream.
func (o *Orchestrator) sentimentGate(ctx context.Context, b *budget.Budget, cands []*models.Candidate) []models.FlaggedTicker {
	if o.d.Sentiments != nil {
		o.forEach(ctx, models.PhaseSentimentGate, b, cands, func(cctx context.Context, c *models.Candidate) {
			if c.Sentiment != nil || !o.allow("stocktwits") {
				return
			}
			b.Tick(budget.OpSentiment)
			s, err := o.d.Sentiments.FetchSentiment(cctx, c.Symbol)
			if err != nil {
				o.d.Log.Debug("sentiment fetch failed",
					logger.String("symbol", c.Symbol), logger.Error(err))
				return
			}
			c.Sentiment = s
			deriveXAnalysis(c)
		})
	}

	flagged := []models.FlaggedTicker{}
	for _, c := range cands {
		if reason := flagReason(c); reason != "" {
			flagged = append(flagged, models.FlaggedTicker{Symbol: c.Symbol, Reason: reason})
		}
	}
	return flagged
}

// deriveXAnalysis distills the sentiment fetch into the social analysis
// block: overall lean, score, and the first headline naming a catalyst.
// Fields already set by a discovery source are kept.
func deriveXAnalysis(c *models.Candidate) {
	if c.Sentiment == nil {
		return
	}
	x := c.XAnalysis
	if x == nil {
		x = &models.XSentiment{}
		c.XAnalysis = x
	}
	if x.Sentiment == "" {
		switch {
		case c.Sentiment.BullPct >= 65:
			x.Sentiment = "bullish"
		case c.Sentiment.BearPct >= 65:
			x.Sentiment = "bearish"
		default:
			x.Sentiment = "mixed"
		}
		x.SentimentScore = c.Sentiment.BullPct
	}
	if x.Catalyst == "" {
		x.Catalyst = catalystHeadline(c.Sentiment.Headlines)
	}
}

// catalystHeadline returns the first headline containing a catalyst phrase,
// negative or positive.
func catalystHeadline(headlines []string) string {
	for _, h := range headlines {
		lower := strings.ToLower(h)
		for _, kw := range negativeCatalysts {
			if strings.Contains(lower, kw) {
				return h
			}
		}
		for _, kw := range scoring.CatalystKeywords {
			if strings.Contains(lower, kw) {
				return h
			}
		}
	}
	return ""
}

func flagReason(c *models.Candidate) string {
	if c.Sentiment != nil && c.Sentiment.BearPct >= extremeBearPct {
		return fmt.Sprintf("extreme bearish sentiment (%.0f%% bearish)", c.Sentiment.BearPct)
	}
	if c.XAnalysis != nil {
		text := strings.ToLower(c.XAnalysis.Catalyst + " " + c.XAnalysis.WhyTrending)
		for _, kw := range negativeCatalysts {
			if strings.Contains(text, kw) {
				return "negative catalyst: " + kw
			}
		}
	}
	return ""
}

func (o *Orchestrator) deepEnrich(ctx context.Context, b *budget.Budget, cands []*models.Candidate) {
	stats := candles.NewStats()
	o.forEach(ctx, models.PhaseDeepEnrichment, b, cands, func(cctx context.Context, c *models.Candidate) {
		o.enrichOverview(cctx, b, c)
		o.enrichTechnicals(cctx, b, c, stats)
		o.enrichFundamentals(cctx, b, c)
	})

	health := stats.Health()
	if health.AuthErrors || health.RateLimited {
		o.d.Log.Warn("candle acquisition degraded during deep enrichment",
			logger.String("source", health.CandlesSource),
			logger.Bool("rate_limited", health.RateLimited),
			logger.Bool("auth_errors", health.AuthErrors))
	}
}

func (o *Orchestrator) enrichOverview(ctx context.Context, b *budget.Budget, c *models.Candidate) {
	if o.d.Overviews == nil || c.Overview != nil || !o.allow("fmp") {
		return
	}
	b.Tick(budget.OpOverview)
	ov, err := o.d.Overviews.FetchOverview(ctx, c.Symbol)
	if err != nil {
		o.d.Log.Debug("overview fetch failed",
			logger.String("symbol", c.Symbol), logger.Error(err))
		return
	}
	c.Overview = ov
}

func (o *Orchestrator) enrichTechnicals(ctx context.Context, b *budget.Budget, c *models.Candidate, stats *candles.Stats) {
	if o.d.Candles == nil || o.d.Engine == nil || c.Technicals != nil {
		return
	}
	bars, _, err := o.d.Candles.Fetch(ctx, c.Symbol, candleLookbackDays, b, stats)
	if err != nil {
		return
	}
	catalyst := ""
	if c.XAnalysis != nil {
		catalyst = c.XAnalysis.Catalyst
	}
	if r := o.d.Engine.Analyze(c.Symbol, bars, catalyst); r != nil {
		c.TA = r
		c.Technicals = &r.Indicators
	}
}

func (o *Orchestrator) enrichFundamentals(ctx context.Context, b *budget.Budget, c *models.Candidate) {
	if o.d.Analysts == nil && o.d.Earnings == nil && o.d.Insiders == nil {
		return
	}
	if !o.allow("finnhub") {
		return
	}
	b.Tick(budget.OpFundamentals)

	if o.d.Analysts != nil && c.Analyst == nil {
		if a, err := o.d.Analysts.FetchAnalyst(ctx, c.Symbol); err == nil {
			c.Analyst = a
		}
	}
	if o.d.Earnings != nil && c.Earnings == nil {
		if e, err := o.d.Earnings.FetchEarnings(ctx, c.Symbol); err == nil {
			c.Earnings = e
		}
	}
	if o.d.Insiders != nil && c.Insider == nil {
		if ins, err := o.d.Insiders.FetchInsiderSentiment(ctx, c.Symbol); err == nil {
			c.Insider = ins
		}
	}
}

func (o *Orchestrator) stage(res *models.WideScanResult, phase models.ScanPhase, n int) {
	res.StageCounts[string(phase)] = n
	if o.d.Metrics != nil {
		o.d.Metrics.RecordStageCount(string(phase), n)
	}
}

func (o *Orchestrator) finalize(ctx context.Context, res *models.WideScanResult, b *budget.Budget, start time.Time) {
	if phase := b.ExhaustedPhase(); phase != "" {
		res.DataCompleteness = "partial"
		res.BudgetExhaustedAt = phase
		if o.d.Metrics != nil {
			o.d.Metrics.RecordBudgetExhausted(string(phase))
		}
	}
	if o.d.Metrics != nil {
		o.d.Metrics.RecordScan("wide", time.Since(start).Seconds())
	}
	o.publish(ctx, map[string]any{
		"type":              "wide_scan",
		"category":          res.Category,
		"total_scanned":     res.TotalScanned,
		"enriched_count":    res.EnrichedCount,
		"top_ranked":        len(res.TopRanked),
		"flagged":           len(res.FlaggedTickers),
		"data_completeness": res.DataCompleteness,
	})
}

func (o *Orchestrator) publish(ctx context.Context, event map[string]any) {
	if o.d.Publisher == nil {
		return
	}
	if err := o.d.Publisher.PublishScanEvent(ctx, event); err != nil {
		o.d.Log.Debug("scan event publish failed", logger.Error(err))
	}
}

func (o *Orchestrator) allow(provider string) bool {
	if o.d.Limiter == nil {
		return true
	}
	switch provider {
	case "finnhub":
		return o.d.Limiter.Allow(provider, 30, 0.9)
	case "fmp":
		return o.d.Limiter.Allow(provider, 10, 0.5)
	case "stocktwits":
		return o.d.Limiter.Allow(provider, 10, 0.3)
	default:
		return o.d.Limiter.Allow(provider, 5, 0.5)
	}
}

func enrichedCount(cands []*models.Candidate) int {
	n := 0
	for _, c := range cands {
		if c.Quote != nil {
			n++
		}
	}
	return n
}
