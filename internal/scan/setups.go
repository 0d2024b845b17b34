package scan

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"MarketScan/internal/budget"
	"MarketScan/internal/candles"
	"MarketScan/internal/domain/models"
	"MarketScan/pkg/logger"
)

const (
	maxShortlist = 8
	maxSurfaced  = 5
)

// BestSetups runs the TA-first scan: discover movers, shortlist the most
// active, fetch candles for each and surface the setups where at least two
// signals agree. The result is structurally complete even when every candle
// fetch failed; data_health explains what happened.
func (o *Orchestrator) BestSetups(ctx context.Context) (*models.BestSetupsResult, error) {
	start := time.Now()
	b := o.newBudget("best_setups")
	stats := candles.NewStats()
	res := &models.BestSetupsResult{
		TopTrades:     []*models.TechnicalAnalysisResult{},
		BearishSetups: []*models.TechnicalAnalysisResult{},
	}

	discovered := o.discoverMovers(ctx, b)
	res.Stats.Discovered = len(discovered)

	shortlist := shortlistByMomentum(discovered, maxShortlist)
	res.Stats.Shortlisted = len(shortlist)

	var mu sync.Mutex
	analyzed := 0
	var results []*models.TechnicalAnalysisResult

	o.forEach(ctx, models.PhaseDeepEnrichment, b, shortlist, func(cctx context.Context, c *models.Candidate) {
		bars, _, err := o.d.Candles.Fetch(cctx, c.Symbol, candleLookbackDays, b, stats)
		if err != nil {
			return
		}
		catalyst := ""
		if c.XAnalysis != nil {
			catalyst = c.XAnalysis.Catalyst
		}
		r := o.d.Engine.Analyze(c.Symbol, bars, catalyst)

		mu.Lock()
		analyzed++
		if r != nil {
			results = append(results, r)
		}
		mu.Unlock()
	})
	res.Stats.Analyzed = analyzed

	sort.SliceStable(results, func(i, j int) bool { return results[i].Confidence > results[j].Confidence })
	for _, r := range results {
		if r.IsBearish {
			if len(res.BearishSetups) < maxSurfaced {
				res.BearishSetups = append(res.BearishSetups, r)
			}
			continue
		}
		if len(res.TopTrades) < maxSurfaced {
			res.TopTrades = append(res.TopTrades, r)
		}
	}
	res.Stats.Surfaced = len(res.TopTrades) + len(res.BearishSetups)

	res.Health = stats.Health()
	if res.Stats.Surfaced == 0 {
		res.Health.EmptyReason = emptyReason(res.Health, res.Stats)
	}

	if o.d.Metrics != nil {
		o.d.Metrics.RecordScan("setups", time.Since(start).Seconds())
		o.d.Metrics.RecordStageCount("setups_surfaced", res.Stats.Surfaced)
	}
	o.publish(ctx, map[string]any{
		"type":        "best_setups",
		"discovered":  res.Stats.Discovered,
		"shortlisted": res.Stats.Shortlisted,
		"analyzed":    res.Stats.Analyzed,
		"surfaced":    res.Stats.Surfaced,
	})
	return res, nil
}

// discoverMovers merges the actives and gainers screens, de-duplicating
// symbols and accumulating source counts.
func (o *Orchestrator) discoverMovers(ctx context.Context, b *budget.Budget) []*models.Candidate {
	var out []*models.Candidate
	seen := map[string]*models.Candidate{}

	for _, screen := range []string{"actives", "gainers"} {
		if !b.CanContinue() {
			b.MarkExhausted(models.PhaseDiscovery)
			break
		}
		b.Tick(budget.OpScreener)

		cctx, cancel := context.WithTimeout(ctx, o.callTimeout)
		cands, err := o.d.Screener.FetchScreener(cctx, screen)
		cancel()
		if err != nil {
			o.d.Log.Warn("mover discovery failed",
				logger.String("screen", screen), logger.Error(err))
			continue
		}
		for _, c := range cands {
			if c == nil || c.Symbol == "" {
				continue
			}
			if prev, ok := seen[c.Symbol]; ok {
				prev.SourceCount++
				prev.Sources = append(prev.Sources, c.Sources...)
				continue
			}
			seen[c.Symbol] = c
			out = append(out, c)
		}
	}
	return out
}

// shortlistByMomentum orders by absolute day change, then raw volume, and
// caps the list. Symbols seen on multiple screens sort first at equal
// momentum thanks to the stable sort.
func shortlistByMomentum(cands []*models.Candidate, limit int) []*models.Candidate {
	sorted := make([]*models.Candidate, len(cands))
	copy(sorted, cands)

	sort.SliceStable(sorted, func(i, j int) bool {
		ci, cj := changeMagnitude(sorted[i]), changeMagnitude(sorted[j])
		if ci != cj {
			return ci > cj
		}
		return volumeOf(sorted[i]) > volumeOf(sorted[j])
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

func changeMagnitude(c *models.Candidate) float64 {
	if c.PriceChangePct != nil {
		return math.Abs(*c.PriceChangePct)
	}
	if c.Quote != nil {
		return math.Abs(c.Quote.ChangePct)
	}
	return 0
}

func volumeOf(c *models.Candidate) float64 {
	if c.Volume != nil {
		return *c.Volume
	}
	if c.Quote != nil {
		return c.Quote.Volume
	}
	return 0
}

func emptyReason(h models.DataHealth, stats models.ScanStats) string {
	switch {
	case stats.Discovered == 0:
		return "discovery returned no candidates"
	case h.AuthErrors:
		return "candle providers rejected credentials"
	case h.RateLimited:
		return "candle providers rate limited"
	case h.CandlesSource == "none":
		return "no candle provider returned usable data"
	default:
		return "no setups with two or more aligned signals"
	}
}
