package scan

import (
	"context"
	"sync"
	"time"

	"MarketScan/internal/budget"
	"MarketScan/internal/domain/models"
	"MarketScan/pkg/logger"
)

// CrossMarket gathers stock, crypto and commodity bundles plus macro
// context concurrently, then hands them to the cross-asset ranker. A failed
// bundle degrades to empty; a failed macro fetch yields the unknown regime.
func (o *Orchestrator) CrossMarket(ctx context.Context) (*models.CrossMarketResult, error) {
	start := time.Now()
	b := o.newBudget("cross_market")

	var (
		wg          sync.WaitGroup
		stocks      []*models.Candidate
		cryptos     []*models.Candidate
		commodities []*models.Candidate
		social      []*models.Candidate
		macro       *models.MacroContext
	)

	fetch := func(kind budget.OpKind, fn func(context.Context)) {
		if !b.CanContinue() {
			b.MarkExhausted(models.PhaseDiscovery)
			return
		}
		b.Tick(kind)
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, o.callTimeout)
			defer cancel()
			fn(cctx)
		}()
	}

	fetch(budget.OpScreener, func(cctx context.Context) {
		cands, err := o.d.Screener.FetchScreener(cctx, "actives")
		if err != nil {
			o.d.Log.Warn("cross-market stock bundle failed", logger.Error(err))
			return
		}
		stocks = cands
	})
	if o.d.Crypto != nil {
		fetch(budget.OpScreener, func(cctx context.Context) {
			cands, err := o.d.Crypto.FetchTrending(cctx)
			if err != nil {
				o.d.Log.Warn("cross-market crypto bundle failed", logger.Error(err))
				return
			}
			cryptos = cands
		})
	}
	if o.d.Commodities != nil {
		fetch(budget.OpQuote, func(cctx context.Context) {
			cands, err := o.d.Commodities.FetchCommodities(cctx)
			if err != nil {
				o.d.Log.Warn("cross-market commodity bundle failed", logger.Error(err))
				return
			}
			commodities = cands
		})
	}
	if o.d.Social != nil {
		fetch(budget.OpSentiment, func(cctx context.Context) {
			cands, err := o.d.Social.FetchTrendingSymbols(cctx)
			if err != nil {
				o.d.Log.Debug("cross-market social trending failed", logger.Error(err))
				return
			}
			social = cands
		})
	}
	if o.d.Macro != nil {
		fetch(budget.OpMacro, func(cctx context.Context) {
			m, err := o.d.Macro.FetchMacroContext(cctx)
			if err != nil {
				o.d.Log.Warn("macro context fetch failed", logger.Error(err))
				return
			}
			macro = m
		})
	}
	wg.Wait()

	addSocialMentions(stocks, social, models.AssetStock)
	addSocialMentions(cryptos, social, models.AssetCrypto)

	result := o.d.Ranker.Rank(stocks, cryptos, commodities, macro)

	if o.d.Metrics != nil {
		o.d.Metrics.RecordScan("cross_market", time.Since(start).Seconds())
		o.d.Metrics.RecordStageCount("cross_market_ranked", len(result.RankedCandidates))
	}
	o.publish(ctx, map[string]any{
		"type":    "cross_market",
		"ranked":  len(result.RankedCandidates),
		"regime":  result.Debug.MacroRegime,
		"stocks":  len(stocks),
		"cryptos": len(cryptos),
	})
	return result, nil
}

// addSocialMentions bumps the source count of bundle candidates that also
// trend on the social feed, so multi-source mentions survive into factor
// scoring.
func addSocialMentions(bundle, social []*models.Candidate, class models.AssetClass) {
	if len(bundle) == 0 || len(social) == 0 {
		return
	}
	trending := make(map[string]*models.Candidate, len(social))
	for _, s := range social {
		if s.AssetClass == class {
			trending[s.Symbol] = s
		}
	}
	for _, c := range bundle {
		s, ok := trending[c.Symbol]
		if !ok {
			continue
		}
		c.SourceCount += s.SourceCount
		c.Sources = append(c.Sources, s.Sources...)
		if c.XAnalysis == nil {
			c.XAnalysis = s.XAnalysis
		}
	}
}
