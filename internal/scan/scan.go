// Package scan coordinates the market scanning pipelines: a category-driven
// wide scan, a TA-first best-setups scan, and a cross-market gather-and-rank.
// All three run under a per-invocation resource budget; provider failures are
// isolated per symbol and never abort the batch.
package scan

import (
	"context"
	"sync"
	"time"

	"MarketScan/internal/budget"
	"MarketScan/internal/candles"
	"MarketScan/internal/domain/models"
	"MarketScan/internal/domain/repository"
	"MarketScan/internal/ranker"
	"MarketScan/internal/ratelimit"
	"MarketScan/internal/ta"
	"MarketScan/pkg/cache"
	"MarketScan/pkg/logger"
)

const (
	defaultConcurrency  = 6
	defaultCallTimeout  = 10 * time.Second
	defaultBudgetPoints = 150
	defaultBudgetWindow = 45 * time.Second

	candleLookbackDays = 120
)

// BudgetFactory builds the resource budget for one scan invocation.
// The kind is the category string for wide scans, "best_setups" or
// "cross_market" otherwise.
type BudgetFactory func(kind string) *budget.Budget

// Filters narrows a wide scan's discovery and result size.
type Filters struct {
	// Screen overrides the category's default discovery preset.
	Screen string `json:"screen,omitempty"`
	// Limit caps the ranked result list. Zero means the scorer default.
	Limit int `json:"limit,omitempty"`
}

// Deps are the collaborators an Orchestrator fans out to. Screener and
// Candles are required; every other provider is optional and its enrichment
// dimension is skipped when nil.
type Deps struct {
	Screener    repository.ScreenerProvider
	Social      repository.SocialDiscoveryProvider
	Quotes      repository.QuoteProvider
	Overviews   repository.OverviewProvider
	Sentiments  repository.SentimentProvider
	Analysts    repository.AnalystProvider
	Earnings    repository.EarningsProvider
	Insiders    repository.InsiderProvider
	Crypto      repository.CryptoProvider
	Commodities repository.CommodityProvider
	Macro       repository.MacroProvider

	Cache     cache.Service
	Candles   *candles.Service
	Engine    *ta.Engine
	Ranker    *ranker.Ranker
	Limiter   *ratelimit.Limiter
	Publisher repository.Publisher
	Metrics   repository.Metrics
	Log       *logger.Logger
}

// Orchestrator sequences discovery, enrichment, scoring and assembly.
// Stage order is strictly sequential; work inside a stage fans out over a
// bounded worker pool.
type Orchestrator struct {
	d Deps

	concurrency int
	callTimeout time.Duration
	newBudget   BudgetFactory
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConcurrency bounds simultaneous in-flight provider calls per stage.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithCallTimeout sets the per-call timeout for provider fetches.
func WithCallTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.callTimeout = d
		}
	}
}

// WithBudgetFactory overrides how per-scan budgets are built.
func WithBudgetFactory(f BudgetFactory) Option {
	return func(o *Orchestrator) { o.newBudget = f }
}

func New(d Deps, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		d:           d,
		concurrency: defaultConcurrency,
		callTimeout: defaultCallTimeout,
		newBudget: func(string) *budget.Budget {
			return budget.New(defaultBudgetPoints, defaultBudgetWindow)
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// forEach dispatches fn per candidate over the bounded pool, checking the
// budget before each dispatch. Once the budget runs out the phase is
// recorded and no new work starts; in-flight calls finish.
func (o *Orchestrator) forEach(ctx context.Context, phase models.ScanPhase, b *budget.Budget,
	items []*models.Candidate, fn func(context.Context, *models.Candidate)) {

	sem := make(chan struct{}, o.concurrency)
	var wg sync.WaitGroup
	for _, c := range items {
		if c == nil {
			continue
		}
		if b != nil && !b.CanContinue() {
			b.MarkExhausted(phase)
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(c *models.Candidate) {
			defer wg.Done()
			defer func() { <-sem }()
			cctx, cancel := context.WithTimeout(ctx, o.callTimeout)
			defer cancel()
			fn(cctx, c)
		}(c)
	}
	wg.Wait()
}
