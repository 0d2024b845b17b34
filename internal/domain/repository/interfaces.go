package repository

import (
	"context"

	"MarketScan/internal/domain/models"
)

// BarProvider fetches daily OHLCV bars for a symbol. Implementations must
// classify failures into the models fetch taxonomy.
type BarProvider interface {
	Name() string
	FetchBars(ctx context.Context, symbol string, days int) ([]models.Bar, error)
}

// QuoteProvider fetches a real-time quote snapshot.
type QuoteProvider interface {
	FetchQuote(ctx context.Context, symbol string) (*models.Quote, error)
}

// OverviewProvider fetches company fundamentals.
type OverviewProvider interface {
	FetchOverview(ctx context.Context, symbol string) (*models.Overview, error)
}

// SentimentProvider fetches social sentiment for a symbol.
type SentimentProvider interface {
	FetchSentiment(ctx context.Context, symbol string) (*models.Sentiment, error)
}

// AnalystProvider fetches analyst coverage for a symbol.
type AnalystProvider interface {
	FetchAnalyst(ctx context.Context, symbol string) (*models.AnalystData, error)
}

// EarningsProvider fetches recent earnings history for a symbol.
type EarningsProvider interface {
	FetchEarnings(ctx context.Context, symbol string) ([]models.EarningsReport, error)
}

// InsiderProvider fetches insider trading sentiment for a symbol.
type InsiderProvider interface {
	FetchInsiderSentiment(ctx context.Context, symbol string) (*models.InsiderSentiment, error)
}

// ScreenerProvider discovers candidate symbols matching a named screen.
type ScreenerProvider interface {
	FetchScreener(ctx context.Context, screen string) ([]*models.Candidate, error)
}

// SocialDiscoveryProvider surfaces symbols trending on a social feed as a
// secondary discovery source, with mention metadata attached.
type SocialDiscoveryProvider interface {
	FetchTrendingSymbols(ctx context.Context) ([]*models.Candidate, error)
}

// CryptoProvider discovers trending crypto candidates.
type CryptoProvider interface {
	FetchTrending(ctx context.Context) ([]*models.Candidate, error)
}

// CommodityProvider fetches commodity/ETF proxy quotes.
type CommodityProvider interface {
	FetchCommodities(ctx context.Context) ([]*models.Candidate, error)
}

// MacroProvider fetches the macro context for regime classification.
type MacroProvider interface {
	FetchMacroContext(ctx context.Context) (*models.MacroContext, error)
}

// Publisher emits scan summary events for downstream consumers.
type Publisher interface {
	PublishScanEvent(ctx context.Context, event any) error
	Close() error
}

// Metrics records pipeline observability counters.
type Metrics interface {
	RecordProviderCall(provider, outcome string)
	RecordCacheHit(category string)
	RecordBudgetExhausted(phase string)
	RecordScan(kind string, seconds float64)
	RecordStageCount(stage string, n int)
}
