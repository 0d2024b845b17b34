//go:build wireinject
// +build wireinject

package di

import (
	"MarketScan/pkg/config"
	"MarketScan/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient infrastructure
		ProvideLogger,
		ProvideMetrics,
		ProvideCache,
		ProvideHTTPClient,

		// Market data providers
		ProvideFinnhub,
		ProvidePolygon,
		ProvideAlphaVantage,
		ProvideFMP,
		ProvideCoinGecko,
		ProvideStockTwits,
		ProvideFearGreed,

		// Call governance
		ProvideBreakers,
		ProvideDailyTracker,
		ProvideLimiter,

		// Pipeline services
		ProvideCandles,
		ProvideEngine,
		ProvideRanker,
		ProvidePublisher,
		ProvideOrchestrator,

		// Transport
		ProvideScanHandler,
		ProvideQuoteStream,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
