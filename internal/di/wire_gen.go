// Code generated by Wire. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package di

import (
	"MarketScan/pkg/config"
	"MarketScan/pkg/server"
)

// Injectors from wire.go:

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, err
	}
	client := ProvideHTTPClient()
	finnhub := ProvideFinnhub(cfg, client)
	fmp := ProvideFMP(cfg, client)
	stockTwits := ProvideStockTwits(cfg, client)
	coinGecko := ProvideCoinGecko(cfg, client)
	fearGreed := ProvideFearGreed(cfg, client)
	service, err := ProvideCache(cfg)
	if err != nil {
		return nil, err
	}
	polygon := ProvidePolygon(cfg, client)
	alphaVantage := ProvideAlphaVantage(cfg, client)
	registry := ProvideBreakers(cfg)
	dailyTracker := ProvideDailyTracker(cfg)
	metrics := ProvideMetrics()
	candlesService := ProvideCandles(service, finnhub, polygon, alphaVantage, registry, dailyTracker, metrics, logger, cfg)
	engine := ProvideEngine()
	ranker := ProvideRanker()
	limiter := ProvideLimiter()
	publisher, err := ProvidePublisher(cfg)
	if err != nil {
		return nil, err
	}
	orchestrator := ProvideOrchestrator(finnhub, fmp, stockTwits, coinGecko, fearGreed, service, candlesService, engine, ranker, limiter, publisher, metrics, logger, cfg)
	handler := ProvideScanHandler(logger, orchestrator, dailyTracker, registry)
	quoteStream := ProvideQuoteStream(cfg, service, logger)
	app := ProvideApp(cfg, logger, handler, quoteStream, publisher)
	return app, nil
}
