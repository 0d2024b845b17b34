package di

import (
	"fmt"
	"time"

	"MarketScan/internal/breaker"
	"MarketScan/internal/budget"
	"MarketScan/internal/candles"
	"MarketScan/internal/domain/repository"
	"MarketScan/internal/handler/api"
	"MarketScan/internal/providers"
	"MarketScan/internal/ranker"
	"MarketScan/internal/ratelimit"
	internalrepo "MarketScan/internal/repository"
	"MarketScan/internal/scan"
	"MarketScan/internal/ta"
	"MarketScan/pkg/cache"
	"MarketScan/pkg/config"
	xhttp "MarketScan/pkg/http"
	pkgkafka "MarketScan/pkg/kafka"
	"MarketScan/pkg/logger"
	"MarketScan/pkg/metrics"
	"MarketScan/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return log, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache creates the quote/candle cache. With Redis enabled it layers
// an in-process cache over Redis; otherwise it is memory only.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Cache.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Cache.Redis.Host),
		cache.WithRedisPort(cfg.Cache.Redis.Port),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
		cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(rc), nil
}

// ProvideHTTPClient creates the shared outbound HTTP client.
func ProvideHTTPClient() *xhttp.Client {
	return xhttp.NewClient(xhttp.WithTimeout(15 * time.Second))
}

// ProvideFinnhub creates the Finnhub provider (quotes, candles, earnings,
// insider sentiment).
func ProvideFinnhub(cfg *config.Config, client *xhttp.Client) *providers.Finnhub {
	return providers.NewFinnhub(cfg.Providers.Finnhub.APIKey, cfg.Providers.Finnhub.BaseURL, client)
}

// ProvidePolygon creates the Polygon candle provider.
func ProvidePolygon(cfg *config.Config, client *xhttp.Client) *providers.Polygon {
	return providers.NewPolygon(cfg.Providers.Polygon.APIKey, cfg.Providers.Polygon.BaseURL, client)
}

// ProvideAlphaVantage creates the Alpha Vantage candle provider.
func ProvideAlphaVantage(cfg *config.Config, client *xhttp.Client) *providers.AlphaVantage {
	return providers.NewAlphaVantage(cfg.Providers.AlphaVantage.APIKey, cfg.Providers.AlphaVantage.BaseURL, client)
}

// ProvideFMP creates the FMP provider (screener, overviews, analyst data,
// commodity proxies).
func ProvideFMP(cfg *config.Config, client *xhttp.Client) *providers.FMP {
	return providers.NewFMP(cfg.Providers.FMP.APIKey, cfg.Providers.FMP.BaseURL, client)
}

// ProvideCoinGecko creates the CoinGecko trending-crypto provider.
func ProvideCoinGecko(cfg *config.Config, client *xhttp.Client) *providers.CoinGecko {
	return providers.NewCoinGecko(cfg.Providers.CoinGecko.APIKey, cfg.Providers.CoinGecko.BaseURL, client)
}

// ProvideStockTwits creates the StockTwits sentiment provider.
func ProvideStockTwits(cfg *config.Config, client *xhttp.Client) *providers.StockTwits {
	return providers.NewStockTwits(cfg.Providers.StockTwits.BaseURL, client)
}

// ProvideFearGreed creates the fear/greed macro provider.
func ProvideFearGreed(cfg *config.Config, client *xhttp.Client) *providers.FearGreed {
	return providers.NewFearGreed(cfg.Providers.FearGreed.BaseURL, client)
}

// ProvideBreakers creates the per-provider circuit breaker registry.
func ProvideBreakers(cfg *config.Config) *breaker.Registry {
	if cfg.Scan.BreakerCooldown > 0 {
		return breaker.NewRegistry(breaker.WithCooldown(cfg.Scan.BreakerCooldown))
	}
	return breaker.NewRegistry()
}

// ProvideDailyTracker creates the per-provider daily call tracker. Nil
// limits fall back to the built-in free-tier defaults.
func ProvideDailyTracker(cfg *config.Config) *budget.DailyTracker {
	return budget.NewDailyTracker(cfg.Scan.DailyLimits, nil)
}

// ProvideLimiter creates the per-provider token-bucket rate limiter.
func ProvideLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvideCandles creates the cached, breaker-guarded candle fetch service.
// Chain order is fixed: Finnhub, then Polygon, then Alpha Vantage.
func ProvideCandles(
	c cache.Service,
	fh *providers.Finnhub,
	pg *providers.Polygon,
	av *providers.AlphaVantage,
	breakers *breaker.Registry,
	daily *budget.DailyTracker,
	m repository.Metrics,
	log *logger.Logger,
	cfg *config.Config,
) *candles.Service {
	chain := []repository.BarProvider{fh, pg, av}
	return candles.NewService(c, chain, breakers, daily, m, log, cfg.Cache.CandleTTL)
}

// ProvideEngine creates the technical analysis engine.
func ProvideEngine() *ta.Engine {
	return ta.NewEngine()
}

// ProvideRanker creates the cross-market ranker.
func ProvideRanker() *ranker.Ranker {
	return ranker.New()
}

// ProvidePublisher creates the Kafka scan-event publisher. With Kafka
// disabled the orchestrator runs without one.
func ProvidePublisher(cfg *config.Config) (repository.Publisher, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic), nil
}

// ProvideOrchestrator assembles the scan pipelines.
func ProvideOrchestrator(
	fh *providers.Finnhub,
	fmp *providers.FMP,
	st *providers.StockTwits,
	cg *providers.CoinGecko,
	fg *providers.FearGreed,
	c cache.Service,
	candleSvc *candles.Service,
	engine *ta.Engine,
	rk *ranker.Ranker,
	limiter *ratelimit.Limiter,
	pub repository.Publisher,
	m repository.Metrics,
	log *logger.Logger,
	cfg *config.Config,
) *scan.Orchestrator {
	deps := scan.Deps{
		Screener:    fmp,
		Social:      st,
		Quotes:      fh,
		Overviews:   fmp,
		Sentiments:  st,
		Analysts:    fmp,
		Earnings:    fh,
		Insiders:    fh,
		Crypto:      cg,
		Commodities: fmp,
		Macro:       fg,
		Cache:       c,
		Candles:     candleSvc,
		Engine:      engine,
		Ranker:      rk,
		Limiter:     limiter,
		Publisher:   pub,
		Metrics:     m,
		Log:         log,
	}

	opts := []scan.Option{
		scan.WithConcurrency(cfg.Scan.Concurrency),
		scan.WithCallTimeout(cfg.Scan.CallTimeout),
	}
	if cfg.Scan.BudgetPoints > 0 && cfg.Scan.BudgetWindow > 0 {
		points, window := cfg.Scan.BudgetPoints, cfg.Scan.BudgetWindow
		opts = append(opts, scan.WithBudgetFactory(func(string) *budget.Budget {
			return budget.New(points, window)
		}))
	}
	return scan.New(deps, opts...)
}

// ProvideScanHandler creates the Echo HTTP handler.
func ProvideScanHandler(log *logger.Logger, orch *scan.Orchestrator,
	daily *budget.DailyTracker, breakers *breaker.Registry) xhttp.Handler {
	return api.NewScanEchoHandler(log, orch, daily, breakers)
}

// ProvideQuoteStream creates the Finnhub websocket quote stream, or nil
// when streaming is disabled.
func ProvideQuoteStream(cfg *config.Config, c cache.Service, log *logger.Logger) *providers.QuoteStream {
	if !cfg.Stream.Enabled {
		return nil
	}
	return providers.NewQuoteStream(
		cfg.Providers.Finnhub.APIKey,
		cfg.Stream.WebSocketURL,
		cfg.Stream.Symbols,
		cfg.Stream.ReconnectDelay,
		cfg.Stream.PingInterval,
		c, log,
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	handler xhttp.Handler,
	stream *providers.QuoteStream,
	pub repository.Publisher,
) *server.App {
	return server.New(cfg, log, handler, stream, pub)
}
