// Package candles acquires daily OHLCV series through a cache-first,
// budget-gated provider chain with per-provider circuit breakers.
package candles

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"MarketScan/internal/breaker"
	"MarketScan/internal/budget"
	"MarketScan/internal/domain/models"
	"MarketScan/internal/domain/repository"
	"MarketScan/pkg/cache"
	"MarketScan/pkg/logger"
)

const (
	minUsableBars   = 20
	defaultCacheTTL = 15 * time.Minute
)

// Stats accumulates per-provider call accounting for one scan. Safe for
// concurrent use by the scan worker pool.
type Stats struct {
	mu          sync.Mutex
	providers   map[string]*models.ProviderHealth
	cacheHits   int
	blocked     int
	rateLimited bool
	authErrors  bool
	source      string
}

func NewStats() *Stats {
	return &Stats{providers: map[string]*models.ProviderHealth{}}
}

func (s *Stats) provider(name string) *models.ProviderHealth {
	p, ok := s.providers[name]
	if !ok {
		p = &models.ProviderHealth{}
		s.providers[name] = p
	}
	return p
}

func (s *Stats) recordCall(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.provider(name).Calls++
}

func (s *Stats) recordRateLimit(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.provider(name).RateLimit++
	s.rateLimited = true
}

func (s *Stats) recordFailure(name string, auth bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.provider(name).Failures++
	if auth {
		s.authErrors = true
	}
}

func (s *Stats) recordCacheHit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cacheHits++
}

func (s *Stats) recordBlocked() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocked++
}

func (s *Stats) recordSource(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.source == "" {
		s.source = name
	}
}

// Health snapshots the accumulated accounting into the scan payload shape.
func (s *Stats) Health() models.DataHealth {
	s.mu.Lock()
	defer s.mu.Unlock()

	providers := make(map[string]models.ProviderHealth, len(s.providers))
	for name, p := range s.providers {
		providers[name] = *p
	}
	source := s.source
	if source == "" {
		source = "none"
	}
	return models.DataHealth{
		CandlesSource: source,
		RateLimited:   s.rateLimited,
		AuthErrors:    s.authErrors,
		Providers:     providers,
		CacheHits:     s.cacheHits,
		Blocked:       s.blocked,
	}
}

// Service fetches candles cache-first, then walks the provider chain in
// priority order, skipping providers with an open breaker or an exhausted
// daily allowance.
type Service struct {
	cache    cache.Service
	chain    []repository.BarProvider
	breakers *breaker.Registry
	daily    *budget.DailyTracker
	metrics  repository.Metrics
	log      *logger.Logger
	ttl      time.Duration
}

func NewService(c cache.Service, chain []repository.BarProvider, breakers *breaker.Registry,
	daily *budget.DailyTracker, metrics repository.Metrics, log *logger.Logger, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Service{
		cache:    c,
		chain:    chain,
		breakers: breakers,
		daily:    daily,
		metrics:  metrics,
		log:      log,
		ttl:      ttl,
	}
}

// Fetch returns at least 20 daily bars for the symbol along with the
// provider that served them ("cache" on a cache hit). The scan budget is
// checked once before any network work; nil budgets skip the gate.
func (s *Service) Fetch(ctx context.Context, symbol string, days int, b *budget.Budget, stats *Stats) ([]models.Bar, string, error) {
	key := cache.ProviderKey("candles", symbol, strconv.Itoa(days))

	var cached []models.Bar
	if err := s.cache.Get(ctx, key, &cached); err == nil && len(cached) >= minUsableBars {
		stats.recordCacheHit()
		if b != nil {
			b.RecordCacheHit()
		}
		s.metrics.RecordCacheHit("candles")
		return cached, "cache", nil
	}

	if b != nil && !b.CanContinue() {
		stats.recordBlocked()
		b.RecordBlocked()
		return nil, "", fmt.Errorf("candles %s: %w", symbol, budget.ErrExhausted)
	}

	var lastErr error
	for _, p := range s.chain {
		name := p.Name()

		if !s.breakers.Allow(name) {
			stats.recordBlocked()
			continue
		}
		if !s.daily.Spend(name, 1) {
			stats.recordBlocked()
			continue
		}
		if st := s.daily.Status()[name]; st.Limit > 0 && st.Used == st.WarnAt {
			s.log.Warn("provider daily usage at warn threshold",
				logger.String("provider", name),
				logger.Int("used", st.Used), logger.Int("limit", st.Limit))
		}

		stats.recordCall(name)
		if b != nil {
			b.Tick(budget.OpCandles)
		}

		bars, err := p.FetchBars(ctx, symbol, days)
		if err != nil {
			lastErr = err
			switch {
			case errors.Is(err, models.ErrAuthFailure):
				stats.recordFailure(name, true)
				s.breakers.Trip(name)
				s.metrics.RecordProviderCall(name, "auth_error")
				s.log.Warn("candle provider auth failure, breaker tripped",
					logger.String("provider", name), logger.Error(err))
			case errors.Is(err, models.ErrRateLimited):
				stats.recordRateLimit(name)
				s.metrics.RecordProviderCall(name, "rate_limited")
				s.log.Warn("candle provider rate limited",
					logger.String("provider", name), logger.String("symbol", symbol))
			default:
				stats.recordFailure(name, false)
				s.metrics.RecordProviderCall(name, "error")
				s.log.Debug("candle provider failed",
					logger.String("provider", name), logger.String("symbol", symbol), logger.Error(err))
			}
			continue
		}

		if len(bars) < minUsableBars {
			stats.recordFailure(name, false)
			s.metrics.RecordProviderCall(name, "insufficient")
			lastErr = fmt.Errorf("%s returned %d bars for %s: %w", name, len(bars), symbol, models.ErrInsufficientData)
			continue
		}

		s.metrics.RecordProviderCall(name, "ok")
		stats.recordSource(name)
		if err := s.cache.Set(ctx, key, bars, s.ttl); err != nil {
			s.log.Debug("candle cache write failed", logger.String("symbol", symbol), logger.Error(err))
		}
		return bars, name, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no provider available for %s: %w", symbol, models.ErrUnavailable)
	}
	return nil, "", lastErr
}
