package budget

import (
	"errors"
	"sync"
	"time"

	"MarketScan/internal/domain/models"
)

// ErrExhausted signals that the per-scan budget ran out before the
// operation could start.
var ErrExhausted = errors.New("budget exhausted")

// OpKind is the weighted cost class of one enrichment operation.
type OpKind string

const (
	OpQuote        OpKind = "quote"
	OpCandles      OpKind = "candles"
	OpOverview     OpKind = "overview"
	OpSentiment    OpKind = "sentiment"
	OpScreener     OpKind = "screener"
	OpFundamentals OpKind = "fundamentals"
	OpMacro        OpKind = "macro"
)

// DefaultWeights gives each operation kind its point cost. A full
// fundamentals fetch costs more than a quote.
func DefaultWeights() map[OpKind]int {
	return map[OpKind]int{
		OpQuote:        1,
		OpCandles:      2,
		OpOverview:     2,
		OpSentiment:    1,
		OpScreener:     3,
		OpFundamentals: 4,
		OpMacro:        1,
	}
}

// Budget is a weighted points-and-time budget for one scan invocation.
// It is an advisory gate: callers check CanContinue before starting new
// work and let in-flight operations finish once it turns false.
// Not shared across concurrent scans.
type Budget struct {
	mu             sync.Mutex
	weights        map[OpKind]int
	pointsSpent    int
	maxPoints      int
	started        time.Time
	maxDuration    time.Duration
	exhaustedPhase models.ScanPhase
	cacheHits      int
	blocked        int
	now            func() time.Time
}

// Option configures a Budget.
type Option func(*Budget)

// WithClock injects a clock for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(b *Budget) { b.now = now }
}

// WithWeights overrides the per-operation point costs.
func WithWeights(w map[OpKind]int) Option {
	return func(b *Budget) { b.weights = w }
}

// New creates a budget with the given point and wall-clock ceilings.
func New(maxPoints int, maxDuration time.Duration, opts ...Option) *Budget {
	b := &Budget{
		weights:     DefaultWeights(),
		maxPoints:   maxPoints,
		maxDuration: maxDuration,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.started = b.now()
	return b
}

// Tick records one operation of the given kind against the budget.
func (b *Budget) Tick(kind OpKind) {
	b.mu.Lock()
	defer b.mu.Unlock()

	w, ok := b.weights[kind]
	if !ok {
		w = 1
	}
	b.pointsSpent += w
}

// CanContinue reports whether new enrichment work may start. Once either
// ceiling is crossed it stays false for the lifetime of the budget.
func (b *Budget) CanContinue() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.maxPoints > 0 && b.pointsSpent >= b.maxPoints {
		return false
	}
	if b.maxDuration > 0 && b.now().Sub(b.started) >= b.maxDuration {
		return false
	}
	return true
}

// MarkExhausted records the phase the budget ran out in. The first mark
// wins; later calls are ignored.
func (b *Budget) MarkExhausted(phase models.ScanPhase) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.exhaustedPhase == "" {
		b.exhaustedPhase = phase
	}
}

// ExhaustedPhase returns the recorded phase, or empty if never exhausted.
func (b *Budget) ExhaustedPhase() models.ScanPhase {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exhaustedPhase
}

// RecordCacheHit counts an enrichment served from cache (free).
func (b *Budget) RecordCacheHit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cacheHits++
}

// RecordBlocked counts an operation refused because the budget was spent.
func (b *Budget) RecordBlocked() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blocked++
}

// State is a point-in-time snapshot for result payloads.
type State struct {
	PointsSpent    int              `json:"points_spent"`
	MaxPoints      int              `json:"max_points"`
	Elapsed        time.Duration    `json:"elapsed"`
	MaxDuration    time.Duration    `json:"max_duration"`
	ExhaustedPhase models.ScanPhase `json:"exhausted_phase,omitempty"`
	CacheHits      int              `json:"cache_hits"`
	Blocked        int              `json:"blocked"`
}

// Snapshot returns the current budget state.
func (b *Budget) Snapshot() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return State{
		PointsSpent:    b.pointsSpent,
		MaxPoints:      b.maxPoints,
		Elapsed:        b.now().Sub(b.started),
		MaxDuration:    b.maxDuration,
		ExhaustedPhase: b.exhaustedPhase,
		CacheHits:      b.cacheHits,
		Blocked:        b.blocked,
	}
}
