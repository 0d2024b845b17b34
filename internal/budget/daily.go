package budget

import (
	"sync"
	"time"
)

// Warn and hard-stop fractions of a provider's daily limit. Stopping at 90%
// preserves headroom for ad-hoc lookups outside the scan pipeline.
const (
	warnPct     = 0.70
	hardStopPct = 0.90
)

// DefaultDailyLimits are the free-tier call ceilings per provider per day.
func DefaultDailyLimits() map[string]int {
	return map[string]int{
		"fmp":          250,
		"alphavantage": 25,
		"coingecko":    333,
		"finnhub":      3600,
		"polygon":      7200,
	}
}

// DailyTracker tracks per-provider daily call counts, resetting at local
// midnight. Process-wide; persists across scan invocations.
type DailyTracker struct {
	mu     sync.Mutex
	limits map[string]int
	counts map[string]int
	day    string
	now    func() time.Time
}

// NewDailyTracker creates a tracker with the given limits. A nil clock
// defaults to time.Now.
func NewDailyTracker(limits map[string]int, now func() time.Time) *DailyTracker {
	if limits == nil {
		limits = DefaultDailyLimits()
	}
	if now == nil {
		now = time.Now
	}
	t := &DailyTracker{
		limits: limits,
		counts: make(map[string]int),
		now:    now,
	}
	t.resetIfNewDay()
	return t
}

func (t *DailyTracker) resetIfNewDay() {
	today := t.now().Format("2006-01-02")
	if today != t.day {
		t.day = today
		t.counts = make(map[string]int)
	}
}

// Spend records n calls against the provider if headroom remains. Returns
// false (no count recorded) once the hard-stop threshold would be crossed.
// Providers without a configured limit are always allowed.
func (t *DailyTracker) Spend(provider string, n int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetIfNewDay()

	limit, ok := t.limits[provider]
	if !ok {
		return true
	}
	current := t.counts[provider]
	if float64(current+n) > float64(limit)*hardStopPct {
		return false
	}
	t.counts[provider] = current + n
	return true
}

// CanSpend reports whether n calls would be allowed without recording them.
func (t *DailyTracker) CanSpend(provider string, n int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetIfNewDay()

	limit, ok := t.limits[provider]
	if !ok {
		return true
	}
	return float64(t.counts[provider]+n) <= float64(limit)*hardStopPct
}

// ProviderStatus reports usage for one provider.
type ProviderStatus struct {
	Used       int     `json:"used"`
	Limit      int     `json:"limit"`
	Pct        float64 `json:"pct"`
	WarnAt     int     `json:"warn_at"`
	HardStopAt int     `json:"hard_stop_at"`
}

// Status reports per-provider usage for the current day.
func (t *DailyTracker) Status() map[string]ProviderStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetIfNewDay()

	out := make(map[string]ProviderStatus, len(t.limits))
	for provider, limit := range t.limits {
		used := t.counts[provider]
		out[provider] = ProviderStatus{
			Used:       used,
			Limit:      limit,
			Pct:        float64(used) / float64(limit) * 100,
			WarnAt:     int(float64(limit) * warnPct),
			HardStopAt: int(float64(limit) * hardStopPct),
		}
	}
	return out
}
