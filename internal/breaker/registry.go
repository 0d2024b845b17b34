package breaker

import (
	"sync"
	"time"
)

// DefaultCooldown is how long a tripped provider stays disabled. Hard
// failures are provider-wide (revoked key, upstream outage), so tens of
// minutes is the right order of magnitude.
const DefaultCooldown = 30 * time.Minute

// circuit holds per-provider breaker state.
type circuit struct {
	disabledUntil time.Time
	consecutive   int
}

// Registry tracks a disabled-until timestamp per provider. The breaker
// opens on hard failure classes and auto-closes once the cooldown elapses;
// no half-open probing, just a timestamp comparison. Process-wide, shared
// across scan invocations.
type Registry struct {
	mu       sync.Mutex
	circuits map[string]*circuit
	cooldown time.Duration
	now      func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithCooldown overrides the open-state cooldown.
func WithCooldown(d time.Duration) Option {
	return func(r *Registry) { r.cooldown = d }
}

// WithClock injects a clock for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates an empty registry with all circuits closed.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		circuits: make(map[string]*circuit),
		cooldown: DefaultCooldown,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Allow reports whether the provider may be called. A provider whose
// cooldown has elapsed is allowed again; it must fail hard once more to
// reopen.
func (r *Registry) Allow(provider string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.circuits[provider]
	if !ok {
		return true
	}
	if r.now().Before(c.disabledUntil) {
		return false
	}
	// Cooldown elapsed: close the circuit so the next failure starts a
	// fresh count.
	delete(r.circuits, provider)
	return true
}

// Trip opens the provider's breaker for the cooldown window. Re-tripping
// an already-open breaker just extends the window; writes are idempotent.
func (r *Registry) Trip(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.circuits[provider]
	if !ok {
		c = &circuit{}
		r.circuits[provider] = c
	}
	c.consecutive++
	c.disabledUntil = r.now().Add(r.cooldown)
}

// Reset closes the provider's breaker immediately.
func (r *Registry) Reset(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.circuits, provider)
}

// DisabledUntil returns the open-until timestamp, zero if closed.
func (r *Registry) DisabledUntil(provider string) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.circuits[provider]; ok {
		return c.disabledUntil
	}
	return time.Time{}
}

// Open reports per-provider open state for observability payloads.
func (r *Registry) Open() map[string]time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]time.Time)
	now := r.now()
	for provider, c := range r.circuits {
		if now.Before(c.disabledUntil) {
			out[provider] = c.disabledUntil
		}
	}
	return out
}
