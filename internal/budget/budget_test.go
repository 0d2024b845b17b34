package budget

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketScan/internal/domain/models"
)

func TestTickSpendsWeightedPoints(t *testing.T) {
	b := New(10, time.Hour)

	b.Tick(OpQuote)        // 1
	b.Tick(OpFundamentals) // 4
	b.Tick(OpScreener)     // 3

	s := b.Snapshot()
	assert.Equal(t, 8, s.PointsSpent)
	assert.True(t, b.CanContinue())

	b.Tick(OpCandles) // 2, crosses 10
	assert.False(t, b.CanContinue())
}

func TestCanContinueStaysFalse(t *testing.T) {
	b := New(1, time.Hour)
	b.Tick(OpQuote)

	require.False(t, b.CanContinue())
	b.RecordCacheHit()
	assert.False(t, b.CanContinue(), "cache hits never restore budget")
}

func TestTimeCeiling(t *testing.T) {
	now := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	b := New(1000, 45*time.Second, WithClock(clock))

	assert.True(t, b.CanContinue())

	now = now.Add(44 * time.Second)
	assert.True(t, b.CanContinue())

	now = now.Add(2 * time.Second)
	assert.False(t, b.CanContinue())
}

func TestUnknownKindCostsOne(t *testing.T) {
	b := New(10, time.Hour)
	b.Tick(OpKind("mystery"))
	assert.Equal(t, 1, b.Snapshot().PointsSpent)
}

func TestMarkExhaustedFirstWins(t *testing.T) {
	b := New(1, time.Hour)
	b.MarkExhausted(models.PhaseLightEnrichment)
	b.MarkExhausted(models.PhaseDeepEnrichment)

	assert.Equal(t, models.PhaseLightEnrichment, b.ExhaustedPhase())
}

func TestSnapshotCounters(t *testing.T) {
	b := New(5, time.Hour)
	b.RecordCacheHit()
	b.RecordCacheHit()
	b.RecordBlocked()

	s := b.Snapshot()
	assert.Equal(t, 2, s.CacheHits)
	assert.Equal(t, 1, s.Blocked)
	assert.Equal(t, 5, s.MaxPoints)
	assert.Empty(t, s.ExhaustedPhase)
}
