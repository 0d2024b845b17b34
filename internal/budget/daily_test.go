package budget

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpendHardStopAtNinetyPercent(t *testing.T) {
	tr := NewDailyTracker(map[string]int{"alphavantage": 25}, nil)

	// 90% of 25 is 22.5, so 22 calls land and the 23rd is refused.
	for i := 0; i < 22; i++ {
		require.True(t, tr.Spend("alphavantage", 1), "call %d", i+1)
	}
	assert.False(t, tr.Spend("alphavantage", 1))
	assert.False(t, tr.CanSpend("alphavantage", 1))

	st := tr.Status()["alphavantage"]
	assert.Equal(t, 22, st.Used)
	assert.Equal(t, 22, st.HardStopAt)
}

func TestSpendDeniedLeavesCountUntouched(t *testing.T) {
	tr := NewDailyTracker(map[string]int{"fmp": 10}, nil)

	require.True(t, tr.Spend("fmp", 9))
	assert.False(t, tr.Spend("fmp", 1), "9+1 crosses 10*0.9")
	assert.Equal(t, 9, tr.Status()["fmp"].Used)
}

func TestUnknownProviderAlwaysAllowed(t *testing.T) {
	tr := NewDailyTracker(map[string]int{"fmp": 1}, nil)

	assert.True(t, tr.CanSpend("stocktwits", 1000))
	assert.True(t, tr.Spend("stocktwits", 1000))
}

func TestCountsResetAtMidnight(t *testing.T) {
	now := time.Date(2025, 6, 2, 23, 50, 0, 0, time.UTC)
	tr := NewDailyTracker(map[string]int{"coingecko": 10}, func() time.Time { return now })

	require.True(t, tr.Spend("coingecko", 9))
	require.False(t, tr.CanSpend("coingecko", 1))

	now = now.Add(20 * time.Minute)
	assert.True(t, tr.CanSpend("coingecko", 1))
	assert.Equal(t, 0, tr.Status()["coingecko"].Used)
}

func TestDefaultLimitsCoverCandleChain(t *testing.T) {
	limits := DefaultDailyLimits()
	for _, p := range []string{"finnhub", "polygon", "alphavantage"} {
		assert.Contains(t, limits, p)
	}
}
