package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowConsumesAndDenies(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	l := New(WithClock(func() time.Time { return now }))

	assert.True(t, l.Allow("finnhub", 2, 1))
	assert.True(t, l.Allow("finnhub", 2, 1))
	assert.False(t, l.Allow("finnhub", 2, 1))
}

func TestAllowRefillsOverTime(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	l := New(WithClock(func() time.Time { return now }))

	assert.True(t, l.Allow("fmp", 1, 0.5))
	assert.False(t, l.Allow("fmp", 1, 0.5))

	now = now.Add(2 * time.Second)
	assert.True(t, l.Allow("fmp", 1, 0.5))
}

func TestAllowCapsAtCapacity(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	l := New(WithClock(func() time.Time { return now }))

	assert.True(t, l.Allow("polygon", 2, 10))
	now = now.Add(time.Hour)

	assert.True(t, l.Allow("polygon", 2, 10))
	assert.True(t, l.Allow("polygon", 2, 10))
	assert.False(t, l.Allow("polygon", 2, 10))
}

func TestKeysAreIndependent(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	l := New(WithClock(func() time.Time { return now }))

	assert.True(t, l.Allow("a", 1, 0))
	assert.False(t, l.Allow("a", 1, 0))
	assert.True(t, l.Allow("b", 1, 0))
}
