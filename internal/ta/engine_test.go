package ta

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketScan/internal/domain/models"
)

func makeBars(closes []float64, volumes []int64) []models.Bar {
	bars := make([]models.Bar, len(closes))
	ts := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = models.Bar{
			Open:      c * 0.995,
			High:      c * 1.01,
			Low:       c * 0.99,
			Close:     c,
			Volume:    volumes[i],
			Timestamp: ts.Add(time.Duration(i) * 24 * time.Hour),
		}
	}
	return bars
}

func risingBars(n int, spikeLastVolume bool) []models.Bar {
	closes := make([]float64, n)
	volumes := make([]int64, n)
	for i := 0; i < n; i++ {
		closes[i] = 100 + float64(i)
		volumes[i] = 1_000_000
	}
	if spikeLastVolume {
		volumes[n-1] = 3_000_000
	}
	return makeBars(closes, volumes)
}

func fallingBars(n int) []models.Bar {
	closes := make([]float64, n)
	volumes := make([]int64, n)
	for i := 0; i < n; i++ {
		closes[i] = 200 - 1.5*float64(i)
		volumes[i] = 1_000_000
	}
	return makeBars(closes, volumes)
}

func TestAnalyzeTooFewBars(t *testing.T) {
	e := NewEngine()
	assert.Nil(t, e.Analyze("AAPL", risingBars(10, false), ""))
	assert.Nil(t, e.Analyze("AAPL", nil, ""))
}

func TestAnalyzeRisingSeriesWithVolumeSpike(t *testing.T) {
	e := NewEngine()
	res := e.Analyze("NVDA", risingBars(60, true), "")
	require.NotNil(t, res)

	assert.Equal(t, "NVDA", res.Symbol)
	assert.Equal(t, "long", res.Direction)
	assert.False(t, res.IsBearish)
	assert.Contains(t, res.SignalsStacking, SigVolumeSpike2x)
	assert.Contains(t, res.SignalsStacking, SigPriceAboveSMA50)
	assert.GreaterOrEqual(t, res.BullishCount(), 2)
	assert.Contains(t, []string{"Buy", "Strong Buy"}, res.Action)

	// Volume ratio: the final bar trades at 3x while the 20d average is
	// pulled up only slightly by the spike itself.
	assert.Greater(t, res.VolumeRatio, 2.0)

	// Long plan geometry: stop below entry, targets at 1R and 2R above.
	p := res.Plan
	assert.Less(t, p.Stop, p.Entry)
	require.Len(t, p.Targets, 2)
	assert.Greater(t, p.Targets[0], p.Entry)
	assert.Greater(t, p.Targets[1], p.Targets[0])
	risk := p.Entry - p.Stop
	assert.InDelta(t, p.Entry+2*risk, p.Targets[1], 0.03)
	assert.InDelta(t, 1.0, p.RiskReward, 0.06, "risk/reward is measured to the first target")
}

func TestAnalyzeFallingSeriesIsShort(t *testing.T) {
	e := NewEngine()
	res := e.Analyze("BADCO", fallingBars(60), "")
	require.NotNil(t, res)

	assert.Equal(t, "short", res.Direction)
	assert.True(t, res.IsBearish)
	assert.Equal(t, "Sell", res.Action)
	assert.Contains(t, res.SignalsStacking, SigPriceBelowSMA50)
	assert.Contains(t, res.SignalsStacking, SigBreakdownSupport)

	// Short plan geometry mirrors the long side.
	p := res.Plan
	assert.Greater(t, p.Stop, p.Entry)
	require.Len(t, p.Targets, 2)
	assert.Less(t, p.Targets[0], p.Entry)
	assert.Less(t, p.Targets[1], p.Targets[0])
}

func TestAnalyzeFlatSeriesWithoutConsensusIsNil(t *testing.T) {
	closes := make([]float64, 60)
	volumes := make([]int64, 60)
	for i := range closes {
		closes[i] = 100
		volumes[i] = 1_000_000
	}
	e := NewEngine()
	assert.Nil(t, e.Analyze("FLAT", makeBars(closes, volumes), ""))
}

func TestAnalyzeCatalystBumpsConfidence(t *testing.T) {
	e := NewEngine()
	plain := e.Analyze("NVDA", risingBars(60, true), "")
	flagged := e.Analyze("NVDA", risingBars(60, true), "news_scanner")
	require.NotNil(t, plain)
	require.NotNil(t, flagged)

	assert.Equal(t, "news_scanner", flagged.CatalystCheck)
	if plain.Confidence < maxConfidence {
		assert.Greater(t, flagged.Confidence, plain.Confidence)
	}
	assert.LessOrEqual(t, flagged.Confidence, maxConfidence)
}

func TestCompositeScore(t *testing.T) {
	bull := func(strength int) models.Signal {
		return models.Signal{Direction: models.Bullish, Strength: strength}
	}
	bear := func(strength int) models.Signal {
		return models.Signal{Direction: models.Bearish, Strength: strength}
	}

	t.Run("neutral baseline", func(t *testing.T) {
		assert.Equal(t, 50, compositeScore(nil, nil))
	})

	t.Run("stacking bonus at three bullish", func(t *testing.T) {
		two := compositeScore([]models.Signal{bull(50), bull(50)}, nil)
		three := compositeScore([]models.Signal{bull(50), bull(50), bull(0)}, nil)
		assert.Equal(t, two+10, three)
	})

	t.Run("clamped to 100", func(t *testing.T) {
		many := []models.Signal{bull(90), bull(90), bull(90), bull(90), bull(90), bull(90)}
		assert.Equal(t, 100, compositeScore(many, nil))
	})

	t.Run("clamped to 0", func(t *testing.T) {
		many := []models.Signal{bear(100), bear(100), bear(100), bear(100), bear(100)}
		assert.Equal(t, 0, compositeScore(nil, many))
	})
}

func TestClassifySetupPriority(t *testing.T) {
	sig := func(name string, dir models.Direction) models.Signal {
		return models.Signal{Name: name, Direction: dir}
	}

	cases := []struct {
		name      string
		signals   []models.Signal
		isBearish bool
		want      models.SetupType
	}{
		{
			name:      "breakdown short wins when bearish",
			signals:   []models.Signal{sig(SigBreakdownSupport, models.Bearish), sig(SigMACDBearCross, models.Bearish), sig(SigBreakoutPivot, models.Bullish)},
			isBearish: true,
			want:      models.SetupBreakdownShort,
		},
		{
			name:    "breakout beats trend",
			signals: []models.Signal{sig(SigBreakoutPivot, models.Bullish), sig(SigStage2Uptrend, models.Bullish)},
			want:    models.SetupBreakout,
		},
		{
			name:    "trend beats momentum",
			signals: []models.Signal{sig(SigSMA50AboveSMA200, models.Bullish), sig(SigRSIBullZone, models.Bullish), sig(SigVolumeExpansion, models.Bullish)},
			want:    models.SetupTrendContinuation,
		},
		{
			name:    "momentum needs rsi and volume expansion",
			signals: []models.Signal{sig(SigRSIBullZone, models.Bullish), sig(SigVolumeExpansion, models.Bullish)},
			want:    models.SetupMomentum,
		},
		{
			name:    "fallback",
			signals: []models.Signal{sig(SigVolumeSpike2x, models.Bullish)},
			want:    models.SetupTechnical,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classifySetup(tc.signals, tc.isBearish))
		})
	}
}

func TestTimeframeBySetup(t *testing.T) {
	assert.Equal(t, "1-3 days", timeframe(models.SetupBreakout))
	assert.Equal(t, "1-3 days", timeframe(models.SetupMomentum))
	assert.Equal(t, "1-5 days", timeframe(models.SetupBreakdownShort))
	assert.Equal(t, "2-6 weeks", timeframe(models.SetupTrendContinuation))
	assert.Equal(t, "2-6 weeks", timeframe(models.SetupTechnical))
}

func TestPatternLabelPriority(t *testing.T) {
	sig := func(name string) []models.Signal {
		return []models.Signal{{Name: name, Direction: models.Bullish}}
	}

	assert.Equal(t, "Stage 2 breakout", patternLabel(sig(SigStage2Uptrend), models.SetupBreakout))
	assert.Equal(t, "Pivot breakout", patternLabel(sig(SigBreakoutPivot), models.SetupBreakout))
	assert.Equal(t, "Range breakout", patternLabel(sig(SigRangeBreakout), models.SetupBreakout))
	assert.Equal(t, "EMA cross", patternLabel(sig(SigEMA20CrossEMA50), models.SetupTechnical))
	assert.Equal(t, "Support breakdown", patternLabel(sig(SigBreakdownSupport), models.SetupBreakdownShort))
	assert.Equal(t, "Momentum expansion", patternLabel(nil, models.SetupMomentum))
	assert.Equal(t, "Trend continuation", patternLabel(nil, models.SetupTrendContinuation))
	assert.Equal(t, "Technical setup", patternLabel(nil, models.SetupTechnical))
}

func TestActionThresholds(t *testing.T) {
	assert.Equal(t, "Sell", action(true, 95))
	assert.Equal(t, "Strong Buy", action(false, 80))
	assert.Equal(t, "Buy", action(false, 60))
	assert.Equal(t, "Hold", action(false, 59))
}
