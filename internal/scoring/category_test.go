package scoring

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketScan/internal/domain/models"
	"MarketScan/pkg/util"
)

func strongTradesCandidate(symbol string) *models.Candidate {
	return &models.Candidate{
		Symbol: symbol,
		Quote:  &models.Quote{Price: 52, ChangePct: 4.0, Volume: 3_000_000},
		Overview: &models.Overview{
			AvgVolume: util.Float64Ptr(1_000_000),
			MarketCap: util.Float64Ptr(800e6),
		},
		Technicals: &models.Indicators{
			RSI:           util.Float64Ptr(58),
			SMA20:         util.Float64Ptr(51),
			SMA50:         util.Float64Ptr(48),
			MACD:          util.Float64Ptr(0.8),
			MACDSignal:    util.Float64Ptr(0.5),
			MACDHistogram: util.Float64Ptr(0.3),
		},
		Sentiment: &models.Sentiment{BullPct: 78},
	}
}

func TestScoreTradesRewardsFreshSetups(t *testing.T) {
	// Fresh setup on 3x volume: every component contributes.
	strong := ScoreTrades(strongTradesCandidate("FRESH"))
	assert.Greater(t, strong, 80.0)

	// Extended mover with no volume and overbought RSI scores low.
	extended := &models.Candidate{
		Symbol: "CHASE",
		Quote:  &models.Quote{Price: 100, ChangePct: 18, Volume: 900_000},
		Overview: &models.Overview{
			AvgVolume: util.Float64Ptr(1_000_000),
		},
		Technicals: &models.Indicators{
			RSI:   util.Float64Ptr(82),
			SMA20: util.Float64Ptr(80),
			SMA50: util.Float64Ptr(70),
		},
	}
	assert.Less(t, ScoreTrades(extended), 30.0)
}

func TestScoreTradesMissingDataSkipsTerms(t *testing.T) {
	bare := &models.Candidate{Symbol: "BARE"}
	assert.Equal(t, 0.0, ScoreTrades(bare))

	quoteOnly := &models.Candidate{
		Symbol: "QONLY",
		Quote:  &models.Quote{Price: 10, ChangePct: 3, Volume: 500_000},
	}
	// No avg volume, no technicals, no sentiment: nothing to add.
	assert.Equal(t, 0.0, ScoreTrades(quoteOnly))
}

func TestScoreBearishOnBreakdown(t *testing.T) {
	c := &models.Candidate{
		Symbol: "DUMP",
		Quote:  &models.Quote{Price: 40, ChangePct: -8, Volume: 5_000_000},
		Overview: &models.Overview{
			AvgVolume: util.Float64Ptr(1_000_000),
		},
		Technicals: &models.Indicators{
			SMA20:      util.Float64Ptr(45),
			SMA50:      util.Float64Ptr(48),
			MACD:       util.Float64Ptr(-0.5),
			MACDSignal: util.Float64Ptr(-0.2),
		},
	}
	// change 16 + below sma20 15 + below sma50 15 + macd 15 + down on volume 10
	assert.Equal(t, 71.0, ScoreBearish(c))
}

func TestScoreSqueezeShortFloatTiers(t *testing.T) {
	base := &models.Candidate{Symbol: "SQZ"}
	assert.Equal(t, 0.0, ScoreSqueeze(base))

	base.Overview = &models.Overview{ShortFloat: util.Float64Ptr(35)}
	assert.Equal(t, 30.0, ScoreSqueeze(base))

	base.Overview.ShortFloat = util.Float64Ptr(12)
	assert.Equal(t, 10.0, ScoreSqueeze(base))
}

func TestScoreInvestmentsFundamentals(t *testing.T) {
	c := &models.Candidate{
		Symbol: "GROW",
		Overview: &models.Overview{
			RevenueGrowth: util.Float64Ptr(0.45),
			EBITDAMargin:  util.Float64Ptr(0.35),
			ProfitMargin:  util.Float64Ptr(0.25),
			PSRatio:       util.Float64Ptr(1.5),
			PERatio:       util.Float64Ptr(12),
		},
		Earnings: []models.EarningsReport{
			{SurprisePct: 3.2}, {SurprisePct: 1.1}, {SurprisePct: 5.0}, {SurprisePct: -0.5},
		},
		Insider: &models.InsiderSentiment{MSPR: 12},
	}
	// 15+10+10+12+13 fundamentals/valuation, 15 beats, 10 insider
	assert.Equal(t, 85.0, ScoreInvestments(c))
}

func TestScoreSmallCapGates(t *testing.T) {
	mk := func(mcap float64) *models.Candidate {
		c := strongTradesCandidate("SC")
		c.Overview.MarketCap = util.Float64Ptr(mcap)
		return c
	}
	base := ScoreTrades(strongTradesCandidate("SC"))

	assert.Equal(t, 0.0, ScoreSmallCap(mk(11e9)))
	assert.InDelta(t, round1(base*0.3), ScoreSmallCap(mk(3e9)), 0.05)
	assert.InDelta(t, round1(base*0.9), ScoreSmallCap(mk(600e6)), 0.05)
	assert.InDelta(t, round1(math.Min(base*1.1, 100)), ScoreSmallCap(mk(200e6)), 0.05)
	assert.InDelta(t, round1(base*0.7), ScoreSmallCap(mk(30e6)), 0.05)
}

func TestMarketCapFilter(t *testing.T) {
	mk := func(mcap float64) *models.Candidate {
		return &models.Candidate{Symbol: "X", MarketCap: util.Float64Ptr(mcap)}
	}

	assert.True(t, PassesMarketCapFilter(&models.Candidate{Symbol: "NOCAP"}, models.CategoryTrades))
	assert.False(t, PassesMarketCapFilter(mk(50e6), models.CategoryTrades))
	assert.True(t, PassesMarketCapFilter(mk(500e6), models.CategoryTrades))
	assert.False(t, PassesMarketCapFilter(mk(200e9), models.CategoryTrades))
	assert.False(t, PassesMarketCapFilter(mk(3e9), models.CategorySmallCapSpec))
	assert.False(t, PassesMarketCapFilter(mk(20e9), models.CategorySqueeze))
}

func TestAdjustForMarketCapCurve(t *testing.T) {
	mk := func(mcap float64) *models.Candidate {
		return &models.Candidate{Symbol: "X", MarketCap: util.Float64Ptr(mcap)}
	}

	assert.InDelta(t, 57.5, AdjustForMarketCap(50, mk(300e6), models.CategoryTrades), 1e-9)
	assert.InDelta(t, 55.0, AdjustForMarketCap(50, mk(1e9), models.CategoryTrades), 1e-9)
	assert.InDelta(t, 52.5, AdjustForMarketCap(50, mk(5e9), models.CategoryTrades), 1e-9)
	assert.InDelta(t, 50.0, AdjustForMarketCap(50, mk(20e9), models.CategoryTrades), 1e-9)
	assert.InDelta(t, 45.0, AdjustForMarketCap(50, mk(100e9), models.CategoryTrades), 1e-9)
	assert.InDelta(t, 35.0, AdjustForMarketCap(50, mk(200e9), models.CategoryBearish), 1e-9)

	// Small-cap category opts out of the tilt.
	assert.InDelta(t, 50.0, AdjustForMarketCap(50, mk(300e6), models.CategorySmallCapSpec), 1e-9)
	// Unknown caps pass through.
	assert.InDelta(t, 50.0, AdjustForMarketCap(50, &models.Candidate{}, models.CategoryTrades), 1e-9)
}

func TestRankFiltersScoresAndTruncates(t *testing.T) {
	var candidates []*models.Candidate
	for i := 0; i < 15; i++ {
		c := strongTradesCandidate(fmt.Sprintf("T%02d", i))
		// Spread volume so scores differ.
		c.Quote.Volume = float64(1_000_000 + i*300_000)
		candidates = append(candidates, c)
	}
	// One over the ceiling, should be filtered.
	over := strongTradesCandidate("HUGE")
	over.Overview.MarketCap = util.Float64Ptr(200e9)
	candidates = append(candidates, over)

	ranked := Rank(candidates, models.CategoryTrades, 12)
	require.Len(t, ranked, 12)
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].Score, ranked[i].Score)
	}
	for _, r := range ranked {
		assert.NotEqual(t, "HUGE", r.Symbol)
		require.NotNil(t, r.Candidate.CategoryScore)
		assert.Equal(t, r.Score, *r.Candidate.CategoryScore)
	}
}

func TestScoreTradesFallsBackToScreenerVolume(t *testing.T) {
	// A quote source that omits volume must not zero the
	// volume-confirmation terms; the screener row stands in.
	noQuoteVol := strongTradesCandidate("NOVOL")
	noQuoteVol.Quote.Volume = 0
	noQuoteVol.Volume = util.Float64Ptr(3_000_000)

	full := strongTradesCandidate("NOVOL")
	assert.Equal(t, ScoreTrades(full), ScoreTrades(noQuoteVol))
	assert.Greater(t, ScoreTrades(noQuoteVol), 80.0)

	// With neither volume present the terms genuinely drop out.
	none := strongTradesCandidate("NOVOL")
	none.Quote.Volume = 0
	assert.Less(t, ScoreTrades(none), ScoreTrades(noQuoteVol))
}

func TestScoreDispatchesPerCategory(t *testing.T) {
	c := strongTradesCandidate("DISP")
	assert.Equal(t, ScoreTrades(c), Score(c, models.CategoryTrades))
	assert.Equal(t, ScoreTrades(c), Score(c, models.CategoryVolumeSpikes))
	assert.Equal(t, ScoreInvestments(c), Score(c, models.CategoryInvestments))
	assert.Equal(t, ScoreSqueeze(c), Score(c, models.CategorySqueeze))
	assert.Equal(t, ScoreBearish(c), Score(c, models.CategoryBearish))
	assert.Zero(t, Score(c, models.Category("made_up")))
}
