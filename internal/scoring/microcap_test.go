package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketScan/internal/domain/models"
	"MarketScan/pkg/util"
)

func microCandidate(mcap float64) *models.Candidate {
	return &models.Candidate{
		Symbol:      "MCRO",
		Name:        "Micro Robotics Inc",
		SourceCount: 3,
		Sources:     []string{"Reddit_wallstreetbets", "StockTwits_trending", "X_Twitter"},
		MarketCap:   util.Float64Ptr(mcap),
		Quote:       &models.Quote{Price: 4.2, ChangePct: 12, Volume: 2_500_000},
		Overview: &models.Overview{
			Sector:        "Technology",
			Industry:      "Robotics",
			RevenueGrowth: util.Float64Ptr(0.8),
			AvgVolume:     util.Float64Ptr(1_200_000),
			Week52High:    util.Float64Ptr(9.0),
			Week52Low:     util.Float64Ptr(2.0),
		},
		Sentiment: &models.Sentiment{BullPct: 82},
		XAnalysis: &models.XSentiment{
			Sentiment:        "bullish",
			SentimentScore:   85,
			MentionIntensity: "high",
			Catalyst:         "DoD contract award plus FDA partnership rumors",
			WhyTrending:      "defense contract and AI narrative",
			Narratives:       []string{"ai robotics", "government funding"},
		},
		Analyst: &models.AnalystData{
			Consensus:     "Buy",
			TotalAnalysts: 4,
			UpsidePct:     util.Float64Ptr(60),
		},
	}
}

func TestScoreMicrocapBelowFloorIsRejected(t *testing.T) {
	c := microCandidate(30e6)
	res := ScoreMicrocap(c)

	assert.Equal(t, TierRejected, res.Tier)
	assert.Equal(t, 0.0, res.Score)
	assert.True(t, res.Disqualified)
	assert.NotEmpty(t, res.Reason)
}

func TestScoreMicrocapInstitutionalPassthrough(t *testing.T) {
	res := ScoreMicrocap(microCandidate(5e9))
	assert.Equal(t, TierInstitutional, res.Tier)
	assert.False(t, res.Disqualified)
	assert.Equal(t, 0.0, res.Score)
}

func TestScoreMicrocapTiers(t *testing.T) {
	assert.Equal(t, TierMicroCap, ScoreMicrocap(microCandidate(200e6)).Tier)
	assert.Equal(t, TierSmallCap, ScoreMicrocap(microCandidate(1e9)).Tier)
	assert.Equal(t, TierMicroCap, ScoreMicrocap(&models.Candidate{Symbol: "NOMC"}).Tier)
}

func TestScoreMicrocapStrongCandidate(t *testing.T) {
	res := ScoreMicrocap(microCandidate(200e6))

	require.False(t, res.Disqualified)
	assert.True(t, res.PassesSanity)
	assert.GreaterOrEqual(t, res.Score, float64(powerLawCutoff))
	assert.True(t, res.PowerLawFlag)

	require.Len(t, res.Breakdown.SubScores, 5)
	catalyst := res.Breakdown.SubScores["catalyst"]
	assert.GreaterOrEqual(t, catalyst.Score, 40.0)
	assert.NotEmpty(t, catalyst.Evidence)
	sector := res.Breakdown.SubScores["sector_alignment"]
	assert.Equal(t, 80.0, sector.Score)
}

func TestScoreMicrocapNoCatalystFailsSanity(t *testing.T) {
	c := &models.Candidate{
		Symbol:    "DULL",
		MarketCap: util.Float64Ptr(300e6),
		Overview:  &models.Overview{Sector: "Utilities"},
	}
	res := ScoreMicrocap(c)

	assert.True(t, res.Disqualified)
	assert.False(t, res.PassesSanity)
	assert.False(t, res.PowerLawFlag)
}

func TestInstitutionalScoreMonotonicInCatalyst(t *testing.T) {
	weak := microCandidate(5e9)
	weak.XAnalysis = nil
	weak.Analyst = nil
	weak.Overview.RevenueGrowth = nil

	strong := microCandidate(5e9)

	assert.Greater(t, ScoreInstitutional(strong), ScoreInstitutional(weak))
}

func TestInstitutionalSmallCapBonus(t *testing.T) {
	small := microCandidate(1e9)
	large := microCandidate(50e9)

	sSmall := ScoreInstitutional(small)
	sLarge := ScoreInstitutional(large)

	// Same signal set: the sub-$2B candidate earns the catalyst/sector bonus
	// while the large cap instead gets more liquidity credit.
	require.NotNil(t, small.Breakdown)
	cat := small.Breakdown.SubScores["catalyst"].Score
	sec := small.Breakdown.SubScores["sector"].Score
	require.GreaterOrEqual(t, cat, float64(instBonusMinCatalyst))
	require.GreaterOrEqual(t, sec, float64(instBonusMinSector))
	assert.Greater(t, sSmall, 0.0)
	assert.Greater(t, sLarge, 0.0)
}

func TestRankInstitutionalSortsWithoutDropping(t *testing.T) {
	a := microCandidate(5e9)
	a.Symbol = "AAA"
	b := &models.Candidate{Symbol: "BBB", MarketCap: util.Float64Ptr(5e9)}
	c := microCandidate(5e9)
	c.Symbol = "CCC"
	c.XAnalysis = nil

	ranked := RankInstitutional([]*models.Candidate{b, a, c})
	require.Len(t, ranked, 3)
	assert.Equal(t, "AAA", ranked[0].Symbol)
	for _, r := range ranked {
		require.NotNil(t, r.Breakdown)
	}
}
