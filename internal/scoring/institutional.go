package scoring

import (
	"math"
	"sort"
	"strings"

	"MarketScan/internal/domain/models"
)

// Institutional conviction weights. Catalyst and technicals carry the score;
// social buzz is deliberately light.
const (
	instWeightTechnical = 0.30
	instWeightCatalyst  = 0.30
	instWeightSector    = 0.20
	instWeightSocial    = 0.10
	instWeightLiquidity = 0.10

	instSmallCapBonus       = 5
	instBonusMinCatalyst    = 70
	instBonusMinSector      = 65
	instBonusMcapCeiling    = 2e9
)

// ScoreInstitutional computes the institutional conviction score for one
// candidate and attaches the breakdown. Sub-scores missing their inputs
// settle at a neutral 50 rather than dragging the total down.
func ScoreInstitutional(c *models.Candidate) float64 {
	technical := instTechnicalScore(c)
	catalyst := scoreCatalyst(c).Score
	sector := scoreSectorAlignment(c).Score
	social := instSocialScore(c)
	liquidity := instLiquidityScore(c)

	total := instWeightTechnical*technical + instWeightCatalyst*catalyst +
		instWeightSector*sector + instWeightSocial*social + instWeightLiquidity*liquidity

	// Small caps with a confirmed catalyst in an aligned sector get a nudge.
	if mcp := c.EffectiveMarketCap(); mcp != nil && *mcp < instBonusMcapCeiling &&
		catalyst >= instBonusMinCatalyst && sector >= instBonusMinSector {
		total += instSmallCapBonus
	}

	total = round1(math.Min(total, 100))
	c.Breakdown = &models.ScoreBreakdown{
		Total: total,
		SubScores: map[string]models.SubScore{
			"technical": {Score: technical, Weight: instWeightTechnical},
			"catalyst":  {Score: catalyst, Weight: instWeightCatalyst},
			"sector":    {Score: sector, Weight: instWeightSector},
			"social":    {Score: social, Weight: instWeightSocial},
			"liquidity": {Score: liquidity, Weight: instWeightLiquidity},
		},
	}
	return total
}

// RankInstitutional scores every candidate in place and returns the set
// sorted by conviction, highest first. Enrichment only: nothing is dropped.
func RankInstitutional(candidates []*models.Candidate) []*models.Candidate {
	out := make([]*models.Candidate, 0, len(candidates))
	scores := make(map[string]float64, len(candidates))
	for _, c := range candidates {
		if c == nil {
			continue
		}
		scores[c.Symbol] = ScoreInstitutional(c)
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return scores[out[i].Symbol] > scores[out[j].Symbol]
	})
	return out
}

// instTechnicalScore starts neutral at 50 and leans on RSI placement, moving
// average structure, volume confirmation and a sane day move.
func instTechnicalScore(c *models.Candidate) float64 {
	t := c.Technicals
	if t == nil {
		return 50
	}

	score := 50.0

	if t.RSI != nil {
		switch rsi := *t.RSI; {
		case rsi >= 40 && rsi <= 70:
			score += 15
		case (rsi >= 30 && rsi < 40) || (rsi > 70 && rsi <= 80):
			score += 5
		case rsi > 80:
			score -= 10
		case rsi < 30:
			score += 8
		}
	}

	if price := quotePrice(c); price > 0 {
		for _, sma := range []*float64{t.SMA20, t.SMA50, t.SMA200} {
			if sma != nil && *sma > 0 && price > *sma {
				score += 5
			}
		}
	}

	switch ratio := volumeRatio(c); {
	case ratio >= 3.0:
		score += 15
	case ratio >= 2.0:
		score += 10
	case ratio >= 1.5:
		score += 5
	}

	if c.Quote != nil {
		switch chg := c.Quote.ChangePct; {
		case chg >= 1 && chg <= 10:
			score += 5
		case chg > 15:
			score -= 5
		}
	}

	return clamp100(score)
}

// instSocialScore starts neutral and shifts with StockTwits breadth and the
// X read. Bearish X sentiment pulls it under 50.
func instSocialScore(c *models.Candidate) float64 {
	if c.Sentiment == nil && c.XAnalysis == nil {
		return 50
	}

	score := 30.0

	if s := c.Sentiment; s != nil {
		switch {
		case s.BullPct > 75:
			score += 25
		case s.BullPct > 60:
			score += 15
		case s.BullPct > 50:
			score += 5
		}
		if s.Watchers > 0 {
			score += 10
		}
	}

	if x := c.XAnalysis; x != nil {
		sent := strings.ToLower(x.Sentiment)
		switch {
		case strings.Contains(sent, "bullish"):
			score += 20
		case strings.Contains(sent, "mixed"):
			score += 10
		case strings.Contains(sent, "bearish"):
			score -= 10
		}
	}

	return clamp100(score)
}

// instLiquidityScore rewards size and tape depth. Sub-$50M caps are treated
// as a liquidity hazard.
func instLiquidityScore(c *models.Candidate) float64 {
	score := 50.0

	if mcp := c.EffectiveMarketCap(); mcp != nil {
		switch mc := *mcp; {
		case mc > 10e9:
			score += 30
		case mc > 2e9:
			score += 20
		case mc > 500e6:
			score += 10
		case mc > 100e6:
			score += 5
		case mc < 50e6:
			score -= 20
		}
	}

	switch ratio := volumeRatio(c); {
	case ratio >= 2.0:
		score += 15
	case ratio >= 1.0:
		score += 5
	}

	return clamp100(score)
}

func clamp100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
