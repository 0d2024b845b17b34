// Package scoring holds the pure, deterministic scoring formulas of the
// pipeline. Nothing here performs I/O; scorers take a candidate snapshot and
// return a 0-100 score, skipping terms whose inputs are missing.
package scoring

import (
	"math"
	"sort"

	"MarketScan/internal/domain/models"
)

const defaultMarketCapCeiling = 150e9

// Per-category market cap bands. A zero ceiling means uncapped.
var (
	categoryCaps = map[models.Category]float64{
		models.CategorySmallCapSpec:   2e9,
		models.CategorySqueeze:        10e9,
		models.CategorySocialMomentum: 50e9,
		models.CategoryVolumeSpikes:   150e9,
		models.CategoryMarketScan:     150e9,
		models.CategoryTrades:         150e9,
		models.CategoryInvestments:    150e9,
		models.CategoryFundamentals:   150e9,
		models.CategoryAsymmetric:     50e9,
		models.CategoryBearish:        150e9,
	}

	categoryFloors = map[models.Category]float64{
		models.CategorySmallCapSpec:   50e6,
		models.CategorySqueeze:        50e6,
		models.CategorySocialMomentum: 30e6,
		models.CategoryVolumeSpikes:   50e6,
		models.CategoryMarketScan:     100e6,
		models.CategoryTrades:         100e6,
		models.CategoryInvestments:    100e6,
		models.CategoryFundamentals:   100e6,
		models.CategoryAsymmetric:     50e6,
		models.CategoryBearish:        100e6,
	}
)

// Score dispatches to the category's formula. Categories are validated at
// the request boundary; anything unrecognized here scores zero rather than
// borrowing another category's formula.
func Score(c *models.Candidate, category models.Category) float64 {
	switch category {
	case models.CategoryMarketScan, models.CategoryTrades,
		models.CategoryVolumeSpikes, models.CategorySocialMomentum:
		return ScoreTrades(c)
	case models.CategoryInvestments, models.CategoryAsymmetric:
		return ScoreInvestments(c)
	case models.CategorySqueeze:
		return ScoreSqueeze(c)
	case models.CategoryFundamentals:
		return ScoreFundamentals(c)
	case models.CategoryBearish:
		return ScoreBearish(c)
	case models.CategorySmallCapSpec:
		return ScoreSmallCap(c)
	default:
		return 0
	}
}

// PassesMarketCapFilter reports whether the candidate fits the category's
// market cap band. Unknown caps always pass.
func PassesMarketCapFilter(c *models.Candidate, category models.Category) bool {
	mcp := c.EffectiveMarketCap()
	if mcp == nil {
		return true
	}
	mc := *mcp

	ceiling, ok := categoryCaps[category]
	if !ok {
		ceiling = defaultMarketCapCeiling
	}
	if ceiling > 0 && mc > ceiling {
		return false
	}
	if floor := categoryFloors[category]; floor > 0 && mc < floor {
		return false
	}
	return true
}

// AdjustForMarketCap tilts a base score toward smaller caps. The small-cap
// category already bakes in its own cap handling and is left alone.
func AdjustForMarketCap(base float64, c *models.Candidate, category models.Category) float64 {
	if category == models.CategorySmallCapSpec {
		return base
	}
	mcp := c.EffectiveMarketCap()
	if mcp == nil {
		return base
	}
	mc := *mcp
	switch {
	case mc < 500e6:
		return base * 1.15
	case mc < 2e9:
		return base * 1.10
	case mc < 10e9:
		return base * 1.05
	case mc < 50e9:
		return base
	case mc < 150e9:
		return base * 0.90
	default:
		return base * 0.70
	}
}

// Rank filters candidates by the category's market cap band, scores each,
// applies the cap adjustment and returns the top N by adjusted score.
// The sort is stable so equal scores keep input order.
func Rank(candidates []*models.Candidate, category models.Category, topN int) []models.ScoredCandidate {
	if topN <= 0 {
		topN = 12
	}

	scored := make([]models.ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c == nil || !PassesMarketCapFilter(c, category) {
			continue
		}
		adjusted := round1(AdjustForMarketCap(Score(c, category), c, category))
		c.CategoryScore = &adjusted
		scored = append(scored, models.ScoredCandidate{Symbol: c.Symbol, Score: adjusted, Candidate: c})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > topN {
		scored = scored[:topN]
	}
	return scored
}

// ScoreTrades scores short-term trading setup quality. It rewards setups
// rather than stocks that already moved: volume confirmation 25, technical
// alignment 30, momentum quality 20, sentiment tailwind 15, freshness 10.
func ScoreTrades(c *models.Candidate) float64 {
	var score float64

	volRatio := volumeRatio(c)
	switch {
	case volRatio >= 5.0:
		score += 25
	case volRatio >= 3.0:
		score += 22
	case volRatio >= 2.0:
		score += 17
	case volRatio >= 1.5:
		score += 10
	case volRatio >= 1.0:
		score += 4
	}

	var taPoints float64
	t := c.Technicals
	price := quotePrice(c)
	if t != nil {
		if price > 0 && t.SMA20 != nil && price > *t.SMA20 {
			taPoints += 6
		}
		if price > 0 && t.SMA50 != nil && price > *t.SMA50 {
			taPoints += 6
		}
		if t.MACD != nil && t.MACDSignal != nil && *t.MACD > *t.MACDSignal {
			taPoints += 7
		}
		if t.MACDHistogram != nil && *t.MACDHistogram > 0 {
			taPoints += 5
		}
		if t.RSI != nil {
			switch rsi := *t.RSI; {
			case rsi >= 50 && rsi <= 65:
				taPoints += 6
			case rsi >= 40 && rsi < 50:
				taPoints += 4
			case rsi > 65 && rsi <= 70:
				taPoints += 3
			case rsi >= 30 && rsi < 40:
				taPoints += 2
			}
		}
	}
	score += math.Min(taPoints, 30)

	if c.Quote != nil {
		change := c.Quote.ChangePct
		switch {
		case change >= 2 && change <= 8 && volRatio >= 2.0:
			score += 20
		case change >= 1 && change <= 15 && volRatio >= 3.0:
			score += 18
		case change > 8 && change <= 15 && volRatio >= 2.0:
			score += 14
		case change > 0 && change <= 2 && volRatio >= 2.0:
			score += 12
		case change > 15 && volRatio >= 2.0:
			score += 8
		case change > 15:
			score += 2
		}
	}

	score += sentimentPoints(c, 75, 65, 55, 45, 15, 12, 8, 4)

	if t != nil && price > 0 && t.SMA20 != nil && *t.SMA20 > 0 {
		dist := (price - *t.SMA20) / *t.SMA20 * 100
		switch {
		case dist >= 0 && dist <= 3:
			score += 10
		case dist > 3 && dist <= 6:
			score += 7
		case dist > 6 && dist <= 10:
			score += 4
		case dist > 10:
			score += 1
		default:
			score += 2
		}
	}

	return round1(math.Min(score, 100))
}

// ScoreInvestments scores long-term investment potential: fundamentals 35,
// valuation 25, earnings consistency 20, momentum 10, insider 10, plus a
// small sentiment bonus.
func ScoreInvestments(c *models.Candidate) float64 {
	var score float64
	o := c.Overview

	if o != nil {
		if o.RevenueGrowth != nil {
			switch rg := *o.RevenueGrowth; {
			case rg > 0.40:
				score += 15
			case rg > 0.25:
				score += 12
			case rg > 0.15:
				score += 9
			case rg > 0.05:
				score += 5
			}
		}
		if o.EBITDAMargin != nil {
			switch em := *o.EBITDAMargin; {
			case em > 0.30:
				score += 10
			case em > 0.20:
				score += 8
			case em > 0.10:
				score += 5
			case em > 0:
				score += 3
			}
		}
		if o.ProfitMargin != nil {
			switch pm := *o.ProfitMargin; {
			case pm > 0.20:
				score += 10
			case pm > 0.10:
				score += 7
			case pm > 0:
				score += 3
			}
		}
		if o.PSRatio != nil {
			switch ps := *o.PSRatio; {
			case ps < 2:
				score += 12
			case ps < 5:
				score += 9
			case ps < 10:
				score += 5
			case ps < 20:
				score += 2
			}
		}
		if o.PERatio != nil {
			switch pe := *o.PERatio; {
			case pe > 0 && pe < 15:
				score += 13
			case pe >= 15 && pe < 25:
				score += 10
			case pe >= 25 && pe < 40:
				score += 6
			case pe >= 40 && pe < 60:
				score += 2
			}
		}
	}

	score += earningsBeats(c) * 5

	if t := c.Technicals; t != nil && t.SMA50 != nil {
		if price := quotePrice(c); price > 0 {
			if price > *t.SMA50 {
				score += 10
			} else {
				score += 2
			}
		}
	}

	if c.Insider != nil {
		switch mspr := c.Insider.MSPR; {
		case mspr > 5:
			score += 10
		case mspr > 0:
			score += 6
		case mspr < -5:
		default:
			score += 3
		}
	}

	score += sentimentBonus(c)

	return round1(math.Min(score, 100))
}

// ScoreSqueeze scores short squeeze potential: short interest 30, volume
// surge 25, price action 20, social buzz 15, technicals 10.
func ScoreSqueeze(c *models.Candidate) float64 {
	var score float64

	if c.Overview != nil && c.Overview.ShortFloat != nil {
		switch sf := *c.Overview.ShortFloat; {
		case sf > 30:
			score += 30
		case sf > 20:
			score += 24
		case sf > 15:
			score += 18
		case sf > 10:
			score += 10
		}
	}

	switch ratio := volumeRatio(c); {
	case ratio >= 5.0:
		score += 25
	case ratio >= 3.0:
		score += 20
	case ratio >= 2.0:
		score += 15
	case ratio >= 1.5:
		score += 8
	}

	if c.Quote != nil {
		switch change := c.Quote.ChangePct; {
		case change > 10:
			score += 20
		case change > 5:
			score += 15
		case change > 2:
			score += 10
		case change > 0:
			score += 5
		}
	}

	if s := c.Sentiment; s != nil {
		switch {
		case s.BullPct >= 80:
			score += 10
		case s.BullPct >= 65:
			score += 7
		case s.BullPct >= 50:
			score += 4
		}
		switch {
		case s.Watchers >= 10000:
			score += 5
		case s.Watchers >= 5000:
			score += 3
		case s.Watchers >= 1000:
			score += 1
		}
	}

	if t := c.Technicals; t != nil {
		price := quotePrice(c)
		if price > 0 && t.SMA20 != nil && price > *t.SMA20 {
			score += 5
		}
		if t.RSI != nil && *t.RSI >= 50 && *t.RSI <= 75 {
			score += 5
		}
	}

	return round1(math.Min(score, 100))
}

// ScoreFundamentals scores improving fundamentals: revenue growth 30, margin
// expansion 30, earnings beats 20, valuation 20, plus a sentiment bonus.
func ScoreFundamentals(c *models.Candidate) float64 {
	var score float64
	o := c.Overview

	if o != nil {
		if o.RevenueGrowth != nil {
			switch rg := *o.RevenueGrowth; {
			case rg > 0.50:
				score += 30
			case rg > 0.30:
				score += 25
			case rg > 0.20:
				score += 20
			case rg > 0.10:
				score += 12
			case rg > 0:
				score += 5
			}
		}
		if o.EBITDAMargin != nil {
			switch em := *o.EBITDAMargin; {
			case em > 0.30:
				score += 15
			case em > 0.15:
				score += 12
			case em > 0.05:
				score += 8
			case em > 0:
				score += 5
			}
		}
		if o.ProfitMargin != nil {
			switch pm := *o.ProfitMargin; {
			case pm > 0.20:
				score += 15
			case pm > 0.10:
				score += 12
			case pm > 0:
				score += 8
			}
		}
		if o.PSRatio != nil {
			switch ps := *o.PSRatio; {
			case ps < 3:
				score += 20
			case ps < 6:
				score += 14
			case ps < 10:
				score += 8
			case ps < 15:
				score += 3
			}
		}
	}

	score += earningsBeats(c) * 5
	score += sentimentBonus(c)

	return round1(math.Min(score, 100))
}

// ScoreBearish scores breakdown potential. Higher means more bearish.
func ScoreBearish(c *models.Candidate) float64 {
	var score float64

	var change float64
	if c.Quote != nil {
		change = c.Quote.ChangePct
		if change < 0 {
			score += math.Min(math.Abs(change)*2, 25)
		}
	}

	t := c.Technicals
	price := quotePrice(c)
	if t != nil {
		if price > 0 && t.SMA20 != nil && price < *t.SMA20 {
			score += 15
		}
		if price > 0 && t.SMA50 != nil && price < *t.SMA50 {
			score += 15
		}
		if t.RSI != nil {
			switch rsi := *t.RSI; {
			case rsi > 80:
				score += 20
			case rsi > 70:
				score += 12
			}
		}
		if t.MACD != nil && t.MACDSignal != nil && *t.MACD < *t.MACDSignal {
			score += 15
		}
	}

	if change < 0 && volumeRatio(c) > 2.0 {
		score += 10
	}

	return round1(math.Min(score, 100))
}

// ScoreSmallCap is the trades formula with hard small-cap gating: over $10B
// zeroes out, over $2B is crushed, the $100M-$500M sweet spot gets a bonus.
func ScoreSmallCap(c *models.Candidate) float64 {
	base := ScoreTrades(c)

	if mcp := c.EffectiveMarketCap(); mcp != nil {
		switch mc := *mcp; {
		case mc > 10e9:
			return 0
		case mc > 2e9:
			base *= 0.3
		case mc > 500e6:
			base *= 0.9
		case mc > 100e6:
			base *= 1.1
		case mc > 50e6:
			// keep
		default:
			base *= 0.7
		}
	}

	return round1(math.Min(base, 100))
}

func quotePrice(c *models.Candidate) float64 {
	if c.Quote != nil {
		return c.Quote.Price
	}
	return 0
}

// volumeRatio is current volume over the tracked average, zero when either
// side is missing. Quote volume is preferred; the screener-supplied volume
// fills in for providers whose quote endpoint omits it.
func volumeRatio(c *models.Candidate) float64 {
	var cur float64
	if c.Quote != nil && c.Quote.Volume > 0 {
		cur = c.Quote.Volume
	} else if c.Volume != nil && *c.Volume > 0 {
		cur = *c.Volume
	}
	if cur <= 0 {
		return 0
	}
	var avg float64
	if c.Overview != nil && c.Overview.AvgVolume != nil {
		avg = *c.Overview.AvgVolume
	} else if c.Technicals != nil && c.Technicals.AvgVolume > 0 {
		avg = c.Technicals.AvgVolume
	}
	if avg <= 0 {
		return 0
	}
	return cur / avg
}

func sentimentPoints(c *models.Candidate, t1, t2, t3, t4, p1, p2, p3, p4 float64) float64 {
	if c.Sentiment == nil {
		return 0
	}
	switch bull := c.Sentiment.BullPct; {
	case bull >= t1:
		return p1
	case bull >= t2:
		return p2
	case bull >= t3:
		return p3
	case bull >= t4:
		return p4
	}
	return 0
}

func sentimentBonus(c *models.Candidate) float64 {
	if c.Sentiment == nil {
		return 0
	}
	switch {
	case c.Sentiment.BullPct >= 70:
		return 5
	case c.Sentiment.BullPct >= 55:
		return 3
	}
	return 0
}

// earningsBeats counts positive surprises in the last four reports.
func earningsBeats(c *models.Candidate) float64 {
	reports := c.Earnings
	if len(reports) > 4 {
		reports = reports[:4]
	}
	var beats float64
	for _, e := range reports {
		if e.SurprisePct > 0 {
			beats++
		}
	}
	return beats
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
