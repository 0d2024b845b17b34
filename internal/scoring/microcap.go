package scoring

import (
	"fmt"
	"math"
	"strings"

	"MarketScan/internal/domain/models"
)

// Microcap tier boundaries and sanity gates.
const (
	McapFloor        = 50e6
	McapMicroCeiling = 500e6
	McapSmallCeiling = 2e9

	microMinCatalyst = 40
	microMinSector   = 35
	powerLawCutoff   = 65
)

// MicrocapTier classifies a ticker by market cap for the two-tier
// conviction split.
type MicrocapTier string

const (
	TierMicroCap      MicrocapTier = "micro_cap"
	TierSmallCap      MicrocapTier = "small_cap"
	TierInstitutional MicrocapTier = "institutional"
	TierRejected      MicrocapTier = "rejected"
)

var hotSectors = []string{
	"technology", "information technology", "software", "semiconductors",
	"ai", "artificial intelligence", "machine learning", "cloud",
	"defense", "aerospace", "aerospace & defense",
	"energy", "renewable energy", "solar", "uranium", "nuclear",
	"robotics", "automation",
	"biotech", "biotechnology", "pharmaceuticals", "healthcare",
	"critical minerals", "mining", "rare earth",
	"cybersecurity", "fintech", "blockchain",
	"quantum", "quantum computing",
	"space", "satellites",
	"electric vehicles", "ev", "battery",
}

var coldSectors = map[string]bool{
	"consumer cyclical":  true,
	"consumer defensive": true,
	"utilities":          true,
	"real estate":        true,
}

// CatalystKeywords are the verifiable-catalyst phrases matched against
// social text.
var CatalystKeywords = []string{
	"fda", "approval", "partnership", "contract", "acquisition", "merger",
	"deal", "agreement", "license", "patent", "milestone", "breakthrough",
	"launch", "product launch", "revenue", "earnings", "beat", "guidance",
	"upgrade", "initiated", "coverage", "target", "raised", "buy rating",
	"government", "dod", "defense contract", "grant", "funding",
	"ipo", "listing", "uplisting", "nasdaq", "nyse",
	"insider buying", "insider", "buyback", "repurchase",
	"trial", "phase 3", "phase 2", "clinical", "results", "data",
	"ai", "artificial intelligence", "llm", "gpu",
}

// MicrocapResult is the asymmetric-opportunity verdict for one ticker.
type MicrocapResult struct {
	Symbol       string                `json:"symbol"`
	Tier         MicrocapTier          `json:"tier"`
	MarketCap    *float64              `json:"mcap,omitempty"`
	Score        float64               `json:"microcap_score"`
	PassesSanity bool                  `json:"passes_sanity"`
	PowerLawFlag bool                  `json:"power_law_flag"`
	Disqualified bool                  `json:"disqualified"`
	Reason       string                `json:"reason,omitempty"`
	Breakdown    models.ScoreBreakdown `json:"breakdown"`
}

// ScoreMicrocap scores one candidate as an asymmetric small/micro-cap play.
// Large and mid caps are passed through untouched for institutional scoring;
// anything under the $50M floor is rejected outright.
func ScoreMicrocap(c *models.Candidate) *MicrocapResult {
	mcap := c.EffectiveMarketCap()
	tier := classifyMicrocapTier(mcap)

	if tier == TierInstitutional {
		return &MicrocapResult{
			Symbol:    c.Symbol,
			Tier:      TierInstitutional,
			MarketCap: mcap,
			Reason:    "large/mid-cap, use institutional scoring",
		}
	}

	if mcap != nil && *mcap < McapFloor {
		return &MicrocapResult{
			Symbol:       c.Symbol,
			Tier:         TierRejected,
			MarketCap:    mcap,
			Score:        0,
			Disqualified: true,
			Reason:       fmt.Sprintf("below $%.0fM floor, OTC/penny risk", McapFloor/1e6),
		}
	}

	catalyst := scoreCatalyst(c)
	sector := scoreSectorAlignment(c)
	technical := scoreEarlyTechnical(c)
	social := scoreSocialMomentum(c)
	liquidity := scoreMicrocapLiquidity(c)

	final := round1(0.35*catalyst.Score + 0.25*sector.Score + 0.20*technical.Score +
		0.15*social.Score + 0.05*liquidity.Score)

	passes := catalyst.Score >= microMinCatalyst && sector.Score >= microMinSector

	return &MicrocapResult{
		Symbol:       c.Symbol,
		Tier:         tier,
		MarketCap:    mcap,
		Score:        final,
		PassesSanity: passes,
		PowerLawFlag: final >= powerLawCutoff && passes,
		Disqualified: !passes,
		Breakdown: models.ScoreBreakdown{
			Total: final,
			SubScores: map[string]models.SubScore{
				"catalyst":        catalyst,
				"sector_alignment": sector,
				"early_technical": technical,
				"social_momentum": social,
				"liquidity":       liquidity,
			},
		},
	}
}

func classifyMicrocapTier(mcap *float64) MicrocapTier {
	if mcap == nil {
		return TierMicroCap
	}
	switch {
	case *mcap < McapMicroCeiling:
		return TierMicroCap
	case *mcap < McapSmallCeiling:
		return TierSmallCap
	default:
		return TierInstitutional
	}
}

// scoreCatalyst looks for verifiable catalyst signals: keyword hits in the
// X narrative, hypergrowth revenue, analyst conviction and price upside.
func scoreCatalyst(c *models.Candidate) models.SubScore {
	var score float64
	var evidence []string

	if x := c.XAnalysis; x != nil {
		var sb strings.Builder
		sb.WriteString(strings.ToLower(x.Catalyst))
		sb.WriteString(" ")
		sb.WriteString(strings.ToLower(x.WhyTrending))
		for _, n := range x.Narratives {
			sb.WriteString(" ")
			sb.WriteString(strings.ToLower(n))
		}
		combined := sb.String()

		hits := 0
		for _, kw := range CatalystKeywords {
			if strings.Contains(combined, kw) {
				hits++
			}
		}
		switch {
		case hits >= 3:
			score += 45
			evidence = append(evidence, fmt.Sprintf("strong X catalyst (%d signals)", hits))
		case hits >= 2:
			score += 35
			evidence = append(evidence, fmt.Sprintf("moderate X catalyst (%d signals)", hits))
		case hits >= 1:
			score += 20
			evidence = append(evidence, "weak X catalyst (1 signal)")
		}

		if x.SentimentScore >= 80 {
			score += 10
			evidence = append(evidence, fmt.Sprintf("high X sentiment (%.0f)", x.SentimentScore))
		}
		if highIntensity(x.MentionIntensity) {
			score += 10
			evidence = append(evidence, "high mention intensity")
		}
	}

	if c.Overview != nil && c.Overview.RevenueGrowth != nil {
		switch rg := *c.Overview.RevenueGrowth; {
		case rg > 1.0:
			score += 15
			evidence = append(evidence, fmt.Sprintf("revenue +%.0f%% (hypergrowth)", rg*100))
		case rg > 0.5:
			score += 12
			evidence = append(evidence, fmt.Sprintf("revenue +%.0f%% (strong)", rg*100))
		case rg > 0.2:
			score += 8
			evidence = append(evidence, fmt.Sprintf("revenue +%.0f%%", rg*100))
		case rg > 0:
			score += 4
			evidence = append(evidence, fmt.Sprintf("revenue +%.0f%% (moderate)", rg*100))
		}
	}

	if a := c.Analyst; a != nil {
		consensus := strings.ToLower(a.Consensus)
		if a.TotalAnalysts >= 3 && (consensus == "buy" || consensus == "strong buy") {
			score += 10
			evidence = append(evidence, fmt.Sprintf("analyst consensus %s (%d analysts)", consensus, a.TotalAnalysts))
		}
		if a.UpsidePct != nil {
			switch up := *a.UpsidePct; {
			case up > 50:
				score += 10
				evidence = append(evidence, fmt.Sprintf("analyst upside +%.0f%%", up))
			case up > 25:
				score += 5
				evidence = append(evidence, fmt.Sprintf("analyst upside +%.0f%%", up))
			}
		}
	}

	return models.SubScore{Score: math.Min(score, 100), Weight: 0.35, Evidence: evidence}
}

// scoreSectorAlignment rewards hot-narrative sectors and penalizes cold
// ones with limited re-rating potential.
func scoreSectorAlignment(c *models.Candidate) models.SubScore {
	var sector, industry string
	if c.Overview != nil {
		sector = strings.ToLower(strings.TrimSpace(c.Overview.Sector))
		industry = strings.ToLower(strings.TrimSpace(c.Overview.Industry))
	}
	combined := sector + " " + industry + " " + strings.ToLower(c.Name)

	var matches []string
	for _, s := range hotSectors {
		if strings.Contains(combined, s) {
			matches = append(matches, s)
		}
	}

	var score float64
	var evidence string
	switch {
	case len(matches) >= 2:
		score = 80
		evidence = "strong multi-match: " + strings.Join(matches[:2], ", ")
	case len(matches) == 1:
		score = 60
		evidence = "sector match: " + matches[0]
	case coldSectors[sector]:
		score = 20
		evidence = "cold sector, limited re-rating potential"
	case sector != "":
		score = 35
		evidence = "neutral sector: " + sector
	default:
		score = 25
		evidence = "unknown sector"
	}

	return models.SubScore{Score: score, Weight: 0.25, Evidence: []string{evidence}}
}

// scoreEarlyTechnical favors the mid-range inflection zone of the 52-week
// range over chart-topping extension, plus volatility and day-move terms.
func scoreEarlyTechnical(c *models.Candidate) models.SubScore {
	var score float64
	var evidence []string

	price := quotePrice(c)
	if price > 0 && c.Overview != nil && c.Overview.Week52Low != nil && c.Overview.Week52High != nil {
		low, high := *c.Overview.Week52Low, *c.Overview.Week52High
		if high > low {
			rangePct := (price - low) / (high - low) * 100
			switch {
			case rangePct >= 20 && rangePct <= 50:
				score += 35
				evidence = append(evidence, fmt.Sprintf("mid-range (%.0f%% of 52w), inflection zone", rangePct))
			case rangePct > 50 && rangePct <= 70:
				score += 25
				evidence = append(evidence, fmt.Sprintf("upper-mid range (%.0f%% of 52w)", rangePct))
			case rangePct >= 10 && rangePct < 20:
				score += 20
				evidence = append(evidence, fmt.Sprintf("near 52w low (%.0f%%)", rangePct))
			case rangePct > 85:
				score += 10
				evidence = append(evidence, fmt.Sprintf("near 52w high (%.0f%%), extended", rangePct))
			default:
				score += 15
				evidence = append(evidence, fmt.Sprintf("low range (%.0f%%)", rangePct))
			}

			if high > 0 {
				fromHigh := (high - price) / high * 100
				if fromHigh > 30 {
					score += 10
					evidence = append(evidence, fmt.Sprintf("%.0f%% below 52w high", fromHigh))
				}
			}
		}
	}

	if q := c.Quote; q != nil && q.DayHigh != nil && q.DayLow != nil && *q.DayLow > 0 {
		intraday := (*q.DayHigh - *q.DayLow) / *q.DayLow * 100
		switch {
		case intraday > 10:
			score += 20
			evidence = append(evidence, fmt.Sprintf("wide intraday range (%.1f%%)", intraday))
		case intraday > 5:
			score += 12
			evidence = append(evidence, fmt.Sprintf("elevated intraday range (%.1f%%)", intraday))
		case intraday > 3:
			score += 5
		}
	}

	if c.Quote != nil {
		switch chg := c.Quote.ChangePct; {
		case chg >= 5 && chg <= 25:
			score += 15
			evidence = append(evidence, fmt.Sprintf("strong day move (+%.1f%%)", chg))
		case chg > 25 && chg <= 60:
			score += 10
			evidence = append(evidence, fmt.Sprintf("extreme move (+%.1f%%), chase risk", chg))
		case chg >= 2 && chg < 5:
			score += 8
		case chg > 60:
			score += 3
			evidence = append(evidence, fmt.Sprintf("parabolic (+%.1f%%), late entry risk", chg))
		}
	}

	return models.SubScore{Score: math.Min(score, 100), Weight: 0.20, Evidence: evidence}
}

// scoreSocialMomentum measures cross-platform buzz breadth and direction.
func scoreSocialMomentum(c *models.Candidate) models.SubScore {
	var score float64
	var evidence []string

	switch {
	case c.SourceCount >= 4:
		score += 30
		evidence = append(evidence, fmt.Sprintf("cross-platform: %d sources", c.SourceCount))
	case c.SourceCount >= 3:
		score += 22
		evidence = append(evidence, fmt.Sprintf("multi-platform: %d sources", c.SourceCount))
	case c.SourceCount >= 2:
		score += 12
		evidence = append(evidence, fmt.Sprintf("dual-platform: %d sources", c.SourceCount))
	case c.SourceCount >= 1:
		score += 5
		evidence = append(evidence, "single source")
	}

	if s := c.Sentiment; s != nil {
		switch {
		case s.BullPct >= 80:
			score += 25
			evidence = append(evidence, fmt.Sprintf("%.0f%% bullish", s.BullPct))
		case s.BullPct >= 65:
			score += 18
			evidence = append(evidence, fmt.Sprintf("%.0f%% bullish", s.BullPct))
		case s.BullPct >= 50:
			score += 10
			evidence = append(evidence, fmt.Sprintf("%.0f%% bullish (moderate)", s.BullPct))
		}
	}

	if x := c.XAnalysis; x != nil {
		sent := strings.ToLower(x.Sentiment)
		if strings.Contains(sent, "bullish") || strings.Contains(sent, "strong") {
			score += 20
			evidence = append(evidence, "bullish X sentiment")
		} else if strings.Contains(sent, "positive") || strings.Contains(sent, "mixed") {
			score += 8
			evidence = append(evidence, "mixed X sentiment")
		}
		if highIntensity(x.MentionIntensity) {
			score += 15
			evidence = append(evidence, "high X mention intensity")
		} else if strings.EqualFold(x.MentionIntensity, "medium") {
			score += 5
		}
	}

	var hasReddit, hasST, hasX bool
	for _, s := range c.Sources {
		switch {
		case strings.Contains(s, "Reddit"):
			hasReddit = true
		case strings.Contains(s, "StockTwits"):
			hasST = true
		case strings.Contains(s, "X_Twitter"):
			hasX = true
		}
	}
	if hasReddit && hasST && hasX {
		score += 10
		evidence = append(evidence, "triple-platform buzz")
	}

	return models.SubScore{Score: math.Min(score, 100), Weight: 0.15, Evidence: evidence}
}

// scoreMicrocapLiquidity grades average volume only. Thin tape caps the
// whole term near zero.
func scoreMicrocapLiquidity(c *models.Candidate) models.SubScore {
	var avgVol float64
	if c.Overview != nil && c.Overview.AvgVolume != nil {
		avgVol = *c.Overview.AvgVolume
	}
	if avgVol <= 0 {
		return models.SubScore{Score: 0, Weight: 0.05}
	}

	var score float64
	var label string
	switch {
	case avgVol >= 5_000_000:
		score, label = 100, "excellent"
	case avgVol >= 1_000_000:
		score, label = 80, "good"
	case avgVol >= 500_000:
		score, label = 60, "adequate"
	case avgVol >= 100_000:
		score, label = 40, "thin"
	case avgVol >= 50_000:
		score, label = 20, "very thin"
	default:
		score, label = 5, "illiquid"
	}

	return models.SubScore{
		Score:    score,
		Weight:   0.05,
		Evidence: []string{fmt.Sprintf("avg volume %.0f (%s)", avgVol, label)},
	}
}

func highIntensity(v string) bool {
	switch strings.ToLower(v) {
	case "high", "very_high", "extreme":
		return true
	}
	return false
}
