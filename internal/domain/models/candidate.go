package models

// AssetClass of a scan candidate. Immutable after creation.
type AssetClass string

const (
	AssetStock     AssetClass = "stock"
	AssetCrypto    AssetClass = "crypto"
	AssetCommodity AssetClass = "commodity"
)

// CapTier buckets stocks by market capitalization.
type CapTier string

const (
	CapLarge CapTier = "large" // >= $10B
	CapMid   CapTier = "mid"   // >= $2B
	CapSmall CapTier = "small"
)

// Quote is a normalized real-time quote snapshot.
type Quote struct {
	Price     float64  `json:"price"`
	ChangePct float64  `json:"change_pct"`
	Volume    float64  `json:"volume"`
	DayHigh   *float64 `json:"day_high,omitempty"`
	DayLow    *float64 `json:"day_low,omitempty"`
}

// Overview is normalized company fundamental data.
type Overview struct {
	Name          string   `json:"name,omitempty"`
	Exchange      string   `json:"exchange,omitempty"`
	Sector        string   `json:"sector,omitempty"`
	Industry      string   `json:"industry,omitempty"`
	MarketCap     *float64 `json:"market_cap,omitempty"`
	AvgVolume     *float64 `json:"avg_volume,omitempty"`
	PERatio       *float64 `json:"pe_ratio,omitempty"`
	PSRatio       *float64 `json:"ps_ratio,omitempty"`
	RevenueGrowth *float64 `json:"revenue_growth,omitempty"`
	EBITDAMargin  *float64 `json:"ebitda_margin,omitempty"`
	ProfitMargin  *float64 `json:"profit_margin,omitempty"`
	ShortFloat    *float64 `json:"short_float,omitempty"` // percent
	Week52High    *float64 `json:"week_52_high,omitempty"`
	Week52Low     *float64 `json:"week_52_low,omitempty"`
}

// Sentiment is normalized social sentiment for a symbol. Headlines carry
// the most recent message texts so downstream stages can mine catalysts.
type Sentiment struct {
	BullPct   float64  `json:"bull_pct"`
	BearPct   float64  `json:"bear_pct"`
	Watchers  int      `json:"watchers,omitempty"`
	Headlines []string `json:"headlines,omitempty"`
}

// XSentiment is normalized X/Twitter analysis for a symbol.
type XSentiment struct {
	Sentiment        string   `json:"sentiment,omitempty"` // bullish | mixed | bearish
	SentimentScore   float64  `json:"sentiment_score,omitempty"`
	MentionIntensity string   `json:"mention_intensity,omitempty"` // low | medium | high | extreme
	Catalyst         string   `json:"catalyst,omitempty"`
	WhyTrending      string   `json:"why_trending,omitempty"`
	Narratives       []string `json:"narratives,omitempty"`
}

// AnalystData is normalized analyst coverage for a symbol.
type AnalystData struct {
	Consensus     string   `json:"consensus,omitempty"`
	TotalAnalysts int      `json:"total_analysts,omitempty"`
	UpsidePct     *float64 `json:"upside_pct,omitempty"`
}

// EarningsReport is one historical earnings result.
type EarningsReport struct {
	SurprisePct float64 `json:"surprise_pct"`
}

// InsiderSentiment is normalized insider trading sentiment. MSPR is the
// monthly share purchase ratio, -100 to 100.
type InsiderSentiment struct {
	MSPR float64 `json:"mspr"`
}

// Candidate is one instrument flowing through the pipeline. Enrichment is
// append-only: each stage fills nil fields and never clears earlier ones.
type Candidate struct {
	Symbol     string     `json:"symbol"`
	AssetClass AssetClass `json:"asset_class"`
	Name       string     `json:"name,omitempty"`

	// Discovery metadata.
	SourceCount int      `json:"source_count"`
	Sources     []string `json:"sources,omitempty"`

	// Enrichment fields, filled progressively.
	Quote      *Quote            `json:"quote,omitempty"`
	Overview   *Overview         `json:"overview,omitempty"`
	Sentiment  *Sentiment        `json:"sentiment,omitempty"`
	XAnalysis  *XSentiment       `json:"x_analysis,omitempty"`
	Analyst    *AnalystData      `json:"analyst,omitempty"`
	Insider    *InsiderSentiment `json:"insider,omitempty"`
	Earnings   []EarningsReport  `json:"earnings,omitempty"`
	Technicals *Indicators       `json:"technicals,omitempty"`
	TA         *TechnicalAnalysisResult `json:"ta,omitempty"`

	// Cross-asset extraction fields (may duplicate overview for non-stocks).
	MarketCap      *float64 `json:"market_cap,omitempty"`
	Volume         *float64 `json:"volume,omitempty"`
	PriceChangePct *float64 `json:"price_change_pct,omitempty"`
	IsMajor        bool     `json:"is_major,omitempty"` // commodities only

	// Derived scores, attached by the scoring stages.
	CategoryScore *float64        `json:"category_score,omitempty"`
	Breakdown     *ScoreBreakdown `json:"breakdown,omitempty"`
}

// EffectiveMarketCap returns market cap from whichever enrichment dimension
// has it, preferring the cross-asset field.
func (c *Candidate) EffectiveMarketCap() *float64 {
	if c.MarketCap != nil {
		return c.MarketCap
	}
	if c.Overview != nil && c.Overview.MarketCap != nil {
		return c.Overview.MarketCap
	}
	return nil
}

// Tier classifies the candidate by market cap. Unknown caps land in small.
func (c *Candidate) Tier() CapTier {
	mc := c.EffectiveMarketCap()
	if mc == nil {
		return CapSmall
	}
	switch {
	case *mc >= 10e9:
		return CapLarge
	case *mc >= 2e9:
		return CapMid
	default:
		return CapSmall
	}
}

// SubScore is one named component of a score with its weight and evidence.
type SubScore struct {
	Score    float64  `json:"score"` // 0-100
	Weight   float64  `json:"weight"`
	Evidence []string `json:"evidence,omitempty"`
}

// ScoreBreakdown is the weighted sub-score detail attached to a Candidate.
type ScoreBreakdown struct {
	Total     float64             `json:"total"`
	SubScores map[string]SubScore `json:"sub_scores"`
}

// RankedCandidate is the terminal read-only view handed to consumers.
type RankedCandidate struct {
	Candidate
	NormalizedScore    float64            `json:"normalized_score"`
	FactorsMet         int                `json:"factors_met"`
	FactorDetail       map[string]float64 `json:"factor_detail"`
	CapTier            CapTier            `json:"cap_tier,omitempty"`
	ConfirmationStatus string             `json:"confirmation_status"`
	DataGaps           []string           `json:"data_gaps,omitempty"`
}
