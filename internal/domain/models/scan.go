package models

// Category selects which scoring formula a wide scan uses.
type Category string

const (
	CategoryMarketScan     Category = "market_scan"
	CategoryTrades         Category = "trades"
	CategoryInvestments    Category = "investments"
	CategorySqueeze        Category = "squeeze"
	CategoryFundamentals   Category = "fundamentals_scan"
	CategoryBearish        Category = "bearish"
	CategorySmallCapSpec   Category = "small_cap_spec"
	CategoryAsymmetric     Category = "asymmetric"
	CategoryVolumeSpikes   Category = "volume_spikes"
	CategorySocialMomentum Category = "social_momentum"
)

// Categories lists every valid scan category.
func Categories() []Category {
	return []Category{
		CategoryMarketScan, CategoryTrades, CategoryInvestments,
		CategorySqueeze, CategoryFundamentals, CategoryBearish,
		CategorySmallCapSpec, CategoryAsymmetric, CategoryVolumeSpikes,
		CategorySocialMomentum,
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, k := range Categories() {
		if c == k {
			return true
		}
	}
	return false
}

// ScanPhase names the pipeline stage a budget ran out in.
type ScanPhase string

const (
	PhaseDiscovery       ScanPhase = "discovery"
	PhaseLightEnrichment ScanPhase = "light_enrichment"
	PhasePrimaryScoring  ScanPhase = "primary_scoring"
	PhaseSentimentGate   ScanPhase = "sentiment_news_gate"
	PhaseDeepEnrichment  ScanPhase = "deep_enrichment"
	PhaseAssembly        ScanPhase = "assembly"
)

// ScoredCandidate pairs a candidate with its category score.
type ScoredCandidate struct {
	Symbol    string     `json:"symbol"`
	Score     float64    `json:"score"`
	Candidate *Candidate `json:"candidate"`
}

// WideScanResult is the terminal payload of a category-driven wide scan.
// The shape is stable even when every enrichment failed.
type WideScanResult struct {
	Category         Category              `json:"category"`
	EnrichedData     map[string]*Candidate `json:"enriched_data"`
	TopRanked        []ScoredCandidate     `json:"top_ranked"`
	FlaggedTickers   []FlaggedTicker       `json:"flagged_tickers"`
	StageCounts      map[string]int        `json:"stage_counts"`
	TotalScanned     int                   `json:"total_scanned"`
	EnrichedCount    int                   `json:"enriched_count"`
	DataCompleteness string                `json:"data_completeness"` // full | partial
	BudgetExhaustedAt ScanPhase            `json:"budget_exhausted_at,omitempty"`
}

// FlaggedTicker is a candidate carried through the sentiment/news gate with
// a warning instead of being dropped.
type FlaggedTicker struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

// DataHealth summarizes provider reliability for one scan.
type DataHealth struct {
	CandlesSource string                    `json:"candles_source"`
	RateLimited   bool                      `json:"rate_limited"`
	AuthErrors    bool                      `json:"auth_errors"`
	Providers     map[string]ProviderHealth `json:"providers"`
	CacheHits     int                       `json:"cache_hits"`
	Blocked       int                       `json:"blocked"`
	EmptyReason   string                    `json:"empty_reason,omitempty"`
}

// ProviderHealth is per-provider call accounting for one scan.
type ProviderHealth struct {
	Calls     int `json:"calls"`
	RateLimit int `json:"rate_limit"`
	Failures  int `json:"failures"`
}

// ScanStats counts candidates through the best-setups funnel.
type ScanStats struct {
	Discovered  int `json:"discovered"`
	Shortlisted int `json:"shortlisted"`
	Analyzed    int `json:"analyzed"`
	Surfaced    int `json:"surfaced"`
}

// BestSetupsResult is the terminal payload of the TA-first setups scan.
type BestSetupsResult struct {
	TopTrades     []*TechnicalAnalysisResult `json:"top_trades"`
	BearishSetups []*TechnicalAnalysisResult `json:"bearish_setups"`
	Stats         ScanStats                  `json:"scan_stats"`
	Health        DataHealth                 `json:"data_health"`
}

// MacroRegime classifies the macro environment.
type MacroRegime string

const (
	RegimeRiskOff  MacroRegime = "risk_off"
	RegimeCautious MacroRegime = "cautious"
	RegimeNeutral  MacroRegime = "neutral"
	RegimeRiskOn   MacroRegime = "risk_on"
	RegimeUnknown  MacroRegime = "unknown"
)

// MacroContext carries the macro inputs to regime classification.
type MacroContext struct {
	FearGreedIndex *int     `json:"fear_greed_index,omitempty"`
	VIX            *float64 `json:"vix,omitempty"`
}

// RankingDebug records per-stage counts and per-candidate factor detail for
// cross-asset ranking observability.
type RankingDebug struct {
	MacroRegime         MacroRegime                   `json:"macro_regime"`
	CandidatesPerClass  map[string]int                `json:"candidates_per_class"`
	SoftPenalties       map[string][]string           `json:"soft_penalties"`
	ConfluenceRejected  []string                      `json:"confluence_rejected"`
	RegimePenaltyApplied bool                         `json:"regime_penalty_applied"`
	SelectionReasons    map[string]map[string]any     `json:"selection_reasons"`
}

// CrossMarketResult is the terminal payload of a cross-market rank.
type CrossMarketResult struct {
	RankedCandidates []*RankedCandidate `json:"ranked_candidates"`
	Debug            *RankingDebug      `json:"ranking_debug"`
}
