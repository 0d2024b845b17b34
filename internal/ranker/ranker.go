// Package ranker merges scan results from stocks, crypto and commodities
// into one confluence-gated cross-market shortlist. All scoring is pure;
// callers hand in already-extracted candidates plus the macro context.
package ranker

import (
	"math"
	"sort"
	"strings"

	"MarketScan/internal/domain/models"
)

// Soft quality floors. Falling below one penalizes the raw score instead of
// dropping the candidate.
const (
	StockMcapFloor    = 500e6
	CryptoMcapFloor   = 100e6
	StockVolumeFloor  = 1e6
	CryptoVolumeFloor = 50e6

	maxFinalPicks    = 7
	minFactorsMet    = 3
	factorMetCutoff  = 0.4
	maxSymbolLength  = 10
)

// Factor weights for the five-factor confluence score.
const (
	weightSocial    = 0.20
	weightTechnical = 0.30
	weightCatalyst  = 0.20
	weightSector    = 0.10
	weightLiquidity = 0.20
)

// Ranker holds no state between calls.
type Ranker struct{}

func New() *Ranker { return &Ranker{} }

// scoredCandidate carries working state through the pipeline stages.
type scoredCandidate struct {
	cand           *models.Candidate
	rawScore       float64
	normalized     float64
	penalty        float64
	penaltyReasons []string
	factors        map[string]float64
	factorsMet     int
	confirmation   string
	dataGaps       []string
}

// Rank scores each asset class independently, applies regime and quality
// penalties to the raw scores, min-max normalizes within each class, drops
// candidates without factor confluence, and assembles at most seven picks
// with one slot reserved for the top stock and one for the top commodity.
func (r *Ranker) Rank(stocks, cryptos, commodities []*models.Candidate, macro *models.MacroContext) *models.CrossMarketResult {
	debug := &models.RankingDebug{
		CandidatesPerClass: map[string]int{},
		SoftPenalties:      map[string][]string{},
		SelectionReasons:   map[string]map[string]any{},
	}

	regime := DetectRegime(macro)
	debug.MacroRegime = regime

	st := prepare(stocks, models.AssetStock, debug)
	cr := prepare(cryptos, models.AssetCrypto, debug)
	co := prepare(commodities, models.AssetCommodity, debug)

	debug.CandidatesPerClass["stocks"] = len(st)
	debug.CandidatesPerClass["crypto"] = len(cr)
	debug.CandidatesPerClass["commodities"] = len(co)

	for _, c := range st {
		scoreFactors(c, models.AssetStock)
	}
	for _, c := range cr {
		scoreFactors(c, models.AssetCrypto)
	}
	for _, c := range co {
		scoreFactors(c, models.AssetCommodity)
	}

	// Regime tilt lands on raw scores so normalization reflects it.
	if regime == models.RegimeRiskOff || regime == models.RegimeCautious {
		debug.RegimePenaltyApplied = true
		applyRegimePenalty(st, cr, co, regime)
	}

	normalizeWithinClass(st)
	normalizeWithinClass(cr)
	normalizeWithinClass(co)

	st = gateConfluence(st, debug)
	cr = gateConfluence(cr, debug)
	co = gateConfluence(co, debug)

	final := assemble(st, cr, co)

	ranked := make([]*models.RankedCandidate, 0, len(final))
	for _, c := range final {
		rc := &models.RankedCandidate{
			Candidate:          *c.cand,
			NormalizedScore:    round1(c.normalized),
			FactorsMet:         c.factorsMet,
			FactorDetail:       c.factors,
			ConfirmationStatus: c.confirmation,
			DataGaps:           c.dataGaps,
		}
		if c.cand.AssetClass == models.AssetStock {
			rc.CapTier = c.cand.Tier()
		}
		ranked = append(ranked, rc)

		debug.SelectionReasons[c.cand.Symbol] = map[string]any{
			"asset_class":         string(c.cand.AssetClass),
			"cap_tier":            string(rc.CapTier),
			"normalized_score":    rc.NormalizedScore,
			"factors_met":         c.factorsMet,
			"factor_detail":       c.factors,
			"confirmation_status": c.confirmation,
		}
	}

	return &models.CrossMarketResult{RankedCandidates: ranked, Debug: debug}
}

// DetectRegime classifies the macro environment from the fear/greed index,
// falling back to VIX when the index is missing.
func DetectRegime(macro *models.MacroContext) models.MacroRegime {
	if macro == nil {
		return models.RegimeUnknown
	}

	if macro.FearGreedIndex != nil {
		switch v := *macro.FearGreedIndex; {
		case v <= 25:
			return models.RegimeRiskOff
		case v <= 40:
			return models.RegimeCautious
		case v >= 70:
			return models.RegimeRiskOn
		default:
			return models.RegimeNeutral
		}
	}

	if macro.VIX != nil {
		switch vix := *macro.VIX; {
		case vix > 30:
			return models.RegimeRiskOff
		case vix > 22:
			return models.RegimeCautious
		}
		return models.RegimeNeutral
	}

	return models.RegimeUnknown
}

// prepare validates symbols and applies the soft quality floors. Below-floor
// candidates are penalized, never dropped.
func prepare(candidates []*models.Candidate, class models.AssetClass, debug *models.RankingDebug) []*scoredCandidate {
	mcapFloor, volFloor := StockMcapFloor, StockVolumeFloor
	if class == models.AssetCrypto {
		mcapFloor, volFloor = CryptoMcapFloor, CryptoVolumeFloor
	}
	penaltyKey := string(class)

	out := make([]*scoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c == nil || c.Symbol == "" || len(c.Symbol) > maxSymbolLength {
			continue
		}
		sc := &scoredCandidate{cand: c, penalty: 1.0, factors: map[string]float64{}}

		if class != models.AssetCommodity {
			mcap := c.EffectiveMarketCap()
			if mcap != nil && *mcap < mcapFloor {
				sc.penalty *= 0.6
				sc.penaltyReasons = append(sc.penaltyReasons, "mcap below floor")
				debug.SoftPenalties[penaltyKey] = append(debug.SoftPenalties[penaltyKey], c.Symbol+": mcap penalty")
			}
			if c.Volume != nil && *c.Volume < volFloor {
				sc.penalty *= 0.7
				sc.penaltyReasons = append(sc.penaltyReasons, "volume below floor")
				debug.SoftPenalties[penaltyKey] = append(debug.SoftPenalties[penaltyKey], c.Symbol+": volume penalty")
			}
			if mcap == nil && c.Volume == nil {
				sc.penalty *= 0.5
				sc.penaltyReasons = append(sc.penaltyReasons, "missing mcap+volume")
				debug.SoftPenalties[penaltyKey] = append(debug.SoftPenalties[penaltyKey], c.Symbol+": missing mcap+volume")
			}
		}

		out = append(out, sc)
	}
	return out
}

// scoreFactors computes the five 0-1 confluence factors and the weighted
// raw score for one candidate.
func scoreFactors(sc *scoredCandidate, class models.AssetClass) {
	c := sc.cand
	f := sc.factors

	// Social momentum: breadth of independent discovery sources.
	if class == models.AssetCommodity {
		f["social_momentum"] = 0.3
	} else if c.SourceCount > 0 {
		f["social_momentum"] = math.Min(float64(c.SourceCount)/3.0, 1.0)
	} else {
		f["social_momentum"] = 0
	}

	// Technical: daily move inside the tradable band, not parabolic.
	if c.PriceChangePct != nil {
		pct := *c.PriceChangePct
		switch class {
		case models.AssetStock:
			switch {
			case pct >= 2 && pct <= 25:
				f["technical"] = math.Min(pct/10.0, 1.0)
			case pct > 0 && pct < 2:
				f["technical"] = pct / 5.0
			default:
				f["technical"] = 0
			}
		case models.AssetCrypto:
			a := math.Abs(pct)
			switch {
			case a >= 3 && a <= 30:
				f["technical"] = math.Min(a/15.0, 1.0)
			case a > 0 && a < 3:
				f["technical"] = a / 8.0
			default:
				f["technical"] = 0
			}
		default:
			if a := math.Abs(pct); a > 0.5 {
				f["technical"] = math.Min(a/3.0, 1.0)
			} else {
				f["technical"] = 0
			}
		}
	} else {
		f["technical"] = 0
		sc.dataGaps = append(sc.dataGaps, "price_change")
	}

	// Catalyst: analyst coverage for stocks, source confluence for crypto.
	switch class {
	case models.AssetStock:
		hasCatalyst := c.Analyst != nil && (c.Analyst.Consensus != "" || c.Analyst.UpsidePct != nil)
		if hasCatalyst {
			f["catalyst"] = 0.8
		} else {
			f["catalyst"] = 0.2
			sc.dataGaps = append(sc.dataGaps, "catalyst")
		}
	case models.AssetCrypto:
		if c.SourceCount >= 2 {
			f["catalyst"] = 0.7
		} else {
			f["catalyst"] = 0.2
			sc.dataGaps = append(sc.dataGaps, "catalyst")
		}
	default:
		f["catalyst"] = 0.5
	}

	// Sector alignment only discriminates for commodities.
	if class == models.AssetCommodity {
		if c.IsMajor {
			f["sector_alignment"] = 0.7
		} else {
			f["sector_alignment"] = 0.3
		}
	} else {
		f["sector_alignment"] = 0.5
	}

	// Liquidity.
	var vol float64
	if c.Volume != nil {
		vol = *c.Volume
	}
	var mcap float64
	if m := c.EffectiveMarketCap(); m != nil {
		mcap = *m
	}
	switch class {
	case models.AssetStock:
		switch {
		case vol > 5e6:
			f["liquidity"] = 1.0
		case vol > StockVolumeFloor:
			f["liquidity"] = 0.6
		case mcap > 2e9:
			f["liquidity"] = 0.7
		default:
			f["liquidity"] = 0.3
			if vol == 0 && mcap == 0 {
				sc.dataGaps = append(sc.dataGaps, "liquidity")
			}
		}
	case models.AssetCrypto:
		switch {
		case vol > 500e6:
			f["liquidity"] = 1.0
		case vol > CryptoVolumeFloor:
			f["liquidity"] = 0.6
		case mcap > 1e9:
			f["liquidity"] = 0.5
		default:
			f["liquidity"] = 0.2
			if vol == 0 && mcap == 0 {
				sc.dataGaps = append(sc.dataGaps, "liquidity")
			}
		}
	default:
		if c.IsMajor {
			f["liquidity"] = 0.7
		} else {
			f["liquidity"] = 0.4
		}
	}

	met := 0
	for _, v := range f {
		if v >= factorMetCutoff {
			met++
		}
	}
	sc.factorsMet = met

	raw := f["social_momentum"]*weightSocial + f["technical"]*weightTechnical +
		f["catalyst"]*weightCatalyst + f["sector_alignment"]*weightSector +
		f["liquidity"]*weightLiquidity
	if sc.penalty != 1.0 {
		raw *= sc.penalty
		f["penalty_applied"] = math.Round(sc.penalty*100) / 100
	}
	sc.rawScore = raw

	switch {
	case met >= 4:
		sc.confirmation = "confirmed"
	case met >= 3:
		sc.confirmation = "partial"
	default:
		sc.confirmation = "unconfirmed"
	}
}

// applyRegimePenalty tilts raw scores ahead of normalization. Risk-off
// crushes speculative crypto and small-cap stocks while boosting defensive
// commodities; cautious only trims micro-cap crypto.
func applyRegimePenalty(stocks, cryptos, commodities []*scoredCandidate, regime models.MacroRegime) {
	if regime == models.RegimeRiskOff {
		for _, c := range cryptos {
			mcap := c.cand.EffectiveMarketCap()
			if mcap != nil && *mcap < 1e9 {
				c.rawScore *= 0.5
				c.factors["regime_penalty"] = -0.5
			} else {
				c.rawScore *= 0.75
				c.factors["regime_penalty"] = -0.25
			}
		}
		for _, c := range stocks {
			if mcap := c.cand.EffectiveMarketCap(); mcap != nil && *mcap < 2e9 {
				c.rawScore *= 0.7
				c.factors["regime_penalty"] = -0.3
			}
		}
		for _, c := range commodities {
			if isDefensive(c.cand) {
				c.rawScore *= 1.3
				c.factors["regime_bonus"] = 0.3
			}
		}
		return
	}

	// cautious
	for _, c := range cryptos {
		if mcap := c.cand.EffectiveMarketCap(); mcap != nil && *mcap < 500e6 {
			c.rawScore *= 0.7
			c.factors["regime_penalty"] = -0.3
		}
	}
}

func isDefensive(c *models.Candidate) bool {
	switch strings.ToUpper(c.Symbol) {
	case "GLD", "SLV", "TLT":
		return true
	}
	name := strings.ToLower(c.Name)
	return strings.Contains(name, "gold") || strings.Contains(name, "silver") ||
		strings.Contains(name, "treasury")
}

// normalizeWithinClass min-max scales raw scores to 0-100 so classes with
// different raw ranges compete fairly.
func normalizeWithinClass(candidates []*scoredCandidate) {
	if len(candidates) == 0 {
		return
	}
	minS, maxS := candidates[0].rawScore, candidates[0].rawScore
	for _, c := range candidates[1:] {
		if c.rawScore < minS {
			minS = c.rawScore
		}
		if c.rawScore > maxS {
			maxS = c.rawScore
		}
	}
	spread := maxS - minS
	if spread <= 0 {
		spread = 1.0
	}
	for _, c := range candidates {
		c.normalized = (c.rawScore - minS) / spread * 100
	}
}

// gateConfluence drops candidates that fail the three-of-five factor test.
func gateConfluence(candidates []*scoredCandidate, debug *models.RankingDebug) []*scoredCandidate {
	kept := candidates[:0]
	for _, c := range candidates {
		if c.factorsMet < minFactorsMet {
			debug.ConfluenceRejected = append(debug.ConfluenceRejected, c.cand.Symbol)
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// assemble picks at most seven candidates: the top stock and the top
// commodity each hold a reserved slot so one asset class cannot sweep the
// board, then the remainder fills from the pooled sort.
func assemble(stocks, cryptos, commodities []*scoredCandidate) []*scoredCandidate {
	byScore := func(s []*scoredCandidate) {
		sort.SliceStable(s, func(i, j int) bool { return s[i].normalized > s[j].normalized })
	}
	byScore(stocks)
	byScore(cryptos)
	byScore(commodities)

	used := map[string]bool{}
	var final []*scoredCandidate
	add := func(c *scoredCandidate) {
		if c == nil || used[c.cand.Symbol] || len(final) >= maxFinalPicks {
			return
		}
		used[c.cand.Symbol] = true
		final = append(final, c)
	}

	if len(stocks) > 0 {
		add(stocks[0])
	}
	if len(commodities) > 0 {
		add(commodities[0])
	}

	pool := make([]*scoredCandidate, 0, len(stocks)+len(cryptos)+len(commodities))
	pool = append(pool, stocks...)
	pool = append(pool, cryptos...)
	pool = append(pool, commodities...)
	byScore(pool)
	for _, c := range pool {
		if len(final) >= maxFinalPicks {
			break
		}
		add(c)
	}

	byScore(final)
	return final
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
