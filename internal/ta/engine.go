package ta

import (
	"math"

	"MarketScan/internal/domain/models"
	"MarketScan/pkg/util"
)

const (
	minBars       = 20
	atrPeriod     = 20
	avgVolPeriod  = 20
	stopATRMult   = 1.5
	entryATRMult  = 0.25
	maxConfidence = 95
)

// Engine runs deterministic technical analysis over daily bars. It holds no
// state; the same series always yields the same result.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

// Analyze computes indicators, detects signals and builds a trade plan for
// one symbol. catalystSource names the discovery source that flagged the
// symbol, or is empty when none did. Returns nil when fewer than 20 bars are
// available or when fewer than two signals agree on a direction.
func (e *Engine) Analyze(symbol string, bars []models.Bar, catalystSource string) *models.TechnicalAnalysisResult {
	if len(bars) < minBars {
		return nil
	}

	closes := models.Closes(bars)
	highs := models.Highs(bars)
	lows := models.Lows(bars)
	volumes := models.Volumes(bars)
	price := closes[len(closes)-1]

	ind := computeIndicators(closes, highs, lows, volumes)
	signals := detectSignals(closes, highs, lows, volumes, ind)

	bullish, bearish := splitSignals(signals)
	isBearish := len(bearish) > len(bullish)

	// Surface only setups where at least two signals agree on direction.
	if isBearish {
		if len(bearish) < 2 {
			return nil
		}
	} else if len(bullish) < 2 {
		return nil
	}

	score := compositeScore(bullish, bearish)
	setup := classifySetup(signals, isBearish)
	atr := atrOrFallback(highs, lows, closes, price)
	plan := buildPlan(setup, isBearish, price, atr, highs)

	confidence := score
	if ind.VolumeRatio >= 1.5 {
		confidence += 10
	}
	if catalystSource != "" {
		confidence += 5
	}
	if confidence > maxConfidence {
		confidence = maxConfidence
	}

	direction := "long"
	if isBearish {
		direction = "short"
	}

	stacking := make([]string, 0, len(signals))
	for _, s := range signals {
		stacking = append(stacking, s.Name)
	}

	return &models.TechnicalAnalysisResult{
		Symbol:          symbol,
		Direction:       direction,
		Action:          action(isBearish, confidence),
		Confidence:      confidence,
		TechnicalScore:  score,
		SetupType:       setup,
		Pattern:         patternLabel(signals, setup),
		Signals:         signals,
		SignalsStacking: stacking,
		Indicators:      *ind,
		Plan:            plan,
		Price:           price,
		VolumeRatio:     ind.VolumeRatio,
		CatalystCheck:   catalystSource,
		IsBearish:       isBearish,
	}
}

func computeIndicators(closes, highs, lows []float64, volumes []int64) *models.Indicators {
	ind := &models.Indicators{}

	if v, ok := RSI(closes, 14); ok {
		ind.RSI = util.Float64Ptr(v)
	}
	if v, ok := SMA(closes, 20); ok {
		ind.SMA20 = util.Float64Ptr(v)
	}
	if v, ok := SMA(closes, 50); ok {
		ind.SMA50 = util.Float64Ptr(v)
	}
	if v, ok := SMA(closes, 200); ok {
		ind.SMA200 = util.Float64Ptr(v)
	}
	if v, ok := EMA(closes, 20); ok {
		ind.EMA20 = util.Float64Ptr(v)
	}
	if v, ok := EMA(closes, 50); ok {
		ind.EMA50 = util.Float64Ptr(v)
	}
	if m, ok := MACD(closes, 12, 26, 9); ok {
		ind.MACD = util.Float64Ptr(m.MACD)
		ind.MACDSignal = util.Float64Ptr(m.Signal)
		ind.MACDHistogram = util.Float64Ptr(m.Histogram)
	}
	if v, ok := ATR(highs, lows, closes, atrPeriod); ok {
		ind.ATR = util.Float64Ptr(v)
	}

	n := len(volumes)
	lookback := avgVolPeriod
	if n < lookback {
		lookback = n
	}
	var sum float64
	for _, v := range volumes[n-lookback:] {
		sum += float64(v)
	}
	ind.AvgVolume = sum / float64(lookback)
	ind.CurrentVolume = volumes[n-1]
	if ind.AvgVolume > 0 {
		ind.VolumeRatio = float64(ind.CurrentVolume) / ind.AvgVolume
	}
	return ind
}

func splitSignals(signals []models.Signal) (bullish, bearish []models.Signal) {
	for _, s := range signals {
		if s.Direction == models.Bullish {
			bullish = append(bullish, s)
		} else {
			bearish = append(bearish, s)
		}
	}
	return bullish, bearish
}

// compositeScore folds signal strengths into a 0-100 score anchored at 50,
// with stacking bonuses when several signals line up.
func compositeScore(bullish, bearish []models.Signal) int {
	var bullSum, bearSum int
	for _, s := range bullish {
		bullSum += s.Strength
	}
	for _, s := range bearish {
		bearSum += s.Strength
	}

	score := 50 + int(0.12*float64(bullSum)) - int(0.12*float64(bearSum))
	if len(bullish) >= 3 {
		score += 10
		if len(bullish) >= 5 {
			score += 5
		}
	}
	if len(bearish) >= 3 {
		score -= 10
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

func classifySetup(signals []models.Signal, isBearish bool) models.SetupType {
	has := func(names ...string) bool {
		for _, s := range signals {
			for _, n := range names {
				if s.Name == n {
					return true
				}
			}
		}
		return false
	}

	if isBearish && has(SigBreakdownSupport, SigPriceBelowSMA50) && has(SigMACDBearCross, SigSMA50BelowSMA200) {
		return models.SetupBreakdownShort
	}
	if has(SigBreakoutPivot, SigRangeBreakout) {
		return models.SetupBreakout
	}
	if has(SigStage2Uptrend, SigSMA50AboveSMA200) {
		return models.SetupTrendContinuation
	}
	if has(SigRSIBullZone) && has(SigVolumeExpansion) {
		return models.SetupMomentum
	}
	return models.SetupTechnical
}

func atrOrFallback(highs, lows, closes []float64, price float64) float64 {
	if v, ok := ATR(highs, lows, closes, atrPeriod); ok && v > 0 {
		return v
	}
	return price * 0.03
}

// buildPlan constructs entry, stop and 1R/2R targets from ATR. Breakout
// entries wait for a small push above the 20-day pivot.
func buildPlan(setup models.SetupType, isBearish bool, price, atr float64, highs []float64) models.TradePlan {
	entry := price
	if !isBearish && setup == models.SetupBreakout && len(highs) >= 21 {
		pivot := highest(highs[:len(highs)-1], 20)
		if price >= pivot {
			entry = pivot + entryATRMult*atr
		}
	}

	var stop float64
	var targets []float64
	if isBearish {
		stop = entry + stopATRMult*atr
		risk := stop - entry
		if risk <= 0 {
			risk = entry * 0.03
			stop = entry + risk
		}
		targets = []float64{entry - risk, entry - 2*risk}
	} else {
		stop = entry - stopATRMult*atr
		risk := entry - stop
		if risk <= 0 {
			risk = entry * 0.03
			stop = entry - risk
		}
		targets = []float64{entry + risk, entry + 2*risk}
	}

	risk := math.Abs(entry - stop)
	reward := math.Abs(targets[0] - entry)
	rr := 0.0
	if risk > 0 {
		rr = reward / risk
	}

	return models.TradePlan{
		Entry:      round2(entry),
		Stop:       round2(stop),
		Targets:    []float64{round2(targets[0]), round2(targets[1])},
		RiskReward: math.Round(rr*10) / 10,
		Timeframe:  timeframe(setup),
		ATR:        round2(atr),
	}
}

func timeframe(setup models.SetupType) string {
	switch setup {
	case models.SetupBreakout, models.SetupMomentum:
		return "1-3 days"
	case models.SetupBreakdownShort:
		return "1-5 days"
	default:
		return "2-6 weeks"
	}
}

// patternLabel picks the single most descriptive label for the setup.
func patternLabel(signals []models.Signal, setup models.SetupType) string {
	has := func(name string) bool {
		for _, s := range signals {
			if s.Name == name {
				return true
			}
		}
		return false
	}

	switch {
	case has(SigStage2Uptrend):
		return "Stage 2 breakout"
	case has(SigBreakoutPivot):
		return "Pivot breakout"
	case has(SigRangeBreakout):
		return "Range breakout"
	case has(SigEMA20CrossEMA50):
		return "EMA cross"
	case has(SigMACDBullCross):
		return "MACD bullish crossover"
	case has(SigBreakdownSupport):
		return "Support breakdown"
	case has(SigMACDBearCross):
		return "MACD bearish crossover"
	case setup == models.SetupMomentum:
		return "Momentum expansion"
	case setup == models.SetupTrendContinuation:
		return "Trend continuation"
	default:
		return "Technical setup"
	}
}

func action(isBearish bool, confidence int) string {
	if isBearish {
		return "Sell"
	}
	switch {
	case confidence >= 80:
		return "Strong Buy"
	case confidence >= 60:
		return "Buy"
	default:
		return "Hold"
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
