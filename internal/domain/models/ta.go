package models

// Direction of a detected technical signal.
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
)

// Signal is one discrete detected technical signal.
type Signal struct {
	Name      string    `json:"name"`
	Direction Direction `json:"direction"`
	Strength  int       `json:"strength"` // 0-100
	Evidence  string    `json:"evidence"`
}

// SetupType classifies a technical setup. Mutually exclusive,
// priority-ordered: breakdown > breakout > trend > momentum > generic.
type SetupType string

const (
	SetupBreakdownShort    SetupType = "breakdown_short"
	SetupBreakout          SetupType = "breakout"
	SetupTrendContinuation SetupType = "trend_continuation"
	SetupMomentum          SetupType = "momentum"
	SetupTechnical         SetupType = "technical_setup"
)

// Indicators holds the computed indicator values for one symbol.
// Pointer fields are nil when the series is too short for the lookback.
type Indicators struct {
	RSI           *float64 `json:"rsi,omitempty"`
	SMA20         *float64 `json:"sma_20,omitempty"`
	SMA50         *float64 `json:"sma_50,omitempty"`
	SMA200        *float64 `json:"sma_200,omitempty"`
	EMA20         *float64 `json:"ema_20,omitempty"`
	EMA50         *float64 `json:"ema_50,omitempty"`
	MACD          *float64 `json:"macd,omitempty"`
	MACDSignal    *float64 `json:"macd_signal,omitempty"`
	MACDHistogram *float64 `json:"macd_histogram,omitempty"`
	ATR           *float64 `json:"atr,omitempty"`
	AvgVolume     float64  `json:"avg_volume"`
	CurrentVolume int64    `json:"current_volume"`
	VolumeRatio   float64  `json:"volume_ratio"`
}

// TradePlan is the deterministic entry/stop/target construction from ATR.
type TradePlan struct {
	Entry      float64   `json:"entry"`
	Stop       float64   `json:"stop"`
	Targets    []float64 `json:"targets"`
	RiskReward float64   `json:"risk_reward"`
	Timeframe  string    `json:"timeframe"`
	ATR        float64   `json:"atr"`
}

// TechnicalAnalysisResult is the per-symbol output of the TA signal engine.
// Created once per scan cycle, read-only afterward.
type TechnicalAnalysisResult struct {
	Symbol          string     `json:"symbol"`
	Direction       string     `json:"direction"` // long | short
	Action          string     `json:"action"`    // Strong Buy | Buy | Hold | Sell
	Confidence      int        `json:"confidence_score"`
	TechnicalScore  int        `json:"technical_score"`
	SetupType       SetupType  `json:"setup_type"`
	Pattern         string     `json:"pattern"`
	Signals         []Signal   `json:"signals"`
	SignalsStacking []string   `json:"signals_stacking"`
	Indicators      Indicators `json:"indicators"`
	Plan            TradePlan  `json:"trade_plan"`
	Price           float64    `json:"price"`
	VolumeRatio     float64    `json:"volume_ratio"`
	CatalystCheck   string     `json:"catalyst_check,omitempty"`
	IsBearish       bool       `json:"is_bearish"`
}

// BullishCount returns the number of bullish signals.
func (r *TechnicalAnalysisResult) BullishCount() int {
	n := 0
	for _, s := range r.Signals {
		if s.Direction == Bullish {
			n++
		}
	}
	return n
}

// BearishCount returns the number of bearish signals.
func (r *TechnicalAnalysisResult) BearishCount() int {
	n := 0
	for _, s := range r.Signals {
		if s.Direction == Bearish {
			n++
		}
	}
	return n
}
