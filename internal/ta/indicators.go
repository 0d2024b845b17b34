package ta

import "math"

// Pure indicator math over price series. No I/O, no external state.

// SMA returns the simple moving average of the last period values, or
// (0, false) when the series is too short.
func SMA(data []float64, period int) (float64, bool) {
	if period <= 0 || len(data) < period {
		return 0, false
	}
	sum := 0.0
	for _, v := range data[len(data)-period:] {
		sum += v
	}
	return sum / float64(period), true
}

// EMA returns the exponential moving average seeded with the SMA of the
// first period values.
func EMA(data []float64, period int) (float64, bool) {
	if period <= 0 || len(data) < period {
		return 0, false
	}
	multiplier := 2.0 / float64(period+1)
	ema := 0.0
	for _, v := range data[:period] {
		ema += v
	}
	ema /= float64(period)
	for _, v := range data[period:] {
		ema = (v-ema)*multiplier + ema
	}
	return ema, true
}

// EMASeries returns the full EMA series starting at index period-1.
func EMASeries(data []float64, period int) []float64 {
	if period <= 0 || len(data) < period {
		return nil
	}
	multiplier := 2.0 / float64(period+1)
	ema := 0.0
	for _, v := range data[:period] {
		ema += v
	}
	ema /= float64(period)
	out := make([]float64, 0, len(data)-period+1)
	out = append(out, ema)
	for _, v := range data[period:] {
		ema = (v-ema)*multiplier + ema
		out = append(out, ema)
	}
	return out
}

// RSI computes the relative strength index over the most recent period
// deltas. Returns 100 when there are no losses in the window.
func RSI(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period+1 {
		return 0, false
	}
	gains, losses := 0.0, 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gains += d
		} else {
			losses -= d
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), true
}

// MACDResult holds the MACD line, signal line and histogram.
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD computes MACD(fast, slow, signal). Requires slow+signal closes for a
// signal line; returns false otherwise.
func MACD(closes []float64, fast, slow, signal int) (MACDResult, bool) {
	if len(closes) < slow+signal {
		return MACDResult{}, false
	}

	fastSeries := EMASeries(closes, fast)
	slowSeries := EMASeries(closes, slow)
	if fastSeries == nil || slowSeries == nil {
		return MACDResult{}, false
	}

	// Align the two series on their tails and difference them.
	n := len(slowSeries)
	macdSeries := make([]float64, n)
	offset := len(fastSeries) - n
	for i := 0; i < n; i++ {
		macdSeries[i] = fastSeries[i+offset] - slowSeries[i]
	}

	sig, ok := EMA(macdSeries, signal)
	if !ok {
		return MACDResult{}, false
	}
	macd := macdSeries[n-1]
	return MACDResult{
		MACD:      macd,
		Signal:    sig,
		Histogram: macd - sig,
	}, true
}

// ATR computes the average true range over the last period true ranges.
func ATR(highs, lows, closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period+1 || len(highs) != len(closes) || len(lows) != len(closes) {
		return 0, false
	}
	sum := 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		tr := math.Max(highs[i]-lows[i],
			math.Max(math.Abs(highs[i]-closes[i-1]), math.Abs(lows[i]-closes[i-1])))
		sum += tr
	}
	return sum / float64(period), true
}

// highest returns the max of the last n values.
func highest(data []float64, n int) float64 {
	if n > len(data) {
		n = len(data)
	}
	m := data[len(data)-n]
	for _, v := range data[len(data)-n:] {
		if v > m {
			m = v
		}
	}
	return m
}

// lowest returns the min of the last n values.
func lowest(data []float64, n int) float64 {
	if n > len(data) {
		n = len(data)
	}
	m := data[len(data)-n]
	for _, v := range data[len(data)-n:] {
		if v < m {
			m = v
		}
	}
	return m
}
