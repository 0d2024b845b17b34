package ta

import (
	"fmt"

	"MarketScan/internal/domain/models"
)

// Signal names. Setup classification and the fidelity filter key off these.
const (
	SigPriceAboveSMA50        = "price_above_sma50"
	SigSMA50AboveSMA200       = "sma50_above_sma200"
	SigMACDBullCross          = "macd_bull_cross"
	SigRSIBullZone            = "rsi_bull_zone"
	SigBreakoutPivot          = "breakout_pivot"
	SigVolumeSpike2x          = "volume_spike_2x"
	SigVolumeExpansion        = "volume_expansion"
	SigEMA20CrossEMA50        = "ema20_cross_ema50"
	SigStage2Uptrend          = "stage2_uptrend"
	SigRangeBreakout          = "range_breakout"
	SigVolatilityContraction  = "volatility_contraction"
	SigPriceBelowSMA50        = "price_below_sma50"
	SigSMA50BelowSMA200       = "sma50_below_sma200"
	SigMACDBearCross          = "macd_bear_cross"
	SigBreakdownSupport       = "breakdown_support"
)

// detectSignals runs every detection rule over the series and the computed
// indicator set. Recency bonuses compare an indicator against its value a
// few bars earlier.
func detectSignals(closes, highs, lows []float64, volumes []int64, ind *models.Indicators) []models.Signal {
	var signals []models.Signal
	price := closes[len(closes)-1]

	volRatio := ind.VolumeRatio

	// Price above SMA50, with slope-rising bonus.
	if ind.SMA50 != nil && price > *ind.SMA50 {
		sma50 := *ind.SMA50
		distPct := (price - sma50) / sma50 * 100
		rising := sma50SlopeRising(closes)
		var strength int
		if rising {
			strength = minInt(80, 40+int(distPct*3))
		} else {
			strength = minInt(60, 30+int(distPct*2))
		}
		ev := fmt.Sprintf("Price $%.2f is %.1f%% above SMA50 $%.2f", price, distPct, sma50)
		if rising {
			ev += ", SMA50 slope rising"
		}
		signals = append(signals, models.Signal{Name: SigPriceAboveSMA50, Direction: models.Bullish, Strength: strength, Evidence: ev})
	}

	// Golden cross territory, with recency bonus.
	if ind.SMA50 != nil && ind.SMA200 != nil && *ind.SMA50 > *ind.SMA200 {
		gapPct := (*ind.SMA50 - *ind.SMA200) / *ind.SMA200 * 100
		recent := recentGoldenCross(closes)
		strength := minInt(65, 40+int(gapPct*3))
		if recent {
			strength = 75
		}
		ev := fmt.Sprintf("SMA50 $%.2f > SMA200 $%.2f (gap %.1f%%)", *ind.SMA50, *ind.SMA200, gapPct)
		if recent {
			ev += ", recent golden cross"
		}
		signals = append(signals, models.Signal{Name: SigSMA50AboveSMA200, Direction: models.Bullish, Strength: strength, Evidence: ev})
	}

	// MACD bull cross with positive histogram.
	if ind.MACD != nil && ind.MACDSignal != nil && *ind.MACD > *ind.MACDSignal &&
		ind.MACDHistogram != nil && *ind.MACDHistogram > 0 {
		recentCross, improving := macdMomentum(closes, true)
		strength := 45
		if recentCross {
			strength = 70
		} else if improving {
			strength = 60
		}
		ev := fmt.Sprintf("MACD %.4f > Signal %.4f, histogram %.4f", *ind.MACD, *ind.MACDSignal, *ind.MACDHistogram)
		if recentCross {
			ev += ", recent cross"
		}
		signals = append(signals, models.Signal{Name: SigMACDBullCross, Direction: models.Bullish, Strength: strength, Evidence: ev})
	}

	// RSI in the 50-70 bull zone, rising bonus.
	if ind.RSI != nil && *ind.RSI >= 50 && *ind.RSI <= 70 {
		rsi := *ind.RSI
		rising := false
		var prev float64
		if len(closes) > 15 {
			if p, ok := RSI(closes[:len(closes)-1], 14); ok {
				prev = p
				rising = rsi > p
			}
		}
		var strength int
		if rising {
			strength = minInt(70, 40+int((rsi-50)*1.5))
		} else {
			strength = minInt(55, 30+int(rsi-50))
		}
		ev := fmt.Sprintf("RSI=%.1f (50-70 bull zone)", rsi)
		if rising {
			ev = fmt.Sprintf("RSI=%.1f rising from %.1f (50-70 bull zone)", rsi, prev)
		}
		signals = append(signals, models.Signal{Name: SigRSIBullZone, Direction: models.Bullish, Strength: strength, Evidence: ev})
	}

	// 20-day pivot breakout with volume-ratio bonus. The pivot is the prior
	// 20-day high excluding today's bar.
	if len(highs) >= 21 {
		pivot := highest(highs[:len(highs)-1], 20)
		if price > pivot*1.001 {
			pctAbove := (price - pivot) / pivot * 100
			var strength int
			ev := fmt.Sprintf("Close $%.2f broke 20-day high $%.2f (+%.1f%%)", price, pivot, pctAbove)
			if volRatio >= 1.5 {
				strength = minInt(85, 55+int(pctAbove*5))
				ev += fmt.Sprintf(", vol %.1fx avg", volRatio)
			} else {
				strength = minInt(65, 45+int(pctAbove*3))
			}
			signals = append(signals, models.Signal{Name: SigBreakoutPivot, Direction: models.Bullish, Strength: strength, Evidence: ev})
		}
	}

	// Volume spike / expansion.
	currentVol := ind.CurrentVolume
	if volRatio >= 2.0 {
		strength := minInt(80, 50+int((volRatio-2)*10))
		ev := fmt.Sprintf("Volume %d is %.1fx 20d avg (%.0f)", currentVol, volRatio, ind.AvgVolume)
		signals = append(signals, models.Signal{Name: SigVolumeSpike2x, Direction: models.Bullish, Strength: strength, Evidence: ev})
	} else if volRatio >= 1.5 {
		strength := minInt(50, 30+int((volRatio-1.5)*40))
		ev := fmt.Sprintf("Volume %d is %.1fx 20d avg", currentVol, volRatio)
		signals = append(signals, models.Signal{Name: SigVolumeExpansion, Direction: models.Bullish, Strength: strength, Evidence: ev})
	}

	// EMA20 crossing above EMA50, only when the cross just happened.
	if ind.EMA20 != nil && ind.EMA50 != nil && *ind.EMA20 > *ind.EMA50 {
		prev20, ok20 := EMA(closes[:len(closes)-1], 20)
		prev50, ok50 := EMA(closes[:len(closes)-1], 50)
		if ok20 && ok50 && prev20 <= prev50 {
			ev := fmt.Sprintf("EMA20 $%.2f just crossed above EMA50 $%.2f", *ind.EMA20, *ind.EMA50)
			signals = append(signals, models.Signal{Name: SigEMA20CrossEMA50, Direction: models.Bullish, Strength: 65, Evidence: ev})
		}
	}

	// Stage 2: above both long SMAs and within 5% of the 52-week high.
	if ind.SMA200 != nil && price > *ind.SMA200 && ind.SMA50 != nil && *ind.SMA50 > *ind.SMA200 && len(highs) >= 52 {
		lookback := len(highs)
		if lookback > 252 {
			lookback = 252
		}
		high52 := highest(highs, lookback)
		if price >= high52*0.95 {
			ev := fmt.Sprintf("Stage 2: price above SMA50/200, near 52w high $%.2f", high52)
			signals = append(signals, models.Signal{Name: SigStage2Uptrend, Direction: models.Bullish, Strength: 70, Evidence: ev})
		}
	}

	// Tight-range breakout.
	if len(closes) >= 20 {
		rangeHigh := highest(highs, 20)
		rangeLow := lowest(lows, 20)
		if rangeLow > 0 {
			width := (rangeHigh - rangeLow) / rangeLow
			if width >= 0.03 && width <= 0.15 && price > rangeHigh*0.99 {
				ev := fmt.Sprintf("Breaking out of %.1f%% range ($%.2f-$%.2f)", width*100, rangeLow, rangeHigh)
				signals = append(signals, models.Signal{Name: SigRangeBreakout, Direction: models.Bullish, Strength: 60, Evidence: ev})
			}
		}
	}

	// Volatility squeeze: 20d range under half the prior 20d range.
	if len(closes) >= 40 {
		recent := highest(highs, 20) - lowest(lows, 20)
		priorHighs := highs[len(highs)-40 : len(highs)-20]
		priorLows := lows[len(lows)-40 : len(lows)-20]
		prior := highest(priorHighs, 20) - lowest(priorLows, 20)
		if prior > 0 && recent < prior*0.5 {
			ev := fmt.Sprintf("20d range contracted to %.0f%% of prior range (squeeze setup)", recent/prior*100)
			signals = append(signals, models.Signal{Name: SigVolatilityContraction, Direction: models.Bullish, Strength: 45, Evidence: ev})
		}
	}

	// Bearish mirrors.
	if ind.SMA50 != nil && price < *ind.SMA50 {
		distPct := (*ind.SMA50 - price) / *ind.SMA50 * 100
		ev := fmt.Sprintf("Price $%.2f is %.1f%% below SMA50 $%.2f", price, distPct, *ind.SMA50)
		signals = append(signals, models.Signal{Name: SigPriceBelowSMA50, Direction: models.Bearish, Strength: minInt(70, 30+int(distPct*3)), Evidence: ev})
	}

	if ind.SMA50 != nil && ind.SMA200 != nil && *ind.SMA50 < *ind.SMA200 {
		gapPct := (*ind.SMA200 - *ind.SMA50) / *ind.SMA200 * 100
		ev := fmt.Sprintf("SMA50 $%.2f < SMA200 $%.2f (death cross territory, gap %.1f%%)", *ind.SMA50, *ind.SMA200, gapPct)
		signals = append(signals, models.Signal{Name: SigSMA50BelowSMA200, Direction: models.Bearish, Strength: minInt(70, 35+int(gapPct*3)), Evidence: ev})
	}

	if ind.MACD != nil && ind.MACDSignal != nil && *ind.MACD < *ind.MACDSignal &&
		ind.MACDHistogram != nil && *ind.MACDHistogram < 0 {
		recentCross, _ := macdMomentum(closes, false)
		strength := 45
		if recentCross {
			strength = 65
		}
		ev := fmt.Sprintf("MACD %.4f < Signal %.4f, histogram %.4f", *ind.MACD, *ind.MACDSignal, *ind.MACDHistogram)
		if recentCross {
			ev += ", recent bearish cross"
		}
		signals = append(signals, models.Signal{Name: SigMACDBearCross, Direction: models.Bearish, Strength: strength, Evidence: ev})
	}

	if len(lows) >= 21 {
		pivotLow := lowest(lows[:len(lows)-1], 20)
		if price < pivotLow {
			pctBelow := (pivotLow - price) / pivotLow * 100
			ev := fmt.Sprintf("Close $%.2f broke 20-day low $%.2f (-%.1f%%)", price, pivotLow, pctBelow)
			signals = append(signals, models.Signal{Name: SigBreakdownSupport, Direction: models.Bearish, Strength: minInt(80, 50+int(pctBelow*5)), Evidence: ev})
		}
	}

	return signals
}

// sma50SlopeRising compares SMA50 now against five bars back.
func sma50SlopeRising(closes []float64) bool {
	cur, ok1 := SMA(closes, 50)
	if !ok1 || len(closes) < 55 {
		return false
	}
	prev, ok2 := SMA(closes[:len(closes)-5], 50)
	return ok2 && cur > prev
}

// recentGoldenCross reports whether SMA50 was at or below SMA200 five bars
// back while being above now.
func recentGoldenCross(closes []float64) bool {
	if len(closes) < 206 {
		return false
	}
	prev50, ok1 := SMA(closes[:len(closes)-5], 50)
	prev200, ok2 := SMA(closes[:len(closes)-5], 200)
	return ok1 && ok2 && prev50 <= prev200
}

// macdMomentum inspects the MACD-minus-signal spread over the last five
// bars: whether it crossed zero in the asked direction and whether it is
// improving in that direction.
func macdMomentum(closes []float64, bull bool) (recentCross, improving bool) {
	start := len(closes) - 5
	if start < 0 {
		start = 0
	}
	var series []float64
	for i := start; i < len(closes); i++ {
		if m, ok := MACD(closes[:i+1], 12, 26, 9); ok {
			series = append(series, m.MACD-m.Signal)
		}
	}
	if len(series) < 2 {
		return false, false
	}
	first, last := series[0], series[len(series)-1]
	if bull {
		return last > 0 && first <= 0, last > first
	}
	return last < 0 && first >= 0, last < first
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
