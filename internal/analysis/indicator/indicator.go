package indicator

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"verge/internal/market"
)

const (
	DefaultRSIPeriod = 14
	DefaultADXPeriod = 14
	DefaultBBPeriod  = 20
	DefaultATRPeriod = 14

	neutralRSI = 50
)

// RSI returns the latest Wilder RSI of closes. Series shorter than period+1
// and flat series yield the neutral value 50.
func RSI(closes []float64, period int) float64 {
	if period <= 0 {
		period = DefaultRSIPeriod
	}
	if len(closes) < period+1 {
		return neutralRSI
	}
	if isFlat(closes) {
		return neutralRSI
	}
	v := lastValid(talib.Rsi(closes, period))
	return clamp(round4(v), 0, 100)
}

// MACDHistogram uses the standard 12/26/9 setup.
func MACDHistogram(closes []float64) (float64, bool) {
	if len(closes) < 26+9 {
		return 0, false
	}
	_, _, hist := talib.Macd(closes, 12, 26, 9)
	return round4(lastValid(hist)), true
}

func ADX(candles []market.Candle, period int) (float64, bool) {
	if period <= 0 {
		period = DefaultADXPeriod
	}
	if len(candles) < 2*period+1 {
		return 0, false
	}
	series := talib.Adx(market.Highs(candles), market.Lows(candles), market.Closes(candles), period)
	return round4(lastValid(series)), true
}

// BBWidth is (upper-lower)/middle of 2-sigma Bollinger bands.
func BBWidth(closes []float64, period int) (float64, bool) {
	if period <= 0 {
		period = DefaultBBPeriod
	}
	if len(closes) < period {
		return 0, false
	}
	upper, middle, lower := talib.BBands(closes, period, 2, 2, talib.SMA)
	mid := lastValid(middle)
	if almostZero(mid) {
		return 0, false
	}
	return round4((lastValid(upper) - lastValid(lower)) / mid), true
}

// ATRPercent is the latest ATR as a percentage of the last close.
func ATRPercent(candles []market.Candle, period int) (float64, bool) {
	if period <= 0 {
		period = DefaultATRPeriod
	}
	if len(candles) < period+1 {
		return 0, false
	}
	last := candles[len(candles)-1].Close
	if almostZero(last) {
		return 0, false
	}
	atr := lastValid(talib.Atr(market.Highs(candles), market.Lows(candles), market.Closes(candles), period))
	return round4(atr / last * 100), true
}

func EMA(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period {
		return 0, false
	}
	return round4(lastValid(talib.Ema(closes, period))), true
}

// Compute builds the technical snapshot the decision engine consumes.
// Indicators without enough history fall back to neutral values, except ADX
// which is left nil.
func Compute(candles []market.Candle) (market.Technicals, error) {
	if len(candles) == 0 {
		return market.Technicals{}, fmt.Errorf("no candles")
	}
	closes := market.Closes(candles)
	out := market.Technicals{RSI: RSI(closes, DefaultRSIPeriod)}
	if v, ok := MACDHistogram(closes); ok {
		out.MACDHistogram = v
	}
	if v, ok := ADX(candles, DefaultADXPeriod); ok {
		out.ADX = &v
	}
	if v, ok := BBWidth(closes, DefaultBBPeriod); ok {
		out.BBWidth = v
	}
	return out, nil
}

func isFlat(series []float64) bool {
	for i := 1; i < len(series); i++ {
		if series[i] != series[0] {
			return false
		}
	}
	return true
}

func lastValid(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if !math.IsNaN(series[i]) && !math.IsInf(series[i], 0) {
			return series[i]
		}
	}
	return 0
}

func almostZero(v float64) bool {
	return math.Abs(v) <= 1e-9
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
