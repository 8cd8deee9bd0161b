package market

import "time"

type Candle struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Trades    int64   `json:"trades"`
}

// OpenAt returns the candle open time; OpenTime is in epoch milliseconds.
func (c Candle) OpenAt() time.Time {
	return time.UnixMilli(c.OpenTime).UTC()
}

func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

func Highs(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.High
	}
	return out
}

func Lows(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Low
	}
	return out
}

// Last returns the most recent candle; ok is false for an empty series.
func Last(candles []Candle) (Candle, bool) {
	if len(candles) == 0 {
		return Candle{}, false
	}
	return candles[len(candles)-1], true
}
