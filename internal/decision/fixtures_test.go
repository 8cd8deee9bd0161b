package decision

import (
	"verge/internal/market"
)

func flatCandles(n int, price float64) []market.Candle {
	out := make([]market.Candle, n)
	for i := range out {
		out[i] = market.Candle{
			OpenTime: int64(i) * 900_000,
			Open:     price,
			High:     price * 1.001,
			Low:      price * 0.999,
			Close:    price,
		}
	}
	return out
}

// goldenDayContext scores 76 for a DayTrading long.
func goldenDayContext() *MarketContext {
	return &MarketContext{
		Symbol:     "BTCUSDT",
		Timeframe:  "15m",
		AsOf:       1_700_000_000_000,
		FearGreed:  &market.FearGreed{Value: 15},
		Sentiment:  &market.Sentiment{Label: market.SentimentPositive, Score: 0.8, Source: market.ProvenancePrimary},
		Regime:     &market.Regime{Type: market.RegimeBullTrend, TrendStrength: 80},
		Technicals: &market.Technicals{RSI: 65, ADX: adx(40), MACDHistogram: 1},
		Candles:    flatCandles(30, 100),
	}
}

func gridContext() *MarketContext {
	return &MarketContext{
		Symbol:     "ETHUSDT",
		Timeframe:  "15m",
		FearGreed:  &market.FearGreed{Value: 15},
		Sentiment:  &market.Sentiment{Label: market.SentimentPositive, Source: market.ProvenancePrimary},
		Regime:     &market.Regime{Type: market.RegimeRanging, TrendStrength: 20},
		Technicals: &market.Technicals{RSI: 25, ADX: adx(15), MACDHistogram: 1},
		Candles:    flatCandles(30, 2000),
	}
}

func adx(v float64) *float64 { return &v }
