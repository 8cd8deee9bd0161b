package scheduler

import (
	"time"

	"verge/internal/market"
)

// CandleGrace is how long after its nominal close a candle still counts as
// forming. Venues publish the final print a few seconds late.
const CandleGrace = 10 * time.Second

// ClosedCandles trims trailing candles that are still forming at now.
// Open times are milliseconds since epoch; unknown open times are kept.
func ClosedCandles(candles []market.Candle, interval time.Duration, now time.Time) []market.Candle {
	if interval <= 0 {
		return candles
	}
	cutoff := now.UnixMilli() - interval.Milliseconds() - CandleGrace.Milliseconds()
	end := len(candles)
	for end > 0 {
		if open := candles[end-1].OpenTime; open <= 0 || open <= cutoff {
			break
		}
		end--
	}
	return candles[:end]
}
