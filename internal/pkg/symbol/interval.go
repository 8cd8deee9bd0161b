package symbol

import "strings"

var intervalAliases = map[string]string{
	"1":   "1m",
	"3":   "3m",
	"5":   "5m",
	"15":  "15m",
	"30":  "30m",
	"60":  "1h",
	"120": "2h",
	"240": "4h",
	"1D":  "1d",
	"D":   "1d",
	"1W":  "1w",
	"W":   "1w",
}

// ladder orders the intervals used for higher-timeframe lookups.
var ladder = []string{"1m", "3m", "5m", "15m", "30m", "1h", "2h", "4h", "1d", "1w"}

// Interval maps chart-style timeframes ("15", "240", "1D") to exchange
// intervals ("15m", "4h", "1d"). Already-normalized values pass through.
func Interval(tf string) string {
	tf = strings.TrimSpace(tf)
	if tf == "" {
		return ""
	}
	if v, ok := intervalAliases[strings.ToUpper(tf)]; ok {
		return v
	}
	lower := strings.ToLower(tf)
	for _, v := range ladder {
		if v == lower {
			return v
		}
	}
	return lower
}

// StepUp returns the next interval on the ladder, or the input itself when
// it is already the largest or unknown.
func StepUp(tf string) string {
	norm := Interval(tf)
	for i, v := range ladder {
		if v == norm && i+1 < len(ladder) {
			return ladder[i+1]
		}
	}
	return norm
}
