package scheduler

import (
	"strconv"
	"strings"
	"time"

	"verge/internal/pkg/symbol"
)

// ParseIntervalDuration parses "15m", "1h", "4h", "1d", "1w" (or chart
// aliases such as "15" and "240") into a duration.
// Returns (0, false) on invalid input.
func ParseIntervalDuration(interval string) (time.Duration, bool) {
	interval = symbol.Interval(interval)
	if len(interval) < 2 {
		return 0, false
	}
	unit := interval[len(interval)-1]
	n, err := strconv.Atoi(strings.TrimSpace(interval[:len(interval)-1]))
	if err != nil || n <= 0 {
		return 0, false
	}
	switch unit {
	case 'm':
		return time.Duration(n) * time.Minute, true
	case 'h':
		return time.Duration(n) * time.Hour, true
	case 'd':
		return time.Duration(n) * 24 * time.Hour, true
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, true
	default:
		return 0, false
	}
}
