package snapshot

import (
	"fmt"
	"sync"
	"time"

	"verge/internal/decision"
)

const DefaultTTL = 5 * time.Minute

type entry struct {
	ctx       *decision.MarketContext
	expiresAt time.Time
}

// Cache memoizes assembled contexts by (symbol, timeframe, last candle open
// time). A new candle always misses; the TTL bounds signals that age
// without a new candle. Concurrent Set of the same key overwrites.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry
	sets    int
}

func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{ttl: ttl, now: time.Now, entries: make(map[string]entry)}
}

func key(symbol, timeframe string, lastCandleTs int64) string {
	return fmt.Sprintf("MarketSnapshot_%s_%s_%d", symbol, timeframe, lastCandleTs)
}

func (c *Cache) Get(symbol, timeframe string, lastCandleTs int64) (*decision.MarketContext, bool) {
	k := key(symbol, timeframe, lastCandleTs)
	c.mu.RLock()
	e, ok := c.entries[k]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		if cur, ok := c.entries[k]; ok && !c.now().Before(cur.expiresAt) {
			delete(c.entries, k)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.ctx, true
}

// Set stores ctx; a non-positive ttl uses the cache default.
func (c *Cache) Set(symbol, timeframe string, lastCandleTs int64, ctx *decision.MarketContext, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key(symbol, timeframe, lastCandleTs)] = entry{ctx: ctx, expiresAt: c.now().Add(ttl)}
	c.sets++
	if c.sets%256 == 0 {
		c.sweepLocked()
	}
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) sweepLocked() {
	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}
