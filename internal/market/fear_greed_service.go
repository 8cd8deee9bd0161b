package market

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"verge/internal/logger"
)

const (
	fearGreedEndpoint     = "https://api.alternative.me/fng/"
	fearGreedTTL          = 4 * time.Hour
	fearGreedErrorBackoff = 2 * time.Minute
)

// FearGreedService caches the alternative.me index. A failed refresh keeps
// serving the last good reading and retries after a short backoff.
type FearGreedService struct {
	client *resty.Client
	ttl    time.Duration
	now    func() time.Time

	mu         sync.RWMutex
	data       *FearGreed
	history    []FearGreed
	nextUpdate time.Time
	lastErr    error
	refreshMu  sync.Mutex
}

func NewFearGreedService(baseURL string, ttl time.Duration) *FearGreedService {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = fearGreedEndpoint
	}
	if ttl <= 0 {
		ttl = fearGreedTTL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5*time.Second).
		SetHeader("Accept", "application/json")
	return &FearGreedService{client: client, ttl: ttl, now: time.Now}
}

// FearGreed returns the cached index, refreshing it first when stale.
func (s *FearGreedService) FearGreed(ctx context.Context) (*FearGreed, error) {
	s.RefreshIfStale(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data == nil {
		if s.lastErr != nil {
			return nil, s.lastErr
		}
		return nil, fmt.Errorf("fear & greed unavailable")
	}
	out := *s.data
	return &out, nil
}

func (s *FearGreedService) History() []FearGreed {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]FearGreed(nil), s.history...)
}

func (s *FearGreedService) RefreshIfStale(ctx context.Context) {
	if !s.stale() {
		return
	}
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	if !s.stale() {
		return
	}
	if err := s.refresh(ctx); err != nil {
		logger.Warnf("fear & greed refresh failed: %v", err)
	}
}

func (s *FearGreedService) stale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextUpdate.IsZero() || !s.now().Before(s.nextUpdate)
}

func (s *FearGreedService) refresh(ctx context.Context) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("limit", "5").
		Get("")
	if err != nil {
		return s.fail(err)
	}
	if resp.IsError() {
		return s.fail(fmt.Errorf("unexpected status %d", resp.StatusCode()))
	}
	body := gjson.ParseBytes(resp.Body())
	if apiErr := body.Get("metadata.error"); apiErr.Exists() && apiErr.Type != gjson.Null {
		return s.fail(fmt.Errorf("api error: %s", apiErr.String()))
	}

	var points []FearGreed
	for _, item := range body.Get("data").Array() {
		value, err := strconv.Atoi(strings.TrimSpace(item.Get("value").String()))
		if err != nil {
			continue
		}
		var ts time.Time
		if sec, err := strconv.ParseInt(strings.TrimSpace(item.Get("timestamp").String()), 10, 64); err == nil {
			ts = time.Unix(sec, 0).UTC()
		}
		points = append(points, FearGreed{
			Value:          value,
			Classification: strings.TrimSpace(item.Get("value_classification").String()),
			Timestamp:      ts,
		})
	}
	if len(points) == 0 {
		return s.fail(fmt.Errorf("api data empty"))
	}

	latest := points[0]
	s.mu.Lock()
	s.data = &latest
	s.history = points
	s.lastErr = nil
	s.nextUpdate = s.now().Add(s.ttl)
	s.mu.Unlock()
	return nil
}

func (s *FearGreedService) fail(err error) error {
	s.mu.Lock()
	s.lastErr = err
	s.nextUpdate = s.now().Add(fearGreedErrorBackoff)
	s.mu.Unlock()
	return err
}
