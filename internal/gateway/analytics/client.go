package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"verge/internal/logger"
	"verge/internal/market"
)

// Remote calls an external analytics service that classifies regimes and
// computes indicators from posted candles.
type Remote struct {
	http *resty.Client
}

func NewRemote(baseURL string, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Remote{http: resty.New().SetBaseURL(baseURL).SetTimeout(timeout)}
}

type candlePayload struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

type request struct {
	Symbol    string          `json:"symbol"`
	Timeframe string          `json:"timeframe"`
	Data      []candlePayload `json:"data"`
}

func (r *Remote) post(ctx context.Context, path, symbol, timeframe string, candles []market.Candle) (gjson.Result, error) {
	if len(candles) == 0 {
		return gjson.Result{}, errors.New("analytics: no candles")
	}
	req := request{Symbol: symbol, Timeframe: timeframe, Data: make([]candlePayload, len(candles))}
	for i, c := range candles {
		req.Data[i] = candlePayload{Timestamp: c.OpenTime, Open: c.Open, High: c.High, Low: c.Low, Close: c.Close, Volume: c.Volume}
	}
	resp, err := r.http.R().SetContext(ctx).SetBody(req).Post(path)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("analytics %s: %w", path, err)
	}
	if resp.IsError() {
		return gjson.Result{}, fmt.Errorf("analytics %s: unexpected status %d", path, resp.StatusCode())
	}
	return gjson.ParseBytes(resp.Body()), nil
}

func (r *Remote) DetectRegime(ctx context.Context, symbol, timeframe string, candles []market.Candle) (*market.Regime, error) {
	body, err := r.post(ctx, "/detect-regime", symbol, timeframe, candles)
	if err != nil {
		return nil, err
	}
	typ, ok := market.ParseRegimeType(body.Get("regime").String())
	if !ok {
		return nil, fmt.Errorf("analytics: unknown regime %q", body.Get("regime").String())
	}
	return &market.Regime{
		Type:            typ,
		VolatilityScore: body.Get("volatility_score").Float(),
		TrendStrength:   body.Get("trend_strength").Float(),
	}, nil
}

func (r *Remote) AnalyzeTechnicals(ctx context.Context, symbol, timeframe string, candles []market.Candle) (*market.Technicals, error) {
	body, err := r.post(ctx, "/analyze-technicals", symbol, timeframe, candles)
	if err != nil {
		return nil, err
	}
	out := &market.Technicals{
		RSI:           body.Get("rsi").Float(),
		MACDHistogram: body.Get("macd_histogram").Float(),
		BBWidth:       body.Get("bb_width").Float(),
	}
	if v := body.Get("adx"); v.Type == gjson.Number {
		adx := v.Float()
		out.ADX = &adx
	}
	return out, nil
}

// Fallback tries the primary provider and answers from the secondary when it
// errors. Typically remote first, local indicators second.
type Fallback struct {
	Primary   market.AnalyticsProvider
	Secondary market.AnalyticsProvider
}

func (f Fallback) DetectRegime(ctx context.Context, symbol, timeframe string, candles []market.Candle) (*market.Regime, error) {
	out, err := f.Primary.DetectRegime(ctx, symbol, timeframe, candles)
	if err == nil || f.Secondary == nil {
		return out, err
	}
	logger.Debugf("analytics: regime via fallback for %s: %v", symbol, err)
	return f.Secondary.DetectRegime(ctx, symbol, timeframe, candles)
}

func (f Fallback) AnalyzeTechnicals(ctx context.Context, symbol, timeframe string, candles []market.Candle) (*market.Technicals, error) {
	out, err := f.Primary.AnalyzeTechnicals(ctx, symbol, timeframe, candles)
	if err == nil || f.Secondary == nil {
		return out, err
	}
	logger.Debugf("analytics: technicals via fallback for %s: %v", symbol, err)
	return f.Secondary.AnalyzeTechnicals(ctx, symbol, timeframe, candles)
}
