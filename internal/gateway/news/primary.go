package news

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"verge/internal/market"
)

const DefaultPrimaryURL = "https://cryptocurrency.cv"

// Primary talks to the cryptocurrency.cv news and AI sentiment API.
type Primary struct {
	client *resty.Client
}

func NewPrimary(baseURL string, timeout time.Duration) *Primary {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultPrimaryURL
	}
	return &Primary{client: resty.New().SetBaseURL(baseURL).SetTimeout(timeout)}
}

func (p *Primary) FetchNews(ctx context.Context, ticker string, limit int) ([]market.NewsItem, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"ticker": ticker, "limit": strconv.Itoa(limit)}).
		Get("/api/news")
	if err := checkResponse("cryptocurrency.cv news", resp, err); err != nil {
		return nil, err
	}
	body := gjson.ParseBytes(resp.Body())
	articles := body.Get("articles")
	if !articles.Exists() {
		articles = body.Get("Articles")
	}
	var out []market.NewsItem
	for _, a := range articles.Array() {
		item := market.NewsItem{
			Title:  a.Get("title").String(),
			Source: a.Get("source").String(),
			URL:    a.Get("url").String(),
		}
		if ts, err := time.Parse(time.RFC3339, a.Get("publishedAt").String()); err == nil {
			item.PublishedAt = ts.UTC()
		}
		if s := a.Get("sentiment"); s.Exists() {
			item.Sentiment = market.ParseSentimentLabel(s.String())
		}
		if item.Title != "" {
			out = append(out, item)
		}
	}
	return out, nil
}

func (p *Primary) FetchSentiment(ctx context.Context, ticker string) (*market.Sentiment, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("asset", ticker).
		Get("/api/ai/sentiment")
	if err := checkResponse("cryptocurrency.cv sentiment", resp, err); err != nil {
		return nil, err
	}
	body := gjson.ParseBytes(resp.Body())
	label := body.Get("label")
	if !label.Exists() {
		return nil, ErrNotFound
	}
	return &market.Sentiment{
		Label:  market.ParseSentimentLabel(label.String()),
		Score:  body.Get("score").Float(),
		Source: market.ProvenancePrimary,
	}, nil
}
