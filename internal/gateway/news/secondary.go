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

const DefaultSecondaryURL = "https://min-api.cryptocompare.com"

// Secondary reads the CryptoCompare public news feed. It has no sentiment
// endpoint, so headlines are scored with a small keyword lexicon.
type Secondary struct {
	client *resty.Client
}

func NewSecondary(baseURL string, timeout time.Duration) *Secondary {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultSecondaryURL
	}
	return &Secondary{client: resty.New().SetBaseURL(baseURL).SetTimeout(timeout)}
}

func (s *Secondary) FetchNews(ctx context.Context, ticker string, limit int) ([]market.NewsItem, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"categories": ticker, "limit": strconv.Itoa(limit)}).
		Get("/data/v2/news/")
	if err := checkResponse("cryptocompare news", resp, err); err != nil {
		return nil, err
	}
	var out []market.NewsItem
	for _, a := range gjson.GetBytes(resp.Body(), "Data").Array() {
		item := market.NewsItem{
			Title:  a.Get("title").String(),
			Source: a.Get("source").String(),
			URL:    a.Get("url").String(),
		}
		if sec := a.Get("published_on").Int(); sec > 0 {
			item.PublishedAt = time.Unix(sec, 0).UTC()
		}
		if item.Title == "" {
			continue
		}
		item.Sentiment = labelHeadline(item.Title)
		out = append(out, item)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

var (
	bullishWords = []string{"surge", "rally", "bull", "gain", "soar", "record high", "breakout", "approval", "inflow", "adoption", "jumps"}
	bearishWords = []string{"crash", "plunge", "bear", "drop", "falls", "hack", "ban", "lawsuit", "outflow", "selloff", "liquidat", "slump"}
)

func labelHeadline(title string) market.SentimentLabel {
	t := strings.ToLower(title)
	score := 0
	for _, w := range bullishWords {
		if strings.Contains(t, w) {
			score++
		}
	}
	for _, w := range bearishWords {
		if strings.Contains(t, w) {
			score--
		}
	}
	switch {
	case score > 0:
		return market.SentimentPositive
	case score < 0:
		return market.SentimentNegative
	default:
		return market.SentimentNeutral
	}
}

// Aggregate folds per-headline labels into one reading in [0,1].
func Aggregate(items []market.NewsItem, source market.Provenance) market.Sentiment {
	pos, neg := 0, 0
	for _, it := range items {
		switch it.Sentiment {
		case market.SentimentPositive:
			pos++
		case market.SentimentNegative:
			neg++
		}
	}
	out := market.Sentiment{Label: market.SentimentNeutral, Score: 0.5, Source: source}
	if pos+neg == 0 {
		return out
	}
	out.Score = 0.5 + 0.5*float64(pos-neg)/float64(pos+neg)
	switch {
	case pos > neg:
		out.Label = market.SentimentPositive
	case neg > pos:
		out.Label = market.SentimentNegative
	}
	return out
}
