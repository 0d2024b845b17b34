package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"MarketScan/internal/domain/models"
	xhttp "MarketScan/pkg/http"
)

const stocktwitsBaseURL = "https://api.stocktwits.com/api/2"

// StockTwits derives bull/bear sentiment from recent stream messages.
// Public endpoint, no key, but aggressively rate limited.
type StockTwits struct {
	baseURL string
	client  *xhttp.Client
}

func NewStockTwits(baseURL string, client *xhttp.Client) *StockTwits {
	if baseURL == "" {
		baseURL = stocktwitsBaseURL
	}
	return &StockTwits{baseURL: baseURL, client: client}
}

func (s *StockTwits) Name() string { return "stocktwits" }

type stocktwitsStream struct {
	Symbol struct {
		WatchlistCount int `json:"watchlist_count"`
	} `json:"symbol"`
	Messages []struct {
		Body     string `json:"body"`
		Entities struct {
			Sentiment *struct {
				Basic string `json:"basic"`
			} `json:"sentiment"`
		} `json:"entities"`
	} `json:"messages"`
}

// FetchSentiment computes the bullish/bearish split over the latest
// message stream. Messages without a tagged sentiment are ignored.
func (s *StockTwits) FetchSentiment(ctx context.Context, symbol string) (*models.Sentiment, error) {
	resp, err := s.client.SendRequest(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    fmt.Sprintf("%s/streams/symbol/%s.json", s.baseURL, symbol),
	})
	if err != nil {
		return nil, fmt.Errorf("stocktwits: %w: %v", models.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus("stocktwits", resp.StatusCode); err != nil {
		return nil, err
	}

	var stream stocktwitsStream
	if err := json.NewDecoder(resp.Body).Decode(&stream); err != nil {
		return nil, fmt.Errorf("stocktwits: decode: %w", models.ErrMalformed)
	}

	var bull, bear int
	headlines := make([]string, 0, maxHeadlines)
	for _, m := range stream.Messages {
		if body := strings.TrimSpace(m.Body); body != "" && len(headlines) < maxHeadlines {
			if len(body) > maxHeadlineLen {
				body = body[:maxHeadlineLen]
			}
			headlines = append(headlines, body)
		}
		if m.Entities.Sentiment == nil {
			continue
		}
		switch m.Entities.Sentiment.Basic {
		case "Bullish":
			bull++
		case "Bearish":
			bear++
		}
	}
	tagged := bull + bear
	if tagged == 0 {
		return nil, fmt.Errorf("stocktwits: no tagged messages for %s: %w", symbol, models.ErrInsufficientData)
	}

	return &models.Sentiment{
		BullPct:   float64(bull) / float64(tagged) * 100,
		BearPct:   float64(bear) / float64(tagged) * 100,
		Watchers:  stream.Symbol.WatchlistCount,
		Headlines: headlines,
	}, nil
}

const (
	maxHeadlines   = 5
	maxHeadlineLen = 200
)

type stocktwitsTrending struct {
	Symbols []struct {
		Symbol         string `json:"symbol"`
		Title          string `json:"title"`
		WatchlistCount int    `json:"watchlist_count"`
	} `json:"symbols"`
}

// FetchTrendingSymbols returns the symbols currently trending on StockTwits
// as discovery candidates. Crypto tickers carry a ".X" suffix on the feed
// and come back with the suffix stripped and the crypto asset class.
func (s *StockTwits) FetchTrendingSymbols(ctx context.Context) ([]*models.Candidate, error) {
	resp, err := s.client.SendRequest(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    s.baseURL + "/trending/symbols.json",
	})
	if err != nil {
		return nil, fmt.Errorf("stocktwits: %w: %v", models.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus("stocktwits", resp.StatusCode); err != nil {
		return nil, err
	}

	var trending stocktwitsTrending
	if err := json.NewDecoder(resp.Body).Decode(&trending); err != nil {
		return nil, fmt.Errorf("stocktwits: decode: %w", models.ErrMalformed)
	}
	if len(trending.Symbols) == 0 {
		return nil, fmt.Errorf("stocktwits: empty trending list: %w", models.ErrInsufficientData)
	}

	candidates := make([]*models.Candidate, 0, len(trending.Symbols))
	for _, row := range trending.Symbols {
		if row.Symbol == "" {
			continue
		}
		class := models.AssetStock
		symbol := row.Symbol
		if strings.HasSuffix(symbol, ".X") {
			class = models.AssetCrypto
			symbol = strings.TrimSuffix(symbol, ".X")
		}
		candidates = append(candidates, &models.Candidate{
			Symbol:      symbol,
			AssetClass:  class,
			Name:        row.Title,
			SourceCount: 1,
			Sources:     []string{"stocktwits_trending"},
			XAnalysis: &models.XSentiment{
				WhyTrending:      "trending on StockTwits",
				MentionIntensity: mentionIntensity(row.WatchlistCount),
			},
		})
	}
	return candidates, nil
}

func mentionIntensity(watchers int) string {
	switch {
	case watchers >= 500_000:
		return "extreme"
	case watchers >= 100_000:
		return "high"
	case watchers >= 20_000:
		return "medium"
	default:
		return "low"
	}
}
