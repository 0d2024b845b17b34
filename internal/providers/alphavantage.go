package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"MarketScan/internal/domain/models"
	xhttp "MarketScan/pkg/http"
	"MarketScan/pkg/util"
)

const alphaVantageBaseURL = "https://www.alphavantage.co"

// AlphaVantage is the last-resort candle source. Its free tier allows only
// a couple dozen calls per day, so the daily budget keeps it on a leash.
type AlphaVantage struct {
	apiKey  string
	baseURL string
	client  *xhttp.Client
}

func NewAlphaVantage(apiKey, baseURL string, client *xhttp.Client) *AlphaVantage {
	if baseURL == "" {
		baseURL = alphaVantageBaseURL
	}
	return &AlphaVantage{apiKey: apiKey, baseURL: baseURL, client: client}
}

func (a *AlphaVantage) Name() string { return "alphavantage" }

type avDaily struct {
	Note       string                       `json:"Note"`
	ErrMessage string                       `json:"Error Message"`
	Series     map[string]map[string]string `json:"Time Series (Daily)"`
}

// FetchBars returns daily bars, oldest first. AlphaVantage signals rate
// limiting with a 200 plus a Note body, so that is sniffed explicitly.
func (a *AlphaVantage) FetchBars(ctx context.Context, symbol string, days int) ([]models.Bar, error) {
	resp, err := a.client.SendRequest(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    a.baseURL + "/query",
		QueryParams: map[string][]string{
			"function":   {"TIME_SERIES_DAILY"},
			"symbol":     {symbol},
			"outputsize": {"compact"},
			"apikey":     {a.apiKey},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("alphavantage: %w: %v", models.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus("alphavantage", resp.StatusCode); err != nil {
		return nil, err
	}

	var daily avDaily
	if err := json.NewDecoder(resp.Body).Decode(&daily); err != nil {
		return nil, fmt.Errorf("alphavantage: decode: %w", models.ErrMalformed)
	}
	if daily.Note != "" {
		return nil, fmt.Errorf("alphavantage: throttled: %w", models.ErrRateLimited)
	}
	if daily.ErrMessage != "" || len(daily.Series) == 0 {
		return nil, fmt.Errorf("alphavantage: no candles for %s: %w", symbol, models.ErrInsufficientData)
	}

	dates := make([]string, 0, len(daily.Series))
	for d := range daily.Series {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	if len(dates) > days {
		dates = dates[len(dates)-days:]
	}

	num := func(s string) float64 {
		v, _ := util.ParseNum(s)
		return v
	}

	bars := make([]models.Bar, 0, len(dates))
	for _, d := range dates {
		row := daily.Series[d]
		ts, err := time.Parse("2006-01-02", d)
		if err != nil {
			continue
		}
		bars = append(bars, models.Bar{
			Open:      num(row["1. open"]),
			High:      num(row["2. high"]),
			Low:       num(row["3. low"]),
			Close:     num(row["4. close"]),
			Volume:    int64(num(row["5. volume"])),
			Timestamp: ts.UTC(),
		})
	}
	return bars, nil
}
