package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"MarketScan/internal/domain/models"
	xhttp "MarketScan/pkg/http"
)

const polygonBaseURL = "https://api.polygon.io"

// Polygon is the secondary candle source. Free-tier keys rate limit hard,
// so it sits behind finnhub in the acquisition chain.
type Polygon struct {
	apiKey  string
	baseURL string
	client  *xhttp.Client
	now     func() time.Time
}

func NewPolygon(apiKey, baseURL string, client *xhttp.Client) *Polygon {
	if baseURL == "" {
		baseURL = polygonBaseURL
	}
	return &Polygon{apiKey: apiKey, baseURL: baseURL, client: client, now: time.Now}
}

func (p *Polygon) Name() string { return "polygon" }

type polygonAggs struct {
	Status  string `json:"status"`
	Results []struct {
		Open   float64 `json:"o"`
		High   float64 `json:"h"`
		Low    float64 `json:"l"`
		Close  float64 `json:"c"`
		Volume float64 `json:"v"`
		Time   int64   `json:"t"` // ms
	} `json:"results"`
}

// FetchBars returns daily aggregates, oldest first.
func (p *Polygon) FetchBars(ctx context.Context, symbol string, days int) ([]models.Bar, error) {
	to := p.now()
	from := to.AddDate(0, 0, -days)
	url := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/day/%s/%s",
		p.baseURL, symbol, from.Format("2006-01-02"), to.Format("2006-01-02"))

	resp, err := p.client.SendRequest(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    url,
		QueryParams: map[string][]string{
			"adjusted": {"true"},
			"sort":     {"asc"},
			"limit":    {"5000"},
			"apiKey":   {p.apiKey},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("polygon: %w: %v", models.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus("polygon", resp.StatusCode); err != nil {
		return nil, err
	}

	var aggs polygonAggs
	if err := json.NewDecoder(resp.Body).Decode(&aggs); err != nil {
		return nil, fmt.Errorf("polygon: decode: %w", models.ErrMalformed)
	}
	if len(aggs.Results) == 0 {
		return nil, fmt.Errorf("polygon: no candles for %s: %w", symbol, models.ErrInsufficientData)
	}

	bars := make([]models.Bar, 0, len(aggs.Results))
	for _, r := range aggs.Results {
		bars = append(bars, models.Bar{
			Open:      r.Open,
			High:      r.High,
			Low:       r.Low,
			Close:     r.Close,
			Volume:    int64(r.Volume),
			Timestamp: time.Unix(r.Time/1000, 0).UTC(),
		})
	}
	return bars, nil
}
