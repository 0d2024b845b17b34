package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"MarketScan/internal/domain/models"
	xhttp "MarketScan/pkg/http"
)

const coinGeckoBaseURL = "https://api.coingecko.com/api/v3"

// CoinGecko discovers trending crypto assets. The free tier needs no key;
// a pro key is passed through a header when configured.
type CoinGecko struct {
	apiKey  string
	baseURL string
	client  *xhttp.Client
}

func NewCoinGecko(apiKey, baseURL string, client *xhttp.Client) *CoinGecko {
	if baseURL == "" {
		baseURL = coinGeckoBaseURL
	}
	return &CoinGecko{apiKey: apiKey, baseURL: baseURL, client: client}
}

func (g *CoinGecko) Name() string { return "coingecko" }

type geckoMarketRow struct {
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	CurrentPrice   float64 `json:"current_price"`
	MarketCap      float64 `json:"market_cap"`
	TotalVolume    float64 `json:"total_volume"`
	PriceChange24h float64 `json:"price_change_percentage_24h"`
}

// FetchTrending returns the top crypto assets by 24h volume as candidates.
func (g *CoinGecko) FetchTrending(ctx context.Context) ([]*models.Candidate, error) {
	headers := map[string]string{}
	if g.apiKey != "" {
		headers["x-cg-pro-api-key"] = g.apiKey
	}

	resp, err := g.client.SendRequest(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     g.baseURL + "/coins/markets",
		Headers: headers,
		QueryParams: map[string][]string{
			"vs_currency": {"usd"},
			"order":       {"volume_desc"},
			"per_page":    {"50"},
			"page":        {"1"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("coingecko: %w: %v", models.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus("coingecko", resp.StatusCode); err != nil {
		return nil, err
	}

	var rows []geckoMarketRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("coingecko: decode: %w", models.ErrMalformed)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("coingecko: empty markets: %w", models.ErrInsufficientData)
	}

	candidates := make([]*models.Candidate, 0, len(rows))
	for _, r := range rows {
		if r.Symbol == "" {
			continue
		}
		pct := r.PriceChange24h
		c := &models.Candidate{
			Symbol:         strings.ToUpper(r.Symbol),
			AssetClass:     models.AssetCrypto,
			Name:           r.Name,
			SourceCount:    1,
			Sources:        []string{"coingecko_volume"},
			PriceChangePct: &pct,
		}
		if r.MarketCap > 0 {
			mc := r.MarketCap
			c.MarketCap = &mc
		}
		if r.TotalVolume > 0 {
			v := r.TotalVolume
			c.Volume = &v
		}
		if r.CurrentPrice > 0 {
			c.Quote = &models.Quote{Price: r.CurrentPrice, ChangePct: pct, Volume: r.TotalVolume}
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}
