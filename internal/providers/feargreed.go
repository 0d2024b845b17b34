package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"MarketScan/internal/domain/models"
	xhttp "MarketScan/pkg/http"
)

const fearGreedBaseURL = "https://api.alternative.me"

// FearGreed serves the crypto fear & greed index used for macro regime
// classification. No API key required.
type FearGreed struct {
	baseURL string
	client  *xhttp.Client
}

func NewFearGreed(baseURL string, client *xhttp.Client) *FearGreed {
	if baseURL == "" {
		baseURL = fearGreedBaseURL
	}
	return &FearGreed{baseURL: baseURL, client: client}
}

func (f *FearGreed) Name() string { return "feargreed" }

type fearGreedResponse struct {
	Data []struct {
		Value string `json:"value"`
	} `json:"data"`
}

// FetchMacroContext returns the latest fear/greed reading. VIX is left nil;
// regime detection falls back on it only when the index is unavailable.
func (f *FearGreed) FetchMacroContext(ctx context.Context) (*models.MacroContext, error) {
	resp, err := f.client.SendRequest(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         f.baseURL + "/fng/",
		QueryParams: map[string][]string{"limit": {"1"}},
	})
	if err != nil {
		return nil, fmt.Errorf("feargreed: %w: %v", models.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus("feargreed", resp.StatusCode); err != nil {
		return nil, err
	}

	var res fearGreedResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("feargreed: decode: %w", models.ErrMalformed)
	}
	if len(res.Data) == 0 {
		return nil, fmt.Errorf("feargreed: empty response: %w", models.ErrInsufficientData)
	}

	v, err := strconv.Atoi(res.Data[0].Value)
	if err != nil {
		return nil, fmt.Errorf("feargreed: bad value %q: %w", res.Data[0].Value, models.ErrMalformed)
	}
	return &models.MacroContext{FearGreedIndex: &v}, nil
}
