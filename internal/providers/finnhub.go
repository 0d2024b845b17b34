package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"MarketScan/internal/domain/models"
	xhttp "MarketScan/pkg/http"
)

const finnhubBaseURL = "https://finnhub.io/api/v1"

// Finnhub serves real-time quotes, daily candles and insider sentiment.
type Finnhub struct {
	apiKey  string
	baseURL string
	client  *xhttp.Client
	now     func() time.Time
}

// NewFinnhub builds a Finnhub REST client. baseURL may be empty for the
// production endpoint.
func NewFinnhub(apiKey, baseURL string, client *xhttp.Client) *Finnhub {
	if baseURL == "" {
		baseURL = finnhubBaseURL
	}
	return &Finnhub{apiKey: apiKey, baseURL: baseURL, client: client, now: time.Now}
}

func (f *Finnhub) Name() string { return "finnhub" }

func (f *Finnhub) get(ctx context.Context, path string, params map[string][]string, dest any) error {
	params["token"] = []string{f.apiKey}
	resp, err := f.client.SendRequest(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         f.baseURL + path,
		QueryParams: params,
	})
	if err != nil {
		return fmt.Errorf("finnhub: %w: %v", models.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus("finnhub", resp.StatusCode); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("finnhub: decode: %w", models.ErrMalformed)
	}
	return nil
}

type finnhubQuote struct {
	Current   float64 `json:"c"`
	ChangePct float64 `json:"dp"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	PrevClose float64 `json:"pc"`
}

// FetchQuote returns the latest quote snapshot for a symbol.
func (f *Finnhub) FetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	var q finnhubQuote
	if err := f.get(ctx, "/quote", map[string][]string{"symbol": {symbol}}, &q); err != nil {
		return nil, err
	}
	if q.Current == 0 && q.PrevClose == 0 {
		return nil, fmt.Errorf("finnhub: no quote for %s: %w", symbol, models.ErrInsufficientData)
	}
	quote := &models.Quote{Price: q.Current, ChangePct: q.ChangePct}
	if q.High > 0 {
		quote.DayHigh = &q.High
	}
	if q.Low > 0 {
		quote.DayLow = &q.Low
	}
	return quote, nil
}

type finnhubCandles struct {
	Status  string    `json:"s"`
	Opens   []float64 `json:"o"`
	Highs   []float64 `json:"h"`
	Lows    []float64 `json:"l"`
	Closes  []float64 `json:"c"`
	Volumes []float64 `json:"v"`
	Times   []int64   `json:"t"`
}

// FetchBars returns up to days daily bars, oldest first.
func (f *Finnhub) FetchBars(ctx context.Context, symbol string, days int) ([]models.Bar, error) {
	to := f.now()
	from := to.AddDate(0, 0, -days)

	var c finnhubCandles
	err := f.get(ctx, "/stock/candle", map[string][]string{
		"symbol":     {symbol},
		"resolution": {"D"},
		"from":       {fmt.Sprintf("%d", from.Unix())},
		"to":         {fmt.Sprintf("%d", to.Unix())},
	}, &c)
	if err != nil {
		return nil, err
	}
	if c.Status != "ok" || len(c.Closes) == 0 {
		return nil, fmt.Errorf("finnhub: no candles for %s: %w", symbol, models.ErrInsufficientData)
	}

	n := len(c.Closes)
	bars := make([]models.Bar, 0, n)
	for i := 0; i < n; i++ {
		bar := models.Bar{Close: c.Closes[i]}
		if i < len(c.Opens) {
			bar.Open = c.Opens[i]
		}
		if i < len(c.Highs) {
			bar.High = c.Highs[i]
		}
		if i < len(c.Lows) {
			bar.Low = c.Lows[i]
		}
		if i < len(c.Volumes) {
			bar.Volume = int64(c.Volumes[i])
		}
		if i < len(c.Times) {
			bar.Timestamp = time.Unix(c.Times[i], 0).UTC()
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

type finnhubInsider struct {
	Data []struct {
		MSPR float64 `json:"mspr"`
	} `json:"data"`
}

// FetchInsiderSentiment aggregates the monthly share purchase ratio over the
// returned window.
func (f *Finnhub) FetchInsiderSentiment(ctx context.Context, symbol string) (*models.InsiderSentiment, error) {
	to := f.now()
	from := to.AddDate(0, -3, 0)

	var res finnhubInsider
	err := f.get(ctx, "/stock/insider-sentiment", map[string][]string{
		"symbol": {symbol},
		"from":   {from.Format("2006-01-02")},
		"to":     {to.Format("2006-01-02")},
	}, &res)
	if err != nil {
		return nil, err
	}
	if len(res.Data) == 0 {
		return nil, fmt.Errorf("finnhub: no insider data for %s: %w", symbol, models.ErrInsufficientData)
	}

	var sum float64
	for _, d := range res.Data {
		sum += d.MSPR
	}
	return &models.InsiderSentiment{MSPR: sum / float64(len(res.Data))}, nil
}

type finnhubEarnings []struct {
	SurprisePercent float64 `json:"surprisePercent"`
}

// FetchEarnings returns recent earnings surprises, newest first.
func (f *Finnhub) FetchEarnings(ctx context.Context, symbol string) ([]models.EarningsReport, error) {
	var res finnhubEarnings
	err := f.get(ctx, "/stock/earnings", map[string][]string{
		"symbol": {symbol},
		"limit":  {"4"},
	}, &res)
	if err != nil {
		return nil, err
	}

	reports := make([]models.EarningsReport, 0, len(res))
	for _, e := range res {
		reports = append(reports, models.EarningsReport{SurprisePct: e.SurprisePercent})
	}
	return reports, nil
}
