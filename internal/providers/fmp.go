package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"MarketScan/internal/domain/models"
	xhttp "MarketScan/pkg/http"
)

const fmpBaseURL = "https://financialmodelingprep.com/api/v3"

// Major commodity symbols that anchor cross-market coverage.
var majorCommoditySymbols = map[string]bool{
	"GLD": true, "SLV": true, "USO": true, "UNG": true, "TLT": true,
	"GDX": true, "GDXJ": true, "COPX": true, "PPLT": true,
}

// FMP serves the discovery screener, company overviews and commodity ETFs.
type FMP struct {
	apiKey  string
	baseURL string
	client  *xhttp.Client
}

func NewFMP(apiKey, baseURL string, client *xhttp.Client) *FMP {
	if baseURL == "" {
		baseURL = fmpBaseURL
	}
	return &FMP{apiKey: apiKey, baseURL: baseURL, client: client}
}

func (f *FMP) Name() string { return "fmp" }

func (f *FMP) get(ctx context.Context, path string, params map[string][]string, dest any) error {
	if params == nil {
		params = map[string][]string{}
	}
	params["apikey"] = []string{f.apiKey}
	resp, err := f.client.SendRequest(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         f.baseURL + path,
		QueryParams: params,
	})
	if err != nil {
		return fmt.Errorf("fmp: %w: %v", models.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus("fmp", resp.StatusCode); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("fmp: decode: %w", models.ErrMalformed)
	}
	return nil
}

type fmpScreenerRow struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"companyName"`
	MarketCap float64 `json:"marketCap"`
	Sector    string  `json:"sector"`
	Industry  string  `json:"industry"`
	Volume    float64 `json:"volume"`
	Price     float64 `json:"price"`
	ChangePct float64 `json:"changesPercentage"`
}

// Screen presets understood by FetchScreener.
const (
	ScreenActives  = "actives"
	ScreenGainers  = "gainers"
	ScreenLosers   = "losers"
	ScreenSmallCap = "small_cap"
)

// FetchScreener runs one of the preset discovery screens and returns raw
// candidates with discovery metadata only.
func (f *FMP) FetchScreener(ctx context.Context, screen string) ([]*models.Candidate, error) {
	var path string
	params := map[string][]string{}
	switch screen {
	case ScreenGainers:
		path = "/stock_market/gainers"
	case ScreenLosers:
		path = "/stock_market/losers"
	case ScreenSmallCap:
		path = "/stock-screener"
		params["marketCapLowerThan"] = []string{"2000000000"}
		params["marketCapMoreThan"] = []string{"50000000"}
		params["volumeMoreThan"] = []string{"500000"}
		params["limit"] = []string{"100"}
	default:
		path = "/stock_market/actives"
	}

	var rows []fmpScreenerRow
	if err := f.get(ctx, path, params, &rows); err != nil {
		return nil, err
	}

	candidates := make([]*models.Candidate, 0, len(rows))
	for _, r := range rows {
		if r.Symbol == "" {
			continue
		}
		c := &models.Candidate{
			Symbol:      strings.ToUpper(r.Symbol),
			AssetClass:  models.AssetStock,
			Name:        r.Name,
			SourceCount: 1,
			Sources:     []string{"fmp_" + screen},
		}
		if r.MarketCap > 0 {
			mc := r.MarketCap
			c.MarketCap = &mc
		}
		if r.Volume > 0 {
			v := r.Volume
			c.Volume = &v
		}
		if r.ChangePct != 0 {
			pct := r.ChangePct
			c.PriceChangePct = &pct
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

type fmpProfile struct {
	CompanyName  string  `json:"companyName"`
	Exchange     string  `json:"exchangeShortName"`
	Sector       string  `json:"sector"`
	Industry     string  `json:"industry"`
	MktCap       float64 `json:"mktCap"`
	VolAvg       float64 `json:"volAvg"`
	Range        string  `json:"range"`
	ChangesPct   float64 `json:"changes"`
	Price        float64 `json:"price"`
}

type fmpRatios struct {
	PERatio              float64 `json:"peRatioTTM"`
	PSRatio              float64 `json:"priceToSalesRatioTTM"`
	NetProfitMargin      float64 `json:"netProfitMarginTTM"`
	EBITDAMargin         float64 `json:"ebitdaMarginTTM"` // not in all plans
	RevenueGrowthPerTTM  float64 `json:"revenueGrowthTTM"`
}

// FetchOverview merges the company profile and TTM ratios into one
// normalized Overview.
func (f *FMP) FetchOverview(ctx context.Context, symbol string) (*models.Overview, error) {
	var profiles []fmpProfile
	if err := f.get(ctx, "/profile/"+symbol, nil, &profiles); err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("fmp: no profile for %s: %w", symbol, models.ErrInsufficientData)
	}
	p := profiles[0]

	o := &models.Overview{
		Name:     p.CompanyName,
		Exchange: p.Exchange,
		Sector:   p.Sector,
		Industry: p.Industry,
	}
	if p.MktCap > 0 {
		o.MarketCap = &p.MktCap
	}
	if p.VolAvg > 0 {
		o.AvgVolume = &p.VolAvg
	}
	if low, high, ok := parseRange(p.Range); ok {
		o.Week52Low, o.Week52High = &low, &high
	}

	// Ratios are a separate endpoint; missing ratios are not fatal.
	var ratios []fmpRatios
	if err := f.get(ctx, "/ratios-ttm/"+symbol, nil, &ratios); err == nil && len(ratios) > 0 {
		r := ratios[0]
		if r.PERatio != 0 {
			o.PERatio = &r.PERatio
		}
		if r.PSRatio != 0 {
			o.PSRatio = &r.PSRatio
		}
		if r.NetProfitMargin != 0 {
			o.ProfitMargin = &r.NetProfitMargin
		}
		if r.EBITDAMargin != 0 {
			o.EBITDAMargin = &r.EBITDAMargin
		}
		if r.RevenueGrowthPerTTM != 0 {
			o.RevenueGrowth = &r.RevenueGrowthPerTTM
		}
	}

	return o, nil
}

type fmpQuoteRow struct {
	Symbol     string  `json:"symbol"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	ChangesPct float64 `json:"changesPercentage"`
	Volume     float64 `json:"volume"`
}

// FetchCommodities returns the tracked commodity ETFs as candidates.
func (f *FMP) FetchCommodities(ctx context.Context) ([]*models.Candidate, error) {
	symbols := make([]string, 0, len(majorCommoditySymbols))
	for s := range majorCommoditySymbols {
		symbols = append(symbols, s)
	}

	var rows []fmpQuoteRow
	if err := f.get(ctx, "/quote/"+strings.Join(symbols, ","), nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("fmp: no commodity quotes: %w", models.ErrInsufficientData)
	}

	candidates := make([]*models.Candidate, 0, len(rows))
	for _, r := range rows {
		pct := r.ChangesPct
		c := &models.Candidate{
			Symbol:         strings.ToUpper(r.Symbol),
			AssetClass:     models.AssetCommodity,
			Name:           r.Name,
			SourceCount:    1,
			Sources:        []string{"fmp_commodities"},
			PriceChangePct: &pct,
			IsMajor:        majorCommoditySymbols[strings.ToUpper(r.Symbol)],
		}
		if r.Volume > 0 {
			v := r.Volume
			c.Volume = &v
		}
		if r.Price > 0 {
			c.Quote = &models.Quote{Price: r.Price, ChangePct: pct, Volume: r.Volume}
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

type fmpConsensus struct {
	Consensus string `json:"consensus"`
	Buy       int    `json:"buy"`
	Hold      int    `json:"hold"`
	Sell      int    `json:"sell"`
	StrongBuy int    `json:"strongBuy"`
}

type fmpPriceTarget struct {
	TargetConsensus float64 `json:"targetConsensus"`
}

// FetchAnalyst merges rating consensus with price-target upside.
func (f *FMP) FetchAnalyst(ctx context.Context, symbol string) (*models.AnalystData, error) {
	var ratings []fmpConsensus
	if err := f.get(ctx, "/analyst-stock-recommendations/"+symbol, map[string][]string{"limit": {"1"}}, &ratings); err != nil {
		return nil, err
	}
	if len(ratings) == 0 {
		return nil, fmt.Errorf("fmp: no analyst coverage for %s: %w", symbol, models.ErrInsufficientData)
	}
	r := ratings[0]

	out := &models.AnalystData{
		Consensus:     r.Consensus,
		TotalAnalysts: r.Buy + r.Hold + r.Sell + r.StrongBuy,
	}

	var targets []fmpPriceTarget
	if err := f.get(ctx, "/price-target-consensus/"+symbol, nil, &targets); err == nil && len(targets) > 0 && targets[0].TargetConsensus > 0 {
		var quotes []fmpQuoteRow
		if err := f.get(ctx, "/quote/"+symbol, nil, &quotes); err == nil && len(quotes) > 0 && quotes[0].Price > 0 {
			upside := (targets[0].TargetConsensus - quotes[0].Price) / quotes[0].Price * 100
			out.UpsidePct = &upside
		}
	}

	return out, nil
}

// parseRange splits an FMP "12.5-98.3" 52-week range string.
func parseRange(s string) (low, high float64, ok bool) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	var err error
	if _, err = fmt.Sscanf(strings.TrimSpace(parts[0]), "%f", &low); err != nil {
		return 0, 0, false
	}
	if _, err = fmt.Sscanf(strings.TrimSpace(parts[1]), "%f", &high); err != nil {
		return 0, 0, false
	}
	return low, high, true
}
