package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"CycleScan/internal/model"
)

// RESTProvider talks to a market-data REST API. It implements the
// universe, price history and fundamentals contracts.
type RESTProvider struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewRESTProvider creates a provider with optional proxy support.
func NewRESTProvider(baseURL, apiKey, proxyURL string) *RESTProvider {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &RESTProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (p *RESTProvider) Name() string { return "rest" }

func (p *RESTProvider) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return &TransientError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode >= 500:
		return &TransientError{Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransientError{Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}

type restBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// FetchPrices returns up to lookback daily bars in chronological order.
func (p *RESTProvider) FetchPrices(ctx context.Context, symbol string, lookback int) (*model.PriceSeries, error) {
	endpoint := fmt.Sprintf("%s/api/v1/bars/daily?symbol=%s&limit=%d",
		p.BaseURL, url.QueryEscape(symbol), lookback)

	var raw []restBar
	if err := p.get(ctx, endpoint, &raw); err != nil {
		return nil, fmt.Errorf("fetch bars %s: %w", symbol, err)
	}
	if len(raw) == 0 {
		return nil, &DataQualityError{Symbol: symbol, Reason: "empty bar response"}
	}

	bars := make([]model.PriceBar, 0, len(raw))
	for _, rb := range raw {
		if rb.Close <= 0 {
			continue // null bars on holidays
		}
		bars = append(bars, model.PriceBar{
			Date:   time.Unix(rb.Timestamp, 0).UTC(),
			Open:   rb.Open,
			High:   rb.High,
			Low:    rb.Low,
			Close:  rb.Close,
			Volume: rb.Volume,
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	series := &model.PriceSeries{Symbol: symbol, Bars: bars, FetchedAt: time.Now()}
	if !series.Valid() {
		return nil, &DataQualityError{Symbol: symbol, Reason: "unordered or duplicate dates"}
	}
	return series, nil
}

type restListing struct {
	Symbol    string  `json:"symbol"`
	LastPrice float64 `json:"last_price"`
	AvgVolume float64 `json:"avg_volume"`
}

// FetchUniverse returns the tradable symbol list, deduplicated and in the
// source's order.
func (p *RESTProvider) FetchUniverse(ctx context.Context) ([]model.UniverseEntry, error) {
	endpoint := p.BaseURL + "/api/v1/universe"

	var raw []restListing
	if err := p.get(ctx, endpoint, &raw); err != nil {
		return nil, fmt.Errorf("fetch universe: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("fetch universe: empty listing")
	}

	seen := make(map[string]struct{}, len(raw))
	entries := make([]model.UniverseEntry, 0, len(raw))
	for _, r := range raw {
		if r.Symbol == "" {
			continue
		}
		if _, dup := seen[r.Symbol]; dup {
			continue
		}
		seen[r.Symbol] = struct{}{}
		entries = append(entries, model.UniverseEntry{
			Symbol:    r.Symbol,
			LastPrice: r.LastPrice,
			AvgVolume: r.AvgVolume,
		})
	}
	return entries, nil
}

type restFundamentals struct {
	RevenueYoY   *float64 `json:"revenue_yoy"`
	RevenueQoQ   *float64 `json:"revenue_qoq"`
	EPSYoY       *float64 `json:"eps_yoy"`
	EPSQoQ       *float64 `json:"eps_qoq"`
	InventoryQoQ *float64 `json:"inventory_qoq"`
}

// FetchFundamentals returns the quarterly summary, or ErrUnavailable when
// the source has no coverage for the symbol.
func (p *RESTProvider) FetchFundamentals(ctx context.Context, symbol string) (*model.FundamentalsSummary, error) {
	endpoint := fmt.Sprintf("%s/api/v1/fundamentals?symbol=%s", p.BaseURL, url.QueryEscape(symbol))

	var raw restFundamentals
	err := p.get(ctx, endpoint, &raw)
	if err != nil {
		if err == ErrNotFound {
			return nil, ErrUnavailable
		}
		return nil, fmt.Errorf("fetch fundamentals %s: %w", symbol, err)
	}
	if raw.RevenueYoY == nil && raw.EPSYoY == nil {
		return nil, ErrUnavailable
	}

	deref := func(v *float64) float64 {
		if v == nil {
			return 0
		}
		return *v
	}
	return &model.FundamentalsSummary{
		RevenueYoY:   deref(raw.RevenueYoY),
		RevenueQoQ:   deref(raw.RevenueQoQ),
		EPSYoY:       deref(raw.EPSYoY),
		EPSQoQ:       deref(raw.EPSQoQ),
		InventoryQoQ: deref(raw.InventoryQoQ),
	}, nil
}
