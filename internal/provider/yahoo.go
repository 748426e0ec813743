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

// YahooProvider implements PriceDataProvider against the Yahoo Finance
// public chart API. Used when no dedicated market-data backend is
// configured.
type YahooProvider struct {
	Client    *http.Client
	SymbolMap map[string]string // maps internal symbols to Yahoo tickers
}

// NewYahooProvider creates a Yahoo price provider with optional proxy
// support.
func NewYahooProvider(proxyURL string) *YahooProvider {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooProvider{
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
	}
}

func (p *YahooProvider) Name() string { return "yahoo" }

func (p *YahooProvider) yahooSymbol(symbol string) string {
	if mapped, ok := p.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from the Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func toFloat(v interface{}) float64 {
	if v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

// FetchPrices returns up to lookback daily bars in chronological order.
func (p *YahooProvider) FetchPrices(ctx context.Context, symbol string, lookback int) (*model.PriceSeries, error) {
	rng := "2y"
	switch {
	case lookback <= 30:
		rng = "1mo"
	case lookback <= 90:
		rng = "3mo"
	case lookback <= 180:
		rng = "6mo"
	case lookback <= 365:
		rng = "1y"
	}

	u := fmt.Sprintf("https://query1.finance.yahoo.com/v8/finance/chart/%s?interval=1d&range=%s",
		url.PathEscape(p.yahooSymbol(symbol)), rng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, &TransientError{Err: fmt.Errorf("yahoo fetch: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransientError{Err: fmt.Errorf("yahoo read body: %w", err)}
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, &TransientError{Err: fmt.Errorf("yahoo status %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, &DataQualityError{Symbol: symbol, Reason: "undecodable chart response"}
	}
	if chart.Chart.Error != nil {
		return nil, &DataQualityError{Symbol: symbol, Reason: chart.Chart.Error.Description}
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return nil, &DataQualityError{Symbol: symbol, Reason: "no data returned"}
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, &DataQualityError{Symbol: symbol, Reason: "chart response missing quote block"}
	}
	quote := result.Indicators.Quote[0]
	if len(quote.Close) != len(result.Timestamp) {
		return nil, &DataQualityError{Symbol: symbol, Reason: "quote arrays misaligned with timestamps"}
	}
	at := func(vals []interface{}, i int) float64 {
		if i >= len(vals) {
			return 0
		}
		return toFloat(vals[i])
	}
	bars := make([]model.PriceBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o := at(quote.Open, i)
		h := at(quote.High, i)
		l := at(quote.Low, i)
		c := at(quote.Close, i)
		if o == 0 && h == 0 && l == 0 && c == 0 {
			continue // skip null bars (holidays etc.)
		}
		bars = append(bars, model.PriceBar{
			Date:   time.Unix(ts, 0).UTC(),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: at(quote.Volume, i),
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	if len(bars) > lookback {
		bars = bars[len(bars)-lookback:]
	}

	return &model.PriceSeries{Symbol: symbol, Bars: bars, FetchedAt: time.Now()}, nil
}
