package provider

import (
	"context"
	"sync"

	"CycleScan/internal/model"
)

// MockProvider returns controllable fixed data for development and
// testing. It implements all three collaborator contracts.
type MockProvider struct {
	mu           sync.Mutex
	Universe     []model.UniverseEntry
	Series       map[string]*model.PriceSeries
	Fundamentals map[string]*model.FundamentalsSummary
	Errs         map[string]error // per-symbol fetch error overrides
	FetchCounts  map[string]int
}

// NewMockProvider creates an empty mock.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Series:       make(map[string]*model.PriceSeries),
		Fundamentals: make(map[string]*model.FundamentalsSummary),
		Errs:         make(map[string]error),
		FetchCounts:  make(map[string]int),
	}
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) FetchUniverse(_ context.Context) ([]model.UniverseEntry, error) {
	return m.Universe, nil
}

func (m *MockProvider) FetchPrices(_ context.Context, symbol string, _ int) (*model.PriceSeries, error) {
	m.mu.Lock()
	m.FetchCounts[symbol]++
	m.mu.Unlock()

	if err, ok := m.Errs[symbol]; ok {
		return nil, err
	}
	series, ok := m.Series[symbol]
	if !ok {
		return nil, ErrNotFound
	}
	return series, nil
}

func (m *MockProvider) FetchFundamentals(_ context.Context, symbol string) (*model.FundamentalsSummary, error) {
	f, ok := m.Fundamentals[symbol]
	if !ok {
		return nil, ErrUnavailable
	}
	return f, nil
}

// Fetches returns how often a symbol's prices were requested.
func (m *MockProvider) Fetches(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.FetchCounts[symbol]
}
