package model

// SignalKind distinguishes buy from sell candidates.
type SignalKind string

const (
	SignalBuy  SignalKind = "BUY"
	SignalSell SignalKind = "SELL"
)

// Sell severity bands.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

// ComponentScore is one weighted component of a signal score.
type ComponentScore struct {
	Name       string
	Points     float64
	Max        float64
	Commentary string
}

// SignalScore is the scorer output for one symbol.
type SignalScore struct {
	Symbol     string
	Kind       SignalKind
	Total      float64 // clamped to [0,100]
	Components []ComponentScore
	Penalty    float64 // fundamental penalty already applied to Total
	Accepted   bool
	Severity   string // sell signals only
	Phase      Phase
	Reasons    []string

	// Reference levels for the report.
	Price          float64
	BreakoutLevel  float64
	BreakdownLevel float64
}

// UniverseEntry is one tradable symbol with coarse pre-filter metadata.
type UniverseEntry struct {
	Symbol    string
	LastPrice float64
	AvgVolume float64
}

// FundamentalsSummary is the optional quarterly corroboration snapshot.
type FundamentalsSummary struct {
	RevenueYoY   float64
	RevenueQoQ   float64
	EPSYoY       float64
	EPSQoQ       float64
	InventoryQoQ float64
}

// RevenueDeclining reports a year-over-year and sequential revenue decline.
func (f *FundamentalsSummary) RevenueDeclining() bool {
	return f.RevenueYoY < 0 && f.RevenueQoQ < 0
}

// EPSDeclining reports a year-over-year and sequential EPS decline.
func (f *FundamentalsSummary) EPSDeclining() bool {
	return f.EPSYoY < 0 && f.EPSQoQ < 0
}

// InventoryBuilding reports inventory growing faster than 20% sequentially.
func (f *FundamentalsSummary) InventoryBuilding() bool {
	return f.InventoryQoQ > 0.20
}
