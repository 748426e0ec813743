package model

import "time"

// PriceBar represents a single daily OHLCV bar.
type PriceBar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceSeries holds the ordered daily history for one symbol.
// Bars are strictly increasing by date with no duplicates.
type PriceSeries struct {
	Symbol    string
	Bars      []PriceBar
	FetchedAt time.Time
}

// Len returns the number of bars in the series.
func (s *PriceSeries) Len() int { return len(s.Bars) }

// LastClose returns the most recent closing price, or 0 for an empty series.
func (s *PriceSeries) LastClose() float64 {
	if len(s.Bars) == 0 {
		return 0
	}
	return s.Bars[len(s.Bars)-1].Close
}

// Closes extracts the closing prices in bar order.
func (s *PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// Volumes extracts the volumes in bar order.
func (s *PriceSeries) Volumes() []float64 {
	vols := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		vols[i] = b.Volume
	}
	return vols
}

// Valid reports whether bars are strictly increasing by date with no
// duplicate dates and no non-positive closes.
func (s *PriceSeries) Valid() bool {
	for i, b := range s.Bars {
		if b.Close <= 0 {
			return false
		}
		if i > 0 && !s.Bars[i-1].Date.Before(b.Date) {
			return false
		}
	}
	return true
}
