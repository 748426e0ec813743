package calculator

import (
	"errors"
	"math"

	"CycleScan/internal/model"
)

// TrailingRange scans the most recent window bars and returns the intraday
// high and low.
func TrailingRange(bars []model.PriceBar, window int) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, errors.New("no bars provided")
	}
	start := len(bars) - window
	if start < 0 {
		start = 0
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := start; i < len(bars); i++ {
		if bars[i].High > high {
			high = bars[i].High
		}
		if bars[i].Low < low {
			low = bars[i].Low
		}
	}
	return high, low, nil
}

// TrailingClosingHigh returns the highest close over the most recent window
// bars, excluding the final bar so a fresh breakout clears the prior level.
func TrailingClosingHigh(bars []model.PriceBar, window int) (float64, error) {
	if len(bars) < 2 {
		return 0, ErrNotEnoughData
	}
	prior := bars[:len(bars)-1]
	start := len(prior) - window
	if start < 0 {
		start = 0
	}
	high := math.Inf(-1)
	for i := start; i < len(prior); i++ {
		if prior[i].Close > high {
			high = prior[i].Close
		}
	}
	return high, nil
}
