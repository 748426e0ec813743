package calculator

import (
	"gonum.org/v1/gonum/stat"
)

// Slope fits an ordinary least-squares line to the trailing window of the
// series (x = 0..window-1) and returns the per-bar slope.
func Slope(series []float64, window int) (float64, error) {
	if window < 2 || len(series) < window {
		return 0, ErrNotEnoughData
	}
	tail := series[len(series)-window:]
	xs := make([]float64, window)
	for i := range xs {
		xs[i] = float64(i)
	}
	_, beta := stat.LinearRegression(xs, tail, nil, false)
	return beta, nil
}

// Returns converts prices to simple percentage returns.
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			out[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}
	return out
}

// StdDev is the sample standard deviation of the series.
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// RollingStdDev computes the rolling sample standard deviation with the
// given window. The result has len(data)-window+1 values.
func RollingStdDev(data []float64, window int) ([]float64, error) {
	if window < 2 || len(data) < window {
		return nil, ErrNotEnoughData
	}
	out := make([]float64, 0, len(data)-window+1)
	for i := window; i <= len(data); i++ {
		out = append(out, stat.StdDev(data[i-window:i], nil))
	}
	return out, nil
}

// Mean is the arithmetic mean of the series.
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}
