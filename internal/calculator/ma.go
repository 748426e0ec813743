package calculator

import "errors"

// ErrNotEnoughData is returned when a window exceeds the available series.
var ErrNotEnoughData = errors.New("not enough data")

// SMA computes the simple moving average of the trailing period.
func SMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, ErrNotEnoughData
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// SMASeries computes the rolling simple moving average. The result has
// len(prices)-period+1 values, one per fully covered window.
func SMASeries(prices []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	if len(prices) < period {
		return nil, ErrNotEnoughData
	}
	out := make([]float64, 0, len(prices)-period+1)
	sum := 0.0
	for i, p := range prices {
		sum += p
		if i >= period {
			sum -= prices[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return out, nil
}

// VolumeRatio compares the latest volume against its trailing average over
// the preceding period bars.
func VolumeRatio(volumes []float64, period int) (float64, error) {
	if len(volumes) < period+1 {
		return 0, ErrNotEnoughData
	}
	avg, err := SMA(volumes[:len(volumes)-1], period)
	if err != nil {
		return 0, err
	}
	if avg == 0 {
		return 0, nil
	}
	return volumes[len(volumes)-1] / avg, nil
}
