// Package indicator implements columnwise technical indicator series over a
// single asset's price history. Every function returns a slice aligned with
// its input; warm-up positions without enough history are NaN so that any
// comparison against them resolves to false.
package indicator

import "math"

// SMA returns the simple moving average of values over the given window.
// Positions before window-1 are NaN.
func SMA(values []float64, window int) []float64 {
	result := nanSlice(len(values))
	if window <= 0 || window > len(values) {
		return result
	}

	sum := 0.0

	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}

		if i >= window-1 {
			result[i] = sum / float64(window)
		}
	}

	return result
}

// RollingStd returns the rolling sample standard deviation of values over the
// given window. Positions before window-1 are NaN.
func RollingStd(values []float64, window int) []float64 {
	result := nanSlice(len(values))
	if window <= 1 || window > len(values) {
		return result
	}

	for i := window - 1; i < len(values); i++ {
		mean := 0.0
		for j := i - window + 1; j <= i; j++ {
			mean += values[j]
		}

		mean /= float64(window)

		variance := 0.0
		for j := i - window + 1; j <= i; j++ {
			diff := values[j] - mean
			variance += diff * diff
		}

		result[i] = math.Sqrt(variance / float64(window-1))
	}

	return result
}

func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}

	return s
}
