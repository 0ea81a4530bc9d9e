package indicator

// RSI returns the Relative Strength Index series for the given period using
// Wilder's smoothing. The first defined value sits at index period; earlier
// positions are NaN.
func RSI(values []float64, period int) []float64 {
	result := nanSlice(len(values))
	if period <= 0 || len(values) < period+1 {
		return result
	}

	gains := make([]float64, len(values))
	losses := make([]float64, len(values))

	for i := 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	avgGain := 0.0
	avgLoss := 0.0

	// First average is a plain mean over the initial period.
	for i := 1; i <= period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}

	avgGain /= float64(period)
	avgLoss /= float64(period)
	result[period] = rsiFromAverages(avgGain, avgLoss)

	// Subsequent averages use Wilder's smoothing.
	for i := period + 1; i < len(values); i++ {
		avgGain = (avgGain*float64(period-1) + gains[i]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i]) / float64(period)
		result[i] = rsiFromAverages(avgGain, avgLoss)
	}

	return result
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}

		return 100
	}

	rs := avgGain / avgLoss

	return 100 - (100 / (1 + rs))
}
