package indicator

// Bands holds the three Bollinger Band series for one asset.
type Bands struct {
	Middle []float64
	Upper  []float64
	Lower  []float64
}

// BollingerBands computes rolling mean bands at mean ± stdDev standard
// deviations over the given window. Warm-up positions are NaN in all three
// series.
func BollingerBands(values []float64, window int, stdDev float64) Bands {
	middle := SMA(values, window)
	std := RollingStd(values, window)

	upper := make([]float64, len(values))
	lower := make([]float64, len(values))

	for i := range values {
		// NaN middle or std propagates into both bands.
		upper[i] = middle[i] + stdDev*std[i]
		lower[i] = middle[i] - stdDev*std[i]
	}

	return Bands{
		Middle: middle,
		Upper:  upper,
		Lower:  lower,
	}
}
