package indicator

import (
	"math"
	"time"
)

// IntradayVWAP computes the volume-weighted average price per calendar day:
// the cumulative sum of close*volume divided by cumulative volume since the
// last UTC day boundary. The accumulators reset at each day change, so day N
// never leaks into day N+1. Bars before the first volume of a day yield NaN.
func IntradayVWAP(times []time.Time, closes, volumes []float64) []float64 {
	result := nanSlice(len(closes))
	if len(times) != len(closes) || len(closes) != len(volumes) {
		return result
	}

	var (
		cumVolume   float64
		cumNotional float64
		currentDay  time.Time
	)

	for i := range closes {
		day := times[i].UTC().Truncate(24 * time.Hour)
		if !day.Equal(currentDay) {
			currentDay = day
			cumVolume = 0
			cumNotional = 0
		}

		cumVolume += volumes[i]
		cumNotional += closes[i] * volumes[i]

		if cumVolume > 0 {
			result[i] = cumNotional / cumVolume
		} else {
			result[i] = math.NaN()
		}
	}

	return result
}
