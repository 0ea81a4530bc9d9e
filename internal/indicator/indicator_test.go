package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMA(t *testing.T) {
	values := []float64{100, 101, 102, 103, 104}

	t.Run("window of two", func(t *testing.T) {
		sma := SMA(values, 2)
		require.Len(t, sma, 5)
		assert.True(t, math.IsNaN(sma[0]))
		assert.InDelta(t, 100.5, sma[1], 1e-9)
		assert.InDelta(t, 103.5, sma[4], 1e-9)
	})

	t.Run("window of one is identity", func(t *testing.T) {
		sma := SMA(values, 1)
		assert.Equal(t, values, sma)
	})

	t.Run("window longer than series is all NaN", func(t *testing.T) {
		sma := SMA(values, 10)
		for _, v := range sma {
			assert.True(t, math.IsNaN(v))
		}
	})

	t.Run("non positive window is all NaN", func(t *testing.T) {
		for _, v := range SMA(values, 0) {
			assert.True(t, math.IsNaN(v))
		}
	})
}

func TestRollingStd(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	std := RollingStd(values, 8)
	require.Len(t, std, 8)

	for i := 0; i < 7; i++ {
		assert.True(t, math.IsNaN(std[i]))
	}

	// Sample standard deviation of the full window.
	assert.InDelta(t, 2.138, std[7], 1e-3)
}

func TestRollingStdConstantSeries(t *testing.T) {
	std := RollingStd([]float64{5, 5, 5, 5}, 3)
	assert.InDelta(t, 0, std[2], 1e-12)
	assert.InDelta(t, 0, std[3], 1e-12)
}

func TestRSI(t *testing.T) {
	t.Run("warm up is NaN", func(t *testing.T) {
		values := []float64{100, 101, 102, 101, 103, 104, 102, 105}
		rsi := RSI(values, 3)

		for i := 0; i < 3; i++ {
			assert.True(t, math.IsNaN(rsi[i]), "position %d should be NaN", i)
		}

		for i := 3; i < len(rsi); i++ {
			assert.False(t, math.IsNaN(rsi[i]), "position %d should be defined", i)
			assert.GreaterOrEqual(t, rsi[i], 0.0)
			assert.LessOrEqual(t, rsi[i], 100.0)
		}
	})

	t.Run("perfect uptrend saturates at 100", func(t *testing.T) {
		values := []float64{1, 2, 3, 4, 5, 6, 7}
		rsi := RSI(values, 3)
		assert.InDelta(t, 100, rsi[len(rsi)-1], 1e-9)
	})

	t.Run("perfect downtrend saturates at 0", func(t *testing.T) {
		values := []float64{7, 6, 5, 4, 3, 2, 1}
		rsi := RSI(values, 3)
		assert.InDelta(t, 0, rsi[len(rsi)-1], 1e-9)
	})

	t.Run("flat series is neutral", func(t *testing.T) {
		values := []float64{5, 5, 5, 5, 5, 5}
		rsi := RSI(values, 3)
		assert.InDelta(t, 50, rsi[len(rsi)-1], 1e-9)
	})

	t.Run("too short series is all NaN", func(t *testing.T) {
		for _, v := range RSI([]float64{1, 2}, 14) {
			assert.True(t, math.IsNaN(v))
		}
	})
}

func TestBollingerBands(t *testing.T) {
	values := []float64{100, 102, 104, 106, 108, 110}
	bands := BollingerBands(values, 3, 2)

	require.Len(t, bands.Middle, 6)
	assert.True(t, math.IsNaN(bands.Upper[1]))
	assert.True(t, math.IsNaN(bands.Lower[1]))

	// SMA(102,104,106)=104, sample std=2.
	assert.InDelta(t, 104, bands.Middle[3], 1e-9)
	assert.InDelta(t, 108, bands.Upper[3], 1e-9)
	assert.InDelta(t, 100, bands.Lower[3], 1e-9)
}

func TestIntradayVWAP(t *testing.T) {
	day1 := time.Date(2025, 2, 1, 23, 58, 0, 0, time.UTC)

	times := []time.Time{
		day1,
		day1.Add(1 * time.Minute),
		day1.Add(2 * time.Minute), // next calendar day
		day1.Add(3 * time.Minute),
	}
	closes := []float64{10, 20, 30, 50}
	volumes := []float64{1, 1, 1, 1}

	vwap := IntradayVWAP(times, closes, volumes)
	require.Len(t, vwap, 4)

	assert.InDelta(t, 10, vwap[0], 1e-9)
	assert.InDelta(t, 15, vwap[1], 1e-9)
	// Accumulators reset at midnight: VWAP restarts from 30, not (10+20+30)/3.
	assert.InDelta(t, 30, vwap[2], 1e-9)
	assert.InDelta(t, 40, vwap[3], 1e-9)
}

func TestIntradayVWAPDayBoundaryReplay(t *testing.T) {
	// Two consecutive days with identical intraday patterns must produce
	// identical VWAP series, not a continuation.
	base := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	pattern := []float64{10, 12, 11, 13}
	volume := []float64{5, 3, 2, 4}

	var (
		times   []time.Time
		closes  []float64
		volumes []float64
	)

	for day := 0; day < 2; day++ {
		for i := range pattern {
			times = append(times, base.AddDate(0, 0, day).Add(time.Duration(i)*time.Minute))
			closes = append(closes, pattern[i])
			volumes = append(volumes, volume[i])
		}
	}

	vwap := IntradayVWAP(times, closes, volumes)
	n := len(pattern)

	for i := 0; i < n; i++ {
		assert.Equal(t, vwap[i], vwap[n+i], "bar %d of day 2 must equal day 1", i)
	}
}

func TestIntradayVWAPZeroVolume(t *testing.T) {
	base := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	times := []time.Time{base, base.Add(time.Minute)}

	vwap := IntradayVWAP(times, []float64{0, 100}, []float64{0, 2})
	assert.True(t, math.IsNaN(vwap[0]))
	assert.InDelta(t, 100, vwap[1], 1e-9)
}

func TestIntradayVWAPMismatchedLengths(t *testing.T) {
	vwap := IntradayVWAP([]time.Time{time.Now()}, []float64{1, 2}, []float64{1})
	for _, v := range vwap {
		assert.True(t, math.IsNaN(v))
	}
}
