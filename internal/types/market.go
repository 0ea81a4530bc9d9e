package types

import (
	"math"
	"sort"
	"time"

	"github.com/quantevo/pairbt/pkg/errors"
)

// Bar is one fixed-interval slice of OHLCV data for a single asset.
type Bar struct {
	Time   time.Time `csv:"time"`
	Open   float64   `csv:"open"`
	High   float64   `csv:"high"`
	Low    float64   `csv:"low"`
	Close  float64   `csv:"close"`
	Volume float64   `csv:"volume"`
}

// PriceMatrix holds aligned multi-asset OHLCV series. Every asset shares the
// same gap-free time index; bars missing at the source are zero-filled so all
// assets stay comparable at every timestamp. Constructed once per data window
// and treated as read-only by everything downstream.
type PriceMatrix struct {
	Index  []time.Time
	Series map[string][]Bar
}

// NewPriceMatrix builds a PriceMatrix from a shared index and per-asset series.
func NewPriceMatrix(index []time.Time, series map[string][]Bar) *PriceMatrix {
	return &PriceMatrix{
		Index:  index,
		Series: series,
	}
}

// Assets returns the asset identifiers in sorted order. Sorted iteration keeps
// every run over the same matrix deterministic.
func (p *PriceMatrix) Assets() []string {
	assets := make([]string, 0, len(p.Series))
	for asset := range p.Series {
		assets = append(assets, asset)
	}

	sort.Strings(assets)

	return assets
}

// NumBars returns the number of bars in the shared time index.
func (p *PriceMatrix) NumBars() int {
	return len(p.Index)
}

// Closes returns the close-price column for one asset.
func (p *PriceMatrix) Closes(asset string) []float64 {
	bars, ok := p.Series[asset]
	if !ok {
		return nil
	}

	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}

	return closes
}

// Volumes returns the volume column for one asset.
func (p *PriceMatrix) Volumes(asset string) []float64 {
	bars, ok := p.Series[asset]
	if !ok {
		return nil
	}

	volumes := make([]float64, len(bars))
	for i, bar := range bars {
		volumes[i] = bar.Volume
	}

	return volumes
}

// CheckIntegrity verifies that every asset series matches the shared index
// bar-for-bar and that no cell is NaN. A matrix failing this check must not
// reach simulation; cached loads failing it are refetched.
func (p *PriceMatrix) CheckIntegrity() error {
	if len(p.Index) == 0 {
		return errors.New(errors.ErrCodeDataIntegrity, "price matrix has an empty time index")
	}

	for i := 1; i < len(p.Index); i++ {
		if !p.Index[i].After(p.Index[i-1]) {
			return errors.Newf(errors.ErrCodeDataIntegrity,
				"time index not strictly increasing at position %d", i)
		}
	}

	for _, asset := range p.Assets() {
		bars := p.Series[asset]
		if len(bars) != len(p.Index) {
			return errors.Newf(errors.ErrCodeDataIntegrity,
				"asset %s has %d bars, index has %d", asset, len(bars), len(p.Index))
		}

		for i, bar := range bars {
			if !bar.Time.Equal(p.Index[i]) {
				return errors.Newf(errors.ErrCodeDataIntegrity,
					"asset %s bar %d timestamp %s does not match index %s",
					asset, i, bar.Time, p.Index[i])
			}

			if hasNaN(bar) {
				return errors.Newf(errors.ErrCodeDataIntegrity,
					"asset %s has a NaN cell at bar %d", asset, i)
			}
		}
	}

	return nil
}

func hasNaN(bar Bar) bool {
	return math.IsNaN(bar.Open) || math.IsNaN(bar.High) || math.IsNaN(bar.Low) ||
		math.IsNaN(bar.Close) || math.IsNaN(bar.Volume)
}

// MinuteIndex builds the complete minute-bar time index covering [start, end].
func MinuteIndex(start, end time.Time) []time.Time {
	if end.Before(start) {
		return nil
	}

	index := make([]time.Time, 0, int(end.Sub(start)/time.Minute)+1)
	for t := start; !t.After(end); t = t.Add(time.Minute) {
		index = append(index, t)
	}

	return index
}
