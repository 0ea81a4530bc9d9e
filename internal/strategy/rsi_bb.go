package strategy

import (
	"github.com/quantevo/pairbt/internal/indicator"
	"github.com/quantevo/pairbt/internal/types"
	"github.com/quantevo/pairbt/pkg/errors"
)

// RSIBB enters oversold dips confirmed by the lower Bollinger Band and exits
// on overbought RSI or a touch of the upper band.
type RSIBB struct {
	RSIPeriod int     `validate:"gt=0"`
	BBWindow  int     `validate:"gt=1"`
	BBStd     float64 `validate:"gt=0"`
}

const (
	rsiOversold   = 30.0
	rsiOverbought = 70.0
	// Band tolerance: entry accepts closes within 1% above the lower band,
	// exit triggers within 1% below the upper band.
	lowerBandTolerance = 1.01
	upperBandTolerance = 0.99
)

// NewRSIBB creates an RSI + Bollinger Band confirmation strategy.
func NewRSIBB(rsiPeriod, bbWindow int, bbStd float64) (*RSIBB, error) {
	s := &RSIBB{
		RSIPeriod: rsiPeriod,
		BBWindow:  bbWindow,
		BBStd:     bbStd,
	}

	if err := validate.Struct(s); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStrategyConfig, "invalid rsi_bb parameters", err)
	}

	return s, nil
}

// Name implements Strategy.
func (s *RSIBB) Name() string {
	return string(KindRSIBB)
}

// MinBars implements Strategy. RSI needs period+1 closes for its first delta,
// the bands need a full window.
func (s *RSIBB) MinBars() int {
	if s.RSIPeriod+1 > s.BBWindow {
		return s.RSIPeriod + 1
	}

	return s.BBWindow
}

// GenerateSignals implements Strategy.
func (s *RSIBB) GenerateSignals(prices *types.PriceMatrix) (*types.SignalMatrix, error) {
	signals := types.NewSignalMatrix(prices.Index, prices.Assets())

	for _, asset := range prices.Assets() {
		closes := prices.Closes(asset)
		rsi := indicator.RSI(closes, s.RSIPeriod)
		bands := indicator.BollingerBands(closes, s.BBWindow, s.BBStd)

		entries := signals.Entries[asset]
		exits := signals.Exits[asset]

		for i := range closes {
			entries[i] = rsi[i] < rsiOversold && closes[i] <= bands.Lower[i]*lowerBandTolerance
			exits[i] = rsi[i] > rsiOverbought || closes[i] >= bands.Upper[i]*upperBandTolerance
		}
	}

	return signals, nil
}
