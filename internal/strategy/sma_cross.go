package strategy

import (
	"github.com/quantevo/pairbt/internal/indicator"
	"github.com/quantevo/pairbt/internal/types"
	"github.com/quantevo/pairbt/pkg/errors"
)

// SMACross signals on the crossing of a fast and a slow simple moving average
// of close price. Entries fire while fast > slow, exits while fast < slow;
// equal averages fire neither.
type SMACross struct {
	FastWindow int `validate:"gt=0"`
	SlowWindow int `validate:"gt=0"`
}

// NewSMACross creates an SMA crossover strategy. Both windows must be
// positive; equal windows are allowed and produce no signals at all.
func NewSMACross(fastWindow, slowWindow int) (*SMACross, error) {
	s := &SMACross{
		FastWindow: fastWindow,
		SlowWindow: slowWindow,
	}

	if err := validate.Struct(s); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStrategyConfig, "invalid sma_cross parameters", err)
	}

	if fastWindow > slowWindow {
		return nil, errors.Newf(errors.ErrCodeStrategyConfig,
			"fast window %d must not exceed slow window %d", fastWindow, slowWindow)
	}

	return s, nil
}

// Name implements Strategy.
func (s *SMACross) Name() string {
	return string(KindSMACross)
}

// MinBars implements Strategy. The slow average defines the warm-up.
func (s *SMACross) MinBars() int {
	return s.SlowWindow
}

// GenerateSignals implements Strategy.
func (s *SMACross) GenerateSignals(prices *types.PriceMatrix) (*types.SignalMatrix, error) {
	signals := types.NewSignalMatrix(prices.Index, prices.Assets())

	for _, asset := range prices.Assets() {
		closes := prices.Closes(asset)
		fast := indicator.SMA(closes, s.FastWindow)
		slow := indicator.SMA(closes, s.SlowWindow)

		entries := signals.Entries[asset]
		exits := signals.Exits[asset]

		for i := range closes {
			// NaN warm-up values compare false on both sides.
			entries[i] = fast[i] > slow[i]
			exits[i] = fast[i] < slow[i]
		}
	}

	return signals, nil
}
