package strategy

import (
	"github.com/quantevo/pairbt/internal/indicator"
	"github.com/quantevo/pairbt/internal/types"
	"github.com/quantevo/pairbt/pkg/errors"
)

// VWAPReversion trades intraday mean reversion around the volume-weighted
// average price, which resets at every UTC day boundary. Entries fire when
// price trades more than Threshold below VWAP, exits when it trades more
// than Threshold above.
type VWAPReversion struct {
	Threshold float64 `validate:"gt=0,lt=1"`
}

// NewVWAPReversion creates a VWAP reversion strategy with the given band
// threshold (a fraction, e.g. 0.01 for 1%).
func NewVWAPReversion(threshold float64) (*VWAPReversion, error) {
	s := &VWAPReversion{Threshold: threshold}

	if err := validate.Struct(s); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStrategyConfig, "invalid vwap_reversion parameters", err)
	}

	return s, nil
}

// Name implements Strategy.
func (s *VWAPReversion) Name() string {
	return string(KindVWAPReversion)
}

// MinBars implements Strategy. VWAP is defined from the first bar with volume.
func (s *VWAPReversion) MinBars() int {
	return 1
}

// GenerateSignals implements Strategy.
func (s *VWAPReversion) GenerateSignals(prices *types.PriceMatrix) (*types.SignalMatrix, error) {
	signals := types.NewSignalMatrix(prices.Index, prices.Assets())

	for _, asset := range prices.Assets() {
		closes := prices.Closes(asset)
		volumes := prices.Volumes(asset)
		vwap := indicator.IntradayVWAP(prices.Index, closes, volumes)

		entries := signals.Entries[asset]
		exits := signals.Exits[asset]

		for i := range closes {
			entries[i] = closes[i] < vwap[i]*(1-s.Threshold)
			exits[i] = closes[i] > vwap[i]*(1+s.Threshold)
		}
	}

	return signals, nil
}
