package types

import (
	"time"

	"github.com/quantevo/pairbt/pkg/errors"
)

// SignalMatrix holds per-asset boolean entry and exit columns sharing the
// PriceMatrix time index. Cells are never "unknown": a comparison against an
// undefined indicator value resolves to false.
type SignalMatrix struct {
	Index   []time.Time
	Entries map[string][]bool
	Exits   map[string][]bool
}

// NewSignalMatrix allocates all-false entry/exit columns for the given assets.
func NewSignalMatrix(index []time.Time, assets []string) *SignalMatrix {
	entries := make(map[string][]bool, len(assets))
	exits := make(map[string][]bool, len(assets))

	for _, asset := range assets {
		entries[asset] = make([]bool, len(index))
		exits[asset] = make([]bool, len(index))
	}

	return &SignalMatrix{
		Index:   index,
		Entries: entries,
		Exits:   exits,
	}
}

// Validate checks that the signal matrix covers exactly the assets and bar
// count of the given price matrix.
func (s *SignalMatrix) Validate(prices *PriceMatrix) error {
	if len(s.Index) != len(prices.Index) {
		return errors.Newf(errors.ErrCodeSignalShapeInvalid,
			"signal index has %d bars, price index has %d", len(s.Index), len(prices.Index))
	}

	for _, asset := range prices.Assets() {
		entries, ok := s.Entries[asset]
		if !ok {
			return errors.Newf(errors.ErrCodeSignalShapeInvalid, "missing entries column for asset %s", asset)
		}

		exits, ok := s.Exits[asset]
		if !ok {
			return errors.Newf(errors.ErrCodeSignalShapeInvalid, "missing exits column for asset %s", asset)
		}

		if len(entries) != len(s.Index) || len(exits) != len(s.Index) {
			return errors.Newf(errors.ErrCodeSignalShapeInvalid,
				"asset %s signal columns do not match index length %d", asset, len(s.Index))
		}
	}

	return nil
}
