package portfolio

import (
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"

	"github.com/quantevo/pairbt/internal/types"
)

// positionState is the per-asset finite state machine: a position is either
// flat or open; there are no partial fills.
type positionState int

const (
	stateFlat positionState = iota
	stateOpen
)

// assetState carries one asset's simulation state between bars. A transition
// either opens a position (deducts cash, sets quantity) or closes one (adds
// proceeds, clears quantity); cash and quantity are never mutated separately.
type assetState struct {
	state      positionState
	cash       float64
	quantity   float64
	entryTime  time.Time
	entryPrice float64
	entryCost  float64 // notional plus entry fee, for realized PnL
	entryFee   float64
}

func newAssetState(initCash float64) assetState {
	return assetState{
		state: stateFlat,
		cash:  initCash,
	}
}

// transition advances one asset one bar. It is a pure function of the prior
// state, the bar, and the two signal bits; it returns the next state and a
// TradeRecord when a position closes.
//
// Policies:
//   - a non-positive close (the gap-fill sentinel) cannot execute anything;
//   - entry and exit both true while flat opens a position (nothing to close);
//   - entry and exit both true while open closes the position;
//   - an exit with no open position is a no-op.
func transition(asset string, prior assetState, bar types.Bar, entry, exit bool, exec ExecutionModel) (assetState, optional.Option[types.TradeRecord]) {
	if bar.Close <= 0 {
		return prior, optional.None[types.TradeRecord]()
	}

	switch prior.state {
	case stateFlat:
		if entry && prior.cash > 0 {
			return openPosition(prior, bar, exec), optional.None[types.TradeRecord]()
		}
	case stateOpen:
		if exit {
			next, trade := closePosition(asset, prior, bar, exec)

			return next, optional.Some(trade)
		}
	}

	return prior, optional.None[types.TradeRecord]()
}

// openPosition deploys all current cash at the slippage-adjusted price and
// deducts the proportional fee, leaving cash at exactly zero.
func openPosition(prior assetState, bar types.Bar, exec ExecutionModel) assetState {
	execPrice := exec.BuyPrice(bar.Close)
	notional := prior.cash / (1 + exec.FeeRate)
	fee := prior.cash - notional
	quantity := notional / execPrice

	return assetState{
		state:      stateOpen,
		cash:       0,
		quantity:   quantity,
		entryTime:  bar.Time,
		entryPrice: execPrice,
		entryCost:  prior.cash,
		entryFee:   fee,
	}
}

// closePosition liquidates the full quantity at the slippage-adjusted price,
// deducts the exit fee, and realizes PnL into cash.
func closePosition(asset string, prior assetState, bar types.Bar, exec ExecutionModel) (assetState, types.TradeRecord) {
	execPrice := exec.SellPrice(bar.Close)
	proceeds := prior.quantity * execPrice
	fee := exec.Fee(proceeds)
	netProceeds := proceeds - fee

	trade := types.TradeRecord{
		ID:          uuid.New().String(),
		Asset:       asset,
		EntryTime:   prior.entryTime,
		ExitTime:    bar.Time,
		EntryPrice:  prior.entryPrice,
		ExitPrice:   execPrice,
		Quantity:    prior.quantity,
		RealizedPnL: netProceeds - prior.entryCost,
		Fees:        prior.entryFee + fee,
	}

	next := assetState{
		state: stateFlat,
		cash:  prior.cash + netProceeds,
	}

	return next, trade
}
