// Package portfolio replays entry/exit signal matrices bar-by-bar through an
// event-driven trade simulator, tracking cash, position size, fees and
// slippage per asset.
package portfolio

import (
	"github.com/shopspring/decimal"
)

// ExecutionModel applies the flat fee and slippage costs of order execution.
// Slippage penalizes the execution price relative to the quoted close; fees
// are proportional to traded notional.
type ExecutionModel struct {
	FeeRate      float64
	SlippageRate float64
}

// BuyPrice returns the execution price for a buy at the quoted price.
func (m ExecutionModel) BuyPrice(quoted float64) float64 {
	price := decimal.NewFromFloat(quoted).
		Mul(decimal.NewFromFloat(1).Add(decimal.NewFromFloat(m.SlippageRate)))

	result, _ := price.Float64()

	return result
}

// SellPrice returns the execution price for a sell at the quoted price.
func (m ExecutionModel) SellPrice(quoted float64) float64 {
	price := decimal.NewFromFloat(quoted).
		Mul(decimal.NewFromFloat(1).Sub(decimal.NewFromFloat(m.SlippageRate)))

	result, _ := price.Float64()

	return result
}

// Fee returns the proportional fee on the given traded notional.
func (m ExecutionModel) Fee(notional float64) float64 {
	fee := decimal.NewFromFloat(notional).Mul(decimal.NewFromFloat(m.FeeRate))

	result, _ := fee.Float64()

	return result
}
