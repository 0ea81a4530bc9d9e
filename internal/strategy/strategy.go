// Package strategy implements signal generation for the closed set of
// supported trading strategies. Each strategy consumes a read-only
// PriceMatrix and produces aligned boolean entry/exit columns per asset,
// computed independently per column with no cross-asset access.
package strategy

import (
	"github.com/go-playground/validator/v10"

	"github.com/quantevo/pairbt/internal/types"
	"github.com/quantevo/pairbt/pkg/errors"
)

// Strategy generates entry/exit signal matrices from aligned price history.
type Strategy interface {
	// Name returns the strategy identifier used in result paths and logs.
	Name() string
	// MinBars returns the minimum number of bars required before the
	// strategy can produce any defined signal.
	MinBars() int
	// GenerateSignals computes boolean entry/exit columns for every asset
	// in the matrix. Undefined indicator values never produce a signal.
	GenerateSignals(prices *types.PriceMatrix) (*types.SignalMatrix, error)
}

// Kind identifies one of the supported strategy variants.
type Kind string

const (
	KindSMACross      Kind = "sma_cross"
	KindRSIBB         Kind = "rsi_bb"
	KindVWAPReversion Kind = "vwap_reversion"
)

// Params carries the union of per-strategy parameters as parsed from the run
// configuration. Only the fields relevant to Kind are read.
type Params struct {
	Kind       Kind    `yaml:"kind" json:"kind" validate:"required"`
	FastWindow int     `yaml:"fast_window" json:"fast_window"`
	SlowWindow int     `yaml:"slow_window" json:"slow_window"`
	RSIPeriod  int     `yaml:"rsi_period" json:"rsi_period"`
	BBWindow   int     `yaml:"bb_window" json:"bb_window"`
	BBStd      float64 `yaml:"bb_std" json:"bb_std"`
	Threshold  float64 `yaml:"threshold" json:"threshold"`
}

var validate = validator.New()

// New constructs the strategy variant named by params.Kind. Unknown kinds
// fail with ErrCodeUnknownStrategy so one bad entry cannot be silently
// skipped.
func New(params Params) (Strategy, error) {
	switch params.Kind {
	case KindSMACross:
		return NewSMACross(params.FastWindow, params.SlowWindow)
	case KindRSIBB:
		return NewRSIBB(params.RSIPeriod, params.BBWindow, params.BBStd)
	case KindVWAPReversion:
		return NewVWAPReversion(params.Threshold)
	default:
		return nil, errors.Newf(errors.ErrCodeUnknownStrategy, "unknown strategy kind %q", params.Kind)
	}
}
