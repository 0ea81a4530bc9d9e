package portfolio

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/quantevo/pairbt/internal/logger"
	"github.com/quantevo/pairbt/internal/types"
	"github.com/quantevo/pairbt/pkg/errors"
)

// Config holds the execution parameters of one simulation run.
type Config struct {
	InitCash     float64 `yaml:"init_cash" validate:"gt=0"`
	FeeRate      float64 `yaml:"fee_rate" validate:"gte=0,lt=1"`
	SlippageRate float64 `yaml:"slippage_rate" validate:"gte=0,lt=1"`
}

// Result is the per-asset output of a simulation: mark-to-market equity and
// cash curves aligned with the price index, plus the closed-trade log.
type Result struct {
	Equity map[string][]float64
	Cash   map[string][]float64
	Trades []types.TradeRecord
}

// Simulator replays signal matrices through the per-asset state machine.
type Simulator struct {
	config Config
	exec   ExecutionModel
	log    *logger.Logger
}

// NewSimulator creates a Simulator with the given execution parameters.
func NewSimulator(config Config, log *logger.Logger) *Simulator {
	return &Simulator{
		config: config,
		exec: ExecutionModel{
			FeeRate:      config.FeeRate,
			SlippageRate: config.SlippageRate,
		},
		log: log,
	}
}

// Simulate replays the signal matrix against the price matrix bar-by-bar.
// Assets are simulated on independent goroutines; within one asset the bar
// loop is strictly sequential because bar t+1 depends on the outcome of bar t.
//
// Open positions at the end of the data remain open: they are marked at the
// final close for equity purposes and never force-liquidated. That keeps the
// last equity value honest about unrealized exposure instead of synthesizing
// a fill that never happened.
func (s *Simulator) Simulate(prices *types.PriceMatrix, signals *types.SignalMatrix) (*Result, error) {
	if prices.NumBars() == 0 {
		return nil, errors.New(errors.ErrCodeInsufficientData, "price matrix has no bars")
	}

	if err := signals.Validate(prices); err != nil {
		return nil, err
	}

	assets := prices.Assets()

	result := &Result{
		Equity: make(map[string][]float64, len(assets)),
		Cash:   make(map[string][]float64, len(assets)),
	}

	tradesPerAsset := make([][]types.TradeRecord, len(assets))

	for _, asset := range assets {
		if !hasTradablePrice(prices.Series[asset]) {
			return nil, errors.Newf(errors.ErrCodeInvalidPrice,
				"asset %s has no positive close in the window", asset)
		}

		result.Equity[asset] = make([]float64, prices.NumBars())
		result.Cash[asset] = make([]float64, prices.NumBars())
	}

	var wg sync.WaitGroup

	for i, asset := range assets {
		wg.Add(1)

		go func(slot int, asset string) {
			defer wg.Done()

			tradesPerAsset[slot] = s.simulateAsset(
				asset,
				prices.Series[asset],
				signals.Entries[asset],
				signals.Exits[asset],
				result.Equity[asset],
				result.Cash[asset],
			)
		}(i, asset)
	}

	wg.Wait()

	for _, trades := range tradesPerAsset {
		result.Trades = append(result.Trades, trades...)
	}

	// Asset-major, time-minor order keeps the merged log deterministic.
	sort.SliceStable(result.Trades, func(i, j int) bool {
		if result.Trades[i].Asset != result.Trades[j].Asset {
			return result.Trades[i].Asset < result.Trades[j].Asset
		}

		return result.Trades[i].ExitTime.Before(result.Trades[j].ExitTime)
	})

	s.log.Debug("simulation complete",
		zap.Int("assets", len(assets)),
		zap.Int("bars", prices.NumBars()),
		zap.Int("closed_trades", len(result.Trades)),
	)

	return result, nil
}

// simulateAsset folds the transition function over one asset's bar sequence,
// writing mark-to-market equity and cash into the preallocated columns.
func (s *Simulator) simulateAsset(asset string, bars []types.Bar, entries, exits []bool, equity, cash []float64) []types.TradeRecord {
	state := newAssetState(s.config.InitCash)

	var trades []types.TradeRecord

	for i, bar := range bars {
		next, closed := transition(asset, state, bar, entries[i], exits[i], s.exec)
		state = next

		if closed.IsSome() {
			trades = append(trades, closed.Unwrap())
		}

		// Equity identity: cash plus position marked at the current close.
		equity[i] = state.cash + state.quantity*bar.Close
		cash[i] = state.cash
	}

	return trades
}

func hasTradablePrice(bars []types.Bar) bool {
	for _, bar := range bars {
		if bar.Close > 0 {
			return true
		}
	}

	return false
}
