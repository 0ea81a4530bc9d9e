package portfolio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/quantevo/pairbt/internal/logger"
	"github.com/quantevo/pairbt/internal/strategy"
	"github.com/quantevo/pairbt/internal/types"
	"github.com/quantevo/pairbt/pkg/errors"
)

type SimulatorTestSuite struct {
	suite.Suite
	start time.Time
}

func TestSimulatorSuite(t *testing.T) {
	suite.Run(t, new(SimulatorTestSuite))
}

func (suite *SimulatorTestSuite) SetupTest() {
	suite.start = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
}

func (suite *SimulatorTestSuite) matrixFromCloses(asset string, closes []float64) *types.PriceMatrix {
	index := types.MinuteIndex(suite.start, suite.start.Add(time.Duration(len(closes)-1)*time.Minute))
	bars := make([]types.Bar, len(closes))

	for i := range closes {
		bars[i] = types.Bar{Time: index[i], Open: closes[i], High: closes[i], Low: closes[i], Close: closes[i], Volume: 1}
	}

	return types.NewPriceMatrix(index, map[string][]types.Bar{asset: bars})
}

func (suite *SimulatorTestSuite) signalsAt(prices *types.PriceMatrix, asset string, entryBars, exitBars []int) *types.SignalMatrix {
	signals := types.NewSignalMatrix(prices.Index, prices.Assets())
	for _, i := range entryBars {
		signals.Entries[asset][i] = true
	}

	for _, i := range exitBars {
		signals.Exits[asset][i] = true
	}

	return signals
}

func (suite *SimulatorTestSuite) simulator(initCash, feeRate, slippageRate float64) *Simulator {
	return NewSimulator(Config{
		InitCash:     initCash,
		FeeRate:      feeRate,
		SlippageRate: slippageRate,
	}, logger.NewNopLogger())
}

func (suite *SimulatorTestSuite) TestEquityIdentityHoldsEveryBar() {
	closes := []float64{100, 102, 98, 105, 103, 99, 107}
	prices := suite.matrixFromCloses("ETH/BTC", closes)
	signals := suite.signalsAt(prices, "ETH/BTC", []int{1, 5}, []int{3})

	sim := suite.simulator(10000, 0.001, 0.001)
	result, err := sim.Simulate(prices, signals)
	suite.Require().NoError(err)

	equity := result.Equity["ETH/BTC"]
	cash := result.Cash["ETH/BTC"]

	// equity - cash must equal quantity*close at every bar: zero while flat,
	// and proportional to the close while holding.
	var quantity float64

	for i := range closes {
		held := equity[i] - cash[i]
		if held == 0 {
			suite.Equal(equity[i], cash[i], "bar %d should be flat", i)
			quantity = 0

			continue
		}

		if quantity == 0 {
			quantity = held / closes[i]
		}

		suite.InDelta(cash[i]+quantity*closes[i], equity[i], 1e-9, "bar %d", i)
	}
}

func (suite *SimulatorTestSuite) TestMonotonicUptrendWithSMACross() {
	// The spec example: five bars, zero costs, SMA(1,2). The entry fires on
	// the first bar with both averages defined and equity rises strictly
	// afterwards with no exit.
	closes := []float64{100, 101, 102, 103, 104}
	prices := suite.matrixFromCloses("ETH/BTC", closes)

	s, err := strategy.NewSMACross(1, 2)
	suite.Require().NoError(err)

	signals, err := s.GenerateSignals(prices)
	suite.Require().NoError(err)

	sim := suite.simulator(10000, 0, 0)
	result, err := sim.Simulate(prices, signals)
	suite.Require().NoError(err)

	equity := result.Equity["ETH/BTC"]
	cash := result.Cash["ETH/BTC"]

	suite.Equal(10000.0, equity[0])
	suite.Equal(0.0, cash[1], "all cash deployed at the first defined bar")

	for i := 2; i < len(equity); i++ {
		suite.Greater(equity[i], equity[i-1], "equity must rise with price while holding")
	}

	suite.Empty(result.Trades, "no exit fires, the position stays open")
}

func (suite *SimulatorTestSuite) TestExitWhileFlatIsNoOp() {
	closes := []float64{100, 101, 102, 103}
	prices := suite.matrixFromCloses("ETH/BTC", closes)
	signals := suite.signalsAt(prices, "ETH/BTC", nil, []int{0, 1, 2, 3})

	sim := suite.simulator(10000, 0.001, 0.001)
	result, err := sim.Simulate(prices, signals)
	suite.Require().NoError(err)

	for i := range closes {
		suite.Equal(10000.0, result.Equity["ETH/BTC"][i])
		suite.Equal(10000.0, result.Cash["ETH/BTC"][i])
	}

	suite.Empty(result.Trades)
}

func (suite *SimulatorTestSuite) TestSimultaneousSignalsPreferEntryWhenFlat() {
	closes := []float64{100, 101, 102, 103}
	prices := suite.matrixFromCloses("ETH/BTC", closes)

	signals := types.NewSignalMatrix(prices.Index, prices.Assets())
	signals.Entries["ETH/BTC"][1] = true
	signals.Exits["ETH/BTC"][1] = true

	sim := suite.simulator(10000, 0, 0)
	result, err := sim.Simulate(prices, signals)
	suite.Require().NoError(err)

	suite.Equal(0.0, result.Cash["ETH/BTC"][1], "entry must win on a flat state")
	suite.Empty(result.Trades)
}

func (suite *SimulatorTestSuite) TestSimultaneousSignalsPreferExitWhenOpen() {
	closes := []float64{100, 101, 102, 103}
	prices := suite.matrixFromCloses("ETH/BTC", closes)

	signals := types.NewSignalMatrix(prices.Index, prices.Assets())
	signals.Entries["ETH/BTC"][0] = true
	signals.Entries["ETH/BTC"][2] = true
	signals.Exits["ETH/BTC"][2] = true

	sim := suite.simulator(10000, 0, 0)
	result, err := sim.Simulate(prices, signals)
	suite.Require().NoError(err)

	suite.Require().Len(result.Trades, 1)
	suite.Equal(102.0, result.Trades[0].ExitPrice)
	suite.Equal(result.Cash["ETH/BTC"][2], result.Equity["ETH/BTC"][2], "flat after the exit")
}

func (suite *SimulatorTestSuite) TestRoundTripAccounting() {
	closes := []float64{100, 100, 110, 110}
	prices := suite.matrixFromCloses("ETH/BTC", closes)
	signals := suite.signalsAt(prices, "ETH/BTC", []int{1}, []int{2})

	sim := suite.simulator(10000, 0, 0)
	result, err := sim.Simulate(prices, signals)
	suite.Require().NoError(err)

	suite.Require().Len(result.Trades, 1)
	trade := result.Trades[0]

	suite.Equal("ETH/BTC", trade.Asset)
	suite.Equal(100.0, trade.EntryPrice)
	suite.Equal(110.0, trade.ExitPrice)
	suite.InDelta(1000.0, trade.RealizedPnL, 1e-9)
	suite.Equal(0.0, trade.Fees)
	suite.InDelta(11000.0, result.Cash["ETH/BTC"][3], 1e-9)
}

func (suite *SimulatorTestSuite) TestFeesAndSlippageReduceProceeds() {
	closes := []float64{100, 100, 110, 110}
	prices := suite.matrixFromCloses("ETH/BTC", closes)
	signals := suite.signalsAt(prices, "ETH/BTC", []int{1}, []int{2})

	sim := suite.simulator(10000, 0.001, 0.001)
	result, err := sim.Simulate(prices, signals)
	suite.Require().NoError(err)

	suite.Require().Len(result.Trades, 1)
	trade := result.Trades[0]

	suite.Greater(trade.EntryPrice, 100.0, "buy slippage raises the fill")
	suite.Less(trade.ExitPrice, 110.0, "sell slippage lowers the fill")
	suite.Greater(trade.Fees, 0.0)
	suite.Less(trade.RealizedPnL, 1000.0, "costs must eat into the gross edge")

	// Cash after the round trip reflects the realized PnL exactly.
	suite.InDelta(10000.0+trade.RealizedPnL, result.Cash["ETH/BTC"][3], 1e-9)
}

func (suite *SimulatorTestSuite) TestOpenPositionStaysOpenAtEndOfData() {
	closes := []float64{100, 100, 120}
	prices := suite.matrixFromCloses("ETH/BTC", closes)
	signals := suite.signalsAt(prices, "ETH/BTC", []int{1}, nil)

	sim := suite.simulator(10000, 0, 0)
	result, err := sim.Simulate(prices, signals)
	suite.Require().NoError(err)

	suite.Empty(result.Trades, "no forced liquidation at end of data")
	suite.Equal(0.0, result.Cash["ETH/BTC"][2])
	suite.InDelta(12000.0, result.Equity["ETH/BTC"][2], 1e-9, "open position marked at final close")
}

func (suite *SimulatorTestSuite) TestSentinelBarsAreUntradeable() {
	closes := []float64{100, 0, 0, 110, 110}
	prices := suite.matrixFromCloses("ETH/BTC", closes)
	// Entry lands on zero-filled bars, then on a real one.
	signals := suite.signalsAt(prices, "ETH/BTC", []int{1, 2, 3}, nil)

	sim := suite.simulator(10000, 0, 0)
	result, err := sim.Simulate(prices, signals)
	suite.Require().NoError(err)

	suite.Equal(10000.0, result.Cash["ETH/BTC"][1], "no fill at a sentinel price")
	suite.Equal(10000.0, result.Equity["ETH/BTC"][2], "flat mark while untradeable")
	suite.Equal(0.0, result.Cash["ETH/BTC"][3], "first tradable bar executes the entry")
}

func (suite *SimulatorTestSuite) TestAllSentinelAssetFails() {
	closes := []float64{0, 0, 0}
	prices := suite.matrixFromCloses("DEAD/BTC", closes)
	signals := types.NewSignalMatrix(prices.Index, prices.Assets())

	sim := suite.simulator(10000, 0, 0)
	_, err := sim.Simulate(prices, signals)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidPrice))
}

func (suite *SimulatorTestSuite) TestShapeMismatchRejected() {
	prices := suite.matrixFromCloses("ETH/BTC", []float64{100, 101})
	signals := types.NewSignalMatrix(prices.Index, []string{"OTHER/BTC"})

	sim := suite.simulator(10000, 0, 0)
	_, err := sim.Simulate(prices, signals)
	suite.True(errors.HasCode(err, errors.ErrCodeSignalShapeInvalid))
}

func (suite *SimulatorTestSuite) TestMultiAssetIsolation() {
	index := types.MinuteIndex(suite.start, suite.start.Add(3*time.Minute))

	series := map[string][]types.Bar{}
	for asset, closes := range map[string][]float64{
		"AAA/BTC": {100, 100, 120, 120},
		"BBB/BTC": {50, 50, 40, 40},
	} {
		bars := make([]types.Bar, len(closes))
		for i := range closes {
			bars[i] = types.Bar{Time: index[i], Close: closes[i], Volume: 1}
		}

		series[asset] = bars
	}

	prices := types.NewPriceMatrix(index, series)
	signals := types.NewSignalMatrix(prices.Index, prices.Assets())
	signals.Entries["AAA/BTC"][1] = true
	signals.Exits["AAA/BTC"][2] = true
	signals.Entries["BBB/BTC"][1] = true
	signals.Exits["BBB/BTC"][2] = true

	sim := suite.simulator(10000, 0, 0)
	result, err := sim.Simulate(prices, signals)
	suite.Require().NoError(err)

	suite.Require().Len(result.Trades, 2)
	// Deterministic order: asset-major.
	suite.Equal("AAA/BTC", result.Trades[0].Asset)
	suite.Equal("BBB/BTC", result.Trades[1].Asset)

	suite.InDelta(12000.0, result.Cash["AAA/BTC"][3], 1e-9)
	suite.InDelta(8000.0, result.Cash["BBB/BTC"][3], 1e-9)
}

func (suite *SimulatorTestSuite) TestEmptyMatrixFails() {
	prices := types.NewPriceMatrix(nil, map[string][]types.Bar{})
	signals := types.NewSignalMatrix(nil, nil)

	sim := suite.simulator(10000, 0, 0)
	_, err := sim.Simulate(prices, signals)
	suite.True(errors.HasCode(err, errors.ErrCodeInsufficientData))
}
