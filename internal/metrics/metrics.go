// Package metrics reduces per-asset simulation output into per-asset
// statistics and one aggregated scorecard per strategy run.
package metrics

import (
	"math"
	"time"

	"github.com/quantevo/pairbt/internal/portfolio"
	"github.com/quantevo/pairbt/internal/types"
)

// exposureEpsilon separates a held position from float noise when comparing
// equity against cash.
const exposureEpsilon = 1e-6

// AssetStats holds the per-asset statistics extracted from one simulation.
type AssetStats struct {
	Asset        string
	TotalReturn  float64
	SharpeRatio  float64
	MaxDrawdown  float64
	WinRate      float64
	Expectancy   float64
	Exposure     float64
	ClosedTrades int
}

// Aggregator computes statistics against a fixed initial cash and bar
// frequency.
type Aggregator struct {
	initCash    float64
	barsPerYear float64
}

// NewAggregator creates an Aggregator. barInterval sets the annualization
// factor for the Sharpe ratio (minute bars give 525600 bars per year).
func NewAggregator(initCash float64, barInterval time.Duration) *Aggregator {
	return &Aggregator{
		initCash:    initCash,
		barsPerYear: float64(365*24*time.Hour) / float64(barInterval),
	}
}

// AssetStats computes the statistics of one asset's equity curve and trades.
func (a *Aggregator) AssetStats(result *portfolio.Result, asset string) AssetStats {
	equity := result.Equity[asset]
	cash := result.Cash[asset]

	stats := AssetStats{
		Asset:       asset,
		TotalReturn: equity[len(equity)-1]/a.initCash - 1,
		SharpeRatio: a.sharpe(equity),
		MaxDrawdown: maxDrawdown(equity),
		Exposure:    exposure(equity, cash),
	}

	var wins int

	var totalPnL float64

	for _, trade := range result.Trades {
		if trade.Asset != asset {
			continue
		}

		stats.ClosedTrades++
		totalPnL += trade.RealizedPnL

		if trade.Win() {
			wins++
		}
	}

	if stats.ClosedTrades > 0 {
		stats.WinRate = float64(wins) / float64(stats.ClosedTrades)
		stats.Expectancy = totalPnL / float64(stats.ClosedTrades)
	}

	return stats
}

// Aggregate reduces per-asset statistics into one scorecard. Arithmetic means
// throughout, except the Sharpe ratio: degenerate zero-volatility assets
// produce non-finite per-asset values, so only finite values are summed
// before dividing by the full asset count. Exposure is already a per-asset
// bar fraction, so its flat mean is the twice-averaged exposure time.
func (a *Aggregator) Aggregate(strategyName string, result *portfolio.Result, assets []string) (types.Scorecard, []AssetStats) {
	perAsset := make([]AssetStats, 0, len(assets))
	card := types.Scorecard{Strategy: strategyName}

	if len(assets) == 0 {
		return card, perAsset
	}

	var sharpeSum float64

	for _, asset := range assets {
		stats := a.AssetStats(result, asset)
		perAsset = append(perAsset, stats)

		card.TotalReturn += stats.TotalReturn
		card.MaxDrawdown += stats.MaxDrawdown
		card.WinRate += stats.WinRate
		card.Expectancy += stats.Expectancy
		card.ExposureTime += stats.Exposure

		if !math.IsInf(stats.SharpeRatio, 0) && !math.IsNaN(stats.SharpeRatio) {
			sharpeSum += stats.SharpeRatio
		}
	}

	count := float64(len(assets))
	card.TotalReturn /= count
	card.MaxDrawdown /= count
	card.WinRate /= count
	card.Expectancy /= count
	card.ExposureTime /= count
	card.SharpeRatio = sharpeSum / count

	return card, perAsset
}

// sharpe is the annualized mean over sample standard deviation of per-bar
// equity returns. Zero-variance curves return ±Inf (or NaN when also
// driftless) so the aggregation can recognize and neutralize them.
func (a *Aggregator) sharpe(equity []float64) float64 {
	if len(equity) < 2 {
		return math.NaN()
	}

	returns := make([]float64, 0, len(equity)-1)

	for i := 1; i < len(equity); i++ {
		if equity[i-1] == 0 {
			returns = append(returns, 0)

			continue
		}

		returns = append(returns, equity[i]/equity[i-1]-1)
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}

	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		diff := r - mean
		variance += diff * diff
	}

	if len(returns) > 1 {
		variance /= float64(len(returns) - 1)
	}

	std := math.Sqrt(variance)
	if std == 0 {
		switch {
		case mean > 0:
			return math.Inf(1)
		case mean < 0:
			return math.Inf(-1)
		default:
			return math.NaN()
		}
	}

	return mean / std * math.Sqrt(a.barsPerYear)
}

// maxDrawdown returns the largest peak-to-trough decline of the equity curve
// as a positive fraction of the peak.
func maxDrawdown(equity []float64) float64 {
	var (
		peak     float64
		drawdown float64
	)

	for _, value := range equity {
		if value > peak {
			peak = value
		}

		if peak > 0 {
			decline := (peak - value) / peak
			if decline > drawdown {
				drawdown = decline
			}
		}
	}

	return drawdown
}

// exposure returns the fraction of bars during which a position was open,
// detected as a gap between equity and cash.
func exposure(equity, cash []float64) float64 {
	if len(equity) == 0 {
		return 0
	}

	exposed := 0

	for i := range equity {
		if math.Abs(equity[i]-cash[i]) > exposureEpsilon {
			exposed++
		}
	}

	return float64(exposed) / float64(len(equity))
}
