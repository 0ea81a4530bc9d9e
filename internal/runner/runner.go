// Package runner drives full strategy evaluations: signals, simulation,
// aggregation, persistence, and reporting.
package runner

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/quantevo/pairbt/internal/logger"
	"github.com/quantevo/pairbt/internal/metrics"
	"github.com/quantevo/pairbt/internal/portfolio"
	"github.com/quantevo/pairbt/internal/report"
	"github.com/quantevo/pairbt/internal/store"
	"github.com/quantevo/pairbt/internal/strategy"
	"github.com/quantevo/pairbt/internal/types"
	"github.com/quantevo/pairbt/pkg/errors"
)

// Runner evaluates strategies against one fixed price matrix. It holds no
// per-run state, so a single Runner serves concurrent evaluations.
type Runner struct {
	prices     *types.PriceMatrix
	sim        *portfolio.Simulator
	agg        *metrics.Aggregator
	store      *store.Store
	renderer   *report.Renderer
	resultsDir string
	logger     *logger.Logger
}

// NewRunner validates the matrix once and wires the evaluation pipeline.
// store and renderer are optional; without them runs still produce
// scorecards.
func NewRunner(prices *types.PriceMatrix, simConfig portfolio.Config, barInterval time.Duration, st *store.Store, renderer *report.Renderer, resultsDir string, log *logger.Logger) (*Runner, error) {
	if err := prices.CheckIntegrity(); err != nil {
		return nil, err
	}

	return &Runner{
		prices:     prices,
		sim:        portfolio.NewSimulator(simConfig, log),
		agg:        metrics.NewAggregator(simConfig.InitCash, barInterval),
		store:      st,
		renderer:   renderer,
		resultsDir: resultsDir,
		logger:     log,
	}, nil
}

// Run evaluates one strategy end to end and returns its scorecard. The
// scorecard is computed before any persistence or rendering, so failures in
// those stages are logged and the scorecard still returned.
func (r *Runner) Run(ctx context.Context, strat strategy.Strategy) (types.Scorecard, error) {
	if err := ctx.Err(); err != nil {
		return types.Scorecard{}, errors.Wrap(errors.ErrCodeSimulationState, "run cancelled", err)
	}

	if actual := r.prices.NumBars(); actual < strat.MinBars() {
		return types.Scorecard{}, errors.NewInsufficientDataError(strat.MinBars(), actual, strat.Name())
	}

	signals, err := strat.GenerateSignals(r.prices)
	if err != nil {
		return types.Scorecard{}, err
	}

	result, err := r.sim.Simulate(r.prices, signals)
	if err != nil {
		return types.Scorecard{}, err
	}

	card, perAsset := r.agg.Aggregate(strat.Name(), result, r.prices.Assets())

	r.persist(card, perAsset, result)
	r.render(card, perAsset, result)

	r.logger.Info("strategy run complete",
		zap.String("strategy", strat.Name()),
		zap.Float64("total_return", card.TotalReturn),
		zap.Int("trades", len(result.Trades)),
	)

	return card, nil
}

func (r *Runner) persist(card types.Scorecard, perAsset []metrics.AssetStats, result *portfolio.Result) {
	if r.store == nil {
		return
	}

	runID, err := r.store.RecordRun(card, perAsset, result.Trades)
	if err != nil {
		r.logger.Warn("failed to persist run",
			zap.String("strategy", card.Strategy),
			zap.Error(err),
		)

		return
	}

	if err := r.store.WriteResults(r.resultsDir, runID, card.Strategy); err != nil {
		r.logger.Warn("failed to export run CSVs",
			zap.String("strategy", card.Strategy),
			zap.Error(err),
		)
	}
}

func (r *Runner) render(card types.Scorecard, perAsset []metrics.AssetStats, result *portfolio.Result) {
	if r.renderer == nil {
		return
	}

	if err := r.renderer.Render(card, perAsset, r.prices.Index, result); err != nil {
		r.logger.Warn("failed to render report",
			zap.String("strategy", card.Strategy),
			zap.Error(err),
		)
	}
}
