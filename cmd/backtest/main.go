// Command backtest runs signal-driven crypto backtests from a YAML
// configuration.
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/quantevo/pairbt/internal/cache"
	"github.com/quantevo/pairbt/internal/config"
	"github.com/quantevo/pairbt/internal/logger"
	"github.com/quantevo/pairbt/internal/marketdata"
	"github.com/quantevo/pairbt/internal/portfolio"
	"github.com/quantevo/pairbt/internal/report"
	"github.com/quantevo/pairbt/internal/runner"
	"github.com/quantevo/pairbt/internal/store"
	"github.com/quantevo/pairbt/internal/types"
	"github.com/quantevo/pairbt/pkg/errors"
)

func main() {
	cmd := &cli.Command{
		Name:  "pairbt",
		Usage: "Backtest signal-driven strategies over crypto pairs",
		Commands: []*cli.Command{
			runCommand(),
			downloadCommand(),
			schemaCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to the YAML configuration file",
		Value:   "config.yaml",
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:   "run",
		Usage:  "Run every configured strategy and print a comparison table",
		Flags:  []cli.Flag{configFlag()},
		Action: runAction,
	}
}

func downloadCommand() *cli.Command {
	return &cli.Command{
		Name:   "download",
		Usage:  "Fetch and cache market data without running strategies",
		Flags:  []cli.Flag{configFlag()},
		Action: downloadAction,
	}
}

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Print the JSON schema of the configuration file",
		Action: func(_ context.Context, _ *cli.Command) error {
			schemaJSON, err := (&config.Config{}).GenerateSchemaJSON()
			if err != nil {
				return err
			}

			fmt.Println(schemaJSON)

			return nil
		},
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, log, err := setup(cmd.String("config"))
	if err != nil {
		return err
	}
	defer log.Sync()

	prices, err := loadPrices(ctx, cfg, log)
	if err != nil {
		return err
	}

	st, err := store.NewStore(log)
	if err != nil {
		return err
	}
	defer st.Close()

	interval, err := marketdata.Interval(cfg.Timeframe)
	if err != nil {
		return err
	}

	renderer := report.NewRenderer(cfg.ResultsDir, log)

	r, err := runner.NewRunner(prices, portfolio.Config{
		InitCash:     cfg.InitialCash,
		FeeRate:      cfg.FeeRate,
		SlippageRate: cfg.SlippageRate,
	}, interval, st, renderer, cfg.ResultsDir, log)
	if err != nil {
		return err
	}

	outcomes := runner.NewSession(r, log).Run(ctx, cfg.Strategies)
	printOutcomes(outcomes)

	return nil
}

func downloadAction(ctx context.Context, cmd *cli.Command) error {
	cfg, log, err := setup(cmd.String("config"))
	if err != nil {
		return err
	}
	defer log.Sync()

	prices, err := loadPrices(ctx, cfg, log)
	if err != nil {
		return err
	}

	start, end := cfg.Window()
	fmt.Printf("Cached %d bars for %d assets (%s to %s)\n",
		prices.NumBars(), len(prices.Series),
		start.Format(time.RFC3339), end.Format(time.RFC3339))

	return nil
}

func setup(path string) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.NewLoggerWithLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	return cfg, log, nil
}

// loadPrices serves the price matrix from the parquet cache when possible,
// otherwise downloads it and fills the cache. Cache read failures are
// logged and treated as misses.
func loadPrices(ctx context.Context, cfg *config.Config, log *logger.Logger) (*types.PriceMatrix, error) {
	symbols, err := resolveUniverse(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	start, end := cfg.Window()
	dataCache := cache.NewCache(cfg.DataDir, log)
	key := cache.Key(symbols, start, end, cfg.Timeframe)

	prices, err := dataCache.Load(key)
	if err == nil {
		log.Info("using cached market data", zap.String("key", key))

		return prices, nil
	}

	if !errors.HasCode(err, errors.ErrCodeDataNotFound) {
		log.Warn("discarding unusable cache entry", zap.String("key", key), zap.Error(err))
	}

	src, err := newSource(cfg, log)
	if err != nil {
		return nil, err
	}

	prices, err = marketdata.BuildPriceMatrix(ctx, src, symbols, start, end, cfg.Timeframe, log)
	if err != nil {
		return nil, err
	}

	if err := dataCache.Save(key, prices); err != nil {
		log.Warn("failed to cache market data", zap.Error(err))
	}

	return prices, nil
}

func resolveUniverse(ctx context.Context, cfg *config.Config, log *logger.Logger) ([]string, error) {
	if len(cfg.Universe.Symbols) > 0 {
		return cfg.Universe.Symbols, nil
	}

	if cfg.Venue != "binance" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration,
			"top_pairs discovery requires the binance venue; list symbols explicitly")
	}

	pairs, err := marketdata.NewBinance(log).TopLiquidPairs(ctx, cfg.Universe.TopPairs)
	if err != nil {
		return nil, err
	}

	log.Info("selected universe", zap.Strings("symbols", pairs))

	return pairs, nil
}

func newSource(cfg *config.Config, log *logger.Logger) (marketdata.Source, error) {
	switch cfg.Venue {
	case "polygon":
		return marketdata.NewPolygon(cfg.PolygonKey, log)
	default:
		return marketdata.NewBinance(log), nil
	}
}

func printOutcomes(outcomes []runner.Outcome) {
	headers := append([]string{"Strategy"}, types.ScorecardColumns...)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Padding(0, 1)
			}

			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...)

	var failed []runner.Outcome

	for _, outcome := range outcomes {
		if outcome.Err != nil {
			failed = append(failed, outcome)

			continue
		}

		row := make([]string, 0, len(headers))
		row = append(row, outcome.Strategy)

		for _, v := range outcome.Card.Values() {
			row = append(row, formatValue(v))
		}

		t.Row(row...)
	}

	fmt.Println(t)

	for _, outcome := range failed {
		fmt.Printf("strategy %s failed: %v\n", outcome.Strategy, outcome.Err)
	}
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}

	if math.IsInf(v, 0) {
		return "inf"
	}

	return fmt.Sprintf("%.4f", v)
}
