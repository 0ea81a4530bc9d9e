// Package store persists backtest runs in an in-memory DuckDB database and
// exports them as CSV files.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/quantevo/pairbt/internal/logger"
	"github.com/quantevo/pairbt/internal/metrics"
	"github.com/quantevo/pairbt/internal/types"
	"github.com/quantevo/pairbt/pkg/errors"
)

// Store keeps every trade and scorecard of a session queryable in DuckDB.
type Store struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewStore opens an in-memory DuckDB database and creates the run tables.
func NewStore(log *logger.Logger) (*Store, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to open database", err)
	}

	s := &Store{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := s.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return s, nil
}

func (s *Store) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			trade_id TEXT PRIMARY KEY,
			run_id TEXT,
			strategy_name TEXT,
			asset TEXT,
			entry_time TIMESTAMP,
			exit_time TIMESTAMP,
			entry_price DOUBLE,
			exit_price DOUBLE,
			quantity DOUBLE,
			realized_pnl DOUBLE,
			fees DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create trades table", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS scorecards (
			run_id TEXT PRIMARY KEY,
			strategy_name TEXT,
			total_return DOUBLE,
			sharpe_ratio DOUBLE,
			max_drawdown DOUBLE,
			win_rate DOUBLE,
			expectancy DOUBLE,
			exposure_time DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create scorecards table", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS asset_stats (
			run_id TEXT,
			strategy_name TEXT,
			asset TEXT,
			total_return DOUBLE,
			sharpe_ratio DOUBLE,
			max_drawdown DOUBLE,
			win_rate DOUBLE,
			expectancy DOUBLE,
			exposure DOUBLE,
			closed_trades INTEGER
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create asset_stats table", err)
	}

	return nil
}

// RecordRun inserts one strategy run and returns its run id. The scorecard
// row, the per-asset statistics, and every closed trade land in a single
// transaction.
func (s *Store) RecordRun(card types.Scorecard, perAsset []metrics.AssetStats, trades []types.TradeRecord) (string, error) {
	runID := uuid.New().String()

	tx, err := s.db.Begin()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeQueryFailed, "failed to begin transaction", err)
	}

	insertCard := s.sq.
		Insert("scorecards").
		Columns("run_id", "strategy_name", "total_return", "sharpe_ratio",
			"max_drawdown", "win_rate", "expectancy", "exposure_time").
		Values(runID, card.Strategy, card.TotalReturn, card.SharpeRatio,
			card.MaxDrawdown, card.WinRate, card.Expectancy, card.ExposureTime).
		RunWith(tx)
	if _, err := insertCard.Exec(); err != nil {
		tx.Rollback()

		return "", errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert scorecard", err)
	}

	for _, stats := range perAsset {
		insertStats := s.sq.
			Insert("asset_stats").
			Columns("run_id", "strategy_name", "asset", "total_return", "sharpe_ratio",
				"max_drawdown", "win_rate", "expectancy", "exposure", "closed_trades").
			Values(runID, card.Strategy, stats.Asset, stats.TotalReturn, stats.SharpeRatio,
				stats.MaxDrawdown, stats.WinRate, stats.Expectancy, stats.Exposure, stats.ClosedTrades).
			RunWith(tx)
		if _, err := insertStats.Exec(); err != nil {
			tx.Rollback()

			return "", errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert asset stats", err)
		}
	}

	for _, trade := range trades {
		insertTrade := s.sq.
			Insert("trades").
			Columns("trade_id", "run_id", "strategy_name", "asset", "entry_time",
				"exit_time", "entry_price", "exit_price", "quantity", "realized_pnl", "fees").
			Values(trade.ID, runID, card.Strategy, trade.Asset, trade.EntryTime,
				trade.ExitTime, trade.EntryPrice, trade.ExitPrice, trade.Quantity,
				trade.RealizedPnL, trade.Fees).
			RunWith(tx)
		if _, err := insertTrade.Exec(); err != nil {
			tx.Rollback()

			return "", errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert trade", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", errors.Wrap(errors.ErrCodeQueryFailed, "failed to commit run", err)
	}

	s.logger.Debug("recorded run",
		zap.String("run_id", runID),
		zap.String("strategy", card.Strategy),
		zap.Int("trades", len(trades)),
	)

	return runID, nil
}

// Trades returns the closed trades of one run ordered by asset then exit time.
func (s *Store) Trades(runID string) ([]types.TradeRecord, error) {
	selectQuery := s.sq.
		Select("trade_id", "asset", "entry_time", "exit_time",
			"entry_price", "exit_price", "quantity", "realized_pnl", "fees").
		From("trades").
		Where(squirrel.Eq{"run_id": runID}).
		OrderBy("asset ASC", "exit_time ASC").
		RunWith(s.db)

	rows, err := selectQuery.Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query trades", err)
	}
	defer rows.Close()

	var trades []types.TradeRecord

	for rows.Next() {
		var trade types.TradeRecord

		err := rows.Scan(
			&trade.ID,
			&trade.Asset,
			&trade.EntryTime,
			&trade.ExitTime,
			&trade.EntryPrice,
			&trade.ExitPrice,
			&trade.Quantity,
			&trade.RealizedPnL,
			&trade.Fees,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan trade", err)
		}

		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating trades", err)
	}

	return trades, nil
}

// Scorecard returns the scorecard of one run.
func (s *Store) Scorecard(runID string) (types.Scorecard, error) {
	selectQuery := s.sq.
		Select("strategy_name", "total_return", "sharpe_ratio",
			"max_drawdown", "win_rate", "expectancy", "exposure_time").
		From("scorecards").
		Where(squirrel.Eq{"run_id": runID}).
		RunWith(s.db)

	var card types.Scorecard

	err := selectQuery.QueryRow().Scan(
		&card.Strategy,
		&card.TotalReturn,
		&card.SharpeRatio,
		&card.MaxDrawdown,
		&card.WinRate,
		&card.Expectancy,
		&card.ExposureTime,
	)
	if err != nil {
		return types.Scorecard{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query scorecard", err)
	}

	return card, nil
}

// WriteResults exports one run as <strategy>_metrics.csv and
// <strategy>_trades.csv under dir.
func (s *Store) WriteResults(dir, runID, strategyName string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFail, "failed to create results directory", err)
	}

	// Squirrel has no COPY syntax, so raw SQL with an escaped path.
	metricsPath := filepath.Join(dir, strategyName+"_metrics.csv")
	copyMetrics := fmt.Sprintf(`COPY (
		SELECT
			total_return AS "Total Return",
			sharpe_ratio AS "Sharpe Ratio",
			max_drawdown AS "Max Drawdown",
			win_rate AS "Win Rate",
			expectancy AS "Expectancy",
			exposure_time AS "Exposure Time"
		FROM scorecards WHERE run_id = '%s'
	) TO '%s' (FORMAT CSV, HEADER)`, escapeLiteral(runID), escapeLiteral(metricsPath))

	if _, err := s.db.Exec(copyMetrics); err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFail, "failed to export metrics CSV", err)
	}

	tradesPath := filepath.Join(dir, strategyName+"_trades.csv")
	copyTrades := fmt.Sprintf(`COPY (
		SELECT asset, entry_time, exit_time, entry_price, exit_price,
			quantity, realized_pnl, fees
		FROM trades WHERE run_id = '%s'
		ORDER BY asset ASC, exit_time ASC
	) TO '%s' (FORMAT CSV, HEADER)`, escapeLiteral(runID), escapeLiteral(tradesPath))

	if _, err := s.db.Exec(copyTrades); err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFail, "failed to export trades CSV", err)
	}

	s.logger.Info("exported run results",
		zap.String("metrics", metricsPath),
		zap.String("trades", tradesPath),
	)

	return nil
}

// Cleanup drops and recreates the run tables.
func (s *Store) Cleanup() error {
	_, err := s.db.Exec(`
		DROP TABLE IF EXISTS trades;
		DROP TABLE IF EXISTS scorecards;
		DROP TABLE IF EXISTS asset_stats;
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to drop tables", err)
	}

	return s.initialize()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func escapeLiteral(v string) string {
	return strings.ReplaceAll(v, "'", "''")
}
