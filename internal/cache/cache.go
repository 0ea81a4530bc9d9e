// Package cache stores fetched price matrices as Parquet files so repeated
// backtests over the same window skip the exchange entirely.
package cache

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"

	"github.com/quantevo/pairbt/internal/logger"
	"github.com/quantevo/pairbt/internal/types"
	"github.com/quantevo/pairbt/pkg/errors"
)

// barRow is the on-disk Parquet schema. The matrix is flattened to one row
// per (symbol, timestamp).
type barRow struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"`
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    float64 `parquet:"volume"`
}

// Cache reads and writes price matrices under a data directory.
type Cache struct {
	dir    string
	logger *logger.Logger
}

// NewCache creates a cache rooted at dir.
func NewCache(dir string, log *logger.Logger) *Cache {
	return &Cache{dir: dir, logger: log}
}

// Key derives the cache file name for a download window. The symbol set is
// order-insensitive.
func Key(symbols []string, start, end time.Time, timeframe string) string {
	sorted := make([]string, len(symbols))
	copy(sorted, symbols)
	sort.Strings(sorted)

	h := fnv.New64a()
	h.Write([]byte(strings.Join(sorted, ",")))

	return fmt.Sprintf("%s_%d_%d_%x",
		timeframe, start.UTC().Unix(), end.UTC().Unix(), h.Sum64())
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".parquet")
}

// Save writes the matrix to the cache. The matrix must pass its own
// integrity check first so a corrupt matrix never reaches disk.
func (c *Cache) Save(key string, prices *types.PriceMatrix) error {
	if err := prices.CheckIntegrity(); err != nil {
		return err
	}

	rows := make([]barRow, 0, len(prices.Index)*len(prices.Series))

	for _, symbol := range prices.Assets() {
		for _, bar := range prices.Series[symbol] {
			rows = append(rows, barRow{
				Symbol:    symbol,
				Timestamp: bar.Time.UnixMilli(),
				Open:      bar.Open,
				High:      bar.High,
				Low:       bar.Low,
				Close:     bar.Close,
				Volume:    bar.Volume,
			})
		}
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to create cache directory", err)
	}

	path := c.path(key)
	if err := parquet.WriteFile(path, rows); err != nil {
		return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to write cache file", err)
	}

	c.logger.Debug("saved price matrix to cache",
		zap.String("path", path),
		zap.Int("rows", len(rows)),
	)

	return nil
}

// Load reads a matrix back from the cache. A missing file returns
// ErrCodeDataNotFound so callers can treat it as a miss; a file whose
// contents fail the integrity check returns ErrCodeDataIntegrity and must
// not be used.
func (c *Cache) Load(key string) (*types.PriceMatrix, error) {
	path := c.path(key)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "no cache entry for %s", key)
	}

	rows, err := parquet.ReadFile[barRow](path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCacheReadFailed, "failed to read cache file", err)
	}

	prices, err := rebuild(rows)
	if err != nil {
		return nil, err
	}

	if err := prices.CheckIntegrity(); err != nil {
		return nil, err
	}

	c.logger.Debug("loaded price matrix from cache",
		zap.String("path", path),
		zap.Int("bars", prices.NumBars()),
		zap.Int("assets", len(prices.Series)),
	)

	return prices, nil
}

// rebuild reassembles the flat rows into an aligned matrix. Every symbol
// must cover the exact same set of timestamps.
func rebuild(rows []barRow) (*types.PriceMatrix, error) {
	series := make(map[string][]types.Bar)
	stamps := make(map[int64]struct{})

	for _, row := range rows {
		stamps[row.Timestamp] = struct{}{}
		series[row.Symbol] = append(series[row.Symbol], types.Bar{
			Time:   time.UnixMilli(row.Timestamp).UTC(),
			Open:   row.Open,
			High:   row.High,
			Low:    row.Low,
			Close:  row.Close,
			Volume: row.Volume,
		})
	}

	index := make([]time.Time, 0, len(stamps))
	for ts := range stamps {
		index = append(index, time.UnixMilli(ts).UTC())
	}

	sort.Slice(index, func(i, j int) bool { return index[i].Before(index[j]) })

	for symbol, bars := range series {
		if len(bars) != len(index) {
			return nil, errors.Newf(errors.ErrCodeDataIntegrity,
				"cached symbol %s has %d bars, index has %d", symbol, len(bars), len(index))
		}

		sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
		series[symbol] = bars
	}

	return &types.PriceMatrix{Index: index, Series: series}, nil
}
