// Package marketdata fetches historical candles from exchanges and aligns
// them into the price matrix the backtest consumes.
package marketdata

import (
	"context"
	"strconv"
	"time"

	"github.com/quantevo/pairbt/internal/types"
	"github.com/quantevo/pairbt/pkg/errors"
)

// Source fetches historical bars for one symbol. Implementations must return
// bars with strictly increasing timestamps.
type Source interface {
	Fetch(ctx context.Context, symbol string, start, end time.Time, timeframe string) ([]types.Bar, error)
}

// Interval converts a timeframe string such as "1m", "15m", "1h" or "1d"
// into its bar duration.
func Interval(timeframe string) (time.Duration, error) {
	if len(timeframe) < 2 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "invalid timeframe %q", timeframe)
	}

	value, err := strconv.Atoi(timeframe[:len(timeframe)-1])
	if err != nil || value <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "invalid timeframe %q", timeframe)
	}

	switch timeframe[len(timeframe)-1] {
	case 'm':
		return time.Duration(value) * time.Minute, nil
	case 'h':
		return time.Duration(value) * time.Hour, nil
	case 'd':
		return time.Duration(value) * 24 * time.Hour, nil
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "invalid timeframe %q", timeframe)
	}
}

// dedupeMonotonic drops bars whose timestamp does not advance past the
// previous bar. Exchange pagination can hand back overlapping pages.
func dedupeMonotonic(bars []types.Bar) []types.Bar {
	out := bars[:0]

	for _, bar := range bars {
		if len(out) > 0 && !bar.Time.After(out[len(out)-1].Time) {
			continue
		}

		out = append(out, bar)
	}

	return out
}
