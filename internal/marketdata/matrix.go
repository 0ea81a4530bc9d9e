package marketdata

import (
	"context"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/quantevo/pairbt/internal/logger"
	"github.com/quantevo/pairbt/internal/types"
)

// BuildPriceMatrix downloads every symbol over the window and aligns the
// bars onto a single complete time index. Timestamps a venue never returned
// stay as zero-valued sentinel bars, which the simulator treats as
// untradeable.
func BuildPriceMatrix(ctx context.Context, src Source, symbols []string, start, end time.Time, timeframe string, log *logger.Logger) (*types.PriceMatrix, error) {
	step, err := Interval(timeframe)
	if err != nil {
		return nil, err
	}

	index := alignedIndex(start, end, step)
	series := make(map[string][]types.Bar, len(symbols))

	bar := progressbar.Default(int64(len(symbols)), "downloading")

	for _, symbol := range symbols {
		fetched, err := src.Fetch(ctx, symbol, start, end, timeframe)
		if err != nil {
			return nil, err
		}

		series[symbol] = align(index, fetched)

		bar.Add(1)
	}

	log.Info("built price matrix",
		zap.Int("assets", len(symbols)),
		zap.Int("bars", len(index)),
	)

	return types.NewPriceMatrix(index, series), nil
}

// alignedIndex returns every bar timestamp in [start, end) at the given
// step, truncated to step boundaries.
func alignedIndex(start, end time.Time, step time.Duration) []time.Time {
	start = start.UTC().Truncate(step)
	end = end.UTC()

	var index []time.Time
	for ts := start; ts.Before(end); ts = ts.Add(step) {
		index = append(index, ts)
	}

	return index
}

// align places fetched bars onto the index. Missing timestamps become
// sentinel bars carrying only the index time.
func align(index []time.Time, bars []types.Bar) []types.Bar {
	byTime := make(map[int64]types.Bar, len(bars))
	for _, b := range bars {
		byTime[b.Time.UnixMilli()] = b
	}

	aligned := make([]types.Bar, len(index))

	for i, ts := range index {
		if b, ok := byTime[ts.UnixMilli()]; ok {
			b.Time = ts
			aligned[i] = b

			continue
		}

		aligned[i] = types.Bar{Time: ts}
	}

	return aligned
}
