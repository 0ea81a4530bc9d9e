package marketdata

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/quantevo/pairbt/internal/logger"
	"github.com/quantevo/pairbt/internal/types"
	"github.com/quantevo/pairbt/pkg/errors"
)

const (
	// Binance returns at most 1000 klines per request.
	binancePageLimit = 1000

	// Spot API weight budget, kept well under the documented limit.
	binanceRequestsPerSecond = 10

	fetchRetries = 3
)

// Binance fetches klines from the Binance spot API. Public market data needs
// no credentials.
type Binance struct {
	client  *binance.Client
	limiter *rate.Limiter
	logger  *logger.Logger
}

// NewBinance creates an unauthenticated Binance source.
func NewBinance(log *logger.Logger) *Binance {
	return &Binance{
		client:  binance.NewClient("", ""),
		limiter: rate.NewLimiter(rate.Limit(binanceRequestsPerSecond), 1),
		logger:  log,
	}
}

// Fetch downloads klines for the window, paginating past the per-request
// limit. Each page is retried with exponential backoff before the fetch is
// abandoned.
func (b *Binance) Fetch(ctx context.Context, symbol string, start, end time.Time, timeframe string) ([]types.Bar, error) {
	if _, err := Interval(timeframe); err != nil {
		return nil, err
	}

	endMillis := end.UnixMilli()
	currentStart := start.UnixMilli()

	var bars []types.Bar

	for {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(errors.ErrCodeFetchFailed, "rate limiter interrupted", err)
		}

		var klines []*binance.Kline

		operation := func() error {
			var err error

			klines, err = b.client.NewKlinesService().
				Symbol(symbol).
				Interval(timeframe).
				StartTime(currentStart).
				EndTime(endMillis).
				Limit(binancePageLimit).
				Do(ctx)

			return err
		}

		policy := backoff.WithContext(
			backoff.WithMaxRetries(backoff.NewExponentialBackOff(), fetchRetries), ctx)
		if err := backoff.Retry(operation, policy); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeFetchFailed, err,
				"failed to fetch klines for %s", symbol)
		}

		for _, k := range klines {
			bars = append(bars, types.Bar{
				Time:   time.UnixMilli(k.OpenTime).UTC(),
				Open:   parsePrice(k.Open),
				High:   parsePrice(k.High),
				Low:    parsePrice(k.Low),
				Close:  parsePrice(k.Close),
				Volume: parsePrice(k.Volume),
			})
		}

		if len(klines) < binancePageLimit {
			break
		}

		// Close time + 1ms avoids refetching the last bar.
		currentStart = klines[len(klines)-1].CloseTime + 1
		if currentStart >= endMillis {
			break
		}
	}

	bars = dedupeMonotonic(bars)

	b.logger.Debug("fetched klines",
		zap.String("symbol", symbol),
		zap.Int("bars", len(bars)),
	)

	return bars, nil
}

// TopLiquidPairs returns the n BTC-quoted symbols with the highest 24h quote
// volume.
func (b *Binance) TopLiquidPairs(ctx context.Context, n int) ([]string, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFetchFailed, "rate limiter interrupted", err)
	}

	stats, err := b.client.NewListPriceChangeStatsService().Do(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFetchFailed, "failed to fetch 24h ticker stats", err)
	}

	pairs := make([]tickerVolume, 0, len(stats))
	for _, s := range stats {
		pairs = append(pairs, tickerVolume{Symbol: s.Symbol, QuoteVolume: parsePrice(s.QuoteVolume)})
	}

	return rankByQuoteVolume(pairs, "BTC", n), nil
}

type tickerVolume struct {
	Symbol      string
	QuoteVolume float64
}

// rankByQuoteVolume filters tickers down to the given quote asset and
// returns the n most traded symbols, most liquid first.
func rankByQuoteVolume(tickers []tickerVolume, quote string, n int) []string {
	filtered := make([]tickerVolume, 0, len(tickers))

	for _, t := range tickers {
		if strings.HasSuffix(t.Symbol, quote) && t.QuoteVolume > 0 {
			filtered = append(filtered, t)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].QuoteVolume != filtered[j].QuoteVolume {
			return filtered[i].QuoteVolume > filtered[j].QuoteVolume
		}

		return filtered[i].Symbol < filtered[j].Symbol
	})

	if n > len(filtered) {
		n = len(filtered)
	}

	symbols := make([]string, 0, n)
	for _, t := range filtered[:n] {
		symbols = append(symbols, t.Symbol)
	}

	return symbols
}

func parsePrice(v string) float64 {
	f, _ := strconv.ParseFloat(v, 64)

	return f
}
