package marketdata

import (
	"context"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"go.uber.org/zap"

	"github.com/quantevo/pairbt/internal/logger"
	"github.com/quantevo/pairbt/internal/types"
	"github.com/quantevo/pairbt/pkg/errors"
)

const polygonPageLimit = 50000

// Polygon fetches aggregate bars from the Polygon REST API. Used as an
// alternate venue for symbols Binance does not list.
type Polygon struct {
	client *polygon.Client
	logger *logger.Logger
}

// NewPolygon creates a Polygon source with the given API key.
func NewPolygon(apiKey string, log *logger.Logger) (*Polygon, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "polygon API key is empty")
	}

	return &Polygon{
		client: polygon.New(apiKey),
		logger: log,
	}, nil
}

// Fetch downloads aggregate bars for the window. The client iterator handles
// pagination internally.
func (p *Polygon) Fetch(ctx context.Context, symbol string, start, end time.Time, timeframe string) ([]types.Bar, error) {
	multiplier, timespan, err := polygonTimeframe(timeframe)
	if err != nil {
		return nil, err
	}

	params := models.ListAggsParams{
		Ticker:     symbol,
		From:       models.Millis(start),
		To:         models.Millis(end),
		Multiplier: multiplier,
		Timespan:   timespan,
	}.WithOrder(models.Asc).WithLimit(polygonPageLimit)

	iter := p.client.ListAggs(ctx, params)

	var bars []types.Bar

	for iter.Next() {
		agg := iter.Item()
		bars = append(bars, types.Bar{
			Time:   time.Time(agg.Timestamp).UTC(),
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		})
	}

	if err := iter.Err(); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeFetchFailed, err,
			"failed to fetch aggregates for %s", symbol)
	}

	bars = dedupeMonotonic(bars)

	p.logger.Debug("fetched aggregates",
		zap.String("symbol", symbol),
		zap.Int("bars", len(bars)),
	)

	return bars, nil
}

func polygonTimeframe(timeframe string) (int, models.Timespan, error) {
	interval, err := Interval(timeframe)
	if err != nil {
		return 0, "", err
	}

	switch {
	case interval%(24*time.Hour) == 0:
		return int(interval / (24 * time.Hour)), models.Day, nil
	case interval%time.Hour == 0:
		return int(interval / time.Hour), models.Hour, nil
	default:
		return int(interval / time.Minute), models.Minute, nil
	}
}
