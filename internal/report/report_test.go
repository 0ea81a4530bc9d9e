package report

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantevo/pairbt/internal/logger"
	"github.com/quantevo/pairbt/internal/metrics"
	"github.com/quantevo/pairbt/internal/portfolio"
	"github.com/quantevo/pairbt/internal/types"
)

func TestRenderWritesReport(t *testing.T) {
	dir := t.TempDir()
	renderer := NewRenderer(dir, logger.NewNopLogger())

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	index := []time.Time{start, start.Add(time.Minute), start.Add(2 * time.Minute)}

	result := &portfolio.Result{
		Equity: map[string][]float64{
			"ETHBTC": {10000, 10100, 10200},
			"ADABTC": {10000, 9900, 9800},
		},
	}

	card := types.Scorecard{Strategy: "sma_cross", TotalReturn: 0.02, SharpeRatio: 1.1}
	perAsset := []metrics.AssetStats{
		{Asset: "ETHBTC", TotalReturn: 0.02},
		{Asset: "ADABTC", TotalReturn: -0.02},
	}

	require.NoError(t, renderer.Render(card, perAsset, index, result))

	raw, err := os.ReadFile(filepath.Join(dir, "html", "sma_cross_equity_curve.html"))
	require.NoError(t, err)

	curve := string(raw)
	assert.Contains(t, curve, "sma_cross")
	assert.Contains(t, curve, "<svg")
	assert.Contains(t, curve, "polyline")
	assert.Contains(t, curve, "Total Return")

	raw, err = os.ReadFile(filepath.Join(dir, "html", "sma_cross_heatmap.html"))
	require.NoError(t, err)

	heatmap := string(raw)
	assert.Contains(t, heatmap, "ETHBTC")
	assert.Contains(t, heatmap, "ADABTC")
	assert.Contains(t, heatmap, "+2.00%")
}

func TestRenderHandlesNonFiniteMetrics(t *testing.T) {
	dir := t.TempDir()
	renderer := NewRenderer(dir, logger.NewNopLogger())

	card := types.Scorecard{Strategy: "degenerate", SharpeRatio: math.Inf(1), WinRate: math.NaN()}

	require.NoError(t, renderer.Render(card, nil, nil, &portfolio.Result{}))

	raw, err := os.ReadFile(filepath.Join(dir, "html", "degenerate_equity_curve.html"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "inf")
	assert.Contains(t, string(raw), "n/a")
}

func TestPolylinePointsStaysInChartBounds(t *testing.T) {
	equity := []float64{10000, 10500, 9000, 12000, 11000}

	points := polylinePoints(equity)
	require.NotEmpty(t, points)

	for _, pair := range strings.Fields(points) {
		parts := strings.SplitN(pair, ",", 2)
		require.Len(t, parts, 2)

		x, err := strconv.ParseFloat(parts[0], 64)
		require.NoError(t, err)

		y, err := strconv.ParseFloat(parts[1], 64)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, x, 0.0)
		assert.LessOrEqual(t, x, float64(chartWidth))
		assert.GreaterOrEqual(t, y, 0.0)
		assert.LessOrEqual(t, y, float64(chartHeight))
	}
}

func TestDownsampleKeepsEndpoints(t *testing.T) {
	values := make([]float64, 5000)
	for i := range values {
		values[i] = float64(i)
	}

	sampled := downsample(values, maxChartPoints)
	require.Len(t, sampled, maxChartPoints)
	assert.Equal(t, values[0], sampled[0])
	assert.Equal(t, values[len(values)-1], sampled[len(sampled)-1])
}

func TestReturnColor(t *testing.T) {
	assert.Equal(t, "#ffffff", returnColor(0))
	assert.Equal(t, "#64ff64", returnColor(0.10))
	assert.Equal(t, "#ff6464", returnColor(-0.25))
}
