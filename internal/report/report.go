// Package report renders static HTML pages per strategy run: an inline SVG
// equity curve and a per-asset return heatmap.
package report

import (
	_ "embed"
	"fmt"
	"html/template"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/quantevo/pairbt/internal/logger"
	"github.com/quantevo/pairbt/internal/metrics"
	"github.com/quantevo/pairbt/internal/portfolio"
	"github.com/quantevo/pairbt/internal/types"
	"github.com/quantevo/pairbt/pkg/errors"
)

//go:embed equity_curve.gohtml
var equityTemplate string

//go:embed heatmap.gohtml
var heatmapTemplate string

const (
	chartWidth  = 800
	chartHeight = 300

	// More points than horizontal pixels adds nothing.
	maxChartPoints = chartWidth
)

// Renderer writes strategy reports under <dir>/html.
type Renderer struct {
	dir     string
	equity  *template.Template
	heatmap *template.Template
	logger  *logger.Logger
}

// NewRenderer creates a renderer rooted at the results directory.
func NewRenderer(dir string, log *logger.Logger) *Renderer {
	return &Renderer{
		dir:     dir,
		equity:  template.Must(template.New("equity").Parse(equityTemplate)),
		heatmap: template.Must(template.New("heatmap").Parse(heatmapTemplate)),
		logger:  log,
	}
}

type metricRow struct {
	Name  string
	Value string
}

type heatCell struct {
	Asset  string
	Return string
	Color  string
}

type equityPage struct {
	Strategy  string
	Generated string
	Metrics   []metricRow
	Points    string
	Width     int
	Height    int
	StartTime string
	EndTime   string
	MinEquity string
	MaxEquity string
}

type heatmapPage struct {
	Strategy  string
	Generated string
	Cells     []heatCell
}

// Render writes <dir>/html/<strategy>_equity_curve.html and
// <dir>/html/<strategy>_heatmap.html. Failures return
// ErrCodeRenderingFailure; callers log and move on, a lost report never
// invalidates the scorecard.
func (r *Renderer) Render(card types.Scorecard, perAsset []metrics.AssetStats, index []time.Time, result *portfolio.Result) error {
	htmlDir := filepath.Join(r.dir, "html")
	if err := os.MkdirAll(htmlDir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeRenderingFailure, "failed to create report directory", err)
	}

	generated := time.Now().UTC().Format(time.RFC3339)
	equity := combinedEquity(result, len(index))

	curve := equityPage{
		Strategy:  card.Strategy,
		Generated: generated,
		Metrics:   metricRows(card),
		Points:    polylinePoints(equity),
		Width:     chartWidth,
		Height:    chartHeight,
	}

	if len(index) > 0 {
		curve.StartTime = index[0].Format("2006-01-02 15:04")
		curve.EndTime = index[len(index)-1].Format("2006-01-02 15:04")
	}

	if len(equity) > 0 {
		lo, hi := bounds(equity)
		curve.MinEquity = fmt.Sprintf("%.2f", lo)
		curve.MaxEquity = fmt.Sprintf("%.2f", hi)
	}

	curvePath := filepath.Join(htmlDir, card.Strategy+"_equity_curve.html")
	if err := r.writePage(r.equity, curvePath, curve); err != nil {
		return err
	}

	heat := heatmapPage{
		Strategy:  card.Strategy,
		Generated: generated,
		Cells:     heatmapCells(perAsset),
	}

	heatPath := filepath.Join(htmlDir, card.Strategy+"_heatmap.html")
	if err := r.writePage(r.heatmap, heatPath, heat); err != nil {
		return err
	}

	r.logger.Info("wrote strategy reports",
		zap.String("equity_curve", curvePath),
		zap.String("heatmap", heatPath),
	)

	return nil
}

func (r *Renderer) writePage(tmpl *template.Template, path string, data any) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeRenderingFailure, "failed to create report file", err)
	}
	defer file.Close()

	if err := tmpl.Execute(file, data); err != nil {
		return errors.Wrap(errors.ErrCodeRenderingFailure, "failed to execute report template", err)
	}

	return nil
}

// combinedEquity sums the per-asset equity columns into one portfolio curve.
func combinedEquity(result *portfolio.Result, numBars int) []float64 {
	equity := make([]float64, numBars)

	for _, column := range result.Equity {
		for i, v := range column {
			if i < numBars {
				equity[i] += v
			}
		}
	}

	return equity
}

func metricRows(card types.Scorecard) []metricRow {
	values := card.Values()
	rows := make([]metricRow, len(types.ScorecardColumns))

	for i, name := range types.ScorecardColumns {
		rows[i] = metricRow{Name: name, Value: formatMetric(values[i])}
	}

	return rows
}

func formatMetric(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}

	if math.IsInf(v, 0) {
		return "inf"
	}

	return fmt.Sprintf("%.4f", v)
}

// polylinePoints maps the equity curve into SVG coordinates, downsampled to
// the chart width.
func polylinePoints(equity []float64) string {
	if len(equity) < 2 {
		return ""
	}

	sampled := downsample(equity, maxChartPoints)
	lo, hi := bounds(sampled)

	span := hi - lo
	if span == 0 {
		span = 1
	}

	var b strings.Builder

	for i, v := range sampled {
		x := float64(i) / float64(len(sampled)-1) * chartWidth
		y := chartHeight - (v-lo)/span*chartHeight

		if i > 0 {
			b.WriteByte(' ')
		}

		fmt.Fprintf(&b, "%.1f,%.1f", x, y)
	}

	return b.String()
}

func downsample(values []float64, limit int) []float64 {
	if len(values) <= limit {
		return values
	}

	sampled := make([]float64, limit)
	for i := range sampled {
		sampled[i] = values[i*(len(values)-1)/(limit-1)]
	}

	return sampled
}

func bounds(values []float64) (float64, float64) {
	lo, hi := values[0], values[0]

	for _, v := range values {
		if v < lo {
			lo = v
		}

		if v > hi {
			hi = v
		}
	}

	return lo, hi
}

// heatmapCells colors each asset by its total return: losses fade to red,
// gains to green, saturating at +/-10%.
func heatmapCells(perAsset []metrics.AssetStats) []heatCell {
	cells := make([]heatCell, len(perAsset))

	for i, stats := range perAsset {
		cells[i] = heatCell{
			Asset:  stats.Asset,
			Return: fmt.Sprintf("%+.2f%%", stats.TotalReturn*100),
			Color:  returnColor(stats.TotalReturn),
		}
	}

	return cells
}

func returnColor(ret float64) string {
	const saturation = 0.10

	intensity := math.Abs(ret) / saturation
	if intensity > 1 {
		intensity = 1
	}

	shade := 255 - int(intensity*155)

	if ret >= 0 {
		return fmt.Sprintf("#%02xff%02x", shade, shade)
	}

	return fmt.Sprintf("#ff%02x%02x", shade, shade)
}
