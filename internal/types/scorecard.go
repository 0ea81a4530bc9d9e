package types

// Scorecard is the aggregated metrics record for one strategy run. It is
// recomputed fresh on every run; the persisted CSV is the only long-lived
// artifact.
type Scorecard struct {
	Strategy     string  `yaml:"strategy"`
	TotalReturn  float64 `yaml:"total_return"`
	SharpeRatio  float64 `yaml:"sharpe_ratio"`
	MaxDrawdown  float64 `yaml:"max_drawdown"`
	WinRate      float64 `yaml:"win_rate"`
	Expectancy   float64 `yaml:"expectancy"`
	ExposureTime float64 `yaml:"exposure_time"`
}

// ScorecardColumns is the fixed header order for the persisted metrics row.
var ScorecardColumns = []string{
	"Total Return",
	"Sharpe Ratio",
	"Max Drawdown",
	"Win Rate",
	"Expectancy",
	"Exposure Time",
}

// Values returns the metric values in ScorecardColumns order.
func (s Scorecard) Values() []float64 {
	return []float64{
		s.TotalReturn,
		s.SharpeRatio,
		s.MaxDrawdown,
		s.WinRate,
		s.Expectancy,
		s.ExposureTime,
	}
}
