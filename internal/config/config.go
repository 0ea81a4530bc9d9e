// Package config parses and validates the backtest run configuration.
package config

import (
	"encoding/json"
	"os"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"

	"github.com/quantevo/pairbt/internal/strategy"
	"github.com/quantevo/pairbt/pkg/errors"
)

// defaultWindow is the lookback used when the configuration pins neither end
// of the backtest window.
const defaultWindow = 24 * time.Hour

// UniverseConfig selects the assets to backtest. An explicit symbol list
// wins; otherwise the top liquid BTC pairs are discovered at run time.
type UniverseConfig struct {
	Symbols  []string `yaml:"symbols" json:"symbols" jsonschema:"title=Symbols,description=Explicit list of trading pairs to backtest"`
	TopPairs int      `yaml:"top_pairs" json:"top_pairs" jsonschema:"title=Top Pairs,description=Number of most liquid BTC pairs to select when no symbols are given,minimum=0" validate:"gte=0"`
}

// Config is the full run configuration parsed from YAML.
type Config struct {
	InitialCash  float64                    `yaml:"initial_cash" json:"initial_cash" jsonschema:"title=Initial Cash,description=Starting cash per asset in quote currency,minimum=0" validate:"gt=0"`
	FeeRate      float64                    `yaml:"fee_rate" json:"fee_rate" jsonschema:"title=Fee Rate,description=Proportional fee charged on every fill,minimum=0,maximum=1" validate:"gte=0,lt=1"`
	SlippageRate float64                    `yaml:"slippage_rate" json:"slippage_rate" jsonschema:"title=Slippage Rate,description=Proportional slippage applied against every fill,minimum=0,maximum=1" validate:"gte=0,lt=1"`
	Timeframe    string                     `yaml:"timeframe" json:"timeframe" jsonschema:"title=Timeframe,description=Bar interval such as 1m or 1h" validate:"required"`
	Universe     UniverseConfig             `yaml:"universe" json:"universe"`
	Strategies   []strategy.Params          `yaml:"strategies" json:"strategies" jsonschema:"title=Strategies,description=Strategy configurations to run against the shared price matrix" validate:"min=1,dive"`
	StartTime    optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional start of the backtest window"`
	EndTime      optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional end of the backtest window"`
	DataDir      string                     `yaml:"data_dir" json:"data_dir" jsonschema:"title=Data Directory,description=Directory holding the parquet price cache"`
	ResultsDir   string                     `yaml:"results_dir" json:"results_dir" jsonschema:"title=Results Directory,description=Directory receiving CSV and HTML output"`
	LogLevel     string                     `yaml:"log_level" json:"log_level" jsonschema:"title=Log Level,description=Logging verbosity,enum=debug,enum=info,enum=warn,enum=error"`
	Venue        string                     `yaml:"venue" json:"venue" jsonschema:"title=Venue,description=Market data venue,enum=binance,enum=polygon" validate:"oneof=binance polygon"`
	PolygonKey   string                     `yaml:"polygon_key" json:"polygon_key" jsonschema:"title=Polygon API Key,description=Required when venue is polygon"`
}

// UnmarshalYAML maps the optional window bounds onto Option values.
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type plain struct {
		InitialCash  float64           `yaml:"initial_cash"`
		FeeRate      float64           `yaml:"fee_rate"`
		SlippageRate float64           `yaml:"slippage_rate"`
		Timeframe    string            `yaml:"timeframe"`
		Universe     UniverseConfig    `yaml:"universe"`
		Strategies   []strategy.Params `yaml:"strategies"`
		StartTime    *time.Time        `yaml:"start_time"`
		EndTime      *time.Time        `yaml:"end_time"`
		DataDir      string            `yaml:"data_dir"`
		ResultsDir   string            `yaml:"results_dir"`
		LogLevel     string            `yaml:"log_level"`
		Venue        string            `yaml:"venue"`
		PolygonKey   string            `yaml:"polygon_key"`
	}

	var p plain
	if err := unmarshal(&p); err != nil {
		return err
	}

	c.InitialCash = p.InitialCash
	c.FeeRate = p.FeeRate
	c.SlippageRate = p.SlippageRate
	c.Timeframe = p.Timeframe
	c.Universe = p.Universe
	c.Strategies = p.Strategies
	c.DataDir = p.DataDir
	c.ResultsDir = p.ResultsDir
	c.LogLevel = p.LogLevel
	c.Venue = p.Venue
	c.PolygonKey = p.PolygonKey

	if p.StartTime != nil {
		c.StartTime = optional.Some(*p.StartTime)
	}

	if p.EndTime != nil {
		c.EndTime = optional.Some(*p.EndTime)
	}

	return nil
}

var validate = validator.New()

// Load reads, defaults, and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err,
			"failed to read config file %s", path)
	}

	return Parse(raw)
}

// Parse parses and validates a YAML configuration document.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config YAML", err)
	}

	cfg.applyDefaults()

	if err := validate.Struct(&cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	if len(cfg.Universe.Symbols) == 0 && cfg.Universe.TopPairs == 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration,
			"universe selects no assets: set symbols or top_pairs")
	}

	if cfg.Venue == "polygon" && cfg.PolygonKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration,
			"polygon venue requires polygon_key")
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Timeframe == "" {
		c.Timeframe = "1m"
	}

	if c.DataDir == "" {
		c.DataDir = "data"
	}

	if c.ResultsDir == "" {
		c.ResultsDir = "results"
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.Venue == "" {
		c.Venue = "binance"
	}
}

// Window resolves the backtest window. A missing end defaults to now, a
// missing start to one day before the end. Both bounds are truncated to the
// minute so cache keys stay stable within a minute.
func (c *Config) Window() (time.Time, time.Time) {
	end := c.EndTime.TakeOr(time.Now().UTC()).UTC().Truncate(time.Minute)
	start := c.StartTime.TakeOr(end.Add(-defaultWindow)).UTC().Truncate(time.Minute)

	return start, end
}

// GenerateSchema reflects the configuration into a JSON schema for editor
// completion.
func (c *Config) GenerateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			if t.String() == "strategy.Kind" {
				return &jsonschema.Schema{
					Type: "string",
					Enum: []any{
						string(strategy.KindSMACross),
						string(strategy.KindRSIBB),
						string(strategy.KindVWAPReversion),
					},
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)
	schema.Title = "backtest-config"
	schema.Description = "Configuration schema for a backtest session"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema
}

// GenerateSchemaJSON renders the schema as indented JSON.
func (c *Config) GenerateSchemaJSON() (string, error) {
	schema := c.GenerateSchema()

	raw, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to marshal schema", err)
	}

	return string(raw), nil
}
