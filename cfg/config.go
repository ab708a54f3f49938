package cfg

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/cespare/xxhash/v2"
	"github.com/denisbrodbeck/machineid"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/maxpert/shapebench/variant"
)

// EngineConfiguration selects the embedded engine under test
type EngineConfiguration struct {
	Driver         string `toml:"driver" validate:"oneof=duckdb sqlite"`
	DSN            string `toml:"dsn"`                               // Empty means in-memory
	QueryTimeoutMS int    `toml:"query_timeout_ms" validate:"gte=0"` // 0 disables the per-call timeout
}

// DatasetConfiguration controls the generated table
type DatasetConfiguration struct {
	Table     string `toml:"table" validate:"required"`
	Rows      int    `toml:"rows" validate:"gte=0"`
	BatchSize int    `toml:"batch_size" validate:"gte=1"`
	Seed      int64  `toml:"seed"`
}

// BenchmarkConfiguration controls timed sampling
type BenchmarkConfiguration struct {
	Iterations int      `toml:"iterations" validate:"gte=1"`
	Warmup     int      `toml:"warmup" validate:"gte=0"`
	Baseline   string   `toml:"baseline" validate:"required"`
	Variants   []string `toml:"variants"` // Glob patterns, empty selects all
	States     []string `toml:"states" validate:"required,min=1,dive,required"`
	Years      []int    `toml:"years" validate:"required,min=1"`
	Features   []string `toml:"features" validate:"dive,oneof=any-array pushdown cte column-pruning join"`
}

// ValidationConfiguration controls the equivalence gate. The gate runs on
// its own small fixed filters, never on the benchmark filters.
type ValidationConfiguration struct {
	Enabled   bool     `toml:"enabled"`
	Tolerance float64  `toml:"tolerance" validate:"gte=0"`
	States    []string `toml:"states" validate:"required,min=1,dive,required"`
	Years     []int    `toml:"years" validate:"required,min=1"`
}

// RankConfiguration controls ordering and verdicts
type RankConfiguration struct {
	Statistic        string  `toml:"statistic" validate:"oneof=mean p50"`
	NoiseThresholdMS float64 `toml:"noise_threshold_ms" validate:"gt=0"`
	Alpha            float64 `toml:"alpha" validate:"gt=0,lt=1"`
}

// ReportConfiguration controls output rendering
type ReportConfiguration struct {
	Format  string `toml:"format" validate:"oneof=table markdown json"`
	ShowSQL bool   `toml:"show_sql"`
}

// LoggingConfiguration controls logging behavior
type LoggingConfiguration struct {
	Verbose bool   `toml:"verbose"`
	Format  string `toml:"format" validate:"oneof=console json"`
}

// PrometheusConfiguration for metrics and the status endpoint
type PrometheusConfiguration struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
	Port    int    `toml:"port"`
}

// Configuration is the main configuration structure
type Configuration struct {
	Engine     EngineConfiguration     `toml:"engine"`
	Dataset    DatasetConfiguration    `toml:"dataset"`
	Benchmark  BenchmarkConfiguration  `toml:"benchmark"`
	Validation ValidationConfiguration `toml:"validation"`
	Rank       RankConfiguration       `toml:"rank"`
	Report     ReportConfiguration     `toml:"report"`
	Logging    LoggingConfiguration    `toml:"logging"`
	Prometheus PrometheusConfiguration `toml:"prometheus"`
}

// Default returns a fresh default configuration
func Default() *Configuration {
	return &Configuration{
		Engine: EngineConfiguration{
			Driver:         "duckdb",
			DSN:            "",
			QueryTimeoutMS: 30000,
		},

		Dataset: DatasetConfiguration{
			Table:     variant.DefaultTable,
			Rows:      100000,
			BatchSize: 1000,
			Seed:      42,
		},

		Benchmark: BenchmarkConfiguration{
			Iterations: 10,
			Warmup:     1,
			Baseline:   variant.BaselineID,
			Variants:   []string{},
			States:     []string{"CA", "NY", "TX"},
			Years:      []int{2022, 2023},
			Features:   []string{},
		},

		Validation: ValidationConfiguration{
			Enabled:   true,
			Tolerance: 0.01,
			States:    []string{"CA", "WA"},
			Years:     []int{2021},
		},

		Rank: RankConfiguration{
			Statistic:        "mean",
			NoiseThresholdMS: 1.0,
			Alpha:            0.05,
		},

		Report: ReportConfiguration{
			Format:  "table",
			ShowSQL: false,
		},

		Logging: LoggingConfiguration{
			Verbose: false,
			Format:  "console",
		},

		Prometheus: PrometheusConfiguration{
			Enabled: false,
			Address: "127.0.0.1",
			Port:    9090,
		},
	}
}

// Default configuration
var Config = Default()

var validate = validator.New()

// Load decodes configPath into Config when the file exists. A missing file
// keeps the current values.
func Load(configPath string) error {
	if configPath == "" {
		return nil
	}

	if _, err := os.Stat(configPath); err != nil {
		log.Warn().Str("path", configPath).Msg("Config file not found, using defaults")
		return nil
	}

	log.Info().Str("path", configPath).Msg("Loading configuration")
	if _, err := toml.DecodeFile(configPath, Config); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	return nil
}

// Validate checks configuration for errors
func Validate() error {
	if err := validate.Struct(Config); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("invalid %s: %v does not satisfy %s", strings.ToLower(fe.Namespace()), fe.Value(), fe.Tag())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if !variant.ValidIdentifier(Config.Dataset.Table) {
		return fmt.Errorf("invalid dataset table name: %s", Config.Dataset.Table)
	}

	known := false
	for _, id := range variant.IDs() {
		if id == Config.Benchmark.Baseline {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown baseline variant: %s (known: %s)", Config.Benchmark.Baseline, strings.Join(variant.IDs(), ", "))
	}

	if Config.Prometheus.Enabled && (Config.Prometheus.Port < 1 || Config.Prometheus.Port > 65535) {
		return fmt.Errorf("invalid Prometheus port: %d", Config.Prometheus.Port)
	}

	return nil
}

// QueryTimeout returns the per-call timeout, zero when disabled
func (c *Configuration) QueryTimeout() time.Duration {
	return time.Duration(c.Engine.QueryTimeoutMS) * time.Millisecond
}

// BenchmarkParams returns the catalog parameters for timed runs
func (c *Configuration) BenchmarkParams() (variant.Params, error) {
	features, err := variant.ParseFeatures(c.Benchmark.Features)
	if err != nil {
		return variant.Params{}, err
	}
	return variant.Params{
		Table:    c.Dataset.Table,
		States:   c.Benchmark.States,
		Years:    c.Benchmark.Years,
		Features: features,
	}, nil
}

// ValidationParams returns the catalog parameters for the equivalence
// gate. Only the feature set is shared with the benchmark so the same
// variants are checked.
func (c *Configuration) ValidationParams() (variant.Params, error) {
	p, err := c.BenchmarkParams()
	if err != nil {
		return variant.Params{}, err
	}
	p.States = c.Validation.States
	p.Years = c.Validation.Years
	return p, nil
}

// HostIdentity describes the machine a run executed on: the hostname plus
// a stable hash of the machine id when one is available.
func HostIdentity() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	id, err := machineid.ProtectedID("shapebench")
	if err != nil {
		log.Debug().Err(err).Msg("Machine id unavailable")
		return hostname
	}

	return fmt.Sprintf("%s/%012x", hostname, xxhash.Sum64String(id)&0xffffffffffff)
}
