// Command shapebench benchmarks logically equivalent SQL formulations of
// one analytical query against an embedded engine.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/maxpert/shapebench/admin"
	"github.com/maxpert/shapebench/cfg"
	"github.com/maxpert/shapebench/report"
	"github.com/maxpert/shapebench/suite"
	"github.com/maxpert/shapebench/telemetry"
	"github.com/maxpert/shapebench/variant"
)

// Version is set at build time.
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("shapebench failed")
		stop()
		os.Exit(1)
	}
}

type overrides struct {
	configPath  string
	driver      string
	dsn         string
	rows        int
	iterations  int
	warmup      int
	baseline    string
	variants    []string
	states      []string
	years       []int
	features    []string
	format      string
	showSQL     bool
	noValidate  bool
	verbose     bool
	metricsPort int
}

func newRootCmd() *cobra.Command {
	o := &overrides{}

	root := &cobra.Command{
		Use:   "shapebench",
		Short: "Benchmark equivalent SQL query shapes against an embedded engine",
		Long: `shapebench renders one analytical query in several physical shapes
(IN-list vs ANY-array filters, predicate pushdown, CTEs, column pruning,
temp-table joins), proves they compute the same result and ranks them by
latency against a baseline.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setup(cmd, o)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&o.configPath, "config", "shapebench.toml", "Path to configuration file")
	flags.StringVar(&o.driver, "driver", "", "Engine driver: duckdb or sqlite (overrides config)")
	flags.StringVar(&o.dsn, "dsn", "", "Engine DSN, empty for in-memory (overrides config)")
	flags.IntVar(&o.rows, "rows", 0, "Rows to generate (overrides config)")
	flags.IntVar(&o.iterations, "iterations", 0, "Timed iterations per variant (overrides config)")
	flags.IntVar(&o.warmup, "warmup", 0, "Untimed warmup runs per variant (overrides config)")
	flags.StringVar(&o.baseline, "baseline", "", "Baseline variant id (overrides config)")
	flags.StringSliceVar(&o.variants, "variants", nil, "Variant id glob patterns, e.g. any_*,cte_pruned")
	flags.StringSliceVar(&o.states, "states", nil, "State filter values")
	flags.IntSliceVar(&o.years, "years", nil, "Year filter values")
	flags.StringSliceVar(&o.features, "features", nil, "Enabled rewrite features (any-array,pushdown,cte,column-pruning,join)")
	flags.StringVar(&o.format, "format", "", "Report format: table, markdown or json (overrides config)")
	flags.BoolVar(&o.showSQL, "show-sql", false, "Include statements in the report")
	flags.BoolVar(&o.noValidate, "no-validate", false, "Skip the equivalence gate")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "Debug logging")
	flags.IntVar(&o.metricsPort, "metrics-port", 0, "Serve /metrics, /status and /report on this port")

	root.AddCommand(newRunCmd(), newValidateCmd(), newVariantsCmd(), newVersionCmd())
	return root
}

// setup loads configuration, applies flag overrides, validates and
// configures logging and telemetry.
func setup(cmd *cobra.Command, o *overrides) error {
	if err := cfg.Load(o.configPath); err != nil {
		return err
	}
	applyOverrides(cmd, o)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	setupLogging()
	telemetry.InitializeTelemetry()
	return nil
}

func applyOverrides(cmd *cobra.Command, o *overrides) {
	flags := cmd.Flags()
	c := cfg.Config

	if flags.Changed("driver") {
		c.Engine.Driver = o.driver
	}
	if flags.Changed("dsn") {
		c.Engine.DSN = o.dsn
	}
	if flags.Changed("rows") {
		c.Dataset.Rows = o.rows
	}
	if flags.Changed("iterations") {
		c.Benchmark.Iterations = o.iterations
	}
	if flags.Changed("warmup") {
		c.Benchmark.Warmup = o.warmup
	}
	if flags.Changed("baseline") {
		c.Benchmark.Baseline = o.baseline
	}
	if flags.Changed("variants") {
		c.Benchmark.Variants = o.variants
	}
	if flags.Changed("states") {
		c.Benchmark.States = o.states
	}
	if flags.Changed("years") {
		c.Benchmark.Years = o.years
	}
	if flags.Changed("features") {
		c.Benchmark.Features = o.features
	}
	if flags.Changed("format") {
		c.Report.Format = o.format
	}
	if flags.Changed("show-sql") {
		c.Report.ShowSQL = o.showSQL
	}
	if o.noValidate {
		c.Validation.Enabled = false
	}
	if o.verbose {
		c.Logging.Verbose = true
	}
	if flags.Changed("metrics-port") {
		c.Prometheus.Enabled = true
		c.Prometheus.Port = o.metricsPort
	}
}

func setupLogging() {
	var writer io.Writer = zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stderr
		w.NoColor = !isatty.IsTerminal(os.Stderr.Fd())
	})
	if cfg.Config.Logging.Format == "json" {
		writer = os.Stderr
	}
	gLog := zerolog.New(writer).
		With().
		Timestamp().
		Str("engine", cfg.Config.Engine.Driver).
		Logger()

	if cfg.Config.Logging.Verbose {
		log.Logger = gLog.Level(zerolog.DebugLevel)
	} else {
		log.Logger = gLog.Level(zerolog.InfoLevel)
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Load the dataset, validate every variant and time them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			format, err := report.ParseFormat(cfg.Config.Report.Format)
			if err != nil {
				return err
			}

			bc, err := suite.Open(ctx, cfg.Config)
			if err != nil {
				return err
			}
			defer bc.Close()

			if cfg.Config.Prometheus.Enabled {
				srv, err := admin.Start(cfg.Config.Prometheus.Address, cfg.Config.Prometheus.Port,
					admin.NewRouter(admin.NewStatusHandlers(bc.Status())))
				if err != nil {
					return err
				}
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := srv.Stop(shutdownCtx); err != nil {
						log.Warn().Err(err).Msg("Status server shutdown failed")
					}
				}()
			}

			rep, err := bc.Run(ctx)
			if err != nil {
				return err
			}
			return report.Write(cmd.OutOrStdout(), format, rep)
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that every selected variant computes the baseline result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			bc, err := suite.Open(ctx, cfg.Config)
			if err != nil {
				return err
			}
			defer bc.Close()

			records, warnings, err := bc.Validate(ctx)
			if len(records) > 0 {
				if cfg.Config.Report.Format == string(report.FormatJSON) {
					if werr := report.JSON(cmd.OutOrStdout(), &report.BenchmarkReport{
						RunID:      bc.RunID(),
						BaselineID: cfg.Config.Benchmark.Baseline,
						Engine:     cfg.Config.Engine.Driver,
						Validation: records,
						Warnings:   warnings,
					}); werr != nil {
						return werr
					}
				} else {
					report.ConsoleValidation(cmd.OutOrStdout(), records, warnings)
				}
			}
			return err
		},
	}
}

func newVariantsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "variants",
		Short: "List the selected catalog without touching the engine",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dialect, err := variant.ParseDialect(cfg.Config.Engine.Driver)
			if err != nil {
				return err
			}
			catalog, err := variant.NewCatalog(dialect)
			if err != nil {
				return err
			}
			params, err := cfg.Config.BenchmarkParams()
			if err != nil {
				return err
			}
			all, err := catalog.Generate(params)
			if err != nil {
				return err
			}
			selected, err := variant.Select(all, cfg.Config.Benchmark.Variants, cfg.Config.Benchmark.Baseline)
			if err != nil {
				return err
			}
			return printVariants(cmd.OutOrStdout(), selected, cfg.Config.Report.ShowSQL)
		},
	}
}

func printVariants(w io.Writer, variants []variant.QueryVariant, showSQL bool) error {
	re := lipgloss.NewRenderer(w)
	rows := make([][]string, 0, len(variants))
	for _, v := range variants {
		opts := "-"
		if len(v.Optimizations) > 0 {
			opts = fmt.Sprint(v.Optimizations)
		}
		rows = append(rows, []string{v.ID, v.Name, opts, fmt.Sprintf("%d", len(v.Statements)), v.Description})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("ID", "Name", "Optimizations", "Statements", "Description").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return re.NewStyle().Bold(true).Padding(0, 1)
			}
			return re.NewStyle().Padding(0, 1)
		})
	fmt.Fprintln(w, t.String())
	fmt.Fprintf(w, "fingerprint %s\n", variant.Fingerprint(variants))

	if showSQL {
		for _, v := range variants {
			fmt.Fprintf(w, "\n-- %s\n", v.ID)
			for _, stmt := range v.Statements {
				fmt.Fprintf(w, "%s;\n", stmt)
			}
		}
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		// Replaces the root hook so printing the version never loads config.
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "shapebench %s\n", Version)
		},
	}
}
