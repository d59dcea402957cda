package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/FACorreiaa/sales-insights/internal/domain/analysis/service"
	"github.com/FACorreiaa/sales-insights/pkg/config"
	"github.com/FACorreiaa/sales-insights/pkg/observability"
)

var (
	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string

	// Loaded configuration and logger
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "salesdash",
	Short: "Explore sales spreadsheets: metrics, trends, PCA and clusters",
	Long: `salesdash reads a sales file (CSV with any delimiter, Excel, Parquet or PDF tables),
checks the required columns and prints executive metrics, monthly series, category
aggregates, descriptive statistics, PCA and K-Means results. "salesdash serve" exposes
the same analysis over HTTP.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./salesdash.yaml when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: json or text (overrides config)")

	rootCmd.AddCommand(
		summaryCmd,
		describeCmd,
		pcaCmd,
		kmeansCmd,
		sheetsCmd,
		exportCmd,
		sampleCmd,
		serveCmd,
	)
}

// setup loads configuration and builds the logger before any subcommand runs.
func setup(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	f := cmd.Flags()
	if f.Changed("log-level") {
		c.Logger.Level = logLevel
	}
	if f.Changed("log-format") {
		c.Logger.Format = logFormat
	}
	if err := c.Validate(); err != nil {
		return err
	}

	cfg = c
	// Logs go to stderr so tables and exports on stdout stay clean.
	logger = observability.NewLoggerTo(cmd.ErrOrStderr(), cfg.Logger)
	slog.SetDefault(logger)
	return nil
}

// newAnalysisService builds the uncached pipeline used by one-shot commands.
func newAnalysisService() *service.AnalysisService {
	return service.NewAnalysisService(observability.NewMetrics(), logger).
		WithSample(cfg.Analysis.SampleRows, cfg.Analysis.SampleSeed)
}
