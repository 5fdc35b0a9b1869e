package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/optionflight/internal/config"
	simlog "github.com/sawpanic/optionflight/internal/log"
)

const (
	appName = "optionflight"
	version = "v0.4.0"
)

// rootOptions carries the persistent flags and the loaded configuration
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	outputDir  string

	cfg *config.Config
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339

	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Options flight-envelope simulator",
		Version: version,
		Long: `optionflight simulates spot and implied-volatility paths against an options
"flight envelope" (pivot, walls and volatility unit), scores every step into
telemetry records, and aggregates Monte Carlo batches.

Configuration is read from --config (YAML) and OPTIONFLIGHT_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to YAML configuration file")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (trace|debug|info|warn|error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format (auto|console|json)")
	flags.StringVar(&opts.outputDir, "output-dir", "", "Directory for logs, viewers and summaries")

	rootCmd.AddCommand(
		newRunCmd(opts),
		newMonteCarloCmd(opts),
		newRenderCmd(opts),
		newExportCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

// load reads configuration and applies flag overrides on top of it
func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Logging.Format = o.logFormat
	}
	if cmd.Flags().Changed("output-dir") {
		cfg.OutputDir = o.outputDir
	}

	if err := simlog.Setup(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	o.cfg = cfg
	log.Debug().
		Str("config", o.configPath).
		Str("output_dir", cfg.OutputDir).
		Bool("database", cfg.Database.Enabled).
		Msg("Configuration loaded")
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", appName, version)
		},
	}
}
