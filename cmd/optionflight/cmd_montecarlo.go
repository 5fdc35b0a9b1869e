package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	simio "github.com/sawpanic/optionflight/internal/io"
	simlog "github.com/sawpanic/optionflight/internal/log"
)

func newMonteCarloCmd(opts *rootOptions) *cobra.Command {
	sf := newScenarioFlags("mc")
	var (
		runs    int
		workers int
	)

	cmd := &cobra.Command{
		Use:     "montecarlo",
		Aliases: []string{"mc"},
		Short:   "Run a batch of independently seeded scenarios",
		Long: `Run N scenarios in parallel, each seeded from --seed and its run index, and
report the breach rate, average max load and regime distribution.
The summary is written to <output-dir>/<name>_summary.json.

Examples:
  optionflight montecarlo --name mc_breakout --path-type breakout --runs 100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := *opts.cfg
			if cmd.Flags().Changed("runs") {
				cfg.Scenario.Runs = runs
			}
			if cmd.Flags().Changed("workers") {
				cfg.Scenario.Workers = workers
			}

			var progress io.Writer
			if simlog.IsTerminal(os.Stderr) {
				progress = os.Stderr
			}
			a, err := newApp(ctx, &cfg, progress)
			if err != nil {
				return err
			}
			defer a.Close()

			pathType, steps, seed := sf.resolve(cfg.Scenario)
			result, err := a.runner.RunMonteCarlo(ctx, sf.name, pathType, cfg.Scenario.Runs, steps, seed)
			if err != nil {
				return err
			}

			summaryPath := filepath.Join(cfg.OutputDir, sf.name+"_summary.json")
			if err := simio.WriteJSONAtomic(summaryPath, result); err != nil {
				return err
			}
			log.Info().Str("path", summaryPath).Msg("Summary saved")

			printMonteCarlo(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().AddFlagSet(sf.fs)
	cmd.Flags().IntVar(&runs, "runs", 10, "Number of runs")
	cmd.Flags().IntVar(&workers, "workers", 0, "Parallel workers (0 = GOMAXPROCS)")
	return cmd
}
