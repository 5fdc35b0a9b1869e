package main

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	simio "github.com/sawpanic/optionflight/internal/io"
	"github.com/sawpanic/optionflight/internal/persistence"
	"github.com/sawpanic/optionflight/internal/persistence/file"
	"github.com/sawpanic/optionflight/internal/scenario"
)

// bundledScenarios is the reference set run by `run --all`
var bundledScenarios = []struct {
	name     string
	pathType string
}{
	{"mean_revert_test", scenario.PathMeanRevert},
	{"breakout_test", scenario.PathBreakout},
	{"false_breakout_test", scenario.PathFalseBreakout},
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	sf := newScenarioFlags("scenario")
	var (
		all      bool
		noRender bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single scenario and save its telemetry log",
		Long: `Generate a spot/IV path, score every step against the envelope and save the
telemetry as JSONL (plus an HTML viewer unless --no-render).

Examples:
  optionflight run --name breakout_test --path-type breakout
  optionflight run --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts.cfg, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			pathType, steps, seed := sf.resolve(opts.cfg.Scenario)
			jobs := []struct{ name, pathType string }{{sf.name, pathType}}
			if all {
				jobs = jobs[:0]
				for _, s := range bundledScenarios {
					jobs = append(jobs, struct{ name, pathType string }{s.name, s.pathType})
				}
			}

			for _, job := range jobs {
				run, err := a.runner.RunScenario(ctx, job.name, job.pathType, steps, seed)
				if err != nil {
					return err
				}
				if err := a.writeArtifacts(run, !noRender); err != nil {
					return err
				}
				printRun(cmd.OutOrStdout(), run)
			}
			return nil
		},
	}

	cmd.Flags().AddFlagSet(sf.fs)
	cmd.Flags().BoolVar(&all, "all", false, "Run the bundled mean_revert, breakout and false_breakout scenarios")
	cmd.Flags().BoolVar(&noRender, "no-render", false, "Skip writing the HTML viewer")
	return cmd
}

// writeArtifacts ensures the JSONL log exists in the output dir and renders
// the viewer next to it
func (a *app) writeArtifacts(run *persistence.Run, renderHTML bool) error {
	logPath := filepath.Join(a.cfg.OutputDir, file.LogFileName(run.Name))
	if a.cfg.Database.Enabled {
		if err := simio.SaveLog(logPath, run.Records); err != nil {
			return err
		}
	}
	log.Info().Str("path", logPath).Msg("Log saved")

	if !renderHTML {
		return nil
	}
	htmlPath := filepath.Join(a.cfg.OutputDir, run.Name+".html")
	if err := a.renderer.RenderToFile(htmlPath, run.Records, run.Config); err != nil {
		return fmt.Errorf("failed to render %s: %w", run.Name, err)
	}
	return nil
}
