package main

import (
	"github.com/spf13/pflag"

	"github.com/sawpanic/optionflight/internal/config"
)

// scenarioFlags are shared by run and montecarlo. Unset flags fall back to
// the loaded configuration.
type scenarioFlags struct {
	fs       *pflag.FlagSet
	name     string
	pathType string
	steps    int
	seed     uint64
}

func newScenarioFlags(defaultName string) *scenarioFlags {
	defaults := scenarioDefaults()
	f := &scenarioFlags{fs: pflag.NewFlagSet("scenario", pflag.ContinueOnError)}

	f.fs.StringVar(&f.name, "name", defaultName, "Scenario name (log file and run name)")
	f.fs.StringVar(&f.pathType, "path-type", defaults.PathType, "Path type (mean_revert|breakout|false_breakout|vol_shock)")
	f.fs.IntVar(&f.steps, "steps", defaults.Steps, "Number of steps per run")
	f.fs.Uint64Var(&f.seed, "seed", defaults.Seed, "Random seed")
	return f
}

// resolve returns the effective path type, steps and seed
func (f *scenarioFlags) resolve(cfg config.ScenarioConfig) (pathType string, steps int, seed uint64) {
	pathType, steps, seed = cfg.PathType, cfg.Steps, cfg.Seed
	if f.fs.Changed("path-type") {
		pathType = f.pathType
	}
	if f.fs.Changed("steps") {
		steps = f.steps
	}
	if f.fs.Changed("seed") {
		seed = f.seed
	}
	return pathType, steps, seed
}

func scenarioDefaults() config.ScenarioConfig {
	return config.Default().Scenario
}
