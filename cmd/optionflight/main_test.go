package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	simio "github.com/sawpanic/optionflight/internal/io"
	"github.com/sawpanic/optionflight/internal/scenario"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.Execute()
	return out.String(), err
}

func withOutputDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("OPTIONFLIGHT_OUTPUT_DIR", dir)
	return dir
}

func TestVersionCommand(t *testing.T) {
	withOutputDir(t)
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "optionflight "+version)
}

func TestRunCommand(t *testing.T) {
	dir := withOutputDir(t)

	out, err := execute(t, "run", "--name", "breakout_test", "--path-type", "breakout", "--steps", "30", "--seed", "9")
	require.NoError(t, err)
	assert.Contains(t, out, "breakout_test (breakout, 30 steps, seed 9)")

	records, err := simio.LoadLog(filepath.Join(dir, "breakout_test.jsonl"))
	require.NoError(t, err)
	assert.Len(t, records, 30)
	assert.FileExists(t, filepath.Join(dir, "breakout_test.html"))
	assert.FileExists(t, filepath.Join(dir, "runs.json"))
}

func TestRunCommand_All(t *testing.T) {
	dir := withOutputDir(t)

	_, err := execute(t, "run", "--all", "--steps", "20", "--no-render")
	require.NoError(t, err)

	for _, s := range bundledScenarios {
		assert.FileExists(t, filepath.Join(dir, s.name+".jsonl"))
		assert.NoFileExists(t, filepath.Join(dir, s.name+".html"))
	}
}

func TestMonteCarloCommand(t *testing.T) {
	dir := withOutputDir(t)

	out, err := execute(t, "montecarlo", "--name", "mc_breakout", "--path-type", "breakout", "--runs", "4", "--steps", "25", "--workers", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Monte Carlo Results for mc_breakout")
	assert.Contains(t, out, "Breach Rate:")

	data, err := os.ReadFile(filepath.Join(dir, "mc_breakout_summary.json"))
	require.NoError(t, err)
	var result scenario.MonteCarloResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, 4, result.Runs)
	assert.Len(t, result.Results, 4)

	for i := 0; i < 4; i++ {
		assert.FileExists(t, filepath.Join(dir, "mc_breakout_"+string(rune('0'+i))+".jsonl"))
	}
}

func TestRenderCommand(t *testing.T) {
	dir := withOutputDir(t)

	_, err := execute(t, "run", "--name", "pin", "--steps", "15", "--no-render")
	require.NoError(t, err)

	out, err := execute(t, "render", filepath.Join(dir, "pin.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, out, "Visualization saved to")
	assert.FileExists(t, filepath.Join(dir, "pin.html"))

	_, err = execute(t, "render", filepath.Join(dir, "missing.jsonl"))
	assert.Error(t, err)
}

func TestExportCommand_SQLStore(t *testing.T) {
	dir := withOutputDir(t)
	t.Setenv("OPTIONFLIGHT_DB_ENABLED", "true")
	t.Setenv("OPTIONFLIGHT_DB_DRIVER", "sqlite")
	t.Setenv("OPTIONFLIGHT_DB_DSN", filepath.Join(dir, "db", "telemetry.db"))

	_, err := execute(t, "run", "--name", "stored", "--steps", "10", "--no-render")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "stored.jsonl"))

	xlsx := filepath.Join(dir, "export.xlsx")
	out, err := execute(t, "export", "-o", xlsx)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 1 runs")
	assert.FileExists(t, xlsx)
}

func TestInvalidConfig(t *testing.T) {
	withOutputDir(t)
	t.Setenv("OPTIONFLIGHT_SCENARIO_STEPS", "0")

	_, err := execute(t, "run")
	assert.Error(t, err)
}

func TestScenarioFlags_FallBackToConfig(t *testing.T) {
	sf := newScenarioFlags("x")
	require.NoError(t, sf.fs.Parse([]string{"--steps", "7"}))

	cfg := scenarioDefaults()
	cfg.PathType = "false_breakout"
	cfg.Seed = 99

	pathType, steps, seed := sf.resolve(cfg)
	assert.Equal(t, "false_breakout", pathType)
	assert.Equal(t, 7, steps)
	assert.Equal(t, uint64(99), seed)
}
