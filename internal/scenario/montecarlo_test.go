package scenario

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/optionflight/internal/cache"
	"github.com/sawpanic/optionflight/internal/config"
	"github.com/sawpanic/optionflight/internal/dynamics"
	"github.com/sawpanic/optionflight/internal/envelope"
	simerrors "github.com/sawpanic/optionflight/internal/errors"
	"github.com/sawpanic/optionflight/internal/metrics"
	"github.com/sawpanic/optionflight/internal/persistence"
)

func runnerWithWorkers(t *testing.T, workers int, opts ...Option) *Runner {
	t.Helper()
	settings := config.Default().Scenario
	settings.Workers = workers
	r, err := NewRunner(envelope.DefaultConfig(), settings, opts...)
	require.NoError(t, err)
	return r
}

func TestRunMonteCarlo_ReproducibleAcrossWorkers(t *testing.T) {
	ctx := context.Background()

	serial, err := runnerWithWorkers(t, 1).RunMonteCarlo(ctx, "mc", PathFalseBreakout, 12, 80, 42)
	require.NoError(t, err)
	parallel, err := runnerWithWorkers(t, 5).RunMonteCarlo(ctx, "mc", PathFalseBreakout, 12, 80, 42)
	require.NoError(t, err)

	assert.Equal(t, serial.Results, parallel.Results)
	assert.Equal(t, serial.BreachRate, parallel.BreachRate)
	assert.Equal(t, serial.AvgMaxLoad, parallel.AvgMaxLoad)
	assert.False(t, serial.Cached)
}

func TestRunMonteCarlo_RunsMatchSingleScenarios(t *testing.T) {
	ctx := context.Background()
	r := runnerWithWorkers(t, 3)

	result, err := r.RunMonteCarlo(ctx, "mc_breakout", PathBreakout, 5, 60, 7)
	require.NoError(t, err)
	require.Len(t, result.Results, 5)

	for i, summary := range result.Results {
		assert.Equal(t, i, summary.RunIndex)
		assert.Equal(t, fmt.Sprintf("mc_breakout_%d", i), summary.Name)
		assert.Equal(t, dynamics.SeedForRun(7, i), summary.Seed)

		run, err := r.Simulate(summary.Name, PathBreakout, 60, summary.Seed)
		require.NoError(t, err)
		assert.Equal(t, run.Summarize(i), summary)
	}

	var total int64
	for _, n := range result.RegimeDistribution {
		total += n
	}
	assert.Equal(t, int64(5*60), total)
}

func TestRunMonteCarlo_PersistsEveryRun(t *testing.T) {
	ctx := context.Background()
	repo := persistence.NewMemoryRepo()
	m := metrics.NewRegistry()
	var bar bytes.Buffer
	r := runnerWithWorkers(t, 4, WithRepo(repo), WithMetrics(m), WithProgress(&bar))

	result, err := r.RunMonteCarlo(ctx, "mc", PathMeanRevert, 6, 40, 1)
	require.NoError(t, err)

	runs, err := repo.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 6)
	assert.Equal(t, 240.0, testutil.ToFloat64(m.StepsTotal.WithLabelValues(PathMeanRevert)))
	assert.Equal(t, result.BreachRate, testutil.ToFloat64(m.BreachRate.WithLabelValues(PathMeanRevert)))
	assert.Contains(t, bar.String(), "6/6 (100.0%)")
}

func TestRunMonteCarlo_Cache(t *testing.T) {
	ctx := context.Background()
	m := metrics.NewRegistry()
	c := cache.NewMemory()
	r := runnerWithWorkers(t, 2, WithCache(c, 0), WithMetrics(m))

	first, err := r.RunMonteCarlo(ctx, "first", PathBreakout, 4, 30, 11)
	require.NoError(t, err)
	second, err := r.RunMonteCarlo(ctx, "second", PathBreakout, 4, 30, 11)
	require.NoError(t, err)

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, "second", second.Name)
	require.Len(t, second.Results, len(first.Results))
	for i := range first.Results {
		assert.Equal(t, fmt.Sprintf("first_%d", i), first.Results[i].Name)
		assert.Equal(t, fmt.Sprintf("second_%d", i), second.Results[i].Name)
		assert.Equal(t, first.Results[i].Seed, second.Results[i].Seed)
		assert.Equal(t, first.Results[i].MaxLoad, second.Results[i].MaxLoad)
		assert.Equal(t, first.Results[i].RegimeCounts, second.Results[i].RegimeCounts)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMisses))

	other, err := r.RunMonteCarlo(ctx, "other", PathBreakout, 4, 30, 12)
	require.NoError(t, err)
	assert.False(t, other.Cached)
}

func TestRunMonteCarlo_CacheHitDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	repo := persistence.NewMemoryRepo()
	r := runnerWithWorkers(t, 2, WithCache(cache.NewMemory(), 0), WithRepo(repo))

	_, err := r.RunMonteCarlo(ctx, "first", PathMeanRevert, 3, 20, 5)
	require.NoError(t, err)
	second, err := r.RunMonteCarlo(ctx, "second", PathMeanRevert, 3, 20, 5)
	require.NoError(t, err)
	require.True(t, second.Cached)

	runs, err := repo.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	for _, run := range runs {
		assert.Contains(t, run.Name, "first_")
	}
}

func TestRunMonteCarlo_InvalidArgs(t *testing.T) {
	r := newRunner(t)

	_, err := r.RunMonteCarlo(context.Background(), "mc", PathBreakout, 0, 10, 1)
	assert.ErrorIs(t, err, simerrors.ErrConfiguration)

	_, err = r.RunMonteCarlo(context.Background(), "mc", PathBreakout, 3, 0, 1)
	assert.ErrorIs(t, err, simerrors.ErrConfiguration)
}

type failingRepo struct {
	persistence.TelemetryRepo
}

func (failingRepo) SaveRun(context.Context, persistence.Run) error {
	return errors.New("disk full")
}

func TestRunMonteCarlo_SaveFailureAborts(t *testing.T) {
	m := metrics.NewRegistry()
	r := runnerWithWorkers(t, 2, WithRepo(failingRepo{}), WithMetrics(m))

	_, err := r.RunMonteCarlo(context.Background(), "mc", PathBreakout, 5, 10, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunErrors.WithLabelValues("montecarlo")))
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name       string
		summaries  []persistence.RunSummary
		breachRate float64
		avgMaxLoad float64
	}{
		{"empty", nil, 0, 0},
		{
			name: "mixed",
			summaries: []persistence.RunSummary{
				{MaxLoad: 1.0, Breached: true, RegimeCounts: map[string]int64{"CRUISE": 2}},
				{MaxLoad: 2.0, Breached: false, RegimeCounts: map[string]int64{"CRUISE": 1, "RUPTURE": 1}},
				{MaxLoad: 3.0, Breached: true},
				{MaxLoad: 2.0, Breached: false},
			},
			breachRate: 0.5,
			avgMaxLoad: 2.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Aggregate(tt.summaries)
			assert.Equal(t, len(tt.summaries), result.Runs)
			assert.InDelta(t, tt.breachRate, result.BreachRate, 1e-12)
			assert.InDelta(t, tt.avgMaxLoad, result.AvgMaxLoad, 1e-12)
		})
	}

	result := Aggregate(tests[1].summaries)
	assert.Equal(t, map[string]int64{"CRUISE": 3, "RUPTURE": 1}, result.RegimeDistribution)
	assert.Equal(t, 2, result.BreachCount)
}
