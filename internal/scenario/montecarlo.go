package scenario

import (
	"context"
	"fmt"
	"runtime"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/sawpanic/optionflight/internal/cache"
	"github.com/sawpanic/optionflight/internal/dynamics"
	simerrors "github.com/sawpanic/optionflight/internal/errors"
	simlog "github.com/sawpanic/optionflight/internal/log"
	"github.com/sawpanic/optionflight/internal/metrics"
	"github.com/sawpanic/optionflight/internal/persistence"
)

// MonteCarloResult aggregates a batch of independently seeded runs
type MonteCarloResult struct {
	Name               string                   `json:"name"`
	PathType           string                   `json:"path_type"`
	Runs               int                      `json:"runs"`
	Steps              int                      `json:"steps"`
	BaseSeed           uint64                   `json:"base_seed"`
	Results            []persistence.RunSummary `json:"results"`
	BreachCount        int                      `json:"breach_count"`
	BreachRate         float64                  `json:"breach_rate"`
	AvgMaxLoad         float64                  `json:"avg_max_load"`
	RegimeDistribution map[string]int64         `json:"regime_distribution"`
	Cached             bool                     `json:"cached"`
}

// RunMonteCarlo simulates runs in parallel. Run i is named name_i and seeded
// with SeedForRun(baseSeed, i), so the result does not depend on scheduling.
//
// A summary served from cache is relabelled for name but its runs are not
// simulated or saved again; only the batch that filled the cache persisted
// its runs.
func (r *Runner) RunMonteCarlo(ctx context.Context, name, pathType string, runs, steps int, baseSeed uint64) (*MonteCarloResult, error) {
	if runs < 1 {
		return nil, simerrors.NewConfigurationError("runs", runs, "must be >= 1")
	}
	if steps < 1 {
		return nil, simerrors.NewConfigurationError("steps", steps, "must be >= 1")
	}
	pathType = r.resolvePathType(pathType)

	key := cache.SummaryKey(r.fingerprint(), pathType, baseSeed, runs, steps)
	if r.cache != nil {
		var cached MonteCarloResult
		if cache.GetJSON(ctx, r.cache, key, &cached) {
			if r.metrics != nil {
				r.metrics.RecordCacheHit()
			}
			log.Info().Str("batch", name).Str("key", key).Msg("Monte Carlo summary served from cache")
			cached.Name = name
			cached.Cached = true
			for i := range cached.Results {
				cached.Results[i].Name = runName(name, cached.Results[i].RunIndex)
			}
			return &cached, nil
		}
		if r.metrics != nil {
			r.metrics.RecordCacheMiss()
		}
	}

	log.Info().
		Str("batch", name).
		Str("path_type", pathType).
		Int("runs", runs).
		Int("steps", steps).
		Uint64("base_seed", baseSeed).
		Msg("Running Monte Carlo")

	var timer *metrics.RunTimer
	if r.metrics != nil {
		timer = r.metrics.StartRun("montecarlo", pathType)
	}

	summaries, err := r.runBatch(ctx, name, pathType, runs, steps, baseSeed)
	if timer != nil {
		timer.Stop(err)
	}
	if err != nil {
		return nil, err
	}

	result := Aggregate(summaries)
	result.Name = name
	result.PathType = pathType
	result.Steps = steps
	result.BaseSeed = baseSeed

	if r.metrics != nil {
		r.metrics.SetBreachRate(pathType, result.BreachRate)
	}
	if r.cache != nil {
		if err := cache.SetJSON(ctx, r.cache, key, result, r.cacheTTL); err != nil {
			log.Warn().Err(err).Msg("Failed to cache Monte Carlo summary")
		}
	}

	log.Info().
		Str("batch", name).
		Float64("breach_rate", result.BreachRate).
		Float64("avg_max_load", result.AvgMaxLoad).
		Msg("Monte Carlo results")
	return result, nil
}

func (r *Runner) runBatch(ctx context.Context, name, pathType string, runs, steps int, baseSeed uint64) ([]persistence.RunSummary, error) {
	workers := r.settings.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	progress := simlog.NewProgress(r.progress, name, runs)
	summaries := make([]persistence.RunSummary, runs)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < runs; i++ {
		g.Go(func() error {
			run, err := r.runOne(gctx, runName(name, i), pathType, steps, dynamics.SeedForRun(baseSeed, i))
			if err != nil {
				return err
			}
			summaries[i] = run.Summarize(i)
			progress.RunDone(summaries[i].Breached)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		progress.Fail(err.Error())
		return nil, fmt.Errorf("monte carlo %s failed: %w", name, err)
	}
	progress.Finish()
	return summaries, nil
}

func runName(batch string, index int) string {
	return fmt.Sprintf("%s_%d", batch, index)
}

// Aggregate computes breach rate, average max load and the regime
// distribution of a batch
func Aggregate(summaries []persistence.RunSummary) *MonteCarloResult {
	result := &MonteCarloResult{
		Runs:               len(summaries),
		Results:            summaries,
		RegimeDistribution: make(map[string]int64),
	}
	if len(summaries) == 0 {
		return result
	}

	var totalLoad float64
	for _, s := range summaries {
		if s.Breached {
			result.BreachCount++
		}
		totalLoad += s.MaxLoad
		for regime, n := range s.RegimeCounts {
			result.RegimeDistribution[regime] += n
		}
	}
	n := float64(len(summaries))
	result.BreachRate = float64(result.BreachCount) / n
	result.AvgMaxLoad = totalLoad / n
	return result
}
