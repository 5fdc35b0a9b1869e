// Package scenario drives path generation through the telemetry engine and
// aggregates Monte Carlo batches.
package scenario

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/optionflight/internal/cache"
	"github.com/sawpanic/optionflight/internal/config"
	"github.com/sawpanic/optionflight/internal/dynamics"
	"github.com/sawpanic/optionflight/internal/envelope"
	simerrors "github.com/sawpanic/optionflight/internal/errors"
	"github.com/sawpanic/optionflight/internal/metrics"
	"github.com/sawpanic/optionflight/internal/persistence"
	"github.com/sawpanic/optionflight/internal/telemetry"
)

// Runner orchestrates scenario generation, telemetry and persistence
type Runner struct {
	config   envelope.Config
	settings config.ScenarioConfig
	engine   *telemetry.Engine

	repo     persistence.TelemetryRepo
	metrics  *metrics.Registry
	cache    cache.Cache
	cacheTTL time.Duration
	progress io.Writer
	now      func() time.Time
}

// Option configures a Runner
type Option func(*Runner)

// WithRepo saves every run to repo
func WithRepo(repo persistence.TelemetryRepo) Option {
	return func(r *Runner) { r.repo = repo }
}

// WithMetrics records run metrics into m
func WithMetrics(m *metrics.Registry) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithCache memoises Monte Carlo summaries for ttl
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(r *Runner) {
		r.cache = c
		r.cacheTTL = ttl
	}
}

// WithProgress draws a Monte Carlo progress bar on w
func WithProgress(w io.Writer) Option {
	return func(r *Runner) { r.progress = w }
}

// NewRunner validates the envelope and starting state and builds a runner
func NewRunner(cfg envelope.Config, settings config.ScenarioConfig, opts ...Option) (*Runner, error) {
	env, err := envelope.NewValidated(cfg.WithDefaults())
	if err != nil {
		return nil, err
	}
	if !(settings.StartIV > 0) {
		return nil, simerrors.NewConfigurationError("start_iv", settings.StartIV, "must be > 0")
	}

	r := &Runner{
		config:   env.Config(),
		settings: settings,
		engine:   telemetry.NewEngine(env),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Config returns the envelope configuration runs are scored against
func (r *Runner) Config() envelope.Config {
	return r.config
}

// Simulate generates and scores one run without persisting it
func (r *Runner) Simulate(name, pathType string, steps int, seed uint64) (persistence.Run, error) {
	pathType = r.resolvePathType(pathType)

	gen, err := dynamics.NewPathGenerator(dynamics.PathSpec{
		StartValue:     r.settings.StartSpot,
		VolatilityUnit: r.config.VolatilityUnit,
		Steps:          steps,
	}, dynamics.NewSource(seed))
	if err != nil {
		return persistence.Run{}, err
	}

	s := generate(gen, r.config, pathType, r.settings.StartIV, r.settings.HistoricalVol)
	records, err := r.engine.ComputeSeries(s.spots, s.ivs, s.hvs)
	if err != nil {
		return persistence.Run{}, fmt.Errorf("failed to compute telemetry: %w", err)
	}

	return persistence.Run{
		ID:        uuid.New(),
		Name:      name,
		PathType:  pathType,
		Seed:      seed,
		Steps:     steps,
		Config:    r.config,
		CreatedAt: r.now().UTC(),
		Records:   records,
	}, nil
}

// RunScenario simulates one run, records its metrics and saves it
func (r *Runner) RunScenario(ctx context.Context, name, pathType string, steps int, seed uint64) (*persistence.Run, error) {
	pathType = r.resolvePathType(pathType)
	log.Info().
		Str("scenario", name).
		Str("path_type", pathType).
		Int("steps", steps).
		Uint64("seed", seed).
		Msg("Running scenario")

	var timer *metrics.RunTimer
	if r.metrics != nil {
		timer = r.metrics.StartRun("scenario", pathType)
	}

	run, err := r.runOne(ctx, name, pathType, steps, seed)
	if timer != nil {
		timer.Stop(err)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *Runner) runOne(ctx context.Context, name, pathType string, steps int, seed uint64) (persistence.Run, error) {
	if err := ctx.Err(); err != nil {
		return persistence.Run{}, err
	}

	run, err := r.Simulate(name, pathType, steps, seed)
	if err != nil {
		return persistence.Run{}, err
	}

	if r.metrics != nil {
		r.metrics.ObserveRecords(run.PathType, run.Records)
	}

	if r.repo != nil {
		if err := r.repo.SaveRun(ctx, run); err != nil {
			return persistence.Run{}, fmt.Errorf("failed to save run %s: %w", name, err)
		}
		log.Debug().Str("scenario", name).Str("run_id", run.ID.String()).Msg("Run saved")
	}
	return run, nil
}

func (r *Runner) resolvePathType(pathType string) string {
	resolved := NormalizePathType(pathType)
	if resolved != pathType {
		log.Warn().
			Str("path_type", pathType).
			Str("fallback", resolved).
			Msg("Unknown path type, using mean reversion")
	}
	return resolved
}

// fingerprint identifies the envelope and starting state for cache keys
func (r *Runner) fingerprint() string {
	data, _ := json.Marshal(struct {
		Envelope      envelope.Config `json:"envelope"`
		StartSpot     float64         `json:"start_spot"`
		StartIV       float64         `json:"start_iv"`
		HistoricalVol float64         `json:"historical_vol"`
	}{r.config, r.settings.StartSpot, r.settings.StartIV, r.settings.HistoricalVol})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}
