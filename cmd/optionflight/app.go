package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/optionflight/internal/cache"
	"github.com/sawpanic/optionflight/internal/config"
	"github.com/sawpanic/optionflight/internal/metrics"
	"github.com/sawpanic/optionflight/internal/persistence"
	"github.com/sawpanic/optionflight/internal/persistence/file"
	"github.com/sawpanic/optionflight/internal/persistence/sqlstore"
	"github.com/sawpanic/optionflight/internal/render"
	"github.com/sawpanic/optionflight/internal/scenario"
)

// app wires the configured collaborators for a command
type app struct {
	cfg      *config.Config
	repo     persistence.Repository
	metrics  *metrics.Registry
	renderer *render.Renderer
	runner   *scenario.Runner
	closers  []func() error
}

// newApp opens the store selected by cfg and builds the scenario runner.
// progress receives Monte Carlo progress bars; nil disables them.
func newApp(ctx context.Context, cfg *config.Config, progress io.Writer) (*app, error) {
	a := &app{cfg: cfg, metrics: metrics.NewRegistry()}

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	renderer, err := render.NewRenderer("")
	if err != nil {
		a.Close()
		return nil, err
	}
	a.renderer = renderer

	summaryCache := cache.New(cfg.Cache.RedisAddr, cfg.Cache.Prefix)
	runner, err := scenario.NewRunner(cfg.Envelope, cfg.Scenario,
		scenario.WithRepo(a.repo.Telemetry),
		scenario.WithMetrics(a.metrics),
		scenario.WithCache(summaryCache, cfg.Cache.TTL),
		scenario.WithProgress(progress),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.runner = runner
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	if !a.cfg.Database.Enabled {
		repo, err := file.NewRepo(a.cfg.OutputDir)
		if err != nil {
			return err
		}
		a.repo = persistence.Repository{Telemetry: repo, Health: repo}
		log.Debug().Str("dir", repo.Dir()).Msg("Using JSONL file store")
		return nil
	}

	dbCfg := a.cfg.Database
	if dbCfg.Driver == sqlstore.DriverSQLite && isFilePath(dbCfg.DSN) {
		if err := os.MkdirAll(filepath.Dir(dbCfg.DSN), 0755); err != nil {
			return fmt.Errorf("failed to create database dir: %w", err)
		}
	}

	mgr, err := sqlstore.Open(ctx, dbCfg)
	if err != nil {
		return err
	}
	a.repo = *mgr.Repository()
	a.closers = append(a.closers, mgr.Close)
	log.Debug().Str("driver", dbCfg.Driver).Msg("Using SQL store")
	return nil
}

// Close releases the store
func (a *app) Close() error {
	var firstErr error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

func isFilePath(dsn string) bool {
	return dsn != "" && !strings.HasPrefix(dsn, "file:") && !strings.Contains(dsn, ":memory:")
}
