// Package file stores telemetry runs as JSONL logs in a directory, one
// <name>.jsonl per run plus a runs.json index of run headers.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	simio "github.com/sawpanic/optionflight/internal/io"
	"github.com/sawpanic/optionflight/internal/persistence"
)

const indexFile = "runs.json"

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type indexEntry struct {
	persistence.Run
	LogFile string `json:"log_file"`
}

// Repo is a directory-backed TelemetryRepo
type Repo struct {
	mu  sync.Mutex
	dir string
}

// NewRepo creates a repository rooted at dir
func NewRepo(dir string) (*Repo, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Repo{dir: dir}, nil
}

// Dir returns the repository directory
func (r *Repo) Dir() string {
	return r.dir
}

// LogPath returns the JSONL path used for a run name
func (r *Repo) LogPath(name string) string {
	return filepath.Join(r.dir, LogFileName(name))
}

// LogFileName sanitizes a run name into a JSONL file name
func LogFileName(name string) string {
	safe := unsafeNameChars.ReplaceAllString(name, "_")
	if safe == "" {
		safe = "run"
	}
	return safe + ".jsonl"
}

// SaveRun writes the run log and updates the index. A run saved under an
// existing name replaces the previous run of that name.
func (r *Repo) SaveRun(ctx context.Context, run persistence.Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	logFile := LogFileName(run.Name)
	if err := simio.SaveLog(filepath.Join(r.dir, logFile), run.Records); err != nil {
		return err
	}

	entries, err := r.readIndex()
	if err != nil {
		return err
	}

	kept := entries[:0]
	for _, e := range entries {
		if e.ID != run.ID && e.LogFile != logFile {
			kept = append(kept, e)
		}
	}
	kept = append(kept, indexEntry{Run: run.Header(), LogFile: logFile})

	return simio.WriteJSONAtomic(filepath.Join(r.dir, indexFile), kept)
}

// GetRun loads a run and its log, or nil when absent
func (r *Repo) GetRun(ctx context.Context, id uuid.UUID) (*persistence.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.readIndex()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.ID != id {
			continue
		}
		records, err := simio.LoadLog(filepath.Join(r.dir, e.LogFile))
		if err != nil {
			return nil, err
		}
		run := e.Run
		run.Records = records
		return &run, nil
	}
	return nil, nil
}

// ListRuns returns run headers, newest first
func (r *Repo) ListRuns(ctx context.Context, limit int) ([]persistence.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.readIndex()
	if err != nil {
		return nil, err
	}
	runs := make([]persistence.Run, 0, len(entries))
	for _, e := range entries {
		runs = append(runs, e.Run)
	}
	persistence.SortNewestFirst(runs)
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// RegimeStats returns the regime distribution of a run
func (r *Repo) RegimeStats(ctx context.Context, id uuid.UUID) (map[string]int64, error) {
	run, err := r.GetRun(ctx, id)
	if err != nil || run == nil {
		return nil, err
	}
	return run.RegimeCounts(), nil
}

// Health checks that the directory is writable
func (r *Repo) Health(ctx context.Context) persistence.HealthCheck {
	start := time.Now()
	check := persistence.HealthCheck{Healthy: true, Backend: "file", LastCheck: start}

	marker := filepath.Join(r.dir, ".health")
	if err := os.WriteFile(marker, []byte("ok"), 0644); err != nil {
		check.Healthy = false
		check.Errors = append(check.Errors, err.Error())
	} else {
		os.Remove(marker)
	}
	check.ResponseTimeMS = time.Since(start).Milliseconds()
	return check
}

func (r *Repo) readIndex() ([]indexEntry, error) {
	data, err := os.ReadFile(filepath.Join(r.dir, indexFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read run index: %w", err)
	}

	var entries []indexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse run index: %w", err)
	}
	return entries, nil
}
