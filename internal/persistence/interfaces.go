package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sawpanic/optionflight/internal/envelope"
	"github.com/sawpanic/optionflight/internal/telemetry"
)

// Run is one simulated scenario and its telemetry series
type Run struct {
	ID        uuid.UUID          `json:"id"`
	Name      string             `json:"name"`
	PathType  string             `json:"path_type"`
	Seed      uint64             `json:"seed"`
	Steps     int                `json:"steps"`
	Config    envelope.Config    `json:"config"`
	CreatedAt time.Time          `json:"created_at"`
	Records   []telemetry.Record `json:"records,omitempty"`
}

// Header returns the run without its records
func (r Run) Header() Run {
	r.Records = nil
	return r
}

// RegimeCounts tallies records per regime name
func (r Run) RegimeCounts() map[string]int64 {
	counts := make(map[string]int64, len(envelope.AllRegimes()))
	for _, rec := range r.Records {
		counts[rec.Regime.String()]++
	}
	return counts
}

// RunSummary is the Monte Carlo outcome of one run
type RunSummary struct {
	RunIndex     int              `json:"run"`
	Name         string           `json:"name"`
	Seed         uint64           `json:"seed"`
	MaxLoad      float64          `json:"max_load"`
	Breached     bool             `json:"breached"`
	RegimeCounts map[string]int64 `json:"regime_counts"`
}

// Summarize reduces the run to its peak load factor and whether any step
// carried a warning flag
func (r Run) Summarize(index int) RunSummary {
	s := RunSummary{
		RunIndex:     index,
		Name:         r.Name,
		Seed:         r.Seed,
		RegimeCounts: r.RegimeCounts(),
	}
	for i, rec := range r.Records {
		if i == 0 || rec.Y > s.MaxLoad {
			s.MaxLoad = rec.Y
		}
		if rec.Flagged() {
			s.Breached = true
		}
	}
	return s
}

// TelemetryRepo persists simulated runs
type TelemetryRepo interface {
	// SaveRun inserts or replaces a run and all of its records
	SaveRun(ctx context.Context, run Run) error

	// GetRun returns the run with its records, or nil when absent
	GetRun(ctx context.Context, id uuid.UUID) (*Run, error)

	// ListRuns returns run headers, newest first
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// RegimeStats returns the regime distribution of a run
	RegimeStats(ctx context.Context, id uuid.UUID) (map[string]int64, error)
}

// Repository aggregates the persistence interfaces
type Repository struct {
	Telemetry TelemetryRepo
	Health    RepositoryHealth
}

// HealthCheck represents repository health status
type HealthCheck struct {
	Healthy        bool           `json:"healthy"`
	Backend        string         `json:"backend"`
	Errors         []string       `json:"errors,omitempty"`
	ConnectionPool map[string]int `json:"connection_pool,omitempty"`
	LastCheck      time.Time      `json:"last_check"`
	ResponseTimeMS int64          `json:"response_time_ms"`
}

// RepositoryHealth provides health monitoring for the persistence layer
type RepositoryHealth interface {
	// Health returns current repository health status
	Health(ctx context.Context) HealthCheck
}
