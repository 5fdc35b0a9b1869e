package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is an in-process TelemetryRepo
type MemoryRepo struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]Run
}

// NewMemoryRepo creates an empty in-memory repository
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{runs: make(map[uuid.UUID]Run)}
}

// SaveRun stores a copy of run
func (m *MemoryRepo) SaveRun(ctx context.Context, run Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	run.Records = append(run.Records[:0:0], run.Records...)
	m.runs[run.ID] = run
	return nil
}

// GetRun returns a copy of the stored run, or nil
func (m *MemoryRepo) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, nil
	}
	run.Records = append(run.Records[:0:0], run.Records...)
	return &run, nil
}

// ListRuns returns run headers, newest first
func (m *MemoryRepo) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := make([]Run, 0, len(m.runs))
	for _, run := range m.runs {
		runs = append(runs, run.Header())
	}
	SortNewestFirst(runs)
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// RegimeStats returns the regime distribution of a run
func (m *MemoryRepo) RegimeStats(ctx context.Context, id uuid.UUID) (map[string]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, nil
	}
	return run.RegimeCounts(), nil
}

// Health always reports healthy
func (m *MemoryRepo) Health(ctx context.Context) HealthCheck {
	return HealthCheck{Healthy: true, Backend: "memory", LastCheck: time.Now()}
}

// SortNewestFirst orders runs by creation time descending, then by name
func SortNewestFirst(runs []Run) {
	sort.SliceStable(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].Name < runs[j].Name
	})
}
