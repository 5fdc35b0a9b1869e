package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/sawpanic/optionflight/internal/envelope"
	"github.com/sawpanic/optionflight/internal/persistence"
	"github.com/sawpanic/optionflight/internal/telemetry"
)

// ErrStoreUnavailable is returned while the write breaker is open
var ErrStoreUnavailable = errors.New("telemetry store unavailable")

type runRow struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	PathType  string `db:"path_type"`
	Seed      int64  `db:"seed"`
	Steps     int    `db:"steps"`
	Config    string `db:"config"`
	CreatedAt int64  `db:"created_at"`
}

type recordRow struct {
	Timestamp int     `db:"ts"`
	Spot      float64 `db:"spot"`
	IV        float64 `db:"iv"`
	HV        float64 `db:"hv"`
	X         float64 `db:"x"`
	Y         float64 `db:"y"`
	Z         float64 `db:"z"`
	Regime    string  `db:"regime"`
	Flags     int64   `db:"flags"`
}

type regimeCountRow struct {
	Regime string `db:"regime"`
	Count  int64  `db:"n"`
}

// telemetryRepo implements persistence.TelemetryRepo over sqlx
type telemetryRepo struct {
	db      *sqlx.DB
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
}

// NewTelemetryRepo creates a telemetry repository on an open database
func NewTelemetryRepo(db *sqlx.DB, timeout time.Duration) persistence.TelemetryRepo {
	return &telemetryRepo{
		db:      db,
		timeout: timeout,
		breaker: newWriteBreaker("telemetry_store"),
	}
}

func newWriteBreaker(name string) *gobreaker.CircuitBreaker {
	st := gobreaker.Settings{
		Name:     name,
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
	}
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 3
	}
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
			Msg("Telemetry store breaker state changed")
	}
	return gobreaker.NewCircuitBreaker(st)
}

// SaveRun upserts the run header and replaces its records in one transaction
func (r *telemetryRepo) SaveRun(ctx context.Context, run persistence.Run) error {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, r.saveRun(ctx, run)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}

func (r *telemetryRepo) saveRun(ctx context.Context, run persistence.Run) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	configJSON, err := json.Marshal(run.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope config: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	upsert := tx.Rebind(`
		INSERT INTO runs (id, name, path_type, seed, steps, config, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			path_type = EXCLUDED.path_type,
			seed = EXCLUDED.seed,
			steps = EXCLUDED.steps,
			config = EXCLUDED.config,
			created_at = EXCLUDED.created_at`)

	if _, err := tx.ExecContext(ctx, upsert,
		run.ID.String(), run.Name, run.PathType, int64(run.Seed), run.Steps,
		string(configJSON), run.CreatedAt.UnixMilli()); err != nil {
		return fmt.Errorf("failed to upsert run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM telemetry_records WHERE run_id = ?`), run.ID.String()); err != nil {
		return fmt.Errorf("failed to clear run records: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
		INSERT INTO telemetry_records (run_id, ts, spot, iv, hv, x, y, z, regime, flags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range run.Records {
		if _, err := stmt.ExecContext(ctx, run.ID.String(), rec.Timestamp, rec.Spot,
			rec.ImpliedVol, rec.HistoricalVol, rec.X, rec.Y, rec.Z,
			rec.Regime.String(), int64(rec.Flags)); err != nil {
			return fmt.Errorf("failed to insert record %d: %w", rec.Timestamp, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	log.Debug().Str("run_id", run.ID.String()).Int("records", len(run.Records)).Msg("Run persisted")
	return nil
}

// GetRun returns the run with its records, or nil when absent
func (r *telemetryRepo) GetRun(ctx context.Context, id uuid.UUID) (*persistence.Run, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var row runRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`
		SELECT id, name, path_type, seed, steps, config, created_at
		FROM runs
		WHERE id = ?`), id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run, err := row.toRun()
	if err != nil {
		return nil, err
	}

	var rows []recordRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT ts, spot, iv, hv, x, y, z, regime, flags
		FROM telemetry_records
		WHERE run_id = ?
		ORDER BY ts`), id.String()); err != nil {
		return nil, fmt.Errorf("failed to query run records: %w", err)
	}

	run.Records = make([]telemetry.Record, 0, len(rows))
	for _, rr := range rows {
		rec, err := rr.toRecord()
		if err != nil {
			return nil, err
		}
		run.Records = append(run.Records, rec)
	}

	return &run, nil
}

// ListRuns returns run headers, newest first
func (r *telemetryRepo) ListRuns(ctx context.Context, limit int) ([]persistence.Run, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}

	var rows []runRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT id, name, path_type, seed, steps, config, created_at
		FROM runs
		ORDER BY created_at DESC, name
		LIMIT ?`), limit); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	runs := make([]persistence.Run, 0, len(rows))
	for _, row := range rows {
		run, err := row.toRun()
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// RegimeStats returns the regime distribution of a run, or nil when the
// run does not exist
func (r *telemetryRepo) RegimeStats(ctx context.Context, id uuid.UUID) (map[string]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []regimeCountRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT regime, COUNT(*) AS n
		FROM telemetry_records
		WHERE run_id = ?
		GROUP BY regime
		ORDER BY regime`), id.String()); err != nil {
		return nil, fmt.Errorf("failed to query regime stats: %w", err)
	}

	if len(rows) == 0 {
		var runs int
		if err := r.db.GetContext(ctx, &runs, r.db.Rebind(`SELECT COUNT(*) FROM runs WHERE id = ?`), id.String()); err != nil {
			return nil, fmt.Errorf("failed to check run: %w", err)
		}
		if runs == 0 {
			return nil, nil
		}
	}

	stats := make(map[string]int64, len(rows))
	for _, row := range rows {
		stats[row.Regime] = row.Count
	}
	return stats, nil
}

func (row runRow) toRun() (persistence.Run, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return persistence.Run{}, fmt.Errorf("invalid run id %q: %w", row.ID, err)
	}

	var cfg envelope.Config
	if err := json.Unmarshal([]byte(row.Config), &cfg); err != nil {
		return persistence.Run{}, fmt.Errorf("invalid envelope config for run %s: %w", row.ID, err)
	}

	return persistence.Run{
		ID:        id,
		Name:      row.Name,
		PathType:  row.PathType,
		Seed:      uint64(row.Seed),
		Steps:     row.Steps,
		Config:    cfg,
		CreatedAt: time.UnixMilli(row.CreatedAt).UTC(),
	}, nil
}

func (rr recordRow) toRecord() (telemetry.Record, error) {
	regime, err := envelope.ParseRegime(rr.Regime)
	if err != nil {
		return telemetry.Record{}, fmt.Errorf("record %d: %w", rr.Timestamp, err)
	}
	return telemetry.Record{
		Timestamp:     rr.Timestamp,
		Spot:          rr.Spot,
		ImpliedVol:    rr.IV,
		HistoricalVol: rr.HV,
		X:             rr.X,
		Y:             rr.Y,
		Z:             rr.Z,
		Regime:        regime,
		Flags:         telemetry.Flags(rr.Flags),
	}, nil
}
