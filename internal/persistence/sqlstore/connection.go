package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/sawpanic/optionflight/internal/persistence"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Manager owns the database connection and the repositories built on it
type Manager struct {
	db     *sqlx.DB
	config Config
	repos  *persistence.Repository
}

// Open connects, migrates and builds the repositories
func Open(ctx context.Context, config Config) (*Manager, error) {
	if config.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	db, err := sqlx.Open(config.Driver, config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return newManager(ctx, db, config)
}

// NewManagerWithDB wraps an already open database
func NewManagerWithDB(ctx context.Context, db *sqlx.DB, config Config) (*Manager, error) {
	return newManager(ctx, db, config)
}

func newManager(ctx context.Context, db *sqlx.DB, config Config) (*Manager, error) {
	if config.QueryTimeout <= 0 {
		config.QueryTimeout = DefaultConfig().QueryTimeout
	}

	if db.DriverName() == DriverSQLite {
		// SQLite serializes writers; a single connection also keeps :memory: databases shared
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(config.MaxOpenConns)
		db.SetMaxIdleConns(config.MaxIdleConns)
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	m := &Manager{db: db, config: config}
	m.repos = &persistence.Repository{
		Telemetry: NewTelemetryRepo(db, config.QueryTimeout),
		Health:    m,
	}

	log.Info().Str("driver", db.DriverName()).Msg("Telemetry database ready")
	return m, nil
}

// Repository returns the repository collection
func (m *Manager) Repository() *persistence.Repository {
	return m.repos
}

// DB returns the underlying connection
func (m *Manager) DB() *sqlx.DB {
	return m.db
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}

// Health pings the database and reports pool statistics
func (m *Manager) Health(ctx context.Context) persistence.HealthCheck {
	start := time.Now()
	check := persistence.HealthCheck{
		Healthy:   true,
		Backend:   m.db.DriverName(),
		LastCheck: start,
	}

	pingCtx, cancel := context.WithTimeout(ctx, m.config.QueryTimeout)
	defer cancel()
	if err := m.db.PingContext(pingCtx); err != nil {
		check.Healthy = false
		check.Errors = append(check.Errors, fmt.Sprintf("ping failed: %v", err))
	}

	stats := m.db.Stats()
	check.ConnectionPool = map[string]int{
		"open":     stats.OpenConnections,
		"in_use":   stats.InUse,
		"idle":     stats.Idle,
		"max_open": stats.MaxOpenConnections,
	}
	check.ResponseTimeMS = time.Since(start).Milliseconds()
	return check
}
