// Package sqlstore persists telemetry runs in SQLite or PostgreSQL via sqlx.
package sqlstore

import (
	"time"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds database connection configuration
type Config struct {
	Driver          string        `yaml:"driver" env:"DB_DRIVER" validate:"omitempty,oneof=sqlite postgres"`
	DSN             string        `yaml:"dsn" env:"DB_DSN"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
	QueryTimeout    time.Duration `yaml:"query_timeout" env:"DB_QUERY_TIMEOUT"`
	Enabled         bool          `yaml:"enabled" env:"DB_ENABLED"`
}

// DefaultConfig returns reasonable defaults; the store is disabled until a
// DSN is configured
func DefaultConfig() Config {
	return Config{
		Driver:          DriverSQLite,
		DSN:             "output/telemetry.db",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		QueryTimeout:    30 * time.Second,
		Enabled:         false,
	}
}
