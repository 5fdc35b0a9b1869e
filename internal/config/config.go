// Package config loads optionflight configuration from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/sawpanic/optionflight/internal/envelope"
	"github.com/sawpanic/optionflight/internal/persistence/sqlstore"
)

// EnvPrefix namespaces every environment override
const EnvPrefix = "OPTIONFLIGHT_"

// Config is the complete application configuration
type Config struct {
	Envelope  envelope.Config `yaml:"envelope" envPrefix:"ENVELOPE_"`
	Scenario  ScenarioConfig  `yaml:"scenario" envPrefix:"SCENARIO_"`
	Database  sqlstore.Config `yaml:"database"`
	Cache     CacheConfig     `yaml:"cache" envPrefix:"CACHE_"`
	Server    ServerConfig    `yaml:"server" envPrefix:"SERVER_"`
	Logging   LoggingConfig   `yaml:"logging" envPrefix:"LOG_"`
	OutputDir string          `yaml:"output_dir" env:"OUTPUT_DIR" validate:"required"`
}

// ScenarioConfig holds the starting state and run shape of simulations
type ScenarioConfig struct {
	StartSpot     float64 `yaml:"start_spot" env:"START_SPOT" validate:"gt=0"`
	StartIV       float64 `yaml:"start_iv" env:"START_IV" validate:"gt=0"`
	HistoricalVol float64 `yaml:"historical_vol" env:"HISTORICAL_VOL" validate:"gte=0"`
	Steps         int     `yaml:"steps" env:"STEPS" validate:"gte=1"`
	Runs          int     `yaml:"runs" env:"RUNS" validate:"gte=1"`
	Seed          uint64  `yaml:"seed" env:"SEED"`
	Workers       int     `yaml:"workers" env:"WORKERS" validate:"gte=0"` // 0 = GOMAXPROCS
	PathType      string  `yaml:"path_type" env:"PATH_TYPE"`
}

// CacheConfig selects the Monte Carlo summary cache
type CacheConfig struct {
	RedisAddr string        `yaml:"redis_addr" env:"REDIS_ADDR"` // empty = in-memory
	Prefix    string        `yaml:"prefix" env:"PREFIX"`
	TTL       time.Duration `yaml:"ttl" env:"TTL" validate:"gte=0"`
}

// ServerConfig configures the HTTP telemetry server
type ServerConfig struct {
	Addr         string        `yaml:"addr" env:"ADDR" validate:"required"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ReplayRate   float64       `yaml:"replay_rate" env:"REPLAY_RATE" validate:"gt=0"` // records per second
}

// LoggingConfig configures the global zerolog logger
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LEVEL" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" env:"FORMAT" validate:"oneof=auto console json"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Envelope: envelope.DefaultConfig(),
		Scenario: ScenarioConfig{
			StartSpot:     694.0,
			StartIV:       0.15,
			HistoricalVol: 0.12,
			Steps:         200,
			Runs:          10,
			Seed:          42,
			PathType:      "mean_revert",
		},
		Database: sqlstore.DefaultConfig(),
		Cache: CacheConfig{
			Prefix: "optionflight:",
			TTL:    time.Hour,
		},
		Server: ServerConfig{
			Addr:         "127.0.0.1:8090",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			ReplayRate:   20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
		OutputDir: "output",
	}
}

// Load reads path over the defaults (a missing path is allowed when
// empty), applies OPTIONFLIGHT_* environment overrides and validates.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// ApplyEnv overlays environment variables onto cfg
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

var validate = validator.New()

// Validate checks struct constraints and then the envelope invariants
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s: failed %q constraint (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}
	return c.Envelope.Validate()
}
