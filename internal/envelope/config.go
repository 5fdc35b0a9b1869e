// Package envelope evaluates a spot/volatility state against the options
// flight envelope: a pivot, a volatility unit and the upper and lower walls.
package envelope

import (
	simerrors "github.com/sawpanic/optionflight/internal/errors"
)

// DefaultRiskProxyBase is the neutral implied/historical volatility ratio
const DefaultRiskProxyBase = 1.0

// Config is the fixed envelope geometry for a run. It is immutable once
// constructed and shared read-only by the envelope and the telemetry engine.
type Config struct {
	VolatilityUnit float64 `yaml:"volatility_unit" json:"volatility_unit" env:"VOLATILITY_UNIT"` // ATR-like scale
	Pivot          float64 `yaml:"pivot" json:"pivot" env:"PIVOT"`                               // Gamma flip level
	LowerWall      float64 `yaml:"lower_wall" json:"lower_wall" env:"LOWER_WALL"`                // Put wall
	UpperWall      float64 `yaml:"upper_wall" json:"upper_wall" env:"UPPER_WALL"`                // Call wall
	RiskProxyBase  float64 `yaml:"risk_proxy_base" json:"risk_proxy_base" env:"RISK_PROXY_BASE"`
}

// DefaultConfig returns the reference envelope used by the bundled scenarios
func DefaultConfig() Config {
	return Config{
		VolatilityUnit: 2.8,
		Pivot:          692.5,
		LowerWall:      680.0,
		UpperWall:      700.0,
		RiskProxyBase:  DefaultRiskProxyBase,
	}
}

// NewConfig builds and validates an envelope configuration
func NewConfig(volatilityUnit, pivot, lowerWall, upperWall float64) (Config, error) {
	cfg := Config{
		VolatilityUnit: volatilityUnit,
		Pivot:          pivot,
		LowerWall:      lowerWall,
		UpperWall:      upperWall,
		RiskProxyBase:  DefaultRiskProxyBase,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces a positive volatility unit and walls that strictly
// bracket the pivot.
func (c Config) Validate() error {
	if !(c.VolatilityUnit > 0) {
		return simerrors.NewConfigurationError("volatility_unit", c.VolatilityUnit, "must be > 0")
	}
	if !(c.LowerWall < c.Pivot) {
		return simerrors.NewConfigurationError("lower_wall", c.LowerWall, "must be below pivot")
	}
	if !(c.Pivot < c.UpperWall) {
		return simerrors.NewConfigurationError("upper_wall", c.UpperWall, "must be above pivot")
	}
	if c.RiskProxyBase < 0 {
		return simerrors.NewConfigurationError("risk_proxy_base", c.RiskProxyBase, "must be >= 0")
	}
	return nil
}

// WithDefaults fills unset optional fields
func (c Config) WithDefaults() Config {
	if c.RiskProxyBase == 0 {
		c.RiskProxyBase = DefaultRiskProxyBase
	}
	return c
}
