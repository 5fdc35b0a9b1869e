// Package dynamics synthesizes price and volatility paths under a handful of
// qualitative behaviors: pinning, breakout, false breakout and vol shocks.
package dynamics

import (
	"math"
	"math/rand/v2"

	"github.com/rs/zerolog/log"

	simerrors "github.com/sawpanic/optionflight/internal/errors"
)

// MinVol is the floor applied to every emitted volatility value
const MinVol = 0.01

// Default recurrence parameters
const (
	DefaultPinIntensity  = 0.1
	DefaultPinNoise      = 0.2
	DefaultBreakoutSpeed = 0.5
	DefaultBreakoutNoise = 0.1
	DefaultBreachDepth   = 1.5
	DefaultRecovery      = 0.8

	approachIntensity = 0.1
	approachNoise     = 0.1
	recoveryNoise     = 0.2
	volDrift          = 0.05
	volNoise          = 0.05
	volShockFactor    = 1.5
)

// PathSpec holds the generator parameters shared by every path
type PathSpec struct {
	StartValue     float64 `yaml:"start_value" json:"start_value"`
	VolatilityUnit float64 `yaml:"volatility_unit" json:"volatility_unit"`
	Steps          int     `yaml:"steps" json:"steps"`
}

// Validate rejects specs that cannot produce a path
func (s PathSpec) Validate() error {
	if s.Steps < 1 {
		return simerrors.NewConfigurationError("steps", s.Steps, "must be >= 1")
	}
	if !(s.VolatilityUnit > 0) {
		return simerrors.NewConfigurationError("volatility_unit", s.VolatilityUnit, "must be > 0")
	}
	return nil
}

// PathGenerator produces finite paths from a PathSpec and an owned random source
type PathGenerator struct {
	spec PathSpec
	rng  *rand.Rand
}

// NewPathGenerator validates spec and binds it to rng
func NewPathGenerator(spec PathSpec, rng *rand.Rand) (*PathGenerator, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = NewSource(0)
	}
	return &PathGenerator{spec: spec, rng: rng}, nil
}

// Spec returns the generator parameters
func (g *PathGenerator) Spec() PathSpec {
	return g.spec
}

func (g *PathGenerator) gauss(stddev float64) float64 {
	return g.rng.NormFloat64() * stddev
}

// MeanRevertPin pins the path around target with a restoring force of
// intensity per step. The first element is the start value, untouched.
func (g *PathGenerator) MeanRevertPin(target, intensity, noise float64) []float64 {
	path := make([]float64, 0, g.spec.Steps)
	v := g.spec.StartValue
	path = append(path, v)
	for i := 1; i < g.spec.Steps; i++ {
		v += (target-v)*intensity + g.gauss(g.spec.VolatilityUnit*noise)
		path = append(path, v)
	}
	return path
}

// Breakout drifts the path by direction*speed volatility units per step
func (g *PathGenerator) Breakout(direction, speed, noise float64) []float64 {
	path := make([]float64, 0, g.spec.Steps)
	v := g.spec.StartValue
	path = append(path, v)
	for i := 1; i < g.spec.Steps; i++ {
		v += direction*g.spec.VolatilityUnit*speed + g.gauss(g.spec.VolatilityUnit*noise)
		path = append(path, v)
	}
	return path
}

// OvershootTarget is the level a false breakout would reach if the breach
// extended breachDepth times the start-to-wall distance past the wall.
func (g *PathGenerator) OvershootTarget(targetWall, breachDepth float64) float64 {
	return targetWall + (targetWall-g.spec.StartValue)*breachDepth
}

// FalseBreakout approaches targetWall for the first half of the path and
// snaps back toward the start value for the remainder. The path has no seed
// element: the first value is already one step advanced.
//
// The second phase reverts toward the start value, not the overshoot target.
func (g *PathGenerator) FalseBreakout(targetWall, breachDepth, recovery float64) []float64 {
	path := make([]float64, 0, g.spec.Steps)
	v := g.spec.StartValue
	half := g.spec.Steps / 2

	for i := 0; i < half; i++ {
		v += (targetWall-v)*approachIntensity + g.gauss(g.spec.VolatilityUnit*approachNoise)
		path = append(path, v)
	}

	log.Debug().
		Float64("target_wall", targetWall).
		Float64("overshoot_target", g.OvershootTarget(targetWall, breachDepth)).
		Float64("recovery", recovery).
		Msg("False breakout entering recovery phase")

	for i := half; i < g.spec.Steps; i++ {
		v += (g.spec.StartValue-v)*recovery + g.gauss(g.spec.VolatilityUnit*recoveryNoise)
		path = append(path, v)
	}
	return path
}

// VolOption configures GenerateVolPath
type VolOption func(*volOptions)

type volOptions struct {
	target    float64
	hasTarget bool
	shockAt   int
	hasShock  bool
}

// WithVolTarget sets the level the volatility path reverts to
func WithVolTarget(target float64) VolOption {
	return func(o *volOptions) {
		o.target = target
		o.hasTarget = true
	}
}

// WithShockAt multiplies the volatility by 1.5 at iteration index. An index
// of zero or less disables the shock, like an unset option.
func WithShockAt(index int) VolOption {
	return func(o *volOptions) {
		o.shockAt = index
		o.hasShock = index > 0
	}
}

// GenerateVolPath produces a slowly mean-reverting volatility path of the
// generator's length starting at start. Emitted values never drop below
// MinVol; the internal state is not floored.
func (g *PathGenerator) GenerateVolPath(start float64, opts ...VolOption) []float64 {
	o := volOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	target := start
	if o.hasTarget {
		target = o.target
	}

	path := make([]float64, 0, g.spec.Steps)
	v := start
	path = append(path, math.Max(MinVol, v))
	for i := 0; i < g.spec.Steps-1; i++ {
		if o.hasShock && i == o.shockAt {
			v *= volShockFactor
		}
		v += (target-v)*volDrift + g.gauss(start*volNoise)
		path = append(path, math.Max(MinVol, v))
	}
	return path
}

// ConstantPath returns a path of the generator's length holding value
func (g *PathGenerator) ConstantPath(value float64) []float64 {
	path := make([]float64, g.spec.Steps)
	for i := range path {
		path[i] = value
	}
	return path
}
