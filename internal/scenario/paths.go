package scenario

import (
	"slices"

	"github.com/sawpanic/optionflight/internal/dynamics"
	"github.com/sawpanic/optionflight/internal/envelope"
)

// Supported path types
const (
	PathMeanRevert    = "mean_revert"
	PathBreakout      = "breakout"
	PathFalseBreakout = "false_breakout"
	PathVolShock      = "vol_shock"
)

// volShockTarget scales the starting IV into the post-shock reversion level
const volShockTarget = 1.5

// PathTypes lists the supported path types
func PathTypes() []string {
	return []string{PathMeanRevert, PathBreakout, PathFalseBreakout, PathVolShock}
}

// NormalizePathType maps unknown path types to mean_revert
func NormalizePathType(pathType string) string {
	if slices.Contains(PathTypes(), pathType) {
		return pathType
	}
	return PathMeanRevert
}

type series struct {
	spots []float64
	ivs   []float64
	hvs   []float64
}

// generate draws the spot path before the volatility path from the same
// generator, so a seed fully determines both
func generate(gen *dynamics.PathGenerator, cfg envelope.Config, pathType string, startIV, hv float64) series {
	var s series

	switch pathType {
	case PathBreakout:
		s.spots = gen.Breakout(1, dynamics.DefaultBreakoutSpeed, dynamics.DefaultBreakoutNoise)
	case PathFalseBreakout:
		s.spots = gen.FalseBreakout(cfg.UpperWall, dynamics.DefaultBreachDepth, dynamics.DefaultRecovery)
	default:
		s.spots = gen.MeanRevertPin(cfg.Pivot, dynamics.DefaultPinIntensity, dynamics.DefaultPinNoise)
	}

	if pathType == PathVolShock {
		steps := gen.Spec().Steps
		s.ivs = gen.GenerateVolPath(startIV,
			dynamics.WithVolTarget(startIV*volShockTarget),
			dynamics.WithShockAt(steps/2))
	} else {
		s.ivs = gen.GenerateVolPath(startIV)
	}

	s.hvs = gen.ConstantPath(hv)
	return s
}
