package envelope

import (
	"math"

	"github.com/sawpanic/optionflight/internal/numeric"
)

// Boundary thresholds on structural airspeed
const (
	OverspeedAirspeed = 3.0
	StallAirspeed     = 0.2
)

// Coordinates is the normalized position of one state inside the envelope
type Coordinates struct {
	X float64 `json:"x"` // Structural airspeed |spot-pivot|/vu
	Y float64 `json:"y"` // Load factor iv/hv
	Z float64 `json:"z"` // Wall proximity, 0 at the wall and 1 at the pivot

	IsBreached  bool `json:"is_breached"`
	IsOverspeed bool `json:"is_overspeed"`
	IsStall     bool `json:"is_stall"`
}

// Envelope is a stateless evaluator over a fixed Config
type Envelope struct {
	config Config
}

// New creates an envelope evaluator. The configuration is not validated
// here; evaluation never fails on degenerate geometry.
func New(config Config) *Envelope {
	return &Envelope{config: config.WithDefaults()}
}

// NewValidated validates config before creating the evaluator
func NewValidated(config Config) (*Envelope, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return New(config), nil
}

// Config returns the envelope configuration
func (e *Envelope) Config() Config {
	return e.config
}

// EvaluateState maps a raw spot/iv/hv state to envelope coordinates
func (e *Envelope) EvaluateState(spot, impliedVol, historicalVol float64) Coordinates {
	cfg := e.config

	x := numeric.SafeDivide(math.Abs(spot-cfg.Pivot), cfg.VolatilityUnit, numeric.Epsilon)
	y := numeric.SafeDivide(impliedVol, historicalVol, numeric.Epsilon)

	wall := cfg.LowerWall
	if spot >= cfg.Pivot {
		wall = cfg.UpperWall
	}
	wallDist := math.Abs(wall - spot)
	maxDist := math.Abs(wall - cfg.Pivot)
	z := numeric.SafeDivide(wallDist, maxDist, numeric.Epsilon)

	return Coordinates{
		X:           x,
		Y:           y,
		Z:           z,
		IsBreached:  spot > cfg.UpperWall || spot < cfg.LowerWall,
		IsOverspeed: x > OverspeedAirspeed,
		IsStall:     x < StallAirspeed,
	}
}

// Regime classifies coordinates; only x and y participate
func (e *Envelope) Regime(c Coordinates) Regime {
	return Classify(c.X, c.Y)
}

