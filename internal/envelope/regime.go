package envelope

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Regime is the categorical flight regime of a telemetry step
type Regime int

const (
	Taxi Regime = iota
	Cruise
	Maneuver
	Rupture
)

// Classification thresholds
const (
	RuptureLoad     = 2.5
	RuptureAirspeed = 4.5
	TaxiAirspeed    = 0.3
	ManeuverLoad    = 1.5
	ManeuverSpeed   = 2.5
)

func (r Regime) String() string {
	switch r {
	case Taxi:
		return "TAXI"
	case Cruise:
		return "CRUISE"
	case Maneuver:
		return "MANEUVER"
	case Rupture:
		return "RUPTURE"
	default:
		return "UNKNOWN"
	}
}

// AllRegimes lists regimes in severity order
func AllRegimes() []Regime {
	return []Regime{Taxi, Cruise, Maneuver, Rupture}
}

// ParseRegime parses a regime name (case-insensitive)
func ParseRegime(s string) (Regime, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TAXI":
		return Taxi, nil
	case "CRUISE":
		return Cruise, nil
	case "MANEUVER":
		return Maneuver, nil
	case "RUPTURE":
		return Rupture, nil
	default:
		return Taxi, fmt.Errorf("unknown regime: %q", s)
	}
}

// MarshalJSON encodes the regime by name
func (r Regime) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON decodes a regime name
func (r *Regime) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("regime must be a string: %w", err)
	}
	parsed, err := ParseRegime(name)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Classify maps airspeed (x) and load factor (y) to a regime.
// Clauses are evaluated in order and the first match wins, so a point that
// satisfies both the rupture and maneuver predicates is a rupture.
func Classify(x, y float64) Regime {
	switch {
	case y > RuptureLoad || x > RuptureAirspeed:
		return Rupture
	case x < TaxiAirspeed:
		return Taxi
	case y > ManeuverLoad || x > ManeuverSpeed:
		return Maneuver
	default:
		return Cruise
	}
}
