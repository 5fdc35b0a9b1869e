// Package telemetry turns raw spot/volatility states into rounded, flagged
// telemetry records, one per simulated timestep.
package telemetry

import (
	"github.com/sawpanic/optionflight/internal/envelope"
)

// Output precision
const (
	SpotPlaces       = 2
	VolPlaces        = 4
	CoordinatePlaces = 3
)

// Record is one timestep of telemetry. JSON keys match the JSONL log
// format consumed by the viewer.
type Record struct {
	Timestamp     int             `json:"timestamp"`
	Spot          float64         `json:"spot"`
	ImpliedVol    float64         `json:"iv"`
	HistoricalVol float64         `json:"hv"`
	X             float64         `json:"x"`
	Y             float64         `json:"y"`
	Z             float64         `json:"z"`
	Regime        envelope.Regime `json:"regime"`
	Flags         Flags           `json:"flags"`
}

// Flagged reports whether any warning is active on the record
func (r Record) Flagged() bool {
	return !r.Flags.Empty()
}
