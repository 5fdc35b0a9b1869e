package telemetry

import (
	"fmt"

	"github.com/sawpanic/optionflight/internal/envelope"
	"github.com/sawpanic/optionflight/internal/numeric"
)

// Engine composes the envelope evaluation and regime classification into
// telemetry records
type Engine struct {
	envelope *envelope.Envelope
}

// NewEngine creates a telemetry engine over env
func NewEngine(env *envelope.Envelope) *Engine {
	return &Engine{envelope: env}
}

// Envelope returns the underlying evaluator
func (e *Engine) Envelope() *envelope.Envelope {
	return e.envelope
}

// ComputeStep evaluates one state and returns its rounded record. Only x and
// y feed the regime; z and the boundary flags do not.
func (e *Engine) ComputeStep(spot, impliedVol, historicalVol float64, timestamp int) Record {
	c := e.envelope.EvaluateState(spot, impliedVol, historicalVol)
	regime := envelope.Classify(c.X, c.Y)

	var flags Flags
	if c.IsBreached {
		flags = flags.With(FlagBreach)
	}
	if c.IsOverspeed {
		flags = flags.With(FlagOverspeed)
	}
	if c.IsStall {
		flags = flags.With(FlagStall)
	}

	return Record{
		Timestamp:     timestamp,
		Spot:          numeric.Round(spot, SpotPlaces),
		ImpliedVol:    numeric.Round(impliedVol, VolPlaces),
		HistoricalVol: numeric.Round(historicalVol, VolPlaces),
		X:             numeric.Round(c.X, CoordinatePlaces),
		Y:             numeric.Round(c.Y, CoordinatePlaces),
		Z:             numeric.Round(c.Z, CoordinatePlaces),
		Regime:        regime,
		Flags:         flags,
	}
}

// ComputeSeries computes one record per index of the parallel sequences,
// using the index as timestamp
func (e *Engine) ComputeSeries(spots, impliedVols, historicalVols []float64) ([]Record, error) {
	if len(spots) != len(impliedVols) || len(spots) != len(historicalVols) {
		return nil, fmt.Errorf("sequence length mismatch: spots=%d iv=%d hv=%d",
			len(spots), len(impliedVols), len(historicalVols))
	}

	records := make([]Record, len(spots))
	for i := range spots {
		records[i] = e.ComputeStep(spots[i], impliedVols[i], historicalVols[i], i)
	}
	return records, nil
}
