package telemetry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/optionflight/internal/dynamics"
	"github.com/sawpanic/optionflight/internal/envelope"
)

func newTestEngine() *Engine {
	return NewEngine(envelope.New(envelope.DefaultConfig()))
}

func TestComputeStep_AtPivot(t *testing.T) {
	rec := newTestEngine().ComputeStep(692.5, 0.15, 0.12, 0)

	assert.Equal(t, 0, rec.Timestamp)
	assert.Equal(t, 692.5, rec.Spot)
	assert.Equal(t, 0.0, rec.X)
	assert.Equal(t, 1.25, rec.Y)
	assert.Equal(t, 1.0, rec.Z)
	assert.Equal(t, envelope.Taxi, rec.Regime)
	// x=0 is below the stall threshold
	assert.Equal(t, []string{"STALL"}, rec.Flags.Strings())
}

func TestComputeStep_Breakout(t *testing.T) {
	rec := newTestEngine().ComputeStep(750.0, 0.15, 0.12, 9)

	assert.Equal(t, 9, rec.Timestamp)
	assert.Equal(t, 20.536, rec.X)
	assert.Equal(t, 1.25, rec.Y)
	assert.Equal(t, 6.667, rec.Z)
	assert.Equal(t, envelope.Rupture, rec.Regime)
	assert.Equal(t, []Flag{FlagBreach, FlagOverspeed}, rec.Flags.List())
}

func TestComputeStep_NoFlags(t *testing.T) {
	rec := newTestEngine().ComputeStep(695.3, 0.15, 0.12, 1)

	assert.Equal(t, 1.0, rec.X)
	assert.Equal(t, envelope.Cruise, rec.Regime)
	assert.True(t, rec.Flags.Empty())
	assert.False(t, rec.Flagged())

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"flags":[]`)
}

func TestComputeStep_Rounding(t *testing.T) {
	rec := newTestEngine().ComputeStep(693.123456, 0.1234567, 0.0987654, 3)

	assert.Equal(t, 693.12, rec.Spot)
	assert.Equal(t, 0.1235, rec.ImpliedVol)
	assert.Equal(t, 0.0988, rec.HistoricalVol)
	assert.Equal(t, 0.223, rec.X)
	assert.Equal(t, 1.25, rec.Y)
}

func TestComputeStep_RegimeIgnoresFlags(t *testing.T) {
	// Breached below the lower wall with x just under 4.5 and y modest: maneuver, not rupture
	rec := newTestEngine().ComputeStep(679.95, 0.12, 0.12, 0)

	assert.True(t, rec.Flags.Has(FlagBreach))
	assert.True(t, rec.Flags.Has(FlagOverspeed))
	assert.Equal(t, envelope.Maneuver, rec.Regime)
}

func TestRecord_JSONSchema(t *testing.T) {
	rec := newTestEngine().ComputeStep(750.0, 0.15, 0.12, 4)

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"timestamp":4,"spot":750,"iv":0.15,"hv":0.12,"x":20.536,"y":1.25,"z":6.667,"regime":"RUPTURE","flags":["BREACH","OVERSPEED"]}`,
		string(data))
}

func TestRecord_RoundTrip(t *testing.T) {
	gen, err := dynamics.NewPathGenerator(dynamics.PathSpec{StartValue: 694, VolatilityUnit: 2.8, Steps: 200}, dynamics.NewSource(99))
	require.NoError(t, err)

	spots := gen.Breakout(1, dynamics.DefaultBreakoutSpeed, dynamics.DefaultBreakoutNoise)
	ivs := gen.GenerateVolPath(0.15, dynamics.WithShockAt(50))
	hvs := gen.ConstantPath(0.12)

	records, err := newTestEngine().ComputeSeries(spots, ivs, hvs)
	require.NoError(t, err)
	require.Len(t, records, 200)

	for _, rec := range records {
		data, err := json.Marshal(rec)
		require.NoError(t, err)

		var decoded Record
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, rec, decoded)

		again, err := json.Marshal(decoded)
		require.NoError(t, err)
		assert.Equal(t, string(data), string(again))
	}
}

func TestComputeSeries_LengthMismatch(t *testing.T) {
	_, err := newTestEngine().ComputeSeries([]float64{1, 2}, []float64{0.1}, []float64{0.1, 0.1})
	assert.Error(t, err)
}

func TestFlags_JSON(t *testing.T) {
	var fs Flags
	require.NoError(t, json.Unmarshal([]byte(`["STALL","BREACH"]`), &fs))
	assert.True(t, fs.Has(FlagBreach))
	assert.True(t, fs.Has(FlagStall))
	assert.False(t, fs.Has(FlagOverspeed))

	data, err := json.Marshal(fs)
	require.NoError(t, err)
	assert.Equal(t, `["BREACH","STALL"]`, string(data), "output order is fixed")

	var empty Flags
	require.NoError(t, json.Unmarshal([]byte(`null`), &empty))
	assert.True(t, empty.Empty())

	assert.Error(t, json.Unmarshal([]byte(`["WARP"]`), &fs))
}
