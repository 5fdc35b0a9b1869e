package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/optionflight/internal/envelope"
	"github.com/sawpanic/optionflight/internal/telemetry"
)

func counterValue(t *testing.T, c interface{ Write(*dto.Metric) error }) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestObserveRecords(t *testing.T) {
	m := NewRegistry()
	engine := telemetry.NewEngine(envelope.New(envelope.DefaultConfig()))

	records := []telemetry.Record{
		engine.ComputeStep(692.5, 0.15, 0.12, 0),
		engine.ComputeStep(750.0, 0.15, 0.12, 1),
		engine.ComputeStep(694.0, 0.15, 0.12, 2),
	}
	m.ObserveRecords("breakout", records)

	assert.Equal(t, 3.0, counterValue(t, m.StepsTotal.WithLabelValues("breakout")))
	assert.Equal(t, 1.0, counterValue(t, m.RegimeSteps.WithLabelValues("breakout", "RUPTURE")))
	assert.Equal(t, 1.0, counterValue(t, m.FlagSteps.WithLabelValues("breakout", "BREACH")))
	assert.Equal(t, 1.0, counterValue(t, m.FlagSteps.WithLabelValues("breakout", "OVERSPEED")))

	var hist dto.Metric
	require.NoError(t, m.MaxLoad.WithLabelValues("breakout").(interface{ Write(*dto.Metric) error }).Write(&hist))
	assert.Equal(t, uint64(1), hist.GetHistogram().GetSampleCount())
	assert.Equal(t, records[1].Y, hist.GetHistogram().GetSampleSum())
}

func TestObserveRecords_Empty(t *testing.T) {
	m := NewRegistry()
	m.ObserveRecords("mean_revert", nil)
	assert.Equal(t, 0.0, counterValue(t, m.StepsTotal.WithLabelValues("mean_revert")))
}

func TestRunTimer(t *testing.T) {
	m := NewRegistry()

	m.StartRun("scenario", "breakout").Stop(nil)
	m.StartRun("scenario", "breakout").Stop(errors.New("boom"))

	assert.Equal(t, 1.0, counterValue(t, m.RunsTotal.WithLabelValues("scenario", "breakout")))
	assert.Equal(t, 1.0, counterValue(t, m.RunErrors.WithLabelValues("scenario")))

	var gauge dto.Metric
	require.NoError(t, m.ActiveRuns.Write(&gauge))
	assert.Equal(t, 0.0, gauge.GetGauge().GetValue())
}

func TestHandler(t *testing.T) {
	m := NewRegistry()
	m.SetBreachRate("false_breakout", 0.4)
	m.RecordCacheHit()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `optionflight_montecarlo_breach_rate{path_type="false_breakout"} 0.4`))
	assert.True(t, strings.Contains(body, "optionflight_summary_cache_hits_total 1"))
}

func TestRegistriesAreIndependent(t *testing.T) {
	a := NewRegistry()
	b := NewRegistry()
	a.RecordCacheMiss()
	assert.Equal(t, 1.0, counterValue(t, a.CacheMisses))
	assert.Equal(t, 0.0, counterValue(t, b.CacheMisses))
}
