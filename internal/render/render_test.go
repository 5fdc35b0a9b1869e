package render

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/optionflight/internal/envelope"
	"github.com/sawpanic/optionflight/internal/telemetry"
)

var (
	recordsLine    = regexp.MustCompile(`let records = (.*);`)
	thresholdsLine = regexp.MustCompile(`const thresholds = (.*);`)
)

func sampleRecords() []telemetry.Record {
	engine := telemetry.NewEngine(envelope.New(envelope.DefaultConfig()))
	return []telemetry.Record{
		engine.ComputeStep(692.5, 0.15, 0.12, 0),
		engine.ComputeStep(750.0, 0.15, 0.12, 1),
	}
}

func TestRender_EmbedsRecordsAndConfig(t *testing.T) {
	r, err := NewRenderer("")
	require.NoError(t, err)

	var buf bytes.Buffer
	records := sampleRecords()
	require.NoError(t, r.Render(&buf, records, envelope.DefaultConfig()))

	html := buf.String()
	assert.Contains(t, html, "<title>Option Flight Telemetry</title>")
	assert.Contains(t, html, `"upper_wall":700`)

	m := recordsLine.FindStringSubmatch(html)
	require.Len(t, m, 2)
	var decoded []telemetry.Record
	require.NoError(t, json.Unmarshal([]byte(m[1]), &decoded))
	assert.Equal(t, records, decoded)
}

func TestRender_EmptyRecords(t *testing.T) {
	r, err := NewRenderer("")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, nil, envelope.DefaultConfig()))
	assert.Contains(t, buf.String(), "let records = [];")
}

func TestRender_EscapesTitle(t *testing.T) {
	r, err := NewRenderer("<script>alert(1)</script>")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, sampleRecords(), envelope.DefaultConfig()))
	assert.False(t, strings.Contains(buf.String(), "<script>alert(1)</script>"))
}

func TestRenderToFile(t *testing.T) {
	r, err := NewRenderer("breakout_test")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "breakout_test.html")
	require.NoError(t, r.RenderToFile(path, sampleRecords(), envelope.DefaultConfig()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "breakout_test")
	assert.Contains(t, string(data), `"regime":"RUPTURE"`)
}

func TestRender_EmbedsEnvelopeThresholds(t *testing.T) {
	r, err := NewRenderer("")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, sampleRecords(), envelope.DefaultConfig()))

	m := thresholdsLine.FindStringSubmatch(buf.String())
	require.Len(t, m, 2)
	var got Thresholds
	require.NoError(t, json.Unmarshal([]byte(m[1]), &got))
	assert.Equal(t, EnvelopeThresholds(), got)
	assert.Equal(t, envelope.RuptureAirspeed, got.RuptureAirspeed)
	assert.Equal(t, envelope.StallAirspeed, got.StallAirspeed)
	assert.Equal(t, envelope.RuptureLoad, got.RuptureLoad)
}

func TestRender_ThreeDimensionalControls(t *testing.T) {
	r, err := NewRenderer("")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, sampleRecords(), envelope.DefaultConfig()))
	html := buf.String()

	for _, want := range []string{
		"function project(x, y, z)",
		"function drawEnvelope()",
		"function updateCamera()",
		"KeyW", "KeyQ", "KeyE", "ArrowLeft", "Space", "KeyT",
		`id="upload"`,
	} {
		assert.Contains(t, html, want)
	}
}
