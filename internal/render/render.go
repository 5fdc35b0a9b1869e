// Package render produces a self-contained HTML viewer for telemetry runs.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/optionflight/internal/envelope"
	simio "github.com/sawpanic/optionflight/internal/io"
	"github.com/sawpanic/optionflight/internal/telemetry"
)

const defaultTitle = "Option Flight Telemetry"

// viewerData holds data passed to the HTML template. All JSON fields are
// passed through json.HTMLEscape before being marked safe.
type viewerData struct {
	Title          string
	ConfigJSON     template.JS
	ThresholdsJSON template.JS
	RecordsJSON    template.JS
}

// Thresholds are the classifier and boundary levels the viewer draws as
// planes inside the envelope
type Thresholds struct {
	StallAirspeed     float64 `json:"stall_airspeed"`
	TaxiAirspeed      float64 `json:"taxi_airspeed"`
	ManeuverSpeed     float64 `json:"maneuver_speed"`
	OverspeedAirspeed float64 `json:"overspeed_airspeed"`
	RuptureAirspeed   float64 `json:"rupture_airspeed"`
	ManeuverLoad      float64 `json:"maneuver_load"`
	RuptureLoad       float64 `json:"rupture_load"`
}

// EnvelopeThresholds returns the levels used by envelope evaluation and
// regime classification
func EnvelopeThresholds() Thresholds {
	return Thresholds{
		StallAirspeed:     envelope.StallAirspeed,
		TaxiAirspeed:      envelope.TaxiAirspeed,
		ManeuverSpeed:     envelope.ManeuverSpeed,
		OverspeedAirspeed: envelope.OverspeedAirspeed,
		RuptureAirspeed:   envelope.RuptureAirspeed,
		ManeuverLoad:      envelope.ManeuverLoad,
		RuptureLoad:       envelope.RuptureLoad,
	}
}

// Renderer renders telemetry records into the HTML viewer
type Renderer struct {
	tmpl  *template.Template
	title string
}

// NewRenderer parses the embedded viewer template. An empty title uses
// the default.
func NewRenderer(title string) (*Renderer, error) {
	tmplBytes, err := templates.ReadFile("templates/viewer.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("read HTML template: %w", err)
	}

	tmpl, err := template.New("viewer").Parse(string(tmplBytes))
	if err != nil {
		return nil, fmt.Errorf("parse HTML template: %w", err)
	}

	if title == "" {
		title = defaultTitle
	}
	return &Renderer{tmpl: tmpl, title: title}, nil
}

// Render writes the viewer for records scored against cfg to w
func (r *Renderer) Render(w io.Writer, records []telemetry.Record, cfg envelope.Config) error {
	if records == nil {
		records = []telemetry.Record{}
	}

	configJSON, err := escapedJSON(cfg)
	if err != nil {
		return fmt.Errorf("marshal envelope config: %w", err)
	}
	thresholdsJSON, err := escapedJSON(EnvelopeThresholds())
	if err != nil {
		return fmt.Errorf("marshal thresholds: %w", err)
	}
	recordsJSON, err := escapedJSON(records)
	if err != nil {
		return fmt.Errorf("marshal telemetry records: %w", err)
	}

	data := viewerData{
		Title:          r.title,
		ConfigJSON:     template.JS(configJSON),     // #nosec G203
		ThresholdsJSON: template.JS(thresholdsJSON), // #nosec G203
		RecordsJSON:    template.JS(recordsJSON),    // #nosec G203
	}
	if err := r.tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("execute HTML template: %w", err)
	}
	return nil
}

// RenderToFile writes the viewer atomically to path
func (r *Renderer) RenderToFile(path string, records []telemetry.Record, cfg envelope.Config) error {
	var buf bytes.Buffer
	if err := r.Render(&buf, records, cfg); err != nil {
		return err
	}
	if err := simio.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write viewer: %w", err)
	}

	log.Info().Str("path", path).Int("records", len(records)).Msg("Visualization saved")
	return nil
}

func escapedJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	var escaped bytes.Buffer
	json.HTMLEscape(&escaped, raw)
	return escaped.String(), nil
}
