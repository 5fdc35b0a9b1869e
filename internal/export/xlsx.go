// Package export writes telemetry runs to spreadsheet workbooks.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/sawpanic/optionflight/internal/envelope"
	"github.com/sawpanic/optionflight/internal/persistence"
)

const (
	summarySheet = "Summary"
	maxSheetName = 31
)

var recordHeader = []interface{}{"timestamp", "spot", "iv", "hv", "x", "y", "z", "regime", "flags"}

// WriteXLSX writes a workbook with a Summary sheet and one sheet per run
func WriteXLSX(w io.Writer, runs []persistence.Run) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), summarySheet); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}
	if err := writeSummary(f, runs); err != nil {
		return err
	}

	used := map[string]bool{strings.ToLower(summarySheet): true}
	for _, run := range runs {
		name := sheetName(run.Name, used)
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
		if err := writeRecords(f, name, run); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, runs []persistence.Run) error {
	header := []interface{}{"run", "id", "path_type", "seed", "steps", "created_at", "max_load", "breached"}
	regimes := envelope.AllRegimes()
	for _, r := range regimes {
		header = append(header, r.String())
	}
	if err := f.SetSheetRow(summarySheet, "A1", &header); err != nil {
		return fmt.Errorf("write summary header: %w", err)
	}

	for i, run := range runs {
		s := run.Summarize(i)
		row := []interface{}{
			run.Name,
			run.ID.String(),
			run.PathType,
			fmt.Sprintf("%d", run.Seed),
			run.Steps,
			run.CreatedAt.Format(time.RFC3339),
			s.MaxLoad,
			s.Breached,
		}
		for _, r := range regimes {
			row = append(row, s.RegimeCounts[r.String()])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row %d: %w", i, err)
		}
	}
	return nil
}

func writeRecords(f *excelize.File, sheet string, run persistence.Run) error {
	if err := f.SetSheetRow(sheet, "A1", &recordHeader); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	for i, rec := range run.Records {
		row := []interface{}{
			rec.Timestamp,
			rec.Spot,
			rec.ImpliedVol,
			rec.HistoricalVol,
			rec.X,
			rec.Y,
			rec.Z,
			rec.Regime.String(),
			strings.Join(rec.Flags.Strings(), ","),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i, err)
		}
	}
	return nil
}

// sheetName makes a run name a valid, unique worksheet name
func sheetName(name string, used map[string]bool) string {
	base := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, name)
	base = strings.Trim(base, "'")
	if base == "" {
		base = "run"
	}
	base = truncateRunes(base, maxSheetName)

	candidate := base
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf("~%d", n)
		candidate = truncateRunes(base, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
