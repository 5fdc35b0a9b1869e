package io

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	stdio "io"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/optionflight/internal/telemetry"
)

// maxLineSize bounds a single JSONL record line
const maxLineSize = 1 << 20

// SaveLog writes records to path, one JSON object per line
func SaveLog(path string, records []telemetry.Record) error {
	lines := make([][]byte, 0, len(records))
	for i, rec := range records {
		line, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record %d: %w", i, err)
		}
		lines = append(lines, line)
	}

	if err := WriteLinesAtomic(path, lines); err != nil {
		return fmt.Errorf("write telemetry log %s: %w", path, err)
	}

	log.Debug().Str("path", path).Int("records", len(records)).Msg("Telemetry log saved")
	return nil
}

// LoadLog reads a JSONL telemetry log from path
func LoadLog(path string) ([]telemetry.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open telemetry log: %w", err)
	}
	defer f.Close()

	records, err := ReadLog(f)
	if err != nil {
		return nil, fmt.Errorf("read telemetry log %s: %w", path, err)
	}
	return records, nil
}

// ReadLog decodes JSONL records from r. Blank lines are skipped.
func ReadLog(r stdio.Reader) ([]telemetry.Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var records []telemetry.Record
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var rec telemetry.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// WriteLog encodes records to w as JSONL
func WriteLog(w stdio.Writer, records []telemetry.Record) error {
	enc := json.NewEncoder(w)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode record %d: %w", i, err)
		}
	}
	return nil
}
