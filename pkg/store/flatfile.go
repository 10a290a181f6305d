// Package store persists flattened rows as compressed TSV flat files, the
// exchange format the downstream graph importer consumes.
package store

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gyorilab/trialsynth/pkg/logger"
)

// SaveParams describes one flat-file write.
type SaveParams struct {
	Rows    [][]string
	Path    string
	Headers []string
	// SamplePath, when set together with NumSamples, receives an uncompressed
	// TSV with the header row and the first NumSamples rows.
	SamplePath string
	NumSamples int

	Log *logger.Logger
}

// SaveFlatFile writes rows as a gzipped TSV with a header row. The file is
// written to a temporary sibling first and renamed into place, so an aborted
// run never leaves a truncated file at the target path.
func SaveFlatFile(params SaveParams) error {
	log := params.Log
	if log == nil {
		log = logger.Nop()
	}

	for _, row := range params.Rows {
		if len(row) != len(params.Headers) {
			return fmt.Errorf("save %s: row has %d columns, headers have %d", params.Path, len(row), len(params.Headers))
		}
	}

	if params.SamplePath != "" && params.NumSamples > 0 {
		if err := saveSample(params); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(params.Path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(params.Path), filepath.Base(params.Path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	gz := gzip.NewWriter(tmp)
	writer := csv.NewWriter(gz)
	writer.Comma = '\t'

	if err := writer.Write(params.Headers); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}
	if err := writer.WriteAll(params.Rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("flush gzip: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), params.Path); err != nil {
		return fmt.Errorf("promote %s: %w", params.Path, err)
	}

	log.Info("[store] wrote flat file", "path", params.Path, "rows", len(params.Rows))
	return nil
}

func saveSample(params SaveParams) error {
	if err := os.MkdirAll(filepath.Dir(params.SamplePath), 0o755); err != nil {
		return fmt.Errorf("create sample dir: %w", err)
	}
	file, err := os.Create(params.SamplePath)
	if err != nil {
		return fmt.Errorf("create sample file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	writer.Comma = '\t'

	if err := writer.Write(params.Headers); err != nil {
		return fmt.Errorf("write sample headers: %w", err)
	}
	n := params.NumSamples
	if n > len(params.Rows) {
		n = len(params.Rows)
	}
	if err := writer.WriteAll(params.Rows[:n]); err != nil {
		return fmt.Errorf("write sample rows: %w", err)
	}
	writer.Flush()
	return writer.Error()
}
