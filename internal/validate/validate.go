// Package validate re-reads written flat files and checks every column
// against the type annotation in its header. Problems are logged and
// reported; nothing is rolled back.
package validate

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/gyorilab/trialsynth/internal/util"
	"github.com/gyorilab/trialsynth/pkg/logger"
)

// expectedTypes are the header annotations the importer understands. Array
// columns carry a [] suffix on one of these.
var expectedTypes = map[string]struct{}{
	"string":  {},
	"integer": {},
	"boolean": {},
	"CURIE":   {},
	"LABEL":   {},
	"PHASE":   {},
	"DESIGN":  {},
	"OUTCOME": {},
}

// curiePatterns constrain the local identifier per known namespace. CURIEs in
// namespaces not listed here pass with a warning only.
var curiePatterns = map[string]*regexp.Regexp{
	"clinicaltrials": regexp.MustCompile(`^NCT\d+$`),
	"mesh":           regexp.MustCompile(`^[CD]\d{6,9}$`),
	"doid":           regexp.MustCompile(`^\d+$`),
	"efo":            regexp.MustCompile(`^\d+$`),
	"hp":             regexp.MustCompile(`^\d+$`),
	"mondo":          regexp.MustCompile(`^\d+$`),
	"chebi":          regexp.MustCompile(`^\d+$`),
	"drugbank":       regexp.MustCompile(`^DB\d{5}$`),
	"hgnc":           regexp.MustCompile(`^\d+$`),
	"pubmed":         regexp.MustCompile(`^\d+$`),
}

var phasePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

var designAttrs = []string{"Purpose:", "Allocation:", "Masking:", "Assignment:"}

// Validator checks flat files written by the store.
type Validator struct {
	log *logger.Logger

	problems int
}

// NewValidator creates a flat-file validator.
func NewValidator(log *logger.Logger) *Validator {
	if log == nil {
		log = logger.Nop()
	}
	return &Validator{log: log}
}

// Validate reads the gzipped TSV at path and checks headers and values. Every
// problem is logged; the returned error summarizes the count. A missing or
// unreadable file and an unknown header type are immediate errors.
func (v *Validator) Validate(path string) error {
	rows, err := readRows(path)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("validate %s: file has no header row", path)
	}

	headers := rows[0]
	types, err := headerTypes(path, headers)
	if err != nil {
		return err
	}

	v.problems = 0
	for rowNum, row := range rows[1:] {
		if len(row) != len(headers) {
			v.reportf("%s row %d: %d columns, header has %d", path, rowNum+2, len(row), len(headers))
			continue
		}
		for col, value := range row {
			v.validateValue(path, rowNum+2, headers[col], types[col], value)
		}
	}

	if v.problems > 0 {
		return fmt.Errorf("validate %s: %d problems found", path, v.problems)
	}
	v.log.Info("[validate] file is clean", "path", path, "rows", len(rows)-1)
	return nil
}

// columnType is one parsed header annotation.
type columnType struct {
	name  string
	base  string
	array bool
}

func headerTypes(path string, headers []string) ([]columnType, error) {
	types := make([]columnType, len(headers))
	for i, header := range headers {
		name, annotation, ok := strings.Cut(header, ":")
		if !ok || annotation == "" {
			// untyped columns validate as plain strings
			types[i] = columnType{name: header, base: "string"}
			continue
		}
		base, array := strings.CutSuffix(annotation, "[]")
		if _, known := expectedTypes[base]; !known {
			return nil, fmt.Errorf("validate %s: unknown type %q in header %q", path, base, header)
		}
		types[i] = columnType{name: name, base: base, array: array}
	}
	return types, nil
}

func (v *Validator) validateValue(path string, row int, header string, ct columnType, value string) {
	if value == "" {
		return
	}
	values := []string{value}
	if ct.array {
		values = util.SplitList(value)
	}
	for _, val := range values {
		if val == "" {
			continue
		}
		switch ct.base {
		case "string", "LABEL":
			// any non-empty cell is fine
		case "integer":
			if _, err := strconv.Atoi(val); err != nil {
				v.reportf("%s row %d column %s: %q is not an integer", path, row, header, val)
			}
		case "boolean":
			if val != "true" && val != "false" {
				v.reportf("%s row %d column %s: %q is not a boolean", path, row, header, val)
			}
		case "CURIE":
			v.validateCURIE(path, row, header, val)
		case "PHASE":
			if !phasePattern.MatchString(val) {
				v.reportf("%s row %d column %s: %q is not a normalized phase", path, row, header, val)
			}
		case "DESIGN":
			v.validateDesign(path, row, header, val)
		case "OUTCOME":
			v.validateOutcome(path, row, header, val)
		}
	}
}

func (v *Validator) validateCURIE(path string, row int, header, value string) {
	ns, id, ok := strings.Cut(value, ":")
	if !ok || ns == "" || id == "" {
		v.reportf("%s row %d column %s: %q is not a CURIE", path, row, header, value)
		return
	}
	pattern, known := curiePatterns[ns]
	if !known {
		v.log.Warn("[validate] CURIE in unrecognized namespace", "path", path, "row", row, "column", header, "curie", value)
		return
	}
	if !pattern.MatchString(id) {
		v.reportf("%s row %d column %s: id of %q does not match the %s pattern", path, row, header, value, ns)
	}
}

// validateDesign accepts a raw fallback value (no design attributes at all)
// or the structured form with attributes in canonical order.
func (v *Validator) validateDesign(path string, row int, header, value string) {
	parts := strings.Split(value, ";")
	if len(parts) == 1 && !strings.HasPrefix(strings.TrimSpace(value), designAttrs[0]) {
		return
	}
	if len(parts) != len(designAttrs) {
		v.reportf("%s row %d column %s: design %q has %d attributes, want %d", path, row, header, value, len(parts), len(designAttrs))
		return
	}
	for i, part := range parts {
		if !strings.HasPrefix(strings.TrimSpace(part), designAttrs[i]) {
			v.reportf("%s row %d column %s: design %q not in expected format", path, row, header, value)
			return
		}
	}
}

// validateOutcome checks the "Measure: ..., Time Frame: ..." shape. Measures
// may themselves contain commas, so only the leading label and the presence
// of the time-frame label are checked.
func (v *Validator) validateOutcome(path string, row int, header, value string) {
	if !strings.HasPrefix(value, "Measure:") || !strings.Contains(value, "Time Frame:") {
		v.reportf("%s row %d column %s: outcome %q not in expected format", path, row, header, value)
	}
}

func (v *Validator) reportf(format string, args ...any) {
	v.problems++
	v.log.Warn("[validate] " + fmt.Sprintf(format, args...))
}

func readRows(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defer gz.Close()

	reader := csv.NewReader(gz)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return rows, nil
}
