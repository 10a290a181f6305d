package util

import "strings"

// ListDelimiter separates array values inside a single flat-file column.
const ListDelimiter = ";"

// JoinList joins values with the flat-file array delimiter, skipping empties.
func JoinList(values []string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		parts = append(parts, v)
	}
	return strings.Join(parts, ListDelimiter)
}

// SplitList splits a flat-file array column back into trimmed values.
func SplitList(data string) []string {
	if data == "" {
		return nil
	}
	parts := strings.Split(data, ListDelimiter)
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		values = append(values, strings.TrimSpace(p))
	}
	return values
}

// CollapseWhitespace flattens newlines and runs of whitespace into single
// spaces so a value can live in one TSV cell.
func CollapseWhitespace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
