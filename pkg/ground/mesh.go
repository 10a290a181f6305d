package ground

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"os"
	"strings"

	"github.com/gyorilab/trialsynth/pkg/logger"
)

// meshEntry is one MESH descriptor or supplementary record from the offline
// vocabulary table.
type meshEntry struct {
	name        string
	treeNumbers []string
}

// MeshTable is an in-memory MESH vocabulary index backed by a gzipped TSV
// file with three columns: identifier, canonical name, and a pipe-separated
// list of tree numbers. It satisfies MeshData.
type MeshTable struct {
	entries map[string]meshEntry
}

// LoadMeshTable reads the offline MESH vocabulary from path. Rows with fewer
// than two columns are rejected so a truncated download fails loudly instead
// of silently degrading grounding quality.
func LoadMeshTable(path string, log *logger.Logger) (*MeshTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mesh table: %w", err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("read mesh table %s: %w", path, err)
	}
	defer gz.Close()

	table := &MeshTable{entries: make(map[string]meshEntry)}

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		row := scanner.Text()
		if row == "" {
			continue
		}
		fields := strings.Split(row, "\t")
		if len(fields) < 2 {
			return nil, fmt.Errorf("mesh table %s line %d: expected at least 2 columns, got %d", path, line, len(fields))
		}
		entry := meshEntry{name: fields[1]}
		if len(fields) > 2 && fields[2] != "" {
			entry.treeNumbers = strings.Split(fields[2], "|")
		}
		table.entries[fields[0]] = entry
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan mesh table %s: %w", path, err)
	}

	log.Info("[ground] loaded offline mesh table", "path", path, "entries", len(table.entries))
	return table, nil
}

// NewMeshTable builds a table directly from id to entry data. Used by tests
// and by callers that materialize the vocabulary some other way.
func NewMeshTable(names map[string]string, trees map[string][]string) *MeshTable {
	table := &MeshTable{entries: make(map[string]meshEntry, len(names))}
	for id, name := range names {
		table.entries[id] = meshEntry{name: name, treeNumbers: trees[id]}
	}
	return table
}

// Name returns the canonical name for a MESH identifier, if known.
func (t *MeshTable) Name(id string) (string, bool) {
	entry, ok := t.entries[id]
	if !ok {
		return "", false
	}
	return entry.name, true
}

// HasTreePrefix reports whether any tree number of the identifier starts with
// the given prefix. Unknown identifiers have no tree numbers.
func (t *MeshTable) HasTreePrefix(id, prefix string) bool {
	entry, ok := t.entries[id]
	if !ok {
		return false
	}
	for _, tree := range entry.treeNumbers {
		if strings.HasPrefix(tree, prefix) {
			return true
		}
	}
	return false
}
