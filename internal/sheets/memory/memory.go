// Package memory is an in-process Gateway used for local development and
// tests. Tables can be seeded from CSV files.
package memory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"lihkab/internal/sheets"
)

type Store struct {
	mu     sync.Mutex
	tables map[string]sheets.Table
	writes int
}

// New returns a store holding a copy of each given table.
func New(tables map[string]sheets.Table) *Store {
	s := &Store{tables: make(map[string]sheets.Table, len(tables))}
	for name, t := range tables {
		s.tables[name] = t.Clone()
	}
	return s
}

// NewFromDir seeds one table per name from <dir>/<name>.csv. Missing files
// fall back to the table in defaults, if any.
func NewFromDir(dir string, names []string, defaults map[string]sheets.Table) (*Store, error) {
	s := New(nil)
	for _, name := range names {
		t, err := ReadCSVFile(filepath.Join(dir, name+".csv"))
		switch {
		case errors.Is(err, os.ErrNotExist):
			if d, ok := defaults[name]; ok {
				s.tables[name] = d.Clone()
			}
		case err != nil:
			return nil, fmt.Errorf("seed table %s: %w", name, err)
		default:
			s.tables[name] = t
		}
	}
	return s, nil
}

// Read returns a copy of the named table.
func (s *Store) Read(_ context.Context, table string) (sheets.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[table]
	if !ok {
		return sheets.Table{}, fmt.Errorf("%w: %s", sheets.ErrTableNotFound, table)
	}
	return t.Clone(), nil
}

// Write replaces the named table, creating it if needed.
func (s *Store) Write(_ context.Context, table string, t sheets.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = t.Clone()
	s.writes++
	return nil
}

// Writes returns how many writes the store has accepted.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// ReadCSVFile loads a table from a CSV file whose first record is the header.
func ReadCSVFile(path string) (sheets.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return sheets.Table{}, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses CSV into a table with the same rules as a spreadsheet read.
func ReadCSV(r io.Reader) (sheets.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return sheets.Table{}, err
	}
	values := make([][]interface{}, len(records))
	for i, rec := range records {
		line := make([]interface{}, len(rec))
		for j, cell := range rec {
			line[j] = cell
		}
		values[i] = line
	}
	return sheets.FromValues(values), nil
}

// WriteCSV writes t as CSV with the header first.
func WriteCSV(w io.Writer, t sheets.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	for _, r := range t.Rows {
		rec := make([]string, len(t.Header))
		for i, h := range t.Header {
			rec[i] = r[h]
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
