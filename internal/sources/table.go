package sources

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Table is the row contract between file formats and the normalizer:
// a header plus records addressable by column name or index.
// ⭐ SSOT: 파일 포맷 파싱은 sources 패키지에서만
type Table struct {
	Name   string
	Header []string
	Rows   [][]string

	index map[string]int
}

// NewTable builds a table; column lookup ignores case and surrounding spaces
func NewTable(name string, header []string, rows [][]string) *Table {
	t := &Table{
		Name:   name,
		Header: header,
		Rows:   rows,
		index:  make(map[string]int, len(header)),
	}
	for i, h := range header {
		key := columnKey(h)
		if _, exists := t.index[key]; !exists {
			t.index[key] = i
		}
	}
	return t
}

func columnKey(name string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
}

// Column returns the index of a named column
func (t *Table) Column(name string) (int, bool) {
	i, ok := t.index[columnKey(name)]
	return i, ok
}

// HasColumns reports whether every named column exists
func (t *Table) HasColumns(names ...string) bool {
	for _, n := range names {
		if _, ok := t.Column(n); !ok {
			return false
		}
	}
	return true
}

// Value returns the trimmed cell of a row by column name ("" when absent)
func (t *Table) Value(row []string, column string) string {
	i, ok := t.Column(column)
	if !ok {
		return ""
	}
	return Cell(row, i)
}

// Cell returns the trimmed cell at index i ("" when the row is short)
func Cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Len returns the number of data rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// ParseCSV reads a CSV document with a header row
func ParseCSV(name string, r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // upstream rows are occasionally ragged
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse %s: missing header row", name)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s header: %w", name, err)
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s rows: %w", name, err)
	}

	return NewTable(name, header, rows), nil
}
