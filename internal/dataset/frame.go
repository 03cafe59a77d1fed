// Package dataset holds the in-memory review table passed between the scraper
// and the cleaner, and its CSV persistence.
package dataset

import (
	"errors"
	"fmt"
	"sort"
)

var ErrNoColumns = errors.New("dataset: none of the candidate columns are present")

// Row maps column name to cell. A nil cell is a missing value.
type Row map[string]any

// Frame is an ordered set of rows sharing one column list.
type Frame struct {
	Columns []string
	Rows    []Row
}

func New(columns ...string) *Frame {
	return &Frame{Columns: append([]string(nil), columns...)}
}

// FromRecords builds a frame from loosely shaped records. Columns are the
// union of record keys in first-seen order; keys within a record are taken
// in sorted order so the result does not depend on map iteration.
func FromRecords(recs []map[string]any) *Frame {
	f := &Frame{Rows: make([]Row, 0, len(recs))}
	seen := map[string]struct{}{}
	for _, r := range recs {
		keys := make([]string, 0, len(r))
		for k := range r {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				f.Columns = append(f.Columns, k)
			}
		}
		row := make(Row, len(r))
		for k, v := range r {
			row[k] = v
		}
		f.Rows = append(f.Rows, row)
	}
	return f
}

func (f *Frame) Len() int { return len(f.Rows) }

func (f *Frame) Has(col string) bool {
	for _, c := range f.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// FirstPresent returns the first candidate that is a column of f.
func (f *Frame) FirstPresent(candidates ...string) (string, bool) {
	for _, c := range candidates {
		if f.Has(c) {
			return c, true
		}
	}
	return "", false
}

// Project keeps the priority columns that are present, in priority order.
// An empty intersection is ErrNoColumns, reported with the columns found.
func (f *Frame) Project(priority []string) (*Frame, error) {
	var cols []string
	for _, c := range priority {
		if f.Has(c) {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: want one of %v, have %v", ErrNoColumns, priority, f.Columns)
	}

	out := &Frame{Columns: cols, Rows: make([]Row, 0, len(f.Rows))}
	for _, r := range f.Rows {
		nr := make(Row, len(cols))
		for _, c := range cols {
			nr[c] = r[c]
		}
		out.Rows = append(out.Rows, nr)
	}
	return out, nil
}

// Filter returns a frame holding the rows for which keep is true.
// Rows are shared, not copied.
func (f *Frame) Filter(keep func(Row) bool) *Frame {
	out := &Frame{Columns: f.Columns, Rows: make([]Row, 0, len(f.Rows))}
	for _, r := range f.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// Apply sets col on every row to fn(row), appending col to the column list
// when it is new.
func (f *Frame) Apply(col string, fn func(Row) any) {
	if !f.Has(col) {
		f.Columns = append(append([]string(nil), f.Columns...), col)
	}
	for _, r := range f.Rows {
		r[col] = fn(r)
	}
}
