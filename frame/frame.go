// Package frame provides the in-memory dataset passed between the decoder,
// validator, transformer and exporter. A Frame is column-ordered: the decoder
// fixes the column order from the file, the validator reorders a copy to the
// schema's declared order, and the transformer appends derived columns.
package frame

import (
	"github.com/nexabank/bankfeed/errors"
)

// Kind is the inferred scalar type of a column.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int64"
	case KindFloat:
		return "float64"
	case KindBool:
		return "bool"
	default:
		return "string"
	}
}

// Frame holds tabular data with a fixed column order. Cell values are one of
// int64, float64, bool or string.
type Frame struct {
	cols  []string
	index map[string]int
	rows  [][]any
}

// New creates an empty frame with the given column order.
func New(cols []string) (*Frame, error) {
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		if _, dup := index[c]; dup {
			return nil, errors.Newf("duplicate column %q", c)
		}
		index[c] = i
	}
	return &Frame{
		cols:  append([]string(nil), cols...),
		index: index,
	}, nil
}

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	return append([]string(nil), f.cols...)
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.rows)
}

// HasColumn reports whether the frame contains the named column.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.index[name]
	return ok
}

// AppendRow adds one row. The value count must match the column count.
func (f *Frame) AppendRow(values []any) error {
	if len(values) != len(f.cols) {
		return errors.Newf("row has %d values, frame has %d columns", len(values), len(f.cols))
	}
	f.rows = append(f.rows, append([]any(nil), values...))
	return nil
}

// Value returns the cell at (row, column).
func (f *Frame) Value(row int, col string) (any, bool) {
	i, ok := f.index[col]
	if !ok || row < 0 || row >= len(f.rows) {
		return nil, false
	}
	return f.rows[row][i], true
}

// SetValue overwrites the cell at (row, column). Returns false when the
// coordinates are out of range.
func (f *Frame) SetValue(row int, col string, value any) bool {
	i, ok := f.index[col]
	if !ok || row < 0 || row >= len(f.rows) {
		return false
	}
	f.rows[row][i] = value
	return true
}

// Column returns all values of one column in row order.
func (f *Frame) Column(name string) ([]any, error) {
	i, ok := f.index[name]
	if !ok {
		return nil, errors.Wrapf(errors.ErrMissingColumn, "%q", name)
	}
	out := make([]any, len(f.rows))
	for r := range f.rows {
		out[r] = f.rows[r][i]
	}
	return out, nil
}

// AppendColumn adds a derived column. The value count must match the row count.
func (f *Frame) AppendColumn(name string, values []any) error {
	if _, dup := f.index[name]; dup {
		return errors.Newf("column %q already exists", name)
	}
	if len(values) != len(f.rows) {
		return errors.Newf("column %q has %d values, frame has %d rows", name, len(values), len(f.rows))
	}
	f.index[name] = len(f.cols)
	f.cols = append(f.cols, name)
	for r := range f.rows {
		f.rows[r] = append(f.rows[r], values[r])
	}
	return nil
}

// Select returns a new frame containing exactly the named columns in the given
// order. The receiver is left untouched; row slices are copied, not shared.
// A missing column yields ErrMissingColumn.
func (f *Frame) Select(cols []string) (*Frame, error) {
	indices := make([]int, len(cols))
	for i, c := range cols {
		idx, ok := f.index[c]
		if !ok {
			return nil, errors.Wrapf(errors.ErrMissingColumn, "%q", c)
		}
		indices[i] = idx
	}

	out, err := New(cols)
	if err != nil {
		return nil, err
	}
	out.rows = make([][]any, len(f.rows))
	for r := range f.rows {
		row := make([]any, len(indices))
		for i, idx := range indices {
			row[i] = f.rows[r][idx]
		}
		out.rows[r] = row
	}
	return out, nil
}

// Kind infers the scalar type of a column: KindInt when every value is int64,
// KindFloat when every value is numeric with at least one float64, otherwise
// KindString (mirroring how a parser with mixed content falls back to text).
// An empty or missing column is KindString.
func (f *Frame) Kind(name string) Kind {
	i, ok := f.index[name]
	if !ok || len(f.rows) == 0 {
		return KindString
	}

	kind := KindInt
	for r := range f.rows {
		switch f.rows[r][i].(type) {
		case int64:
		case float64:
			kind = KindFloat
		case bool:
			return KindBool
		default:
			return KindString
		}
	}
	return kind
}
