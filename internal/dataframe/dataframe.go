// Package dataframe provides the ordered-column table used as input and
// output of the preprocessing transformers.
package dataframe

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/paveg/tabprep/internal/errors"
	"github.com/paveg/tabprep/internal/validation"
)

// DataFrame represents a table of data with typed columns.
// Derived frames (Select, Drop, Rename, WithColumns) share series with their
// source; release only the frame that owns the series.
type DataFrame struct {
	columns map[string]ISeries
	order   []string // Maintains column order
}

// New creates a new DataFrame from a slice of ISeries
func New(series ...ISeries) *DataFrame {
	columns := make(map[string]ISeries)
	order := make([]string, 0, len(series))

	for _, s := range series {
		name := s.Name()
		if _, dup := columns[name]; !dup {
			order = append(order, name)
		}
		columns[name] = s
	}

	return &DataFrame{
		columns: columns,
		order:   order,
	}
}

// Columns returns the names of all columns in order
func (df *DataFrame) Columns() []string {
	if len(df.order) == 0 {
		return []string{}
	}
	return append([]string(nil), df.order...)
}

// Len returns the number of rows (assumes all columns have same length)
func (df *DataFrame) Len() int {
	if len(df.order) == 0 {
		return 0
	}
	return df.columns[df.order[0]].Len()
}

// Width returns the number of columns
func (df *DataFrame) Width() int {
	return len(df.columns)
}

// Column returns the series for the given column name
func (df *DataFrame) Column(name string) (ISeries, bool) {
	series, exists := df.columns[name]
	return series, exists
}

// HasColumn checks if a column exists
func (df *DataFrame) HasColumn(name string) bool {
	_, exists := df.columns[name]
	return exists
}

// Select returns a new DataFrame with only the specified columns.
// Unknown names are skipped; use SelectStrict to reject them.
func (df *DataFrame) Select(names ...string) *DataFrame {
	newColumns := make(map[string]ISeries)
	newOrder := make([]string, 0, len(names))

	for _, name := range names {
		if series, exists := df.columns[name]; exists {
			if _, dup := newColumns[name]; !dup {
				newOrder = append(newOrder, name)
			}
			newColumns[name] = series
		}
	}

	return &DataFrame{
		columns: newColumns,
		order:   newOrder,
	}
}

// SelectStrict is Select but fails when a column does not exist
func (df *DataFrame) SelectStrict(op string, names ...string) (*DataFrame, error) {
	if err := validation.ValidateColumns(df, op, names...); err != nil {
		return nil, err
	}
	return df.Select(names...), nil
}

// Drop returns a new DataFrame without the specified columns
func (df *DataFrame) Drop(names ...string) *DataFrame {
	dropSet := make(map[string]bool)
	for _, name := range names {
		dropSet[name] = true
	}

	newColumns := make(map[string]ISeries)
	newOrder := make([]string, 0, len(df.order))

	for _, name := range df.order {
		if !dropSet[name] {
			newColumns[name] = df.columns[name]
			newOrder = append(newOrder, name)
		}
	}

	return &DataFrame{
		columns: newColumns,
		order:   newOrder,
	}
}

// Rename returns a new DataFrame with columns renamed according to mapping.
// Columns absent from mapping keep their name.
func (df *DataFrame) Rename(mapping map[string]string) (*DataFrame, error) {
	renamed := make([]ISeries, 0, len(df.order))
	seen := make(map[string]bool, len(df.order))

	for _, name := range df.order {
		s := df.columns[name]
		newName, ok := mapping[name]
		if ok && newName != name {
			s = renamedSeries{ISeries: s, name: newName}
		} else {
			newName = name
		}
		if seen[newName] {
			return nil, errors.NewValidationError("Rename", newName, "duplicate column name after rename")
		}
		seen[newName] = true
		renamed = append(renamed, s)
	}

	return New(renamed...), nil
}

// WithColumns returns a new DataFrame with the given series appended after the
// existing columns. Names must be new and lengths must match.
func (df *DataFrame) WithColumns(series ...ISeries) (*DataFrame, error) {
	all := make([]ISeries, 0, len(df.order)+len(series))
	for _, name := range df.order {
		all = append(all, df.columns[name])
	}

	rows := df.Len()
	for _, s := range series {
		if df.HasColumn(s.Name()) {
			return nil, errors.NewValidationError("WithColumns", s.Name(), "column already exists")
		}
		if len(df.order) > 0 {
			if err := validation.ValidateLength(rows, s.Len(), "WithColumns", s.Name()); err != nil {
				return nil, err
			}
		}
		all = append(all, s)
	}

	out := New(all...)
	if out.Width() != len(all) {
		return nil, errors.NewValidationError("WithColumns", "", "duplicate names among new columns")
	}
	return out, nil
}

// Kinds returns the column kind of each column, in column order
func (df *DataFrame) Kinds() []Kind {
	kinds := make([]Kind, len(df.order))
	for i, name := range df.order {
		kinds[i] = KindOf(df.columns[name].DataType())
	}
	return kinds
}

// String returns a string representation of the DataFrame
func (df *DataFrame) String() string {
	if len(df.columns) == 0 {
		return "DataFrame[empty]"
	}

	parts := []string{fmt.Sprintf("DataFrame[%dx%d]", df.Len(), df.Width())}

	for _, name := range df.order {
		series := df.columns[name]
		parts = append(parts, fmt.Sprintf("  %s: %s", name, series.DataType().String()))
	}

	return strings.Join(parts, "\n")
}

// Release releases all underlying Arrow memory
func (df *DataFrame) Release() {
	for _, series := range df.columns {
		series.Release()
	}
}

// Kind is the coarse column category used for dtype-based routing.
type Kind int

const (
	KindOther Kind = iota
	KindNumeric
	KindBoolean
	KindTemporal
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindBoolean:
		return "boolean"
	case KindTemporal:
		return "temporal"
	case KindText:
		return "text"
	default:
		return "other"
	}
}

// KindOf maps an Arrow data type to its Kind
func KindOf(dt arrow.DataType) Kind {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64, arrow.DECIMAL128:
		return KindNumeric
	case arrow.BOOL:
		return KindBoolean
	case arrow.TIMESTAMP, arrow.DATE32, arrow.DATE64:
		return KindTemporal
	case arrow.STRING, arrow.LARGE_STRING, arrow.DICTIONARY:
		return KindText
	default:
		return KindOther
	}
}
