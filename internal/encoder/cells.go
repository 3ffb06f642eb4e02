package encoder

import (
	"github.com/paveg/tabprep/internal/dataframe"
)

// Cells is one column of raw values. Missing marks null, NaN and empty
// cells; Values holds "" at those positions.
type Cells struct {
	Values  []string
	Missing []bool
}

// Len returns the number of cells.
func (c Cells) Len() int {
	return len(c.Values)
}

// HasMissing reports whether any cell is missing.
func (c Cells) HasMissing() bool {
	for _, m := range c.Missing {
		if m {
			return true
		}
	}
	return false
}

// CellsFromStrings treats empty strings as missing.
func CellsFromStrings(values []string) Cells {
	cells := Cells{
		Values:  append([]string(nil), values...),
		Missing: make([]bool, len(values)),
	}
	for i, v := range values {
		cells.Missing[i] = v == ""
	}
	return cells
}

// CellsFromSeries reads a column of any type. Nulls, NaN and empty
// strings are missing; other values use their string form.
func CellsFromSeries(s dataframe.ISeries) Cells {
	n := s.Len()
	cells := Cells{
		Values:  make([]string, n),
		Missing: make([]bool, n),
	}
	numeric := dataframe.KindOf(s.DataType()) == dataframe.KindNumeric

	for i := 0; i < n; i++ {
		if s.IsNull(i) {
			cells.Missing[i] = true
			continue
		}
		if numeric {
			if _, ok := s.Float64At(i); !ok {
				// Only NaN reaches here for a non-null numeric cell
				cells.Missing[i] = true
				continue
			}
		}
		v := s.GetAsString(i)
		if v == "" {
			cells.Missing[i] = true
			continue
		}
		cells.Values[i] = v
	}
	return cells
}
