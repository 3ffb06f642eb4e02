// Package vectorizer turns the heterogeneous key columns of a join into a
// dense numeric feature matrix.
package vectorizer

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/paveg/tabprep/internal/config"
	"github.com/paveg/tabprep/internal/dataframe"
	"github.com/paveg/tabprep/internal/encoder"
	"github.com/paveg/tabprep/internal/errors"
)

// Vectorizer is fitted once on the auxiliary key columns and then applied
// to both tables.
type Vectorizer interface {
	Fit(ctx context.Context, df *dataframe.DataFrame) error
	Transform(ctx context.Context, df *dataframe.DataFrame) (*mat.Dense, error)
}

// Factory builds a fresh, unfit Vectorizer.
type Factory func() Vectorizer

// calendarParts are the datetime components, coarsest first.
var calendarParts = []string{"year", "month", "day", "hour", "minute", "second"}

// dateLayouts are tried in order when deciding whether a text column holds dates.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
}

type columnKind int

const (
	numericColumn columnKind = iota
	temporalColumn
	textColumn
)

type columnPlan struct {
	name   string
	kind   columnKind
	layout string    // text-encoded dates only
	means  []float64 // per output feature, used to impute nulls
	enc    *encoder.ColumnEncoder
}

func (p *columnPlan) width() int {
	if p.kind == textColumn {
		return p.enc.Width()
	}
	return len(p.means)
}

// TableVectorizer encodes numeric and boolean columns as-is, datetimes as
// calendar parts down to Resolution plus Unix seconds, and any other text
// with a min-hash ColumnEncoder. Nulls in numeric and datetime features are
// replaced by the fitted mean.
type TableVectorizer struct {
	// Resolution is the finest calendar part kept ("year" ... "second").
	// "" or "none" keeps only Unix seconds.
	Resolution string
	Encoder    encoder.Options

	columns []*columnPlan
}

// New returns a TableVectorizer configured from the global configuration.
func New() *TableVectorizer {
	cfg := config.GetGlobalConfig()
	return &TableVectorizer{
		Resolution: cfg.DatetimeResolution,
		Encoder:    encoder.OptionsFromConfig(cfg),
	}
}

// DefaultFactory builds TableVectorizers from the global configuration.
func DefaultFactory() Vectorizer {
	return New()
}

func (v *TableVectorizer) parts() ([]string, error) {
	if v.Resolution == "" || v.Resolution == config.ResolutionNone {
		return nil, nil
	}
	idx := slices.Index(calendarParts, v.Resolution)
	if idx < 0 {
		return nil, errors.NewChoiceError("TableVectorizer.Fit", "resolution", v.Resolution, config.ResolutionChoices)
	}
	return calendarParts[:idx+1], nil
}

// Fit chooses an encoding for every column of df.
func (v *TableVectorizer) Fit(ctx context.Context, df *dataframe.DataFrame) error {
	const op = "TableVectorizer.Fit"
	parts, err := v.parts()
	if err != nil {
		return err
	}
	if df == nil || df.Width() == 0 {
		return errors.NewValidationError(op, "", "no key columns to vectorize")
	}

	plans := make([]*columnPlan, 0, df.Width())
	for _, name := range df.Columns() {
		s, _ := df.Column(name)
		plan := &columnPlan{name: name}

		switch dataframe.KindOf(s.DataType()) {
		case dataframe.KindNumeric, dataframe.KindBoolean:
			plan.kind = numericColumn
		case dataframe.KindTemporal:
			plan.kind = temporalColumn
		default:
			if layout, ok := detectDateLayout(s); ok {
				plan.kind = temporalColumn
				plan.layout = layout
			} else {
				plan.kind = textColumn
			}
		}

		switch plan.kind {
		case textColumn:
			plan.enc = encoder.NewColumnEncoder(name, v.Encoder)
			if err := plan.enc.Fit(ctx, encoder.CellsFromSeries(s)); err != nil {
				return err
			}
		default:
			plan.means = columnMeans(plan.raw(s, parts), plan.rawWidth(parts))
		}
		plans = append(plans, plan)
	}

	v.columns = plans
	return nil
}

// Transform encodes the fitted columns of df, selected by name.
func (v *TableVectorizer) Transform(ctx context.Context, df *dataframe.DataFrame) (*mat.Dense, error) {
	const op = "TableVectorizer.Transform"
	if v.columns == nil {
		return nil, errors.NewNotFittedError(op)
	}
	parts, err := v.parts()
	if err != nil {
		return nil, err
	}

	width := 0
	for _, p := range v.columns {
		if !df.HasColumn(p.name) {
			return nil, errors.NewColumnNotFoundError(op, p.name)
		}
		width += p.width()
	}
	n := df.Len()
	if n == 0 {
		return &mat.Dense{}, nil
	}

	out := mat.NewDense(n, width, nil)
	offset := 0
	for _, p := range v.columns {
		s, _ := df.Column(p.name)
		if s.Len() != n {
			return nil, errors.NewValidationError(op, p.name, fmt.Sprintf("expected length %d, got %d", n, s.Len()))
		}

		if p.kind == textColumn {
			block, err := p.enc.Transform(ctx, encoder.CellsFromSeries(s))
			if err != nil {
				return nil, err
			}
			out.Slice(0, n, offset, offset+p.width()).(*mat.Dense).Copy(block)
		} else {
			for i, row := range p.raw(s, parts) {
				for j, x := range row {
					if math.IsNaN(x) {
						x = p.means[j]
					}
					out.Set(i, offset+j, x)
				}
			}
		}
		offset += p.width()
	}
	return out, nil
}

func (p *columnPlan) rawWidth(parts []string) int {
	if p.kind == temporalColumn {
		return 1 + len(parts)
	}
	return 1
}

// raw returns one feature row per cell, NaN marking missing values.
func (p *columnPlan) raw(s dataframe.ISeries, parts []string) [][]float64 {
	width := p.rawWidth(parts)

	rows := make([][]float64, s.Len())
	for i := range rows {
		row := make([]float64, width)
		for j := range row {
			row[j] = math.NaN()
		}
		rows[i] = row

		switch p.kind {
		case numericColumn:
			if x, ok := s.Float64At(i); ok {
				row[0] = x
			}
		case temporalColumn:
			t, ok := p.timeAt(s, i)
			if !ok {
				continue
			}
			for j, part := range parts {
				row[j] = calendarValue(t, part)
			}
			row[len(parts)] = float64(t.UnixNano()) / 1e9
		}
	}
	return rows
}

func (p *columnPlan) timeAt(s dataframe.ISeries, i int) (time.Time, bool) {
	if s.IsNull(i) {
		return time.Time{}, false
	}
	if p.layout != "" && dataframe.KindOf(s.DataType()) != dataframe.KindTemporal {
		t, err := time.Parse(p.layout, s.GetAsString(i))
		return t.UTC(), err == nil
	}
	secs, ok := s.Float64At(i)
	if !ok {
		return time.Time{}, false
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC(), true
}

func calendarValue(t time.Time, part string) float64 {
	switch part {
	case "year":
		return float64(t.Year())
	case "month":
		return float64(t.Month())
	case "day":
		return float64(t.Day())
	case "hour":
		return float64(t.Hour())
	case "minute":
		return float64(t.Minute())
	default:
		return float64(t.Second())
	}
}

// detectDateLayout reports the first layout that parses every non-missing
// cell of s. Columns without any non-missing cell are not dates.
func detectDateLayout(s dataframe.ISeries) (string, bool) {
	if dataframe.KindOf(s.DataType()) != dataframe.KindText {
		return "", false
	}
	for _, layout := range dateLayouts {
		seen, ok := 0, true
		for i := 0; i < s.Len() && ok; i++ {
			if s.IsNull(i) || s.GetAsString(i) == "" {
				continue
			}
			_, err := time.Parse(layout, s.GetAsString(i))
			ok = err == nil
			seen++
		}
		if ok && seen > 0 {
			return layout, true
		}
	}
	return "", false
}

func columnMeans(rows [][]float64, width int) []float64 {
	sums := make([]float64, width)
	counts := make([]int, width)
	for _, row := range rows {
		for j, x := range row {
			if !math.IsNaN(x) {
				sums[j] += x
				counts[j]++
			}
		}
	}
	for j := range sums {
		if counts[j] > 0 {
			sums[j] /= float64(counts[j])
		}
	}
	return sums
}
