package io

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/paveg/tabprep/internal/dataframe"
	"github.com/paveg/tabprep/internal/series"
)

type columnType int

const (
	stringColumn columnType = iota
	boolColumn
	intColumn
	floatColumn
)

// Read reads CSV data and returns a DataFrame. Column types are inferred
// from the non-empty fields; empty fields are nulls.
func (r *CSVReader) Read() (*dataframe.DataFrame, error) {
	csvReader := csv.NewReader(r.reader)
	csvReader.Comma = r.options.Delimiter
	csvReader.Comment = r.options.Comment
	csvReader.TrimLeadingSpace = r.options.SkipInitialSpace
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	if len(records) == 0 {
		return dataframe.New(), nil
	}

	var headers []string
	rows := records
	if r.options.Header {
		headers, rows = records[0], records[1:]
	} else {
		headers = make([]string, len(records[0]))
		for i := range headers {
			headers[i] = fmt.Sprintf("column_%d", i)
		}
	}

	columns := make([]dataframe.ISeries, len(headers))
	for i, header := range headers {
		fields := make([]string, len(rows))
		for j, row := range rows {
			if i < len(row) {
				fields[j] = row[i]
			}
		}
		columns[i] = r.column(header, fields)
	}
	return dataframe.New(columns...), nil
}

func (r *CSVReader) column(name string, fields []string) dataframe.ISeries {
	valid := make([]bool, len(fields))
	for i, f := range fields {
		valid[i] = f != ""
	}

	switch inferType(fields) {
	case boolColumn:
		values := make([]bool, len(fields))
		for i, f := range fields {
			values[i] = strings.EqualFold(f, "true")
		}
		return series.NewNullable(name, values, valid, r.mem)
	case intColumn:
		values := make([]int64, len(fields))
		for i, f := range fields {
			values[i], _ = strconv.ParseInt(f, 10, 64)
		}
		return series.NewNullable(name, values, valid, r.mem)
	case floatColumn:
		values := make([]float64, len(fields))
		for i, f := range fields {
			values[i], _ = strconv.ParseFloat(f, 64)
		}
		return series.NewNullable(name, values, valid, r.mem)
	default:
		return series.NewNullable(name, fields, valid, r.mem)
	}
}

// inferType returns the most specific type every non-empty field parses as.
func inferType(fields []string) columnType {
	canBeBool, canBeInt, canBeFloat := true, true, true
	seen := false

	for _, f := range fields {
		if f == "" {
			continue
		}
		seen = true
		if canBeBool && !strings.EqualFold(f, "true") && !strings.EqualFold(f, "false") {
			canBeBool = false
		}
		if canBeInt {
			if _, err := strconv.ParseInt(f, 10, 64); err != nil {
				canBeInt = false
			}
		}
		if canBeFloat {
			if _, err := strconv.ParseFloat(f, 64); err != nil {
				canBeFloat = false
			}
		}
	}

	switch {
	case !seen:
		return stringColumn
	case canBeBool:
		return boolColumn
	case canBeInt:
		return intColumn
	case canBeFloat:
		return floatColumn
	default:
		return stringColumn
	}
}

// Write writes the DataFrame to CSV format. Nulls are written as empty fields.
func (w *CSVWriter) Write(df *dataframe.DataFrame) error {
	csvWriter := csv.NewWriter(w.writer)
	csvWriter.Comma = w.options.Delimiter

	names := df.Columns()
	if w.options.Header {
		if err := csvWriter.Write(names); err != nil {
			return fmt.Errorf("writing headers: %w", err)
		}
	}

	row := make([]string, len(names))
	for i := 0; i < df.Len(); i++ {
		for j, name := range names {
			col, _ := df.Column(name)
			row[j] = col.GetAsString(i)
		}
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}
