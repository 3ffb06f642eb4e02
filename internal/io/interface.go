// Package io reads and writes DataFrames as CSV or Parquet.
//
// Empty CSV fields and Parquet nulls both become Arrow nulls, which the
// encoders and the interpolation join treat as missing values.
package io

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/paveg/tabprep/internal/dataframe"
)

// DataReader defines the interface for reading data from various sources
type DataReader interface {
	Read() (*dataframe.DataFrame, error)
}

// DataWriter defines the interface for writing data to various destinations
type DataWriter interface {
	Write(df *dataframe.DataFrame) error
}

// CSVOptions contains configuration options for CSV operations
type CSVOptions struct {
	Delimiter rune
	// Comment starts a comment line; 0 disables comments.
	Comment rune
	// Header indicates whether the first row contains column names.
	Header           bool
	SkipInitialSpace bool
}

// DefaultCSVOptions returns default CSV options
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		Delimiter: ',',
		Header:    true,
	}
}

// CSVReader reads CSV data and converts it to DataFrames
type CSVReader struct {
	reader  io.Reader
	options CSVOptions
	mem     memory.Allocator
}

// NewCSVReader creates a new CSV reader with the specified options
func NewCSVReader(reader io.Reader, options CSVOptions, mem memory.Allocator) *CSVReader {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &CSVReader{reader: reader, options: options, mem: mem}
}

// CSVWriter writes DataFrames to CSV format
type CSVWriter struct {
	writer  io.Writer
	options CSVOptions
}

// NewCSVWriter creates a new CSV writer with the specified options
func NewCSVWriter(writer io.Writer, options CSVOptions) *CSVWriter {
	return &CSVWriter{writer: writer, options: options}
}

// ParquetOptions contains configuration options for Parquet operations
type ParquetOptions struct {
	// Compression is one of snappy, gzip, lz4, zstd or uncompressed.
	Compression string
	BatchSize   int
}

// DefaultParquetOptions returns default Parquet options
func DefaultParquetOptions() ParquetOptions {
	return ParquetOptions{
		Compression: "snappy",
		BatchSize:   1024,
	}
}

// ParquetReader reads Parquet data and converts it to DataFrames
type ParquetReader struct {
	reader io.Reader
	mem    memory.Allocator
}

// NewParquetReader creates a new Parquet reader
func NewParquetReader(reader io.Reader, mem memory.Allocator) *ParquetReader {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &ParquetReader{reader: reader, mem: mem}
}

// ParquetWriter writes DataFrames to Parquet format
type ParquetWriter struct {
	writer  io.Writer
	options ParquetOptions
}

// NewParquetWriter creates a new Parquet writer with the specified options
func NewParquetWriter(writer io.Writer, options ParquetOptions) *ParquetWriter {
	return &ParquetWriter{writer: writer, options: options}
}
