package tabprep

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow/memory"

	tabio "github.com/paveg/tabprep/internal/io"
)

// CSVOptions configures CSV reading and writing.
type CSVOptions = tabio.CSVOptions

// ParquetOptions configures Parquet writing.
type ParquetOptions = tabio.ParquetOptions

// DefaultCSVOptions returns comma-delimited options with a header row.
func DefaultCSVOptions() CSVOptions {
	return tabio.DefaultCSVOptions()
}

// DefaultParquetOptions returns snappy-compressed Parquet options.
func DefaultParquetOptions() ParquetOptions {
	return tabio.DefaultParquetOptions()
}

// ReadCSV reads a DataFrame from CSV. Empty fields become nulls.
func ReadCSV(r io.Reader, opts CSVOptions, mem memory.Allocator) (*DataFrame, error) {
	df, err := tabio.NewCSVReader(r, opts, mem).Read()
	if err != nil {
		return nil, err
	}
	return &DataFrame{df: df}, nil
}

// WriteCSV writes df as CSV. Nulls are written as empty fields.
func WriteCSV(w io.Writer, df *DataFrame, opts CSVOptions) error {
	return tabio.NewCSVWriter(w, opts).Write(df.df)
}

// ReadParquet reads a DataFrame from Parquet.
func ReadParquet(r io.Reader, mem memory.Allocator) (*DataFrame, error) {
	df, err := tabio.NewParquetReader(r, mem).Read()
	if err != nil {
		return nil, err
	}
	return &DataFrame{df: df}, nil
}

// WriteParquet writes df as Parquet.
func WriteParquet(w io.Writer, df *DataFrame, opts ParquetOptions) error {
	return tabio.NewParquetWriter(w, opts).Write(df.df)
}
