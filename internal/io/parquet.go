package io

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/paveg/tabprep/internal/dataframe"
	"github.com/paveg/tabprep/internal/series"
)

// Read reads Parquet data and returns a DataFrame. Row groups are
// concatenated into a single array per column.
func (r *ParquetReader) Read() (*dataframe.DataFrame, error) {
	data, err := io.ReadAll(r.reader)
	if err != nil {
		return nil, fmt.Errorf("reading data: %w", err)
	}

	pqReader, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating parquet file reader: %w", err)
	}
	defer pqReader.Close()

	arrowReader, err := pqarrow.NewFileReader(pqReader, pqarrow.ArrowReadProperties{}, r.mem)
	if err != nil {
		return nil, fmt.Errorf("creating arrow file reader: %w", err)
	}

	table, err := arrowReader.ReadTable(context.Background())
	if err != nil {
		return nil, fmt.Errorf("reading table: %w", err)
	}
	defer table.Release()

	schema := table.Schema()
	columns := make([]dataframe.ISeries, 0, table.NumCols())
	for i := 0; i < int(table.NumCols()); i++ {
		field := schema.Field(i)
		chunks := table.Column(i).Data().Chunks()

		var arr arrow.Array
		if len(chunks) == 0 {
			arr = array.MakeArrayOfNull(r.mem, field.Type, 0)
		} else if arr, err = array.Concatenate(chunks, r.mem); err != nil {
			return nil, fmt.Errorf("concatenating column %s: %w", field.Name, err)
		}
		columns = append(columns, wrap(field.Name, arr))
		arr.Release()
	}
	return dataframe.New(columns...), nil
}

// wrap exposes arr as a series typed after its Arrow type.
func wrap(name string, arr arrow.Array) dataframe.ISeries {
	//nolint:exhaustive // other types are read through their string form
	switch arr.DataType().ID() {
	case arrow.INT64, arrow.INT16, arrow.INT8,
		arrow.UINT64, arrow.UINT32, arrow.UINT16, arrow.UINT8:
		return series.FromArray[int64](name, arr)
	case arrow.INT32:
		return series.FromArray[int32](name, arr)
	case arrow.FLOAT64, arrow.FLOAT16, arrow.DECIMAL128:
		return series.FromArray[float64](name, arr)
	case arrow.FLOAT32:
		return series.FromArray[float32](name, arr)
	case arrow.BOOL:
		return series.FromArray[bool](name, arr)
	case arrow.TIMESTAMP, arrow.DATE32, arrow.DATE64:
		return series.FromArray[time.Time](name, arr)
	default:
		return series.FromArray[string](name, arr)
	}
}

func (w *ParquetWriter) codec() compress.Compression {
	switch w.options.Compression {
	case "gzip":
		return compress.Codecs.Gzip
	case "lz4":
		return compress.Codecs.Lz4Raw
	case "zstd":
		return compress.Codecs.Zstd
	case "uncompressed":
		return compress.Codecs.Uncompressed
	default:
		return compress.Codecs.Snappy
	}
}

// Write writes the DataFrame to Parquet format, keeping nulls.
func (w *ParquetWriter) Write(df *dataframe.DataFrame) error {
	names := df.Columns()
	fields := make([]arrow.Field, len(names))
	arrays := make([]arrow.Array, len(names))
	for i, name := range names {
		col, _ := df.Column(name)
		arrays[i] = col.Array()
		defer arrays[i].Release()
		fields[i] = arrow.Field{Name: name, Type: arrays[i].DataType(), Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	record := array.NewRecord(schema, arrays, int64(df.Len()))
	defer record.Release()

	batch := w.options.BatchSize
	if batch <= 0 {
		batch = DefaultParquetOptions().BatchSize
	}
	props := parquet.NewWriterProperties(
		parquet.WithCompression(w.codec()),
		parquet.WithBatchSize(int64(batch)),
	)

	writer, err := pqarrow.NewFileWriter(schema, w.writer, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return fmt.Errorf("creating file writer: %w", err)
	}
	if err := writer.Write(record); err != nil {
		_ = writer.Close()
		return fmt.Errorf("writing record: %w", err)
	}
	return writer.Close()
}
