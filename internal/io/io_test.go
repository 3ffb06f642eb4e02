package io_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paveg/tabprep/internal/dataframe"
	"github.com/paveg/tabprep/internal/io"
	"github.com/paveg/tabprep/internal/series"
	"github.com/paveg/tabprep/internal/testutil"
)

func TestCSVReader(t *testing.T) {
	mem := memory.NewGoAllocator()

	t.Run("infers types and nulls", func(t *testing.T) {
		data := "city,stories,temp,coastal\nParis,3,10.5,false\n,7,,TRUE\nNice,,15,\n"
		df, err := io.NewCSVReader(strings.NewReader(data), io.DefaultCSVOptions(), mem).Read()
		require.NoError(t, err)
		defer df.Release()

		assert.Equal(t, []string{"city", "stories", "temp", "coastal"}, df.Columns())
		assert.Equal(t, []dataframe.Kind{
			dataframe.KindText, dataframe.KindNumeric, dataframe.KindNumeric, dataframe.KindBoolean,
		}, df.Kinds())

		stories, _ := df.Column("stories")
		assert.Equal(t, arrow.INT64, stories.DataType().ID())
		temp, _ := df.Column("temp")
		assert.Equal(t, arrow.FLOAT64, temp.DataType().ID())

		for _, name := range []string{"city", "stories", "temp", "coastal"} {
			col, _ := df.Column(name)
			assert.Equal(t, 1, col.NullCount(), "column %s", name)
		}
		assert.Equal(t, []string{"Paris", "", "Nice"}, testutil.StringColumn(t, df, "city"))
	})

	t.Run("without header", func(t *testing.T) {
		opts := io.DefaultCSVOptions()
		opts.Header = false
		opts.Delimiter = ';'
		df, err := io.NewCSVReader(strings.NewReader("a;1\nb;2\n"), opts, mem).Read()
		require.NoError(t, err)
		defer df.Release()
		assert.Equal(t, []string{"column_0", "column_1"}, df.Columns())
		assert.Equal(t, 2, df.Len())
	})

	t.Run("empty input", func(t *testing.T) {
		df, err := io.NewCSVReader(strings.NewReader(""), io.DefaultCSVOptions(), mem).Read()
		require.NoError(t, err)
		assert.Equal(t, 0, df.Width())
	})

	t.Run("malformed quotes", func(t *testing.T) {
		_, err := io.NewCSVReader(strings.NewReader("a\n\"unterminated\n"), io.DefaultCSVOptions(), mem).Read()
		assert.Error(t, err)
	})
}

func TestCSVRoundTrip(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()
	weather := testutil.CreateWeatherDataFrame(mem.Allocator, testutil.WithNullTemperature())
	defer weather.Release()

	var buf bytes.Buffer
	require.NoError(t, io.NewCSVWriter(&buf, io.DefaultCSVOptions()).Write(weather))
	assert.True(t, strings.HasPrefix(buf.String(), "latitude,longitude,avg_temp,climate\n1.2,0.8,10,A\n"))

	back, err := io.NewCSVReader(&buf, io.DefaultCSVOptions(), mem.Allocator).Read()
	require.NoError(t, err)
	defer back.Release()

	assert.Equal(t, testutil.Float64Column(t, weather, "latitude"), testutil.Float64Column(t, back, "latitude"))
	assert.Equal(t, testutil.StringColumn(t, weather, "climate"), testutil.StringColumn(t, back, "climate"))
	temp, _ := back.Column("avg_temp")
	assert.True(t, temp.IsNull(5))
}

func TestParquetRoundTrip(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	stamp := time.Date(2023, 9, 20, 12, 0, 0, 0, time.UTC)
	df := dataframe.New(
		series.NewNullable("temp", []float64{10, 0, 15}, []bool{true, false, true}, mem.Allocator),
		series.New("stories", []int64{3, 7, 2}, mem.Allocator),
		series.New("climate", []string{"A", "B", "C"}, mem.Allocator),
		series.New("coastal", []bool{true, false, true}, mem.Allocator),
		series.New("seen", []time.Time{stamp, stamp, stamp}, mem.Allocator),
	)
	defer df.Release()

	for _, codec := range []string{"snappy", "zstd", "uncompressed"} {
		t.Run(codec, func(t *testing.T) {
			opts := io.DefaultParquetOptions()
			opts.Compression = codec

			var buf bytes.Buffer
			require.NoError(t, io.NewParquetWriter(&buf, opts).Write(df))

			back, err := io.NewParquetReader(&buf, mem.Allocator).Read()
			require.NoError(t, err)
			defer back.Release()

			assert.Equal(t, df.Columns(), back.Columns())
			assert.Equal(t, df.Kinds(), back.Kinds())
			temp, _ := back.Column("temp")
			assert.True(t, temp.IsNull(1))
			assert.Equal(t, []float64{3, 7, 2}, testutil.Float64Column(t, back, "stories"))
			assert.Equal(t, []string{"A", "B", "C"}, testutil.StringColumn(t, back, "climate"))
			seen, _ := back.Column("seen")
			secs, ok := seen.Float64At(0)
			require.True(t, ok)
			assert.Equal(t, float64(stamp.Unix()), secs)
		})
	}
}

func TestParquetReaderRejectsGarbage(t *testing.T) {
	_, err := io.NewParquetReader(strings.NewReader("not parquet"), nil).Read()
	assert.Error(t, err)
}
