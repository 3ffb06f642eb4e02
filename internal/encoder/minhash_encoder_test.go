package encoder_test

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/paveg/tabprep/internal/dataframe"
	"github.com/paveg/tabprep/internal/encoder"
	"github.com/paveg/tabprep/internal/errors"
	"github.com/paveg/tabprep/internal/series"
	"github.com/paveg/tabprep/internal/testutil"
)

func columnsFrame(mem memory.Allocator, n int) *dataframe.DataFrame {
	cols := make([]dataframe.ISeries, 3)
	for i := range cols {
		cols[i] = series.New(fmt.Sprintf("col%d", i), testutil.GenerateStrings(n, 100, int64(i)), mem)
	}
	return dataframe.New(cols...)
}

func block(m *mat.Dense, from, to int) mat.Matrix {
	rows, _ := m.Dims()
	return m.Slice(0, rows, from, to)
}

func TestMinHashEncoder(t *testing.T) {
	ctx := context.Background()
	input := []string{"al ice", "b ob", "bob and alice", "alice and bob"}

	cases := []struct {
		hashing string
		minmax  bool
	}{
		{"fast", true},
		{"fast", false},
		{"murmur", false},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("%s_minmax=%v", c.hashing, c.minmax), func(t *testing.T) {
			opts := options(2)
			opts.Hashing = c.hashing
			opts.MinMaxHash = c.minmax

			enc := encoder.NewMinHashEncoder(opts)
			require.NoError(t, enc.FitStrings(ctx, input))
			y, err := enc.TransformStrings(ctx, input)
			require.NoError(t, err)

			rows, cols := y.Dims()
			assert.Equal(t, 4, rows)
			assert.Equal(t, 2, cols)
			assert.NotEqual(t, y.At(0, 0), y.At(0, 1))

			// Same parameters, same output
			again := encoder.NewMinHashEncoder(opts)
			y2, err := again.FitTransformStrings(ctx, input)
			require.NoError(t, err)
			assert.True(t, mat.Equal(y, y2))

			if c.minmax {
				return
			}
			prefixes := make([]string, len(input))
			for i, s := range input {
				prefixes[i] = s[:strings.Index(s, " ")]
			}
			sub, err := encoder.NewMinHashEncoder(opts).FitTransformStrings(ctx, prefixes)
			require.NoError(t, err)
			for i := 0; i < rows; i++ {
				for j := 0; j < cols; j++ {
					assert.Less(t, y.At(i, j)-sub.At(i, j), 0.001)
				}
			}
		})
	}
}

func TestMultipleColumnsAreIndependent(t *testing.T) {
	ctx := context.Background()
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	df := dataframe.New(
		series.New("class", []string{"bird", "bird", "mammal", "mammal"}, mem.Allocator),
		series.NewNullable("type", []string{"parrot", "nightingale", "monkey", ""},
			[]bool{true, true, true, false}, mem.Allocator),
	)
	defer df.Release()

	whole, err := encoder.NewMinHashEncoder(options(30)).FitTransform(ctx, df)
	require.NoError(t, err)
	first, err := encoder.NewMinHashEncoder(options(30)).FitTransform(ctx, df.Select("class"))
	require.NoError(t, err)
	second, err := encoder.NewMinHashEncoder(options(30)).FitTransform(ctx, df.Select("type"))
	require.NoError(t, err)

	assert.True(t, mat.Equal(block(whole, 0, 30), first))
	assert.True(t, mat.Equal(block(whole, 30, 60), second))
}

func TestEncoderParams(t *testing.T) {
	ctx := context.Background()
	data := testutil.GenerateStrings(20, 100, 0)

	for _, hashing := range []string{"fast", "murmur"} {
		opts := options(50)
		opts.Hashing = hashing
		opts.MinMaxHash = hashing == "fast"
		opts.NGramMin, opts.NGramMax = 3, 3

		enc := encoder.NewMinHashEncoder(opts)
		require.NoError(t, enc.FitStrings(ctx, data))
		y, err := enc.TransformStrings(ctx, data)
		require.NoError(t, err)
		rows, cols := y.Dims()
		assert.Equal(t, 20, rows)
		assert.Equal(t, 50, cols)

		y2, err := enc.TransformStrings(ctx, []string{"a", "", "c"})
		require.NoError(t, err)
		rows, cols = y2.Dims()
		assert.Equal(t, 3, rows)
		assert.Equal(t, 50, cols)
	}
}

func TestMissingValues(t *testing.T) {
	ctx := context.Background()
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	values := []string{"Red", "", "green", "blue", "green", "green", "blue", ""}
	valid := []bool{true, false, true, true, true, true, true, true}
	zero := []float64{0, 0, 0}

	for _, missing := range []string{"error", "zero_impute", "aaa"} {
		for _, hashing := range []string{"fast", "murmur", "aaa"} {
			t.Run(missing+"_"+hashing, func(t *testing.T) {
				df := dataframe.New(series.NewNullable("color", values, valid, mem.Allocator))
				defer df.Release()

				opts := options(3)
				opts.Hashing = hashing
				opts.HandleMissing = missing

				y, err := encoder.NewMinHashEncoder(opts).FitTransform(ctx, df)
				switch {
				case hashing == "aaa":
					require.Error(t, err)
					assert.Contains(t, err.Error(), "Got hashing=")
				case missing == "error":
					require.Error(t, err)
					assert.ErrorIs(t, err, errors.ErrMissingData)
					assert.Contains(t, err.Error(), "Found missing values in input data; set")
				case missing == "zero_impute":
					require.NoError(t, err)
					assert.Equal(t, zero, y.RawRowView(1))
					assert.Equal(t, zero, y.RawRowView(7))
					assert.NotEqual(t, zero, y.RawRowView(0))
				default:
					require.Error(t, err)
					assert.Contains(t, err.Error(), "Got handle_missing=")
					assert.Contains(t, err.Error(), "expected any of")
				}
			})
		}
	}
}

func TestMissingNaN(t *testing.T) {
	ctx := context.Background()
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	df := dataframe.New(series.New("score", []float64{1.5, math.NaN(), 2}, mem.Allocator))
	defer df.Release()

	y, err := encoder.NewMinHashEncoder(options(4)).FitTransform(ctx, df)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0}, y.RawRowView(1))
}

func TestCorrectArguments(t *testing.T) {
	ctx := context.Background()
	input := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	tests := []struct {
		name    string
		mutate  func(o *encoder.Options)
		message string
	}{
		{"hashing", func(o *encoder.Options) { o.Hashing = "incorrect" }, "expected any of"},
		{"handle_missing", func(o *encoder.Options) { o.HandleMissing = "incorrect" }, "expected any of"},
		{"minmax murmur", func(o *encoder.Options) { o.NComponents, o.MinMaxHash, o.Hashing = 2, true, "murmur" },
			"minmax_hash encoding is not supported"},
		{"minmax odd", func(o *encoder.Options) { o.MinMaxHash = true }, "n_components should be even"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := options(3)
			tt.mutate(&opts)
			err := encoder.NewMinHashEncoder(opts).FitStrings(ctx, input)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrConfiguration)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestNotFitted(t *testing.T) {
	ctx := context.Background()
	input := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	enc := encoder.NewMinHashEncoder(options(3))
	_, err := enc.TransformStrings(ctx, input)
	assert.ErrorIs(t, err, errors.ErrNotFitted)
	_, err = enc.FeatureNamesOut()
	assert.ErrorIs(t, err, errors.ErrNotFitted)
	_, err = enc.Split()
	assert.ErrorIs(t, err, errors.ErrNotFitted)

	require.NoError(t, enc.FitStrings(ctx, input))
	_, err = enc.TransformStrings(ctx, input)
	assert.NoError(t, err)
}

func TestDeterministicAcrossJobs(t *testing.T) {
	ctx := context.Background()
	input := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	want, err := encoder.NewMinHashEncoder(options(4)).FitTransformStrings(ctx, input)
	require.NoError(t, err)

	for _, nJobs := range []int{1, 2, -1} {
		opts := options(4)
		opts.NJobs = nJobs
		got, err := encoder.NewMinHashEncoder(opts).FitTransformStrings(ctx, input)
		require.NoError(t, err)
		assert.True(t, mat.Equal(want, got), "n_jobs=%d", nJobs)
	}
}

func TestFeatureNamesOut(t *testing.T) {
	ctx := context.Background()
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	values := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	df := dataframe.New(
		series.New("col1", values, mem.Allocator),
		series.New("col2", values, mem.Allocator),
	)
	defer df.Release()

	enc := encoder.NewMinHashEncoder(options(4))
	require.NoError(t, enc.Fit(ctx, df))
	names, err := enc.FeatureNamesOut()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"col1_0", "col1_1", "col1_2", "col1_3",
		"col2_0", "col2_1", "col2_2", "col2_3",
	}, names)

	unnamed := encoder.NewMinHashEncoder(options(4))
	require.NoError(t, unnamed.FitStrings(ctx, values))
	names, err = unnamed.FeatureNamesOut()
	require.NoError(t, err)
	assert.Equal(t, []string{"x0_0", "x0_1", "x0_2", "x0_3"}, names)
}

func TestTransformValidation(t *testing.T) {
	ctx := context.Background()
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	df := dataframe.New(series.New("city", []string{"paris"}, mem.Allocator))
	defer df.Release()
	other := dataframe.New(series.New("town", []string{"rome"}, mem.Allocator))
	defer other.Release()

	enc := encoder.NewMinHashEncoder(options(2))
	require.NoError(t, enc.Fit(ctx, df))

	_, err := enc.Transform(ctx, other)
	assert.ErrorIs(t, err, errors.ErrColumnNotFound)

	_, err = enc.TransformStrings(ctx, []string{"a"}, []string{"b"})
	assert.ErrorIs(t, err, errors.ErrValidation)
}
