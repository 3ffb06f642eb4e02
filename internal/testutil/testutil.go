// Package testutil provides shared fixtures and assertions for tabprep tests:
// memory allocator setup, the buildings/weather join tables, reproducible
// random string columns and column-level assertions.
package testutil

import (
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paveg/tabprep/internal/dataframe"
	"github.com/paveg/tabprep/internal/series"
)

// TestMemoryContext provides memory allocator with automatic cleanup.
type TestMemoryContext struct {
	Allocator memory.Allocator
	cleanup   func()
}

// Release performs cleanup of the memory context.
func (tmc *TestMemoryContext) Release() {
	if tmc.cleanup != nil {
		tmc.cleanup()
	}
}

// SetupMemoryTest creates a memory allocator with automatic cleanup for tests.
// Returns a TestMemoryContext that should be released with defer.
//
// Example usage:
//
//	mem := testutil.SetupMemoryTest(t)
//	defer mem.Release()
func SetupMemoryTest(tb testing.TB) *TestMemoryContext {
	tb.Helper()
	allocator := memory.NewGoAllocator()

	return &TestMemoryContext{
		Allocator: allocator,
		cleanup: func() {
			// Memory allocator cleanup is handled by Go GC
		},
	}
}

// WeatherOption configures the weather fixture.
type WeatherOption func(*weatherConfig)

type weatherConfig struct {
	nullTemperature bool
	climate         []string
}

// WithNullTemperature leaves the last avg_temp cell null instead of 0.
func WithNullTemperature() WeatherOption {
	return func(cfg *weatherConfig) {
		cfg.nullTemperature = true
	}
}

// WithConstantClimate sets every climate cell to value.
func WithConstantClimate(value string) WeatherOption {
	return func(cfg *weatherConfig) {
		for i := range cfg.climate {
			cfg.climate[i] = value
		}
	}
}

// CreateBuildingsDataFrame returns the main table of the join tests:
//
//	latitude  longitude  n_stories
//	1.0       1.0        3
//	2.0       2.0        7
func CreateBuildingsDataFrame(allocator memory.Allocator) *dataframe.DataFrame {
	return dataframe.New(
		series.New("latitude", []float64{1.0, 2.0}, allocator),
		series.New("longitude", []float64{1.0, 2.0}, allocator),
		series.New("n_stories", []int64{3, 7}, allocator),
	)
}

// CreateWeatherDataFrame returns the auxiliary table of the join tests.
// Rows 0-3 sit next to the two buildings; rows 4-5 are far away.
func CreateWeatherDataFrame(allocator memory.Allocator, opts ...WeatherOption) *dataframe.DataFrame {
	cfg := &weatherConfig{climate: []string{"A", "A", "B", "B", "C", "C"}}
	for _, opt := range opts {
		opt(cfg)
	}

	temps := []float64{10.0, 11.0, 15.0, 16.0, 20.0, 0.0}
	valid := []bool{true, true, true, true, true, !cfg.nullTemperature}

	return dataframe.New(
		series.New("latitude", []float64{1.2, 0.9, 1.9, 1.7, 5.0, 5.0}, allocator),
		series.New("longitude", []float64{0.8, 1.1, 1.8, 1.8, 5.0, 5.0}, allocator),
		series.NewNullable("avg_temp", temps, valid, allocator),
		series.New("climate", cfg.climate, allocator),
	)
}

// GenerateStrings returns n reproducible "dirty" category strings of
// roughly length random characters each, with occasional double spaces.
func GenerateStrings(n, length int, seed int64) []string {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // Test data only
	out := make([]string, n)
	for i := range out {
		var b strings.Builder
		b.WriteString("category ")
		for j := 0; j < length; j++ {
			r := rune(rng.Intn(254) + 1)
			b.WriteRune(r)
			if r < 50 {
				b.WriteString("  ")
			}
		}
		out[i] = b.String()
	}
	return out
}

// RandomWords returns n reproducible lowercase words of the given length.
func RandomWords(n, length int, seed int64) []string {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // Test data only
	out := make([]string, n)
	for i := range out {
		b := make([]byte, length)
		for j := range b {
			b[j] = byte('a' + rng.Intn(26))
		}
		out[i] = string(b)
	}
	return out
}

// Float64Column returns the values of a numeric column; NaN marks nulls.
func Float64Column(t *testing.T, df *dataframe.DataFrame, name string) []float64 {
	t.Helper()

	col, ok := df.Column(name)
	require.True(t, ok, "column %s should exist", name)

	out := make([]float64, col.Len())
	for i := range out {
		v, valid := col.Float64At(i)
		if !valid {
			v = math.NaN()
		}
		out[i] = v
	}
	return out
}

// StringColumn returns the values of a column as strings; nulls yield "".
func StringColumn(t *testing.T, df *dataframe.DataFrame, name string) []string {
	t.Helper()

	col, ok := df.Column(name)
	require.True(t, ok, "column %s should exist", name)

	out := make([]string, col.Len())
	for i := range out {
		out[i] = col.GetAsString(i)
	}
	return out
}

// AssertAllNull verifies that every cell of the named column is null.
func AssertAllNull(t *testing.T, df *dataframe.DataFrame, name string) {
	t.Helper()

	col, ok := df.Column(name)
	require.True(t, ok, "column %s should exist", name)
	assert.Equal(t, col.Len(), col.NullCount(), "column %s should be all null", name)
}

// AssertDataFrameHasColumns verifies that a DataFrame has exactly the expected columns in order.
func AssertDataFrameHasColumns(t *testing.T, df *dataframe.DataFrame, expectedColumns []string) {
	t.Helper()

	require.NotNil(t, df, "DataFrame should not be nil")
	assert.Equal(t, expectedColumns, df.Columns(), "columns should match")
}
