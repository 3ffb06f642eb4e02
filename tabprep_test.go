package tabprep_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/paveg/tabprep"
	"github.com/paveg/tabprep/internal/logger"
)

func weatherTables(mem memory.Allocator) (main, aux *tabprep.DataFrame) {
	main = tabprep.NewDataFrame(
		tabprep.NewSeries("latitude", []float64{1.0, 2.0}, mem),
		tabprep.NewSeries("longitude", []float64{1.0, 2.0}, mem),
	)
	aux = tabprep.NewDataFrame(
		tabprep.NewSeries("latitude", []float64{1.2, 0.9, 1.9, 1.7, 5.0, 5.0}, mem),
		tabprep.NewSeries("longitude", []float64{0.8, 1.1, 1.8, 1.8, 5.0, 5.0}, mem),
		tabprep.NewNullableSeries("avg_temp", []float64{10, 11, 15, 16, 20, 0},
			[]bool{true, true, true, true, true, false}, mem),
		tabprep.NewSeries("climate", []string{"A", "A", "B", "B", "C", "C"}, mem),
	)
	return main, aux
}

func TestDataFrame(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := tabprep.NewDataFrame(
		tabprep.NewSeries("name", []string{"paris", "london"}, mem),
		tabprep.NewSeries("population", []int64{2100000, 8900000}, mem),
	)
	defer df.Release()

	assert.Equal(t, []string{"name", "population"}, df.Columns())
	assert.Equal(t, 2, df.Len())
	assert.Equal(t, 2, df.Width())
	assert.True(t, df.HasColumn("name"))
	assert.Equal(t, []string{"population"}, df.Drop("name").Columns())
	assert.Equal(t, []string{"name"}, df.Select("name").Columns())

	renamed, err := df.Rename(map[string]string{"name": "city"})
	require.NoError(t, err)
	assert.Equal(t, []string{"city", "population"}, renamed.Columns())

	col, ok := df.Column("population")
	require.True(t, ok)
	v, ok := col.Float64At(1)
	assert.True(t, ok)
	assert.Equal(t, 8900000.0, v)
}

func TestMinHashEncoder(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewGoAllocator()
	df := tabprep.NewDataFrame(
		tabprep.NewSeries("city", []string{"Paris", "London", "Paris"}, mem),
		tabprep.NewSeries("country", []string{"France", "", "France"}, mem),
	)
	defer df.Release()

	opts := tabprep.DefaultEncoderOptions()
	opts.NComponents = 8
	enc := tabprep.NewMinHashEncoder(opts)

	_, err := enc.Transform(ctx, df)
	assert.ErrorIs(t, err, tabprep.ErrNotFitted)

	out, err := enc.FitTransform(ctx, df)
	require.NoError(t, err)
	rows, cols := out.Dims()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 16, cols)
	assert.Equal(t, out.RawRowView(0), out.RawRowView(2))
	assert.Equal(t, make([]float64, 8), out.RawRowView(1)[8:], "missing cells encode as zeros")

	names, err := enc.FeatureNamesOut()
	require.NoError(t, err)
	assert.Len(t, names, 16)

	parts, err := enc.Split()
	require.NoError(t, err)
	require.Len(t, parts, 2)
	merged, err := tabprep.MergeEncoders(parts...)
	require.NoError(t, err)
	again, err := merged.Transform(ctx, df)
	require.NoError(t, err)
	assert.Equal(t, out.RawMatrix().Data, again.RawMatrix().Data)
}

func TestMinHashEncoderMissingPolicy(t *testing.T) {
	opts := tabprep.DefaultEncoderOptions()
	opts.HandleMissing = "error"
	enc := tabprep.NewMinHashEncoder(opts)

	_, err := enc.FitTransformStrings(context.Background(), []string{"a", ""})
	assert.ErrorIs(t, err, tabprep.ErrMissingData)

	opts.Hashing = "sha1"
	_, err = tabprep.NewMinHashEncoder(opts).FitTransformStrings(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, tabprep.ErrConfiguration)
}

func TestInterpolationJoiner(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewGoAllocator()
	main, aux := weatherTables(mem)
	defer main.Release()
	defer aux.Release()

	opts := tabprep.DefaultJoinOptions()
	opts.Key = []string{"latitude", "longitude"}
	opts.Regressor = tabprep.KNNRegressor(2)
	opts.Classifier = tabprep.KNNClassifier(2)
	joiner, err := tabprep.NewInterpolationJoiner(aux, opts)
	require.NoError(t, err)

	out, err := joiner.FitTransform(ctx, main)
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, []string{"latitude", "longitude", "avg_temp", "climate"}, out.Columns())
	temp, _ := out.Column("avg_temp")
	climate, _ := out.Column("climate")
	for i, want := range []float64{10.5, 15.5} {
		got, ok := temp.Float64At(i)
		require.True(t, ok)
		assert.InDelta(t, want, got, 1e-12)
	}
	assert.Equal(t, "A", climate.GetAsString(0))
	assert.Equal(t, "B", climate.GetAsString(1))
	assert.True(t, joiner.FitFailures().Empty())
}

func TestInterpolationJoinerErrors(t *testing.T) {
	mem := memory.NewGoAllocator()
	main, aux := weatherTables(mem)
	defer main.Release()
	defer aux.Release()

	_, err := tabprep.NewInterpolationJoiner(aux, tabprep.JoinOptions{
		Key:     []string{"latitude"},
		MainKey: []string{"latitude"},
	})
	assert.ErrorIs(t, err, tabprep.ErrConfiguration)

	_, err = tabprep.NewInterpolationJoiner(nil, tabprep.JoinOptions{Key: []string{"latitude"}})
	assert.ErrorIs(t, err, tabprep.ErrValidation)

	joiner, err := tabprep.NewInterpolationJoiner(aux, tabprep.JoinOptions{
		Key:        []string{"latitude", "longitude"},
		Regressor:  tabprep.DummyRegressor(),
		Classifier: tabprep.DummyClassifier(),
	})
	require.NoError(t, err)
	_, err = joiner.Transform(context.Background(), main)
	assert.True(t, errors.Is(err, tabprep.ErrNotFitted))

	require.NoError(t, joiner.Fit(context.Background(), nil))
	out, err := joiner.Transform(context.Background(), main)
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, 4, out.Width())
}

func TestConfig(t *testing.T) {
	original := tabprep.GetConfig()
	defer func() { require.NoError(t, tabprep.SetConfig(original)) }()

	cfg := original
	cfg.NComponents = 12
	require.NoError(t, tabprep.SetConfig(cfg))
	assert.Equal(t, 12, tabprep.GetConfig().NComponents)
	assert.Equal(t, 12, tabprep.DefaultEncoderOptions().NComponents)

	cfg.OnEstimatorFailure = "ignore"
	assert.ErrorIs(t, tabprep.SetConfig(cfg), tabprep.ErrConfiguration)
	assert.Equal(t, 12, tabprep.GetConfig().NComponents)

	bad := tabprep.GetConfig()
	bad.NJobs = 0
	assert.ErrorIs(t, tabprep.SetConfig(bad), tabprep.ErrConfiguration)
	bad = tabprep.GetConfig()
	bad.MinMaxHash, bad.NComponents = true, 7
	assert.ErrorIs(t, tabprep.SetConfig(bad), tabprep.ErrConfiguration)
	bad.NComponents, bad.Hashing = 8, "murmur"
	assert.ErrorIs(t, tabprep.SetConfig(bad), tabprep.ErrConfiguration)
	assert.ErrorIs(t, tabprep.LoadConfig(filepath.Join(t.TempDir(), "tabprep.toml")), tabprep.ErrConfiguration)

	path := filepath.Join(t.TempDir(), "tabprep.yaml")
	require.NoError(t, os.WriteFile(path, []byte("n_components: 7\non_estimator_failure: warn\n"), 0o600))
	require.NoError(t, tabprep.LoadConfig(path))
	assert.Equal(t, 7, tabprep.GetConfig().NComponents)
	assert.Equal(t, "warn", tabprep.DefaultJoinOptions().OnEstimatorFailure)
}

type countingResource struct{ released *int }

func (r countingResource) Release() { *r.released++ }

func TestWithTracker(t *testing.T) {
	released := 0
	err := tabprep.WithTracker(func(tracker *tabprep.ResourceTracker) error {
		for i := 0; i < 3; i++ {
			tracker.Track(countingResource{released: &released})
		}
		tracker.Track(nil)
		assert.Equal(t, 3, tracker.Count())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, released)
}

func TestJoinFromCSV(t *testing.T) {
	mem := memory.NewGoAllocator()
	aux, err := tabprep.ReadCSV(strings.NewReader(
		"latitude,longitude,avg_temp,climate\n1.2,0.8,10,A\n0.9,1.1,11,A\n1.9,1.8,15,B\n1.7,1.8,16,B\n5,5,20,C\n5,5,,C\n",
	), tabprep.DefaultCSVOptions(), mem)
	require.NoError(t, err)
	defer aux.Release()
	main, err := tabprep.ReadCSV(strings.NewReader("latitude,longitude\n1,1\n2,2\n"), tabprep.DefaultCSVOptions(), mem)
	require.NoError(t, err)
	defer main.Release()

	joiner, err := tabprep.NewInterpolationJoiner(aux, tabprep.JoinOptions{
		Key:        []string{"latitude", "longitude"},
		Regressor:  tabprep.KNNRegressor(2),
		Classifier: tabprep.KNNClassifier(2),
	})
	require.NoError(t, err)
	out, err := joiner.FitTransform(context.Background(), main)
	require.NoError(t, err)
	defer out.Release()

	var buf bytes.Buffer
	require.NoError(t, tabprep.WriteCSV(&buf, out, tabprep.DefaultCSVOptions()))
	assert.Equal(t, "latitude,longitude,avg_temp,climate\n1,1,10.5,A\n2,2,15.5,B\n", buf.String())

	buf.Reset()
	require.NoError(t, tabprep.WriteParquet(&buf, out, tabprep.DefaultParquetOptions()))
	back, err := tabprep.ReadParquet(&buf, mem)
	require.NoError(t, err)
	defer back.Release()
	assert.Equal(t, out.Columns(), back.Columns())
}

func TestEncodeNarrowParquetTypes(t *testing.T) {
	mem := memory.NewGoAllocator()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "code", Type: arrow.PrimitiveTypes.Int16},
		{Name: "ts", Type: &arrow.TimestampType{Unit: arrow.Nanosecond, TimeZone: "UTC"}},
	}, nil)

	rb := array.NewRecordBuilder(mem, schema)
	defer rb.Release()
	rb.Field(0).(*array.Int16Builder).AppendValues([]int16{4, 5, 6}, nil)
	rb.Field(1).(*array.TimestampBuilder).AppendValues([]arrow.Timestamp{1e9, 2e9, 3e9}, nil)
	rec := rb.NewRecord()
	defer rec.Release()
	tbl := array.NewTableFromRecords(schema, []arrow.Record{rec})
	defer tbl.Release()

	var buf bytes.Buffer
	require.NoError(t, pqarrow.WriteTable(tbl, &buf, 1024, nil, pqarrow.DefaultWriterProps()))

	df, err := tabprep.ReadParquet(&buf, mem)
	require.NoError(t, err)
	defer df.Release()

	code, _ := df.Column("code")
	v, ok := code.Float64At(1)
	require.True(t, ok)
	assert.Equal(t, 5.0, v)
	ts, _ := df.Column("ts")
	for i, want := range []float64{1, 2, 3} {
		v, ok := ts.Float64At(i)
		require.True(t, ok)
		assert.InDelta(t, want, v, 1e-9)
	}
	assert.Equal(t, "1970-01-01T00:00:01Z", ts.GetAsString(0))

	opts := tabprep.DefaultEncoderOptions()
	opts.HandleMissing = "error"
	out, err := tabprep.NewMinHashEncoder(opts).FitTransform(context.Background(), df.Select("code"))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		assert.NotZero(t, out.RawRowView(i)[0], "row %d", i)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	original := tabprep.GetConfig()
	defer func() { require.NoError(t, tabprep.SetConfig(original)) }()

	t.Setenv("TABPREP_N_COMPONENTS", "10")
	t.Setenv("TABPREP_ON_ESTIMATOR_FAILURE", "pass")
	require.NoError(t, tabprep.LoadConfigFromEnv())
	assert.Equal(t, 10, tabprep.GetConfig().NComponents)
	assert.Equal(t, "pass", tabprep.DefaultJoinOptions().OnEstimatorFailure)
	assert.Equal(t, original.NGramMax, tabprep.GetConfig().NGramMax)

	t.Setenv("TABPREP_HASHING", "sha1")
	assert.ErrorIs(t, tabprep.LoadConfigFromEnv(), tabprep.ErrConfiguration)
	assert.Equal(t, original.Hashing, tabprep.GetConfig().Hashing)
}

func TestSetConfigLogsWarnings(t *testing.T) {
	original := tabprep.GetConfig()
	defer func() { require.NoError(t, tabprep.SetConfig(original)) }()
	prev := logger.Get()
	defer logger.Set(prev)
	core, logs := observer.New(zapcore.WarnLevel)
	logger.Set(zap.New(core))

	cfg := original
	cfg.NJobs = runtime.NumCPU()*2 + 1
	require.NoError(t, tabprep.SetConfig(cfg))

	entries := logs.FilterMessage("configuration warning").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["warning"], "exceeds 2x CPU count")
}
