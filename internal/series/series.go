// Package series provides data structures for column operations
package series

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// TimestampType is the Arrow type used for time.Time columns.
var TimestampType = &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}

// Series represents a typed data column with Apache Arrow backend
type Series[T any] struct {
	name  string
	array arrow.Array
}

// New creates a new Series from a slice of values with no nulls
func New[T any](name string, values []T, mem memory.Allocator) *Series[T] {
	return NewNullable(name, values, nil, mem)
}

// NewNullable creates a new Series where valid[i] == false marks row i as null.
// A nil valid slice means every row is valid.
func NewNullable[T any](name string, values []T, valid []bool, mem memory.Allocator) *Series[T] {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	if valid != nil && len(valid) != len(values) {
		panic(fmt.Sprintf("series: validity length %d does not match values length %d", len(valid), len(values)))
	}

	return &Series[T]{
		name:  name,
		array: buildArray(values, valid, mem),
	}
}

// FromArray wraps an existing Arrow array. The series takes its own reference.
func FromArray[T any](name string, arr arrow.Array) *Series[T] {
	arr.Retain()
	return &Series[T]{name: name, array: arr}
}

func buildArray(values any, valid []bool, mem memory.Allocator) arrow.Array {
	switch v := values.(type) {
	case []string:
		builder := array.NewStringBuilder(mem)
		defer builder.Release()
		builder.AppendValues(v, valid)
		return builder.NewArray()
	case []int64:
		builder := array.NewInt64Builder(mem)
		defer builder.Release()
		builder.AppendValues(v, valid)
		return builder.NewArray()
	case []int32:
		builder := array.NewInt32Builder(mem)
		defer builder.Release()
		builder.AppendValues(v, valid)
		return builder.NewArray()
	case []float64:
		builder := array.NewFloat64Builder(mem)
		defer builder.Release()
		builder.AppendValues(v, valid)
		return builder.NewArray()
	case []float32:
		builder := array.NewFloat32Builder(mem)
		defer builder.Release()
		builder.AppendValues(v, valid)
		return builder.NewArray()
	case []bool:
		builder := array.NewBooleanBuilder(mem)
		defer builder.Release()
		builder.AppendValues(v, valid)
		return builder.NewArray()
	case []time.Time:
		builder := array.NewTimestampBuilder(mem, TimestampType)
		defer builder.Release()
		ts := make([]arrow.Timestamp, len(v))
		for i, t := range v {
			ts[i] = arrow.Timestamp(t.UnixMicro())
		}
		builder.AppendValues(ts, valid)
		return builder.NewArray()
	default:
		panic(fmt.Sprintf("unsupported type: %T", values))
	}
}

// Name returns the column name
func (s *Series[T]) Name() string {
	return s.name
}

// Rename returns a series sharing the same data under a new name
func (s *Series[T]) Rename(name string) *Series[T] {
	return FromArray[T](name, s.array)
}

// Len returns the length of the series
func (s *Series[T]) Len() int {
	return s.array.Len()
}

// NullCount returns the number of null entries
func (s *Series[T]) NullCount() int {
	return s.array.NullN()
}

// Values returns the data as a Go slice. Null entries hold the zero value.
func (s *Series[T]) Values() []T {
	result := make([]T, s.array.Len())
	for i := range result {
		result[i] = s.Value(i)
	}
	return result
}

// Value returns the value at the given index
func (s *Series[T]) Value(index int) T {
	var result T
	if index < 0 || index >= s.array.Len() || s.array.IsNull(index) {
		return result
	}

	switch arr := s.array.(type) {
	case *array.String:
		if v, ok := any(&result).(*string); ok {
			*v = arr.Value(index)
		}
	case *array.Int64:
		if v, ok := any(&result).(*int64); ok {
			*v = arr.Value(index)
		}
	case *array.Int32:
		if v, ok := any(&result).(*int32); ok {
			*v = arr.Value(index)
		}
	case *array.Float64:
		if v, ok := any(&result).(*float64); ok {
			*v = arr.Value(index)
		}
	case *array.Float32:
		if v, ok := any(&result).(*float32); ok {
			*v = arr.Value(index)
		}
	case *array.Boolean:
		if v, ok := any(&result).(*bool); ok {
			*v = arr.Value(index)
		}
	case *array.Timestamp, *array.Date32, *array.Date64:
		if v, ok := any(&result).(*time.Time); ok {
			*v, _ = s.timeAt(index)
		}
	default:
		if f, ok := s.Float64At(index); ok {
			switch v := any(&result).(type) {
			case *float64:
				*v = f
			case *int64:
				*v = int64(f)
			}
		}
	}

	return result
}

// timeAt converts temporal cells using the array's own unit.
func (s *Series[T]) timeAt(index int) (time.Time, bool) {
	switch arr := s.array.(type) {
	case *array.Timestamp:
		unit := arr.DataType().(*arrow.TimestampType).Unit
		return arr.Value(index).ToTime(unit).UTC(), true
	case *array.Date32:
		return arr.Value(index).ToTime().UTC(), true
	case *array.Date64:
		return arr.Value(index).ToTime().UTC(), true
	default:
		return time.Time{}, false
	}
}

// GetAsString returns the value at index formatted as a string; nulls yield "".
func (s *Series[T]) GetAsString(index int) string {
	if index < 0 || index >= s.array.Len() || s.array.IsNull(index) {
		return ""
	}

	switch arr := s.array.(type) {
	case *array.String:
		return arr.Value(index)
	case *array.Int64:
		return strconv.FormatInt(arr.Value(index), 10)
	case *array.Int32:
		return strconv.FormatInt(int64(arr.Value(index)), 10)
	case *array.Float64:
		return strconv.FormatFloat(arr.Value(index), 'g', -1, 64)
	case *array.Float32:
		return strconv.FormatFloat(float64(arr.Value(index)), 'g', -1, 32)
	case *array.Boolean:
		return strconv.FormatBool(arr.Value(index))
	case *array.Timestamp:
		t, _ := s.timeAt(index)
		return t.Format(time.RFC3339Nano)
	case *array.Date32, *array.Date64:
		t, _ := s.timeAt(index)
		return t.Format(time.DateOnly)
	case *array.Decimal128:
		return arr.Value(index).ToString(arr.DataType().(*arrow.Decimal128Type).Scale)
	default:
		return arr.ValueStr(index)
	}
}

// Float64At returns the value at index as a float64. ok is false for nulls,
// NaN and non-numeric columns. Booleans map to 0/1, timestamps and dates to
// Unix seconds.
func (s *Series[T]) Float64At(index int) (float64, bool) {
	if index < 0 || index >= s.array.Len() || s.array.IsNull(index) {
		return 0, false
	}

	var v float64
	switch arr := s.array.(type) {
	case *array.Int64:
		v = float64(arr.Value(index))
	case *array.Int32:
		v = float64(arr.Value(index))
	case *array.Int16:
		v = float64(arr.Value(index))
	case *array.Int8:
		v = float64(arr.Value(index))
	case *array.Uint64:
		v = float64(arr.Value(index))
	case *array.Uint32:
		v = float64(arr.Value(index))
	case *array.Uint16:
		v = float64(arr.Value(index))
	case *array.Uint8:
		v = float64(arr.Value(index))
	case *array.Float64:
		v = arr.Value(index)
	case *array.Float32:
		v = float64(arr.Value(index))
	case *array.Float16:
		v = float64(arr.Value(index).Float32())
	case *array.Decimal128:
		scale := arr.DataType().(*arrow.Decimal128Type).Scale
		v = arr.Value(index).ToFloat64(scale)
	case *array.Boolean:
		if arr.Value(index) {
			v = 1
		}
	case *array.Timestamp, *array.Date32, *array.Date64:
		t, _ := s.timeAt(index)
		v = float64(t.Unix()) + float64(t.Nanosecond())/1e9
	default:
		return 0, false
	}
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// DataType returns the Arrow data type
func (s *Series[T]) DataType() arrow.DataType {
	return s.array.DataType()
}

// IsNull checks if the value at index is null
func (s *Series[T]) IsNull(index int) bool {
	return s.array.IsNull(index)
}

// String returns a string representation of the series
func (s *Series[T]) String() string {
	return fmt.Sprintf("Series[%s]: %s (len=%d)",
		reflect.TypeOf(new(T)).Elem().Name(),
		s.name,
		s.Len())
}

// Array returns the underlying Arrow array (retains a reference)
func (s *Series[T]) Array() arrow.Array {
	if s.array != nil {
		s.array.Retain()
		return s.array
	}
	return nil
}

// Release releases the underlying Arrow memory
func (s *Series[T]) Release() {
	if s.array != nil {
		s.array.Release()
	}
}
