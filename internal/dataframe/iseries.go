package dataframe

import (
	"github.com/apache/arrow-go/v18/arrow"
)

// ISeries provides a type-erased interface for Series of any type
type ISeries interface {
	Name() string
	Len() int
	DataType() arrow.DataType
	IsNull(index int) bool
	NullCount() int
	String() string
	Array() arrow.Array
	Release()
	GetAsString(index int) string
	Float64At(index int) (float64, bool)
}

// renamedSeries exposes a series under another name without copying its data.
type renamedSeries struct {
	ISeries
	name string
}

func (r renamedSeries) Name() string { return r.name }

// retainedSeries holds its own reference to the underlying array, so a frame
// built from it can be released independently of the source frame.
type retainedSeries struct {
	ISeries
	arr arrow.Array
}

func (r retainedSeries) Release() { r.arr.Release() }

// Retained returns s backed by a new reference to its array.
func Retained(s ISeries) ISeries {
	return retainedSeries{ISeries: s, arr: s.Array()}
}
