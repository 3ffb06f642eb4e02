package join

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/paveg/tabprep/internal/config"
	"github.com/paveg/tabprep/internal/monitoring"
)

// Failure stages.
const (
	StageFit     = "fit"
	StagePredict = "predict"
)

// ColumnFailure records why one auxiliary column could not be fitted or predicted.
type ColumnFailure struct {
	Column string
	Err    error
}

// FailureLog collects the column failures of a single Fit or Transform call.
type FailureLog struct {
	Stage    string
	Failures []ColumnFailure
}

// Empty reports whether no column failed.
func (l FailureLog) Empty() bool {
	return len(l.Failures) == 0
}

// Columns returns the failed column names in auxiliary column order.
func (l FailureLog) Columns() []string {
	names := make([]string, len(l.Failures))
	for i, f := range l.Failures {
		names[i] = f.Column
	}
	return names
}

// Failed reports whether column is in the log.
func (l FailureLog) Failed(column string) bool {
	for _, f := range l.Failures {
		if f.Column == column {
			return true
		}
	}
	return false
}

func (j *Joiner) handleFailures(log FailureLog, message string) error {
	if log.Empty() {
		return nil
	}
	monitoring.RecordEstimatorFailures(log.Stage, len(log.Failures))

	switch j.opts.OnEstimatorFailure {
	case config.FailureRaise:
		return log.Failures[0].Err
	case config.FailureWarn:
		errs := make([]error, len(log.Failures))
		for i, f := range log.Failures {
			errs[i] = f.Err
		}
		j.log.Warn(message,
			zap.String("stage", log.Stage),
			zap.Strings("columns", log.Columns()),
			zap.Errors("errors", errs),
		)
	}
	return nil
}

// recoverColumn turns a panic raised by a user estimator into an error for
// that column only.
func recoverColumn(column string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("estimator panicked on column %q: %v", column, r)
	}
}
