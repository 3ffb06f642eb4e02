package tabprep

import (
	"net/http"

	"github.com/paveg/tabprep/internal/config"
	"github.com/paveg/tabprep/internal/logger"
	"github.com/paveg/tabprep/internal/monitoring"
)

// OperationSummary aggregates the recorded fit and transform calls.
type OperationSummary = monitoring.MetricsSummary

// InitLogging installs the library logger writing JSON to stderr. An empty
// level selects "debug" when the global config enables verbose logging and
// "warn" otherwise.
func InitLogging(level string) error {
	if level == "" {
		level = "warn"
		if config.GetGlobalConfig().VerboseLogging {
			level = "debug"
		}
	}
	return logger.Init(logger.Config{Level: level})
}

// EnableOperationMetrics starts recording encoder and join calls, keeping at
// most limit entries. A non-positive limit disables recording.
func EnableOperationMetrics(limit int) {
	monitoring.SetGlobalCollector(monitoring.NewMetricsCollector(limit > 0, limit))
}

// OperationMetrics returns the summary of the recorded calls.
func OperationMetrics() OperationSummary {
	return monitoring.GetGlobalCollector().GetSummary()
}

// MetricsHandler serves Prometheus metrics on /metrics and the operation
// summary as JSON on /summary.
func MetricsHandler() http.Handler {
	return monitoring.NewHandler(monitoring.GetGlobalCollector())
}
