// Package monitoring provides Prometheus metrics and operation timing for
// tabprep transformers.
package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every tabprep collector. It is separate from the
// Prometheus default registry so embedding programs opt in explicitly.
var Registry = prometheus.NewRegistry()

var (
	// CacheLookups counts hash cache lookups.
	// Labels: result (hit/miss)
	CacheLookups = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabprep_hash_cache_lookups_total",
			Help: "Total number of min-hash cache lookups",
		},
		[]string{"result"},
	)

	// CacheEvictions counts vectors dropped from a full hash cache.
	CacheEvictions = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Name: "tabprep_hash_cache_evictions_total",
			Help: "Total number of min-hash cache evictions",
		},
	)

	// EstimatorFailures counts per-column estimator failures.
	// Labels: stage (fit/predict)
	EstimatorFailures = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabprep_estimator_failures_total",
			Help: "Total number of estimator fit or predict failures",
		},
		[]string{"stage"},
	)

	// OperationDuration tracks transformer operation latency in seconds.
	// Labels: operation, status (success/failure)
	OperationDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tabprep_operation_duration_seconds",
			Help:    "Duration of transformer operations in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{"operation", "status"},
	)
)

// RecordCacheLookup counts a cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	CacheLookups.WithLabelValues("miss").Inc()
}

// RecordCacheEvictions adds n evictions.
func RecordCacheEvictions(n int) {
	if n > 0 {
		CacheEvictions.Add(float64(n))
	}
}

// RecordEstimatorFailures adds n failures for the given stage.
func RecordEstimatorFailures(stage string, n int) {
	if n > 0 {
		EstimatorFailures.WithLabelValues(stage).Add(float64(n))
	}
}

// OperationMetrics represents performance metrics for a single transformer operation.
type OperationMetrics struct {
	Duration      time.Duration `json:"duration"`
	RowsProcessed int64         `json:"rows_processed"`
	Operation     string        `json:"operation"`
	Failed        bool          `json:"failed"`
}

// MetricsCollector keeps a bounded in-memory log of operations in addition to
// the OperationDuration histogram.
type MetricsCollector struct {
	mu      sync.RWMutex
	metrics []OperationMetrics
	limit   int
	enabled bool
}

// NewMetricsCollector creates a new metrics collector that keeps at most limit records.
func NewMetricsCollector(enabled bool, limit int) *MetricsCollector {
	if limit <= 0 {
		limit = 256
	}
	return &MetricsCollector{
		metrics: make([]OperationMetrics, 0),
		limit:   limit,
		enabled: enabled,
	}
}

// IsEnabled returns whether metrics collection is enabled.
func (mc *MetricsCollector) IsEnabled() bool {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.enabled
}

// SetEnabled enables or disables metrics collection.
func (mc *MetricsCollector) SetEnabled(enabled bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.enabled = enabled
}

// RecordOperation executes fn and records its duration.
func (mc *MetricsCollector) RecordOperation(operation string, rows int, fn func() error) error {
	if !mc.IsEnabled() {
		return fn()
	}

	start := time.Now()
	err := fn()
	duration := time.Since(start)

	status := "success"
	if err != nil {
		status = "failure"
	}
	OperationDuration.WithLabelValues(operation, status).Observe(duration.Seconds())

	mc.mu.Lock()
	if len(mc.metrics) >= mc.limit {
		mc.metrics = mc.metrics[1:]
	}
	mc.metrics = append(mc.metrics, OperationMetrics{
		Duration:      duration,
		RowsProcessed: int64(rows),
		Operation:     operation,
		Failed:        err != nil,
	})
	mc.mu.Unlock()

	return err
}

// GetMetrics returns a copy of all collected metrics.
func (mc *MetricsCollector) GetMetrics() []OperationMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	result := make([]OperationMetrics, len(mc.metrics))
	copy(result, mc.metrics)
	return result
}

// Clear removes all collected metrics.
func (mc *MetricsCollector) Clear() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.metrics = mc.metrics[:0]
}

// MetricsSummary provides aggregate statistics for collected metrics.
type MetricsSummary struct {
	TotalOperations int            `json:"total_operations"`
	TotalFailures   int            `json:"total_failures"`
	TotalDuration   time.Duration  `json:"total_duration"`
	TotalRows       int64          `json:"total_rows"`
	OperationCounts map[string]int `json:"operation_counts"`
	AverageDuration time.Duration  `json:"average_duration"`
}

// GetSummary returns a summary of collected metrics.
func (mc *MetricsCollector) GetSummary() MetricsSummary {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	if len(mc.metrics) == 0 {
		return MetricsSummary{}
	}

	summary := MetricsSummary{
		TotalOperations: len(mc.metrics),
		OperationCounts: make(map[string]int),
	}
	for _, metric := range mc.metrics {
		summary.TotalDuration += metric.Duration
		summary.TotalRows += metric.RowsProcessed
		summary.OperationCounts[metric.Operation]++
		if metric.Failed {
			summary.TotalFailures++
		}
	}
	summary.AverageDuration = summary.TotalDuration / time.Duration(len(mc.metrics))
	return summary
}

var (
	globalCollector = NewMetricsCollector(false, 0)
	globalMu        sync.RWMutex
)

// SetGlobalCollector sets the collector used by RecordGlobalOperation.
func SetGlobalCollector(collector *MetricsCollector) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalCollector = collector
}

// GetGlobalCollector returns the global collector.
func GetGlobalCollector() *MetricsCollector {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalCollector
}

// RecordGlobalOperation records fn on the global collector.
func RecordGlobalOperation(operation string, rows int, fn func() error) error {
	return GetGlobalCollector().RecordOperation(operation, rows, fn)
}
