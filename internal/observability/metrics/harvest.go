package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// HarvestMetrics contains Prometheus metrics for harvest runs.
type HarvestMetrics struct {
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	errors     *prometheus.CounterVec
	records    *prometheus.CounterVec
	batches    prometheus.Counter
	tombstoned *prometheus.CounterVec
	lastRun    *prometheus.GaugeVec
	registry   *prometheus.Registry
}

// NewHarvestMetrics creates and registers harvest metrics.
func NewHarvestMetrics(registry *prometheus.Registry) (*HarvestMetrics, error) {
	m := &HarvestMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register harvest metrics: %w", err)
	}
	return m, nil
}

func (m *HarvestMetrics) initMetrics() {
	m.operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_operations_total",
			Help: "Total number of harvest operations by status",
		},
		[]string{"operation", "status"}, // operation: collect, source_run; status: success, error, commit, rollback
	)

	m.durations = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "harvest_operation_duration_seconds",
			Help:    "Time taken by harvest operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart100ms, BucketFactor2, BucketCount15),
		},
		[]string{"operation"},
	)

	m.errors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_errors_total",
			Help: "Total number of harvest errors by type",
		},
		[]string{"operation", "error_type"}, // error_type: not exists, access denied, database, ...
	)

	m.records = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_records_total",
			Help: "Records processed by reconciliation outcome",
		},
		[]string{"source", "outcome"},
	)

	m.batches = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "harvest_batches_total",
		Help: "Total number of reconciled batches",
	})

	m.tombstoned = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_tombstoned_records_total",
			Help: "Records marked deleted because a reset run did not see them",
		},
		[]string{"source"},
	)

	m.lastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "harvest_last_run_timestamp_seconds",
			Help: "Session id of the latest run of a source",
		},
		[]string{"source"},
	)
}

// RecordOperation implements Recorder.
func (m *HarvestMetrics) RecordOperation(operation, status string) {
	m.operations.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder.
func (m *HarvestMetrics) RecordDuration(operation string, seconds float64) {
	m.durations.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder.
func (m *HarvestMetrics) RecordError(operation, errorType string) {
	m.errors.WithLabelValues(operation, errorType).Inc()
}

// AddRecords counts n records of source with the given outcome.
func (m *HarvestMetrics) AddRecords(source, outcome string, n int) {
	if n <= 0 {
		return
	}
	m.records.WithLabelValues(source, outcome).Add(float64(n))
}

// IncBatches counts one reconciled batch.
func (m *HarvestMetrics) IncBatches() {
	m.batches.Inc()
}

// AddTombstoned counts records tombstoned for source.
func (m *HarvestMetrics) AddTombstoned(source string, n int64) {
	if n <= 0 {
		return
	}
	m.tombstoned.WithLabelValues(source).Add(float64(n))
}

// SetLastRun stores the session id of the latest run of source.
func (m *HarvestMetrics) SetLastRun(source string, sessionID int64) {
	m.lastRun.WithLabelValues(source).Set(float64(sessionID))
}

// Describe implements the prometheus.Collector interface.
func (m *HarvestMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.operations.Describe(ch)
	m.durations.Describe(ch)
	m.errors.Describe(ch)
	m.records.Describe(ch)
	m.batches.Describe(ch)
	m.tombstoned.Describe(ch)
	m.lastRun.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *HarvestMetrics) Collect(ch chan<- prometheus.Metric) {
	m.operations.Collect(ch)
	m.durations.Collect(ch)
	m.errors.Collect(ch)
	m.records.Collect(ch)
	m.batches.Collect(ch)
	m.tombstoned.Collect(ch)
	m.lastRun.Collect(ch)
}

var _ Recorder = (*HarvestMetrics)(nil)
