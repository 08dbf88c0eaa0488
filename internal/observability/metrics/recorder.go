// Package metrics provides custom Prometheus metrics for the harvester.
package metrics

// Recorder defines a minimal interface for recording metrics.
// Components depend on it rather than on concrete metric implementations.
type Recorder interface {
	// RecordOperation records an operation with its status,
	// e.g. ("source_run", "success").
	RecordOperation(operation, status string)

	// RecordDuration records the duration of an operation in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordError records an error occurrence with its type.
	RecordError(operation, errorType string)
}
