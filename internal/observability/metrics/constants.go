// Package metrics provides constants used across metric definitions.
package metrics

// Record outcome labels.
const (
	OutcomeCreated    = "created"
	OutcomeUpdated    = "updated"
	OutcomeTouched    = "touched"
	OutcomeParseError = "parse_error"
)

// Run and collection result labels.
const (
	ResultSuccess  = "success"
	ResultError    = "error"
	ResultCommit   = "commit"
	ResultRollback = "rollback"
)

// Operation labels.
const (
	OpCollect       = "collect"
	OpCollectSource = "collect_source"
	OpSourceRun     = "source_run"
	OpFileHarvest   = "file_harvest"
	OpBatch         = "batch"
	OpCount         = "count"
	OpRecordContent = "record_content"
)

// Histogram bucket configuration constants.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~4s range).
	BucketStart1ms = 0.001
	// BucketStart100ms is the starting bucket for 100ms histograms (100ms to ~100s range).
	BucketStart100ms = 0.1
	// BucketStart64B is the starting bucket for 64 byte histograms.
	BucketStart64B = 64.0

	BucketFactor2 = 2
	BucketCount10 = 10
	BucketCount12 = 12
	BucketCount15 = 15
)
