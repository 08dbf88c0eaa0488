// Package entities defines the GORM models of the record store.
//
// # Tables
//
//   - sources: harvest sources, identified by a unique code
//   - source_records_files: dump files belonging to a source
//   - records: one row per record identity, the reconciliation target
//   - record_contents: gzip-compressed canonical dump, 1:1 with records
//   - harvesting_statuses: append-only per-run summaries
//
// Record timestamps are written by the harvester with the run's clock and are
// never stamped by GORM, so re-harvesting unchanged data leaves them as is.
package entities
