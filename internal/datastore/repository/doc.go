// Package repository provides the record store repositories.
//
// # Transactions
//
// Repositories are bound to the *gorm.DB they are built with. Building them
// from a transaction handle makes every call participate in that transaction:
//
//	err := db.Transaction(func(tx *gorm.DB) error {
//	    records := repository.NewRecordRepository(tx)
//	    return records.TouchMany(ctx, ids, sessionID)
//	})
//
// # Bulk Operations
//
// RecordRepository exposes set-oriented operations sized for one reconcile
// batch. Lookup chunks large id sets to stay under driver parameter limits.
// TouchMany and TombstoneAbsent are single UPDATE statements.
//
// # Error Handling
//
// Repositories return sentinel errors (ErrSourceNotFound, ErrDuplicateKey, ...)
// instead of leaking driver errors. Primary key and unique collisions are
// detected for both SQLite and MySQL and reported as ErrDuplicateKey.
//
// # Required Schema Constraints
//
//   - sources: UNIQUE(code)
//   - records: PRIMARY KEY(id)
//   - record_contents: PRIMARY KEY(record_id), FK records(id) ON DELETE CASCADE
package repository
