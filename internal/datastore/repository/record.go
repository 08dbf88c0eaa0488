package repository

import (
	"context"
	"time"

	"github.com/tphakala/marcharvest/internal/datastore/entities"
)

// RecordRepository provides access to the records and record_contents tables.
type RecordRepository interface {
	// Lookup returns the existing rows for ids, keyed by id.
	// Missing ids are absent from the map.
	Lookup(ctx context.Context, ids []string) (map[string]*entities.Record, error)

	// CreateMany inserts records and then their contents.
	// Returns ErrDuplicateKey if any id already exists.
	CreateMany(ctx context.Context, candidates []Candidate) error

	// UpdateMany rewrites hash, updated_at and content of existing records and
	// clears their deleted flag. A non-nil sessionID is stored as well.
	UpdateMany(ctx context.Context, candidates []Candidate, sessionID *int64) error

	// TouchMany marks ids as seen by sessionID in a single statement.
	// An empty id set performs no statement.
	TouchMany(ctx context.Context, ids []string, sessionID int64) error

	// TombstoneAbsent marks live records of sourceCode not seen by sessionID
	// as deleted, stamping updated_at with ts. Returns the affected row count.
	TombstoneAbsent(ctx context.Context, sourceCode string, sessionID int64, ts time.Time) (int64, error)

	// Get retrieves a record by id.
	// Returns ErrRecordNotFound if not found.
	Get(ctx context.Context, id string) (*entities.Record, error)

	// GetContent returns the decompressed dump of a record.
	// Returns ErrRecordNotFound if not found.
	GetContent(ctx context.Context, id string) ([]byte, error)

	// CountBySource counts the records of a source.
	CountBySource(ctx context.Context, sourceCode string, includeDeleted bool) (int64, error)
}
