package repository

import (
	"context"

	"github.com/tphakala/marcharvest/internal/datastore/entities"
)

// StatusRepository provides append-only access to the harvesting_statuses table.
type StatusRepository interface {
	// Append stores a new status row.
	Append(ctx context.Context, status *entities.HarvestingStatus) error

	// ListBySource retrieves statuses of a source, newest first.
	// A limit <= 0 returns all rows.
	ListBySource(ctx context.Context, sourceID uint, limit int) ([]*entities.HarvestingStatus, error)

	// Latest retrieves the newest status of a source.
	// Returns ErrStatusNotFound if the source has never been harvested.
	Latest(ctx context.Context, sourceID uint) (*entities.HarvestingStatus, error)

	// LastSessionID returns the highest session id recorded for a source, 0 if none.
	LastSessionID(ctx context.Context, sourceID uint) (int64, error)
}
