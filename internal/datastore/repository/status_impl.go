package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tphakala/marcharvest/internal/datastore/entities"
)

// statusRepository implements StatusRepository.
type statusRepository struct {
	db *gorm.DB
}

// NewStatusRepository creates a new StatusRepository bound to db.
func NewStatusRepository(db *gorm.DB) StatusRepository {
	return &statusRepository{db: db}
}

// Append stores a new status row.
func (r *statusRepository) Append(ctx context.Context, status *entities.HarvestingStatus) error {
	if status.ID != 0 {
		return fmt.Errorf("%w: harvesting statuses are append-only", ErrInvalidInput)
	}
	status.Message = entities.TruncateMessage(status.Message)
	if err := r.db.WithContext(ctx).Table(tableHarvestingStatuses).Create(status).Error; err != nil {
		return fmt.Errorf("append harvesting status: %w", err)
	}
	return nil
}

// ListBySource retrieves statuses of a source, newest first.
func (r *statusRepository) ListBySource(ctx context.Context, sourceID uint, limit int) ([]*entities.HarvestingStatus, error) {
	var statuses []*entities.HarvestingStatus
	query := r.db.WithContext(ctx).Table(tableHarvestingStatuses).
		Where("source_id = ?", sourceID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&statuses).Error
	return statuses, err
}

// Latest retrieves the newest status of a source.
func (r *statusRepository) Latest(ctx context.Context, sourceID uint) (*entities.HarvestingStatus, error) {
	statuses, err := r.ListBySource(ctx, sourceID, 1)
	if err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		return nil, ErrStatusNotFound
	}
	return statuses[0], nil
}

// LastSessionID returns the highest session id recorded for a source.
func (r *statusRepository) LastSessionID(ctx context.Context, sourceID uint) (int64, error) {
	var last int64
	err := r.db.WithContext(ctx).Table(tableHarvestingStatuses).
		Where("source_id = ?", sourceID).
		Select("COALESCE(MAX(session_id), 0)").
		Scan(&last).Error
	if err != nil {
		return 0, fmt.Errorf("last session id: %w", err)
	}
	return last, nil
}
