package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/marcharvest/internal/datastore/entities"
)

// recordRepository implements RecordRepository.
type recordRepository struct {
	db *gorm.DB
}

// NewRecordRepository creates a new RecordRepository bound to db.
func NewRecordRepository(db *gorm.DB) RecordRepository {
	return &recordRepository{db: db}
}

// Lookup returns the existing rows for ids.
func (r *recordRepository) Lookup(ctx context.Context, ids []string) (map[string]*entities.Record, error) {
	result := make(map[string]*entities.Record, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	for chunk := range slices.Chunk(ids, lookupChunkSize) {
		var rows []*entities.Record
		if err := r.db.WithContext(ctx).Table(tableRecords).
			Where("id IN ?", chunk).
			Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("lookup records: %w", err)
		}
		for _, row := range rows {
			result[row.ID] = row
		}
	}

	return result, nil
}

// CreateMany inserts records, then contents.
func (r *recordRepository) CreateMany(ctx context.Context, candidates []Candidate) error {
	if len(candidates) == 0 {
		return nil
	}

	records := make([]entities.Record, len(candidates))
	contents := make([]entities.RecordContent, len(candidates))
	for i := range candidates {
		records[i] = candidates[i].Record()
		contents[i] = candidates[i].RecordContent()
	}

	if err := r.db.WithContext(ctx).Table(tableRecords).Create(&records).Error; err != nil {
		return fmt.Errorf("create records: %w", translateWriteError(err))
	}
	if err := r.db.WithContext(ctx).Table(tableRecordContents).Create(&contents).Error; err != nil {
		return fmt.Errorf("create record contents: %w", translateWriteError(err))
	}

	return nil
}

// UpdateMany rewrites changed records and their contents.
func (r *recordRepository) UpdateMany(ctx context.Context, candidates []Candidate, sessionID *int64) error {
	if len(candidates) == 0 {
		return nil
	}

	contents := make([]entities.RecordContent, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		updates := map[string]any{
			"hash":       c.Hash,
			"updated_at": c.UpdatedAt,
			"deleted":    false,
		}
		if sessionID != nil {
			updates["session_id"] = *sessionID
		}

		if err := r.db.WithContext(ctx).Table(tableRecords).
			Where("id = ?", c.ID).
			Updates(updates).Error; err != nil {
			return fmt.Errorf("update record %s: %w", c.ID, err)
		}
		contents = append(contents, c.RecordContent())
	}

	// Upsert so a record missing its content row is repaired instead of failing
	err := r.db.WithContext(ctx).Table(tableRecordContents).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "record_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"content"}),
		}).
		Create(&contents).Error
	if err != nil {
		return fmt.Errorf("update record contents: %w", err)
	}

	return nil
}

// TouchMany sets session_id for ids.
func (r *recordRepository) TouchMany(ctx context.Context, ids []string, sessionID int64) error {
	if len(ids) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).Table(tableRecords).
		Where("id IN ?", ids).
		Update("session_id", sessionID).Error
	if err != nil {
		return fmt.Errorf("touch records: %w", err)
	}
	return nil
}

// TombstoneAbsent marks unseen live records of a source as deleted.
func (r *recordRepository) TombstoneAbsent(ctx context.Context, sourceCode string, sessionID int64, ts time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Table(tableRecords).
		Where("source = ? AND deleted = ? AND session_id <> ?", sourceCode, false, sessionID).
		Updates(map[string]any{
			"deleted":    true,
			"updated_at": ts,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("tombstone records of %s: %w", sourceCode, result.Error)
	}
	return result.RowsAffected, nil
}

// Get retrieves a record by id.
func (r *recordRepository) Get(ctx context.Context, id string) (*entities.Record, error) {
	var record entities.Record
	err := r.db.WithContext(ctx).Table(tableRecords).
		Where("id = ?", id).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetContent returns the decompressed dump of a record.
func (r *recordRepository) GetContent(ctx context.Context, id string) ([]byte, error) {
	var content entities.RecordContent
	err := r.db.WithContext(ctx).Table(tableRecordContents).
		Where("record_id = ?", id).
		First(&content).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return content.Content, nil
}

// CountBySource counts the records of a source.
func (r *recordRepository) CountBySource(ctx context.Context, sourceCode string, includeDeleted bool) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Table(tableRecords).Where("source = ?", sourceCode)
	if !includeDeleted {
		query = query.Where("deleted = ?", false)
	}
	err := query.Count(&count).Error
	return count, err
}
