package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tphakala/marcharvest/internal/datastore/entities"
)

// sourceRepository implements SourceRepository.
type sourceRepository struct {
	db *gorm.DB
}

// NewSourceRepository creates a new SourceRepository bound to db.
func NewSourceRepository(db *gorm.DB) SourceRepository {
	return &sourceRepository{db: db}
}

// GetAll retrieves all sources.
func (r *sourceRepository) GetAll(ctx context.Context) ([]*entities.Source, error) {
	var sources []*entities.Source
	err := r.db.WithContext(ctx).Table(tableSources).
		Order("id ASC").
		Find(&sources).Error
	return sources, err
}

// GetActive retrieves active sources.
func (r *sourceRepository) GetActive(ctx context.Context) ([]*entities.Source, error) {
	var sources []*entities.Source
	err := r.db.WithContext(ctx).Table(tableSources).
		Where("active = ?", true).
		Order("id ASC").
		Find(&sources).Error
	return sources, err
}

// GetByCode retrieves a source by its code.
func (r *sourceRepository) GetByCode(ctx context.Context, code string) (*entities.Source, error) {
	var source entities.Source
	err := r.db.WithContext(ctx).Table(tableSources).
		Where("code = ?", code).
		First(&source).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSourceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &source, nil
}

// Save creates or updates a source by code.
func (r *sourceRepository) Save(ctx context.Context, source *entities.Source) (bool, error) {
	if source.Code == "" {
		return false, fmt.Errorf("%w: source code is required", ErrInvalidInput)
	}

	existing, err := r.GetByCode(ctx, source.Code)
	switch {
	case errors.Is(err, ErrSourceNotFound):
		if err := r.db.WithContext(ctx).Table(tableSources).Create(source).Error; err != nil {
			return false, fmt.Errorf("create source %s: %w", source.Code, translateWriteError(err))
		}
		return true, nil
	case err != nil:
		return false, err
	}

	err = r.db.WithContext(ctx).Table(tableSources).
		Where("id = ?", existing.ID).
		Updates(map[string]any{
			"name":   source.Name,
			"reset":  source.Reset,
			"active": source.Active,
		}).Error
	if err != nil {
		return false, fmt.Errorf("update source %s: %w", source.Code, err)
	}

	source.ID = existing.ID
	source.CreatedAt = existing.CreatedAt
	return false, nil
}

// Files retrieves the records files of a source.
func (r *sourceRepository) Files(ctx context.Context, sourceID uint) ([]*entities.SourceRecordsFile, error) {
	var files []*entities.SourceRecordsFile
	err := r.db.WithContext(ctx).Table(tableSourceRecordsFiles).
		Where("source_id = ?", sourceID).
		Order("id ASC").
		Find(&files).Error
	return files, err
}

// GetFile retrieves a records file by id.
func (r *sourceRepository) GetFile(ctx context.Context, id uint) (*entities.SourceRecordsFile, error) {
	var file entities.SourceRecordsFile
	err := r.db.WithContext(ctx).Table(tableSourceRecordsFiles).First(&file, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// AddFile attaches a records file to a source.
func (r *sourceRepository) AddFile(ctx context.Context, file *entities.SourceRecordsFile) (bool, error) {
	if file.SourceID == 0 || file.FileURI == "" {
		return false, fmt.Errorf("%w: source id and file uri are required", ErrInvalidInput)
	}
	file.ApplyDefaults()

	var existing entities.SourceRecordsFile
	err := r.db.WithContext(ctx).Table(tableSourceRecordsFiles).
		Where("source_id = ? AND file_uri = ?", file.SourceID, file.FileURI).
		First(&existing).Error
	if err == nil {
		*file = existing
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	if err := r.db.WithContext(ctx).Table(tableSourceRecordsFiles).Create(file).Error; err != nil {
		return false, fmt.Errorf("create records file: %w", translateWriteError(err))
	}
	return true, nil
}
