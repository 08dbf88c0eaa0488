package repository

import (
	"context"

	"github.com/tphakala/marcharvest/internal/datastore/entities"
)

// SourceRepository provides access to the sources and source_records_files tables.
type SourceRepository interface {
	// GetAll retrieves all sources ordered by id.
	GetAll(ctx context.Context) ([]*entities.Source, error)

	// GetActive retrieves active sources ordered by id.
	GetActive(ctx context.Context) ([]*entities.Source, error)

	// GetByCode retrieves a source by its code.
	// Returns ErrSourceNotFound if not found.
	GetByCode(ctx context.Context, code string) (*entities.Source, error)

	// Save creates the source, or updates name, reset and active of the
	// source with the same code. It reports whether a row was created.
	Save(ctx context.Context, source *entities.Source) (bool, error)

	// Files retrieves the records files of a source ordered by id.
	Files(ctx context.Context, sourceID uint) ([]*entities.SourceRecordsFile, error)

	// GetFile retrieves a records file by id.
	// Returns ErrFileNotFound if not found.
	GetFile(ctx context.Context, id uint) (*entities.SourceRecordsFile, error)

	// AddFile attaches a records file to a source unless the same URI is
	// already attached. It reports whether a row was created.
	AddFile(ctx context.Context, file *entities.SourceRecordsFile) (bool, error)
}
