package repository

import (
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"github.com/tphakala/marcharvest/internal/errors"
)

// Sentinel errors for repository operations.
var (
	// ErrSourceNotFound indicates the requested source does not exist.
	ErrSourceNotFound = errors.NewStd("source not found")

	// ErrFileNotFound indicates the requested source records file does not exist.
	ErrFileNotFound = errors.NewStd("source records file not found")

	// ErrRecordNotFound indicates the requested record does not exist.
	ErrRecordNotFound = errors.NewStd("record not found")

	// ErrStatusNotFound indicates no harvesting status exists for the source.
	ErrStatusNotFound = errors.NewStd("harvesting status not found")

	// ErrDuplicateKey indicates a primary key or unique constraint violation.
	ErrDuplicateKey = errors.NewStd("duplicate key")

	// ErrInvalidInput indicates invalid input parameters.
	ErrInvalidInput = errors.NewStd("invalid input")
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// isDuplicateKeyError reports whether err is a key collision from any supported backend.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntry
	}

	return false
}

// translateWriteError maps key collisions to ErrDuplicateKey, keeping the driver error in the chain.
func translateWriteError(err error) error {
	if isDuplicateKeyError(err) {
		return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
	}
	return err
}
