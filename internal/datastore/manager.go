// Package datastore opens the record store database and prepares its schema.
package datastore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tphakala/marcharvest/internal/conf"
	"github.com/tphakala/marcharvest/internal/datastore/entities"
	"github.com/tphakala/marcharvest/internal/logger"
)

// Manager defines the interface for record store database handles.
type Manager interface {
	// Initialize creates or migrates the schema.
	Initialize() error
	// DB returns the underlying GORM database.
	DB() *gorm.DB
	// Path returns the database location with credentials removed.
	Path() string
	// Close closes the database connection.
	Close() error
	// IsMySQL returns true if this is a MySQL manager.
	IsMySQL() bool
}

// GetLogger returns the datastore module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("datastore")
}

// models lists every entity in migration order.
func models() []any {
	return []any{
		&entities.Source{},
		&entities.SourceRecordsFile{},
		&entities.Record{},
		&entities.RecordContent{},
		&entities.HarvestingStatus{},
	}
}

// gormConfig returns the shared GORM configuration.
func gormConfig(slowThreshold time.Duration) *gorm.Config {
	return &gorm.Config{
		Logger:         logger.NewGormLoggerAdapter(GetLogger().Module("gorm"), slowThreshold),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Config holds SQLite configuration.
type Config struct {
	// Path is the database file.
	Path string
	// SlowThreshold is passed to the GORM logger adapter.
	SlowThreshold time.Duration
}

// SQLiteManager handles the SQLite record store.
type SQLiteManager struct {
	db     *gorm.DB
	dbPath string
}

// NewSQLiteManager opens (creating if needed) the SQLite database at cfg.Path.
func NewSQLiteManager(cfg Config) (*SQLiteManager, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Build DSN with recommended SQLite pragmas
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", cfg.Path)

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(cfg.SlowThreshold))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	return &SQLiteManager{
		db:     db,
		dbPath: cfg.Path,
	}, nil
}

// Initialize creates the schema.
func (m *SQLiteManager) Initialize() error {
	if err := m.db.AutoMigrate(models()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// DB returns the underlying GORM database.
func (m *SQLiteManager) DB() *gorm.DB {
	return m.db
}

// Path returns the database file path.
func (m *SQLiteManager) Path() string {
	return m.dbPath
}

// Close closes the database connection.
func (m *SQLiteManager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}

// IsMySQL returns false for SQLite manager.
func (m *SQLiteManager) IsMySQL() bool {
	return false
}

// Open creates the manager selected by settings and initializes the schema.
func Open(settings *conf.DatabaseSettings) (Manager, error) {
	var (
		mgr Manager
		err error
	)

	switch settings.Type {
	case conf.DatabaseMySQL:
		mgr, err = NewMySQLManager(&MySQLConfig{
			Host:          settings.MySQL.Host,
			Port:          settings.MySQL.Port,
			Username:      settings.MySQL.Username,
			Password:      settings.MySQL.Password,
			Database:      settings.MySQL.Database,
			SlowThreshold: settings.SlowThreshold,
		})
	default:
		mgr, err = NewSQLiteManager(Config{
			Path:          settings.SQLite.Path,
			SlowThreshold: settings.SlowThreshold,
		})
	}
	if err != nil {
		return nil, err
	}

	if err := mgr.Initialize(); err != nil {
		_ = mgr.Close()
		return nil, err
	}

	GetLogger().Info("record store ready",
		logger.String("type", settings.Type),
		logger.String("location", mgr.Path()))
	return mgr, nil
}
