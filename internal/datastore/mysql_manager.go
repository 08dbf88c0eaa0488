package datastore

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// MySQLConfig holds MySQL-specific configuration.
type MySQLConfig struct {
	Host          string
	Port          int
	Username      string
	Password      string
	Database      string
	SlowThreshold time.Duration
	// DSN, when set, is used as is instead of the fields above.
	DSN string
}

// FormatDSN builds the driver DSN.
func (c *MySQLConfig) FormatDSN() string {
	if c.DSN != "" {
		return c.DSN
	}

	cfg := mysql.NewConfig()
	cfg.User = c.Username
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	cfg.DBName = c.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// RedactDSN returns user@addr/db for a DSN, dropping the password.
func RedactDSN(dsn string) string {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "mysql"
	}
	return fmt.Sprintf("%s@%s(%s)/%s", cfg.User, cfg.Net, cfg.Addr, cfg.DBName)
}

// MySQLManager handles the MySQL record store.
type MySQLManager struct {
	db       *gorm.DB
	location string
}

// NewMySQLManager connects to MySQL and configures the connection pool.
func NewMySQLManager(cfg *MySQLConfig) (*MySQLManager, error) {
	dsn := cfg.FormatDSN()

	db, err := gorm.Open(gormmysql.Open(dsn), gormConfig(cfg.SlowThreshold))
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database %s: %w", RedactDSN(dsn), err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &MySQLManager{
		db:       db,
		location: RedactDSN(dsn),
	}, nil
}

// Initialize creates the schema.
func (m *MySQLManager) Initialize() error {
	if err := m.db.AutoMigrate(models()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// DB returns the underlying GORM database.
func (m *MySQLManager) DB() *gorm.DB {
	return m.db
}

// Path returns user@tcp(host:port)/database.
func (m *MySQLManager) Path() string {
	return m.location
}

// Close closes the database connection.
func (m *MySQLManager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}

// IsMySQL returns true for MySQL manager.
func (m *MySQLManager) IsMySQL() bool {
	return true
}
