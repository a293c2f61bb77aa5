package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 5 * time.Minute
)

// DB wraps a GORM database connection
type DB struct {
	*gorm.DB
}

// Options tunes how a connection is opened
type Options struct {
	// ConnectionTimeout bounds the initial ping
	ConnectionTimeout time.Duration
	EnableWAL         bool
}

// DefaultOptions returns a 5 second ping timeout with WAL enabled
func DefaultOptions() Options {
	return Options{ConnectionTimeout: 5 * time.Second, EnableWAL: true}
}

// New creates a new database connection with GORM
// dbPath should be the path to the SQLite database file
// Example: "./data/retroguide.db"
func New(dbPath string) (*DB, error) {
	return NewWithOptions(dbPath, DefaultOptions())
}

// NewWithOptions is New with an explicit ping timeout and journal mode
func NewWithOptions(dbPath string, opts Options) (*DB, error) {
	journal := "DELETE"
	if opts.EnableWAL {
		journal = "WAL"
	}
	if opts.ConnectionTimeout <= 0 {
		opts.ConnectionTimeout = DefaultOptions().ConnectionTimeout
	}
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=%s", dbPath, journal)

	// Open database with GORM
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		// Disable default transaction for better performance
		SkipDefaultTransaction: true,
		// Prepare statements for better performance
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Get underlying sql.DB for connection pool configuration
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectionTimeout)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: gormDB}, nil
}

// Health checks database connectivity
func (db *DB) Health(ctx context.Context) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// GetSQLDB returns the underlying sql.DB for migrations
func (db *DB) GetSQLDB() (*sql.DB, error) {
	return db.DB.DB()
}

// Open creates a connection and applies all embedded migrations
func Open(dbPath string) (*DB, error) {
	return OpenWithOptions(dbPath, DefaultOptions())
}

// OpenWithOptions is Open with explicit connection options
func OpenWithOptions(dbPath string, opts Options) (*DB, error) {
	database, err := NewWithOptions(dbPath, opts)
	if err != nil {
		return nil, err
	}

	sqlDB, err := database.GetSQLDB()
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	if err := RunMigrations(sqlDB); err != nil {
		_ = database.Close()
		return nil, err
	}

	return database, nil
}
