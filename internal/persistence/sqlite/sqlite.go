// Package sqlite implements the to-do data source on an embedded SQLite file.
package sqlite

import (
	"context"
	"embed"
	"log/slog"

	"github.com/example/bsmanager/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationDir = "migrations"

// Storage bundles the connection pool and the to-do repository.
type Storage struct {
	*TodoRepository

	pool   *ConnectionPool
	logger *slog.Logger
}

// Open connects to the database at dsn. Call Migrate before first use.
func Open(dsn string) (*Storage, error) {
	return OpenWithConfig(migration.DefaultSQLiteConfig(dsn), nil)
}

// OpenWithConfig connects using an explicit SQLite configuration.
func OpenWithConfig(config migration.SQLiteConfig, logger *slog.Logger) (*Storage, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Storage{
		TodoRepository: NewTodoRepository(pool),
		pool:           pool,
		logger:         logger,
	}, nil
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// Ping reports whether the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	manager := migration.NewMigrationManager(
		migration.NewFileScanner(migrationFiles),
		migration.NewSQLiteExecutor(s.pool.DB()),
		migrationDir,
		s.logger,
	)
	return manager.RunMigrations(ctx)
}
