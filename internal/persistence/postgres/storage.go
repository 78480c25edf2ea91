// Package postgres stores schedule entries and conflicts in PostgreSQL through gorm.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage bundles the Postgres-backed repositories behind a single handle.
type Storage struct {
	*EntryRepository
	*ConflictRepository

	db     *gorm.DB
	logger *slog.Logger
}

// Open connects to the database at dsn. A nil logger falls back to slog.Default.
func Open(dsn string, log *slog.Logger) (*Storage, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres: dsn is required")
	}
	if log == nil {
		log = slog.Default()
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	return newStorage(db, log), nil
}

func newStorage(db *gorm.DB, log *slog.Logger) *Storage {
	return &Storage{
		EntryRepository:    NewEntryRepository(db),
		ConflictRepository: NewConflictRepository(db),
		db:                 db,
		logger:             log,
	}
}

// Migrate creates or updates the schema for entries and conflicts.
func (s *Storage) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&entryModel{}, &conflictModel{}); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	s.logger.InfoContext(ctx, "postgres schema migrated")
	return nil
}

// Ping verifies the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
