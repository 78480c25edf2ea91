// Package migration applies versioned SQL migrations to the SQLite database.
//
// Migrations are read from an fs.FS (normally the files embedded by the sqlite
// package) and must be named {version}_{description}.sql, for example
// "001_schedule_entries.sql". Applied versions are tracked in the
// schema_migrations table so each file runs exactly once. Every file executes
// inside its own transaction.
//
// Example usage:
//
//	manager := NewManager(NewFileScanner(files, "migrations"), NewSQLiteExecutor(db), logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
