// Package migration applies versioned schema changes to the to-do SQLite database.
//
// Migrations are read from an fs.FS (normally an embedded directory) and follow
// the naming convention {version}_{description}.sql, e.g. "001_create_todos.sql".
// Each migration runs in its own transaction and is recorded in the
// schema_migrations table so it is applied at most once.
//
// Example usage:
//
//	scanner := NewFileScanner(migrationsFS)
//	manager := NewMigrationManager(scanner, NewSQLiteExecutor(db), "migrations", logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
