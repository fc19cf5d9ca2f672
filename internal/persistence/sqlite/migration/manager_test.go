package migration

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := NewConnectionManager(TempFileTestSQLiteConfig(filepath.Join(t.TempDir(), "migrate.db"))).GetConnection()
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMigrationManager_RunMigrations(t *testing.T) {
	t.Parallel()

	t.Run("applies pending migrations once", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		db := openTestDB(t)
		fsys := fstest.MapFS{
			"m/001_create.sql": {Data: []byte("CREATE TABLE items (id TEXT PRIMARY KEY);")},
			"m/002_seed.sql":   {Data: []byte("INSERT INTO items (id) VALUES ('a');\nINSERT INTO items (id) VALUES ('b');")},
		}
		manager := NewMigrationManager(NewFileScanner(fsys), NewSQLiteExecutor(db), "m", quietLogger())

		if err := manager.RunMigrations(ctx); err != nil {
			t.Fatalf("first run failed: %v", err)
		}
		if err := manager.RunMigrations(ctx); err != nil {
			t.Fatalf("second run failed: %v", err)
		}

		var count int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM items").Scan(&count); err != nil {
			t.Fatalf("count failed: %v", err)
		}
		if count != 2 {
			t.Fatalf("expected seed rows applied once, got %d", count)
		}

		status, err := manager.GetMigrationStatus(ctx)
		if err != nil {
			t.Fatalf("GetMigrationStatus failed: %v", err)
		}
		if status.CurrentVersion != "002" || status.PendingCount != 0 || len(status.AppliedMigrations) != 2 {
			t.Fatalf("unexpected status %+v", status)
		}
	})

	t.Run("rolls back a failing migration", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		db := openTestDB(t)
		fsys := fstest.MapFS{
			"m/001_broken.sql": {Data: []byte("CREATE TABLE ok_table (id TEXT);\nINSERT INTO missing_table VALUES (1);")},
		}
		manager := NewMigrationManager(NewFileScanner(fsys), NewSQLiteExecutor(db), "m", quietLogger())

		err := manager.RunMigrations(ctx)
		if !errors.Is(err, ErrMigrationFailed) {
			t.Fatalf("expected ErrMigrationFailed, got %v", err)
		}

		var name string
		err = db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'ok_table'").Scan(&name)
		if !errors.Is(err, sql.ErrNoRows) {
			t.Fatalf("expected ok_table to be rolled back, got %q (%v)", name, err)
		}
	})

	t.Run("detects gaps and edited migrations", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		db := openTestDB(t)

		gap := fstest.MapFS{
			"m/001_a.sql": {Data: []byte("CREATE TABLE a (id TEXT);")},
			"m/003_c.sql": {Data: []byte("CREATE TABLE c (id TEXT);")},
		}
		if err := NewMigrationManager(NewFileScanner(gap), NewSQLiteExecutor(db), "m", quietLogger()).RunMigrations(ctx); !errors.Is(err, ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict, got %v", err)
		}

		original := fstest.MapFS{"m/001_a.sql": {Data: []byte("CREATE TABLE a (id TEXT);")}}
		if err := NewMigrationManager(NewFileScanner(original), NewSQLiteExecutor(db), "m", quietLogger()).RunMigrations(ctx); err != nil {
			t.Fatalf("initial run failed: %v", err)
		}

		edited := fstest.MapFS{"m/001_a.sql": {Data: []byte("CREATE TABLE a (id TEXT, extra TEXT);")}}
		if err := NewMigrationManager(NewFileScanner(edited), NewSQLiteExecutor(db), "m", quietLogger()).RunMigrations(ctx); !errors.Is(err, ErrChecksumMismatch) {
			t.Fatalf("expected ErrChecksumMismatch, got %v", err)
		}
	})
}

func TestConnectionManager(t *testing.T) {
	t.Parallel()

	cm := NewConnectionManager(SQLiteConfig{DSN: "todos.db", BusyTimeout: 0, EnableForeignKeys: true, JournalMode: "WAL"})
	want := "todos.db?_pragma=busy_timeout%280%29&_pragma=foreign_keys%281%29&_pragma=journal_mode%28WAL%29"
	if got := cm.ConnectionString(); got != want {
		t.Fatalf("unexpected connection string %q", got)
	}

	invalid := NewConnectionManager(SQLiteConfig{DSN: "x.db", JournalMode: "FAST"})
	if err := invalid.ValidateConfig(); err == nil {
		t.Fatal("expected invalid journal mode to be rejected")
	}
	if err := NewConnectionManager(SQLiteConfig{}).ValidateConfig(); err == nil {
		t.Fatal("expected empty DSN to be rejected")
	}
}
