package testutil

import (
	"database/sql"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/xxxsen/gemchat/internal/pkg/dbutil"
	"github.com/xxxsen/gemchat/internal/repo"
)

// OpenTestDB opens a fresh in-memory SQLite database with all migrations
// applied. The pool is pinned to one connection; each connection would
// otherwise get its own empty in-memory database.
func OpenTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	conn, err := repo.Open(dbutil.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	conn.SetMaxOpenConns(1)
	if err := repo.ApplyMigrations(conn, migrationsDir(t)); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return conn, func() {
		_ = conn.Close()
	}
}

func migrationsDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot locate migrations dir")
	}
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}
