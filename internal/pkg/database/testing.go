package database

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
)

// NewTestDB returns a migrated in-memory SQLite ledger closed when the test ends.
func NewTestDB(t testing.TB) *sqlx.DB {
	t.Helper()

	db, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
