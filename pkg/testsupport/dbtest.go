package testsupport

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func NewSQLiteMemoryDB() (*sql.DB, error) {
	return sql.Open("sqlite3", "file::memory:?cache=shared")
}

// MustSQLiteMemoryDB opens an in-memory database and registers cleanup on t.
func MustSQLiteMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := NewSQLiteMemoryDB()
	if err != nil {
		t.Fatalf("open sqlite memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
