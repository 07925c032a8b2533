package database_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/playperu/typerace/internal/database"
)

func TestOpenMemory(t *testing.T) {
	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE t (v TEXT)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	// A second statement must see the same in-memory database.
	if _, err := db.Exec(`INSERT INTO t (v) VALUES ('x')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	var n int
	if err := db.QueryRow(`SELECT count(*) FROM t`).Scan(&n); err != nil || n != 1 {
		t.Fatalf("count = %d, err %v", n, err)
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "typerace.db")
	db, err := database.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.Close()
}
