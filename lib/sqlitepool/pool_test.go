// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitepool_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/trackersync/lib/sqlitepool"
)

const testSchema = `CREATE TABLE IF NOT EXISTS entries (name TEXT PRIMARY KEY, value INTEGER NOT NULL);`

func TestOpenAppliesPragmasAndSchema(t *testing.T) {
	pool := openTestPool(t)

	err := pool.Read(context.Background(), func(conn *sqlite.Conn) error {
		var journalMode string
		if err := sqlitex.Execute(conn, "PRAGMA journal_mode", &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				journalMode = stmt.ColumnText(0)
				return nil
			},
		}); err != nil {
			return err
		}
		if journalMode != "wal" {
			t.Errorf("journal_mode = %q, want %q", journalMode, "wal")
		}
		return sqlitex.Execute(conn, "INSERT INTO entries (name, value) VALUES ('a', 1)", nil)
	})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
}

func TestWriteCommitsOnSuccess(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()

	err := pool.Write(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, "INSERT INTO entries (name, value) VALUES (?, ?)", &sqlitex.ExecOptions{
			Args: []any{"kept", 7},
		})
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	if got := countEntries(t, pool); got != 1 {
		t.Errorf("entries = %d, want 1", got)
	}
}

func TestWriteRollsBackOnError(t *testing.T) {
	pool := openTestPool(t)
	sentinel := errors.New("abort")

	err := pool.Write(context.Background(), func(conn *sqlite.Conn) error {
		if err := sqlitex.Execute(conn, "INSERT INTO entries (name, value) VALUES ('dropped', 1)", nil); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("Write error = %v, want %v", err, sentinel)
	}
	if got := countEntries(t, pool); got != 0 {
		t.Errorf("entries = %d after rollback, want 0", got)
	}
}

func TestEmptyPathRejected(t *testing.T) {
	if _, err := sqlitepool.Open(sqlitepool.Config{}); err == nil {
		t.Fatal("expected error for empty Path")
	}
}

func TestTakeHonorsCancelledContext(t *testing.T) {
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     filepath.Join(t.TempDir(), "cancel.db"),
		PoolSize: 1,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer pool.Close()

	conn, err := pool.Take(context.Background())
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	defer pool.Put(conn)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := pool.Take(ctx); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func countEntries(t *testing.T, pool *sqlitepool.Pool) int {
	t.Helper()
	var count int
	err := pool.Read(context.Background(), func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, "SELECT COUNT(*) FROM entries", &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				count = stmt.ColumnInt(0)
				return nil
			},
		})
	})
	if err != nil {
		t.Fatalf("counting entries: %v", err)
	}
	return count
}

func openTestPool(t *testing.T) *sqlitepool.Pool {
	t.Helper()
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     filepath.Join(t.TempDir(), "test.db"),
		PoolSize: 2,
		Schema:   testSchema,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := pool.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return pool
}
