// Package dbtest opens migrated throwaway databases for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"stickerchart/internal/db"
)

// Open returns a fully migrated database in a temporary directory.
func Open(t testing.TB) *sqlx.DB {
	t.Helper()
	database, err := db.Open(db.ManagerConfig{Path: filepath.Join(t.TempDir(), "stickerchart.db")})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	if _, _, err := db.Migrate(context.Background(), database); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return database
}

// UserID returns the id of the user with the given name.
func UserID(t testing.TB, database *sqlx.DB, name string) int64 {
	t.Helper()
	var id int64
	if err := database.Get(&id, `SELECT id FROM users WHERE name = ?`, name); err != nil {
		t.Fatalf("lookup user %q: %v", name, err)
	}
	return id
}

// AddUser inserts a user with a wallet and a ledger and returns its id.
func AddUser(t testing.TB, database *sqlx.DB, name string, assets int64) int64 {
	t.Helper()
	res, err := database.Exec(`INSERT INTO users (name, role, code) VALUES (?, 'User', '1234')`, name)
	if err != nil {
		t.Fatalf("insert user %q: %v", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("user id: %v", err)
	}
	if _, err := database.Exec(`INSERT INTO wallets (owner, assets, credit) VALUES (?, ?, 100)`, id, assets); err != nil {
		t.Fatalf("insert wallet: %v", err)
	}
	if _, err := database.Exec(`INSERT INTO ledgers (user_id, created_at) VALUES (?, 0)`, id); err != nil {
		t.Fatalf("insert ledger: %v", err)
	}
	return id
}

// Assets returns the wallet assets of owner.
func Assets(t testing.TB, database *sqlx.DB, owner int64) int64 {
	t.Helper()
	var assets int64
	if err := database.Get(&assets, `SELECT assets FROM wallets WHERE owner = ?`, owner); err != nil {
		t.Fatalf("wallet %d: %v", owner, err)
	}
	return assets
}

// Count runs a COUNT query.
func Count(t testing.TB, database *sqlx.DB, query string, args ...any) int64 {
	t.Helper()
	var n int64
	if err := database.Get(&n, query, args...); err != nil {
		t.Fatalf("count %q: %v", query, err)
	}
	return n
}
