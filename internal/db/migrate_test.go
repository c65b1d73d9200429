package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
)

// legacyV1Schema is the layout written by releases at schema version 1.
const legacyV1Schema = `
CREATE TABLE db_version (id INTEGER PRIMARY KEY CHECK (id = 1), version INTEGER NOT NULL);
CREATE TABLE roles (name TEXT PRIMARY KEY);
CREATE TABLE users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	role TEXT NOT NULL,
	code TEXT NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at INTEGER NOT NULL DEFAULT 0,
	updated_at INTEGER NOT NULL DEFAULT 0,
	icon TEXT
);
CREATE TABLE wallets (owner INTEGER PRIMARY KEY, assets INTEGER NOT NULL DEFAULT 0, credit INTEGER NOT NULL DEFAULT 0);
CREATE TABLE event_types (
	name TEXT PRIMARY KEY,
	icon TEXT,
	iconColor TEXT,
	availability INTEGER DEFAULT 0,
	weight INTEGER DEFAULT 1,
	owner INTEGER,
	created_at INTEGER
);
CREATE TABLE events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	eventType TEXT NOT NULL,
	note TEXT,
	photoPath TEXT,
	created_by INTEGER NOT NULL,
	created_at INTEGER NOT NULL DEFAULT 0,
	is_verified INTEGER NOT NULL DEFAULT 0,
	verified_at INTEGER,
	verified_by INTEGER
);
CREATE TABLE products (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	images TEXT NOT NULL DEFAULT '',
	price INTEGER NOT NULL DEFAULT 0,
	quantity INTEGER NOT NULL DEFAULT 0,
	creator INTEGER NOT NULL,
	online INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL DEFAULT 0,
	updated_at INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE purchases (
	order_number INTEGER PRIMARY KEY AUTOINCREMENT,
	product_id INTEGER NOT NULL,
	owner INTEGER NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	images TEXT NOT NULL DEFAULT '',
	price INTEGER NOT NULL,
	quantity INTEGER NOT NULL,
	createdAt INTEGER NOT NULL,
	fulfilledAt INTEGER,
	fulfilledBy INTEGER
);
INSERT INTO db_version (id, version) VALUES (1, 1);
INSERT INTO roles (name) VALUES ('Admin'), ('Guest'), ('User');
INSERT INTO users (id, name, role, code) VALUES (1, 'Admin', 'Admin', '0000'), (2, 'Guest', 'Guest', '0000'), (3, 'Bea', 'User', '1234');
INSERT INTO wallets (owner, assets, credit) VALUES (1, 2, 100), (3, 3, 100);
CREATE TABLE transactions_1 (id INTEGER PRIMARY KEY AUTOINCREMENT, reason TEXT, amount INTEGER, counterparty INTEGER, timestamp INTEGER, balance INTEGER);
CREATE TABLE transactions_3 (id INTEGER PRIMARY KEY AUTOINCREMENT, reason TEXT, amount INTEGER, counterparty INTEGER, timestamp INTEGER, balance INTEGER);
INSERT INTO transactions_1 (reason, amount, counterparty, timestamp, balance) VALUES ('verified', -3, 3, 1000, 2);
INSERT INTO transactions_3 (reason, amount, counterparty, timestamp, balance) VALUES ('reward', 3, 1, 1000, 3);
INSERT INTO event_types (name, icon, iconColor, availability, weight, owner, created_at) VALUES ('dishes', 'cup', '#fff', 2, 3, 3, 10), ('legacy', 'star', '#000', 0, 0, NULL, 10);
INSERT INTO events (eventType, created_by, created_at, is_verified) VALUES ('dishes', 3, 20, 0), ('legacy', 3, 30, 1);
INSERT INTO products (id, name, images, price, quantity, creator) VALUES (1, 'Ice cream', 'products/p_101.jpg,products/p_102.jpg', 10, 2, 1), (2, 'Cover', 'products/cover.jpg', 5, 1, 1);
INSERT INTO purchases (product_id, owner, name, images, price, quantity, createdAt, fulfilledAt, fulfilledBy) VALUES
	(1, 3, 'Ice cream', 'products/p_101.jpg', 10, 1, 100, NULL, NULL),
	(1, 3, 'Ice cream', 'products/p_101.jpg', 10, 0, 110, 120, 3),
	(1, 3, 'Ice cream', '', 10, 2, 130, 140, 1);
`

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	database, err := Open(ManagerConfig{Path: filepath.Join(t.TempDir(), "chart.db")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func openLegacyDB(t *testing.T) *sqlx.DB {
	t.Helper()
	database := openTestDB(t)
	if _, err := database.Exec(legacyV1Schema); err != nil {
		t.Fatalf("seed legacy schema: %v", err)
	}
	return database
}

func queryInt(t *testing.T, database *sqlx.DB, query string, args ...any) int64 {
	t.Helper()
	var value int64
	if err := database.Get(&value, query, args...); err != nil {
		t.Fatalf("query %q: %v", query, err)
	}
	return value
}

func hasTable(t *testing.T, database *sqlx.DB, name string) bool {
	t.Helper()
	ok, err := tableExists(context.Background(), database, name)
	if err != nil {
		t.Fatalf("table exists: %v", err)
	}
	return ok
}

func hasColumn(t *testing.T, database *sqlx.DB, table, column string) bool {
	t.Helper()
	cols, err := tableColumns(context.Background(), database, table)
	if err != nil {
		t.Fatalf("columns: %v", err)
	}
	for _, col := range cols {
		if col == column {
			return true
		}
	}
	return false
}

func TestStepsEndAtCurrentVersion(t *testing.T) {
	steps := defaultSteps()
	for i := 1; i < len(steps); i++ {
		if steps[i].Version <= steps[i-1].Version {
			t.Fatalf("steps out of order at %d", i)
		}
	}
	if steps[len(steps)-1].Version != CurrentVersion {
		t.Fatalf("last step %d does not match CurrentVersion %d", steps[len(steps)-1].Version, CurrentVersion)
	}
}

func TestReadVersionWithoutTable(t *testing.T) {
	database := openTestDB(t)
	version, err := ReadVersion(context.Background(), database)
	if err != nil {
		t.Fatalf("read version: %v", err)
	}
	if version != 0 {
		t.Fatalf("expected 0, got %d", version)
	}
	if _, err := database.Exec(`CREATE TABLE db_version (id INTEGER PRIMARY KEY, version INTEGER NOT NULL)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	version, err = ReadVersion(context.Background(), database)
	if err != nil || version != 0 {
		t.Fatalf("expected 0 for empty table, got %d (%v)", version, err)
	}
}

func TestMigrateBootstrapsFreshDatabase(t *testing.T) {
	database := openTestDB(t)
	from, to, err := Migrate(context.Background(), database)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if from != 0 || to != CurrentVersion {
		t.Fatalf("expected 0 -> %d, got %d -> %d", CurrentVersion, from, to)
	}
	if got := queryInt(t, database, `SELECT version FROM db_version`); got != CurrentVersion {
		t.Fatalf("expected stored version %d, got %d", CurrentVersion, got)
	}
	adminID := queryInt(t, database, `SELECT id FROM users WHERE name = 'Admin'`)
	if got := queryInt(t, database, `SELECT assets FROM wallets WHERE owner = ?`, adminID); got != 5 {
		t.Fatalf("expected Admin assets 5, got %d", got)
	}
	if got := queryInt(t, database, `SELECT COUNT(*) FROM ledgers WHERE user_id = ?`, adminID); got != 1 {
		t.Fatalf("expected Admin ledger, got %d", got)
	}
	guestID := queryInt(t, database, `SELECT id FROM users WHERE name = 'Guest'`)
	if got := queryInt(t, database, `SELECT COUNT(*) FROM wallets WHERE owner = ?`, guestID); got != 0 {
		t.Fatalf("expected no Guest wallet, got %d", got)
	}
	if got := queryInt(t, database, `SELECT COUNT(*) FROM ledgers WHERE user_id = ?`, guestID); got != 0 {
		t.Fatalf("expected no Guest ledger, got %d", got)
	}
	var code string
	if err := database.Get(&code, `SELECT code FROM users WHERE name = 'Admin'`); err != nil {
		t.Fatalf("admin code: %v", err)
	}
	if code != "0000" {
		t.Fatalf("expected Admin code 0000, got %q", code)
	}
}

func TestMigrateTwiceIsNoop(t *testing.T) {
	database := openTestDB(t)
	if _, _, err := Migrate(context.Background(), database); err != nil {
		t.Fatalf("first migrate: %v", err)
	}
	changes := queryInt(t, database, `SELECT total_changes()`)
	from, to, err := Migrate(context.Background(), database)
	if err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if from != CurrentVersion || to != CurrentVersion {
		t.Fatalf("expected no-op at %d, got %d -> %d", CurrentVersion, from, to)
	}
	if after := queryInt(t, database, `SELECT total_changes()`); after != changes {
		t.Fatalf("expected no writes, total_changes went %d -> %d", changes, after)
	}
	if got := queryInt(t, database, `SELECT COUNT(*) FROM users WHERE name IN ('Admin', 'Guest')`); got != 2 {
		t.Fatalf("expected 2 seed users, got %d", got)
	}
}

func TestMigrateUpgradesLegacyDatabaseInOnePass(t *testing.T) {
	database := openLegacyDB(t)
	from, to, err := Migrate(context.Background(), database)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if from != 1 || to != CurrentVersion {
		t.Fatalf("expected 1 -> %d, got %d -> %d", CurrentVersion, from, to)
	}

	if !hasColumn(t, database, "users", "email") || !hasColumn(t, database, "users", "phone") {
		t.Fatal("expected user contact columns")
	}
	if !hasColumn(t, database, "event_types", "expiration_date") {
		t.Fatal("expected event type expiration column")
	}
	if got := queryInt(t, database, `SELECT owner FROM events WHERE eventType = 'dishes'`); got != 3 {
		t.Fatalf("expected backfilled event owner 3, got %d", got)
	}
	if got := queryInt(t, database, `SELECT weight FROM event_types WHERE name = 'legacy'`); got != 1 {
		t.Fatalf("expected weight clamped to 1, got %d", got)
	}
	if _, err := database.Exec(`INSERT INTO event_types (name, owner, weight) VALUES ('dishes', 1, 2)`); err != nil {
		t.Fatalf("expected composite key to allow same name for another owner: %v", err)
	}

	if hasTable(t, database, "transactions_1") || hasTable(t, database, "transactions_3") {
		t.Fatal("expected per-user ledger tables to be dropped")
	}
	if got := queryInt(t, database, `SELECT COUNT(*) FROM ledger_entries WHERE user_id = 3 AND amount = 3 AND balance = 3`); got != 1 {
		t.Fatalf("expected folded ledger entry for user 3, got %d", got)
	}
	if got := queryInt(t, database, `SELECT COUNT(*) FROM ledgers`); got != 2 {
		t.Fatalf("expected ledgers for Admin and Bea, got %d", got)
	}

	if got := queryInt(t, database, `SELECT referred FROM productImages WHERE id = 101`); got != 3 {
		t.Fatalf("expected image 101 referred 3 times, got %d", got)
	}
	if got := queryInt(t, database, `SELECT referred FROM productImages WHERE id = 102`); got != 1 {
		t.Fatalf("expected image 102 referred once, got %d", got)
	}
	if got := queryInt(t, database, `SELECT COUNT(*) FROM productImages`); got != 2 {
		t.Fatalf("expected unparsable image to be skipped, got %d rows", got)
	}

	var statuses []string
	if err := database.Select(&statuses, `SELECT status FROM purchases ORDER BY order_number`); err != nil {
		t.Fatalf("select statuses: %v", err)
	}
	want := []string{"pending", "canceled", "fulfilled"}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("expected statuses %v, got %v", want, statuses)
		}
	}
	if got := queryInt(t, database, `SELECT canceledBy FROM purchases WHERE order_number = 2`); got != 3 {
		t.Fatalf("expected canceledBy 3, got %d", got)
	}
	if got := queryInt(t, database, `SELECT COUNT(*) FROM purchases WHERE order_number = 2 AND fulfilledBy IS NULL`); got != 1 {
		t.Fatal("expected cancellation metadata moved off fulfilledBy")
	}
	if got := queryInt(t, database, `SELECT COUNT(*) FROM purchases WHERE seller = 1`); got != 3 {
		t.Fatalf("expected seller backfilled on every purchase, got %d", got)
	}
}

func TestMigrateFromIntermediateVersionRunsOnlyPendingSteps(t *testing.T) {
	database := openLegacyDB(t)
	if _, err := database.Exec(`ALTER TABLE users ADD COLUMN email TEXT; ALTER TABLE users ADD COLUMN phone TEXT; UPDATE db_version SET version = 2`); err != nil {
		t.Fatalf("prepare v2: %v", err)
	}
	var applied []int
	migrator := &Migrator{now: time.Now}
	for _, step := range defaultSteps() {
		step := step
		inner := step.Apply
		step.Apply = func(ctx context.Context, tx *sqlx.Tx, now time.Time) error {
			applied = append(applied, step.Version)
			return inner(ctx, tx, now)
		}
		migrator.steps = append(migrator.steps, step)
	}
	if _, _, err := migrator.Migrate(context.Background(), database); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if len(applied) != 6 || applied[0] != 3 || applied[5] != 8 {
		t.Fatalf("expected steps 3..8, got %v", applied)
	}
}

func TestMigrateRollsBackEverythingOnFailure(t *testing.T) {
	database := openLegacyDB(t)
	boom := errors.New("boom")
	migrator := &Migrator{now: time.Now, steps: append(defaultSteps(), Step{
		Version: CurrentVersion + 1,
		Name:    "broken",
		Apply: func(context.Context, *sqlx.Tx, time.Time) error {
			return boom
		},
	})}
	if _, _, err := migrator.Migrate(context.Background(), database); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if got := queryInt(t, database, `SELECT version FROM db_version`); got != 1 {
		t.Fatalf("expected version to stay 1, got %d", got)
	}
	if hasColumn(t, database, "users", "email") {
		t.Fatal("expected added columns to be rolled back")
	}
	if !hasTable(t, database, "transactions_3") || hasTable(t, database, "ledger_entries") {
		t.Fatal("expected ledger consolidation to be rolled back")
	}

	// A retry with the working steps starts from the untouched version.
	from, to, err := Migrate(context.Background(), database)
	if err != nil {
		t.Fatalf("retry migrate: %v", err)
	}
	if from != 1 || to != CurrentVersion {
		t.Fatalf("expected 1 -> %d on retry, got %d -> %d", CurrentVersion, from, to)
	}
}

func TestBootstrapFoldsLeftoverOldTables(t *testing.T) {
	database := openTestDB(t)
	if _, err := database.Exec(`
		CREATE TABLE users_old (id INTEGER PRIMARY KEY, name TEXT, role TEXT, code TEXT, legacy_flag INTEGER);
		INSERT INTO users_old (id, name, role, code, legacy_flag) VALUES (1, 'Admin', 'Admin', '4321', 1), (7, 'Cy', 'User', '0007', 0);
		CREATE TABLE wallets_old (owner INTEGER PRIMARY KEY, assets INTEGER, credit INTEGER);
		INSERT INTO wallets_old (owner, assets, credit) VALUES (7, 40, 100);
		CREATE TABLE transactions_7 (id INTEGER PRIMARY KEY AUTOINCREMENT, reason TEXT, amount INTEGER, counterparty INTEGER, timestamp INTEGER, balance INTEGER);
		INSERT INTO transactions_7 (reason, amount, counterparty, timestamp, balance) VALUES ('gift', 35, 1, 5, 40);
	`); err != nil {
		t.Fatalf("prepare leftovers: %v", err)
	}
	if _, _, err := Migrate(context.Background(), database); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if hasTable(t, database, "users_old") || hasTable(t, database, "wallets_old") || hasTable(t, database, "transactions_7") {
		t.Fatal("expected leftover tables to be dropped")
	}
	if got := queryInt(t, database, `SELECT COUNT(*) FROM users WHERE name = 'Admin'`); got != 1 {
		t.Fatalf("expected single Admin after fold, got %d", got)
	}
	var code string
	if err := database.Get(&code, `SELECT code FROM users WHERE name = 'Admin'`); err != nil {
		t.Fatalf("admin code: %v", err)
	}
	if code != "4321" {
		t.Fatalf("expected folded Admin code to win over seed, got %q", code)
	}
	if got := queryInt(t, database, `SELECT assets FROM wallets WHERE owner = 7`); got != 40 {
		t.Fatalf("expected folded wallet, got %d", got)
	}
	if got := queryInt(t, database, `SELECT assets FROM wallets WHERE owner = 1`); got != 5 {
		t.Fatalf("expected seeded Admin wallet, got %d", got)
	}
	if got := queryInt(t, database, `SELECT COUNT(*) FROM ledger_entries WHERE user_id = 7`); got != 1 {
		t.Fatalf("expected folded ledger entry, got %d", got)
	}
}
