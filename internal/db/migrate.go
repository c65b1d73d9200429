package db

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"

	"stickerchart/internal/images"
	"stickerchart/internal/models"
)

// CurrentVersion is the schema version this build writes.
const CurrentVersion = 8

const ledgerTablePrefix = "transactions_"

type queryer interface {
	sqlx.QueryerContext
}

// Step upgrades the schema to Version. It runs when the stored version is
// below Version.
type Step struct {
	Version int
	Name    string
	Apply   func(ctx context.Context, tx *sqlx.Tx, now time.Time) error
}

type Migrator struct {
	steps []Step
	now   func() time.Time
}

func NewMigrator() *Migrator {
	return &Migrator{steps: defaultSteps(), now: time.Now}
}

// Migrate brings database up to CurrentVersion and returns the versions it
// started from and ended at.
func Migrate(ctx context.Context, database *sqlx.DB) (int, int, error) {
	return NewMigrator().Migrate(ctx, database)
}

func (m *Migrator) target() int {
	if len(m.steps) == 0 {
		return CurrentVersion
	}
	return m.steps[len(m.steps)-1].Version
}

func (m *Migrator) Migrate(ctx context.Context, database *sqlx.DB) (int, int, error) {
	from, err := ReadVersion(ctx, database)
	if err != nil {
		return 0, 0, fmt.Errorf("read schema version: %w", err)
	}
	target := m.target()
	if from >= target {
		return from, from, nil
	}
	now := m.now().UTC()
	err = WithTx(ctx, database, func(tx *sqlx.Tx) error {
		if from == 0 {
			log.WithField("version", target).Info("bootstrapping schema")
			if err := bootstrap(ctx, tx, now); err != nil {
				return fmt.Errorf("bootstrap: %w", err)
			}
			return writeVersion(ctx, tx, target)
		}
		for _, step := range m.steps {
			if from >= step.Version {
				continue
			}
			log.WithFields(log.Fields{
				"version": step.Version,
				"step":    step.Name,
			}).Info("applying migration")
			if err := step.Apply(ctx, tx, now); err != nil {
				return fmt.Errorf("migration %d (%s): %w", step.Version, step.Name, err)
			}
		}
		return writeVersion(ctx, tx, target)
	})
	if err != nil {
		return from, from, err
	}
	return from, target, nil
}

// ReadVersion returns the stored schema version, or 0 when none is stored.
func ReadVersion(ctx context.Context, q queryer) (int, error) {
	exists, err := tableExists(ctx, q, "db_version")
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}
	var version int
	err = sqlx.GetContext(ctx, q, &version, `SELECT version FROM db_version ORDER BY version DESC LIMIT 1`)
	if err != nil {
		if isNoRows(err) {
			return 0, nil
		}
		return 0, err
	}
	return version, nil
}

func writeVersion(ctx context.Context, tx *sqlx.Tx, version int) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM db_version WHERE id != 1`); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO db_version (id, version) VALUES (1, ?)
		ON CONFLICT (id) DO UPDATE SET version = excluded.version
	`, version)
	return err
}

func defaultSteps() []Step {
	return []Step{
		{Version: 2, Name: "user contact columns", Apply: addUserContactColumns},
		{Version: 3, Name: "event type composite key", Apply: rebuildEventTypes},
		{Version: 4, Name: "event type expiration", Apply: addEventTypeExpiration},
		{Version: 5, Name: "product image references", Apply: createProductImages},
		{Version: 6, Name: "consolidate ledgers", Apply: consolidateLedgers},
		{Version: 7, Name: "purchase status", Apply: addPurchaseStatus},
		{Version: 8, Name: "purchase seller", Apply: addPurchaseSeller},
	}
}

func bootstrap(ctx context.Context, tx *sqlx.Tx, now time.Time) error {
	if _, err := tx.ExecContext(ctx, currentSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	folded := map[string]bool{}
	for _, table := range bootstrapTables {
		ok, err := foldOldTable(ctx, tx, table)
		if err != nil {
			return err
		}
		folded[table] = ok
	}
	if folded["events"] {
		if err := backfillEventOwners(ctx, tx); err != nil {
			return err
		}
	}
	if folded["purchases"] {
		if err := BackfillPurchaseSellers(ctx, tx); err != nil {
			return err
		}
	}
	if err := foldLedgerTables(ctx, tx, now); err != nil {
		return err
	}
	var imageRows int
	if err := tx.GetContext(ctx, &imageRows, `SELECT COUNT(*) FROM productImages`); err != nil {
		return err
	}
	if imageRows == 0 {
		if err := backfillProductImages(ctx, tx); err != nil {
			return err
		}
	}
	return seed(ctx, tx, now)
}

func seed(ctx context.Context, tx *sqlx.Tx, now time.Time) error {
	millis := now.UnixMilli()
	for _, role := range []string{models.RoleAdmin, models.RoleGuest, models.RoleUser} {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO roles (name) VALUES (?)`, role); err != nil {
			return err
		}
	}
	sentinels := []struct {
		name string
		role string
		code string
	}{
		{models.AdminName, models.RoleAdmin, models.DefaultAdminCode},
		{models.GuestName, models.RoleGuest, models.DefaultAdminCode},
	}
	for _, s := range sentinels {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO users (name, role, code, is_active, created_at, updated_at)
			SELECT ?, ?, ?, 1, ?, ?
			WHERE NOT EXISTS (SELECT 1 FROM users WHERE name = ?)
		`, s.name, s.role, s.code, millis, millis, s.name); err != nil {
			return fmt.Errorf("seed %s: %w", s.name, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO wallets (owner, assets, credit)
		SELECT id, ?, ? FROM users WHERE role != ?
	`, models.DefaultAssets, models.DefaultCredit, models.RoleGuest); err != nil {
		return fmt.Errorf("seed wallets: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO ledgers (user_id, created_at)
		SELECT id, ? FROM users WHERE role != ?
	`, millis, models.RoleGuest); err != nil {
		return fmt.Errorf("seed ledgers: %w", err)
	}
	return nil
}

// foldOldTable copies the rows of "<table>_old", restricted to the columns
// both tables share, into table and drops the old copy.
func foldOldTable(ctx context.Context, tx *sqlx.Tx, table string) (bool, error) {
	old := table + "_old"
	exists, err := tableExists(ctx, tx, old)
	if err != nil || !exists {
		return false, err
	}
	newCols, err := tableColumns(ctx, tx, table)
	if err != nil {
		return false, err
	}
	oldCols, err := tableColumns(ctx, tx, old)
	if err != nil {
		return false, err
	}
	present := map[string]bool{}
	for _, col := range oldCols {
		present[strings.ToLower(col)] = true
	}
	var shared []string
	for _, col := range newCols {
		if present[strings.ToLower(col)] {
			shared = append(shared, quoteIdent(col))
		}
	}
	if len(shared) > 0 {
		cols := strings.Join(shared, ", ")
		query := fmt.Sprintf(`INSERT OR IGNORE INTO %s (%s) SELECT %s FROM %s`, quoteIdent(table), cols, cols, quoteIdent(old))
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return false, fmt.Errorf("fold %s: %w", old, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DROP TABLE `+quoteIdent(old)); err != nil {
		return false, fmt.Errorf("drop %s: %w", old, err)
	}
	log.WithFields(log.Fields{"table": table, "columns": len(shared)}).Info("folded leftover table")
	return true, nil
}

func addUserContactColumns(ctx context.Context, tx *sqlx.Tx, _ time.Time) error {
	if err := addColumn(ctx, tx, "users", "email", "TEXT"); err != nil {
		return err
	}
	return addColumn(ctx, tx, "users", "phone", "TEXT")
}

func rebuildEventTypes(ctx context.Context, tx *sqlx.Tx, _ time.Time) error {
	_, err := tx.ExecContext(ctx, `
		DROP TABLE IF EXISTS event_types_new;
		CREATE TABLE event_types_new (
			name TEXT NOT NULL,
			owner INTEGER,
			icon TEXT NOT NULL DEFAULT '',
			iconColor TEXT NOT NULL DEFAULT '',
			availability INTEGER NOT NULL DEFAULT 0,
			weight INTEGER NOT NULL DEFAULT 1,
			created_at INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (name, owner)
		);
		INSERT OR IGNORE INTO event_types_new (name, owner, icon, iconColor, availability, weight, created_at)
		SELECT name, owner, COALESCE(icon, ''), COALESCE(iconColor, ''), COALESCE(availability, 0),
		       MAX(COALESCE(weight, 1), 1), COALESCE(created_at, 0)
		FROM event_types;
		DROP TABLE event_types;
		ALTER TABLE event_types_new RENAME TO event_types;
	`)
	if err != nil {
		return err
	}
	if err := addColumn(ctx, tx, "events", "owner", "INTEGER"); err != nil {
		return err
	}
	return backfillEventOwners(ctx, tx)
}

// backfillEventOwners copies the owner of the event type onto events that
// have none, when the type name identifies a single owner.
func backfillEventOwners(ctx context.Context, tx *sqlx.Tx) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE events
		SET owner = (SELECT t.owner FROM event_types t WHERE t.name = events.eventType)
		WHERE owner IS NULL
		  AND (SELECT COUNT(*) FROM event_types t WHERE t.name = events.eventType) = 1
	`)
	return err
}

func addEventTypeExpiration(ctx context.Context, tx *sqlx.Tx, _ time.Time) error {
	return addColumn(ctx, tx, "event_types", "expiration_date", "INTEGER")
}

func createProductImages(ctx context.Context, tx *sqlx.Tx, _ time.Time) error {
	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS productImages (
			id INTEGER PRIMARY KEY,
			referred INTEGER NOT NULL DEFAULT 0
		)
	`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM productImages`); err != nil {
		return err
	}
	return backfillProductImages(ctx, tx)
}

// backfillProductImages counts one reference per image path on every
// product and purchase. Paths without a numeric id are logged and skipped.
func backfillProductImages(ctx context.Context, tx *sqlx.Tx) error {
	var joined []string
	for _, table := range []string{"products", "purchases"} {
		exists, err := tableExists(ctx, tx, table)
		if err != nil {
			return err
		}
		if !exists {
			continue
		}
		var rows []string
		query := fmt.Sprintf(`SELECT COALESCE(images, '') FROM %s`, table)
		if err := tx.SelectContext(ctx, &rows, query); err != nil {
			return fmt.Errorf("read %s images: %w", table, err)
		}
		joined = append(joined, rows...)
	}
	for _, list := range joined {
		for _, path := range images.Split(list) {
			id, err := images.ParseID(path)
			if err != nil {
				log.WithError(err).WithField("path", path).Warn("skipping image without id")
				continue
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO productImages (id, referred) VALUES (?, 1)
				ON CONFLICT (id) DO UPDATE SET referred = referred + 1
			`, id); err != nil {
				return err
			}
		}
	}
	return nil
}

func consolidateLedgers(ctx context.Context, tx *sqlx.Tx, now time.Time) error {
	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS ledgers (
			user_id INTEGER PRIMARY KEY,
			created_at INTEGER NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS ledger_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			transfer_id TEXT NOT NULL DEFAULT '',
			reason TEXT NOT NULL DEFAULT '',
			amount INTEGER NOT NULL,
			counterparty INTEGER,
			timestamp INTEGER NOT NULL,
			balance INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_ledger_entries_user ON ledger_entries (user_id, timestamp);
	`); err != nil {
		return err
	}
	if err := foldLedgerTables(ctx, tx, now); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO ledgers (user_id, created_at)
		SELECT id, ? FROM users WHERE role != ?
	`, now.UnixMilli(), models.RoleGuest)
	return err
}

// foldLedgerTables moves every per-user "transactions_<id>" table into
// ledger_entries and drops it.
func foldLedgerTables(ctx context.Context, tx *sqlx.Tx, now time.Time) error {
	var names []string
	if err := tx.SelectContext(ctx, &names, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name LIKE 'transactions\_%' ESCAPE '\'
		ORDER BY name
	`); err != nil {
		return err
	}
	for _, name := range names {
		userID, err := strconv.ParseInt(strings.TrimPrefix(name, ledgerTablePrefix), 10, 64)
		if err != nil {
			log.WithField("table", name).Warn("skipping ledger table with non-numeric owner")
			continue
		}
		table := ledgerTablePrefix + strconv.FormatInt(userID, 10)
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO ledgers (user_id, created_at) VALUES (?, ?)`, userID, now.UnixMilli()); err != nil {
			return err
		}
		query := fmt.Sprintf(`
			INSERT INTO ledger_entries (user_id, transfer_id, reason, amount, counterparty, timestamp, balance)
			SELECT ?, '', COALESCE(reason, ''), COALESCE(amount, 0), counterparty, COALESCE(timestamp, 0), COALESCE(balance, 0)
			FROM %s ORDER BY id
		`, quoteIdent(table))
		if _, err := tx.ExecContext(ctx, query, userID); err != nil {
			return fmt.Errorf("fold %s: %w", table, err)
		}
		if _, err := tx.ExecContext(ctx, `DROP TABLE `+quoteIdent(table)); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	return nil
}

func addPurchaseStatus(ctx context.Context, tx *sqlx.Tx, _ time.Time) error {
	if err := addColumn(ctx, tx, "purchases", "status", "TEXT NOT NULL DEFAULT 'pending'"); err != nil {
		return err
	}
	if err := addColumn(ctx, tx, "purchases", "canceledAt", "INTEGER"); err != nil {
		return err
	}
	if err := addColumn(ctx, tx, "purchases", "canceledBy", "INTEGER"); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE purchases
		SET status = 'canceled', canceledAt = fulfilledAt, canceledBy = fulfilledBy,
		    fulfilledAt = NULL, fulfilledBy = NULL
		WHERE quantity = 0;
		UPDATE purchases SET status = 'fulfilled' WHERE quantity != 0 AND fulfilledAt IS NOT NULL;
		UPDATE purchases SET status = 'pending' WHERE quantity != 0 AND fulfilledAt IS NULL;
		CREATE INDEX IF NOT EXISTS idx_purchases_owner ON purchases (owner);
	`)
	return err
}

func addPurchaseSeller(ctx context.Context, tx *sqlx.Tx, _ time.Time) error {
	if err := addColumn(ctx, tx, "purchases", "seller", "INTEGER"); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_purchases_seller ON purchases (seller)`); err != nil {
		return err
	}
	return BackfillPurchaseSellers(ctx, tx)
}

// BackfillPurchaseSellers copies the product creator onto purchases that
// carry no seller. Purchases of products already gone stay NULL.
func BackfillPurchaseSellers(ctx context.Context, tx *sqlx.Tx) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE purchases
		SET seller = (SELECT creator FROM products WHERE products.id = purchases.product_id)
		WHERE seller IS NULL
	`)
	return err
}

func addColumn(ctx context.Context, tx *sqlx.Tx, table, column, definition string) error {
	cols, err := tableColumns(ctx, tx, table)
	if err != nil {
		return err
	}
	for _, col := range cols {
		if strings.EqualFold(col, column) {
			return nil
		}
	}
	query := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, quoteIdent(table), quoteIdent(column), definition)
	_, err = tx.ExecContext(ctx, query)
	return err
}

func tableExists(ctx context.Context, q queryer, name string) (bool, error) {
	var count int
	err := sqlx.GetContext(ctx, q, &count, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name)
	return count > 0, err
}

func tableColumns(ctx context.Context, q queryer, table string) ([]string, error) {
	var cols []string
	err := sqlx.SelectContext(ctx, q, &cols, `SELECT name FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}
	return cols, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
