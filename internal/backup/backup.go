// Package backup serialises every table to JSON and restores it. Ledger
// entries are grouped per user under "transactions_<id>".
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"

	"stickerchart/internal/db"
	"stickerchart/internal/models"
	"stickerchart/internal/store"
)

var (
	ErrUnknownTable  = errors.New("unknown table in backup")
	ErrUnknownColumn = errors.New("unknown column in backup")
	ErrNewerVersion  = errors.New("backup was written by a newer schema version")
)

type Row map[string]any

type Snapshot struct {
	Version int              `json:"db_version"`
	Tables  map[string][]Row `json:"tables"`
}

// tables lists the plain tables in restore order.
var tables = []string{
	"roles",
	"users",
	"wallets",
	"event_types",
	"events",
	"products",
	"purchases",
	"productImages",
}

// ledgerColumns are the columns of one per-user ledger in a snapshot.
var ledgerColumns = []string{"id", "transfer_id", "reason", "amount", "counterparty", "timestamp", "balance"}

func Export(ctx context.Context, runner db.TxRunner) (Snapshot, error) {
	snap := Snapshot{Tables: map[string][]Row{}}
	err := runner.WithTx(ctx, func(tx *sqlx.Tx) error {
		version, err := db.ReadVersion(ctx, tx)
		if err != nil {
			return err
		}
		snap.Version = version
		for _, table := range tables {
			rows, err := selectRows(ctx, tx, fmt.Sprintf(`SELECT * FROM %s ORDER BY rowid`, quote(table)))
			if err != nil {
				return fmt.Errorf("export %s: %w", table, err)
			}
			snap.Tables[table] = rows
		}
		var ledgers []int64
		if err := tx.SelectContext(ctx, &ledgers, `SELECT user_id FROM ledgers ORDER BY user_id`); err != nil {
			return err
		}
		for _, userID := range ledgers {
			rows, err := selectRows(ctx, tx, `
				SELECT `+strings.Join(ledgerColumns, ", ")+`
				FROM ledger_entries
				WHERE user_id = ?
				ORDER BY id
			`, userID)
			if err != nil {
				return fmt.Errorf("export ledger %d: %w", userID, err)
			}
			snap.Tables[store.TableName(userID)] = rows
		}
		return nil
	})
	return snap, err
}

func selectRows(ctx context.Context, q sqlx.QueryerContext, query string, args ...any) ([]Row, error) {
	rows, err := q.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Row{}
	for rows.Next() {
		row := map[string]any{}
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Restore replaces every table with the snapshot's content in one
// transaction. Each non-guest user gets a ledger even when the snapshot
// carries none for it.
func Restore(ctx context.Context, runner db.TxRunner, snap Snapshot) error {
	if snap.Version > db.CurrentVersion {
		return fmt.Errorf("%w: %d > %d", ErrNewerVersion, snap.Version, db.CurrentVersion)
	}
	ledgers := map[int64][]Row{}
	for name, rows := range snap.Tables {
		if userID, ok := store.ParseTableName(name); ok {
			ledgers[userID] = rows
			continue
		}
		if !knownTable(name) {
			return fmt.Errorf("%w: %s", ErrUnknownTable, name)
		}
	}
	return runner.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, table := range append([]string{"ledger_entries", "ledgers"}, tables...) {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+quote(table)); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		for _, table := range tables {
			rows := snap.Tables[table]
			if table == "purchases" {
				rows = withPurchaseStatus(rows)
			}
			if err := insertRows(ctx, tx, table, rows); err != nil {
				return err
			}
		}
		if err := db.BackfillPurchaseSellers(ctx, tx); err != nil {
			return err
		}
		if err := seedRoles(ctx, tx); err != nil {
			return err
		}
		userIDs := make([]int64, 0, len(ledgers))
		for id := range ledgers {
			userIDs = append(userIDs, id)
		}
		sort.Slice(userIDs, func(i, j int) bool { return userIDs[i] < userIDs[j] })
		for _, userID := range userIDs {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO ledgers (user_id, created_at) VALUES (?, 0)`, userID); err != nil {
				return err
			}
			rows := make([]Row, 0, len(ledgers[userID]))
			for _, r := range ledgers[userID] {
				row := Row{"user_id": userID}
				for k, v := range r {
					if k == "id" {
						continue
					}
					row[k] = v
				}
				rows = append(rows, row)
			}
			if err := insertRows(ctx, tx, "ledger_entries", rows); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO ledgers (user_id, created_at)
			SELECT id, 0 FROM users WHERE role != ?
		`, models.RoleGuest); err != nil {
			return err
		}
		log.WithFields(log.Fields{
			"tables":  len(snap.Tables),
			"ledgers": len(ledgers),
			"version": snap.Version,
		}).Info("backup restored")
		return nil
	})
}

func insertRows(ctx context.Context, tx *sqlx.Tx, table string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	var known []string
	if err := tx.SelectContext(ctx, &known, `SELECT name FROM pragma_table_info(?)`, table); err != nil {
		return err
	}
	allowed := map[string]bool{}
	for _, col := range known {
		allowed[col] = true
	}
	for _, row := range rows {
		cols := make([]string, 0, len(row))
		for col := range row {
			if !allowed[col] {
				return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, col)
			}
			cols = append(cols, col)
		}
		sort.Strings(cols)
		quoted := make([]string, len(cols))
		marks := make([]string, len(cols))
		args := make([]any, len(cols))
		for i, col := range cols {
			quoted[i] = quote(col)
			marks[i] = "?"
			args[i] = value(row[col])
		}
		query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, quote(table), strings.Join(quoted, ", "), strings.Join(marks, ", "))
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("restore %s: %w", table, err)
		}
	}
	return nil
}

// withPurchaseStatus derives the status of purchases written before the
// status column existed, where quantity 0 meant canceled and the
// fulfilment fields held the cancellation.
func withPurchaseStatus(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if _, ok := r["status"]; ok {
			out = append(out, r)
			continue
		}
		row := Row{}
		for k, v := range r {
			row[k] = v
		}
		switch {
		case isZero(row["quantity"]):
			row["status"] = string(models.PurchaseCanceled)
			row["canceledAt"] = row["fulfilledAt"]
			row["canceledBy"] = row["fulfilledBy"]
			row["fulfilledAt"] = nil
			row["fulfilledBy"] = nil
		case row["fulfilledAt"] != nil:
			row["status"] = string(models.PurchaseFulfilled)
		default:
			row["status"] = string(models.PurchasePending)
		}
		out = append(out, row)
	}
	return out
}

func isZero(v any) bool {
	switch n := v.(type) {
	case int64:
		return n == 0
	case float64:
		return n == 0
	case json.Number:
		i, err := n.Int64()
		return err == nil && i == 0
	}
	return false
}

// value turns decoded JSON numbers back into integers.
func value(v any) any {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	}
	return v
}

func seedRoles(ctx context.Context, tx *sqlx.Tx) error {
	for _, role := range []string{models.RoleAdmin, models.RoleGuest, models.RoleUser} {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO roles (name) VALUES (?)`, role); err != nil {
			return err
		}
	}
	return nil
}

func knownTable(name string) bool {
	for _, t := range tables {
		if t == name {
			return true
		}
	}
	return false
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func Encode(w io.Writer, snap Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

func Decode(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode backup: %w", err)
	}
	return snap, nil
}
