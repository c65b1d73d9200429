package store

import (
	"context"
	"errors"
	"strconv"

	"stickerchart/internal/models"
)

var ErrLedgerNotFound = errors.New("ledger not found")

const ledgerTablePrefix = "transactions_"

type LedgerStore struct {
	db DB
}

func NewLedgerStore(db DB) *LedgerStore {
	return &LedgerStore{db: db}
}

type LedgerEntryInput struct {
	UserID       int64
	TransferID   string
	Reason       string
	Amount       int64
	Counterparty *int64
	Timestamp    int64
	Balance      int64
}

// TableName is the logical per-user ledger name used in backups.
func TableName(userID int64) string {
	return ledgerTablePrefix + strconv.FormatInt(userID, 10)
}

// ParseTableName is the inverse of TableName.
func ParseTableName(name string) (int64, bool) {
	if len(name) <= len(ledgerTablePrefix) || name[:len(ledgerTablePrefix)] != ledgerTablePrefix {
		return 0, false
	}
	id, err := strconv.ParseInt(name[len(ledgerTablePrefix):], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (s *LedgerStore) CreateLedger(ctx context.Context, tx Execer, userID, now int64) error {
	_, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO ledgers (user_id, created_at) VALUES (?, ?)`, userID, now)
	return err
}

func (s *LedgerStore) HasLedger(ctx context.Context, q Getter, userID int64) (bool, error) {
	var count int
	err := q.GetContext(ctx, &count, `SELECT COUNT(*) FROM ledgers WHERE user_id = ?`, userID)
	return count > 0, err
}

func (s *LedgerStore) ListLedgers(ctx context.Context, q Selecter) ([]int64, error) {
	var ids []int64
	err := q.SelectContext(ctx, &ids, `SELECT user_id FROM ledgers ORDER BY user_id`)
	return ids, err
}

// InsertEntry appends one entry. The caller computes Balance and keeps the
// wallet update in the same transaction.
func (s *LedgerStore) InsertEntry(ctx context.Context, tx Execer, entry LedgerEntryInput) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (user_id, transfer_id, reason, amount, counterparty, timestamp, balance)
		SELECT ?, ?, ?, ?, ?, ?, ?
		WHERE EXISTS (SELECT 1 FROM ledgers WHERE user_id = ?)
	`, entry.UserID, entry.TransferID, entry.Reason, entry.Amount, entry.Counterparty, entry.Timestamp, entry.Balance, entry.UserID)
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if rows == 0 {
		return 0, ErrLedgerNotFound
	}
	return res.LastInsertId()
}

func (s *LedgerStore) FetchEntries(ctx context.Context, userID int64) ([]models.LedgerEntry, error) {
	return s.fetch(ctx, s.db, userID)
}

func (s *LedgerStore) FetchEntriesTx(ctx context.Context, q Selecter, userID int64) ([]models.LedgerEntry, error) {
	return s.fetch(ctx, q, userID)
}

func (s *LedgerStore) fetch(ctx context.Context, q Selecter, userID int64) ([]models.LedgerEntry, error) {
	entries := []models.LedgerEntry{}
	err := q.SelectContext(ctx, &entries, `
		SELECT l.id, l.user_id, l.transfer_id, l.reason, l.amount, l.counterparty,
		       u.name AS counterparty_name, l.timestamp, l.balance
		FROM ledger_entries l
		LEFT JOIN users u ON u.id = l.counterparty
		WHERE l.user_id = ?
		ORDER BY l.timestamp DESC, l.id DESC
	`, userID)
	return entries, err
}

func (s *LedgerStore) DeleteLedger(ctx context.Context, tx Execer, userID int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_entries WHERE user_id = ?`, userID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM ledgers WHERE user_id = ?`, userID)
	return err
}

func (s *LedgerStore) SumByUser(ctx context.Context, userID int64) (int64, error) {
	var sum int64
	err := s.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE user_id = ?
	`, userID)
	return sum, err
}
