package store

import (
	"context"

	"stickerchart/internal/models"
)

type WalletStore struct {
	db DB
}

func NewWalletStore(db DB) *WalletStore {
	return &WalletStore{db: db}
}

func (s *WalletStore) Create(ctx context.Context, tx Execer, owner, assets, credit int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallets (owner, assets, credit)
		VALUES (?, ?, ?)
	`, owner, assets, credit)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *WalletStore) Get(ctx context.Context, owner int64) (models.Wallet, error) {
	var wallet models.Wallet
	err := s.db.GetContext(ctx, &wallet, `SELECT owner, assets, credit FROM wallets WHERE owner = ?`, owner)
	return wallet, err
}

// GetForUpdate reads a wallet inside a write transaction. SQLite holds the
// database write lock for the whole transaction, so no row lock is needed.
func (s *WalletStore) GetForUpdate(ctx context.Context, tx Getter, owner int64) (models.Wallet, error) {
	var wallet models.Wallet
	err := tx.GetContext(ctx, &wallet, `SELECT owner, assets, credit FROM wallets WHERE owner = ?`, owner)
	return wallet, err
}

func (s *WalletStore) UpdateAssets(ctx context.Context, tx Execer, owner, assets int64) error {
	_, err := tx.ExecContext(ctx, `UPDATE wallets SET assets = ? WHERE owner = ?`, assets, owner)
	return err
}

func (s *WalletStore) SetCredit(ctx context.Context, tx Execer, owner, credit int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `UPDATE wallets SET credit = ? WHERE owner = ?`, credit, owner)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *WalletStore) Delete(ctx context.Context, tx Execer, owner int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM wallets WHERE owner = ?`, owner)
	return err
}

func (s *WalletStore) TotalAssets(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.GetContext(ctx, &total, `SELECT COALESCE(SUM(assets), 0) FROM wallets`)
	return total, err
}
