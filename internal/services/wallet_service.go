package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"

	"stickerchart/internal/db"
	"stickerchart/internal/models"
)

type WalletService struct {
	txRunner db.TxRunner
	wallets  WalletStore
	ledger   LedgerStore
	writer   ledgerWriter
	hub      BalanceHub
	now      func() time.Time
}

func NewWalletService(txRunner db.TxRunner, wallets WalletStore, ledger LedgerStore, hub BalanceHub) *WalletService {
	return &WalletService{
		txRunner: txRunner,
		wallets:  wallets,
		ledger:   ledger,
		writer:   ledgerWriter{wallets: wallets, ledger: ledger},
		hub:      hub,
		now:      time.Now,
	}
}

func (s *WalletService) Wallet(ctx context.Context, userID int64) (models.Wallet, error) {
	return walletOrNotFound(s.wallets.Get(ctx, userID))
}

func (s *WalletService) Ledger(ctx context.Context, userID int64) ([]models.LedgerEntry, error) {
	return s.ledger.FetchEntries(ctx, userID)
}

type AdjustRequest struct {
	UserID  int64
	Delta   int64
	Reason  string
	ActorID int64
}

// Adjust applies an administrative correction to a wallet's assets through
// the ledger. It fails rather than leave the wallet negative.
func (s *WalletService) Adjust(ctx context.Context, req AdjustRequest) (models.Wallet, error) {
	if req.Delta == 0 {
		return models.Wallet{}, ErrInvalidAmount
	}
	transferID := uuid.NewString()
	var posted []postedEntry
	var wallet models.Wallet
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		posted, err = s.writer.apply(ctx, tx, transferID, millis(s.now()), posting{
			UserID:       req.UserID,
			Amount:       req.Delta,
			Counterparty: int64Ptr(req.ActorID),
			Reason:       defaultReason(req.Reason, "Adjustment"),
		})
		if err != nil {
			return err
		}
		wallet, err = s.wallets.GetForUpdate(ctx, tx, req.UserID)
		return err
	})
	if err != nil {
		return models.Wallet{}, err
	}
	log.WithFields(log.Fields{
		"user_id":     req.UserID,
		"delta":       req.Delta,
		"actor":       req.ActorID,
		"transfer_id": transferID,
	}).Info("wallet adjusted")
	broadcast(s.hub, transferID, posted)
	return wallet, nil
}

// SetCredit updates the credit figure. No transaction moves credit, so no
// ledger entry is written.
func (s *WalletService) SetCredit(ctx context.Context, userID, credit int64) error {
	if credit < 0 {
		return ErrInvalidAmount
	}
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		rows, err := s.wallets.SetCredit(ctx, tx, userID, credit)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrWalletNotFound
		}
		return nil
	})
}
