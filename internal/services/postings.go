package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"stickerchart/internal/models"
	"stickerchart/internal/store"
	"stickerchart/internal/websocket"
)

// posting is one side of a balance movement: a change to a wallet's assets
// and the ledger entry that records it.
type posting struct {
	UserID       int64
	Amount       int64
	Counterparty *int64
	Reason       string
}

type postedEntry struct {
	posting
	Balance int64
}

// ledgerWriter applies postings inside a caller's transaction. Every posting
// of one call shares a transfer id.
type ledgerWriter struct {
	wallets WalletStore
	ledger  LedgerStore
}

func (w ledgerWriter) apply(ctx context.Context, tx *sqlx.Tx, transferID string, now int64, postings ...posting) ([]postedEntry, error) {
	posted := make([]postedEntry, 0, len(postings))
	for _, p := range postings {
		wallet, err := w.wallets.GetForUpdate(ctx, tx, p.UserID)
		if err != nil {
			if isNoRows(err) {
				return nil, fmt.Errorf("%w: user %d", ErrWalletNotFound, p.UserID)
			}
			return nil, err
		}
		balance := wallet.Assets + p.Amount
		if balance < 0 {
			return nil, ErrInsufficientAssets
		}
		if err := w.wallets.UpdateAssets(ctx, tx, p.UserID, balance); err != nil {
			return nil, err
		}
		if _, err := w.ledger.InsertEntry(ctx, tx, store.LedgerEntryInput{
			UserID:       p.UserID,
			TransferID:   transferID,
			Reason:       p.Reason,
			Amount:       p.Amount,
			Counterparty: p.Counterparty,
			Timestamp:    now,
			Balance:      balance,
		}); err != nil {
			if errors.Is(err, store.ErrLedgerNotFound) {
				return nil, fmt.Errorf("user %d: %w", p.UserID, err)
			}
			return nil, err
		}
		posted = append(posted, postedEntry{posting: p, Balance: balance})
	}
	return posted, nil
}

// ensureBalanced checks that a set of postings moves no assets in total.
func ensureBalanced(postings []posting) error {
	var sum int64
	for _, p := range postings {
		sum += p.Amount
	}
	if sum != 0 {
		return fmt.Errorf("unbalanced postings: %d", sum)
	}
	return nil
}

func broadcast(hub BalanceHub, transferID string, posted []postedEntry) {
	if hub == nil {
		return
	}
	for _, p := range posted {
		hub.BroadcastWallet(p.UserID, websocket.WalletUpdate{
			Owner:      p.UserID,
			Assets:     p.Balance,
			Delta:      p.Amount,
			Reason:     p.Reason,
			TransferID: transferID,
		})
	}
}

func walletOrNotFound(wallet models.Wallet, err error) (models.Wallet, error) {
	if err != nil {
		if isNoRows(err) {
			return models.Wallet{}, ErrWalletNotFound
		}
		return models.Wallet{}, err
	}
	return wallet, nil
}
