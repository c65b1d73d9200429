package store

import (
	"context"

	"stickerchart/internal/models"
)

const purchaseColumns = `order_number, product_id, owner, COALESCE(seller, 0) AS seller, name, description, images, price, quantity, status,
	createdAt, fulfilledAt, fulfilledBy, canceledAt, canceledBy`

type PurchaseStore struct {
	db DB
}

func NewPurchaseStore(db DB) *PurchaseStore {
	return &PurchaseStore{db: db}
}

func (s *PurchaseStore) Create(ctx context.Context, tx Execer, purchase models.Purchase) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO purchases (product_id, owner, seller, name, description, images, price, quantity, status, createdAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, purchase.ProductID, purchase.Owner, purchase.Seller, purchase.Name, purchase.Description, purchase.Images,
		purchase.Price, purchase.Quantity, models.PurchasePending, purchase.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *PurchaseStore) Get(ctx context.Context, q Getter, orderNumber int64) (models.Purchase, error) {
	var purchase models.Purchase
	err := q.GetContext(ctx, &purchase, `SELECT `+purchaseColumns+` FROM purchases WHERE order_number = ?`, orderNumber)
	return purchase, err
}

func (s *PurchaseStore) ListByOwner(ctx context.Context, owner int64) ([]models.Purchase, error) {
	purchases := []models.Purchase{}
	err := s.db.SelectContext(ctx, &purchases, `
		SELECT `+purchaseColumns+`
		FROM purchases
		WHERE owner = ?
		ORDER BY createdAt DESC, order_number DESC
	`, owner)
	return purchases, err
}

// ListBySeller returns purchases sold by seller, including those whose
// product has since been deleted.
func (s *PurchaseStore) ListBySeller(ctx context.Context, seller int64) ([]models.Purchase, error) {
	purchases := []models.Purchase{}
	err := s.db.SelectContext(ctx, &purchases, `
		SELECT `+purchaseColumns+`
		FROM purchases
		WHERE seller = ?
		ORDER BY createdAt DESC, order_number DESC
	`, seller)
	return purchases, err
}

func (s *PurchaseStore) MarkFulfilled(ctx context.Context, tx Execer, orderNumber, by, at int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE purchases
		SET status = ?, fulfilledAt = ?, fulfilledBy = ?
		WHERE order_number = ? AND status = ?
	`, models.PurchaseFulfilled, at, by, orderNumber, models.PurchasePending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MarkCanceled also zeroes quantity, which older readers treat as canceled.
func (s *PurchaseStore) MarkCanceled(ctx context.Context, tx Execer, orderNumber, by, at int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE purchases
		SET status = ?, quantity = 0, canceledAt = ?, canceledBy = ?
		WHERE order_number = ? AND status = ?
	`, models.PurchaseCanceled, at, by, orderNumber, models.PurchasePending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *PurchaseStore) Delete(ctx context.Context, tx Execer, orderNumber int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM purchases WHERE order_number = ?`, orderNumber)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountPendingByUser counts pending purchases the user bought or sold.
func (s *PurchaseStore) CountPendingByUser(ctx context.Context, q Getter, userID int64) (int64, error) {
	var count int64
	err := q.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM purchases
		WHERE status = ? AND (owner = ? OR seller = ?)
	`, models.PurchasePending, userID, userID)
	return count, err
}

func (s *PurchaseStore) CountPendingByProduct(ctx context.Context, q Getter, productID int64) (int64, error) {
	var count int64
	err := q.GetContext(ctx, &count, `SELECT COUNT(*) FROM purchases WHERE product_id = ? AND status = ?`, productID, models.PurchasePending)
	return count, err
}
