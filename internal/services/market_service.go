package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"

	"stickerchart/internal/db"
	"stickerchart/internal/images"
	"stickerchart/internal/models"
	"stickerchart/internal/validator"
)

// MarketService runs purchases and their lifecycle. Buyer and seller pay
// and get paid in assets.
type MarketService struct {
	txRunner  db.TxRunner
	products  ProductStore
	purchases PurchaseStore
	images    ProductImageStore
	wallets   WalletStore
	writer    ledgerWriter
	hub       BalanceHub
	remover   ImageRemover
	now       func() time.Time
}

func NewMarketService(txRunner db.TxRunner, products ProductStore, purchases PurchaseStore, productImages ProductImageStore, wallets WalletStore, ledger LedgerStore, hub BalanceHub, remover ImageRemover) *MarketService {
	return &MarketService{
		txRunner:  txRunner,
		products:  products,
		purchases: purchases,
		images:    productImages,
		wallets:   wallets,
		writer:    ledgerWriter{wallets: wallets, ledger: ledger},
		hub:       hub,
		remover:   remover,
		now:       time.Now,
	}
}

type PurchaseRequest struct {
	BuyerID   int64
	ProductID int64
	Quantity  int64
	// UnitPrice is the price the buyer saw. It must match the live price.
	UnitPrice int64
}

type PurchaseResult struct {
	Purchase        models.Purchase
	ProductQuantity int64
	TransferID      string
}

func (s *MarketService) Purchase(ctx context.Context, req PurchaseRequest) (PurchaseResult, error) {
	if err := validator.ValidateQuantity(req.Quantity); err != nil {
		return PurchaseResult{}, err
	}
	transferID := uuid.NewString()
	var result PurchaseResult
	var posted []postedEntry
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		product, err := s.products.Get(ctx, tx, req.ProductID)
		if err != nil {
			if isNoRows(err) {
				return ErrProductNotFound
			}
			return err
		}
		if product.Creator == req.BuyerID {
			return ErrOwnProduct
		}
		if !product.Online {
			return ErrProductUnavailable
		}
		if product.Price != req.UnitPrice {
			return ErrPriceChanged
		}
		if req.Quantity > product.Quantity {
			return ErrInsufficientQuantity
		}
		buyer, err := walletOrNotFound(s.wallets.GetForUpdate(ctx, tx, req.BuyerID))
		if err != nil {
			return err
		}
		if _, err := walletOrNotFound(s.wallets.GetForUpdate(ctx, tx, product.Creator)); err != nil {
			return err
		}
		total, ok := orderTotal(req.UnitPrice, req.Quantity)
		if !ok || buyer.Assets < total {
			return ErrInsufficientCredit
		}

		now := millis(s.now())
		remaining := product.Quantity - req.Quantity
		if err := s.products.UpdateQuantity(ctx, tx, product.ID, remaining, now); err != nil {
			return err
		}
		purchase := models.Purchase{
			ProductID:   product.ID,
			Owner:       req.BuyerID,
			Seller:      product.Creator,
			Name:        product.Name,
			Description: product.Description,
			Images:      product.Images,
			Price:       req.UnitPrice,
			Quantity:    req.Quantity,
			Status:      models.PurchasePending,
			CreatedAt:   now,
		}
		orderNumber, err := s.purchases.Create(ctx, tx, purchase)
		if err != nil {
			return err
		}
		purchase.OrderNumber = orderNumber
		if err := s.images.Retain(ctx, tx, images.Split(purchase.Images)); err != nil {
			return err
		}

		reason := fmt.Sprintf("Order #%d: product %d, %d x %d", orderNumber, product.ID, req.Quantity, req.UnitPrice)
		postings := []posting{
			{UserID: req.BuyerID, Amount: -total, Counterparty: int64Ptr(product.Creator), Reason: reason},
			{UserID: product.Creator, Amount: total, Counterparty: int64Ptr(req.BuyerID), Reason: reason},
		}
		if err := ensureBalanced(postings); err != nil {
			return err
		}
		posted, err = s.writer.apply(ctx, tx, transferID, now, postings...)
		if err != nil {
			return err
		}
		result = PurchaseResult{Purchase: purchase, ProductQuantity: remaining, TransferID: transferID}
		return nil
	})
	if err != nil {
		return PurchaseResult{}, err
	}
	log.WithFields(log.Fields{
		"order_number": result.Purchase.OrderNumber,
		"product_id":   req.ProductID,
		"buyer":        req.BuyerID,
		"total":        result.Purchase.Total(),
	}).Info("purchase completed")
	broadcast(s.hub, transferID, posted)
	return result, nil
}

// Cancel reverses a pending purchase using its snapshotted price and
// quantity. The buyer, the seller or an admin may cancel.
func (s *MarketService) Cancel(ctx context.Context, orderNumber int64, actor Actor) (models.Purchase, error) {
	transferID := uuid.NewString()
	var purchase models.Purchase
	var posted []postedEntry
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		purchase, err = s.pendingPurchase(ctx, tx, orderNumber)
		if err != nil {
			return err
		}
		product, err := s.products.Get(ctx, tx, purchase.ProductID)
		if err != nil {
			if isNoRows(err) {
				return ErrProductNotFound
			}
			return err
		}
		if !actor.IsAdmin() && actor.UserID != purchase.Owner && actor.UserID != product.Creator {
			return ErrForbidden
		}

		now := millis(s.now())
		total, ok := orderTotal(purchase.Price, purchase.Quantity)
		if !ok {
			return ErrInvalidAmount
		}
		reason := fmt.Sprintf("Canceled order #%d: product %d, %d x %d", purchase.OrderNumber, product.ID, purchase.Quantity, purchase.Price)
		postings := []posting{
			{UserID: product.Creator, Amount: -total, Counterparty: int64Ptr(purchase.Owner), Reason: reason},
			{UserID: purchase.Owner, Amount: total, Counterparty: int64Ptr(product.Creator), Reason: reason},
		}
		if err := ensureBalanced(postings); err != nil {
			return err
		}
		posted, err = s.writer.apply(ctx, tx, transferID, now, postings...)
		if err != nil {
			return err
		}
		if err := s.products.UpdateQuantity(ctx, tx, product.ID, product.Quantity+purchase.Quantity, now); err != nil {
			return err
		}
		if _, err := s.purchases.MarkCanceled(ctx, tx, purchase.OrderNumber, actor.UserID, now); err != nil {
			return err
		}
		purchase.Status = models.PurchaseCanceled
		purchase.Quantity = 0
		purchase.CanceledAt = int64Ptr(now)
		purchase.CanceledBy = int64Ptr(actor.UserID)
		return nil
	})
	if err != nil {
		return models.Purchase{}, err
	}
	log.WithFields(log.Fields{
		"order_number": orderNumber,
		"actor":        actor.UserID,
		"transfer_id":  transferID,
	}).Info("purchase canceled")
	broadcast(s.hub, transferID, posted)
	return purchase, nil
}

// Fulfill marks a pending purchase delivered. No assets move.
func (s *MarketService) Fulfill(ctx context.Context, orderNumber int64, actor Actor) (models.Purchase, error) {
	var purchase models.Purchase
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		purchase, err = s.pendingPurchase(ctx, tx, orderNumber)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() {
			product, err := s.products.Get(ctx, tx, purchase.ProductID)
			if err != nil && !isNoRows(err) {
				return err
			}
			if err != nil || product.Creator != actor.UserID {
				return ErrForbidden
			}
		}
		now := millis(s.now())
		if _, err := s.purchases.MarkFulfilled(ctx, tx, orderNumber, actor.UserID, now); err != nil {
			return err
		}
		purchase.Status = models.PurchaseFulfilled
		purchase.FulfilledAt = int64Ptr(now)
		purchase.FulfilledBy = int64Ptr(actor.UserID)
		return nil
	})
	if err != nil {
		return models.Purchase{}, err
	}
	return purchase, nil
}

// Delete removes a fulfilled or canceled purchase from the history and
// releases its image references. Files no longer referenced are removed
// after commit.
func (s *MarketService) Delete(ctx context.Context, orderNumber int64, actor Actor) error {
	var unreferenced []string
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		purchase, err := s.purchases.Get(ctx, tx, orderNumber)
		if err != nil {
			if isNoRows(err) {
				return ErrPurchaseNotFound
			}
			return err
		}
		if !actor.IsAdmin() && actor.UserID != purchase.Owner {
			return ErrForbidden
		}
		if purchase.Status == models.PurchasePending {
			return ErrPurchasePending
		}
		if _, err := s.purchases.Delete(ctx, tx, orderNumber); err != nil {
			return err
		}
		unreferenced, err = s.images.Release(ctx, tx, images.Split(purchase.Images))
		return err
	})
	if err != nil {
		return err
	}
	removeImages(s.remover, unreferenced)
	return nil
}

func (s *MarketService) PurchasesByOwner(ctx context.Context, owner int64) ([]models.Purchase, error) {
	return s.purchases.ListByOwner(ctx, owner)
}

func (s *MarketService) PurchasesBySeller(ctx context.Context, seller int64) ([]models.Purchase, error) {
	return s.purchases.ListBySeller(ctx, seller)
}

func (s *MarketService) pendingPurchase(ctx context.Context, tx *sqlx.Tx, orderNumber int64) (models.Purchase, error) {
	purchase, err := s.purchases.Get(ctx, tx, orderNumber)
	if err != nil {
		if isNoRows(err) {
			return models.Purchase{}, ErrPurchaseNotFound
		}
		return models.Purchase{}, err
	}
	switch {
	case purchase.Status == models.PurchaseCanceled || purchase.Quantity == 0:
		return models.Purchase{}, ErrAlreadyCanceled
	case purchase.Status == models.PurchaseFulfilled || purchase.FulfilledAt != nil:
		return models.Purchase{}, ErrAlreadyFulfilled
	}
	return purchase, nil
}

// orderTotal multiplies price by quantity and reports false when the
// product does not fit in an int64.
func orderTotal(price, quantity int64) (int64, bool) {
	if price < 0 || quantity < 0 {
		return 0, false
	}
	if price > 0 && quantity > math.MaxInt64/price {
		return 0, false
	}
	return price * quantity, true
}

func removeImages(remover ImageRemover, paths []string) {
	if remover == nil {
		return
	}
	for _, p := range paths {
		if err := remover.Remove(p); err != nil {
			log.WithError(err).WithField("path", p).Warn("image removal failed")
		}
	}
}
