package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"stickerchart/internal/db"
	"stickerchart/internal/images"
	"stickerchart/internal/models"
	"stickerchart/internal/store"
	"stickerchart/internal/validator"
)

// CatalogService manages products and event types.
type CatalogService struct {
	txRunner   db.TxRunner
	products   ProductStore
	purchases  PurchaseStore
	images     ProductImageStore
	eventTypes EventTypeStore
	remover    ImageRemover
	now        func() time.Time
}

func NewCatalogService(txRunner db.TxRunner, products ProductStore, purchases PurchaseStore, productImages ProductImageStore, eventTypes EventTypeStore, remover ImageRemover) *CatalogService {
	return &CatalogService{
		txRunner:   txRunner,
		products:   products,
		purchases:  purchases,
		images:     productImages,
		eventTypes: eventTypes,
		remover:    remover,
		now:        time.Now,
	}
}

func (s *CatalogService) CreateProduct(ctx context.Context, product models.Product) (models.Product, error) {
	product.Name = strings.TrimSpace(product.Name)
	if err := validator.ValidateProduct(product.Name, product.Description, product.Price); err != nil {
		return models.Product{}, err
	}
	if err := validator.ValidateStock(product.Quantity); err != nil {
		return models.Product{}, err
	}
	product.Images = images.Join(images.Split(product.Images))
	now := millis(s.now())
	product.CreatedAt = now
	product.UpdatedAt = now
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		id, err := s.products.Create(ctx, tx, product)
		if err != nil {
			return err
		}
		product.ID = id
		return s.images.Retain(ctx, tx, images.Split(product.Images))
	})
	if err != nil {
		return models.Product{}, err
	}
	return product, nil
}

// UpdateProduct replaces the editable fields of a product. Only its creator
// or an admin may edit it.
func (s *CatalogService) UpdateProduct(ctx context.Context, product models.Product, actor Actor) (models.Product, error) {
	product.Name = strings.TrimSpace(product.Name)
	if err := validator.ValidateProduct(product.Name, product.Description, product.Price); err != nil {
		return models.Product{}, err
	}
	if err := validator.ValidateStock(product.Quantity); err != nil {
		return models.Product{}, err
	}
	product.Images = images.Join(images.Split(product.Images))
	var unreferenced []string
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		current, err := s.ownedProduct(ctx, tx, product.ID, actor)
		if err != nil {
			return err
		}
		product.Creator = current.Creator
		product.CreatedAt = current.CreatedAt
		product.UpdatedAt = millis(s.now())
		if _, err := s.products.Update(ctx, tx, product); err != nil {
			return err
		}
		if current.Images == product.Images {
			return nil
		}
		if err := s.images.Retain(ctx, tx, images.Split(product.Images)); err != nil {
			return err
		}
		unreferenced, err = s.images.Release(ctx, tx, images.Split(current.Images))
		return err
	})
	if err != nil {
		return models.Product{}, err
	}
	removeImages(s.remover, unreferenced)
	return product, nil
}

// DeleteProduct refuses products with pending purchases, since cancelling
// those needs the seller.
func (s *CatalogService) DeleteProduct(ctx context.Context, id int64, actor Actor) error {
	var unreferenced []string
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		product, err := s.ownedProduct(ctx, tx, id, actor)
		if err != nil {
			return err
		}
		pending, err := s.purchases.CountPendingByProduct(ctx, tx, id)
		if err != nil {
			return err
		}
		if pending > 0 {
			return ErrProductHasOrders
		}
		if _, err := s.products.Delete(ctx, tx, id); err != nil {
			return err
		}
		unreferenced, err = s.images.Release(ctx, tx, images.Split(product.Images))
		return err
	})
	if err != nil {
		return err
	}
	removeImages(s.remover, unreferenced)
	return nil
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.products.ListOnline(ctx)
}

func (s *CatalogService) ProductsByCreator(ctx context.Context, creator int64) ([]models.Product, error) {
	return s.products.ListByCreator(ctx, creator)
}

func (s *CatalogService) ownedProduct(ctx context.Context, tx *sqlx.Tx, id int64, actor Actor) (models.Product, error) {
	product, err := s.products.Get(ctx, tx, id)
	if err != nil {
		if isNoRows(err) {
			return models.Product{}, ErrProductNotFound
		}
		return models.Product{}, err
	}
	if !actor.IsAdmin() && product.Creator != actor.UserID {
		return models.Product{}, ErrForbidden
	}
	return product, nil
}

func (s *CatalogService) CreateEventType(ctx context.Context, et models.EventType) (models.EventType, error) {
	et.Name = strings.TrimSpace(et.Name)
	if err := validator.ValidateEventType(et.Name, et.Weight, et.Availability); err != nil {
		return models.EventType{}, err
	}
	et.CreatedAt = millis(s.now())
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.eventTypes.Create(ctx, tx, et)
	})
	if errors.Is(err, store.ErrDuplicate) {
		return models.EventType{}, ErrDuplicateEventType
	}
	if err != nil {
		return models.EventType{}, err
	}
	return et, nil
}

func (s *CatalogService) UpdateEventType(ctx context.Context, et models.EventType) error {
	if err := validator.ValidateEventType(et.Name, et.Weight, et.Availability); err != nil {
		return err
	}
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		rows, err := s.eventTypes.Update(ctx, tx, et)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrEventTypeNotFound
		}
		return nil
	})
}

func (s *CatalogService) DeleteEventType(ctx context.Context, name string, owner *int64) error {
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		rows, err := s.eventTypes.Delete(ctx, tx, name, owner)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrEventTypeNotFound
		}
		return nil
	})
}

func (s *CatalogService) EventTypes(ctx context.Context, userID int64) ([]models.EventType, error) {
	return s.eventTypes.ListVisible(ctx, userID)
}
