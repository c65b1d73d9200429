package handlers

import (
	"context"

	"stickerchart/internal/models"
	"stickerchart/internal/services"
)

type UserService interface {
	CreateUser(ctx context.Context, req services.NewUser) (models.User, error)
	DeleteUser(ctx context.Context, id int64) error
	Authenticate(ctx context.Context, name, code string) (models.User, error)
	UpdateCode(ctx context.Context, id int64, code string) error
	GetUser(ctx context.Context, id int64) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

type WalletService interface {
	Wallet(ctx context.Context, userID int64) (models.Wallet, error)
	Ledger(ctx context.Context, userID int64) ([]models.LedgerEntry, error)
	Adjust(ctx context.Context, req services.AdjustRequest) (models.Wallet, error)
	SetCredit(ctx context.Context, userID, credit int64) error
}

type RewardService interface {
	RecordEvent(ctx context.Context, req services.RecordRequest) (models.Event, error)
	VerifyEvent(ctx context.Context, req services.VerifyRequest) (services.VerifyResult, error)
	DeleteEvent(ctx context.Context, id int64, actor services.Actor) error
	ListEvents(ctx context.Context, createdBy int64) ([]models.Event, error)
	PendingEvents(ctx context.Context) ([]models.Event, error)
}

type MarketService interface {
	Purchase(ctx context.Context, req services.PurchaseRequest) (services.PurchaseResult, error)
	Cancel(ctx context.Context, orderNumber int64, actor services.Actor) (models.Purchase, error)
	Fulfill(ctx context.Context, orderNumber int64, actor services.Actor) (models.Purchase, error)
	Delete(ctx context.Context, orderNumber int64, actor services.Actor) error
	PurchasesByOwner(ctx context.Context, owner int64) ([]models.Purchase, error)
	PurchasesBySeller(ctx context.Context, seller int64) ([]models.Purchase, error)
}

type CatalogService interface {
	CreateProduct(ctx context.Context, product models.Product) (models.Product, error)
	UpdateProduct(ctx context.Context, product models.Product, actor services.Actor) (models.Product, error)
	DeleteProduct(ctx context.Context, id int64, actor services.Actor) error
	ListProducts(ctx context.Context) ([]models.Product, error)
	ProductsByCreator(ctx context.Context, creator int64) ([]models.Product, error)
	CreateEventType(ctx context.Context, et models.EventType) (models.EventType, error)
	UpdateEventType(ctx context.Context, et models.EventType) error
	DeleteEventType(ctx context.Context, name string, owner *int64) error
	EventTypes(ctx context.Context, userID int64) ([]models.EventType, error)
}
