package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"stickerchart/internal/models"
	"stickerchart/internal/store"
	"stickerchart/internal/websocket"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrDuplicateName        = errors.New("user name already exists")
	ErrProtectedUser        = errors.New("built-in user cannot be deleted")
	ErrUnknownRole          = errors.New("unknown role")
	ErrUserHasOrders        = errors.New("user has pending purchases")
	ErrInvalidCredentials   = errors.New("invalid name or code")
	ErrWalletNotFound       = errors.New("wallet not found")
	ErrInsufficientAssets   = errors.New("insufficient assets")
	ErrInsufficientCredit   = errors.New("insufficient credit")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrForbidden            = errors.New("not allowed for this user")
	ErrEventTypeNotFound    = errors.New("event type not found")
	ErrDuplicateEventType   = errors.New("event type already exists")
	ErrEventTypeExpired     = errors.New("event type expired")
	ErrAvailabilityReached  = errors.New("daily availability reached")
	ErrEventNotFound        = errors.New("event not found")
	ErrAlreadyVerified      = errors.New("event already verified")
	ErrProductNotFound      = errors.New("product not found")
	ErrOwnProduct           = errors.New("cannot purchase own product")
	ErrProductUnavailable   = errors.New("product is not online")
	ErrPriceChanged         = errors.New("product price changed")
	ErrInsufficientQuantity = errors.New("insufficient product quantity")
	ErrProductHasOrders     = errors.New("product has pending purchases")
	ErrPurchaseNotFound     = errors.New("purchase not found")
	ErrAlreadyCanceled      = errors.New("purchase already canceled")
	ErrAlreadyFulfilled     = errors.New("purchase already fulfilled")
	ErrPurchasePending      = errors.New("purchase is still pending")
)

// Actor is the authenticated user an operation runs on behalf of.
type Actor struct {
	UserID int64
	Role   string
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, user models.User) (int64, error)
	Get(ctx context.Context, id int64) (models.User, error)
	GetByID(ctx context.Context, q store.Getter, id int64) (models.User, error)
	GetByName(ctx context.Context, name string) (models.User, error)
	NameTaken(ctx context.Context, q store.Getter, name string) (bool, error)
	List(ctx context.Context) ([]models.User, error)
	UpdateCode(ctx context.Context, tx store.Execer, id int64, code string, now int64) (int64, error)
	Delete(ctx context.Context, tx store.Execer, id int64) (int64, error)
}

type WalletStore interface {
	Create(ctx context.Context, tx store.Execer, owner, assets, credit int64) error
	Get(ctx context.Context, owner int64) (models.Wallet, error)
	GetForUpdate(ctx context.Context, tx store.Getter, owner int64) (models.Wallet, error)
	UpdateAssets(ctx context.Context, tx store.Execer, owner, assets int64) error
	SetCredit(ctx context.Context, tx store.Execer, owner, credit int64) (int64, error)
	Delete(ctx context.Context, tx store.Execer, owner int64) error
}

type LedgerStore interface {
	CreateLedger(ctx context.Context, tx store.Execer, userID, now int64) error
	InsertEntry(ctx context.Context, tx store.Execer, entry store.LedgerEntryInput) (int64, error)
	FetchEntries(ctx context.Context, userID int64) ([]models.LedgerEntry, error)
	DeleteLedger(ctx context.Context, tx store.Execer, userID int64) error
}

type EventTypeStore interface {
	Create(ctx context.Context, tx store.Tx, et models.EventType) error
	Get(ctx context.Context, q store.Getter, name string, owner *int64) (models.EventType, error)
	GetWeight(ctx context.Context, q store.Getter, name string, owner *int64) (int64, error)
	ListVisible(ctx context.Context, userID int64) ([]models.EventType, error)
	Update(ctx context.Context, tx store.Execer, et models.EventType) (int64, error)
	Delete(ctx context.Context, tx store.Execer, name string, owner *int64) (int64, error)
}

type EventStore interface {
	Create(ctx context.Context, tx store.Execer, event models.Event) (int64, error)
	Get(ctx context.Context, q store.Getter, id int64) (models.Event, error)
	MarkVerified(ctx context.Context, tx store.Execer, id, verifier, at int64) (int64, error)
	CountSince(ctx context.Context, q store.Getter, eventType string, owner *int64, createdBy, since int64) (int64, error)
	ListByCreator(ctx context.Context, createdBy int64) ([]models.Event, error)
	ListPending(ctx context.Context) ([]models.Event, error)
	Delete(ctx context.Context, tx store.Execer, id int64) (int64, error)
}

type ProductStore interface {
	Create(ctx context.Context, tx store.Execer, product models.Product) (int64, error)
	Get(ctx context.Context, q store.Getter, id int64) (models.Product, error)
	ListOnline(ctx context.Context) ([]models.Product, error)
	ListByCreator(ctx context.Context, creator int64) ([]models.Product, error)
	Update(ctx context.Context, tx store.Execer, product models.Product) (int64, error)
	UpdateQuantity(ctx context.Context, tx store.Execer, id, quantity, now int64) error
	Delete(ctx context.Context, tx store.Execer, id int64) (int64, error)
}

type ProductImageStore interface {
	Retain(ctx context.Context, tx store.Execer, paths []string) error
	Release(ctx context.Context, tx store.Tx, paths []string) ([]string, error)
}

type PurchaseStore interface {
	Create(ctx context.Context, tx store.Execer, purchase models.Purchase) (int64, error)
	Get(ctx context.Context, q store.Getter, orderNumber int64) (models.Purchase, error)
	ListByOwner(ctx context.Context, owner int64) ([]models.Purchase, error)
	ListBySeller(ctx context.Context, seller int64) ([]models.Purchase, error)
	CountPendingByProduct(ctx context.Context, q store.Getter, productID int64) (int64, error)
	CountPendingByUser(ctx context.Context, q store.Getter, userID int64) (int64, error)
	MarkFulfilled(ctx context.Context, tx store.Execer, orderNumber, by, at int64) (int64, error)
	MarkCanceled(ctx context.Context, tx store.Execer, orderNumber, by, at int64) (int64, error)
	Delete(ctx context.Context, tx store.Execer, orderNumber int64) (int64, error)
}

type BalanceHub interface {
	BroadcastWallet(userID int64, update websocket.WalletUpdate)
}

// ImageRemover deletes image files that are no longer referenced.
type ImageRemover interface {
	Remove(path string) error
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func int64Ptr(v int64) *int64 {
	return &v
}
