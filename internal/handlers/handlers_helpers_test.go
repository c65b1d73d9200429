package handlers

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"stickerchart/internal/auth"
	"stickerchart/internal/config"
	"stickerchart/internal/models"
	"stickerchart/internal/services"
	"stickerchart/internal/websocket"
)

type stubUserService struct {
	createFn       func(ctx context.Context, req services.NewUser) (models.User, error)
	deleteFn       func(ctx context.Context, id int64) error
	authenticateFn func(ctx context.Context, name, code string) (models.User, error)
	updateCodeFn   func(ctx context.Context, id int64, code string) error
	getFn          func(ctx context.Context, id int64) (models.User, error)
	listFn         func(ctx context.Context) ([]models.User, error)
}

func (s stubUserService) CreateUser(ctx context.Context, req services.NewUser) (models.User, error) {
	if s.createFn == nil {
		return models.User{}, nil
	}
	return s.createFn(ctx, req)
}

func (s stubUserService) DeleteUser(ctx context.Context, id int64) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, id)
}

func (s stubUserService) Authenticate(ctx context.Context, name, code string) (models.User, error) {
	if s.authenticateFn == nil {
		return models.User{}, services.ErrInvalidCredentials
	}
	return s.authenticateFn(ctx, name, code)
}

func (s stubUserService) UpdateCode(ctx context.Context, id int64, code string) error {
	if s.updateCodeFn == nil {
		return nil
	}
	return s.updateCodeFn(ctx, id, code)
}

// GetUser defaults to an active user whose role follows the id: 1 is the
// seeded Admin, anyone else is a plain user.
func (s stubUserService) GetUser(ctx context.Context, id int64) (models.User, error) {
	if s.getFn == nil {
		role := models.RoleUser
		if id == 1 {
			role = models.RoleAdmin
		}
		return models.User{ID: id, Role: role, IsActive: true}, nil
	}
	return s.getFn(ctx, id)
}

func (s stubUserService) ListUsers(ctx context.Context) ([]models.User, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx)
}

type stubWalletService struct {
	walletFn    func(ctx context.Context, userID int64) (models.Wallet, error)
	ledgerFn    func(ctx context.Context, userID int64) ([]models.LedgerEntry, error)
	adjustFn    func(ctx context.Context, req services.AdjustRequest) (models.Wallet, error)
	setCreditFn func(ctx context.Context, userID, credit int64) error
}

func (s stubWalletService) Wallet(ctx context.Context, userID int64) (models.Wallet, error) {
	if s.walletFn == nil {
		return models.Wallet{}, nil
	}
	return s.walletFn(ctx, userID)
}

func (s stubWalletService) Ledger(ctx context.Context, userID int64) ([]models.LedgerEntry, error) {
	if s.ledgerFn == nil {
		return nil, nil
	}
	return s.ledgerFn(ctx, userID)
}

func (s stubWalletService) Adjust(ctx context.Context, req services.AdjustRequest) (models.Wallet, error) {
	if s.adjustFn == nil {
		return models.Wallet{}, nil
	}
	return s.adjustFn(ctx, req)
}

func (s stubWalletService) SetCredit(ctx context.Context, userID, credit int64) error {
	if s.setCreditFn == nil {
		return nil
	}
	return s.setCreditFn(ctx, userID, credit)
}

type stubRewardService struct {
	recordFn  func(ctx context.Context, req services.RecordRequest) (models.Event, error)
	verifyFn  func(ctx context.Context, req services.VerifyRequest) (services.VerifyResult, error)
	deleteFn  func(ctx context.Context, id int64, actor services.Actor) error
	listFn    func(ctx context.Context, createdBy int64) ([]models.Event, error)
	pendingFn func(ctx context.Context) ([]models.Event, error)
}

func (s stubRewardService) RecordEvent(ctx context.Context, req services.RecordRequest) (models.Event, error) {
	if s.recordFn == nil {
		return models.Event{}, nil
	}
	return s.recordFn(ctx, req)
}

func (s stubRewardService) VerifyEvent(ctx context.Context, req services.VerifyRequest) (services.VerifyResult, error) {
	if s.verifyFn == nil {
		return services.VerifyResult{}, nil
	}
	return s.verifyFn(ctx, req)
}

func (s stubRewardService) DeleteEvent(ctx context.Context, id int64, actor services.Actor) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, id, actor)
}

func (s stubRewardService) ListEvents(ctx context.Context, createdBy int64) ([]models.Event, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, createdBy)
}

func (s stubRewardService) PendingEvents(ctx context.Context) ([]models.Event, error) {
	if s.pendingFn == nil {
		return nil, nil
	}
	return s.pendingFn(ctx)
}

type stubMarketService struct {
	purchaseFn func(ctx context.Context, req services.PurchaseRequest) (services.PurchaseResult, error)
	cancelFn   func(ctx context.Context, orderNumber int64, actor services.Actor) (models.Purchase, error)
	fulfillFn  func(ctx context.Context, orderNumber int64, actor services.Actor) (models.Purchase, error)
	deleteFn   func(ctx context.Context, orderNumber int64, actor services.Actor) error
	byOwnerFn  func(ctx context.Context, owner int64) ([]models.Purchase, error)
	bySellerFn func(ctx context.Context, seller int64) ([]models.Purchase, error)
}

func (s stubMarketService) Purchase(ctx context.Context, req services.PurchaseRequest) (services.PurchaseResult, error) {
	if s.purchaseFn == nil {
		return services.PurchaseResult{}, nil
	}
	return s.purchaseFn(ctx, req)
}

func (s stubMarketService) Cancel(ctx context.Context, orderNumber int64, actor services.Actor) (models.Purchase, error) {
	if s.cancelFn == nil {
		return models.Purchase{}, nil
	}
	return s.cancelFn(ctx, orderNumber, actor)
}

func (s stubMarketService) Fulfill(ctx context.Context, orderNumber int64, actor services.Actor) (models.Purchase, error) {
	if s.fulfillFn == nil {
		return models.Purchase{}, nil
	}
	return s.fulfillFn(ctx, orderNumber, actor)
}

func (s stubMarketService) Delete(ctx context.Context, orderNumber int64, actor services.Actor) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, orderNumber, actor)
}

func (s stubMarketService) PurchasesByOwner(ctx context.Context, owner int64) ([]models.Purchase, error) {
	if s.byOwnerFn == nil {
		return nil, nil
	}
	return s.byOwnerFn(ctx, owner)
}

func (s stubMarketService) PurchasesBySeller(ctx context.Context, seller int64) ([]models.Purchase, error) {
	if s.bySellerFn == nil {
		return nil, nil
	}
	return s.bySellerFn(ctx, seller)
}

type stubCatalogService struct {
	createProductFn   func(ctx context.Context, product models.Product) (models.Product, error)
	updateProductFn   func(ctx context.Context, product models.Product, actor services.Actor) (models.Product, error)
	deleteProductFn   func(ctx context.Context, id int64, actor services.Actor) error
	listProductsFn    func(ctx context.Context) ([]models.Product, error)
	byCreatorFn       func(ctx context.Context, creator int64) ([]models.Product, error)
	createEventTypeFn func(ctx context.Context, et models.EventType) (models.EventType, error)
	updateEventTypeFn func(ctx context.Context, et models.EventType) error
	deleteEventTypeFn func(ctx context.Context, name string, owner *int64) error
	eventTypesFn      func(ctx context.Context, userID int64) ([]models.EventType, error)
}

func (s stubCatalogService) CreateProduct(ctx context.Context, product models.Product) (models.Product, error) {
	if s.createProductFn == nil {
		return product, nil
	}
	return s.createProductFn(ctx, product)
}

func (s stubCatalogService) UpdateProduct(ctx context.Context, product models.Product, actor services.Actor) (models.Product, error) {
	if s.updateProductFn == nil {
		return product, nil
	}
	return s.updateProductFn(ctx, product, actor)
}

func (s stubCatalogService) DeleteProduct(ctx context.Context, id int64, actor services.Actor) error {
	if s.deleteProductFn == nil {
		return nil
	}
	return s.deleteProductFn(ctx, id, actor)
}

func (s stubCatalogService) ListProducts(ctx context.Context) ([]models.Product, error) {
	if s.listProductsFn == nil {
		return nil, nil
	}
	return s.listProductsFn(ctx)
}

func (s stubCatalogService) ProductsByCreator(ctx context.Context, creator int64) ([]models.Product, error) {
	if s.byCreatorFn == nil {
		return nil, nil
	}
	return s.byCreatorFn(ctx, creator)
}

func (s stubCatalogService) CreateEventType(ctx context.Context, et models.EventType) (models.EventType, error) {
	if s.createEventTypeFn == nil {
		return et, nil
	}
	return s.createEventTypeFn(ctx, et)
}

func (s stubCatalogService) UpdateEventType(ctx context.Context, et models.EventType) error {
	if s.updateEventTypeFn == nil {
		return nil
	}
	return s.updateEventTypeFn(ctx, et)
}

func (s stubCatalogService) DeleteEventType(ctx context.Context, name string, owner *int64) error {
	if s.deleteEventTypeFn == nil {
		return nil
	}
	return s.deleteEventTypeFn(ctx, name, owner)
}

func (s stubCatalogService) EventTypes(ctx context.Context, userID int64) ([]models.EventType, error) {
	if s.eventTypesFn == nil {
		return nil, nil
	}
	return s.eventTypesFn(ctx, userID)
}

type testServices struct {
	users   stubUserService
	wallets stubWalletService
	rewards stubRewardService
	market  stubMarketService
	catalog stubCatalogService
}

func newTestHandler(svc testServices) *Handler {
	cfg := config.Config{
		AppEnv:         "test",
		Port:           "0",
		JWTSecret:      "secret",
		TokenTTL:       time.Minute,
		AllowedOrigins: "*",
	}
	return New(cfg, svc.users, svc.wallets, svc.rewards, svc.market, svc.catalog, websocket.NewHub())
}

func testToken(t *testing.T, userID int64, role string) string {
	t.Helper()
	token, err := auth.GenerateToken("secret", userID, role, time.Minute)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return token
}

// serveAs routes a request through the full router as the given user. A zero
// userID sends no token.
func serveAs(t *testing.T, handler *Handler, userID int64, role, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		req.Header.Set("Authorization", "Bearer "+testToken(t, userID, role))
	}
	rr := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rr, req)
	return rr
}

func int64Ptr(v int64) *int64 {
	return &v
}
