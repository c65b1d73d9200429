package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"stickerchart/internal/db"
	"stickerchart/internal/dbtest"
	"stickerchart/internal/models"
	"stickerchart/internal/store"
	"stickerchart/internal/websocket"
)

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type stubHub struct {
	mu    sync.Mutex
	calls []websocket.WalletUpdate
}

func (s *stubHub) BroadcastWallet(_ int64, update websocket.WalletUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, update)
}

func (s *stubHub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type recordingRemover struct {
	removed []string
}

func (r *recordingRemover) Remove(path string) error {
	r.removed = append(r.removed, path)
	return nil
}

type testEnv struct {
	db      *sqlx.DB
	hub     *stubHub
	remover *recordingRemover
	users   *UserService
	rewards *RewardService
	wallets *WalletService
	market  *MarketService
	catalog *CatalogService
	admin   int64
}

var fixedNow = time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	database := dbtest.Open(t)
	runner := db.NewTxRunner(database)
	userStore := store.NewUserStore(database)
	walletStore := store.NewWalletStore(database)
	ledgerStore := store.NewLedgerStore(database)
	eventTypeStore := store.NewEventTypeStore(database)
	eventStore := store.NewEventStore(database)
	productStore := store.NewProductStore(database)
	purchaseStore := store.NewPurchaseStore(database)
	imageStore := store.NewProductImageStore(database)
	hub := &stubHub{}
	remover := &recordingRemover{}

	env := &testEnv{
		db:      database,
		hub:     hub,
		remover: remover,
		users:   NewUserService(runner, userStore, walletStore, ledgerStore, purchaseStore),
		rewards: NewRewardService(runner, eventTypeStore, eventStore, walletStore, ledgerStore, hub),
		wallets: NewWalletService(runner, walletStore, ledgerStore, hub),
		market:  NewMarketService(runner, productStore, purchaseStore, imageStore, walletStore, ledgerStore, hub, remover),
		catalog: NewCatalogService(runner, productStore, purchaseStore, imageStore, eventTypeStore, remover),
		admin:   dbtest.UserID(t, database, models.AdminName),
	}
	clock := func() time.Time { return fixedNow }
	env.users.now = clock
	env.rewards.now = clock
	env.wallets.now = clock
	env.market.now = clock
	env.catalog.now = clock
	return env
}

func (e *testEnv) setAssets(t *testing.T, owner, assets int64) {
	t.Helper()
	if _, err := e.db.Exec(`UPDATE wallets SET assets = ? WHERE owner = ?`, assets, owner); err != nil {
		t.Fatalf("set assets: %v", err)
	}
}

func (e *testEnv) addProduct(t *testing.T, creator, price, quantity int64, imagePaths string) models.Product {
	t.Helper()
	product, err := e.catalog.CreateProduct(context.Background(), models.Product{
		Name:     "Ice cream",
		Images:   imagePaths,
		Price:    price,
		Quantity: quantity,
		Creator:  creator,
		Online:   true,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func (e *testEnv) ledgerCount(t *testing.T, userID int64) int64 {
	t.Helper()
	return dbtest.Count(t, e.db, `SELECT COUNT(*) FROM ledger_entries WHERE user_id = ?`, userID)
}

func (e *testEnv) productQuantity(t *testing.T, id int64) int64 {
	t.Helper()
	return dbtest.Count(t, e.db, `SELECT quantity FROM products WHERE id = ?`, id)
}
