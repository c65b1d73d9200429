package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

var ErrNotInitialized = errors.New("database is not initialized")

type TxRunner interface {
	WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error
}

type SQLXTxRunner struct {
	db *sqlx.DB
}

func NewTxRunner(db *sqlx.DB) SQLXTxRunner {
	return SQLXTxRunner{db: db}
}

func (r SQLXTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return WithTx(ctx, r.db, fn)
}

// WithTx runs fn inside one transaction. Any error from fn, or from the
// commit, leaves nothing persisted. Retrying is the caller's decision.
func WithTx(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type ManagerConfig struct {
	Path        string
	BusyTimeout time.Duration
}

// Manager owns the single database handle. Concurrent Initialize calls wait
// for the one in flight instead of opening a second handle.
type Manager struct {
	cfg ManagerConfig

	mu sync.Mutex
	db *sqlx.DB
}

func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{cfg: cfg}
}

func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db != nil {
		return nil
	}
	database, err := Open(m.cfg)
	if err != nil {
		return err
	}
	from, to, err := Migrate(ctx, database)
	if err != nil {
		_ = database.Close()
		return fmt.Errorf("migrate schema: %w", err)
	}
	log.WithFields(log.Fields{
		"path": m.cfg.Path,
		"from": from,
		"to":   to,
	}).Info("database ready")
	m.db = database
	return nil
}

func (m *Manager) DB() (*sqlx.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db == nil {
		return nil, ErrNotInitialized
	}
	return m.db, nil
}

func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	return err
}

// Open opens the database file without touching the schema.
func Open(cfg ManagerConfig) (*sqlx.DB, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	database, err := sqlx.Open(driverName, dsn(filepath.Clean(path), cfg.BusyTimeout))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection: the engine serialises writers anyway, and every
	// multi-step write runs inside a single transaction on it.
	database.SetMaxOpenConns(1)
	database.SetMaxIdleConns(1)
	database.SetConnMaxLifetime(0)
	if err := database.Ping(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return database, nil
}

func dsn(path string, busyTimeout time.Duration) string {
	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}
	return fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		path, busyTimeout.Milliseconds())
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
