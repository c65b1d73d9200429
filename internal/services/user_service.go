package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"

	"stickerchart/internal/db"
	"stickerchart/internal/models"
	"stickerchart/internal/store"
	"stickerchart/internal/validator"
)

type UserService struct {
	txRunner  db.TxRunner
	users     UserStore
	wallets   WalletStore
	ledger    LedgerStore
	purchases PurchaseStore
	now       func() time.Time
}

func NewUserService(txRunner db.TxRunner, users UserStore, wallets WalletStore, ledger LedgerStore, purchases PurchaseStore) *UserService {
	return &UserService{
		txRunner:  txRunner,
		users:     users,
		wallets:   wallets,
		ledger:    ledger,
		purchases: purchases,
		now:       time.Now,
	}
}

type NewUser struct {
	Name  string
	Role  string
	Code  string
	Icon  *string
	Email *string
	Phone *string
}

// CreateUser stores a user and, unless it is a guest, its wallet and ledger.
func (s *UserService) CreateUser(ctx context.Context, req NewUser) (models.User, error) {
	name := strings.TrimSpace(req.Name)
	if err := validator.ValidateUserName(name); err != nil {
		return models.User{}, err
	}
	code, err := validator.NormalizeCode(req.Code)
	if err != nil {
		return models.User{}, err
	}
	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	switch role {
	case models.RoleAdmin, models.RoleUser, models.RoleGuest:
	default:
		return models.User{}, ErrUnknownRole
	}
	now := millis(s.now())
	user := models.User{
		Name:      name,
		Role:      role,
		Code:      code,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		Icon:      req.Icon,
		Email:     req.Email,
		Phone:     req.Phone,
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		taken, err := s.users.NameTaken(ctx, tx, name)
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicateName
		}
		id, err := s.users.Create(ctx, tx, user)
		if err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return ErrDuplicateName
			}
			return err
		}
		user.ID = id
		if !hasWallet(user) {
			return nil
		}
		if err := s.wallets.Create(ctx, tx, id, models.DefaultAssets, models.DefaultCredit); err != nil {
			return err
		}
		return s.ledger.CreateLedger(ctx, tx, id, now)
	})
	if err != nil {
		return models.User{}, err
	}
	log.WithFields(log.Fields{"user_id": user.ID, "role": user.Role}).Info("user created")
	return user, nil
}

func hasWallet(user models.User) bool {
	return !user.IsGuest() && user.Name != models.GuestName
}

// DeleteUser removes the user with its wallet and ledger. The seeded Admin
// and Guest users cannot be deleted, nor can a user with pending purchases
// on either side.
func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		user, err := s.users.GetByID(ctx, tx, id)
		if err != nil {
			if isNoRows(err) {
				return ErrUserNotFound
			}
			return err
		}
		if user.Name == models.AdminName || user.Name == models.GuestName {
			return ErrProtectedUser
		}
		pending, err := s.purchases.CountPendingByUser(ctx, tx, id)
		if err != nil {
			return err
		}
		if pending > 0 {
			return ErrUserHasOrders
		}
		if err := s.wallets.Delete(ctx, tx, id); err != nil {
			return err
		}
		if err := s.ledger.DeleteLedger(ctx, tx, id); err != nil {
			return err
		}
		_, err = s.users.Delete(ctx, tx, id)
		return err
	})
}

func (s *UserService) Authenticate(ctx context.Context, name, code string) (models.User, error) {
	normalized, err := validator.NormalizeCode(code)
	if err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	user, err := s.users.GetByName(ctx, strings.TrimSpace(name))
	if err != nil {
		if isNoRows(err) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}
	if !user.IsActive || subtle.ConstantTimeCompare([]byte(user.Code), []byte(normalized)) != 1 {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) UpdateCode(ctx context.Context, id int64, code string) error {
	normalized, err := validator.NormalizeCode(code)
	if err != nil {
		return err
	}
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		rows, err := s.users.UpdateCode(ctx, tx, id, normalized, millis(s.now()))
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}

func (s *UserService) GetUser(ctx context.Context, id int64) (models.User, error) {
	user, err := s.users.Get(ctx, id)
	if isNoRows(err) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}
