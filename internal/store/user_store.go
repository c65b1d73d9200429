package store

import (
	"context"

	"stickerchart/internal/models"
)

const userColumns = `id, name, role, code, is_active, created_at, updated_at, icon, email, phone`

type UserStore struct {
	db DB
}

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(ctx context.Context, tx Execer, user models.User) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO users (name, role, code, is_active, created_at, updated_at, icon, email, phone)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, user.Name, user.Role, user.Code, user.IsActive, user.CreatedAt, user.UpdatedAt, user.Icon, user.Email, user.Phone)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return res.LastInsertId()
}

func (s *UserStore) Get(ctx context.Context, id int64) (models.User, error) {
	return s.GetByID(ctx, s.db, id)
}

func (s *UserStore) GetByID(ctx context.Context, q Getter, id int64) (models.User, error) {
	var user models.User
	err := q.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return user, err
}

func (s *UserStore) GetByName(ctx context.Context, name string) (models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE name = ? ORDER BY id LIMIT 1`, name)
	return user, err
}

func (s *UserStore) NameTaken(ctx context.Context, q Getter, name string) (bool, error) {
	var count int
	err := q.GetContext(ctx, &count, `SELECT COUNT(*) FROM users WHERE name = ? COLLATE NOCASE`, name)
	return count > 0, err
}

func (s *UserStore) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY id`)
	return users, err
}

func (s *UserStore) UpdateCode(ctx context.Context, tx Execer, id int64, code string, now int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `UPDATE users SET code = ?, updated_at = ? WHERE id = ?`, code, now, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *UserStore) Delete(ctx context.Context, tx Execer, id int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
