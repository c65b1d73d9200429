package store

import (
	"context"

	"stickerchart/internal/models"
)

const productColumns = `id, name, description, images, price, quantity, creator, online, created_at, updated_at`

type ProductStore struct {
	db DB
}

func NewProductStore(db DB) *ProductStore {
	return &ProductStore{db: db}
}

func (s *ProductStore) Create(ctx context.Context, tx Execer, product models.Product) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO products (name, description, images, price, quantity, creator, online, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, product.Name, product.Description, product.Images, product.Price, product.Quantity,
		product.Creator, product.Online, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *ProductStore) Get(ctx context.Context, q Getter, id int64) (models.Product, error) {
	var product models.Product
	err := q.GetContext(ctx, &product, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	return product, err
}

func (s *ProductStore) ListOnline(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	err := s.db.SelectContext(ctx, &products, `
		SELECT `+productColumns+`
		FROM products
		WHERE online = 1
		ORDER BY updated_at DESC, id DESC
	`)
	return products, err
}

func (s *ProductStore) ListByCreator(ctx context.Context, creator int64) ([]models.Product, error) {
	products := []models.Product{}
	err := s.db.SelectContext(ctx, &products, `
		SELECT `+productColumns+`
		FROM products
		WHERE creator = ?
		ORDER BY updated_at DESC, id DESC
	`, creator)
	return products, err
}

func (s *ProductStore) Update(ctx context.Context, tx Execer, product models.Product) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET name = ?, description = ?, images = ?, price = ?, quantity = ?, online = ?, updated_at = ?
		WHERE id = ?
	`, product.Name, product.Description, product.Images, product.Price, product.Quantity,
		product.Online, product.UpdatedAt, product.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *ProductStore) UpdateQuantity(ctx context.Context, tx Execer, id, quantity, now int64) error {
	_, err := tx.ExecContext(ctx, `UPDATE products SET quantity = ?, updated_at = ? WHERE id = ?`, quantity, now, id)
	return err
}

func (s *ProductStore) Delete(ctx context.Context, tx Execer, id int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
