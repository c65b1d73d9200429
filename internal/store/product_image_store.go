package store

import (
	"context"

	log "github.com/sirupsen/logrus"

	"stickerchart/internal/images"
	"stickerchart/internal/models"
)

// ProductImageStore reference-counts image files shared between products and
// purchase snapshots.
type ProductImageStore struct {
	db DB
}

func NewProductImageStore(db DB) *ProductImageStore {
	return &ProductImageStore{db: db}
}

func (s *ProductImageStore) Get(ctx context.Context, q Getter, id int64) (models.ProductImage, error) {
	var image models.ProductImage
	err := q.GetContext(ctx, &image, `SELECT id, referred FROM productImages WHERE id = ?`, id)
	return image, err
}

// Retain adds one reference per path. Paths without an id are skipped.
func (s *ProductImageStore) Retain(ctx context.Context, tx Execer, paths []string) error {
	for _, p := range paths {
		id, err := images.ParseID(p)
		if err != nil {
			log.WithError(err).WithField("path", p).Warn("image not reference counted")
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO productImages (id, referred) VALUES (?, 1)
			ON CONFLICT (id) DO UPDATE SET referred = referred + 1
		`, id); err != nil {
			return err
		}
	}
	return nil
}

// Release drops one reference per path and returns the paths that are no
// longer referenced. Their rows are removed.
func (s *ProductImageStore) Release(ctx context.Context, tx Tx, paths []string) ([]string, error) {
	var unreferenced []string
	for _, p := range paths {
		id, err := images.ParseID(p)
		if err != nil {
			continue
		}
		var referred int64
		if err := tx.GetContext(ctx, &referred, `SELECT referred FROM productImages WHERE id = ?`, id); err != nil {
			if isNoRows(err) {
				continue
			}
			return nil, err
		}
		if referred <= 1 {
			if _, err := tx.ExecContext(ctx, `DELETE FROM productImages WHERE id = ?`, id); err != nil {
				return nil, err
			}
			unreferenced = append(unreferenced, p)
			continue
		}
		if _, err := tx.ExecContext(ctx, `UPDATE productImages SET referred = referred - 1 WHERE id = ?`, id); err != nil {
			return nil, err
		}
	}
	return unreferenced, nil
}
