package store

import (
	"context"

	"stickerchart/internal/models"
)

const eventTypeColumns = `name, owner, icon, iconColor, availability, weight, expiration_date, created_at`

type EventTypeStore struct {
	db DB
}

func NewEventTypeStore(db DB) *EventTypeStore {
	return &EventTypeStore{db: db}
}

// Create inserts an event type. NULL owners do not collide in the primary
// key, so uniqueness of (name, owner) is checked explicitly.
func (s *EventTypeStore) Create(ctx context.Context, tx Tx, et models.EventType) error {
	var count int
	if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM event_types WHERE name = ? AND owner IS ?`, et.Name, et.Owner); err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicate
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO event_types (name, owner, icon, iconColor, availability, weight, expiration_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, et.Name, et.Owner, et.Icon, et.IconColor, et.Availability, et.Weight, et.ExpirationDate, et.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *EventTypeStore) Get(ctx context.Context, q Getter, name string, owner *int64) (models.EventType, error) {
	var et models.EventType
	err := q.GetContext(ctx, &et, `SELECT `+eventTypeColumns+` FROM event_types WHERE name = ? AND owner IS ?`, name, owner)
	return et, err
}

func (s *EventTypeStore) GetWeight(ctx context.Context, q Getter, name string, owner *int64) (int64, error) {
	var weight int64
	err := q.GetContext(ctx, &weight, `SELECT weight FROM event_types WHERE name = ? AND owner IS ?`, name, owner)
	return weight, err
}

// ListVisible returns the event types owned by userID plus the ownerless ones.
func (s *EventTypeStore) ListVisible(ctx context.Context, userID int64) ([]models.EventType, error) {
	types := []models.EventType{}
	err := s.db.SelectContext(ctx, &types, `
		SELECT `+eventTypeColumns+`
		FROM event_types
		WHERE owner = ? OR owner IS NULL
		ORDER BY name
	`, userID)
	return types, err
}

func (s *EventTypeStore) Update(ctx context.Context, tx Execer, et models.EventType) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE event_types
		SET icon = ?, iconColor = ?, availability = ?, weight = ?, expiration_date = ?
		WHERE name = ? AND owner IS ?
	`, et.Icon, et.IconColor, et.Availability, et.Weight, et.ExpirationDate, et.Name, et.Owner)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *EventTypeStore) Delete(ctx context.Context, tx Execer, name string, owner *int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM event_types WHERE name = ? AND owner IS ?`, name, owner)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
