package store

import (
	"context"

	"stickerchart/internal/models"
)

const eventColumns = `id, eventType, owner, note, photoPath, created_by, created_at, is_verified, verified_at, verified_by`

type EventStore struct {
	db DB
}

func NewEventStore(db DB) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) Create(ctx context.Context, tx Execer, event models.Event) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO events (eventType, owner, note, photoPath, created_by, created_at, is_verified)
		VALUES (?, ?, ?, ?, ?, ?, 0)
	`, event.EventType, event.Owner, event.Note, event.PhotoPath, event.CreatedBy, event.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *EventStore) Get(ctx context.Context, q Getter, id int64) (models.Event, error) {
	var event models.Event
	err := q.GetContext(ctx, &event, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	return event, err
}

// MarkVerified flips is_verified once. It affects no row when the event is
// missing or already verified.
func (s *EventStore) MarkVerified(ctx context.Context, tx Execer, id, verifier, at int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE events
		SET is_verified = 1, verified_at = ?, verified_by = ?
		WHERE id = ? AND is_verified = 0
	`, at, verifier, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountSince counts the events of one type a user recorded at or after since.
func (s *EventStore) CountSince(ctx context.Context, q Getter, eventType string, owner *int64, createdBy, since int64) (int64, error) {
	var count int64
	err := q.GetContext(ctx, &count, `
		SELECT COUNT(*)
		FROM events
		WHERE eventType = ? AND owner IS ? AND created_by = ? AND created_at >= ?
	`, eventType, owner, createdBy, since)
	return count, err
}

func (s *EventStore) ListByCreator(ctx context.Context, createdBy int64) ([]models.Event, error) {
	events := []models.Event{}
	err := s.db.SelectContext(ctx, &events, `
		SELECT `+eventColumns+`
		FROM events
		WHERE created_by = ?
		ORDER BY created_at DESC, id DESC
	`, createdBy)
	return events, err
}

func (s *EventStore) ListPending(ctx context.Context) ([]models.Event, error) {
	events := []models.Event{}
	err := s.db.SelectContext(ctx, &events, `
		SELECT `+eventColumns+`
		FROM events
		WHERE is_verified = 0
		ORDER BY created_at, id
	`)
	return events, err
}

func (s *EventStore) Delete(ctx context.Context, tx Execer, id int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
