package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"

	"stickerchart/internal/db"
	"stickerchart/internal/models"
)

// RewardService records achievements and pays for their verification.
type RewardService struct {
	txRunner   db.TxRunner
	eventTypes EventTypeStore
	events     EventStore
	writer     ledgerWriter
	hub        BalanceHub
	now        func() time.Time
}

func NewRewardService(txRunner db.TxRunner, eventTypes EventTypeStore, events EventStore, wallets WalletStore, ledger LedgerStore, hub BalanceHub) *RewardService {
	return &RewardService{
		txRunner:   txRunner,
		eventTypes: eventTypes,
		events:     events,
		writer:     ledgerWriter{wallets: wallets, ledger: ledger},
		hub:        hub,
		now:        time.Now,
	}
}

type VerifyRequest struct {
	EventID    int64
	VerifierID int64
	// Reasons recorded on the verifier's and the owner's ledger entries.
	// Empty reasons get a default naming the event type.
	VerifierReason string
	OwnerReason    string
}

type VerifyResult struct {
	Event          models.Event
	Weight         int64
	VerifierAssets int64
	OwnerAssets    *int64
	TransferID     string
}

// VerifyEvent marks an event verified and moves the event type's weight
// from the verifier's assets to the event owner's. Ownerless event types
// have no credit side: the weight leaves the economy.
func (s *RewardService) VerifyEvent(ctx context.Context, req VerifyRequest) (VerifyResult, error) {
	var result VerifyResult
	var posted []postedEntry
	transferID := uuid.NewString()
	now := millis(s.now())
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		event, err := s.events.Get(ctx, tx, req.EventID)
		if err != nil {
			if isNoRows(err) {
				return ErrEventNotFound
			}
			return err
		}
		if event.IsVerified {
			return ErrAlreadyVerified
		}
		weight, err := s.eventTypes.GetWeight(ctx, tx, event.EventType, event.Owner)
		if err != nil {
			if isNoRows(err) {
				return ErrEventTypeNotFound
			}
			return err
		}
		rows, err := s.events.MarkVerified(ctx, tx, req.EventID, req.VerifierID, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrAlreadyVerified
		}

		verifierReason := defaultReason(req.VerifierReason, "Verified "+event.EventType)
		postings := []posting{{
			UserID:       req.VerifierID,
			Amount:       -weight,
			Counterparty: event.Owner,
			Reason:       verifierReason,
		}}
		if event.Owner != nil {
			postings = append(postings, posting{
				UserID:       *event.Owner,
				Amount:       weight,
				Counterparty: int64Ptr(req.VerifierID),
				Reason:       defaultReason(req.OwnerReason, "Reward for "+event.EventType),
			})
			if err := ensureBalanced(postings); err != nil {
				return err
			}
		}
		posted, err = s.writer.apply(ctx, tx, transferID, now, postings...)
		if err != nil {
			return err
		}

		event.IsVerified = true
		event.VerifiedAt = int64Ptr(now)
		event.VerifiedBy = int64Ptr(req.VerifierID)
		result = VerifyResult{
			Event:          event,
			Weight:         weight,
			VerifierAssets: posted[0].Balance,
			TransferID:     transferID,
		}
		if len(posted) > 1 {
			result.OwnerAssets = int64Ptr(posted[1].Balance)
		}
		return nil
	})
	if err != nil {
		return VerifyResult{}, err
	}
	log.WithFields(log.Fields{
		"event_id":    req.EventID,
		"verifier":    req.VerifierID,
		"weight":      result.Weight,
		"transfer_id": transferID,
	}).Info("event verified")
	broadcast(s.hub, transferID, posted)
	return result, nil
}

type RecordRequest struct {
	EventType string
	Owner     *int64
	CreatedBy int64
	Note      *string
	PhotoPath *string
}

// RecordEvent stores a new unverified achievement. The event type must
// exist, must not be expired, and its per-day availability (0 = unlimited)
// must not be used up by the creator.
func (s *RewardService) RecordEvent(ctx context.Context, req RecordRequest) (models.Event, error) {
	now := s.now()
	event := models.Event{
		EventType: strings.TrimSpace(req.EventType),
		Owner:     req.Owner,
		Note:      req.Note,
		PhotoPath: req.PhotoPath,
		CreatedBy: req.CreatedBy,
		CreatedAt: millis(now),
	}
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		et, err := s.eventTypes.Get(ctx, tx, event.EventType, event.Owner)
		if err != nil {
			if isNoRows(err) {
				return ErrEventTypeNotFound
			}
			return err
		}
		if et.ExpirationDate != nil && event.CreatedAt > *et.ExpirationDate {
			return ErrEventTypeExpired
		}
		if et.Availability > 0 {
			count, err := s.events.CountSince(ctx, tx, et.Name, et.Owner, req.CreatedBy, millis(startOfDay(now)))
			if err != nil {
				return err
			}
			if count >= et.Availability {
				return ErrAvailabilityReached
			}
		}
		id, err := s.events.Create(ctx, tx, event)
		if err != nil {
			return err
		}
		event.ID = id
		return nil
	})
	if err != nil {
		return models.Event{}, err
	}
	return event, nil
}

func (s *RewardService) DeleteEvent(ctx context.Context, id int64, actor Actor) error {
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		event, err := s.events.Get(ctx, tx, id)
		if err != nil {
			if isNoRows(err) {
				return ErrEventNotFound
			}
			return err
		}
		if !actor.IsAdmin() && event.CreatedBy != actor.UserID {
			return ErrForbidden
		}
		_, err = s.events.Delete(ctx, tx, id)
		return err
	})
}

func (s *RewardService) ListEvents(ctx context.Context, createdBy int64) ([]models.Event, error) {
	return s.events.ListByCreator(ctx, createdBy)
}

func (s *RewardService) PendingEvents(ctx context.Context) ([]models.Event, error) {
	return s.events.ListPending(ctx)
}

func defaultReason(reason, fallback string) string {
	if strings.TrimSpace(reason) == "" {
		return fallback
	}
	return reason
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

