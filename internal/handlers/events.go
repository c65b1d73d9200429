package handlers

import (
	"errors"
	"io"
	"net/http"

	"stickerchart/internal/services"
)

type recordEventRequest struct {
	EventType string  `json:"eventType"`
	Owner     *int64  `json:"owner"`
	Note      *string `json:"note"`
	PhotoPath *string `json:"photoPath"`
}

type verifyEventRequest struct {
	VerifierReason string `json:"verifier_reason"`
	OwnerReason    string `json:"owner_reason"`
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	events, err := h.rewards.ListEvents(r.Context(), actor.UserID)
	if err != nil {
		respondServiceError(w, r, err, "unable to load events")
		return
	}
	respondJSON(w, http.StatusOK, events)
}

func (h *Handler) PendingEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.rewards.PendingEvents(r.Context())
	if err != nil {
		respondServiceError(w, r, err, "unable to load events")
		return
	}
	respondJSON(w, http.StatusOK, events)
}

func (h *Handler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req recordEventRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	event, err := h.rewards.RecordEvent(r.Context(), services.RecordRequest{
		EventType: req.EventType,
		Owner:     req.Owner,
		CreatedBy: actor.UserID,
		Note:      req.Note,
		PhotoPath: req.PhotoPath,
	})
	if err != nil {
		respondServiceError(w, r, err, "unable to record event")
		return
	}
	respondJSON(w, http.StatusCreated, event)
}

func (h *Handler) VerifyEvent(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	var req verifyEventRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	result, err := h.rewards.VerifyEvent(r.Context(), services.VerifyRequest{
		EventID:        id,
		VerifierID:     actor.UserID,
		VerifierReason: req.VerifierReason,
		OwnerReason:    req.OwnerReason,
	})
	if err != nil {
		respondServiceError(w, r, err, "unable to verify event")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"event":           result.Event,
		"weight":          result.Weight,
		"verifier_assets": result.VerifierAssets,
		"owner_assets":    result.OwnerAssets,
		"transfer_id":     result.TransferID,
	})
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	if err := h.rewards.DeleteEvent(r.Context(), id, actor); err != nil {
		respondServiceError(w, r, err, "unable to delete event")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
