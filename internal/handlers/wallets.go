package handlers

import (
	"net/http"

	"stickerchart/internal/services"
)

func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	wallet, err := h.wallets.Wallet(r.Context(), actor.UserID)
	if err != nil {
		respondServiceError(w, r, err, "unable to load wallet")
		return
	}
	respondJSON(w, http.StatusOK, wallet)
}

func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	entries, err := h.wallets.Ledger(r.Context(), actor.UserID)
	if err != nil {
		respondServiceError(w, r, err, "unable to load ledger")
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

type adjustRequest struct {
	Delta  int64  `json:"delta"`
	Reason string `json:"reason"`
}

func (h *Handler) AdjustWallet(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	userID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var req adjustRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	wallet, err := h.wallets.Adjust(r.Context(), services.AdjustRequest{
		UserID:  userID,
		Delta:   req.Delta,
		Reason:  req.Reason,
		ActorID: actor.UserID,
	})
	if err != nil {
		respondServiceError(w, r, err, "unable to adjust wallet")
		return
	}
	respondJSON(w, http.StatusOK, wallet)
}

type creditRequest struct {
	Credit int64 `json:"credit"`
}

func (h *Handler) SetCredit(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var req creditRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := h.wallets.SetCredit(r.Context(), userID, req.Credit); err != nil {
		respondServiceError(w, r, err, "unable to set credit")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
