package handlers

import (
	"net/http"

	"stickerchart/internal/auth"
)

type loginRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	user, err := h.users.Authenticate(r.Context(), req.Name, req.Code)
	if err != nil {
		respondServiceError(w, r, err, "login failed")
		return
	}
	token, err := auth.GenerateToken(h.cfg.JWTSecret, user.ID, user.Role, h.cfg.TokenTTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  user,
	})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	user, err := h.users.GetUser(r.Context(), actor.UserID)
	if err != nil {
		respondServiceError(w, r, err, "unable to load user")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

type updateCodeRequest struct {
	Code string `json:"code"`
}

func (h *Handler) UpdateCode(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req updateCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := h.users.UpdateCode(r.Context(), actor.UserID, req.Code); err != nil {
		respondServiceError(w, r, err, "unable to update code")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
