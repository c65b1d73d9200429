package handlers

import (
	"net/http"

	"stickerchart/internal/services"
)

type createUserRequest struct {
	Name  string  `json:"name"`
	Role  string  `json:"role"`
	Code  string  `json:"code"`
	Icon  *string `json:"icon"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		respondServiceError(w, r, err, "unable to load users")
		return
	}
	respondJSON(w, http.StatusOK, users)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	user, err := h.users.CreateUser(r.Context(), services.NewUser{
		Name:  req.Name,
		Role:  req.Role,
		Code:  req.Code,
		Icon:  req.Icon,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		respondServiceError(w, r, err, "unable to create user")
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if err := h.users.DeleteUser(r.Context(), id); err != nil {
		respondServiceError(w, r, err, "unable to delete user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
