package handlers

import (
	"net/http"
	"strconv"

	"stickerchart/internal/models"
	"stickerchart/internal/services"

	"github.com/go-chi/chi/v5"
)

type productRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Images      string `json:"images"`
	Price       int64  `json:"price"`
	Quantity    int64  `json:"quantity"`
	Online      bool   `json:"online"`
}

func (p productRequest) product() models.Product {
	return models.Product{
		Name:        p.Name,
		Description: p.Description,
		Images:      p.Images,
		Price:       p.Price,
		Quantity:    p.Quantity,
		Online:      p.Online,
	}
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var (
		products []models.Product
		err      error
	)
	if r.URL.Query().Get("mine") == "true" {
		products, err = h.catalog.ProductsByCreator(r.Context(), actor.UserID)
	} else {
		products, err = h.catalog.ListProducts(r.Context())
	}
	if err != nil {
		respondServiceError(w, r, err, "unable to load products")
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	product := req.product()
	product.Creator = actor.UserID
	created, err := h.catalog.CreateProduct(r.Context(), product)
	if err != nil {
		respondServiceError(w, r, err, "unable to create product")
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	product := req.product()
	product.ID = id
	updated, err := h.catalog.UpdateProduct(r.Context(), product, actor)
	if err != nil {
		respondServiceError(w, r, err, "unable to update product")
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	if err := h.catalog.DeleteProduct(r.Context(), id, actor); err != nil {
		respondServiceError(w, r, err, "unable to delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type eventTypeRequest struct {
	Name           string `json:"name"`
	Owner          *int64 `json:"owner"`
	Icon           string `json:"icon"`
	IconColor      string `json:"iconColor"`
	Availability   int64  `json:"availability"`
	Weight         int64  `json:"weight"`
	ExpirationDate *int64 `json:"expiration_date"`
}

// eventTypeOwner lets admins address any owner, including shared types with
// no owner. Everyone else only manages their own types.
func eventTypeOwner(actor services.Actor, requested *int64) (*int64, bool) {
	if actor.IsAdmin() {
		return requested, true
	}
	if requested != nil && *requested != actor.UserID {
		return nil, false
	}
	owner := actor.UserID
	return &owner, true
}

func ownerQuery(r *http.Request) (*int64, bool) {
	raw := r.URL.Query().Get("owner")
	if raw == "" {
		return nil, true
	}
	owner, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, false
	}
	return &owner, true
}

func (h *Handler) ListEventTypes(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	eventTypes, err := h.catalog.EventTypes(r.Context(), actor.UserID)
	if err != nil {
		respondServiceError(w, r, err, "unable to load event types")
		return
	}
	respondJSON(w, http.StatusOK, eventTypes)
}

func (h *Handler) CreateEventType(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req eventTypeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	owner, ok := eventTypeOwner(actor, req.Owner)
	if !ok {
		respondError(w, http.StatusForbidden, services.ErrForbidden.Error())
		return
	}
	created, err := h.catalog.CreateEventType(r.Context(), models.EventType{
		Name:           req.Name,
		Owner:          owner,
		Icon:           req.Icon,
		IconColor:      req.IconColor,
		Availability:   req.Availability,
		Weight:         req.Weight,
		ExpirationDate: req.ExpirationDate,
	})
	if err != nil {
		respondServiceError(w, r, err, "unable to create event type")
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateEventType(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req eventTypeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	owner, ok := eventTypeOwner(actor, req.Owner)
	if !ok {
		respondError(w, http.StatusForbidden, services.ErrForbidden.Error())
		return
	}
	et := models.EventType{
		Name:           chi.URLParam(r, "name"),
		Owner:          owner,
		Icon:           req.Icon,
		IconColor:      req.IconColor,
		Availability:   req.Availability,
		Weight:         req.Weight,
		ExpirationDate: req.ExpirationDate,
	}
	if err := h.catalog.UpdateEventType(r.Context(), et); err != nil {
		respondServiceError(w, r, err, "unable to update event type")
		return
	}
	respondJSON(w, http.StatusOK, et)
}

func (h *Handler) DeleteEventType(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	requested, ok := ownerQuery(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid owner")
		return
	}
	owner, ok := eventTypeOwner(actor, requested)
	if !ok {
		respondError(w, http.StatusForbidden, services.ErrForbidden.Error())
		return
	}
	if err := h.catalog.DeleteEventType(r.Context(), chi.URLParam(r, "name"), owner); err != nil {
		respondServiceError(w, r, err, "unable to delete event type")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
