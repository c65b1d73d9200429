package handlers

import (
	"context"
	"net/http"

	"stickerchart/internal/models"
	"stickerchart/internal/services"
)

type purchaseRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
	UnitPrice int64 `json:"unit_price"`
}

// ListPurchases returns the caller's orders, or with ?as=seller the orders
// placed on the caller's products.
func (h *Handler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var (
		purchases []models.Purchase
		err       error
	)
	switch r.URL.Query().Get("as") {
	case "", "buyer":
		purchases, err = h.market.PurchasesByOwner(r.Context(), actor.UserID)
	case "seller":
		purchases, err = h.market.PurchasesBySeller(r.Context(), actor.UserID)
	default:
		respondError(w, http.StatusBadRequest, "as must be buyer or seller")
		return
	}
	if err != nil {
		respondServiceError(w, r, err, "unable to load purchases")
		return
	}
	respondJSON(w, http.StatusOK, purchases)
}

func (h *Handler) CreatePurchase(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req purchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "product_id is required")
		return
	}
	result, err := h.market.Purchase(r.Context(), services.PurchaseRequest{
		BuyerID:   actor.UserID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
	})
	if err != nil {
		respondServiceError(w, r, err, "purchase failed")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"purchase":         result.Purchase,
		"product_quantity": result.ProductQuantity,
		"transfer_id":      result.TransferID,
	})
}

func (h *Handler) CancelPurchase(w http.ResponseWriter, r *http.Request) {
	h.transitionPurchase(w, r, h.market.Cancel, "unable to cancel purchase")
}

func (h *Handler) FulfillPurchase(w http.ResponseWriter, r *http.Request) {
	h.transitionPurchase(w, r, h.market.Fulfill, "unable to fulfill purchase")
}

func (h *Handler) transitionPurchase(w http.ResponseWriter, r *http.Request, transition func(ctx context.Context, orderNumber int64, actor services.Actor) (models.Purchase, error), fallback string) {
	actor, ok := actorFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	orderNumber, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid order number")
		return
	}
	purchase, err := transition(r.Context(), orderNumber, actor)
	if err != nil {
		respondServiceError(w, r, err, fallback)
		return
	}
	respondJSON(w, http.StatusOK, purchase)
}

func (h *Handler) DeletePurchase(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	orderNumber, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid order number")
		return
	}
	if err := h.market.Delete(r.Context(), orderNumber, actor); err != nil {
		respondServiceError(w, r, err, "unable to delete purchase")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
