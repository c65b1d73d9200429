package handlers

import (
	"errors"
	"net/http"

	"stickerchart/internal/auth"
	"stickerchart/internal/middleware"
	"stickerchart/internal/services"
	"stickerchart/internal/websocket"
)

// WSWallet upgrades to a websocket that receives the caller's wallet
// updates, starting with the current wallet. Browsers cannot set headers on
// the upgrade, so the token may come from the query string.
func (h *Handler) WSWallet(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.BearerToken(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing token")
		return
	}
	claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	var snapshot *websocket.WalletUpdate
	wallet, err := h.wallets.Wallet(r.Context(), claims.UserID)
	switch {
	case err == nil:
		snapshot = &websocket.WalletUpdate{Owner: wallet.Owner, Assets: wallet.Assets}
	case errors.Is(err, services.ErrWalletNotFound):
		// guests subscribe without a wallet
	default:
		respondServiceError(w, r, err, "failed to load wallet")
		return
	}
	websocket.ServeWallet(w, r, h.hub, claims.UserID, snapshot)
}
