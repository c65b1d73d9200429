package handlers

import (
	"net/http"

	"stickerchart/internal/config"
	"stickerchart/internal/middleware"
	"stickerchart/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handler struct {
	cfg     config.Config
	users   UserService
	wallets WalletService
	rewards RewardService
	market  MarketService
	catalog CatalogService
	hub     *websocket.Hub
}

func New(cfg config.Config, users UserService, wallets WalletService, rewards RewardService, market MarketService, catalog CatalogService, hub *websocket.Hub) *Handler {
	return &Handler{
		cfg:     cfg,
		users:   users,
		wallets: wallets,
		rewards: rewards,
		market:  market,
		catalog: catalog,
		hub:     hub,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	authenticated := middleware.Auth(h.cfg.JWTSecret)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.With(authenticated).Get("/me", h.Me)
		r.With(authenticated).Put("/code", h.UpdateCode)
	})

	router.Group(func(r chi.Router) {
		r.Use(authenticated)
		r.Get("/wallet", h.GetWallet)
		r.Get("/ledger", h.GetLedger)

		r.Get("/events", h.ListEvents)
		r.Get("/events/pending", h.PendingEvents)
		r.Post("/events", h.RecordEvent)
		r.Post("/events/{id}/verify", h.VerifyEvent)
		r.Delete("/events/{id}", h.DeleteEvent)

		r.Get("/event-types", h.ListEventTypes)
		r.Post("/event-types", h.CreateEventType)
		r.Put("/event-types/{name}", h.UpdateEventType)
		r.Delete("/event-types/{name}", h.DeleteEventType)

		r.Get("/products", h.ListProducts)
		r.Post("/products", h.CreateProduct)
		r.Put("/products/{id}", h.UpdateProduct)
		r.Delete("/products/{id}", h.DeleteProduct)

		r.Get("/purchases", h.ListPurchases)
		r.Post("/purchases", h.CreatePurchase)
		r.Post("/purchases/{id}/cancel", h.CancelPurchase)
		r.Post("/purchases/{id}/fulfill", h.FulfillPurchase)
		r.Delete("/purchases/{id}", h.DeletePurchase)
	})

	router.Group(func(r chi.Router) {
		r.Use(authenticated)
		r.Use(middleware.RequireAdmin(h.users))
		r.Get("/users", h.ListUsers)
		r.Post("/users", h.CreateUser)
		r.Delete("/users/{id}", h.DeleteUser)
		r.Post("/wallets/{id}/adjust", h.AdjustWallet)
		r.Put("/wallets/{id}/credit", h.SetCredit)
	})

	router.Get("/ws/wallet", h.WSWallet)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
