package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stickerchart/internal/config"
	"stickerchart/internal/db"
	"stickerchart/internal/handlers"
	"stickerchart/internal/images"
	"stickerchart/internal/services"
	"stickerchart/internal/store"
	"stickerchart/internal/websocket"

	log "github.com/sirupsen/logrus"
)

func main() {
	setupLogging()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	manager := db.NewManager(db.ManagerConfig{Path: cfg.DatabasePath, BusyTimeout: cfg.DBBusyTimeout})
	if err := manager.Initialize(context.Background()); err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer manager.Close()
	database, err := manager.DB()
	if err != nil {
		log.WithError(err).Fatal("database unavailable")
	}

	users := store.NewUserStore(database)
	wallets := store.NewWalletStore(database)
	ledger := store.NewLedgerStore(database)
	eventTypes := store.NewEventTypeStore(database)
	events := store.NewEventStore(database)
	products := store.NewProductStore(database)
	productImages := store.NewProductImageStore(database)
	purchases := store.NewPurchaseStore(database)
	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()
	remover := images.DirRemover{Root: cfg.ImageDir}

	userService := services.NewUserService(txRunner, users, wallets, ledger, purchases)
	walletService := services.NewWalletService(txRunner, wallets, ledger, hub)
	rewardService := services.NewRewardService(txRunner, eventTypes, events, wallets, ledger, hub)
	marketService := services.NewMarketService(txRunner, products, purchases, productImages, wallets, ledger, hub, remover)
	catalogService := services.NewCatalogService(txRunner, products, purchases, productImages, eventTypes, remover)

	handler := handlers.New(cfg, userService, walletService, rewardService, marketService, catalogService, hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("sticker chart API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	sig := <-shutdown
	log.WithField("signal", sig.String()).Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("shutdown error")
	}
}

func setupLogging() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel)
}
