package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/zjoart/go-invest-ledger/cmd/routes"
	"github.com/zjoart/go-invest-ledger/internal/investment"
	"github.com/zjoart/go-invest-ledger/internal/key"
	"github.com/zjoart/go-invest-ledger/internal/notification"
	"github.com/zjoart/go-invest-ledger/internal/platform"
	"github.com/zjoart/go-invest-ledger/internal/referral"
	"github.com/zjoart/go-invest-ledger/internal/user"
	"github.com/zjoart/go-invest-ledger/internal/wallet"
	"github.com/zjoart/go-invest-ledger/pkg/config"
	"github.com/zjoart/go-invest-ledger/pkg/database"
	"github.com/zjoart/go-invest-ledger/pkg/events"
	"github.com/zjoart/go-invest-ledger/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()
	logger.SetLevel(cfg.Env)

	database.Connect(cfg.DBUrl)
	err := database.Migrate(database.DB,
		&user.User{},
		&wallet.Wallet{},
		&wallet.Transaction{},
		&referral.Request{},
		&investment.Plan{},
		&investment.Investment{},
		&platform.PaymentAccount{},
		&notification.Notification{},
		&key.APIKey{},
	)
	if err != nil {
		logger.Fatal("Failed to migrate database", logger.WithError(err))
	}

	redisClient := events.NewRedisClient(cfg)
	defer redisClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// start background worker
	worker := notification.NewWorker(redisClient, notification.NewRepository(database.DB))
	workerDone := worker.Start(ctx)

	r := mux.NewRouter()
	handler := routes.RegisterRoutes(r, cfg, database.DB, redisClient)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("Server starting", logger.Fields{"port": cfg.Port, "env": cfg.Env})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Could not listen", logger.Fields{"port": cfg.Port, "error": err.Error()})
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", logger.WithError(err))
	}
	<-workerDone
	logger.Info("Server gracefully shut down")
}
