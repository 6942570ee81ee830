package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/theleanbow/meroshare-automation/internal/accounts"
	"github.com/theleanbow/meroshare-automation/internal/admin"
	"github.com/theleanbow/meroshare-automation/internal/config"
	"github.com/theleanbow/meroshare-automation/internal/ledger"
	"github.com/theleanbow/meroshare-automation/internal/logging"
	"github.com/theleanbow/meroshare-automation/internal/storage"
	"github.com/theleanbow/meroshare-automation/internal/vault"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger := logging.NewJSONLogger(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	v, err := vault.New(cfg.SecretSeed)
	if err != nil {
		log.Fatalf("%v", err)
	}

	var accountsRepo accounts.Repository
	var ledgerRepo ledger.Repository
	if cfg.DatabaseDSN != "" {
		db, err := storage.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			log.Fatalf("%v", err)
		}
		defer db.Close()
		if err := storage.RunMigrations(ctx, db); err != nil {
			log.Fatalf("%v", err)
		}
		accountsRepo = accounts.NewPostgresRepository(db)
		ledgerRepo = ledger.NewPostgresRepository(db)
	} else {
		accountsRepo = accounts.NewJSONFileRepository(cfg.AccountsPath)
		ledgerRepo = ledger.NewJSONFileRepository(cfg.HistoryPath)
	}

	handler := admin.NewHandler(accounts.NewService(accountsRepo, v), ledgerRepo, logger)
	router := admin.NewRouter(handler, cfg.AdminUser, cfg.AdminPasswordHash)

	srv := &http.Server{
		Addr:    cfg.AdminAddr,
		Handler: router,
	}

	go func() {
		logger.Info(ctx, "admin surface listening", "addr", cfg.AdminAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "shutdown error", "error", err)
	}
}
