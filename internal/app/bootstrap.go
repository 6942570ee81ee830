package app

import (
	"context"
	"fmt"

	"github.com/theleanbow/meroshare-automation/internal/accounts"
	"github.com/theleanbow/meroshare-automation/internal/config"
	"github.com/theleanbow/meroshare-automation/internal/ledger"
	"github.com/theleanbow/meroshare-automation/internal/logging"
	"github.com/theleanbow/meroshare-automation/internal/meroshare"
	"github.com/theleanbow/meroshare-automation/internal/reconcile"
	"github.com/theleanbow/meroshare-automation/internal/storage"
	"github.com/theleanbow/meroshare-automation/internal/vault"
)

// Bootstrap assembles the driver from configuration. With a database DSN
// configured, accounts and history live in Postgres; otherwise in the JSON
// files. The returned closer releases the database connection when one was
// opened.
func Bootstrap(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, func(), error) {
	v, err := vault.New(cfg.SecretSeed)
	if err != nil {
		return nil, nil, err
	}

	var accountsRepo accounts.Repository
	var ledgerRepo ledger.Repository
	closer := func() {}

	if cfg.DatabaseDSN != "" {
		db, err := storage.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := storage.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		accountsRepo = accounts.NewPostgresRepository(db)
		ledgerRepo = ledger.NewPostgresRepository(db)
		closer = func() { _ = db.Close() }
		log.Info(ctx, "using postgres storage")
	} else {
		accountsRepo = accounts.NewJSONFileRepository(cfg.AccountsPath)
		ledgerRepo = ledger.NewJSONFileRepository(cfg.HistoryPath)
		log.Info(ctx, "using file storage",
			"accounts", cfg.AccountsPath, "history", cfg.HistoryPath)
	}

	client := meroshare.NewClient(cfg.BaseURL, cfg.FrontendURL, cfg.HTTPTimeout)
	svc := accounts.NewService(accountsRepo, v)
	reconciler := reconcile.New(ledgerRepo, client, log, cfg.RecordPacing)

	return New(cfg, log, svc, ledgerRepo, client, reconciler), closer, nil
}

// Summarize logs a batch's per-account outcomes and returns an error when
// any account failed.
func Summarize(ctx context.Context, log logging.Logger, results []AccountResult) error {
	var failed int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
		case r.Skipped:
			log.Info(ctx, "account skipped", "username", r.Username, "company", r.Company)
		}
	}

	log.Info(ctx, "run finished", "accounts", len(results), "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d accounts failed", failed, len(results))
	}
	return nil
}
