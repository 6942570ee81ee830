package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/theleanbow/meroshare-automation/internal/app"
	"github.com/theleanbow/meroshare-automation/internal/config"
	"github.com/theleanbow/meroshare-automation/internal/logging"
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

	a, closer, err := app.Bootstrap(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer closer()

	if cfg.ReconcileSchedule == "" {
		runOnce(ctx, logger, a)
		return
	}

	runScheduled(ctx, logger, a, cfg.ReconcileSchedule)
}

func runOnce(ctx context.Context, logger logging.Logger, a *app.App) {
	results, err := a.Reconcile(ctx)
	if err != nil {
		logger.Error(ctx, "run aborted", "error", err)
		os.Exit(1)
	}
	if err := app.Summarize(ctx, logger, results); err != nil {
		os.Exit(1)
	}
}

// runScheduled keeps reconciling on the configured cron expression until
// the process receives an interrupt.
func runScheduled(ctx context.Context, logger logging.Logger, a *app.App, schedule string) {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	_, err := c.AddFunc(schedule, func() {
		results, err := a.Reconcile(ctx)
		if err != nil {
			logger.Error(ctx, "scheduled run aborted", "error", err)
			return
		}
		_ = app.Summarize(ctx, logger, results)
	})
	if err != nil {
		log.Fatalf("invalid RECONCILE_CRON %q: %v", schedule, err)
	}

	logger.Info(ctx, "reconciliation scheduled", "schedule", schedule)
	c.Start()

	<-ctx.Done()
	logger.Info(ctx, "shutting down")
	<-c.Stop().Done()
}
