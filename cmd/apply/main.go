package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

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

	results, err := a.Apply(ctx)
	if err != nil {
		logger.Error(ctx, "run aborted", "error", err)
		os.Exit(1)
	}

	if err := app.Summarize(ctx, logger, results); err != nil {
		os.Exit(1)
	}
}
