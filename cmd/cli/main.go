package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/fileflow/internal/buildinfo"
	"github.com/dmitrijs2005/fileflow/internal/client/cli"
	"github.com/dmitrijs2005/fileflow/internal/client/config"
	"github.com/dmitrijs2005/fileflow/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()

	logger, err := logging.New(logging.Options{Writer: os.Stderr, Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		log.Fatalf("%v", err)
	}

	if s, ok := logger.(interface{ Sync() error }); ok {
		defer func() { _ = s.Sync() }()
	}

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "fileflow stopped", "err", err)
	}
}
