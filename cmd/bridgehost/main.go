package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"tablebridge/internal/config"
	"tablebridge/internal/engine"
	"tablebridge/internal/logging"
)

func main() {
	cfgPath := flag.String("config", "tablebridge.yml", "config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logging.L().Error("config", "err", err)
		os.Exit(1)
	}
	logging.Configure(logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
	logging.InitFromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e, err := engine.Bootstrap(ctx, cfg)
	if err != nil {
		logging.L().Error("bootstrap", "err", err)
		os.Exit(1)
	}

	if err := e.Run(ctx); err != nil {
		logging.L().Error("engine", "err", err)
		os.Exit(1)
	}
}
