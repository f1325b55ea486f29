package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go_branch_chat/bootstrap"
	"go_branch_chat/config"
	"go_branch_chat/pkg/logging"
)

func main() {
	cfg := config.LoadConfig()
	logging.Init(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewApp(ctx, cfg)
	if err != nil {
		logging.Logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	server := app.NewServer()

	go func() {
		<-ctx.Done()
		logging.Logger.Info("shutting down")
		if err := server.Shutdown(); err != nil {
			logging.Logger.Error("server shutdown failed", "error", err)
		}
	}()

	logging.Logger.Info("server running", "port", cfg.HttpPort, "store", cfg.StoreType)
	if err := server.Listen(":" + cfg.HttpPort); err != nil {
		logging.Logger.Error("server stopped", "error", err)
	}
	if err := app.Shutdown(); err != nil {
		os.Exit(1)
	}
}
