package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mroshb/impostor_bot/internal/api"
	"github.com/mroshb/impostor_bot/internal/app"
	"github.com/mroshb/impostor_bot/internal/config"
	"github.com/mroshb/impostor_bot/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.LogLevel, cfg.AppEnv)
	defer logger.Sync()

	logger.Info("Starting Impostor HTTP API...")

	if err := cfg.ValidateAPI(); err != nil {
		logger.Fatal("Invalid API configuration", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.Start(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to start game runtime", err)
	}
	defer rt.Close()

	router := api.CreateServer(cfg.CORSOrigins)
	api.NewHandler(rt.Engine, cfg.RevealTokenSecret).Register(router)
	api.NewAdminHandler(rt.Cleanup, cfg.AdminToken).Register(router)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("API listening", "port", cfg.AppPort, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	logger.Info("API stopped")
}
