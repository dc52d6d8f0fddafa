package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/mroshb/impostor_bot/internal/app"
	"github.com/mroshb/impostor_bot/internal/config"
	"github.com/mroshb/impostor_bot/pkg/logger"
	"github.com/mroshb/impostor_bot/telegram"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger.Init(cfg.LogLevel, cfg.AppEnv)
	defer logger.Sync()

	logger.Info("Starting Impostor Telegram bot...")

	if err := cfg.ValidateBot(); err != nil {
		logger.Fatal("Invalid bot configuration", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.Start(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to start game runtime", err)
	}
	defer rt.Close()

	api, err := telegram.Connect(ctx, cfg.BotToken, cfg.AppEnv == "development")
	if err != nil {
		logger.Fatal("Failed to connect to Telegram", err)
	}

	opts := telegram.Options{Workers: cfg.BotWorkers}
	if cfg.RevealLinksEnabled() {
		opts.WebBaseURL = cfg.WebBaseURL
		opts.RevealSecret = cfg.RevealTokenSecret
		opts.RevealTTL = cfg.RevealTokenTTL
	}

	// Private delivery of dealt secrets
	secrets, unsubscribe := rt.Bus.Subscribe(1024)
	defer unsubscribe()
	go telegram.NewDispatcher(api, rt.Engine, secrets, opts).Run(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)

	logger.Info("Bot started successfully", "env", cfg.AppEnv)
	telegram.NewBot(api, rt.Engine, opts).Run(ctx, updates)

	logger.Info("Shutting down gracefully...")
	api.StopReceivingUpdates()
	logger.Info("Bot stopped")
}
