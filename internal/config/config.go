package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mroshb/impostor_bot/internal/game"
)

// Store drivers
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	// Telegram
	BotToken   string
	BotWorkers int

	// Store
	StoreDriver  string
	StoreTimeout time.Duration

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Game
	StartMode         string
	DealSweepInterval time.Duration
	WordsFile         string

	// Web
	AppPort     string
	CORSOrigins []string
	WebBaseURL  string

	// Reveal links
	RevealTokenSecret string
	RevealTokenTTL    time.Duration

	// Cleanup
	RoomTTL         time.Duration
	CleanupInterval time.Duration
	// Enables POST /api/admin/cleanup when set
	AdminToken string

	// Application
	AppEnv   string
	LogLevel string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		BotToken:   getEnv("BOT_TOKEN", ""),
		BotWorkers: getEnvInt("BOT_WORKERS", 10),

		StoreDriver:  getEnv("STORE_DRIVER", StoreDriverPostgres),
		StoreTimeout: time.Duration(getEnvInt("STORE_TIMEOUT_SECONDS", 10)) * time.Second,

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "impostor"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "impostor_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		StartMode:         getEnv("START_MODE", game.StartModeSync),
		DealSweepInterval: time.Duration(getEnvInt("DEAL_SWEEP_SECONDS", 30)) * time.Second,
		WordsFile:         getEnv("WORDS_FILE", "data/words.txt"),

		AppPort:     getEnv("APP_PORT", "8080"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		WebBaseURL:  strings.TrimRight(getEnv("WEB_BASE_URL", ""), "/"),

		RevealTokenSecret: getEnv("REVEAL_TOKEN_SECRET", ""),
		RevealTokenTTL:    time.Duration(getEnvInt("REVEAL_TOKEN_TTL_HOURS", 24)) * time.Hour,

		RoomTTL:         time.Duration(getEnvInt("ROOM_TTL_HOURS", 24)) * time.Hour,
		CleanupInterval: time.Duration(getEnvInt("CLEANUP_INTERVAL_MINUTES", 60)) * time.Minute,
		AdminToken:      getEnv("ADMIN_TOKEN", ""),

		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks settings shared by every binary.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DBPassword == "" {
			return fmt.Errorf("DB_PASSWORD is required for the postgres store")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q", StoreDriverPostgres, StoreDriverMemory)
	}

	if c.StartMode != game.StartModeSync && c.StartMode != game.StartModeDeferred {
		return fmt.Errorf("START_MODE must be %q or %q", game.StartModeSync, game.StartModeDeferred)
	}
	if c.DealSweepInterval <= 0 {
		return fmt.Errorf("DEAL_SWEEP_SECONDS must be positive")
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT_SECONDS must be positive")
	}
	if c.RevealTokenSecret != "" && len(c.RevealTokenSecret) < 32 {
		return fmt.Errorf("REVEAL_TOKEN_SECRET must be at least 32 characters")
	}
	if c.AdminToken != "" && len(c.AdminToken) < 16 {
		return fmt.Errorf("ADMIN_TOKEN must be at least 16 characters")
	}
	if c.RoomTTL <= 0 || c.CleanupInterval <= 0 {
		return fmt.Errorf("ROOM_TTL_HOURS and CLEANUP_INTERVAL_MINUTES must be positive")
	}
	return nil
}

// ValidateBot checks settings the Telegram bot needs.
func (c *Config) ValidateBot() error {
	if c.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}
	if c.BotWorkers <= 0 {
		return fmt.Errorf("BOT_WORKERS must be positive")
	}
	return nil
}

// ValidateAPI checks settings the HTTP API needs.
func (c *Config) ValidateAPI() error {
	if c.AppPort == "" {
		return fmt.Errorf("APP_PORT is required")
	}
	if len(c.CORSOrigins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}
	return nil
}

func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// RevealLinksEnabled reports whether signed web reveal links can be issued.
func (c *Config) RevealLinksEnabled() bool {
	return c.WebBaseURL != "" && c.RevealTokenSecret != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
