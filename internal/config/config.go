package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultGeminiURL = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash-preview-05-20:generateContent"

type Config struct {
	Port          string
	GinMode       string
	ModelPath     string
	EncodersPath  string
	GeminiAPIKey  string
	GeminiURL     string
	GeminiTimeout time.Duration
	DatabaseURL   string
	EnableDB      bool
	LogLevel      string
	LogFormat     string
}

// Load reads the server configuration from the environment, after merging
// an optional .env file from the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	timeout, err := time.ParseDuration(getEnv("GEMINI_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("parse GEMINI_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Port:          getEnv("PORT", "5000"),
		GinMode:       getEnv("GIN_MODE", "release"),
		ModelPath:     getEnv("MODEL_PATH", "stroke_model.gob"),
		EncodersPath:  getEnv("ENCODERS_PATH", "label_encoders.gob"),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiURL:     getEnv("GEMINI_API_URL", defaultGeminiURL),
		GeminiTimeout: timeout,
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		EnableDB:      strings.EqualFold(getEnv("ENABLE_DB", "false"), "true"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "text"),
	}

	if cfg.EnableDB && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when ENABLE_DB=true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
