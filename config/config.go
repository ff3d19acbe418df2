package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultMaxSeatsPerOrder = 6
	defaultRequestTimeout   = 12 * time.Second
)

type Config struct {
	APIBaseURL       string
	AccountID        string
	AccountToken     string
	MaxSeatsPerOrder int
	RequestTimeout   time.Duration
	LogFile          string
}

// Load reads configuration from the environment, with an optional .env
// file in the working directory.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		APIBaseURL:       os.Getenv("CINEBOOK_API_URL"),
		AccountID:        os.Getenv("CINEBOOK_ACCOUNT_ID"),
		AccountToken:     os.Getenv("CINEBOOK_TOKEN"),
		MaxSeatsPerOrder: envInt("CINEBOOK_MAX_SEATS", defaultMaxSeatsPerOrder),
		RequestTimeout:   envDuration("CINEBOOK_TIMEOUT", defaultRequestTimeout),
		LogFile:          os.Getenv("CINEBOOK_LOG"),
	}
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
