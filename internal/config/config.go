package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config carries everything the server needs from the environment.
type Config struct {
	Port           string
	InferenceURL   string
	HistoryDB      string
	PredictTimeout time.Duration
	TickInterval   time.Duration
}

// Load reads a local .env file when present and falls back to OS
// environment variables, applying defaults for anything unset.
func Load(logger zerolog.Logger) Config {
	if err := godotenv.Load(".env"); err != nil {
		logger.Debug().Msg("no .env file found, using OS environment")
	}
	return Config{
		Port:           getEnv("PORT", "4000"),
		InferenceURL:   getEnv("INFERENCE_URL", "http://localhost:8000"),
		HistoryDB:      getEnv("HISTORY_DB", "data/history.db"),
		PredictTimeout: getDurationMS(logger, "PREDICT_TIMEOUT_MS", 800*time.Millisecond),
		TickInterval:   getDurationMS(logger, "TICK_MS", time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDurationMS(logger zerolog.Logger, key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		logger.Warn().Str("key", key).Str("value", v).Msg("invalid duration, using default")
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
