package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port           string
	PriceSourceURL string
	StatePath      string
	Preference     string // "ask" or "bid"
	Freshness      time.Duration
	Debug          bool
}

func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8090"),
		PriceSourceURL: getEnv("PRICE_SOURCE_URL", "https://prices.csgotrader.app/latest/prices_v6.json"),
		StatePath:      getEnv("STATE_PATH", "data/state.json"),
		Preference:     getEnv("PRICE_PREFERENCE", "ask"),
		Freshness:      getEnvHours("FRESHNESS_HOURS", 8),
		Debug:          getEnv("DEBUG", "false") == "true",
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvHours(key string, defaultHours int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if h, err := strconv.Atoi(value); err == nil && h > 0 {
			return time.Duration(h) * time.Hour
		}
	}
	return time.Duration(defaultHours) * time.Hour
}
