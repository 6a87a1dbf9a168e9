// Package config loads server configuration from the environment and
// optional genesis profiles from YAML.
package config

import (
	"os"
	"strconv"
)

// Config holds server configuration.
type Config struct {
	Addr           string
	LogLevel       string
	JournalPath    string
	RateRPS        int
	RateBurst      int
	GenesisProfile string
}

// Load loads configuration from environment variables.
func Load() *Config {
	addr := os.Getenv("SETTLED_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	journalPath, ok := os.LookupEnv("JOURNAL_PATH")
	if !ok {
		journalPath = "settled.db"
	}

	return &Config{
		Addr:           addr,
		LogLevel:       logLevel,
		JournalPath:    journalPath,
		RateRPS:        intEnv("RATE_RPS", 50),
		RateBurst:      intEnv("RATE_BURST", 100),
		GenesisProfile: os.Getenv("GENESIS_PROFILE"),
	}
}

func intEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
