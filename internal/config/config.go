// internal/config/config.go
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config carries the process configuration, read once at startup.
type Config struct {
	// HTTPAddr is the listen address for the HTTP and WebSocket server.
	HTTPAddr string
	// TurnTimerSec bounds how long a seat may hold its turn before the
	// server ends it; 0 disables the deadline.
	TurnTimerSec int
	// RedisAddr enables the action-history feed when non-empty.
	RedisAddr string
	// LogLevel is a logrus level name (debug, info, warn, error).
	LogLevel string
}

// Load reads .env if present, then the environment, applying defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Debug("no .env file loaded")
	}
	return Config{
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		TurnTimerSec: getenvInt("TURN_TIMER_SEC", 0),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		LogLevel:     getenv("LOG_LEVEL", "info"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logrus.WithField("key", key).WithError(err).Warn("invalid integer in environment, using default")
		return fallback
	}
	return n
}
