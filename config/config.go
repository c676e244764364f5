package config

import (
	"os"
	"strconv"
	"time"
)

// Settings holds everything the gateway reads from the environment.
type Settings struct {
	Port           string
	PlatformAPIURL string
	PlatformWSURL  string

	// Coarse poll used while the push channel is down.
	FallbackPollInterval time.Duration
}

// Load reads settings from the environment with local-run defaults.
func Load() Settings {
	return Settings{
		Port:                 envOr("PORT", "8080"),
		PlatformAPIURL:       envOr("PLATFORM_API_URL", "http://localhost:9000"),
		PlatformWSURL:        envOr("PLATFORM_WS_URL", "ws://localhost:9000/ws"),
		FallbackPollInterval: envDuration("FALLBACK_POLL_SECONDS", 30*time.Second),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}
