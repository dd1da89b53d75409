// Package simulator provides in-memory fakes of the GitHub REST API and the
// Heroku Platform API subsets that forkgate talks to.
//
// The fakes are plain http.Handlers, so tests mount them on httptest servers
// and the forkgate-sim binary serves both from one listener. Each fake keeps
// a call log and supports failure injection per operation.
package simulator

import (
	"os"
	"strconv"
)

// Config holds the simulator server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":4580").
	ListenAddr string

	// LogLevel is the zerolog log level (trace, debug, info, warn, error).
	LogLevel string

	// APIKey, when set, is the only bearer token the platform fake accepts.
	APIKey string

	// PageSize limits GET /apps pages; 0 returns everything in one page.
	PageSize int
}

// ConfigFromEnv loads configuration from environment variables.
//
//	SIM_LISTEN_ADDR  listen address (default ":4580")
//	SIM_LOG_LEVEL    log level (default "info")
//	SIM_API_KEY      required platform bearer token (default: any)
//	SIM_PAGE_SIZE    apps per GET /apps page (default 0, unpaged)
func ConfigFromEnv() Config {
	pageSize, _ := strconv.Atoi(os.Getenv("SIM_PAGE_SIZE"))
	return Config{
		ListenAddr: envOrDefault("SIM_LISTEN_ADDR", ":4580"),
		LogLevel:   envOrDefault("SIM_LOG_LEVEL", "info"),
		APIKey:     os.Getenv("SIM_API_KEY"),
		PageSize:   pageSize,
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
