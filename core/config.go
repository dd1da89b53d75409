package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/sockerless/forkgate/github"
	"github.com/sockerless/forkgate/heroku"
)

// Config holds the forkgate server configuration.
type Config struct {
	ListenAddr string          `toml:"listen_addr" yaml:"listen_addr"`
	StaticDir  string          `toml:"static_dir" yaml:"static_dir"`
	Log        LogConfig       `toml:"log" yaml:"log"`
	GitHub     GitHubConfig    `toml:"github" yaml:"github"`
	Platform   PlatformConfig  `toml:"platform" yaml:"platform"`
	Session    SessionConfig   `toml:"session" yaml:"session"`
	Reclaim    ReclaimConfig   `toml:"reclaim" yaml:"reclaim"`
	RateLimit  RateLimitConfig `toml:"rate_limit" yaml:"rate_limit"`
}

// LogConfig selects the zerolog level and output format.
type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"` // "console" or "json"
}

// GitHubConfig describes the hosting API and the upstream project.
type GitHubConfig struct {
	APIURL     string        `toml:"api_url" yaml:"api_url"`
	Token      string        `toml:"token" yaml:"token"`
	UserAgent  string        `toml:"user_agent" yaml:"user_agent"`
	Upstream   string        `toml:"upstream" yaml:"upstream"`
	RepoName   string        `toml:"repo_name" yaml:"repo_name"`
	MarkerPath string        `toml:"marker_path" yaml:"marker_path"`
	Timeout    time.Duration `toml:"timeout" yaml:"timeout"`
}

// PlatformConfig describes the platform API and how apps are created.
type PlatformConfig struct {
	APIURL              string        `toml:"api_url" yaml:"api_url"`
	APIKey              string        `toml:"api_key" yaml:"api_key"`
	Region              string        `toml:"region" yaml:"region"`
	AppPrefix           string        `toml:"app_prefix" yaml:"app_prefix"`
	AppDomain           string        `toml:"app_domain" yaml:"app_domain"`
	Branch              string        `toml:"branch" yaml:"branch"`
	CompensateOnFailure bool          `toml:"compensate_on_failure" yaml:"compensate_on_failure"`
	Timeout             time.Duration `toml:"timeout" yaml:"timeout"`
}

// SessionConfig sets the credential marker.
type SessionConfig struct {
	Marker string `toml:"marker" yaml:"marker"`
}

// ReclaimConfig controls the reclamation loop.
type ReclaimConfig struct {
	Enabled     bool          `toml:"enabled" yaml:"enabled"`
	Interval    time.Duration `toml:"interval" yaml:"interval"`
	MaxAge      time.Duration `toml:"max_age" yaml:"max_age"`
	Concurrency int           `toml:"concurrency" yaml:"concurrency"`
	RunOnStart  bool          `toml:"run_on_start" yaml:"run_on_start"`
}

// RateLimitConfig throttles POST /deploy. PerMinute 0 disables it.
type RateLimitConfig struct {
	PerMinute float64 `toml:"per_minute" yaml:"per_minute"`
	Burst     int     `toml:"burst" yaml:"burst"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() Config {
	return Config{
		ListenAddr: ":3000",
		StaticDir:  "public",
		Log:        LogConfig{Level: "info", Format: "console"},
		GitHub: GitHubConfig{
			APIURL:     github.DefaultURL,
			UserAgent:  "TKT-CYBER-XMD-V3-Deployer",
			Upstream:   "tkttech/TKT-CYBER-XMD-V3",
			RepoName:   "TKT-CYBER-XMD-V3",
			MarkerPath: "package.json",
			Timeout:    30 * time.Second,
		},
		Platform: PlatformConfig{
			APIURL:              heroku.DefaultURL,
			Region:              "eu",
			AppPrefix:           DefaultAppPrefix,
			AppDomain:           "herokuapp.com",
			Branch:              "main",
			CompensateOnFailure: true,
			Timeout:             30 * time.Second,
		},
		Session: SessionConfig{Marker: DefaultSessionMarker},
		Reclaim: ReclaimConfig{
			Enabled:     true,
			Interval:    6 * time.Hour,
			MaxAge:      24 * time.Hour,
			Concurrency: 8,
			RunOnStart:  true,
		},
		RateLimit: RateLimitConfig{PerMinute: 0, Burst: 5},
	}
}

// LoadConfig starts from DefaultConfig, applies the file at path (TOML or
// YAML by extension; skipped when path is empty), then the environment.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format %q (want .toml, .yaml or .yml)", filepath.Ext(path))
	}
	return nil
}

// applyEnv overlays environment variables. PORT and HEROKU_API_KEY keep the
// names hosting platforms and operators already set.
func (c *Config) applyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		c.ListenAddr = ":" + port
	}
	c.ListenAddr = envOrDefault("FORKGATE_LISTEN_ADDR", c.ListenAddr)
	c.StaticDir = envOrDefault("FORKGATE_STATIC_DIR", c.StaticDir)
	c.Log.Level = envOrDefault("FORKGATE_LOG_LEVEL", c.Log.Level)
	c.GitHub.APIURL = envOrDefault("FORKGATE_GITHUB_API_URL", c.GitHub.APIURL)
	c.GitHub.Token = envOrDefault("GITHUB_TOKEN", c.GitHub.Token)
	c.Platform.APIURL = envOrDefault("FORKGATE_HEROKU_API_URL", c.Platform.APIURL)
	c.Platform.APIKey = envOrDefault("HEROKU_API_KEY", c.Platform.APIKey)
}

// Validate checks required configuration.
func (c Config) Validate() error {
	if c.Platform.APIKey == "" {
		return fmt.Errorf("HEROKU_API_KEY is required")
	}
	if c.Platform.AppPrefix == "" {
		return fmt.Errorf("platform.app_prefix must not be empty")
	}
	if !strings.Contains(c.GitHub.Upstream, "/") {
		return fmt.Errorf("github.upstream must be owner/name, got %q", c.GitHub.Upstream)
	}
	if c.GitHub.RepoName == "" || c.GitHub.MarkerPath == "" {
		return fmt.Errorf("github.repo_name and github.marker_path are required")
	}
	if c.Session.Marker == "" {
		return fmt.Errorf("session.marker must not be empty")
	}
	if c.Reclaim.Enabled {
		if c.Reclaim.Interval <= 0 || c.Reclaim.MaxAge <= 0 {
			return fmt.Errorf("reclaim.interval and reclaim.max_age must be positive")
		}
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
