// Package config loads server settings from the environment and an optional
// config file.
//
// PRECEDENCE (highest first):
//
//	BLOG_* environment variables   e.g. BLOG_SERVER_PORT=9000
//	./config.yaml (optional)       e.g. server: { port: 9000 }
//	defaults set in Load
//
// Nested keys map to env names by upper-casing and replacing "." with "_":
// auth.jwtsecret → BLOG_AUTH_JWTSECRET.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port int
	}
	Database struct {
		Path string
	}
	Auth struct {
		JWTSecret  string
		SessionTTL time.Duration
		// Secure marks cookies HTTPS-only. Leave off for plain-HTTP local dev.
		Secure bool
	}
	GitHub struct {
		ClientID     string
		ClientSecret string
		CallbackURL  string
	}
	Log struct {
		Level string
	}
}

// Load reads configuration from BLOG_* environment variables and an optional
// config.yaml in the working directory.
func Load() (Config, error) {
	return load(".")
}

func load(configDir string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", 8080)
	v.SetDefault("database.path", "data/blog.db")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.sessionttl", "24h")
	v.SetDefault("auth.secure", false)
	v.SetDefault("github.clientid", "")
	v.SetDefault("github.clientsecret", "")
	v.SetDefault("github.callbackurl", "")
	v.SetDefault("log.level", "info")

	v.SetConfigName("config")
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: failed to unmarshal config: %w", err)
	}

	if cfg.GitHub.CallbackURL == "" {
		cfg.GitHub.CallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Server.Port)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("config: auth.jwtsecret is required (set BLOG_AUTH_JWTSECRET)")
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("config: auth.sessionttl must be positive, got %s", c.Auth.SessionTTL)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// GitHubEnabled reports whether both OAuth credentials are present.
func (c Config) GitHubEnabled() bool {
	return c.GitHub.ClientID != "" && c.GitHub.ClientSecret != ""
}

// SlogLevel maps log.level to a slog.Level, defaulting to Info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
