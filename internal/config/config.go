// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the bot configuration from MENUBOT_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/robfig/cron/v3"
)

// Menu source kinds.
const (
	SourceWordPress = "wordpress"
	SourceStatic    = "static"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	TelegramToken  string        `env:"MENUBOT_TELEGRAM_TOKEN,required"`
	TelegramAPIURL string        `env:"MENUBOT_TELEGRAM_API_URL" envDefault:"https://api.telegram.org"`
	PollTimeout    time.Duration `env:"MENUBOT_POLL_TIMEOUT" envDefault:"30s"`
	Workers        int           `env:"MENUBOT_WORKERS" envDefault:"8"`
	SendRate       float64       `env:"MENUBOT_SEND_RATE" envDefault:"25"` // Bot API calls per second

	MenuSource     string `env:"MENUBOT_MENU_SOURCE" envDefault:"wordpress"`
	MenuEndpoint   string `env:"MENUBOT_MENU_ENDPOINT"`
	MediaEndpoint  string `env:"MENUBOT_MEDIA_ENDPOINT"`
	MenuPerPage    int    `env:"MENUBOT_MENU_PER_PAGE" envDefault:"100"` // 0 disables pagination
	StaticMenuPath string `env:"MENUBOT_STATIC_MENU_PATH"`

	FetchTimeout          time.Duration `env:"MENUBOT_FETCH_TIMEOUT" envDefault:"10s"`
	DownloadTimeout       time.Duration `env:"MENUBOT_DOWNLOAD_TIMEOUT" envDefault:"60s"`
	MaxDownloadBytes      int64         `env:"MENUBOT_MAX_DOWNLOAD_BYTES" envDefault:"52428800"`
	AllowPrivateDownloads bool          `env:"MENUBOT_ALLOW_PRIVATE_DOWNLOADS" envDefault:"false"`

	RefreshSchedule string `env:"MENUBOT_REFRESH_SCHEDULE" envDefault:"@every 15m"` // "", off or none disables

	// Cache configuration
	RedisURL      string        `env:"MENUBOT_REDIS_URL"` // optional, memory cache otherwise
	CachePrefix   string        `env:"MENUBOT_CACHE_PREFIX" envDefault:"menubot:"`
	MediaCacheTTL time.Duration `env:"MENUBOT_MEDIA_CACHE_TTL" envDefault:"1h"`

	ServerHost string `env:"MENUBOT_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"MENUBOT_SERVER_PORT" envDefault:"8081"`
	Env        string `env:"MENUBOT_ENV" envDefault:"development"`
	LogLevel   string `env:"MENUBOT_LOG_LEVEL" envDefault:"info"`

	// Texts. An empty welcome text keeps the built-in one; "\n" sequences
	// are turned into line breaks.
	WelcomeText string `env:"MENUBOT_WELCOME_TEXT"`
	EmptyText   string `env:"MENUBOT_EMPTY_TEXT" envDefault:"📚 Content is coming soon!"`
	BackLabel   string `env:"MENUBOT_BACK_LABEL" envDefault:"⬅ Back to Menu"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// RefreshEnabled reports whether periodic refresh is scheduled.
func (c Config) RefreshEnabled() bool {
	switch strings.ToLower(strings.TrimSpace(c.RefreshSchedule)) {
	case "", "off", "none":
		return false
	}
	return true
}

// RedactedToken returns the bot id part of the token, safe to log.
func (c Config) RedactedToken() string {
	id, _, ok := strings.Cut(c.TelegramToken, ":")
	if !ok {
		return "***"
	}
	return id + ":***"
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// env applies envDefault to empty values, so an explicitly empty
	// schedule is restored here.
	if v, ok := os.LookupEnv("MENUBOT_REFRESH_SCHEDULE"); ok && strings.TrimSpace(v) == "" {
		cfg.RefreshSchedule = ""
	}

	cfg.WelcomeText = strings.ReplaceAll(cfg.WelcomeText, `\n`, "\n")
	cfg.EmptyText = strings.ReplaceAll(cfg.EmptyText, `\n`, "\n")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error

	if !validToken(c.TelegramToken) {
		errs = append(errs, errors.New("MENUBOT_TELEGRAM_TOKEN must look like <bot id>:<secret>"))
	}
	if !isAbsoluteHTTP(c.TelegramAPIURL) {
		errs = append(errs, fmt.Errorf("MENUBOT_TELEGRAM_API_URL %q must be an absolute http(s) URL", c.TelegramAPIURL))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("MENUBOT_WORKERS must be at least 1, got %d", c.Workers))
	}
	if c.SendRate <= 0 {
		errs = append(errs, fmt.Errorf("MENUBOT_SEND_RATE must be positive, got %v", c.SendRate))
	}
	if c.PollTimeout < 0 {
		errs = append(errs, errors.New("MENUBOT_POLL_TIMEOUT must not be negative"))
	}
	if c.FetchTimeout <= 0 || c.DownloadTimeout <= 0 {
		errs = append(errs, errors.New("MENUBOT_FETCH_TIMEOUT and MENUBOT_DOWNLOAD_TIMEOUT must be positive"))
	}
	if c.MaxDownloadBytes <= 0 {
		errs = append(errs, errors.New("MENUBOT_MAX_DOWNLOAD_BYTES must be positive"))
	}
	if c.MenuPerPage < 0 {
		errs = append(errs, errors.New("MENUBOT_MENU_PER_PAGE must not be negative"))
	}

	switch c.MenuSource {
	case SourceWordPress:
		if !isAbsoluteHTTP(c.MenuEndpoint) {
			errs = append(errs, errors.New("MENUBOT_MENU_ENDPOINT must be an absolute http(s) URL for the wordpress source"))
		}
		if !isAbsoluteHTTP(c.MediaEndpoint) {
			errs = append(errs, errors.New("MENUBOT_MEDIA_ENDPOINT must be an absolute http(s) URL for the wordpress source"))
		}
	case SourceStatic:
	default:
		errs = append(errs, fmt.Errorf("MENUBOT_MENU_SOURCE must be %q or %q, got %q", SourceWordPress, SourceStatic, c.MenuSource))
	}

	if c.RefreshEnabled() {
		if _, err := cron.ParseStandard(c.RefreshSchedule); err != nil {
			errs = append(errs, fmt.Errorf("MENUBOT_REFRESH_SCHEDULE: %w", err))
		}
	}
	if c.ServerPort < 0 || c.ServerPort > 65535 {
		errs = append(errs, fmt.Errorf("MENUBOT_SERVER_PORT out of range: %d", c.ServerPort))
	}

	return errors.Join(errs...)
}

func validToken(token string) bool {
	id, secret, ok := strings.Cut(token, ":")
	if !ok || secret == "" {
		return false
	}
	_, err := strconv.ParseInt(id, 10, 64)
	return err == nil
}

func isAbsoluteHTTP(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
