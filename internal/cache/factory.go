// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"
)

// Backend identifies the storage behind a Cache.
type Backend string

// Cache backends.
const (
	CacheBackendMemory Backend = "memory"
	CacheBackendRedis  Backend = "redis"
)

// Config holds configuration for cache creation.
type Config struct {
	// RedisURL selects the Redis backend when set.
	RedisURL string

	// Prefix is the Redis key prefix.
	Prefix string

	// FallbackToMemory makes an unreachable Redis degrade to a memory cache
	// instead of failing startup.
	FallbackToMemory bool

	DefaultTTL      time.Duration
	MaxSize         int
	CleanupInterval time.Duration
}

// Result is a constructed cache plus what backs it.
type Result struct {
	Cache       Cache
	BackendType Backend
	IsFallback  bool
}

// NewCacheWithInfo creates the cache described by cfg.
func NewCacheWithInfo(cfg Config) (Result, error) {
	if cfg.RedisURL != "" {
		rc, err := NewRedisCacheFromURL(cfg.RedisURL, cfg.Prefix, cfg.DefaultTTL)
		if err == nil {
			slog.Info("using redis cache", "url", SanitizeRedisURL(cfg.RedisURL), "prefix", cfg.Prefix)
			return Result{Cache: rc, BackendType: CacheBackendRedis}, nil
		}
		if !cfg.FallbackToMemory {
			return Result{}, fmt.Errorf("connecting to redis %s: %w", SanitizeRedisURL(cfg.RedisURL), err)
		}
		slog.Warn("redis unavailable, falling back to memory cache",
			"url", SanitizeRedisURL(cfg.RedisURL), "error", err)
		return Result{Cache: newMemoryFromConfig(cfg), BackendType: CacheBackendMemory, IsFallback: true}, nil
	}

	return Result{Cache: newMemoryFromConfig(cfg), BackendType: CacheBackendMemory}, nil
}

func newMemoryFromConfig(cfg Config) *MemoryCache {
	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      cfg.DefaultTTL,
		MaxSize:         cfg.MaxSize,
		CleanupInterval: cfg.CleanupInterval,
	})
}

// SanitizeRedisURL masks the password in a Redis URL for logging.
func SanitizeRedisURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "[invalid URL]"
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
