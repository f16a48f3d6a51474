// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/olegiv/ocms-menubot/internal/metrics"
	"github.com/olegiv/ocms-menubot/internal/middleware"
	"github.com/olegiv/ocms-menubot/internal/service"
	"github.com/olegiv/ocms-menubot/internal/version"
)

// Ops routes.
const (
	RouteHealth       = "/health"
	RouteHealthLive   = "/health/live"
	RouteHealthReady  = "/health/ready"
	RouteMetrics      = "/metrics"
	RouteCacheStats   = "/cache/stats"
	RouteCacheReset   = "/cache/stats/reset"
	RouteCacheRefresh = "/cache/refresh"
	RouteMenu         = "/api/v1/menu"
	RouteMenuNode     = "/api/v1/menu/{id}"
	RouteDownload     = "/api/v1/download/{id}"
)

// RouterConfig holds what the ops router serves.
type RouterConfig struct {
	Menus          *service.MenuService
	Metrics        *metrics.Collector
	Version        version.Info
	IsDevelopment  bool
	RequestTimeout time.Duration
}

// NewRouter builds the ops HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	if cfg.IsDevelopment {
		r.Use(chimw.Logger)
	}
	r.Use(chimw.Recoverer)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(middleware.StripTrailingSlash)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment)))

	health := NewHealthHandler(cfg.Menus, cfg.Version)
	caches := NewCacheHandler(cfg.Menus)
	api := NewAPIHandler(cfg.Menus)

	r.Get(RouteHealth, health.Health)
	r.Get(RouteHealthLive, health.Liveness)
	r.Get(RouteHealthReady, health.Readiness)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, RouteMetrics, cfg.Metrics.Handler())
	}

	// Downloads are bounded by the download timeout instead.
	r.Get(RouteDownload, api.Download)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
		r.Get(RouteCacheStats, caches.Stats)
		r.Post(RouteCacheReset, caches.ResetStats)
		r.Post(RouteCacheRefresh, caches.Refresh)
		r.Get(RouteMenu, api.Root)
		r.Get(RouteMenuNode, api.Node)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}
