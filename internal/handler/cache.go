// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/olegiv/ocms-menubot/internal/cache"
)

// CacheController is the cache surface of the menu service.
type CacheController interface {
	Stats() cache.Report
	Refresh(ctx context.Context) (*cache.Epoch, error)
	ResetStats()
}

// CacheHandler handles cache management routes.
type CacheHandler struct {
	caches CacheController
}

// NewCacheHandler creates a new CacheHandler.
func NewCacheHandler(caches CacheController) *CacheHandler {
	return &CacheHandler{caches: caches}
}

// Stats handles GET /cache/stats.
func (h *CacheHandler) Stats(w http.ResponseWriter, _ *http.Request) {
	writeJSONData(w, h.caches.Stats())
}

// Refresh handles POST /cache/refresh. A failed refresh keeps the current
// menu and reports the error.
func (h *CacheHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	epoch, err := h.caches.Refresh(r.Context())
	if err != nil {
		slog.WarnContext(r.Context(), "manual menu refresh failed", "error", err)
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	slog.InfoContext(r.Context(), "menu refreshed via ops endpoint", "version", epoch.Version)
	writeJSONSuccess(w, map[string]any{
		"version":      epoch.Version,
		"nodes":        epoch.Set.Len(),
		"placeholders": epoch.Placeholders,
	})
}

// ResetStats handles POST /cache/stats/reset.
func (h *CacheHandler) ResetStats(w http.ResponseWriter, _ *http.Request) {
	h.caches.ResetStats()
	writeJSONSuccess(w, nil)
}
