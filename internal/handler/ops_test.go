// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-menubot/internal/menu"
)

func TestHealth_ReadyAfterFirstRead(t *testing.T) {
	deps := newTestDeps(t)

	w := deps.serve(http.MethodGet, RouteHealthReady)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = deps.serve(http.MethodGet, RouteMenu)
	require.Equal(t, http.StatusOK, w.Code)

	w = deps.serve(http.MethodGet, RouteHealthReady)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ready"`)
}

func TestHealth_Liveness(t *testing.T) {
	deps := newTestDeps(t)

	w := deps.serve(http.MethodGet, RouteHealthLive)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"alive"`)
}

func TestHealth_Status(t *testing.T) {
	deps := newTestDeps(t)

	w := deps.serve(http.MethodGet, RouteHealth)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	deps.serve(http.MethodPost, RouteCacheRefresh)

	w = deps.serve(http.MethodGet, RouteHealth+"?verbose=true")
	require.Equal(t, http.StatusOK, w.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "v1.2.3", status.Version)
	assert.Equal(t, "healthy", status.Checks["menu"].Status)
	assert.Equal(t, "version 1, 4 nodes", status.Checks["menu"].Message)
	require.NotNil(t, status.System)
	assert.NotEmpty(t, status.System.GoVersion)
}

func TestHealth_DegradedAfterFailedRefresh(t *testing.T) {
	deps := newTestDeps(t)
	deps.serve(http.MethodPost, RouteCacheRefresh)
	deps.source.fail(menu.ErrSourceUnavailable)

	w := deps.serve(http.MethodPost, RouteCacheRefresh)
	assertJSONResponse(t, w, http.StatusBadGateway, false)

	w = deps.serve(http.MethodGet, RouteHealth)
	require.Equal(t, http.StatusOK, w.Code)
	var status HealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "degraded", status.Status)
	assert.Contains(t, status.Checks["menu"].Message, "last refresh failed")
}

func TestCache_RefreshAndStats(t *testing.T) {
	deps := newTestDeps(t)

	w := deps.serve(http.MethodPost, RouteCacheRefresh)
	resp := assertJSONResponse(t, w, http.StatusOK, true)
	assert.Equal(t, float64(1), resp["version"])
	assert.Equal(t, float64(4), resp["nodes"])

	w = deps.serve(http.MethodGet, RouteCacheStats)
	resp = assertJSONResponse(t, w, http.StatusOK, true)
	data := resp["data"].(map[string]any)
	assert.Equal(t, "memory", data["backend"])
	assert.Equal(t, float64(1), data["menu"].(map[string]any)["version"])

	w = deps.serve(http.MethodPost, RouteCacheReset)
	assertJSONResponse(t, w, http.StatusOK, true)

	w = deps.serve(http.MethodGet, RouteCacheRefresh)
	assertJSONResponse(t, w, http.StatusMethodNotAllowed, false)
}

func TestAPI_Menu(t *testing.T) {
	deps := newTestDeps(t)

	w := deps.serve(http.MethodGet, RouteMenu)
	resp := assertJSONResponse(t, w, http.StatusOK, true)
	data := resp["data"].(map[string]any)
	assert.Equal(t, float64(0), data["parent_id"])
	assert.Len(t, data["rows"], 3)

	w = deps.serve(http.MethodGet, "/api/v1/menu/2")
	resp = assertJSONResponse(t, w, http.StatusOK, true)
	data = resp["data"].(map[string]any)
	assert.Equal(t, float64(2), data["parent_id"])
	rows := data["rows"].([]any)
	require.Len(t, rows, 2)
	first := rows[0].([]any)[0].(map[string]any)
	assert.Equal(t, "link", first["action"])
	assert.Equal(t, "https://x.example.com", first["url"])

	w = deps.serve(http.MethodGet, "/api/v1/menu/999")
	assertJSONResponse(t, w, http.StatusNotFound, false)

	w = deps.serve(http.MethodGet, "/api/v1/menu/abc")
	assertJSONResponse(t, w, http.StatusBadRequest, false)
}

func TestAPI_Download(t *testing.T) {
	deps := newTestDeps(t)

	w := deps.serve(http.MethodGet, "/api/v1/download/3")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=deck.pdf`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "8", w.Header().Get("Content-Length"))
	assert.Equal(t, "%PDF-1.4", w.Body.String())

	w = deps.serve(http.MethodGet, "/api/v1/download/4")
	assertJSONResponse(t, w, http.StatusNotFound, false)

	w = deps.serve(http.MethodGet, "/api/v1/download/2")
	assertJSONResponse(t, w, http.StatusBadRequest, false)

	w = deps.serve(http.MethodGet, "/api/v1/download/0")
	assertJSONResponse(t, w, http.StatusBadRequest, false)
}

func TestRouter_MetricsAndSecurityHeaders(t *testing.T) {
	deps := newTestDeps(t)

	w := deps.serve(http.MethodGet, RouteMenu)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	w = deps.serve(http.MethodGet, RouteMetrics)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "menubot_test_menu_refreshes_total"), "refresh metric missing")
	assert.Contains(t, body, `route="/api/v1/menu"`)

	w = deps.serve(http.MethodGet, "/nope")
	assertJSONResponse(t, w, http.StatusNotFound, false)
}
