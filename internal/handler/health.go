// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/olegiv/ocms-menubot/internal/cache"
	"github.com/olegiv/ocms-menubot/internal/version"
)

// StatusReporter exposes what health checks look at.
type StatusReporter interface {
	Ready() bool
	Stats() cache.Report
	PingCache(ctx context.Context) error
}

const cachePingTimeout = 2 * time.Second

// HealthHandler handles health check requests.
type HealthHandler struct {
	status    StatusReporter
	version   version.Info
	startTime time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(status StatusReporter, info version.Info) *HealthHandler {
	return &HealthHandler{
		status:    status,
		version:   info,
		startTime: time.Now(),
	}
}

// HealthStatus represents the overall health status.
type HealthStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
	System    *SystemInfo      `json:"system,omitempty"`
}

// Check represents a single health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// SystemInfo contains system-level information.
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutines"`
	NumCPU       int    `json:"num_cpus"`
	MemAlloc     string `json:"mem_alloc"`
	MemSys       string `json:"mem_sys"`
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	report := h.status.Stats()
	menuCheck := h.checkMenu(report)
	pingCtx, cancel := context.WithTimeout(r.Context(), cachePingTimeout)
	cacheCheck := checkCache(report, h.status.PingCache(pingCtx))
	cancel()

	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version.String(),
		Checks: map[string]Check{
			"menu":  menuCheck,
			"cache": cacheCheck,
		},
	}
	if menuCheck.Status != "healthy" || cacheCheck.Status != "healthy" {
		status.Status = "degraded"
	}
	if r.URL.Query().Get("verbose") == "true" {
		status.System = systemInfo()
	}

	code := http.StatusOK
	if menuCheck.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// Liveness handles GET /health/live.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// Readiness handles GET /health/ready. The bot is ready once a menu epoch
// is installed, even an empty one.
func (h *HealthHandler) Readiness(w http.ResponseWriter, _ *http.Request) {
	if h.status.Ready() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
}

func (h *HealthHandler) checkMenu(report cache.Report) Check {
	if !h.status.Ready() {
		return Check{Status: "unhealthy", Message: "menu not loaded yet"}
	}
	m := report.Menu
	if m.Version == 0 {
		return Check{Status: "degraded", Message: "serving empty menu: " + m.LastError}
	}
	msg := fmt.Sprintf("version %d, %d nodes", m.Version, m.Nodes)
	if m.LastError != "" {
		return Check{Status: "degraded", Message: msg + ", last refresh failed: " + m.LastError}
	}
	return Check{Status: "healthy", Message: msg}
}

func checkCache(report cache.Report, pingErr error) Check {
	if pingErr != nil {
		return Check{Status: "degraded", Message: "cache unreachable: " + pingErr.Error()}
	}
	if report.IsFallback {
		return Check{Status: "degraded", Message: "redis unavailable, using memory"}
	}
	return Check{Status: "healthy", Message: string(report.Backend)}
}

func systemInfo() *SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return &SystemInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     formatBytes(m.Alloc),
		MemSys:       formatBytes(m.Sys),
	}
}

// formatBytes converts bytes to a human-readable string.
func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
