// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTimeoutMiddlewareNormalRequest(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("success"))
	})

	rr := httptest.NewRecorder()
	Timeout(5*time.Second)(handler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusCreated {
		t.Errorf("Status = %d, want %d", rr.Code, http.StatusCreated)
	}
	if body := rr.Body.String(); body != "success" {
		t.Errorf("Body = %q, want %q", body, "success")
	}
}

func TestTimeoutMiddlewareSlowRequest(t *testing.T) {
	release := make(chan struct{})
	finished := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(finished)
		<-r.Context().Done()
		<-release
		// Dropped: the timeout response was already sent.
		_, _ = w.Write([]byte("late"))
	})

	rr := httptest.NewRecorder()
	Timeout(20*time.Millisecond)(handler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	close(release)
	<-finished

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if body := rr.Body.String(); body != `{"success":false,"error":"request timeout"}`+"\n" {
		t.Errorf("Body = %q", body)
	}
}

func TestSecurityHeaders(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	tests := []struct {
		name        string
		isDev       bool
		path        string
		wantHSTS    bool
		wantNoStore bool
	}{
		{"production api", false, "/api/v1/menu", true, true},
		{"development api", true, "/api/v1/menu", false, true},
		{"metrics", false, "/metrics", true, false},
		{"health", false, "/health/ready", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			SecurityHeaders(DefaultSecurityHeadersConfig(tt.isDev))(next).
				ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))

			h := rr.Header()
			if h.Get("X-Content-Type-Options") != "nosniff" {
				t.Errorf("X-Content-Type-Options = %q", h.Get("X-Content-Type-Options"))
			}
			if h.Get("X-Frame-Options") != "DENY" {
				t.Errorf("X-Frame-Options = %q", h.Get("X-Frame-Options"))
			}
			if h.Get("Content-Security-Policy") != apiCSP {
				t.Errorf("Content-Security-Policy = %q", h.Get("Content-Security-Policy"))
			}
			if got := h.Get("Strict-Transport-Security") != ""; got != tt.wantHSTS {
				t.Errorf("HSTS set = %v, want %v", got, tt.wantHSTS)
			}
			if got := h.Get("Cache-Control") == "no-store"; got != tt.wantNoStore {
				t.Errorf("no-store = %v, want %v", got, tt.wantNoStore)
			}
		})
	}
}

func TestStripTrailingSlash(t *testing.T) {
	var gotPath string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
	})
	h := StripTrailingSlash(next)

	tests := []struct {
		name         string
		method       string
		target       string
		wantStatus   int
		wantLocation string
		wantPath     string
	}{
		{"root untouched", http.MethodGet, "/", http.StatusOK, "", "/"},
		{"no slash", http.MethodGet, "/health", http.StatusOK, "", "/health"},
		{"get redirects", http.MethodGet, "/api/v1/menu/", http.StatusMovedPermanently, "/api/v1/menu", ""},
		{"query kept", http.MethodGet, "/health/?verbose=true", http.StatusMovedPermanently, "/health?verbose=true", ""},
		{"post rewritten", http.MethodPost, "/cache/refresh/", http.StatusOK, "", "/cache/refresh"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotPath = ""
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.target, nil))

			if rr.Code != tt.wantStatus {
				t.Errorf("Status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if loc := rr.Header().Get("Location"); loc != tt.wantLocation {
				t.Errorf("Location = %q, want %q", loc, tt.wantLocation)
			}
			if gotPath != tt.wantPath {
				t.Errorf("path = %q, want %q", gotPath, tt.wantPath)
			}
		})
	}
}
