// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"log/slog"
)

// Report is the combined view served by the cache stats endpoint.
type Report struct {
	Backend    Backend   `json:"backend"`
	IsFallback bool      `json:"is_fallback"`
	Menu       MenuStats `json:"menu"`
	Media      Stats     `json:"media"`
}

// Manager ties the menu epoch to the media cache.
type Manager struct {
	Menus *MenuCache
	Media *MediaCache

	backend    Cache
	backendTyp Backend
	fallback   bool
}

// NewManager creates a manager over menus and a media cache stored in the
// backend described by backend.
func NewManager(menus *MenuCache, media *MediaCache, backend Result) *Manager {
	return &Manager{
		Menus:      menus,
		Media:      media,
		backend:    backend.Cache,
		backendTyp: backend.BackendType,
		fallback:   backend.IsFallback,
	}
}

// Refresh installs a new menu epoch. A successful refresh also drops
// memoized media lookups, since attachments may have changed with it.
func (m *Manager) Refresh(ctx context.Context) (*Epoch, error) {
	epoch, err := m.Menus.Refresh(ctx)
	if err != nil {
		return epoch, err
	}
	if err := m.Media.Invalidate(ctx); err != nil {
		slog.Warn("failed to invalidate media cache", "error", err)
	}
	return epoch, nil
}

// AllStats returns statistics for all caches.
func (m *Manager) AllStats() Report {
	return Report{
		Backend:    m.backendTyp,
		IsFallback: m.fallback,
		Menu:       m.Menus.Stats(),
		Media:      m.Media.Stats(),
	}
}

// ResetStats resets media hit counters.
func (m *Manager) ResetStats() {
	m.Media.ResetStats()
	slog.Info("cache stats reset")
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks that the media backend is reachable. Backends without a
// remote connection always succeed.
func (m *Manager) Ping(ctx context.Context) error {
	if p, ok := m.backend.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases the media backend.
func (m *Manager) Close() error {
	if m.backend == nil {
		return nil
	}
	return m.backend.Close()
}
