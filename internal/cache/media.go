// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"time"

	"github.com/olegiv/ocms-menubot/internal/menu"
)

const mediaKeyPrefix = "media:"

type mediaEntry struct {
	URL string `json:"url"`
}

// MediaCache memoizes successful media lookups. Failures are never stored,
// so a transient CMS error is retried on the next click.
type MediaCache struct {
	lookup  menu.MediaLookup
	backend Cache
	entries *TypedCache[mediaEntry]
}

// NewMediaCache wraps lookup with a cache stored in backend.
func NewMediaCache(lookup menu.MediaLookup, backend Cache, ttl time.Duration) *MediaCache {
	return &MediaCache{
		lookup:  lookup,
		backend: backend,
		entries: NewTypedCache[mediaEntry](backend, mediaKeyPrefix, ttl),
	}
}

// LookupMedia implements menu.MediaLookup.
func (c *MediaCache) LookupMedia(ctx context.Context, ref menu.FileRef) (string, error) {
	entry, err := c.entries.Load(ctx, ref.String(), func(ctx context.Context) (mediaEntry, error) {
		u, err := c.lookup.LookupMedia(ctx, ref)
		return mediaEntry{URL: u}, err
	})
	if err != nil {
		return "", err
	}
	return entry.URL, nil
}

// Invalidate drops every memoized lookup.
func (c *MediaCache) Invalidate(ctx context.Context) error {
	return c.entries.Purge(ctx)
}

// Stats returns backend statistics when the backend tracks them.
func (c *MediaCache) Stats() Stats {
	if sp, ok := c.backend.(StatsProvider); ok {
		return sp.Stats()
	}
	return Stats{}
}

// ResetStats resets backend statistics.
func (c *MediaCache) ResetStats() {
	if sp, ok := c.backend.(StatsProvider); ok {
		sp.ResetStats()
	}
}

var _ menu.MediaLookup = (*MediaCache)(nil)
