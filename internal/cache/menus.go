// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/olegiv/ocms-menubot/internal/menu"
)

// RecordSource fetches the complete flat list of menu records.
type RecordSource interface {
	FetchRecords(ctx context.Context) ([]menu.RawRecord, error)
}

// RefreshObserver is notified after every refresh attempt.
type RefreshObserver interface {
	ObserveRefresh(took time.Duration, nodes int, err error)
}

// Epoch is one immutable, repaired snapshot of the menu.
type Epoch struct {
	Version      uint64
	Set          *menu.NodeSet
	Placeholders int
	LoadedAt     time.Time
}

// MenuStats describes the installed epoch and refresh history.
type MenuStats struct {
	Version      uint64     `json:"version"`
	Nodes        int        `json:"nodes"`
	Placeholders int        `json:"placeholders"`
	LoadedAt     *time.Time `json:"loaded_at,omitempty"`
	Reads        int64      `json:"reads"`
	Refreshes    int64      `json:"refreshes"`
	Failures     int64      `json:"failures"`
	LastError    string     `json:"last_error,omitempty"`
}

// MenuCache holds the current menu epoch. Readers load it with a single
// atomic read and never observe a partially built set. A refresh builds a
// complete new epoch and swaps it in; at most one refresh runs at a time.
type MenuCache struct {
	source   RecordSource
	observer RefreshObserver
	current  atomic.Pointer[Epoch]
	group    singleflight.Group

	reads     atomic.Int64
	refreshes atomic.Int64
	failures  atomic.Int64
	lastError atomic.Pointer[string]
}

// NewMenuCache creates an empty cache. The first epoch is loaded by
// Refresh or lazily by the first Current call.
func NewMenuCache(source RecordSource) *MenuCache {
	return &MenuCache{source: source}
}

// SetObserver registers o for refresh notifications. Call before use.
func (c *MenuCache) SetObserver(o RefreshObserver) {
	c.observer = o
}

// Current returns the installed epoch, loading the first one on demand.
// It never returns nil: when the very first load fails an empty epoch is
// installed.
func (c *MenuCache) Current(ctx context.Context) *Epoch {
	if e := c.current.Load(); e != nil {
		c.reads.Add(1)
		return e
	}

	if _, err := c.Refresh(ctx); err != nil {
		slog.Warn("initial menu load failed", "error", err)
	}
	c.reads.Add(1)
	if e := c.current.Load(); e != nil {
		return e
	}
	// ctx expired before the shared load finished.
	return &Epoch{Set: menu.EmptyNodeSet()}
}

// Loaded returns the installed epoch or nil if none has been installed.
func (c *MenuCache) Loaded() *Epoch {
	return c.current.Load()
}

// Refresh fetches, validates and repairs a new node set and installs it as
// the next epoch. Concurrent callers share one fetch. On failure the
// previous epoch stays in place.
func (c *MenuCache) Refresh(ctx context.Context) (*Epoch, error) {
	ch := c.group.DoChan("refresh", func() (any, error) {
		return c.refresh(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return c.current.Load(), ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return c.current.Load(), res.Err
		}
		return res.Val.(*Epoch), nil
	}
}

func (c *MenuCache) refresh(ctx context.Context) (*Epoch, error) {
	start := time.Now()
	c.refreshes.Add(1)

	set, placeholders, err := c.build(ctx)
	if err != nil {
		c.failures.Add(1)
		msg := err.Error()
		c.lastError.Store(&msg)

		empty := &Epoch{Set: menu.EmptyNodeSet(), LoadedAt: time.Now()}
		if c.current.CompareAndSwap(nil, empty) {
			slog.Warn("no menu epoch available, serving empty menu", "error", err)
		} else {
			slog.Warn("menu refresh failed, keeping previous epoch",
				"version", c.current.Load().Version, "error", err)
		}
		c.observe(time.Since(start), 0, err)
		return nil, err
	}

	var version uint64 = 1
	if prev := c.current.Load(); prev != nil {
		version = prev.Version + 1
	}
	epoch := &Epoch{
		Version:      version,
		Set:          set,
		Placeholders: placeholders,
		LoadedAt:     time.Now(),
	}
	c.current.Store(epoch)
	c.lastError.Store(nil)

	slog.Info("menu epoch installed",
		"version", version,
		"nodes", set.Len(),
		"placeholders", placeholders,
		"took", time.Since(start))
	c.observe(time.Since(start), set.Len(), nil)
	return epoch, nil
}

func (c *MenuCache) build(ctx context.Context) (*menu.NodeSet, int, error) {
	records, err := c.source.FetchRecords(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("fetching menu records: %w", err)
	}

	set, err := menu.Load(records)
	if err != nil {
		return nil, 0, err
	}

	if missing := set.MissingParents(); len(missing) > 0 {
		slog.Warn("menu records reference missing parents", "ids", missing)
	}
	repaired := menu.Repair(set)
	return repaired, repaired.Len() - set.Len(), nil
}

func (c *MenuCache) observe(took time.Duration, nodes int, err error) {
	if c.observer != nil {
		c.observer.ObserveRefresh(took, nodes, err)
	}
}

// Stats returns statistics for the installed epoch.
func (c *MenuCache) Stats() MenuStats {
	stats := MenuStats{
		Reads:     c.reads.Load(),
		Refreshes: c.refreshes.Load(),
		Failures:  c.failures.Load(),
	}
	if msg := c.lastError.Load(); msg != nil {
		stats.LastError = *msg
	}
	if e := c.current.Load(); e != nil {
		loadedAt := e.LoadedAt
		stats.Version = e.Version
		stats.Nodes = e.Set.Len()
		stats.Placeholders = e.Placeholders
		stats.LoadedAt = &loadedAt
	}
	return stats
}
