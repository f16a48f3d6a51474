// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type prefixDeleter interface {
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// TypedCache stores JSON-encoded values of type T under a key namespace
// of a shared byte backend.
type TypedCache[T any] struct {
	backend   Cache
	namespace string
	ttl       time.Duration
}

// NewTypedCache creates a typed view of backend. Keys are stored as
// namespace+key; ttl 0 uses the backend default.
func NewTypedCache[T any](backend Cache, namespace string, ttl time.Duration) *TypedCache[T] {
	return &TypedCache[T]{backend: backend, namespace: namespace, ttl: ttl}
}

// Get returns the value stored under key. Missing, expired and
// undecodable entries all report false.
func (c *TypedCache[T]) Get(ctx context.Context, key string) (T, bool) {
	var value T
	data, err := c.backend.Get(ctx, c.namespace+key)
	if err != nil {
		return value, false
	}
	if err := json.Unmarshal(data, &value); err != nil {
		return value, false
	}
	return value, true
}

// Put stores value under key.
func (c *TypedCache[T]) Put(ctx context.Context, key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s%s: %w", c.namespace, key, err)
	}
	return c.backend.Set(ctx, c.namespace+key, data, c.ttl)
}

// Load returns the stored value or computes it with fn. Only successful
// results are stored; a failed store still returns the computed value.
func (c *TypedCache[T]) Load(ctx context.Context, key string, fn func(context.Context) (T, error)) (T, error) {
	if value, ok := c.Get(ctx, key); ok {
		return value, nil
	}
	value, err := fn(ctx)
	if err != nil {
		return value, err
	}
	_ = c.Put(ctx, key, value)
	return value, nil
}

// Purge drops every key of the namespace. Backends without prefix
// deletion are cleared entirely.
func (c *TypedCache[T]) Purge(ctx context.Context) error {
	if pd, ok := c.backend.(prefixDeleter); ok {
		return pd.DeleteByPrefix(ctx, c.namespace)
	}
	return c.backend.Clear(ctx)
}
