// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides a slog handler that stamps every record with the
// interaction it belongs to, so all lines of one button press can be
// grepped together.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// Attribute keys added by ContextHandler.
const (
	KeyInteractionID = "interaction_id"
	KeyChatID        = "chat_id"
	KeyUpdateID      = "update_id"
)

type interactionKey struct{}

// Interaction identifies one handled update.
type Interaction struct {
	ID       string
	ChatID   int64
	UpdateID int64
}

// WithInteraction returns a context carrying a new interaction with a
// random id.
func WithInteraction(ctx context.Context, chatID, updateID int64) context.Context {
	return context.WithValue(ctx, interactionKey{}, Interaction{
		ID:       uuid.NewString(),
		ChatID:   chatID,
		UpdateID: updateID,
	})
}

// InteractionFrom returns the interaction stored in ctx.
func InteractionFrom(ctx context.Context) (Interaction, bool) {
	if ctx == nil {
		return Interaction{}, false
	}
	in, ok := ctx.Value(interactionKey{}).(Interaction)
	return in, ok
}

// ContextHandler is a slog.Handler that wraps another handler and adds the
// interaction attributes found in the record's context.
type ContextHandler struct {
	inner slog.Handler
}

// NewContextHandler wraps inner.
func NewContextHandler(inner slog.Handler) *ContextHandler {
	return &ContextHandler{inner: inner}
}

// Enabled implements slog.Handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if in, ok := InteractionFrom(ctx); ok {
		r = r.Clone()
		r.AddAttrs(slog.String(KeyInteractionID, in.ID))
		if in.ChatID != 0 {
			r.AddAttrs(slog.Int64(KeyChatID, in.ChatID))
		}
		if in.UpdateID != 0 {
			r.AddAttrs(slog.Int64(KeyUpdateID, in.UpdateID))
		}
	}
	return h.inner.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs)}
}

// WithGroup implements slog.Handler.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{inner: h.inner.WithGroup(name)}
}

// ParseLevel maps a level name to a slog.Level. Unknown names mean info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds the process logger: a text handler in development, JSON
// otherwise, wrapped in a ContextHandler.
func New(w io.Writer, level, env string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var inner slog.Handler
	if env == "production" {
		inner = slog.NewJSONHandler(w, opts)
	} else {
		inner = slog.NewTextHandler(w, opts)
	}
	return slog.New(NewContextHandler(inner))
}
