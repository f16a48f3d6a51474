// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

// Handler processes one update.
type Handler interface {
	HandleUpdate(ctx context.Context, u Update) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, u Update) error

// HandleUpdate calls f(ctx, u).
func (f HandlerFunc) HandleUpdate(ctx context.Context, u Update) error {
	return f(ctx, u)
}

// UpdateSource fetches updates. *Client implements it.
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, int64, error)
}

// UpdateObserver counts received updates.
type UpdateObserver interface {
	ObserveUpdate(kind string)
}

// PollerOptions configures a Poller.
type PollerOptions struct {
	Timeout  time.Duration
	Workers  int
	Observer UpdateObserver
	Logger   *slog.Logger
}

// Poller runs the getUpdates loop and dispatches updates to a bounded
// worker pool.
type Poller struct {
	source   UpdateSource
	handler  Handler
	timeout  time.Duration
	workers  int
	observer UpdateObserver
	logger   *slog.Logger
}

// NewPoller creates a Poller.
func NewPoller(source UpdateSource, handler Handler, opts PollerOptions) *Poller {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Timeout < 0 {
		opts.Timeout = 0
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Poller{
		source:   source,
		handler:  handler,
		timeout:  opts.Timeout,
		workers:  opts.Workers,
		observer: opts.Observer,
		logger:   opts.Logger,
	}
}

// Run polls until ctx is canceled, then waits for in-flight updates.
// Handlers receive a context that outlives the poll loop's cancellation so
// a reply being sent during shutdown is not cut off.
func (p *Poller) Run(ctx context.Context) error {
	var g errgroup.Group
	g.SetLimit(p.workers)

	handlerCtx := context.WithoutCancel(ctx)
	var offset int64
	backoff := minBackoff

	p.logger.Info("telegram poller started", "workers", p.workers, "timeout", p.timeout)

	for ctx.Err() == nil {
		updates, next, err := p.source.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			wait := backoff
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
				wait = time.Duration(apiErr.RetryAfter) * time.Second
			}
			p.logger.Warn("getUpdates failed", "error", err, "retry_in", wait)
			if !sleep(ctx, wait) {
				break
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = minBackoff
		offset = next

		for _, u := range updates {
			if p.observer != nil {
				p.observer.ObserveUpdate(u.Kind())
			}
			g.Go(func() error {
				p.dispatch(handlerCtx, u)
				return nil
			})
		}
	}

	p.logger.Info("telegram poller stopping, waiting for handlers")
	_ = g.Wait()
	return nil
}

func (p *Poller) dispatch(ctx context.Context, u Update) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic while handling update",
				"update_id", u.UpdateID,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()

	if err := p.handler.HandleUpdate(ctx, u); err != nil {
		p.logger.ErrorContext(ctx, "update handling failed", "update_id", u.UpdateID, "kind", u.Kind(), "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
