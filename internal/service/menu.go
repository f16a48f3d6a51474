// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service turns chat interactions into menu views and file
// downloads.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/ocms-menubot/internal/cache"
	"github.com/olegiv/ocms-menubot/internal/download"
	"github.com/olegiv/ocms-menubot/internal/menu"
	"github.com/olegiv/ocms-menubot/internal/render"
	"github.com/olegiv/ocms-menubot/internal/session"
)

// User-facing notices.
const (
	NoticeStale       = "This menu has changed. Here is the current one."
	NoticeGone        = "This item is no longer available."
	NoticeFileMissing = "⚠️ This file is not available right now."
	NoticeFileFailed  = "⚠️ The file could not be downloaded. Please try again later."
	NoticeRefreshed   = "Menu updated."
	NoticeRefreshFail = "⚠️ Menu update failed, keeping the current menu."
)

// Downloader fetches a resolved file target.
type Downloader interface {
	Fetch(ctx context.Context, target menu.Target) (*download.File, error)
}

// Observer records interaction outcomes.
type Observer interface {
	ObserveInteraction(action string, took time.Duration, err error)
	ObserveDownload(bytes int64, err error)
}

// Screen is a rendered menu level together with the navigation state it
// represents.
type Screen struct {
	Message render.Message
	Context session.Context
	// Notice is a short toast shown alongside the screen, empty if none.
	Notice string
}

// Result is the outcome of one button press. Exactly one of Screen and
// File is set unless only a notice is shown.
type Result struct {
	Action session.Action
	Screen *Screen
	File   *download.File
	Notice string
}

// MenuServiceOptions configures a MenuService.
type MenuServiceOptions struct {
	Cache      *cache.Manager
	Downloader Downloader
	Renderer   *render.Renderer
	Observer   Observer
	Logger     *slog.Logger
}

// MenuService serves menu views from the current epoch.
type MenuService struct {
	cache      *cache.Manager
	resolver   *menu.Resolver
	downloader Downloader
	renderer   *render.Renderer
	observer   Observer
	logger     *slog.Logger
}

// NewMenuService creates a MenuService. File references are resolved
// through the manager's media cache.
func NewMenuService(opts MenuServiceOptions) *MenuService {
	if opts.Renderer == nil {
		opts.Renderer = render.New(render.DefaultOptions())
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &MenuService{
		cache:      opts.Cache,
		resolver:   menu.NewResolver(opts.Cache.Media),
		downloader: opts.Downloader,
		renderer:   opts.Renderer,
		observer:   opts.Observer,
		logger:     opts.Logger,
	}
}

// Root renders the top level.
func (s *MenuService) Root(ctx context.Context) Screen {
	set := s.cache.Menus.Current(ctx).Set
	vm := menu.ViewOrRoot(set, menu.Root)
	return Screen{Message: s.renderer.View(vm), Context: session.Start()}
}

// Open renders the children of id. Unknown ids yield ErrNotFound.
func (s *MenuService) Open(ctx context.Context, id menu.NodeID) (Screen, error) {
	set := s.cache.Menus.Current(ctx).Set
	vm, err := menu.View(set, id)
	if err != nil {
		return Screen{}, err
	}
	return Screen{
		Message: s.renderer.View(vm),
		Context: session.Context{ParentID: id},
	}, nil
}

// Navigate is Open for chat clients: an id removed by a refresh falls
// back to the root level with a notice.
func (s *MenuService) Navigate(ctx context.Context, id menu.NodeID) Screen {
	set := s.cache.Menus.Current(ctx).Set
	vm := menu.ViewOrRoot(set, id)
	screen := Screen{
		Message: s.renderer.View(vm),
		Context: session.Context{ParentID: vm.ParentID},
	}
	if vm.Degraded {
		screen.Context = session.Start()
		screen.Notice = NoticeGone
		s.logger.InfoContext(ctx, "requested menu level no longer exists", "node_id", id)
	}
	return screen
}

// Download resolves a download node and starts fetching its file. The
// caller must close the returned body.
func (s *MenuService) Download(ctx context.Context, id menu.NodeID) (*download.File, error) {
	start := time.Now()
	file, err := s.download(ctx, id)

	var size int64
	if file != nil && file.Size > 0 {
		size = file.Size
	}
	if s.observer != nil {
		s.observer.ObserveDownload(size, err)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "download failed", "node_id", id, "error", err, "took", time.Since(start))
	}
	return file, err
}

func (s *MenuService) download(ctx context.Context, id menu.NodeID) (*download.File, error) {
	set := s.cache.Menus.Current(ctx).Set
	node, ok := set.Node(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", menu.ErrNotFound, id)
	}
	if kind := menu.Classify(set, node); kind != menu.KindDownload {
		return nil, fmt.Errorf("%w: node %d is a %s, not a download", menu.ErrInvalidRequest, id, kind)
	}

	target, err := s.resolver.Resolve(ctx, node)
	if err != nil {
		return nil, err
	}
	if target.Kind != menu.FileTarget {
		return nil, fmt.Errorf("%w: node %d resolved to %s", menu.ErrMediaLookupFailed, id, target.Kind)
	}
	if s.downloader == nil {
		return nil, fmt.Errorf("%w: no downloader configured", menu.ErrDownloadFailed)
	}
	return s.downloader.Fetch(ctx, target)
}

// Handle applies a callback payload. Payloads that cannot be parsed, such
// as buttons of an older bot version, reset the chat to the root level.
func (s *MenuService) Handle(ctx context.Context, data string) Result {
	start := time.Now()

	action, err := session.ParseAction(data)
	if err != nil {
		s.logger.InfoContext(ctx, "unrecognized callback data", "data", data, "error", err)
		screen := s.Root(ctx)
		screen.Notice = NoticeStale
		s.observe("invalid", start, err)
		return Result{Screen: &screen, Notice: screen.Notice}
	}

	res := Result{Action: action}
	switch action.Type {
	case session.ActionBack, session.ActionOpen, session.ActionVoid:
		// Payloads carry no history, so every move starts from the root.
		// A void leaf opens as an empty level: its description, or the
		// empty text, plus the way back.
		next := session.Start().Apply(action)
		screen := s.Navigate(ctx, next.ParentID)
		res.Screen = &screen
		res.Notice = screen.Notice
	case session.ActionDownload:
		res, err = s.handleDownload(ctx, action)
	}

	s.observe(string(action.Type), start, err)
	return res
}

func (s *MenuService) handleDownload(ctx context.Context, action session.Action) (Result, error) {
	res := Result{Action: action}

	file, err := s.Download(ctx, action.ID)
	switch {
	case err == nil:
		res.File = file
	case errors.Is(err, menu.ErrNotFound):
		screen := s.Root(ctx)
		screen.Notice = NoticeGone
		res.Screen = &screen
		res.Notice = NoticeGone
	case errors.Is(err, menu.ErrInvalidRequest):
		// The node changed kind after a refresh; show it as it is now.
		screen := s.Navigate(ctx, action.ID)
		res.Screen = &screen
	case errors.Is(err, menu.ErrMediaLookupFailed):
		res.Notice = NoticeFileMissing
	default:
		res.Notice = NoticeFileFailed
	}
	return res, err
}

// Refresh reloads the menu from its source.
func (s *MenuService) Refresh(ctx context.Context) (*cache.Epoch, error) {
	epoch, err := s.cache.Refresh(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "menu refresh failed", "error", err)
		return epoch, err
	}
	s.logger.InfoContext(ctx, "menu refreshed",
		"version", epoch.Version,
		"nodes", epoch.Set.Len(),
		"placeholders", epoch.Placeholders)
	return epoch, nil
}

// Ready reports whether a menu epoch is installed.
func (s *MenuService) Ready() bool {
	return s.cache.Menus.Loaded() != nil
}

// Stats returns cache statistics.
func (s *MenuService) Stats() cache.Report {
	return s.cache.AllStats()
}

// PingCache checks the media cache backend.
func (s *MenuService) PingCache(ctx context.Context) error {
	return s.cache.Ping(ctx)
}

// ResetStats clears media cache counters.
func (s *MenuService) ResetStats() {
	s.cache.ResetStats()
}

func (s *MenuService) observe(action string, start time.Time, err error) {
	if s.observer != nil {
		s.observer.ObserveInteraction(action, time.Since(start), err)
	}
}
