// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-menubot/internal/cache"
	"github.com/olegiv/ocms-menubot/internal/download"
	"github.com/olegiv/ocms-menubot/internal/menu"
	"github.com/olegiv/ocms-menubot/internal/render"
	"github.com/olegiv/ocms-menubot/internal/session"
)

type recordSource struct {
	mu      sync.Mutex
	records []menu.RawRecord
	err     error
}

func (s *recordSource) FetchRecords(context.Context) ([]menu.RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records, s.err
}

func (s *recordSource) set(records []menu.RawRecord, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records, s.err = records, err
}

type fakeDownloader struct {
	mu      sync.Mutex
	err     error
	targets []menu.Target
}

func (d *fakeDownloader) Fetch(_ context.Context, target menu.Target) (*download.File, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.targets = append(d.targets, target)
	if d.err != nil {
		return nil, d.err
	}
	return &download.File{
		Name:        target.Filename,
		ContentType: "application/pdf",
		Size:        3,
		Body:        io.NopCloser(strings.NewReader("pdf")),
	}, nil
}

type interaction struct {
	action string
	failed bool
}

type recordingObserver struct {
	mu           sync.Mutex
	interactions []interaction
	downloads    int
}

func (o *recordingObserver) ObserveInteraction(action string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.interactions = append(o.interactions, interaction{action, err != nil})
}

func (o *recordingObserver) ObserveDownload(int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.downloads++
}

func node(id, parent int64, name, url, file, link string) menu.RawRecord {
	return menu.RawRecord{
		ID:     &id,
		Parent: &parent,
		Name:   name,
		Link:   link,
		ACF:    menu.ACF{URL: url, UploadFile: menu.FileRef(file)},
	}
}

func fixture() []menu.RawRecord {
	learn := node(5, 0, "Learn", "", "", "")
	learn.Description = "Soon"
	return []menu.RawRecord{
		node(2, 0, "Deals", "", "", "L2"),
		node(12, 2, "Space", "https://x", "", "L12"),
		node(3, 0, "Deck", "", "42", ""),
		node(4, 0, "Broken", "", "404", ""),
		learn,
	}
}

func mediaLookup(_ context.Context, ref menu.FileRef) (string, error) {
	if ref == "42" {
		return "https://files.example.com/doc.pdf", nil
	}
	return "", fmt.Errorf("%w: %s", menu.ErrMediaNotFound, ref)
}

type testEnv struct {
	svc      *MenuService
	source   *recordSource
	dl       *fakeDownloader
	observer *recordingObserver
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	backend := cache.NewSimpleMemoryCache(time.Minute)
	t.Cleanup(func() { _ = backend.Close() })

	src := &recordSource{records: fixture()}
	manager := cache.NewManager(
		cache.NewMenuCache(src),
		cache.NewMediaCache(menu.MediaLookupFunc(mediaLookup), backend, time.Minute),
		cache.Result{Cache: backend, BackendType: cache.CacheBackendMemory},
	)

	env := &testEnv{source: src, dl: &fakeDownloader{}, observer: &recordingObserver{}}
	env.svc = NewMenuService(MenuServiceOptions{
		Cache:      manager,
		Downloader: env.dl,
		Observer:   env.observer,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return env
}

func labels(msg render.Message) []string {
	var out []string
	for _, row := range msg.Rows {
		for _, b := range row {
			out = append(out, b.Label)
		}
	}
	return out
}

func TestRoot(t *testing.T) {
	env := newTestEnv(t)

	screen := env.svc.Root(context.Background())
	assert.True(t, screen.Context.IsRoot())
	assert.Equal(t, []string{"Deals", "Deck", "Broken", "Learn"}, labels(screen.Message))
	assert.Equal(t, render.ActionOpen, screen.Message.Rows[0][0].Action)
	assert.Equal(t, render.ActionDownload, screen.Message.Rows[1][0].Action)
	assert.Equal(t, render.ActionVoid, screen.Message.Rows[3][0].Action)
	assert.True(t, env.svc.Ready())
}

func TestOpen(t *testing.T) {
	env := newTestEnv(t)

	screen, err := env.svc.Open(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, menu.NodeID(2), screen.Context.ParentID)
	require.Len(t, screen.Message.Rows, 2)
	assert.Equal(t, render.ActionLink, screen.Message.Rows[0][0].Action)
	assert.Equal(t, "https://x", screen.Message.Rows[0][0].URL)
	assert.Equal(t, render.ActionBack, screen.Message.Rows[1][0].Action)

	_, err = env.svc.Open(context.Background(), 999)
	assert.ErrorIs(t, err, menu.ErrNotFound)
}

func TestHandle_Navigation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.svc.Handle(ctx, session.Open(2).Encode())
	require.NotNil(t, res.Screen)
	assert.Equal(t, []string{"Space", "⬅ Back to Menu"}, labels(res.Screen.Message))
	assert.Equal(t, menu.NodeID(2), res.Screen.Context.ParentID)
	assert.Empty(t, res.Notice)

	res = env.svc.Handle(ctx, session.Back().Encode())
	require.NotNil(t, res.Screen)
	assert.True(t, res.Screen.Context.IsRoot())
	assert.Empty(t, res.Notice)
	assert.Len(t, res.Screen.Message.Rows, 4)
}

func TestHandle_VoidLeafShowsDescription(t *testing.T) {
	env := newTestEnv(t)

	res := env.svc.Handle(context.Background(), session.Void(5).Encode())
	require.NotNil(t, res.Screen)
	assert.Equal(t, "Soon", res.Screen.Message.Text)
	assert.Equal(t, menu.NodeID(5), res.Screen.Context.ParentID)
	assert.Equal(t, []string{"⬅ Back to Menu"}, labels(res.Screen.Message))
}

func TestHandle_InvalidPayload(t *testing.T) {
	env := newTestEnv(t)

	for _, data := range []string{"deals", "", "open:abc", "file:0"} {
		res := env.svc.Handle(context.Background(), data)
		require.NotNil(t, res.Screen, data)
		assert.True(t, res.Screen.Context.IsRoot(), data)
		assert.Equal(t, NoticeStale, res.Notice, data)
	}
}

func TestHandle_RemovedNode(t *testing.T) {
	env := newTestEnv(t)

	res := env.svc.Handle(context.Background(), session.Open(999).Encode())
	require.NotNil(t, res.Screen)
	assert.True(t, res.Screen.Context.IsRoot())
	assert.Equal(t, NoticeGone, res.Notice)

	res = env.svc.Handle(context.Background(), session.Download(999).Encode())
	require.NotNil(t, res.Screen)
	assert.Equal(t, NoticeGone, res.Notice)
	assert.Nil(t, res.File)
}

func TestHandle_Download(t *testing.T) {
	env := newTestEnv(t)

	res := env.svc.Handle(context.Background(), session.Download(3).Encode())
	require.NotNil(t, res.File)
	defer func() { _ = res.File.Body.Close() }()

	assert.Nil(t, res.Screen)
	assert.Empty(t, res.Notice)
	assert.Equal(t, "doc.pdf", res.File.Name)
	require.Len(t, env.dl.targets, 1)
	assert.Equal(t, menu.FileTarget, env.dl.targets[0].Kind)
	assert.Equal(t, "https://files.example.com/doc.pdf", env.dl.targets[0].URL)
	assert.Equal(t, 1, env.observer.downloads)
}

// A missing attachment must surface as a notice, never as a silent no-op.
func TestHandle_DownloadMediaNotFound(t *testing.T) {
	env := newTestEnv(t)

	res := env.svc.Handle(context.Background(), session.Download(4).Encode())
	assert.Nil(t, res.File)
	assert.Nil(t, res.Screen)
	assert.Equal(t, NoticeFileMissing, res.Notice)
	assert.Empty(t, env.dl.targets)

	_, err := env.svc.Download(context.Background(), 4)
	assert.ErrorIs(t, err, menu.ErrMediaLookupFailed)
	assert.ErrorIs(t, err, menu.ErrMediaNotFound)
}

func TestHandle_DownloadFailed(t *testing.T) {
	env := newTestEnv(t)
	env.dl.err = fmt.Errorf("%w: status 500", menu.ErrDownloadFailed)

	res := env.svc.Handle(context.Background(), session.Download(3).Encode())
	assert.Nil(t, res.File)
	assert.Equal(t, NoticeFileFailed, res.Notice)

	env.observer.mu.Lock()
	defer env.observer.mu.Unlock()
	last := env.observer.interactions[len(env.observer.interactions)-1]
	assert.Equal(t, interaction{"file", true}, last)
}

func TestHandle_DownloadOnBranchOpensIt(t *testing.T) {
	env := newTestEnv(t)

	res := env.svc.Handle(context.Background(), session.Download(2).Encode())
	require.NotNil(t, res.Screen)
	assert.Equal(t, menu.NodeID(2), res.Screen.Context.ParentID)
	assert.Nil(t, res.File)
}

func TestRefresh(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.svc.Root(ctx)
	require.Len(t, first.Message.Rows, 4)

	env.source.set([]menu.RawRecord{node(7, 0, "Only", "https://only", "", "")}, nil)
	epoch, err := env.svc.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), epoch.Version)
	assert.Equal(t, []string{"Only"}, labels(env.svc.Root(ctx).Message))

	env.source.set(nil, fmt.Errorf("%w: status 503", menu.ErrSourceUnavailable))
	_, err = env.svc.Refresh(ctx)
	require.ErrorIs(t, err, menu.ErrSourceUnavailable)
	assert.Equal(t, []string{"Only"}, labels(env.svc.Root(ctx).Message))

	stats := env.svc.Stats()
	assert.Equal(t, uint64(2), stats.Menu.Version)
	assert.Equal(t, int64(1), stats.Menu.Failures)
}
