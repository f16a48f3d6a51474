// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/olegiv/ocms-menubot/internal/cache"
	"github.com/olegiv/ocms-menubot/internal/download"
	"github.com/olegiv/ocms-menubot/internal/menu"
	"github.com/olegiv/ocms-menubot/internal/metrics"
	"github.com/olegiv/ocms-menubot/internal/service"
	"github.com/olegiv/ocms-menubot/internal/telegram"
	"github.com/olegiv/ocms-menubot/internal/version"
)

type staticRecords struct {
	mu      sync.Mutex
	records []menu.RawRecord
	err     error
}

func (s *staticRecords) FetchRecords(context.Context) ([]menu.RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records, s.err
}

func (s *staticRecords) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func record(id, parent int64, name, url, file string) menu.RawRecord {
	return menu.RawRecord{
		ID:     &id,
		Parent: &parent,
		Name:   name,
		ACF:    menu.ACF{URL: url, UploadFile: menu.FileRef(file)},
	}
}

// testMenu: Deals (2) > Space (12, link); Deck (3, file 42); Broken (4, file 404).
func testMenu() []menu.RawRecord {
	return []menu.RawRecord{
		record(2, 0, "Deals", "", ""),
		record(12, 2, "Space", "https://x.example.com", ""),
		record(3, 0, "Deck", "", "42"),
		record(4, 0, "Broken", "", "404"),
	}
}

type stubDownloader struct{}

func (stubDownloader) Fetch(_ context.Context, target menu.Target) (*download.File, error) {
	return &download.File{
		Name:        target.Filename,
		ContentType: "application/pdf",
		Size:        8,
		Body:        io.NopCloser(strings.NewReader("%PDF-1.4")),
	}, nil
}

type testDeps struct {
	svc     *service.MenuService
	source  *staticRecords
	metrics *metrics.Collector
}

func newTestDeps(t *testing.T) *testDeps {
	t.Helper()
	backend := cache.NewSimpleMemoryCache(time.Minute)
	t.Cleanup(func() { _ = backend.Close() })

	lookup := menu.MediaLookupFunc(func(_ context.Context, ref menu.FileRef) (string, error) {
		if ref == "42" {
			return "https://files.example.com/deck.pdf", nil
		}
		return "", fmt.Errorf("%w: %s", menu.ErrMediaNotFound, ref)
	})

	src := &staticRecords{records: testMenu()}
	menus := cache.NewMenuCache(src)
	collector := metrics.NewCollector("menubot_test")
	menus.SetObserver(collector)

	manager := cache.NewManager(menus,
		cache.NewMediaCache(lookup, backend, time.Minute),
		cache.Result{Cache: backend, BackendType: cache.CacheBackendMemory})

	svc := service.NewMenuService(service.MenuServiceOptions{
		Cache:      manager,
		Downloader: stubDownloader{},
		Observer:   collector,
		Logger:     quietLogger(),
	})
	return &testDeps{svc: svc, source: src, metrics: collector}
}

func (d *testDeps) router() http.Handler {
	return NewRouter(RouterConfig{
		Menus:   d.svc,
		Metrics: d.metrics,
		Version: version.Info{Version: "v1.2.3"},
	})
}

func (d *testDeps) serve(method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	d.router().ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sentMessage struct {
	chatID    int64
	messageID int64
	text      string
	markup    *telegram.InlineKeyboardMarkup
}

type sentDocument struct {
	chatID   int64
	filename string
	content  string
}

// fakeBotAPI records Bot API calls.
type fakeBotAPI struct {
	mu        sync.Mutex
	sent      []sentMessage
	edited    []sentMessage
	answers   map[string]string
	documents []sentDocument
	editErr   error
	docErr    error
}

func newFakeBotAPI() *fakeBotAPI {
	return &fakeBotAPI{answers: map[string]string{}}
}

func (f *fakeBotAPI) SendMessage(_ context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text, markup: markup})
	return nil
}

func (f *fakeBotAPI) EditMessageText(_ context.Context, chatID, messageID int64, text string, markup *telegram.InlineKeyboardMarkup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.edited = append(f.edited, sentMessage{chatID: chatID, messageID: messageID, text: text, markup: markup})
	return nil
}

func (f *fakeBotAPI) AnswerCallbackQuery(_ context.Context, queryID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers[queryID] = text
	return nil
}

func (f *fakeBotAPI) SendDocument(_ context.Context, chatID int64, filename string, body io.Reader, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.docErr != nil {
		return f.docErr
	}
	b, _ := io.ReadAll(body)
	f.documents = append(f.documents, sentDocument{chatID: chatID, filename: filename, content: string(b)})
	return nil
}
