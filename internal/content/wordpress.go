// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package content fetches menu records and media metadata from the CMS.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/olegiv/ocms-menubot/internal/menu"
)

// Client configuration constants
const (
	UserAgent      = "ocms-menubot/1.0"
	DefaultTimeout = 10 * time.Second
	DefaultPerPage = 100
	MaxResponseLen = 8 << 20 // per response body
	maxPages       = 200
)

// WordPressOptions configures a WordPress client.
type WordPressOptions struct {
	// MenuEndpoint lists menu records, e.g. https://cms.example.com/wp-json/wp/v2/menu-items
	MenuEndpoint string

	// MediaEndpoint resolves attachment ids, e.g. https://cms.example.com/wp-json/wp/v2/media
	MediaEndpoint string

	// PerPage enables pagination when > 0.
	PerPage int

	Timeout    time.Duration
	HTTPClient *http.Client
	Breaker    BreakerConfig
	Logger     *slog.Logger
}

// WordPress reads the menu collection and media attachments from the
// WordPress REST API.
type WordPress struct {
	menuEndpoint  *url.URL
	mediaEndpoint *url.URL
	perPage       int
	client        *http.Client
	breaker       *gobreaker.CircuitBreaker
	logger        *slog.Logger
}

// NewWordPress validates opts and creates a client.
func NewWordPress(opts WordPressOptions) (*WordPress, error) {
	menuURL, err := parseEndpoint("menu", opts.MenuEndpoint)
	if err != nil {
		return nil, err
	}
	mediaURL, err := parseEndpoint("media", opts.MediaEndpoint)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	breakerCfg := opts.Breaker
	if breakerCfg.Name == "" {
		breakerCfg = DefaultBreakerConfig("wordpress")
	}

	return &WordPress{
		menuEndpoint:  menuURL,
		mediaEndpoint: mediaURL,
		perPage:       opts.PerPage,
		client:        client,
		breaker:       newBreaker(breakerCfg, logger),
		logger:        logger,
	}, nil
}

func parseEndpoint(name, raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid %s endpoint: %w", name, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid %s endpoint %q: must be an absolute http(s) URL", name, raw)
	}
	return u, nil
}

// FetchRecords returns every menu record, following WordPress pagination
// when enabled.
func (w *WordPress) FetchRecords(ctx context.Context) ([]menu.RawRecord, error) {
	if w.perPage <= 0 {
		body, _, err := w.getMenuPage(ctx, w.menuEndpoint.String())
		if err != nil {
			return nil, err
		}
		return menu.DecodeRecords(body)
	}

	var all []menu.RawRecord
	seen := make(map[int64]struct{})
	for page := 1; page <= maxPages; page++ {
		body, header, err := w.getMenuPage(ctx, w.pageURL(page))
		if err != nil {
			return nil, err
		}
		records, err := menu.DecodeRecords(body)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		// An endpoint that ignores page/per_page repeats the same records.
		if fresh := addIDs(seen, records); !fresh && page > 1 {
			w.logger.Warn("menu endpoint returned no new records, stopping pagination", "page", page)
			return all, nil
		}
		all = append(all, records...)

		if total, ok := totalPages(header); ok {
			if page >= total {
				return all, nil
			}
			continue
		}
		if len(records) < w.perPage {
			return all, nil
		}
	}

	return nil, fmt.Errorf("%w: more than %d pages", menu.ErrSourceUnavailable, maxPages)
}

// addIDs records the ids of records in seen and reports whether any was new.
func addIDs(seen map[int64]struct{}, records []menu.RawRecord) bool {
	fresh := false
	for _, r := range records {
		if r.ID == nil {
			continue
		}
		if _, ok := seen[*r.ID]; !ok {
			seen[*r.ID] = struct{}{}
			fresh = true
		}
	}
	return fresh
}

func (w *WordPress) pageURL(page int) string {
	u := *w.menuEndpoint
	q := u.Query()
	q.Set("per_page", strconv.Itoa(w.perPage))
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

func totalPages(h http.Header) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(h.Get("X-WP-TotalPages")))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

type response struct {
	body   []byte
	header http.Header
}

func (w *WordPress) getMenuPage(ctx context.Context, target string) ([]byte, http.Header, error) {
	res, err := w.breaker.Execute(func() (any, error) {
		body, header, status, err := w.get(ctx, target)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("GET %s: HTTP %d: %s", target, status, http.StatusText(status))
		}
		return response{body: body, header: header}, nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", menu.ErrSourceUnavailable, err)
	}
	r := res.(response)
	return r.body, r.header, nil
}

// LookupMedia implements menu.MediaLookup. Numeric refs are attachment ids
// resolved through the media endpoint; refs that already are absolute
// URLs are returned as is.
func (w *WordPress) LookupMedia(ctx context.Context, ref menu.FileRef) (string, error) {
	raw := ref.String()
	if isHTTPURL(raw) {
		return raw, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return "", fmt.Errorf("%w: unsupported media reference %q", menu.ErrMediaLookupFailed, raw)
	}

	res, err := w.breaker.Execute(func() (any, error) {
		return w.lookupAttachment(ctx, id)
	})
	if err != nil {
		if errors.Is(err, menu.ErrMediaNotFound) || errors.Is(err, menu.ErrMediaLookupFailed) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", menu.ErrMediaLookupFailed, err)
	}
	return res.(string), nil
}

func (w *WordPress) lookupAttachment(ctx context.Context, id int64) (string, error) {
	target := w.mediaEndpoint.JoinPath(strconv.FormatInt(id, 10)).String()

	body, _, status, err := w.get(ctx, target)
	if err != nil {
		return "", err
	}
	switch {
	case status == http.StatusNotFound:
		return "", fmt.Errorf("%w: attachment %d", menu.ErrMediaNotFound, id)
	case status != http.StatusOK:
		return "", fmt.Errorf("%w: GET %s: HTTP %d", menu.ErrMediaLookupFailed, target, status)
	}

	var attachment struct {
		SourceURL string `json:"source_url"`
	}
	if err := json.Unmarshal(body, &attachment); err != nil {
		return "", fmt.Errorf("%w: attachment %d: %w", menu.ErrMediaLookupFailed, id, err)
	}
	if strings.TrimSpace(attachment.SourceURL) == "" {
		return "", fmt.Errorf("%w: attachment %d has no source_url", menu.ErrMediaLookupFailed, id)
	}
	return strings.TrimSpace(attachment.SourceURL), nil
}

func (w *WordPress) get(ctx context.Context, target string) ([]byte, http.Header, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	start := time.Now()
	resp, err := w.client.Do(req)
	if err != nil {
		return nil, nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseLen+1))
	if err != nil {
		return nil, nil, 0, err
	}
	if len(body) > MaxResponseLen {
		return nil, nil, 0, fmt.Errorf("response from %s exceeds %d bytes", target, MaxResponseLen)
	}

	w.logger.Debug("cms request",
		"url", target,
		"status", resp.StatusCode,
		"bytes", len(body),
		"took", time.Since(start))
	return body, resp.Header, resp.StatusCode, nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

var (
	_ menu.MediaLookup = (*WordPress)(nil)
)
