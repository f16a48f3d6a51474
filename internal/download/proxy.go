// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package download streams resolved file targets from their origin to the
// chat transport without keeping a copy.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/olegiv/ocms-menubot/internal/menu"
	"github.com/olegiv/ocms-menubot/internal/util"
)

// Defaults.
const (
	DefaultTimeout  = 60 * time.Second
	DefaultMaxBytes = 50 << 20 // Bot API upload limit
	UserAgent       = "ocms-menubot/1.0"
	maxRedirects    = 5
)

// File is a download in flight. The caller must close Body.
type File struct {
	Name        string
	ContentType string
	Size        int64 // -1 when the origin did not announce a length
	Body        io.ReadCloser
}

// Options configures a Proxy.
type Options struct {
	Timeout  time.Duration
	MaxBytes int64

	// AllowPrivate permits origins on loopback and private networks.
	AllowPrivate bool

	// HTTPClient overrides the transport. Timeout still applies per fetch.
	HTTPClient *http.Client
}

// Proxy fetches file targets.
type Proxy struct {
	client       *http.Client
	timeout      time.Duration
	maxBytes     int64
	allowPrivate bool
}

// New creates a proxy.
func New(opts Options) *Proxy {
	p := &Proxy{
		timeout:      opts.Timeout,
		maxBytes:     opts.MaxBytes,
		allowPrivate: opts.AllowPrivate,
		client:       opts.HTTPClient,
	}
	if p.timeout <= 0 {
		p.timeout = DefaultTimeout
	}
	if p.maxBytes <= 0 {
		p.maxBytes = DefaultMaxBytes
	}
	if p.client == nil {
		p.client = newClient(opts.AllowPrivate)
	}
	return p
}

func newClient(allowPrivate bool) *http.Client {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConns:        20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if !allowPrivate {
		transport.DialContext = util.PublicOnlyDialContext(dialer)
	}

	return &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if !allowPrivate && !util.IsPublicHTTPURL(req.URL.String()) {
				return fmt.Errorf("redirect to %s blocked", req.URL.Redacted())
			}
			if len(via) >= maxRedirects {
				return errors.New("too many redirects")
			}
			return nil
		},
	}
}

// Fetch opens target for streaming. Non-2xx responses, transport errors,
// timeouts and bodies larger than the limit fail with ErrDownloadFailed;
// an oversized body without a Content-Length fails while being read.
func (p *Proxy) Fetch(ctx context.Context, target menu.Target) (*File, error) {
	if target.Kind != menu.FileTarget {
		return nil, fmt.Errorf("%w: node %d: target is %s, not a file", menu.ErrDownloadFailed, target.NodeID, target.Kind)
	}
	if !p.allowPrivate && !util.IsPublicHTTPURL(target.URL) {
		return nil, fmt.Errorf("%w: node %d: origin not allowed", menu.ErrDownloadFailed, target.NodeID)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %w", menu.ErrDownloadFailed, err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: node %d: %w", menu.ErrDownloadFailed, target.NodeID, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: node %d: HTTP %d", menu.ErrDownloadFailed, target.NodeID, resp.StatusCode)
	}
	if resp.ContentLength > p.maxBytes {
		_ = resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: node %d: %d bytes exceeds limit of %d",
			menu.ErrDownloadFailed, target.NodeID, resp.ContentLength, p.maxBytes)
	}

	name := target.Filename
	if name == "" {
		name = menu.FilenameFromURL(resp.Request.URL.String(), "")
	}

	return &File{
		Name:        name,
		ContentType: contentType(resp.Header.Get("Content-Type"), name),
		Size:        resp.ContentLength,
		Body: &limitedBody{
			rc:        resp.Body,
			remaining: p.maxBytes,
			cancel:    cancel,
		},
	}, nil
}

func contentType(header, name string) string {
	if mt, _, err := mime.ParseMediaType(header); err == nil && mt != "" {
		return mt
	}
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// limitedBody fails with ErrDownloadFailed once more than remaining bytes
// have been read and releases the request context on Close.
type limitedBody struct {
	rc        io.ReadCloser
	remaining int64
	cancel    context.CancelFunc
}

func (b *limitedBody) Read(p []byte) (int, error) {
	if b.remaining < 0 {
		return 0, fmt.Errorf("%w: body exceeds size limit", menu.ErrDownloadFailed)
	}
	if int64(len(p)) > b.remaining+1 {
		p = p[:b.remaining+1]
	}
	n, err := b.rc.Read(p)
	b.remaining -= int64(n)
	if b.remaining < 0 {
		return n + int(b.remaining), fmt.Errorf("%w: body exceeds size limit", menu.ErrDownloadFailed)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("%w: %w", menu.ErrDownloadFailed, err)
	}
	return n, err
}

func (b *limitedBody) Close() error {
	err := b.rc.Close()
	b.cancel()
	return err
}
