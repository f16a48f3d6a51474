// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package menu

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/olegiv/ocms-menubot/internal/util"
)

// FallbackExtension is appended to the fallback filename built from a node
// name when the file URL carries no usable filename.
const FallbackExtension = ".bin"

// TargetKind is the outcome of resolving a node.
type TargetKind int

const (
	// NoTarget means resolution failed.
	NoTarget TargetKind = iota
	// LinkTarget is a plain URL.
	LinkTarget
	// FileTarget is a retrievable file URL plus a suggested filename.
	FileTarget
)

func (k TargetKind) String() string {
	switch k {
	case LinkTarget:
		return "link"
	case FileTarget:
		return "file"
	default:
		return "none"
	}
}

// Target is the resolved destination of a node.
type Target struct {
	Kind TargetKind
	// URL is the link for LinkTarget and the retrievable file URL for FileTarget.
	URL string
	// Filename is the suggested download name, set for FileTarget only.
	Filename string
	// NodeID is the node the target was resolved for.
	NodeID NodeID
}

// MediaLookup maps a file reference to a retrievable absolute URL.
// Implementations return an error wrapping ErrMediaNotFound when the
// reference is unknown.
type MediaLookup interface {
	LookupMedia(ctx context.Context, ref FileRef) (string, error)
}

// MediaLookupFunc adapts a function to the MediaLookup interface.
type MediaLookupFunc func(ctx context.Context, ref FileRef) (string, error)

// LookupMedia calls f(ctx, ref).
func (f MediaLookupFunc) LookupMedia(ctx context.Context, ref FileRef) (string, error) {
	return f(ctx, ref)
}

// Resolver resolves nodes to targets. Precedence is fixed: file reference,
// then explicit URL, then fallback link.
type Resolver struct {
	media MediaLookup
}

// NewResolver creates a Resolver. A nil lookup makes every file reference
// resolve to NoTarget.
func NewResolver(media MediaLookup) *Resolver {
	return &Resolver{media: media}
}

// Resolve returns the node's target. A failed media lookup yields NoTarget
// with an error wrapping ErrMediaLookupFailed; it never falls through to
// the link fields.
func (r *Resolver) Resolve(ctx context.Context, node MenuNode) (Target, error) {
	if !node.FileRef.Valid() {
		return resolveLinkChecked(node)
	}

	none := Target{Kind: NoTarget, NodeID: node.ID}
	if r == nil || r.media == nil {
		return none, fmt.Errorf("%w: node %d: no media lookup configured", ErrMediaLookupFailed, node.ID)
	}

	raw, err := r.media.LookupMedia(ctx, node.FileRef)
	if err != nil {
		return none, fmt.Errorf("%w: node %d ref %s: %w", ErrMediaLookupFailed, node.ID, node.FileRef, err)
	}

	fileURL := strings.TrimSpace(raw)
	if !isAbsoluteURL(fileURL) {
		return none, fmt.Errorf("%w: node %d ref %s: not an absolute URL: %q", ErrMediaLookupFailed, node.ID, node.FileRef, raw)
	}

	return Target{
		Kind:     FileTarget,
		URL:      fileURL,
		Filename: FilenameFromURL(fileURL, node.Name),
		NodeID:   node.ID,
	}, nil
}

// ResolveLink applies the link half of the precedence without any I/O:
// a non-blank explicit URL, else the fallback link, else NoTarget. It does
// not look at the file reference; use it for nodes classified as links.
func ResolveLink(node MenuNode) Target {
	if u := strings.TrimSpace(node.ExplicitURL); u != "" {
		return Target{Kind: LinkTarget, URL: u, NodeID: node.ID}
	}
	if u := strings.TrimSpace(node.FallbackLink); u != "" {
		return Target{Kind: LinkTarget, URL: u, NodeID: node.ID}
	}
	return Target{Kind: NoTarget, NodeID: node.ID}
}

func resolveLinkChecked(node MenuNode) (Target, error) {
	t := ResolveLink(node)
	if t.Kind == NoTarget {
		return t, fmt.Errorf("%w: node %d", ErrNoTarget, node.ID)
	}
	return t, nil
}

// FilenameFromURL derives a download name from the final segment of the
// percent-decoded URL path. When the URL has no usable segment the name is
// built from the node label: "<slug>.bin", or "file.bin".
func FilenameFromURL(fileURL, nodeName string) string {
	if seg := util.LastURLSegment(fileURL); seg != "" {
		if safe, err := util.SanitizeFilename(seg); err == nil {
			return safe
		}
	}
	return FallbackFilename(nodeName)
}

// FallbackFilename builds a filename from a display label.
func FallbackFilename(nodeName string) string {
	slug := util.Slug(nodeName)
	if slug == "" {
		slug = "file"
	}
	return slug + FallbackExtension
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
