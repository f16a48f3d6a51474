// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// SanitizeFilename extracts only the base filename, removing any directory
// components. This prevents path traversal attacks via filenames like
// "../../../etc/passwd". Returns an error if the filename is invalid.
func SanitizeFilename(filename string) (string, error) {
	safe := filepath.Base(strings.TrimSpace(filename))
	if safe == "." || safe == ".." || safe == "" || safe == string(filepath.Separator) {
		return "", fmt.Errorf("invalid filename: %q", filename)
	}
	return safe, nil
}

// LastURLSegment returns the percent-decoded final segment of the URL path.
// It returns an empty string when the URL cannot be parsed or its path ends
// without a segment ("https://host/", "https://host/dir/").
func LastURLSegment(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}

	// u.Path is already decoded once; RawPath keeps the original escaping.
	p := u.Path
	if u.RawPath != "" {
		if decoded, err := url.PathUnescape(u.RawPath); err == nil {
			p = decoded
		}
	}
	if p == "" || strings.HasSuffix(p, "/") {
		return ""
	}

	seg := path.Base(p)
	if seg == "." || seg == "/" {
		return ""
	}
	return seg
}
