// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package content

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/olegiv/ocms-menubot/internal/menu"
)

//go:embed default_menu.yaml
var defaultMenu []byte

// StaticSource serves menu records from a YAML or JSON file with the same
// record shape as the CMS. The file is re-read on every fetch so edits are
// picked up by the next refresh. Without a path the embedded default menu
// is used.
type StaticSource struct {
	path string
}

// NewStaticSource creates a static source for path ("" for the default).
func NewStaticSource(path string) *StaticSource {
	return &StaticSource{path: strings.TrimSpace(path)}
}

// FetchRecords reads and decodes the file.
func (s *StaticSource) FetchRecords(ctx context.Context) ([]menu.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", menu.ErrSourceUnavailable, err)
	}
	if s.path == "" {
		return ParseStatic(defaultMenu)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", menu.ErrSourceUnavailable, err)
	}
	return ParseStatic(data)
}

// ParseStatic decodes YAML (or JSON, which is valid YAML) into raw records.
// The document is re-encoded as JSON so that field normalization is the
// same as for CMS responses.
func ParseStatic(data []byte) ([]menu.RawRecord, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", menu.ErrMalformedSource, err)
	}
	if doc == nil {
		return []menu.RawRecord{}, nil
	}
	if _, ok := doc.([]any); !ok {
		return nil, fmt.Errorf("%w: static menu must be a list of records", menu.ErrMalformedSource)
	}

	encoded, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", menu.ErrMalformedSource, err)
	}
	return menu.DecodeRecords(encoded)
}

// StaticMedia resolves file references that are already absolute URLs.
type StaticMedia struct{}

// LookupMedia implements menu.MediaLookup.
func (StaticMedia) LookupMedia(_ context.Context, ref menu.FileRef) (string, error) {
	if raw := ref.String(); isHTTPURL(raw) {
		return raw, nil
	}
	return "", fmt.Errorf("%w: %q is not a URL", menu.ErrMediaNotFound, ref)
}

var _ menu.MediaLookup = StaticMedia{}
