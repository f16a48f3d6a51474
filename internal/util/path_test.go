// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import "testing"

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "simple filename",
			input: "doc.pdf",
			want:  "doc.pdf",
		},
		{
			name:  "filename with spaces",
			input: "my deck.pdf",
			want:  "my deck.pdf",
		},
		{
			name:  "path traversal attempt",
			input: "../../../etc/passwd",
			want:  "passwd",
		},
		{
			name:  "path with directory",
			input: "uploads/2025/06/deck.pdf",
			want:  "deck.pdf",
		},
		{
			name:    "single dot",
			input:   ".",
			wantErr: true,
		},
		{
			name:    "double dot",
			input:   "..",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeFilename(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SanitizeFilename(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestLastURLSegment(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain file", "https://files/doc.pdf", "doc.pdf"},
		{"nested path", "https://example.com/wp-content/uploads/2025/06/deck.pdf", "deck.pdf"},
		{"percent encoded", "https://example.com/uploads/My%20Deck%20%282025%29.pdf", "My Deck (2025).pdf"},
		{"encoded slash splits after decoding", "https://example.com/a%2Fb.pdf", "b.pdf"},
		{"query ignored", "https://example.com/doc.pdf?v=2", "doc.pdf"},
		{"trailing slash", "https://example.com/uploads/", ""},
		{"host only", "https://example.com", ""},
		{"root", "https://example.com/", ""},
		{"unparseable", "://bad", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LastURLSegment(tt.input); got != tt.want {
				t.Errorf("LastURLSegment(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
