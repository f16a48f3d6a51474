// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util provides small helpers shared by the menu core and the
// transport layer: slug generation, filename sanitizing and network guards.
package util

import (
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slug turns a display label into a lowercase ASCII token of letters,
// digits and single hyphens. Accents are folded, other scripts are
// transliterated, and emoji or symbols without a transliteration are
// dropped, so "📄 Partnership Deck" becomes "partnership-deck".
func Slug(label string) string {
	// Transformers carry state, so the chain is built per call.
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, label)
	if err != nil {
		folded = label
	}
	ascii := strings.ToLower(unidecode.Unidecode(folded))

	var b strings.Builder
	b.Grow(len(ascii))
	gap := false
	for _, r := range ascii {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if gap && b.Len() > 0 {
				b.WriteByte('-')
			}
			gap = false
			b.WriteRune(r)
			continue
		}
		gap = true
	}
	return b.String()
}
