// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package menu

// Error represents a menu core error. Values are comparable, so callers
// match them with errors.Is through any amount of wrapping.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	// ErrMalformedSource indicates a record set that cannot form a menu.
	// The whole load attempt fails; no partial menu is produced.
	ErrMalformedSource Error = "malformed menu source"

	// ErrSourceUnavailable indicates the menu source answered with a
	// non-success status or could not be reached.
	ErrSourceUnavailable Error = "menu source unavailable"

	// ErrNotFound indicates a requested node id is absent from the node set.
	ErrNotFound Error = "menu node not found"

	// ErrNoTarget indicates a leaf whose link fields are all blank.
	ErrNoTarget Error = "no resolvable target"

	// ErrMediaNotFound is returned by a MediaLookup for an unknown reference.
	ErrMediaNotFound Error = "media not found"

	// ErrMediaLookupFailed indicates the file reference could not be mapped to a URL.
	ErrMediaLookupFailed Error = "media lookup failed"

	// ErrDownloadFailed indicates the file bytes could not be retrieved.
	ErrDownloadFailed Error = "download failed"

	// ErrInvalidRequest indicates a malformed interaction payload.
	ErrInvalidRequest Error = "invalid request"
)
