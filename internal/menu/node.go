// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package menu implements the menu tree core: loading and repairing the flat
// record set, classifying nodes, building per-level views and resolving a
// leaf to a link or a downloadable file.
//
// Everything here except Resolver.Resolve is pure and safe for concurrent
// use on a shared *NodeSet.
package menu

import (
	"fmt"
	"strconv"
	"strings"
)

// NodeID identifies a menu node. Root (0) is the top level sentinel.
type NodeID int64

// Root is the parent id of top level nodes.
const Root NodeID = 0

func (id NodeID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseNodeID parses a decimal node id. Negative values are rejected.
func ParseNodeID(s string) (NodeID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: node id %q", ErrInvalidRequest, s)
	}
	return NodeID(n), nil
}

// FileRef is an opaque reference to a binary resource, usually a numeric
// media id of the content API. The empty string means no reference.
type FileRef string

// Valid reports whether the reference points at something resolvable.
func (r FileRef) Valid() bool {
	return normalizeFileRef(string(r)) != ""
}

func (r FileRef) String() string {
	return string(r)
}

// normalizeFileRef maps the "nothing" spellings CMSs use to the empty ref.
func normalizeFileRef(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "0", "false", "null":
		return ""
	}
	return s
}

// Kind is the derived classification of a node within a NodeSet.
type Kind int

const (
	// KindLink is a leaf rendered as a URL button.
	KindLink Kind = iota
	// KindDownload is a leaf whose target is a file.
	KindDownload
	// KindBranch is a node with at least one child.
	KindBranch
)

func (k Kind) String() string {
	switch k {
	case KindBranch:
		return "branch"
	case KindDownload:
		return "download"
	default:
		return "link"
	}
}

// MenuNode is one entry of the menu tree.
type MenuNode struct {
	ID           NodeID  `json:"id"`
	ParentID     NodeID  `json:"parent_id"`
	Name         string  `json:"name"`
	ExplicitURL  string  `json:"explicit_url,omitempty"`
	FileRef      FileRef `json:"file_ref,omitempty"`
	FallbackLink string  `json:"fallback_link,omitempty"`
	Description  string  `json:"description,omitempty"`

	// Placeholder marks a node synthesized by Repair for a missing parent.
	Placeholder bool `json:"placeholder,omitempty"`
}

// placeholderNode builds the node Repair injects for a referenced but
// missing parent id.
func placeholderNode(id NodeID) MenuNode {
	return MenuNode{
		ID:          id,
		ParentID:    Root,
		Name:        fmt.Sprintf("Section %d", id),
		Placeholder: true,
	}
}
