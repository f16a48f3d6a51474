// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package menu

import "fmt"

// Item is one button of a view.
type Item struct {
	Node MenuNode
	Kind Kind
}

// ViewModel is the ordered content of one menu level.
type ViewModel struct {
	ParentID NodeID
	// Parent is the opened node, nil for the root level.
	Parent       *MenuNode
	Items        []Item
	RequiresBack bool
	// Degraded is set by ViewOrRoot when the requested level was unknown
	// and the root level was returned instead.
	Degraded bool
}

// Classify derives a node's kind from the set. It performs no I/O: under
// the fixed precedence a leaf reaches a file target only through a valid
// file reference, so the reference alone decides Download versus Link.
func Classify(set *NodeSet, node MenuNode) Kind {
	if set.HasChildren(node.ID) {
		return KindBranch
	}
	if node.FileRef.Valid() {
		return KindDownload
	}
	return KindLink
}

// View returns the children of parentID in set order. An unknown non-root
// parent yields ErrNotFound.
func View(set *NodeSet, parentID NodeID) (ViewModel, error) {
	vm := ViewModel{
		ParentID:     parentID,
		RequiresBack: parentID != Root,
	}

	if parentID != Root {
		parent, ok := set.Node(parentID)
		if !ok {
			return ViewModel{}, fmt.Errorf("%w: %d", ErrNotFound, parentID)
		}
		vm.Parent = &parent
	}

	children := set.Children(parentID)
	vm.Items = make([]Item, 0, len(children))
	for _, child := range children {
		vm.Items = append(vm.Items, Item{Node: child, Kind: Classify(set, child)})
	}
	return vm, nil
}

// ViewOrRoot is View with graceful degradation: a stale client may refer to
// an id that a refresh removed, so unknown levels fall back to the root.
// The fallback equals View(set, Root) in every field except Degraded,
// which is set so callers can tell the user the level is gone.
func ViewOrRoot(set *NodeSet, parentID NodeID) ViewModel {
	vm, err := View(set, parentID)
	if err == nil {
		return vm
	}
	vm, _ = View(set, Root)
	vm.Degraded = true
	return vm
}
