// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package menu

import (
	"fmt"
	"slices"
)

// NodeSet is an immutable snapshot of the menu tree. Iteration order is the
// source order, which is CMS-authored and therefore meaningful.
//
// The parent index is built once per set so child lookups are O(1).
type NodeSet struct {
	nodes    []MenuNode
	index    map[NodeID]int
	children map[NodeID][]int
}

// EmptyNodeSet returns a set without nodes.
func EmptyNodeSet() *NodeSet {
	return newNodeSet(nil)
}

func newNodeSet(nodes []MenuNode) *NodeSet {
	s := &NodeSet{
		nodes:    nodes,
		index:    make(map[NodeID]int, len(nodes)),
		children: make(map[NodeID][]int),
	}
	for i, n := range nodes {
		s.index[n.ID] = i
		s.children[n.ParentID] = append(s.children[n.ParentID], i)
	}
	return s
}

// Load validates raw records and builds a NodeSet. Any record without an id
// or parent, a duplicate id, or a parent cycle fails the whole load with
// ErrMalformedSource.
func Load(records []RawRecord) (*NodeSet, error) {
	nodes := make([]MenuNode, 0, len(records))
	seen := make(map[NodeID]int, len(records))

	for i := range records {
		rec := &records[i]
		if err := validateRecord(rec); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrMalformedSource, i, err)
		}

		n := rec.node()
		if first, dup := seen[n.ID]; dup {
			return nil, fmt.Errorf("%w: record %d: duplicate id %d (first seen at record %d)", ErrMalformedSource, i, n.ID, first)
		}
		if n.ParentID == n.ID {
			return nil, fmt.Errorf("%w: record %d: node %d is its own parent", ErrMalformedSource, i, n.ID)
		}
		seen[n.ID] = i
		nodes = append(nodes, n)
	}

	set := newNodeSet(nodes)
	if id, ok := set.findCycle(); ok {
		return nil, fmt.Errorf("%w: parent cycle through node %d", ErrMalformedSource, id)
	}
	return set, nil
}

// Repair appends one placeholder node per parent id that is referenced but
// absent, in ascending id order, attached to Root. Repairing a consistent
// set returns it unchanged.
func Repair(set *NodeSet) *NodeSet {
	if set == nil {
		return EmptyNodeSet()
	}

	missing := set.MissingParents()
	if len(missing) == 0 {
		return set
	}

	nodes := make([]MenuNode, len(set.nodes), len(set.nodes)+len(missing))
	copy(nodes, set.nodes)
	for _, id := range missing {
		nodes = append(nodes, placeholderNode(id))
	}
	return newNodeSet(nodes)
}

// MissingParents returns the referenced parent ids that have no node,
// sorted ascending.
func (s *NodeSet) MissingParents() []NodeID {
	if s == nil {
		return nil
	}

	var missing []NodeID
	for parent := range s.children {
		if parent == Root {
			continue
		}
		if _, ok := s.index[parent]; !ok {
			missing = append(missing, parent)
		}
	}
	slices.Sort(missing)
	return missing
}

// Len returns the number of nodes.
func (s *NodeSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.nodes)
}

// Nodes returns a copy of all nodes in set order.
func (s *NodeSet) Nodes() []MenuNode {
	if s == nil {
		return nil
	}
	return slices.Clone(s.nodes)
}

// Node returns the node with the given id.
func (s *NodeSet) Node(id NodeID) (MenuNode, bool) {
	if s == nil {
		return MenuNode{}, false
	}
	i, ok := s.index[id]
	if !ok {
		return MenuNode{}, false
	}
	return s.nodes[i], true
}

// Contains reports whether a node with the given id exists.
func (s *NodeSet) Contains(id NodeID) bool {
	_, ok := s.Node(id)
	return ok
}

// HasChildren reports whether any node has id as its parent.
func (s *NodeSet) HasChildren(id NodeID) bool {
	if s == nil {
		return false
	}
	return len(s.children[id]) > 0
}

// Children returns the nodes whose parent is id, in set order.
func (s *NodeSet) Children(id NodeID) []MenuNode {
	if s == nil {
		return nil
	}
	idx := s.children[id]
	out := make([]MenuNode, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.nodes[i])
	}
	return out
}

// Depth returns the number of parent hops from id up to Root, and false if
// the chain hits a missing node or exceeds the set size.
func (s *NodeSet) Depth(id NodeID) (int, bool) {
	if id == Root {
		return 0, true
	}
	depth := 0
	for cur := id; cur != Root; depth++ {
		if depth > s.Len() {
			return 0, false
		}
		n, ok := s.Node(cur)
		if !ok {
			return 0, false
		}
		cur = n.ParentID
	}
	return depth, true
}

// findCycle walks every parent chain once and reports a node that lies on
// a cycle. Chains that end at Root or at a missing parent are fine.
func (s *NodeSet) findCycle() (NodeID, bool) {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[NodeID]int, len(s.nodes))

	for _, n := range s.nodes {
		var path []NodeID
		for cur := n.ID; ; {
			switch state[cur] {
			case visiting:
				return cur, true
			case done:
			default:
				state[cur] = visiting
				path = append(path, cur)
				parent := s.nodes[s.index[cur]].ParentID
				if _, ok := s.index[parent]; parent != Root && ok {
					cur = parent
					continue
				}
			}
			break
		}
		for _, id := range path {
			state[id] = done
		}
	}
	return 0, false
}
