// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session describes a single navigation request. There is no
// server-side history: the only state is the level the user is looking at,
// carried in the button payload, and "back" always returns to the root.
package session

import (
	"fmt"
	"strings"

	"github.com/olegiv/ocms-menubot/internal/menu"
)

// ActionType is the verb encoded in a button payload.
type ActionType string

// Action types.
const (
	ActionOpen     ActionType = "open"
	ActionDownload ActionType = "file"
	ActionBack     ActionType = "back"
	// ActionVoid marks a leaf whose link could not be resolved; pressing it
	// produces a notice instead of navigation.
	ActionVoid ActionType = "void"
)

// MaxPayloadLen is the Telegram limit for callback_data.
const MaxPayloadLen = 64

// Action is a decoded button payload.
type Action struct {
	Type ActionType
	ID   menu.NodeID
}

// Open returns an action that opens the level below id.
func Open(id menu.NodeID) Action { return Action{Type: ActionOpen, ID: id} }

// Download returns an action that sends the file behind id.
func Download(id menu.NodeID) Action { return Action{Type: ActionDownload, ID: id} }

// Back returns the back action.
func Back() Action { return Action{Type: ActionBack} }

// Void returns the action for an unresolvable leaf.
func Void(id menu.NodeID) Action { return Action{Type: ActionVoid, ID: id} }

// Encode renders the action as a callback payload: "open:12", "file:7",
// "void:3" or "back".
func (a Action) Encode() string {
	if a.Type == ActionBack {
		return string(ActionBack)
	}
	return string(a.Type) + ":" + a.ID.String()
}

// ParseAction decodes a callback payload. Anything it does not recognize,
// including payloads produced by older bot versions, is ErrInvalidRequest.
func ParseAction(data string) (Action, error) {
	data = strings.TrimSpace(data)
	if len(data) == 0 || len(data) > MaxPayloadLen {
		return Action{}, fmt.Errorf("%w: payload length %d", menu.ErrInvalidRequest, len(data))
	}
	if data == string(ActionBack) {
		return Back(), nil
	}

	verb, rawID, ok := strings.Cut(data, ":")
	if !ok {
		return Action{}, fmt.Errorf("%w: payload %q", menu.ErrInvalidRequest, data)
	}

	id, err := menu.ParseNodeID(rawID)
	if err != nil {
		return Action{}, err
	}

	switch t := ActionType(verb); t {
	case ActionOpen:
		return Open(id), nil
	case ActionDownload, ActionVoid:
		if id == menu.Root {
			return Action{}, fmt.Errorf("%w: %s needs a node id", menu.ErrInvalidRequest, t)
		}
		return Action{Type: t, ID: id}, nil
	default:
		return Action{}, fmt.Errorf("%w: unknown action %q", menu.ErrInvalidRequest, verb)
	}
}

// Context is the navigation state of one interaction.
type Context struct {
	ParentID menu.NodeID
}

// Start returns the context of a fresh conversation: the root level.
func Start() Context {
	return Context{ParentID: menu.Root}
}

// Apply returns the context after the action. Open and Void move to the
// node, Back moves to the root, Download leaves the level unchanged.
func (c Context) Apply(a Action) Context {
	switch a.Type {
	case ActionOpen, ActionVoid:
		return Context{ParentID: a.ID}
	case ActionBack:
		return Start()
	default:
		return c
	}
}

// IsRoot reports whether the context points at the top level.
func (c Context) IsRoot() bool {
	return c.ParentID == menu.Root
}
