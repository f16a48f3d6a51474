// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-menubot/internal/download"
	"github.com/olegiv/ocms-menubot/internal/menu"
	"github.com/olegiv/ocms-menubot/internal/render"
	"github.com/olegiv/ocms-menubot/internal/service"
)

// MenuReader is the read side of the menu service.
type MenuReader interface {
	Root(ctx context.Context) service.Screen
	Open(ctx context.Context, id menu.NodeID) (service.Screen, error)
	Download(ctx context.Context, id menu.NodeID) (*download.File, error)
}

// APIHandler serves the rendered menu as JSON, mainly for previewing
// CMS changes without a chat client.
type APIHandler struct {
	menus MenuReader
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(menus MenuReader) *APIHandler {
	return &APIHandler{menus: menus}
}

// ViewResponse is one rendered menu level.
type ViewResponse struct {
	ParentID menu.NodeID `json:"parent_id"`
	render.Message
}

// Root handles GET /api/v1/menu.
func (h *APIHandler) Root(w http.ResponseWriter, r *http.Request) {
	screen := h.menus.Root(r.Context())
	writeJSONData(w, ViewResponse{ParentID: screen.Context.ParentID, Message: screen.Message})
}

// Node handles GET /api/v1/menu/{id}.
func (h *APIHandler) Node(w http.ResponseWriter, r *http.Request) {
	id, err := menu.ParseNodeID(chi.URLParam(r, "id"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid node id")
		return
	}

	screen, err := h.menus.Open(r.Context(), id)
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	writeJSONData(w, ViewResponse{ParentID: screen.Context.ParentID, Message: screen.Message})
}

// Download handles GET /api/v1/download/{id} by streaming the node's file.
func (h *APIHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := menu.ParseNodeID(chi.URLParam(r, "id"))
	if err != nil || id == menu.Root {
		writeJSONError(w, http.StatusBadRequest, "invalid node id")
		return
	}

	file, err := h.menus.Download(r.Context(), id)
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	defer func() { _ = file.Body.Close() }()

	w.Header().Set("Content-Type", file.ContentType)
	if cd := mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}); cd != "" {
		w.Header().Set("Content-Disposition", cd)
	}
	if file.Size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, file.Body); err != nil {
		slog.WarnContext(r.Context(), "download stream interrupted", "node_id", id, "error", err)
	}
}
