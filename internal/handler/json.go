// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler serves Telegram updates and the ops HTTP endpoints.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/olegiv/ocms-menubot/internal/menu"
)

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]any{
		"success": false,
		"error":   message,
	})
}

// writeJSONSuccess writes a JSON success response.
func writeJSONSuccess(w http.ResponseWriter, data map[string]any) {
	if data == nil {
		data = make(map[string]any)
	}
	data["success"] = true
	writeJSON(w, http.StatusOK, data)
}

// writeJSONData wraps data in a success envelope.
func writeJSONData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    data,
	})
}

// statusFor maps a domain error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, menu.ErrNotFound), errors.Is(err, menu.ErrMediaNotFound):
		return http.StatusNotFound
	case errors.Is(err, menu.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, menu.ErrMediaLookupFailed),
		errors.Is(err, menu.ErrDownloadFailed),
		errors.Is(err, menu.ErrSourceUnavailable),
		errors.Is(err, menu.ErrMalformedSource):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
