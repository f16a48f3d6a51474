// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package menu

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// RawRecord is one menu record as served by the content API:
//
//	{"id": 12, "parent": 2, "name": "Space", "link": "...",
//	 "acf": {"url": "https://...", "upload_file": 42}, "description": "..."}
//
// ID and Parent are pointers so that a missing field is distinguishable
// from an explicit zero.
type RawRecord struct {
	ID          *int64 `json:"id" validate:"required,gt=0"`
	Parent      *int64 `json:"parent" validate:"required,gte=0"`
	Name        string `json:"name"`
	ACF         ACF    `json:"acf"`
	Link        string `json:"link"`
	Description string `json:"description,omitempty"`
}

// ACF holds the custom fields attached to a menu record.
type ACF struct {
	URL        string  `json:"url,omitempty"`
	UploadFile FileRef `json:"upload_file,omitempty"`
}

// UnmarshalJSON accepts the shapes WordPress emits for an empty field
// group (false, null, []) in addition to the regular object.
func (a *ACF) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if isEmptyJSON(data) {
		*a = ACF{}
		return nil
	}
	if data[0] != '{' {
		return fmt.Errorf("acf: unexpected JSON %s", truncate(data))
	}

	var raw struct {
		URL        json.RawMessage `json:"url"`
		UploadFile FileRef         `json:"upload_file"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("acf: %w", err)
	}

	a.UploadFile = raw.UploadFile
	a.URL = ""
	if u := bytes.TrimSpace(raw.URL); len(u) > 0 && u[0] == '"' {
		if err := json.Unmarshal(u, &a.URL); err != nil {
			return fmt.Errorf("acf.url: %w", err)
		}
	}
	return nil
}

// UnmarshalJSON normalizes the file field, which may be a media id (number
// or numeric string), a URL string, false/null, or an ACF file object.
func (r *FileRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if isEmptyJSON(data) {
		*r = ""
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("upload_file: %w", err)
		}
		*r = FileRef(normalizeFileRef(s))
	case '{':
		var obj struct {
			ID  json.Number `json:"id"`
			URL string      `json:"url"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("upload_file: %w", err)
		}
		ref := normalizeFileRef(obj.ID.String())
		if ref == "" {
			ref = normalizeFileRef(obj.URL)
		}
		*r = FileRef(ref)
	case 't':
		return fmt.Errorf("upload_file: unexpected JSON %s", truncate(data))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("upload_file: %w", err)
		}
		*r = FileRef(normalizeFileRef(n.String()))
	}
	return nil
}

// DecodeRecords parses a JSON array of raw menu records.
func DecodeRecords(data []byte) ([]RawRecord, error) {
	var records []RawRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSource, err)
	}
	return records, nil
}

// node converts a validated record into a MenuNode.
func (rec *RawRecord) node() MenuNode {
	return MenuNode{
		ID:           NodeID(*rec.ID),
		ParentID:     NodeID(*rec.Parent),
		Name:         strings.TrimSpace(html.UnescapeString(rec.Name)),
		ExplicitURL:  strings.TrimSpace(rec.ACF.URL),
		FileRef:      FileRef(normalizeFileRef(string(rec.ACF.UploadFile))),
		FallbackLink: strings.TrimSpace(rec.Link),
		Description:  strings.TrimSpace(rec.Description),
	}
}

// validateRecord checks the struct tags and formats the first failures
// into a readable message.
func validateRecord(rec *RawRecord) error {
	err := validate.Struct(rec)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, formatFieldError(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func formatFieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func isEmptyJSON(data []byte) bool {
	switch string(data) {
	case "", "null", "false", "[]", `""`:
		return true
	}
	return false
}

func truncate(data []byte) string {
	const max = 32
	if len(data) > max {
		return string(data[:max]) + "..."
	}
	return string(data)
}
