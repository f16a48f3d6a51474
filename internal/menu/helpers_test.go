// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package menu

import (
	"fmt"
	"math/rand/v2"
	"testing"
)

func ptr(v int64) *int64 { return &v }

// record builds a raw record; file and url may be empty.
func record(id, parent int64, name, url string, file FileRef, link string) RawRecord {
	return RawRecord{
		ID:     ptr(id),
		Parent: ptr(parent),
		Name:   name,
		ACF:    ACF{URL: url, UploadFile: file},
		Link:   link,
	}
}

func mustLoad(t *testing.T, records ...RawRecord) *NodeSet {
	t.Helper()
	set, err := Load(records)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	return set
}

// randomRecords generates an acyclic record set. Parents are either Root,
// an earlier id, or an id that does not exist (dangling).
func randomRecords(r *rand.Rand, n int) []RawRecord {
	records := make([]RawRecord, 0, n)
	ids := make([]int64, 0, n)
	next := int64(1)
	for i := 0; i < n; i++ {
		next += int64(r.IntN(3) + 1)
		id := next

		var parent int64
		switch r.IntN(3) {
		case 0:
			parent = 0
		case 1:
			if len(ids) > 0 {
				parent = ids[r.IntN(len(ids))]
			}
		default:
			parent = 10_000 + int64(r.IntN(5))
		}

		var file FileRef
		if r.IntN(4) == 0 {
			file = FileRef(fmt.Sprint(r.IntN(100) + 1))
		}
		url := ""
		if r.IntN(2) == 0 {
			url = fmt.Sprintf("https://example.com/%d", id)
		}

		records = append(records, record(id, parent, fmt.Sprintf("Node %d", id), url, file, fmt.Sprintf("https://cms/%d", id)))
		ids = append(ids, id)
	}
	return records
}
