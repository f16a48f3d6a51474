// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"strings"
	"testing"

	"github.com/olegiv/ocms-menubot/internal/menu"
)

func node(id, parent int64, name string) menu.MenuNode {
	return menu.MenuNode{ID: menu.NodeID(id), ParentID: menu.NodeID(parent), Name: name}
}

func TestView_Root(t *testing.T) {
	r := New(Options{})

	about := node(1, 0, "About")
	about.ExplicitURL = "https://x.test/about"
	docs := node(2, 0, "Docs")
	deck := node(3, 0, "Deck")
	deck.FileRef = "42"
	empty := node(4, 0, "Soon")
	bad := node(5, 0, "Bad")
	bad.ExplicitURL = "javascript:alert(1)"

	msg := r.View(menu.ViewModel{
		ParentID: menu.Root,
		Items: []menu.Item{
			{Node: about, Kind: menu.KindLink},
			{Node: docs, Kind: menu.KindBranch},
			{Node: deck, Kind: menu.KindDownload},
			{Node: empty, Kind: menu.KindLink},
			{Node: bad, Kind: menu.KindLink},
		},
	})

	if !strings.HasPrefix(msg.Text, "👋 Welcome to New Venture Brokerage!") {
		t.Errorf("Text = %q, want welcome text", msg.Text)
	}
	if strings.Contains(msg.Text, "We&#39;re") == false {
		t.Errorf("welcome text should be HTML-escaped: %q", msg.Text)
	}

	want := []Button{
		{Label: "About", Action: ActionLink, NodeID: 1, URL: "https://x.test/about"},
		{Label: "Docs", Action: ActionOpen, NodeID: 2},
		{Label: "Deck", Action: ActionDownload, NodeID: 3},
		{Label: "Soon", Action: ActionVoid, NodeID: 4},
		{Label: "Bad", Action: ActionVoid, NodeID: 5},
	}
	if len(msg.Rows) != len(want) {
		t.Fatalf("rows = %d, want %d (no back button at root)", len(msg.Rows), len(want))
	}
	for i, w := range want {
		if len(msg.Rows[i]) != 1 || msg.Rows[i][0] != w {
			t.Errorf("row %d = %+v, want %+v", i, msg.Rows[i], w)
		}
	}
}

func TestView_SubLevel(t *testing.T) {
	r := New(Options{BackLabel: "Back"})
	parent := node(2, 0, "Docs & Guides")

	msg := r.View(menu.ViewModel{
		ParentID:     2,
		Parent:       &parent,
		Items:        []menu.Item{{Node: node(12, 2, "Guide"), Kind: menu.KindBranch}},
		RequiresBack: true,
	})

	if msg.Text != "<b>Docs &amp; Guides</b>" {
		t.Errorf("Text = %q", msg.Text)
	}
	last := msg.Rows[len(msg.Rows)-1]
	if len(last) != 1 || last[0].Action != ActionBack || last[0].Label != "Back" {
		t.Errorf("last row = %+v, want back button", last)
	}
	if got := last[0].CallbackData(); got != "back" {
		t.Errorf("back CallbackData = %q", got)
	}
}

func TestView_EmptyLevels(t *testing.T) {
	r := New(Options{EmptyText: "Nothing here"})

	leaf := node(4, 0, "Learn")
	msg := r.View(menu.ViewModel{ParentID: 4, Parent: &leaf, RequiresBack: true})
	if msg.Text != "Nothing here" {
		t.Errorf("leaf Text = %q", msg.Text)
	}
	if len(msg.Rows) != 1 || msg.Rows[0][0].Action != ActionBack {
		t.Errorf("leaf rows = %+v, want only back", msg.Rows)
	}

	described := node(4, 0, "Learn")
	described.Description = "📚 Educational content is coming soon!"
	msg = r.View(menu.ViewModel{ParentID: 4, Parent: &described, RequiresBack: true})
	if msg.Text != "📚 Educational content is coming soon!" {
		t.Errorf("described leaf Text = %q", msg.Text)
	}

	msg = r.View(menu.ViewModel{ParentID: menu.Root})
	if !strings.HasSuffix(msg.Text, "\n\nNothing here") {
		t.Errorf("empty root Text = %q", msg.Text)
	}
	if len(msg.Rows) != 0 {
		t.Errorf("empty root rows = %+v", msg.Rows)
	}
}

func TestDescription(t *testing.T) {
	r := New(Options{})

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Our current opportunities:", "Our current opportunities:"},
		{"bold", "**Hi** there", "<strong>Hi</strong> there"},
		{"hard wrap", "line one\nline two", "line one\nline two"},
		{"paragraphs", "one\n\n\n\ntwo", "one\n\ntwo"},
		{"link", "[site](https://x.test)", `<a href="https://x.test">site</a>`},
		{"list", "- a\n- b", "• a\n• b"},
		{"heading", "# Title", "<b>Title</b>"},
		{"ampersand", "R&D", "R&amp;D"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Description(tt.in); got != tt.want {
				t.Errorf("Description(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDescription_Sanitizes(t *testing.T) {
	r := New(Options{})

	for _, in := range []string{
		"<script>alert(1)</script>",
		`<a href="javascript:alert(1)">x</a>`,
		`<img src=x onerror="alert(1)">`,
		`<div onclick="alert(1)">hi</div>`,
	} {
		got := r.Description(in)
		if strings.Contains(got, "alert") && strings.Contains(got, "<") {
			t.Errorf("Description(%q) = %q, still carries markup", in, got)
		}
		for _, tag := range []string{"<script", "<img", "<div", "javascript:"} {
			if strings.Contains(got, tag) {
				t.Errorf("Description(%q) = %q contains %s", in, got, tag)
			}
		}
	}
}

func TestButtonCallbackData(t *testing.T) {
	tests := []struct {
		b    Button
		want string
	}{
		{Button{Action: ActionOpen, NodeID: 3}, "open:3"},
		{Button{Action: ActionDownload, NodeID: 8}, "file:8"},
		{Button{Action: ActionVoid, NodeID: 4}, "void:4"},
		{Button{Action: ActionBack}, "back"},
		{Button{Action: ActionLink, URL: "https://x.test"}, ""},
	}
	for _, tt := range tests {
		if got := tt.b.CallbackData(); got != tt.want {
			t.Errorf("%s CallbackData() = %q, want %q", tt.b.Action, got, tt.want)
		}
	}
}
