// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package render turns navigator view models into chat messages: Telegram
// HTML text plus an inline keyboard.
package render

import (
	"bytes"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/olegiv/ocms-menubot/internal/menu"
	"github.com/olegiv/ocms-menubot/internal/session"
)

// ParseMode is the Bot API parse mode of Message.Text.
const ParseMode = "HTML"

// Action is what pressing a button does.
type Action string

// Button actions.
const (
	ActionOpen     Action = "open"
	ActionLink     Action = "link"
	ActionDownload Action = "download"
	ActionBack     Action = "back"
	ActionVoid     Action = "void"
)

// Button is one inline keyboard button.
type Button struct {
	Label  string      `json:"label"`
	Action Action      `json:"action"`
	NodeID menu.NodeID `json:"node_id,omitempty"`
	URL    string      `json:"url,omitempty"`
}

// CallbackData returns the payload for callback buttons, "" for links.
func (b Button) CallbackData() string {
	switch b.Action {
	case ActionOpen:
		return session.Open(b.NodeID).Encode()
	case ActionDownload:
		return session.Download(b.NodeID).Encode()
	case ActionBack:
		return session.Back().Encode()
	case ActionVoid:
		return session.Void(b.NodeID).Encode()
	default:
		return ""
	}
}

// Message is a rendered menu level.
type Message struct {
	Text string     `json:"text"`
	Rows [][]Button `json:"rows"`
}

// Options holds the fixed texts.
type Options struct {
	WelcomeText string
	EmptyText   string
	BackLabel   string
}

// DefaultOptions returns the built-in New Venture Brokerage texts.
func DefaultOptions() Options {
	return Options{
		WelcomeText: "👋 Welcome to New Venture Brokerage!\n\n" +
			"We're a licensed investment platform offering access to:\n" +
			"🌐 Venture Capital | 🏢 Real Estate | 📈 ETFs\n\n" +
			"What would you like to explore?",
		EmptyText: "📚 Content is coming soon!",
		BackLabel: "⬅ Back to Menu",
	}
}

// Renderer builds messages. It is safe for concurrent use.
type Renderer struct {
	opts   Options
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

var (
	blankLinesRegex = regexp.MustCompile(`\n\s*\n(\s*\n)+`)
	headingOpen     = regexp.MustCompile(`<h[1-6][^>]*>`)
	headingClose    = regexp.MustCompile(`</h[1-6]>`)
)

// New creates a renderer. Empty options fall back to the defaults.
func New(opts Options) *Renderer {
	def := DefaultOptions()
	if opts.WelcomeText == "" {
		opts.WelcomeText = def.WelcomeText
	}
	if opts.EmptyText == "" {
		opts.EmptyText = def.EmptyText
	}
	if opts.BackLabel == "" {
		opts.BackLabel = def.BackLabel
	}

	return &Renderer{
		opts: opts,
		md: goldmark.New(goldmark.WithRendererOptions(
			gmhtml.WithHardWraps(),
			gmhtml.WithUnsafe(), // raw HTML is sanitized below
		)),
		policy: telegramPolicy(),
	}
}

// telegramPolicy allows the subset of HTML the Bot API accepts.
func telegramPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "strong", "i", "em", "u", "ins", "s", "strike", "del", "code", "pre", "blockquote")
	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https", "tg", "mailto")
	p.RequireParseableURLs(true)
	return p
}

// View renders one menu level.
func (r *Renderer) View(vm menu.ViewModel) Message {
	msg := Message{Text: r.text(vm)}

	for _, item := range vm.Items {
		msg.Rows = append(msg.Rows, []Button{r.button(item)})
	}
	if vm.RequiresBack {
		msg.Rows = append(msg.Rows, []Button{{Label: r.opts.BackLabel, Action: ActionBack}})
	}
	return msg
}

func (r *Renderer) text(vm menu.ViewModel) string {
	var head string
	switch {
	case vm.Parent == nil:
		head = html.EscapeString(r.opts.WelcomeText)
	case vm.Parent.Description != "":
		head = r.Description(vm.Parent.Description)
	case len(vm.Items) > 0:
		head = "<b>" + html.EscapeString(label(*vm.Parent)) + "</b>"
	}

	if len(vm.Items) > 0 {
		return head
	}
	if vm.Parent != nil && vm.Parent.Description != "" {
		return head
	}
	if head == "" {
		return html.EscapeString(r.opts.EmptyText)
	}
	return head + "\n\n" + html.EscapeString(r.opts.EmptyText)
}

func (r *Renderer) button(item menu.Item) Button {
	b := Button{Label: label(item.Node), NodeID: item.Node.ID}

	switch item.Kind {
	case menu.KindBranch:
		b.Action = ActionOpen
	case menu.KindDownload:
		b.Action = ActionDownload
	default:
		t := menu.ResolveLink(item.Node)
		if t.Kind == menu.LinkTarget && isButtonURL(t.URL) {
			b.Action = ActionLink
			b.URL = t.URL
		} else {
			b.Action = ActionVoid
		}
	}
	return b
}

// Description converts a Markdown (or HTML) description to Telegram HTML.
func (r *Renderer) Description(src string) string {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		slog.Warn("description conversion failed, using plain text", "error", err)
		return html.EscapeString(src)
	}

	s := buf.String()
	s = strings.NewReplacer(
		"<p>", "", "</p>", "\n\n",
		"<br>\n", "\n", "<br />\n", "\n", "<br>", "\n", "<br />", "\n",
		"<li>", "• ", "</li>\n", "\n", "</li>", "\n",
		"<hr>", "", "<hr />", "",
	).Replace(s)
	s = headingOpen.ReplaceAllString(s, "<b>")
	s = headingClose.ReplaceAllString(s, "</b>\n\n")

	s = r.policy.Sanitize(s)
	s = blankLinesRegex.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Notice renders a short plain notice as message text.
func Notice(text string) string {
	return html.EscapeString(text)
}

func label(n menu.MenuNode) string {
	if name := strings.TrimSpace(n.Name); name != "" {
		return name
	}
	return fmt.Sprintf("Item %d", n.ID)
}

// isButtonURL reports whether Telegram will accept u on a URL button.
func isButtonURL(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	switch parsed.Scheme {
	case "http", "https":
		return parsed.Host != ""
	case "tg":
		return true
	default:
		return false
	}
}
