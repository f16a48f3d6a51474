// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/olegiv/ocms-menubot/internal/cache"
	"github.com/olegiv/ocms-menubot/internal/logging"
	"github.com/olegiv/ocms-menubot/internal/render"
	"github.com/olegiv/ocms-menubot/internal/service"
	"github.com/olegiv/ocms-menubot/internal/telegram"
)

// Bot commands.
const (
	CommandStart   = "/start"
	CommandMenu    = "/menu"
	CommandRefresh = "/refresh"
)

// updateTimeout bounds the handling of one update, uploads included.
const updateTimeout = 3 * time.Minute

// BotAPI is the subset of the Bot API the bot calls.
type BotAPI interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) error
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, markup *telegram.InlineKeyboardMarkup) error
	AnswerCallbackQuery(ctx context.Context, queryID, text string) error
	SendDocument(ctx context.Context, chatID int64, filename string, body io.Reader, caption string) error
}

// MenuController is the chat side of the menu service.
type MenuController interface {
	Root(ctx context.Context) service.Screen
	Handle(ctx context.Context, data string) service.Result
	Refresh(ctx context.Context) (*cache.Epoch, error)
}

// BotHandler turns updates into menu screens.
type BotHandler struct {
	api    BotAPI
	menus  MenuController
	logger *slog.Logger
}

// NewBotHandler creates a BotHandler.
func NewBotHandler(api BotAPI, menus MenuController, logger *slog.Logger) *BotHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BotHandler{api: api, menus: menus, logger: logger}
}

// HandleUpdate implements telegram.Handler.
func (h *BotHandler) HandleUpdate(ctx context.Context, u telegram.Update) error {
	ctx, cancel := context.WithTimeout(logging.WithInteraction(ctx, u.ChatID(), u.UpdateID), updateTimeout)
	defer cancel()

	switch {
	case u.CallbackQuery != nil:
		return h.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil:
		return h.handleMessage(ctx, u.Message)
	default:
		return nil
	}
}

func (h *BotHandler) handleMessage(ctx context.Context, msg *telegram.Message) error {
	if msg.Chat == nil {
		return nil
	}

	switch command(msg.Text) {
	case CommandStart, CommandMenu:
		screen := h.menus.Root(ctx)
		return h.api.SendMessage(ctx, msg.Chat.ID, screen.Message.Text, Keyboard(screen.Message))
	case CommandRefresh:
		text := service.NoticeRefreshed
		if _, err := h.menus.Refresh(ctx); err != nil {
			text = service.NoticeRefreshFail
		}
		return h.api.SendMessage(ctx, msg.Chat.ID, render.Notice(text), nil)
	default:
		h.logger.DebugContext(ctx, "ignoring message", "text_len", len(msg.Text))
		return nil
	}
}

func (h *BotHandler) handleCallback(ctx context.Context, q *telegram.CallbackQuery) error {
	res := h.menus.Handle(ctx, q.Data)

	// Answer first so the client stops its progress indicator, even when
	// the upload below takes a while.
	if err := h.api.AnswerCallbackQuery(ctx, q.ID, res.Notice); err != nil {
		h.logger.WarnContext(ctx, "answerCallbackQuery failed", "error", err)
	}

	chatID := callbackChatID(q)
	if chatID == 0 {
		if res.File != nil {
			_ = res.File.Body.Close()
		}
		return errors.New("callback query without chat")
	}

	switch {
	case res.File != nil:
		defer func() { _ = res.File.Body.Close() }()
		if err := h.api.SendDocument(ctx, chatID, res.File.Name, res.File.Body, ""); err != nil {
			h.logger.WarnContext(ctx, "sending document failed", "file", res.File.Name, "error", err)
			return h.api.SendMessage(ctx, chatID, render.Notice(service.NoticeFileFailed), nil)
		}
		return nil
	case res.Screen != nil:
		return h.show(ctx, q, chatID, res.Screen.Message)
	default:
		return nil
	}
}

// show edits the message the button belongs to, or sends a new one when
// the original can no longer be edited.
func (h *BotHandler) show(ctx context.Context, q *telegram.CallbackQuery, chatID int64, msg render.Message) error {
	markup := Keyboard(msg)
	if q.Message != nil && q.Message.MessageID != 0 {
		err := h.api.EditMessageText(ctx, chatID, q.Message.MessageID, msg.Text, markup)
		if err == nil || telegram.IsNotModified(err) {
			return nil
		}
		h.logger.InfoContext(ctx, "edit failed, sending a new message", "error", err)
	}
	return h.api.SendMessage(ctx, chatID, msg.Text, markup)
}

// Keyboard converts rendered rows to an inline keyboard. An empty keyboard
// is returned rather than nil so that edits remove stale buttons.
func Keyboard(msg render.Message) *telegram.InlineKeyboardMarkup {
	markup := &telegram.InlineKeyboardMarkup{InlineKeyboard: make([][]telegram.InlineKeyboardButton, 0, len(msg.Rows))}
	for _, row := range msg.Rows {
		buttons := make([]telegram.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			btn := telegram.InlineKeyboardButton{Text: b.Label}
			if b.Action == render.ActionLink {
				btn.URL = b.URL
			} else {
				btn.CallbackData = b.CallbackData()
			}
			buttons = append(buttons, btn)
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, buttons)
	}
	return markup
}

func callbackChatID(q *telegram.CallbackQuery) int64 {
	if q.Message != nil && q.Message.Chat != nil {
		return q.Message.Chat.ID
	}
	if q.From != nil {
		return q.From.ID
	}
	return 0
}

// command returns the lower-cased command of text without a @botname
// suffix, or "" when text is not a command.
func command(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd, _, _ := strings.Cut(text, " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return strings.ToLower(cmd)
}
