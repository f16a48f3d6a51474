// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package telegram is a small Bot API client with a long-polling update
// loop.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultAPIURL is the public Bot API server.
const DefaultAPIURL = "https://api.telegram.org"

// maxResponseLen caps Bot API response bodies.
const maxResponseLen = 4 << 20

// APIError is a Bot API call that returned ok=false or a non-2xx status.
type APIError struct {
	Method      string
	Code        int
	Description string
	RetryAfter  int
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("telegram %s: http %d", e.Method, e.Code)
	}
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

// IsNotModified reports whether err is the Bot API refusing an edit that
// would leave the message unchanged.
func IsNotModified(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && strings.Contains(apiErr.Description, "message is not modified")
}

// CallObserver is notified after every Bot API call.
type CallObserver interface {
	ObserveTelegramCall(method string, err error)
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	// SendRate is the maximum number of outgoing calls per second,
	// getUpdates excluded. Zero disables pacing.
	SendRate float64
	Observer CallObserver
}

// Client calls Bot API methods.
type Client struct {
	http     *http.Client
	baseURL  string
	token    string
	limiter  *rate.Limiter
	observer CallObserver
}

// NewClient creates a Client.
func NewClient(opts Options) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 90 * time.Second}
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultAPIURL
	}

	c := &Client{
		http:     opts.HTTPClient,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		token:    opts.Token,
		observer: opts.Observer,
	}
	if opts.SendRate > 0 {
		burst := int(opts.SendRate)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.SendRate), burst)
	}
	return c
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters,omitempty"`
}

// GetUpdates long-polls for updates starting at offset. It returns the
// offset to use for the next call.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, int64, error) {
	secs := int(timeout.Seconds())
	if secs < 0 {
		secs = 0
	}
	q := url.Values{}
	q.Set("timeout", strconv.Itoa(secs))
	q.Set("allowed_updates", `["message","callback_query"]`)
	if offset > 0 {
		q.Set("offset", strconv.FormatInt(offset, 10))
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout+10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.methodURL("getUpdates")+"?"+q.Encode(), nil)
	if err != nil {
		return nil, offset, err
	}

	var updates []Update
	err = c.do(req, "getUpdates", &updates)
	c.observe("getUpdates", err)
	if err != nil {
		return nil, offset, err
	}

	next := offset
	for _, u := range updates {
		if u.UpdateID >= next {
			next = u.UpdateID + 1
		}
	}
	return updates, next, nil
}

// SendMessage sends an HTML message with an optional inline keyboard.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, markup *InlineKeyboardMarkup) error {
	return c.postJSON(ctx, "sendMessage", sendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
		ReplyMarkup:           markup,
	})
}

// EditMessageText replaces the text and keyboard of a message in place.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string, markup *InlineKeyboardMarkup) error {
	return c.postJSON(ctx, "editMessageText", editMessageTextRequest{
		ChatID:                chatID,
		MessageID:             messageID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
		ReplyMarkup:           markup,
	})
}

// AnswerCallbackQuery acknowledges a button press, optionally with a toast.
func (c *Client) AnswerCallbackQuery(ctx context.Context, queryID, text string) error {
	return c.postJSON(ctx, "answerCallbackQuery", answerCallbackQueryRequest{
		CallbackQueryID: queryID,
		Text:            text,
	})
}

// SendDocument uploads body as a document. The body is streamed into the
// multipart request and is not closed.
func (c *Client) SendDocument(ctx context.Context, chatID int64, filename string, body io.Reader, caption string) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	filename = strings.TrimSpace(filename)
	if filename == "" {
		filename = "file"
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := writeDocument(mw, chatID, filename, body, strings.TrimSpace(caption))
		if err == nil {
			err = mw.Close()
		}
		_ = pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendDocument"), pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	err = c.do(req, "sendDocument", nil)
	// Unblocks the writer when the request failed before draining the pipe.
	_ = pr.CloseWithError(io.ErrClosedPipe)
	c.observe("sendDocument", err)
	return err
}

func writeDocument(mw *multipart.Writer, chatID int64, filename string, body io.Reader, caption string) error {
	if err := mw.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return err
	}
	if caption != "" {
		if err := mw.WriteField("caption", caption); err != nil {
			return err
		}
	}
	part, err := mw.CreateFormFile("document", filename)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, body)
	return err
}

func (c *Client) postJSON(ctx context.Context, method string, payload any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram %s: encoding request: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	err = c.do(req, method, nil)
	c.observe(method, err)
	return err
}

func (c *Client) do(req *http.Request, method string, result any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return c.redact(err)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseLen))
	_ = resp.Body.Close()
	if err != nil {
		return fmt.Errorf("telegram %s: reading response: %w", method, err)
	}

	var out apiResponse
	if jsonErr := json.Unmarshal(raw, &out); jsonErr != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &APIError{Method: method, Code: resp.StatusCode, Description: strings.TrimSpace(string(raw))}
		}
		return fmt.Errorf("telegram %s: decoding response: %w", method, jsonErr)
	}
	if !out.OK || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Method: method, Code: out.ErrorCode, Description: out.Description}
		if apiErr.Code == 0 {
			apiErr.Code = resp.StatusCode
		}
		if out.Parameters != nil {
			apiErr.RetryAfter = out.Parameters.RetryAfter
		}
		return apiErr
	}

	if result != nil && len(out.Result) > 0 {
		if err := json.Unmarshal(out.Result, result); err != nil {
			return fmt.Errorf("telegram %s: decoding result: %w", method, err)
		}
	}
	return nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *Client) observe(method string, err error) {
	if c.observer != nil {
		c.observer.ObserveTelegramCall(method, err)
	}
}

func (c *Client) methodURL(method string) string {
	return c.baseURL + "/bot" + c.token + "/" + method
}

// redact strips the token from transport errors, which embed the URL.
func (c *Client) redact(err error) error {
	var urlErr *url.Error
	if c.token != "" && errors.As(err, &urlErr) {
		urlErr.URL = strings.ReplaceAll(urlErr.URL, c.token, "<token>")
	}
	return err
}
