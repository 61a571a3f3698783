// Package telegram is the chat transport: message delivery with inline
// keyboards, media forwarding and update ingestion via long polling.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/janic0/autotwitter/internal/logging"
)

// ParseModeMarkdownV2 opts a message into MarkdownV2 formatting. Literal
// text must be escaped with EscapeMarkdownV2 first.
const ParseModeMarkdownV2 = "MarkdownV2"

// DefaultBaseURL is the production Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// requestTimeout bounds ordinary calls. Long polling gets its own deadline
// derived from the poll duration.
const requestTimeout = 15 * time.Second

// SendOptions controls message formatting and attachments.
type SendOptions struct {
	ParseMode        string
	Keyboard         InlineKeyboard
	ReplyToMessageID int64
}

// Client talks to the Bot API for one bot token.
type Client struct {
	token   string
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the Bot API endpoint (for tests).
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.client = client }
}

// NewClient creates a Bot API client.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		token:   token,
		baseURL: DefaultBaseURL,
		client:  &http.Client{},
		logger:  logging.Component("telegram"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

func (c *Client) call(ctx context.Context, method string, payload any, out any) error {
	// Bound the call unless the caller brought its own deadline, as long
	// polling does.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, requestTimeout)
		defer cancel()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	response, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("bot api request failed: %w", err)
	}
	defer func() {
		_ = response.Body.Close()
	}()

	var envelope apiResponse
	if err := json.NewDecoder(response.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !envelope.OK {
		return fmt.Errorf("bot api %s failed: %s", method, envelope.Description)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("failed to decode result: %w", err)
		}
	}
	return nil
}

type replyMarkup struct {
	InlineKeyboard InlineKeyboard `json:"inline_keyboard"`
}

func markup(kb InlineKeyboard) *replyMarkup {
	if len(kb) == 0 {
		return nil
	}
	return &replyMarkup{InlineKeyboard: kb}
}

// SendMessage sends a text message and returns its message id.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, opts SendOptions) (int64, error) {
	payload := struct {
		ChatID           int64        `json:"chat_id"`
		Text             string       `json:"text"`
		ParseMode        string       `json:"parse_mode,omitempty"`
		ReplyToMessageID int64        `json:"reply_to_message_id,omitempty"`
		ReplyMarkup      *replyMarkup `json:"reply_markup,omitempty"`
	}{chatID, text, opts.ParseMode, opts.ReplyToMessageID, markup(opts.Keyboard)}

	var msg Message
	if err := c.call(ctx, "sendMessage", payload, &msg); err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// EditMessage replaces the text and keyboard of an existing message.
func (c *Client) EditMessage(ctx context.Context, chatID, messageID int64, text string, opts SendOptions) error {
	payload := struct {
		ChatID      int64        `json:"chat_id"`
		MessageID   int64        `json:"message_id"`
		Text        string       `json:"text"`
		ParseMode   string       `json:"parse_mode,omitempty"`
		ReplyMarkup *replyMarkup `json:"reply_markup,omitempty"`
	}{chatID, messageID, text, opts.ParseMode, markup(opts.Keyboard)}
	return c.call(ctx, "editMessageText", payload, nil)
}

// SendPhoto forwards a photo by URL.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, photoURL string) error {
	payload := struct {
		ChatID int64  `json:"chat_id"`
		Photo  string `json:"photo"`
	}{chatID, photoURL}
	return c.call(ctx, "sendPhoto", payload, nil)
}

// SendVideo forwards a video by URL.
func (c *Client) SendVideo(ctx context.Context, chatID int64, videoURL string) error {
	payload := struct {
		ChatID int64  `json:"chat_id"`
		Video  string `json:"video"`
	}{chatID, videoURL}
	return c.call(ctx, "sendVideo", payload, nil)
}

// SendMediaGroup forwards several attachments as one album.
func (c *Client) SendMediaGroup(ctx context.Context, chatID int64, media []InputMedia) error {
	payload := struct {
		ChatID int64        `json:"chat_id"`
		Media  []InputMedia `json:"media"`
	}{chatID, media}
	return c.call(ctx, "sendMediaGroup", payload, nil)
}

// AnswerCallback acknowledges a button press, optionally flashing a notice.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	payload := struct {
		CallbackQueryID string `json:"callback_query_id"`
		Text            string `json:"text,omitempty"`
	}{callbackID, text}
	return c.call(ctx, "answerCallbackQuery", payload, nil)
}

// GetUpdates long-polls for updates after the given offset. The HTTP
// deadline is stretched past the poll window so the server can hold the
// request open.
func (c *Client) GetUpdates(ctx context.Context, offset int64, poll time.Duration) ([]Update, error) {
	payload := struct {
		Offset  int64 `json:"offset,omitempty"`
		Timeout int   `json:"timeout"`
	}{offset, int(poll.Seconds())}

	ctx, cancel := context.WithTimeout(ctx, poll+requestTimeout)
	defer cancel()

	var updates []Update
	if err := c.call(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}
