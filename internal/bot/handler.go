package bot

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/janic0/autotwitter/internal/account"
	"github.com/janic0/autotwitter/internal/logging"
	"github.com/janic0/autotwitter/internal/models"
	"github.com/janic0/autotwitter/internal/replyqueue"
	"github.com/janic0/autotwitter/internal/store"
	"github.com/janic0/autotwitter/internal/telegram"
	"github.com/janic0/autotwitter/internal/twitter"
)

// linkTokenTTL bounds how long an issued /start login token stays valid.
const linkTokenTTL = time.Hour

// TokenSource yields access tokens per account.
type TokenSource interface {
	Token(ctx context.Context, accountID string) (string, error)
}

// Deduper guards outward sends against duplicate delivery of the same
// update.
type Deduper interface {
	TryAcquire(key string) bool
	Release(key string)
}

// Notifier is the slice of the chat transport the handler replies through.
type Notifier interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts telegram.SendOptions) (int64, error)
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// Handler processes inbound chat updates: commands, free-text answers and
// inline-button callbacks.
type Handler struct {
	queue    *replyqueue.Service
	accounts *account.Service
	tokens   TokenSource
	api      twitter.API
	notifier Notifier
	store    store.Store
	dedupe   Deduper
	loginURL string
	logger   zerolog.Logger

	newToken func() string
	now      func() time.Time
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithLinkTokenSource overrides link token generation (for tests).
func WithLinkTokenSource(newToken func() string) HandlerOption {
	return func(h *Handler) { h.newToken = newToken }
}

// WithClock overrides the time source (for tests).
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) { h.now = now }
}

// WithDeduper installs a guard against redelivered updates triggering the
// same outward send twice.
func WithDeduper(d Deduper) HandlerOption {
	return func(h *Handler) { h.dedupe = d }
}

// NewHandler creates an update handler. loginURL is the public address users
// complete the platform login on.
func NewHandler(queue *replyqueue.Service, accounts *account.Service, tokens TokenSource, api twitter.API, notifier Notifier, kv store.Store, loginURL string, opts ...HandlerOption) *Handler {
	h := &Handler{
		queue:    queue,
		accounts: accounts,
		tokens:   tokens,
		api:      api,
		notifier: notifier,
		store:    kv,
		loginURL: strings.TrimRight(loginURL, "/"),
		logger:   logging.Component("bot"),
		newToken: uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleUpdate routes one inbound update. Errors are returned for logging;
// user-visible failures have already been reported into the chat.
func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	switch {
	case update.Message != nil:
		return h.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		return h.handleCallback(ctx, update.CallbackQuery)
	}
	return nil
}

func (h *Handler) handleMessage(ctx context.Context, msg *telegram.Message) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case text == "/start" || strings.HasPrefix(text, "/start "):
		return h.handleStart(ctx, msg.Chat.ID)
	case text == "/stop":
		return h.handleStop(ctx, msg.Chat.ID)
	case text == "":
		return nil
	default:
		return h.handleAnswer(ctx, msg.Chat.ID, text)
	}
}

// handleStart issues a short-lived link token and prompts the user to log in
// with it. The web login flow consumes the token and binds the chat.
func (h *Handler) handleStart(ctx context.Context, chatID int64) error {
	token := h.newToken()
	if err := store.SetJSONTTL(ctx, h.store, store.LinkTokenKey(token), chatID, linkTokenTTL); err != nil {
		return err
	}

	login := fmt.Sprintf("%s/?telegram_id=%s", h.loginURL, url.QueryEscape(token))
	_, err := h.notifier.SendMessage(ctx, chatID, "Please log in with Twitter.", telegram.SendOptions{
		Keyboard: telegram.InlineKeyboard{{{Text: "Login", URL: login}}},
	})
	return err
}

// handleStop unbinds the chat from whichever account it notifies for.
func (h *Handler) handleStop(ctx context.Context, chatID int64) error {
	accountID, err := h.accounts.AccountByChat(ctx, chatID)
	if err != nil {
		return err
	}
	if accountID == "" {
		_, err := h.notifier.SendMessage(ctx, chatID, "This chat is not linked to any account.", telegram.SendOptions{})
		return err
	}
	if err := h.accounts.SetNotificationMethods(ctx, accountID, &models.NotificationMethods{}); err != nil {
		return err
	}
	_, err = h.notifier.SendMessage(ctx, chatID, "Removed from account. Use /start to relink.", telegram.SendOptions{})
	return err
}

// handleAnswer treats free text as the response to the currently displayed
// item: it is published as a reply on the platform, the item is resolved and
// the queue advances.
func (h *Handler) handleAnswer(ctx context.Context, chatID int64, text string) error {
	lock, err := h.queue.Lock(ctx, chatID)
	if err != nil {
		return err
	}
	if lock.State != models.LockDisplaying || lock.Item == nil {
		_, err := h.notifier.SendMessage(ctx, chatID, "There is nothing to respond to right now.", telegram.SendOptions{})
		return err
	}
	item := lock.Item

	token, err := h.tokens.Token(ctx, item.AccountID)
	if err != nil {
		h.report(ctx, chatID, "Could not authenticate with Twitter. Please log in again.")
		return err
	}
	// Telegram redelivers updates whose offset was never persisted. The
	// guard keeps a replayed answer from publishing the reply twice.
	replyKey := "reply=" + item.Tweet.ID
	if h.dedupe != nil && !h.dedupe.TryAcquire(replyKey) {
		return nil
	}
	replyID, err := h.api.PostReply(ctx, token, text, item.Tweet.ID)
	if err != nil {
		if h.dedupe != nil {
			h.dedupe.Release(replyKey)
		}
		h.report(ctx, chatID, "Failed to send the reply. It was not published.")
		return err
	}

	item.Answer = &models.Answer{Text: text, TweetID: replyID, AnsweredAt: h.now().UTC()}

	cfg, err := h.accounts.Config(ctx, item.AccountID)
	if err == nil && cfg.Responses.AutoLikeOnReply && !item.Liked {
		if err := h.api.SetEngagement(ctx, token, item.AccountID, item.Tweet.ID, twitter.EngagementLike, true); err != nil {
			h.logger.Warn().Err(err).Str("tweet_id", item.Tweet.ID).Msg("auto-like failed")
		} else {
			item.Liked = true
		}
	}

	if err := h.queue.Modify(ctx, item); err != nil {
		return err
	}
	if err := h.queue.ScheduleExpiration(ctx, item); err != nil {
		return err
	}
	_, _, err = h.queue.NextItem(ctx, chatID)
	return err
}

func (h *Handler) handleCallback(ctx context.Context, cq *telegram.CallbackQuery) error {
	if cq.Message == nil {
		return nil
	}
	chatID := cq.Message.Chat.ID

	action, ok := ParseAction(cq.Data)
	if !ok {
		return h.notifier.AnswerCallback(ctx, cq.ID, "Unknown action.")
	}

	switch action.Verb {
	case VerbLike:
		return h.toggleEngagement(ctx, cq, chatID, action.Arg, twitter.EngagementLike)
	case VerbRetweet:
		return h.toggleEngagement(ctx, cq, chatID, action.Arg, twitter.EngagementRetweet)
	case VerbSkip:
		return h.skipCurrent(ctx, cq, chatID)
	case VerbDelay:
		return h.delayCurrent(ctx, cq, chatID)
	}
	return nil
}

// toggleEngagement flips the like or retweet state of the referenced item.
// The action targets an item by id, so it also works on already answered
// messages further up in the chat history.
func (h *Handler) toggleEngagement(ctx context.Context, cq *telegram.CallbackQuery, chatID int64, tweetID string, kind twitter.EngagementKind) error {
	item, err := h.queue.Get(ctx, chatID, tweetID)
	if err != nil {
		if errors.Is(err, replyqueue.ErrItemNotFound) {
			return h.notifier.AnswerCallback(ctx, cq.ID, "This item is no longer available.")
		}
		return err
	}

	token, err := h.tokens.Token(ctx, item.AccountID)
	if err != nil {
		h.answerCallback(ctx, cq.ID, "Could not authenticate with Twitter.")
		return err
	}

	enable := !item.Liked
	if kind == twitter.EngagementRetweet {
		enable = !item.Retweeted
	}
	if err := h.api.SetEngagement(ctx, token, item.AccountID, item.Tweet.ID, kind, enable); err != nil {
		h.answerCallback(ctx, cq.ID, "The action failed. Please try again.")
		return err
	}
	if kind == twitter.EngagementRetweet {
		item.Retweeted = enable
	} else {
		item.Liked = enable
	}

	if err := h.queue.Modify(ctx, item); err != nil {
		return err
	}
	return h.notifier.AnswerCallback(ctx, cq.ID, "")
}

// skipCurrent resolves the displayed item without publishing a reply and
// advances the queue.
func (h *Handler) skipCurrent(ctx context.Context, cq *telegram.CallbackQuery, chatID int64) error {
	lock, err := h.queue.Lock(ctx, chatID)
	if err != nil {
		return err
	}
	if lock.State != models.LockDisplaying || lock.Item == nil {
		return h.notifier.AnswerCallback(ctx, cq.ID, "This item is no longer active.")
	}

	item := lock.Item
	item.Answer = &models.Answer{AnsweredAt: h.now().UTC()}
	if err := h.queue.Modify(ctx, item); err != nil {
		return err
	}
	if err := h.queue.ScheduleExpiration(ctx, item); err != nil {
		return err
	}
	if _, _, err := h.queue.NextItem(ctx, chatID); err != nil {
		return err
	}
	return h.notifier.AnswerCallback(ctx, cq.ID, "")
}

// delayCurrent pushes the displayed item to the back of the queue and
// presents the next one.
func (h *Handler) delayCurrent(ctx context.Context, cq *telegram.CallbackQuery, chatID int64) error {
	lock, err := h.queue.Lock(ctx, chatID)
	if err != nil {
		return err
	}
	if lock.State != models.LockDisplaying || lock.Item == nil {
		return h.notifier.AnswerCallback(ctx, cq.ID, "This item is no longer active.")
	}

	if err := h.queue.Snooze(ctx, lock.Item); err != nil {
		return err
	}
	if _, _, err := h.queue.NextItem(ctx, chatID); err != nil {
		return err
	}
	return h.notifier.AnswerCallback(ctx, cq.ID, "")
}

// LinkChat consumes a /start token and binds the chat it was issued for to
// an account. Called by the web login flow once the user authenticates.
func (h *Handler) LinkChat(ctx context.Context, linkToken, accountID string) error {
	var chatID int64
	if err := store.GetJSON(ctx, h.store, store.LinkTokenKey(linkToken), &chatID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("link token expired or unknown")
		}
		return err
	}
	if err := h.accounts.SetNotificationMethods(ctx, accountID, &models.NotificationMethods{TelegramChatID: chatID}); err != nil {
		return err
	}
	if err := h.store.Delete(ctx, store.LinkTokenKey(linkToken)); err != nil {
		return err
	}
	_, err := h.notifier.SendMessage(ctx, chatID, "Account linked. You will receive notifications here.", telegram.SendOptions{})
	if err != nil {
		h.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to confirm link")
	}
	return nil
}

func (h *Handler) answerCallback(ctx context.Context, callbackID, text string) {
	if err := h.notifier.AnswerCallback(ctx, callbackID, text); err != nil {
		h.logger.Warn().Err(err).Msg("failed to answer callback")
	}
}

func (h *Handler) report(ctx context.Context, chatID int64, text string) {
	if _, err := h.notifier.SendMessage(ctx, chatID, text, telegram.SendOptions{}); err != nil {
		h.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to report error to chat")
	}
}
