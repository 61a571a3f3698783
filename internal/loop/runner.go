// Package loop runs the background delivery process: dispatching due posts,
// reminding under-quota accounts and ingesting mentions into reply queues.
package loop

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/janic0/autotwitter/internal/account"
	"github.com/janic0/autotwitter/internal/logging"
	"github.com/janic0/autotwitter/internal/models"
	"github.com/janic0/autotwitter/internal/posts"
	"github.com/janic0/autotwitter/internal/replyqueue"
	"github.com/janic0/autotwitter/internal/scheduler"
	"github.com/janic0/autotwitter/internal/store"
	"github.com/janic0/autotwitter/internal/telegram"
	"github.com/janic0/autotwitter/internal/twitter"
)

// TokenSource yields access tokens per account.
type TokenSource interface {
	Token(ctx context.Context, accountID string) (string, error)
}

// Notifier delivers reminder messages into chats.
type Notifier interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts telegram.SendOptions) (int64, error)
}

// Config holds the loop cadence and the public site address used in
// reminder buttons.
type Config struct {
	DispatchInterval time.Duration
	ReminderInterval time.Duration
	MentionInterval  time.Duration
	SiteURL          string
}

// DefaultConfig returns the default cadence.
func DefaultConfig() Config {
	return Config{
		DispatchInterval: 5 * time.Second,
		ReminderInterval: 5 * time.Second,
		MentionInterval:  30 * time.Second,
	}
}

// dedupeTTL bounds how long dispatch guards are remembered; dedupeMax
// bounds the guard set size.
const (
	dedupeTTL = time.Hour
	dedupeMax = 4096

	// maxMentionBackoffShift caps the idle backoff at interval << shift.
	maxMentionBackoffShift = 3
)

// Runner drives the three periodic sweeps.
type Runner struct {
	cfg      Config
	posts    *posts.Repository
	accounts *account.Service
	engine   *scheduler.Engine
	queue    *replyqueue.Service
	tokens   TokenSource
	api      twitter.API
	notifier Notifier
	kv       store.Store
	dedupe   *Dedupe
	logger   zerolog.Logger
	now      func() time.Time

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool

	// mentionMisses counts consecutive empty polls per account and
	// mentionNext holds each account's earliest next poll; a quiet account
	// backs off without slowing the others down. Only the mention sweep
	// touches these.
	mentionMisses map[string]int
	mentionNext   map[string]time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithClock overrides the time source (for tests).
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// WithDedupe overrides the dispatch guard set (for tests).
func WithDedupe(d *Dedupe) RunnerOption {
	return func(r *Runner) { r.dedupe = d }
}

// NewRunner creates a delivery loop runner.
func NewRunner(cfg Config, repo *posts.Repository, accounts *account.Service, engine *scheduler.Engine, queue *replyqueue.Service, tokens TokenSource, api twitter.API, notifier Notifier, kv store.Store, opts ...RunnerOption) *Runner {
	r := &Runner{
		cfg:      cfg,
		posts:    repo,
		accounts: accounts,
		engine:   engine,
		queue:    queue,
		tokens:   tokens,
		api:      api,
		notifier: notifier,
		kv:       kv,
		dedupe:   NewDedupe(dedupeTTL, dedupeMax),
		logger:   logging.Component("loop"),
		now:      time.Now,
		stopCh:   make(chan struct{}),

		mentionMisses: make(map[string]int),
		mentionNext:   make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches the background sweeps. Only one runner may be active per
// process; the scheduler state is not built for concurrent writers.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("delivery loop already running")
	}
	r.running = true
	r.mu.Unlock()

	r.logger.Info().
		Dur("dispatch_interval", r.cfg.DispatchInterval).
		Dur("reminder_interval", r.cfg.ReminderInterval).
		Dur("mention_interval", r.cfg.MentionInterval).
		Msg("starting delivery loop")

	r.wg.Add(3)
	go r.run(ctx, r.cfg.DispatchInterval, "dispatch", r.DispatchTick)
	go r.run(ctx, r.cfg.ReminderInterval, "reminder", r.ReminderTick)
	go r.run(ctx, r.cfg.MentionInterval, "mentions", r.MentionTick)
	return nil
}

// Stop halts the sweeps and waits for in-flight ticks to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	close(r.stopCh)
	r.wg.Wait()
	r.logger.Info().Msg("delivery loop stopped")
}

func (r *Runner) run(ctx context.Context, interval time.Duration, name string, tick func(context.Context) error) {
	defer r.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			if err := tick(ctx); err != nil {
				r.logger.Warn().Err(err).Str("tick", name).Msg("sweep failed")
			}
		}
	}
}

// DispatchTick sends every due post, grouped per account so one token fetch
// covers all of an account's due posts. A post the platform rejects is marked
// with the error flag and not retried automatically; a timed-out send keeps
// its flags and is retried on the next tick.
func (r *Runner) DispatchTick(ctx context.Context) error {
	all, err := r.posts.ListAllPosts(ctx)
	if err != nil {
		return err
	}

	now := r.now()
	due := make(map[string][]*models.ScheduledPost)
	for _, post := range all {
		if post.Due(now) && !post.Error {
			due[post.AccountID] = append(due[post.AccountID], post)
		}
	}

	for accountID, duePosts := range due {
		token, err := r.tokens.Token(ctx, accountID)
		if err != nil {
			r.logger.Warn().Err(err).Str("account_id", accountID).Msg("skipping account, no usable token")
			continue
		}
		for _, post := range duePosts {
			r.dispatchOne(ctx, token, post)
		}
	}
	return nil
}

func (r *Runner) dispatchOne(ctx context.Context, token string, post *models.ScheduledPost) {
	if !r.dedupe.TryAcquire("dispatch=" + post.ID) {
		return
	}

	if _, err := r.api.PostTweet(ctx, token, post.Text); err != nil {
		// Timeouts prove nothing about the post itself: leave its flags
		// alone and free the guard so the next tick tries again.
		if isTransient(err) {
			r.dedupe.Release("dispatch=" + post.ID)
			r.logger.Warn().Err(err).
				Str("account_id", post.AccountID).
				Str("post_id", post.ID).
				Msg("post send timed out, retrying next tick")
			return
		}
		r.logger.Error().Err(err).
			Str("account_id", post.AccountID).
			Str("post_id", post.ID).
			Msg("failed to send post")
		post.Error = true
	} else {
		post.Sent = true
		post.Error = false
		r.logger.Info().
			Str("account_id", post.AccountID).
			Str("post_id", post.ID).
			Msg("post sent")
	}

	if err := r.posts.SavePost(ctx, post); err != nil {
		r.logger.Error().Err(err).Str("post_id", post.ID).Msg("failed to persist dispatch result")
	}
}

// isTransient reports whether an error says nothing definitive about the
// request, so the call may be retried.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ReminderTick notifies every linked account that has not filled its
// upcoming period's quota yet, at most once per (account, period start).
func (r *Runner) ReminderTick(ctx context.Context) error {
	linked, err := r.accounts.LinkedAccounts(ctx)
	if err != nil {
		return err
	}

	for accountID, chatID := range linked {
		fulfillment, err := r.engine.CheckFulfillment(ctx, accountID, true)
		if err != nil {
			r.logger.Warn().Err(err).Str("account_id", accountID).Msg("fulfillment check failed")
			continue
		}
		if fulfillment.Fulfilled {
			continue
		}

		key := store.ReminderSentKey(accountID, fulfillment.PeriodStart)
		if _, err := r.kv.Get(ctx, key); err == nil {
			continue // already reminded for this period
		} else if !errors.Is(err, store.ErrNotFound) {
			r.logger.Warn().Err(err).Str("account_id", accountID).Msg("reminder marker read failed")
			continue
		}
		if err := r.kv.Set(ctx, key, []byte("1"), 0); err != nil {
			r.logger.Warn().Err(err).Str("account_id", accountID).Msg("reminder marker write failed")
			continue
		}

		text := fmt.Sprintf("You don't have enough tweets for the next %s yet. (%d/%d)",
			fulfillment.PeriodType, fulfillment.Reality, fulfillment.Expectation)
		opts := telegram.SendOptions{}
		if r.cfg.SiteURL != "" {
			opts.Keyboard = telegram.InlineKeyboard{{{Text: "Write more tweets", URL: r.cfg.SiteURL}}}
		}
		if _, err := r.notifier.SendMessage(ctx, chatID, text, opts); err != nil {
			r.logger.Warn().Err(err).Str("account_id", accountID).Msg("failed to send reminder")
		}
	}
	return nil
}

// MentionTick pulls fresh mentions for every linked account with responses
// enabled, feeds them into the chat's reply queue and wakes the queue when
// no item is currently displayed. The very first poll of an account only
// records the watermark, so a fresh link does not flood the chat with
// history.
func (r *Runner) MentionTick(ctx context.Context) error {
	linked, err := r.accounts.LinkedAccounts(ctx)
	if err != nil {
		return err
	}

	for accountID, chatID := range linked {
		if next, ok := r.mentionNext[accountID]; ok && r.now().Before(next) {
			continue // backing off while this account's timeline is quiet
		}
		cfg, err := r.accounts.Config(ctx, accountID)
		if err != nil {
			r.logger.Warn().Err(err).Str("account_id", accountID).Msg("config load failed")
			continue
		}
		if !cfg.TelegramResponsesEnabled {
			continue
		}
		token, err := r.tokens.Token(ctx, accountID)
		if err != nil {
			r.logger.Warn().Err(err).Str("account_id", accountID).Msg("skipping account, no usable token")
			continue
		}

		watermark, err := r.accounts.LastMentionID(ctx, accountID)
		if err != nil {
			r.logger.Warn().Err(err).Str("account_id", accountID).Msg("watermark read failed")
			continue
		}
		batch, err := r.api.Mentions(ctx, token, accountID, watermark, cfg.Responses.IncludeOrdinaryPosts)
		if err != nil {
			r.logger.Warn().Err(err).Str("account_id", accountID).Msg("mention fetch failed")
			continue
		}
		if batch.NewestID != "" {
			if err := r.accounts.SetLastMentionID(ctx, accountID, batch.NewestID); err != nil {
				r.logger.Warn().Err(err).Str("account_id", accountID).Msg("watermark write failed")
				continue
			}
		}
		if watermark == "" {
			continue
		}
		r.recordPollResult(accountID, len(batch.Tweets))

		added := 0
		for i := range batch.Tweets {
			tweet := batch.Tweets[i]
			if tweet.AuthorID == accountID {
				continue // own timeline posts in include-ordinary mode
			}
			if _, err := r.queue.Get(ctx, chatID, tweet.ID); err == nil {
				continue
			} else if !errors.Is(err, replyqueue.ErrItemNotFound) {
				r.logger.Warn().Err(err).Str("tweet_id", tweet.ID).Msg("queue lookup failed")
				continue
			}
			item := &models.ReplyQueueItem{
				Tweet:      tweet,
				AccountID:  accountID,
				ChatID:     chatID,
				ReportedAt: r.now().UTC(),
			}
			if err := r.queue.Add(ctx, item); err != nil {
				r.logger.Warn().Err(err).Str("tweet_id", tweet.ID).Msg("failed to enqueue mention")
				continue
			}
			added++
		}

		if added > 0 {
			lock, err := r.queue.Lock(ctx, chatID)
			if err != nil {
				r.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("lock read failed")
				continue
			}
			if lock.State == models.LockEmpty {
				if _, _, err := r.queue.NextItem(ctx, chatID); err != nil {
					r.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to present next item")
				}
			}
		}
	}
	return nil
}

// recordPollResult updates one account's backoff state after a mention poll.
func (r *Runner) recordPollResult(accountID string, fetched int) {
	if fetched > 0 {
		r.mentionMisses[accountID] = 0
		delete(r.mentionNext, accountID)
		return
	}
	misses := r.mentionMisses[accountID] + 1
	r.mentionMisses[accountID] = misses
	shift := misses
	if shift > maxMentionBackoffShift {
		shift = maxMentionBackoffShift
	}
	r.mentionNext[accountID] = r.now().Add(r.cfg.MentionInterval << shift)
}
