package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/janic0/autotwitter/internal/logging"
	"github.com/janic0/autotwitter/internal/models"
)

// PostStore is the post persistence the engine schedules against.
type PostStore interface {
	// ListPosts returns all posts (sent and pending) of an account, ordered
	// by creation time.
	ListPosts(ctx context.Context, accountID string) ([]*models.ScheduledPost, error)

	// SavePost persists a post.
	SavePost(ctx context.Context, post *models.ScheduledPost) error
}

// ConfigStore resolves the scheduling configuration of an account.
type ConfigStore interface {
	Config(ctx context.Context, accountID string) (*models.AccountConfig, error)
}

// Engine assigns delivery instants to posts. Every scheduling decision is a
// read-compute-write sequence over the store, serialized per account so two
// concurrent submissions cannot double-book a window.
type Engine struct {
	posts   PostStore
	configs ConfigStore
	logger  zerolog.Logger
	now     func() time.Time

	// accountMu holds one mutex per account id.
	accountMu sync.Map // map[string]*sync.Mutex
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock overrides the engine's time source (for tests).
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a scheduling engine.
func NewEngine(posts PostStore, configs ConfigStore, opts ...EngineOption) *Engine {
	e := &Engine{
		posts:   posts,
		configs: configs,
		logger:  logging.Component("scheduler"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// lockAccount acquires the per-account scheduling mutex.
func (e *Engine) lockAccount(accountID string) func() {
	actual, _ := e.accountMu.LoadOrStore(accountID, &sync.Mutex{})
	mu := actual.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// ScheduleOne assigns a delivery instant to a single new post and persists
// it. With a zero quota the post is stored with no instant and will never be
// sent automatically.
func (e *Engine) ScheduleOne(ctx context.Context, post *models.ScheduledPost) (*models.ScheduledPost, error) {
	if err := post.Validate(); err != nil {
		return nil, err
	}

	unlock := e.lockAccount(post.AccountID)
	defer unlock()

	cfg, err := e.configs.Config(ctx, post.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	all, err := e.posts.ListPosts(ctx, post.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load posts: %w", err)
	}

	if cfg.Frequency.Value == 0 {
		post.ScheduledAt = nil
		if err := e.posts.SavePost(ctx, post); err != nil {
			return nil, fmt.Errorf("failed to save post: %w", err)
		}
		return post, nil
	}

	// Find the first window with spare capacity. Posts of any sent-state
	// occupy capacity.
	window := CurrentWindow(cfg.Frequency.Type, e.now())
	occupied := countInWindow(all, window)
	for occupied >= cfg.Frequency.Value {
		window.Advance()
		occupied = countInWindow(all, window)
	}

	offset := subSlotOffset(occupied, cfg.Frequency.Value, post.RandomOffset)
	instant := resolveInstant(window, cfg.Time, offset)
	post.ScheduledAt = msTime(instant)

	if err := e.posts.SavePost(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to save post: %w", err)
	}

	e.logger.Debug().
		Str("account_id", post.AccountID).
		Str("post_id", post.ID).
		Int64("window_start", window.Start).
		Time("scheduled_at", *post.ScheduledAt).
		Msg("post scheduled")
	return post, nil
}

// RescheduleAll reassigns delivery instants to every pending post of an
// account. Sent posts keep their historical instants and count against
// window capacity; pending posts are placed in creation order into the first
// windows with room. cfg and posts may be passed pre-fetched to avoid
// redundant reads; pass nil to load them.
//
// Window capacity is sent-in-window plus pending posts already placed into
// that window during this run.
func (e *Engine) RescheduleAll(ctx context.Context, accountID string, cfg *models.AccountConfig, all []*models.ScheduledPost) ([]*models.ScheduledPost, error) {
	unlock := e.lockAccount(accountID)
	defer unlock()

	var err error
	if all == nil {
		all, err = e.posts.ListPosts(ctx, accountID)
		if err != nil {
			return nil, fmt.Errorf("failed to load posts: %w", err)
		}
	}
	if len(all) == 0 {
		return []*models.ScheduledPost{}, nil
	}
	if cfg == nil {
		cfg, err = e.configs.Config(ctx, accountID)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if cfg.Frequency.Value == 0 {
		for _, post := range all {
			if post.Sent {
				continue
			}
			post.ScheduledAt = nil
			if err := e.posts.SavePost(ctx, post); err != nil {
				return nil, fmt.Errorf("failed to save post: %w", err)
			}
		}
		return all, nil
	}

	sent := make([]*models.ScheduledPost, 0, len(all))
	pending := make([]*models.ScheduledPost, 0, len(all))
	for _, post := range all {
		if post.Sent {
			sent = append(sent, post)
		} else {
			pending = append(pending, post)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})

	window := CurrentWindow(cfg.Frequency.Type, e.now())
	occupied := countInWindow(sent, window)
	for occupied >= cfg.Frequency.Value {
		window.Advance()
		occupied = countInWindow(sent, window)
	}

	for _, post := range pending {
		offset := subSlotOffset(occupied, cfg.Frequency.Value, post.RandomOffset)
		instant := resolveInstant(window, cfg.Time, offset)
		post.ScheduledAt = msTime(instant)
		if err := e.posts.SavePost(ctx, post); err != nil {
			return nil, fmt.Errorf("failed to save post: %w", err)
		}

		occupied++
		for occupied >= cfg.Frequency.Value {
			window.Advance()
			occupied = countInWindow(sent, window)
		}
	}

	e.logger.Debug().
		Str("account_id", accountID).
		Int("pending", len(pending)).
		Int("sent", len(sent)).
		Msg("rebalanced pending posts")
	return all, nil
}

// CheckFulfillment compares the posts scheduled within the current (or, with
// next set, the upcoming) window against the account's quota.
func (e *Engine) CheckFulfillment(ctx context.Context, accountID string, next bool) (models.Fulfillment, error) {
	cfg, err := e.configs.Config(ctx, accountID)
	if err != nil {
		return models.Fulfillment{}, fmt.Errorf("failed to load config: %w", err)
	}
	all, err := e.posts.ListPosts(ctx, accountID)
	if err != nil {
		return models.Fulfillment{}, fmt.Errorf("failed to load posts: %w", err)
	}

	window := CurrentWindow(cfg.Frequency.Type, e.now())
	if next {
		window.Advance()
	}

	reality := countInWindow(all, window)
	return models.Fulfillment{
		Fulfilled:   reality >= cfg.Frequency.Value,
		PeriodType:  cfg.Frequency.Type,
		PeriodStart: window.Start,
		Expectation: cfg.Frequency.Value,
		Reality:     reality,
	}, nil
}

// countInWindow counts posts whose delivery instant falls inside the window.
func countInWindow(posts []*models.ScheduledPost, w Window) int {
	count := 0
	for _, post := range posts {
		if w.IncludesTime(post.ScheduledAt) {
			count++
		}
	}
	return count
}

func msTime(ms int64) *time.Time {
	t := time.UnixMilli(ms).UTC()
	return &t
}
