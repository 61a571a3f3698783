// Package replyqueue manages the per-chat queue of inbound mentions awaiting
// a human response, and the lock that guarantees at most one item is
// actively presented per chat.
package replyqueue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/janic0/autotwitter/internal/logging"
	"github.com/janic0/autotwitter/internal/models"
	"github.com/janic0/autotwitter/internal/store"
)

// Service errors.
var (
	ErrItemNotFound = errors.New("reply queue item not found")
)

// AnsweredItemTTL bounds how long resolved items are kept for audit and
// idempotency before the store reclaims them.
const AnsweredItemTTL = 3 * 24 * time.Hour

// Presenter renders queue items as outward chat messages. It keeps the queue
// independent of the chat transport.
type Presenter interface {
	// Show sends a new outward message for the item and returns its id.
	Show(ctx context.Context, item *models.ReplyQueueItem) (int64, error)

	// Edit updates the outward message already representing the item.
	Edit(ctx context.Context, item *models.ReplyQueueItem, messageID int64) error
}

// Service implements the reply queue over the store.
type Service struct {
	store     store.Store
	presenter Presenter
	logger    zerolog.Logger
	now       func() time.Time
}

// NewService creates a reply queue service.
func NewService(s store.Store, presenter Presenter) *Service {
	return &Service{
		store:     s,
		presenter: presenter,
		logger:    logging.Component("replyqueue"),
		now:       time.Now,
	}
}

// Add upserts an item, keyed by (chat id, tweet id). Adding never disturbs
// the currently displayed item: promotion only happens through NextItem.
func (s *Service) Add(ctx context.Context, item *models.ReplyQueueItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	key := store.ReplyQueueItemKey(item.ChatID, item.Tweet.ID)
	if err := store.SetJSON(ctx, s.store, key, item); err != nil {
		return err
	}
	return nil
}

// Get returns one item by chat and tweet id.
func (s *Service) Get(ctx context.Context, chatID int64, tweetID string) (*models.ReplyQueueItem, error) {
	var item models.ReplyQueueItem
	err := store.GetJSON(ctx, s.store, store.ReplyQueueItemKey(chatID, tweetID), &item)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

// Pending returns the chat's unanswered items in presentation order:
// fresh items newest first, mention replies winning timestamp ties, and
// snoozed items (ComputedAt set) behind everything that has not been
// snoozed, in snooze order.
func (s *Service) Pending(ctx context.Context, chatID int64) ([]*models.ReplyQueueItem, error) {
	keys, err := s.store.Keys(ctx, store.ReplyQueuePrefix(chatID))
	if err != nil {
		return nil, fmt.Errorf("failed to scan reply queue: %w", err)
	}

	items := make([]*models.ReplyQueueItem, 0, len(keys))
	for _, key := range keys {
		var item models.ReplyQueueItem
		if err := store.GetJSON(ctx, s.store, key, &item); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue // expired between scan and read
			}
			return nil, err
		}
		if item.Answered() {
			continue
		}
		items = append(items, &item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		si, sj := items[i].ComputedAt != nil, items[j].ComputedAt != nil
		if si != sj {
			return !si // unsnoozed items come first
		}
		if si {
			// Snoozed items keep snooze order: earliest snooze first.
			return items[i].ComputedAt.Before(*items[j].ComputedAt)
		}
		if items[i].ReportedAt.Equal(items[j].ReportedAt) {
			return items[i].Tweet.IsReply() && !items[j].Tweet.IsReply()
		}
		return items[i].ReportedAt.After(items[j].ReportedAt)
	})
	return items, nil
}

// Modify persists an updated item, re-renders its outward message, and, if
// the item is the one the chat's lock points at, refreshes the lock snapshot
// so subsequent lock reads see the update.
func (s *Service) Modify(ctx context.Context, item *models.ReplyQueueItem) error {
	if err := s.Add(ctx, item); err != nil {
		return err
	}

	lock, err := s.Lock(ctx, item.ChatID)
	if err != nil {
		return err
	}
	if lock.Holds(item.Tweet.ID) {
		lock.Item = item
		if err := s.setLock(ctx, lock); err != nil {
			return err
		}
	}

	if item.MessageID != 0 && s.presenter != nil {
		if err := s.presenter.Edit(ctx, item, item.MessageID); err != nil {
			s.logger.Warn().Err(err).
				Int64("chat_id", item.ChatID).
				Str("tweet_id", item.Tweet.ID).
				Msg("failed to update outward message")
		}
	}
	return nil
}

// Snooze pushes an item behind every currently unanswered item. Only the
// snoozed item is touched: its ComputedAt is set just past the newest
// freshness in the queue, so later snoozes keep arriving behind it.
func (s *Service) Snooze(ctx context.Context, item *models.ReplyQueueItem) error {
	pending, err := s.Pending(ctx, item.ChatID)
	if err != nil {
		return err
	}

	computed := s.now()
	for _, other := range pending {
		if next := other.Freshness().Add(time.Millisecond); next.After(computed) {
			computed = next
		}
	}
	item.ComputedAt = &computed
	return s.Add(ctx, item)
}

// NextItem pops the head of the queue ordering and presents it as the
// chat's active item, returning it and the number of items still waiting.
// When the queue is empty the lock is cleared and nil is returned.
func (s *Service) NextItem(ctx context.Context, chatID int64) (*models.ReplyQueueItem, int, error) {
	pending, err := s.Pending(ctx, chatID)
	if err != nil {
		return nil, 0, err
	}

	if len(pending) == 0 {
		if err := s.ClearLock(ctx, chatID); err != nil {
			return nil, 0, err
		}
		return nil, 0, nil
	}

	head := pending[0]
	if s.presenter != nil {
		messageID, err := s.presenter.Show(ctx, head)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to present item: %w", err)
		}
		head.MessageID = messageID
		if err := s.Add(ctx, head); err != nil {
			return nil, 0, err
		}
	}

	lock := &models.ChatLock{
		State:     models.LockDisplaying,
		ChatID:    chatID,
		AccountID: head.AccountID,
		Item:      head,
		MessageID: head.MessageID,
	}
	if err := s.setLock(ctx, lock); err != nil {
		return nil, 0, err
	}

	s.logger.Debug().
		Int64("chat_id", chatID).
		Str("tweet_id", head.Tweet.ID).
		Int("remaining", len(pending)-1).
		Msg("presented next reply queue item")
	return head, len(pending) - 1, nil
}

// ScheduleExpiration marks an answered item for reclamation after the
// bounded audit window. Unanswered items never expire.
func (s *Service) ScheduleExpiration(ctx context.Context, item *models.ReplyQueueItem) error {
	if !item.Answered() {
		return nil
	}
	key := store.ReplyQueueItemKey(item.ChatID, item.Tweet.ID)
	return store.SetJSONTTL(ctx, s.store, key, item, AnsweredItemTTL)
}

// Lock returns the chat's lock record. An absent record is the Empty state.
func (s *Service) Lock(ctx context.Context, chatID int64) (*models.ChatLock, error) {
	var lock models.ChatLock
	err := store.GetJSON(ctx, s.store, store.ChatLockKey(chatID), &lock)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &models.ChatLock{State: models.LockEmpty, ChatID: chatID}, nil
		}
		return nil, err
	}
	return &lock, nil
}

// ClearLock transitions the chat to the Empty state.
func (s *Service) ClearLock(ctx context.Context, chatID int64) error {
	if err := s.store.Delete(ctx, store.ChatLockKey(chatID)); err != nil {
		return fmt.Errorf("failed to clear chat lock: %w", err)
	}
	return nil
}

func (s *Service) setLock(ctx context.Context, lock *models.ChatLock) error {
	return store.SetJSON(ctx, s.store, store.ChatLockKey(lock.ChatID), lock)
}
