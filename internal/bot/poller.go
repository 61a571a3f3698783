package bot

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/janic0/autotwitter/internal/logging"
	"github.com/janic0/autotwitter/internal/store"
	"github.com/janic0/autotwitter/internal/telegram"
)

// Updates is the slice of the chat transport the poller consumes.
type Updates interface {
	GetUpdates(ctx context.Context, offset int64, poll time.Duration) ([]telegram.Update, error)
}

// pollRetryDelay is the pause after a failed poll before trying again.
const pollRetryDelay = 5 * time.Second

// Poller ingests chat updates via long polling, persisting the update
// offset so restarts resume where they left off.
type Poller struct {
	updates Updates
	handler *Handler
	store   store.Store
	timeout time.Duration
	logger  zerolog.Logger
}

// NewPoller creates an update poller.
func NewPoller(updates Updates, handler *Handler, kv store.Store, timeout time.Duration) *Poller {
	return &Poller{
		updates: updates,
		handler: handler,
		store:   kv,
		timeout: timeout,
		logger:  logging.Component("bot"),
	}
}

// Run polls until the context is canceled.
func (p *Poller) Run(ctx context.Context) {
	offset := p.loadOffset(ctx)
	for {
		if ctx.Err() != nil {
			return
		}

		updates, err := p.updates.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn().Err(err).Msg("update poll failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(pollRetryDelay):
			}
			continue
		}

		for _, update := range updates {
			if err := p.handler.HandleUpdate(ctx, update); err != nil {
				p.logger.Warn().Err(err).Int64("update_id", update.UpdateID).Msg("update handling failed")
			}
			offset = update.UpdateID + 1
		}
		if len(updates) > 0 {
			p.saveOffset(ctx, offset)
		}
	}
}

func (p *Poller) loadOffset(ctx context.Context) int64 {
	value, err := p.store.Get(ctx, store.TelegramOffsetKey())
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			p.logger.Warn().Err(err).Msg("failed to load update offset")
		}
		return 0
	}
	offset, err := strconv.ParseInt(string(value), 10, 64)
	if err != nil {
		return 0
	}
	return offset
}

func (p *Poller) saveOffset(ctx context.Context, offset int64) {
	if err := p.store.Set(ctx, store.TelegramOffsetKey(), []byte(strconv.FormatInt(offset, 10)), 0); err != nil {
		p.logger.Warn().Err(err).Msg("failed to persist update offset")
	}
}
