package posts

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/janic0/autotwitter/internal/account"
	"github.com/janic0/autotwitter/internal/logging"
	"github.com/janic0/autotwitter/internal/models"
	"github.com/janic0/autotwitter/internal/scheduler"
)

// Service ties post persistence to the scheduling engine. Submissions,
// deletions and configuration changes all funnel through it so every
// mutation leaves the account's schedule consistent.
type Service struct {
	repo     *Repository
	accounts *account.Service
	engine   *scheduler.Engine
	logger   zerolog.Logger

	newID      func() string
	randOffset func() float64
	now        func() time.Time
}

// ServiceOption configures a post service.
type ServiceOption func(*Service)

// WithIDSource overrides post id generation (for tests).
func WithIDSource(newID func() string) ServiceOption {
	return func(s *Service) { s.newID = newID }
}

// WithOffsetSource overrides random offset generation (for tests).
func WithOffsetSource(randOffset func() float64) ServiceOption {
	return func(s *Service) { s.randOffset = randOffset }
}

// WithClock overrides the time source (for tests).
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a post service.
func NewService(repo *Repository, accounts *account.Service, engine *scheduler.Engine, opts ...ServiceOption) *Service {
	s := &Service{
		repo:       repo,
		accounts:   accounts,
		engine:     engine,
		logger:     logging.Component("posts"),
		newID:      uuid.NewString,
		randOffset: rand.Float64,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit creates a post from raw text, assigns it a delivery instant and
// persists it. The random offset is fixed here and never regenerated.
func (s *Service) Submit(ctx context.Context, accountID, text string) (*models.ScheduledPost, error) {
	post := &models.ScheduledPost{
		ID:           s.newID(),
		AccountID:    accountID,
		Text:         text,
		CreatedAt:    s.now().UTC(),
		RandomOffset: s.randOffset(),
	}
	scheduled, err := s.engine.ScheduleOne(ctx, post)
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("account_id", accountID).
		Str("post_id", scheduled.ID).
		Msg("post submitted")
	return scheduled, nil
}

// Delete removes a post and rebalances the account's remaining pending
// posts, since a freed slot may pull later posts forward.
func (s *Service) Delete(ctx context.Context, accountID, postID string) error {
	if _, err := s.repo.GetPost(ctx, accountID, postID); err != nil {
		return err
	}
	if err := s.repo.DeletePost(ctx, accountID, postID); err != nil {
		return err
	}
	_, err := s.engine.RescheduleAll(ctx, accountID, nil, nil)
	return err
}

// UpdateConfig replaces the account's scheduling configuration and
// rebalances every pending post under the new quota and time policy.
func (s *Service) UpdateConfig(ctx context.Context, accountID string, cfg *models.AccountConfig) error {
	if err := s.accounts.SetConfig(ctx, accountID, cfg); err != nil {
		return err
	}
	_, err := s.engine.RescheduleAll(ctx, accountID, cfg, nil)
	return err
}

// List returns all posts of an account in creation order.
func (s *Service) List(ctx context.Context, accountID string) ([]*models.ScheduledPost, error) {
	return s.repo.ListPosts(ctx, accountID)
}
