// Package account manages per-account state: scheduling configuration,
// notification bindings, OAuth tokens and the mention watermark.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/janic0/autotwitter/internal/logging"
	"github.com/janic0/autotwitter/internal/models"
	"github.com/janic0/autotwitter/internal/store"
)

// Service errors.
var (
	ErrNoAuth = errors.New("account has no stored credentials")
)

// Service provides account state over the store.
type Service struct {
	store  store.Store
	logger zerolog.Logger
}

// NewService creates an account service.
func NewService(s store.Store) *Service {
	return &Service{
		store:  s,
		logger: logging.Component("account"),
	}
}

// Config returns the account's scheduling configuration. An account seen for
// the first time is assigned the default configuration, which is persisted so
// subsequent enumeration finds the account.
func (s *Service) Config(ctx context.Context, accountID string) (*models.AccountConfig, error) {
	if accountID == "" {
		return nil, models.ErrInvalidAccountID
	}

	var cfg models.AccountConfig
	err := store.GetJSON(ctx, s.store, store.AccountConfigKey(accountID), &cfg)
	if err == nil {
		return &cfg, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	defaults := models.DefaultAccountConfig()
	if err := s.SetConfig(ctx, accountID, defaults); err != nil {
		return nil, err
	}
	s.logger.Debug().Str("account_id", accountID).Msg("assigned default config")
	return defaults, nil
}

// SetConfig validates and persists a full configuration. The previous
// configuration is overwritten wholesale; callers are expected to rebalance
// pending posts afterwards.
func (s *Service) SetConfig(ctx context.Context, accountID string, cfg *models.AccountConfig) error {
	if accountID == "" {
		return models.ErrInvalidAccountID
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := store.SetJSON(ctx, s.store, store.AccountConfigKey(accountID), cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// AccountIDs enumerates every account that has a persisted configuration.
func (s *Service) AccountIDs(ctx context.Context) ([]string, error) {
	keys, err := s.store.Keys(ctx, store.AccountConfigPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to scan configs: %w", err)
	}
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		id := store.AccountIDFromConfigKey(key)
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// NotificationMethods returns where the account's notifications go. Absence
// is not an error: an unlinked account gets the zero value.
func (s *Service) NotificationMethods(ctx context.Context, accountID string) (*models.NotificationMethods, error) {
	var methods models.NotificationMethods
	err := store.GetJSON(ctx, s.store, store.NotificationMethodsKey(accountID), &methods)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to load notification methods: %w", err)
	}
	return &methods, nil
}

// SetNotificationMethods persists the account's notification bindings.
func (s *Service) SetNotificationMethods(ctx context.Context, accountID string, methods *models.NotificationMethods) error {
	if accountID == "" {
		return models.ErrInvalidAccountID
	}
	if err := store.SetJSON(ctx, s.store, store.NotificationMethodsKey(accountID), methods); err != nil {
		return fmt.Errorf("failed to save notification methods: %w", err)
	}
	return nil
}

// LinkedAccounts returns every account bound to a chat, mapped to its chat
// id. Accounts whose binding has been cleared are omitted.
func (s *Service) LinkedAccounts(ctx context.Context) (map[string]int64, error) {
	keys, err := s.store.Keys(ctx, store.NotificationMethodsPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to scan notification methods: %w", err)
	}
	linked := make(map[string]int64, len(keys))
	for _, key := range keys {
		var methods models.NotificationMethods
		if err := store.GetJSON(ctx, s.store, key, &methods); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if methods.TelegramChatID != 0 {
			linked[store.AccountIDFromNotificationKey(key)] = methods.TelegramChatID
		}
	}
	return linked, nil
}

// AccountByChat finds the account whose notifications are bound to the given
// chat, or "" when the chat is not linked.
func (s *Service) AccountByChat(ctx context.Context, chatID int64) (string, error) {
	keys, err := s.store.Keys(ctx, store.NotificationMethodsPrefix())
	if err != nil {
		return "", fmt.Errorf("failed to scan notification methods: %w", err)
	}
	for _, key := range keys {
		var methods models.NotificationMethods
		if err := store.GetJSON(ctx, s.store, key, &methods); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return "", err
		}
		if methods.TelegramChatID == chatID {
			return store.AccountIDFromNotificationKey(key), nil
		}
	}
	return "", nil
}

// Auth returns the account's stored OAuth tokens.
func (s *Service) Auth(ctx context.Context, accountID string) (*models.AuthData, error) {
	var auth models.AuthData
	err := store.GetJSON(ctx, s.store, store.AuthKey(accountID), &auth)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoAuth
		}
		return nil, fmt.Errorf("failed to load auth: %w", err)
	}
	return &auth, nil
}

// SetAuth persists the account's OAuth tokens.
func (s *Service) SetAuth(ctx context.Context, accountID string, auth *models.AuthData) error {
	if err := store.SetJSON(ctx, s.store, store.AuthKey(accountID), auth); err != nil {
		return fmt.Errorf("failed to save auth: %w", err)
	}
	return nil
}

// LastMentionID returns the mention watermark, or "" when none is recorded.
func (s *Service) LastMentionID(ctx context.Context, accountID string) (string, error) {
	value, err := s.store.Get(ctx, store.LastMentionKey(accountID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to load mention watermark: %w", err)
	}
	return strings.TrimSpace(string(value)), nil
}

// SetLastMentionID advances the mention watermark.
func (s *Service) SetLastMentionID(ctx context.Context, accountID, mentionID string) error {
	if err := s.store.Set(ctx, store.LastMentionKey(accountID), []byte(mentionID), 0); err != nil {
		return fmt.Errorf("failed to save mention watermark: %w", err)
	}
	return nil
}
