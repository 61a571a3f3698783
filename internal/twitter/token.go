package twitter

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/janic0/autotwitter/internal/account"
	"github.com/janic0/autotwitter/internal/logging"
)

// refreshMargin is how long before expiry a token is refreshed eagerly, so a
// token never expires mid-request.
const refreshMargin = 60 * time.Second

// TokenSource yields a usable access token per account, refreshing and
// persisting expiring credentials transparently.
type TokenSource struct {
	accounts *account.Service
	api      API
	logger   zerolog.Logger
	now      func() time.Time
}

// NewTokenSource creates a token source.
func NewTokenSource(accounts *account.Service, api API) *TokenSource {
	return &TokenSource{
		accounts: accounts,
		api:      api,
		logger:   logging.Component("twitter"),
		now:      time.Now,
	}
}

// Token returns a valid access token for the account, refreshing first when
// the stored one expires within the refresh margin.
func (t *TokenSource) Token(ctx context.Context, accountID string) (string, error) {
	auth, err := t.accounts.Auth(ctx, accountID)
	if err != nil {
		return "", err
	}
	if t.now().Add(refreshMargin).Before(auth.ValidUntil) {
		return auth.AccessToken, nil
	}

	refreshed, err := t.api.RefreshToken(ctx, auth.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}
	if err := t.accounts.SetAuth(ctx, accountID, refreshed); err != nil {
		return "", err
	}
	t.logger.Debug().Str("account_id", accountID).Msg("refreshed access token")
	return refreshed.AccessToken, nil
}
