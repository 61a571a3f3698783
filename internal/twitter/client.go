// Package twitter is the thin client for the posting platform's v2 API:
// tweet creation, mention timelines, engagement toggles and OAuth refresh.
package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/janic0/autotwitter/internal/logging"
	"github.com/janic0/autotwitter/internal/models"
)

// Client errors.
var (
	ErrUnauthorized = errors.New("platform rejected the credentials")
)

// EngagementKind selects which engagement toggle to flip.
type EngagementKind string

const (
	EngagementLike    EngagementKind = "likes"
	EngagementRetweet EngagementKind = "retweets"
)

// API is the platform surface the rest of the application depends on.
type API interface {
	// PostTweet publishes a standalone tweet and returns its id.
	PostTweet(ctx context.Context, accessToken, text string) (string, error)

	// PostReply publishes a reply to an existing tweet and returns its id.
	PostReply(ctx context.Context, accessToken, text, inReplyToID string) (string, error)

	// Mentions fetches inbound tweets newer than sinceID. With includeOrdinary
	// set it reads the whole home timeline instead of mentions only.
	Mentions(ctx context.Context, accessToken, userID, sinceID string, includeOrdinary bool) (*MentionBatch, error)

	// SetEngagement turns a like or retweet on or off.
	SetEngagement(ctx context.Context, accessToken, userID, tweetID string, kind EngagementKind, enabled bool) error

	// RefreshToken exchanges a refresh token for fresh credentials.
	RefreshToken(ctx context.Context, refreshToken string) (*models.AuthData, error)
}

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.twitter.com"

// requestTimeout bounds every outward call so a stalled platform response
// cannot wedge a delivery tick.
const requestTimeout = 15 * time.Second

// Client is the HTTP implementation of API.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	client       *http.Client
	logger       zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API endpoint (for tests).
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.client = client }
}

// NewClient creates a platform client. The client id and secret are only
// used by the token refresh grant.
func NewClient(clientID, clientSecret string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:      DefaultBaseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       &http.Client{Timeout: requestTimeout},
		logger:       logging.Component("twitter"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PostTweet implements API.
func (c *Client) PostTweet(ctx context.Context, accessToken, text string) (string, error) {
	return c.createTweet(ctx, accessToken, createTweetRequest{Text: text})
}

// PostReply implements API.
func (c *Client) PostReply(ctx context.Context, accessToken, text, inReplyToID string) (string, error) {
	req := createTweetRequest{Text: text}
	req.Reply = &struct {
		InReplyToTweetID string `json:"in_reply_to_tweet_id"`
	}{InReplyToTweetID: inReplyToID}
	return c.createTweet(ctx, accessToken, req)
}

func (c *Client) createTweet(ctx context.Context, accessToken string, req createTweetRequest) (string, error) {
	var resp createTweetResponse
	if err := c.do(ctx, accessToken, http.MethodPost, "/2/tweets", req, &resp); err != nil {
		return "", err
	}
	if resp.Data.ID == "" {
		return "", fmt.Errorf("platform returned no tweet id")
	}
	return resp.Data.ID, nil
}

// Mentions implements API.
func (c *Client) Mentions(ctx context.Context, accessToken, userID, sinceID string, includeOrdinary bool) (*MentionBatch, error) {
	path := fmt.Sprintf("/2/users/%s/mentions", url.PathEscape(userID))
	if includeOrdinary {
		path = fmt.Sprintf("/2/users/%s/timelines/reverse_chronological", url.PathEscape(userID))
	}

	query := url.Values{}
	query.Set("expansions", "author_id,referenced_tweets.id,referenced_tweets.id.author_id,attachments.media_keys")
	query.Set("tweet.fields", "author_id,referenced_tweets,attachments")
	query.Set("user.fields", "username,name,profile_image_url")
	query.Set("media.fields", "url,type")
	if sinceID != "" {
		query.Set("since_id", sinceID)
	}

	var resp timelineResponse
	if err := c.do(ctx, accessToken, http.MethodGet, path+"?"+query.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return &MentionBatch{Tweets: resp.hydrate(), NewestID: resp.Meta.NewestID}, nil
}

// SetEngagement implements API.
func (c *Client) SetEngagement(ctx context.Context, accessToken, userID, tweetID string, kind EngagementKind, enabled bool) error {
	if enabled {
		path := fmt.Sprintf("/2/users/%s/%s", url.PathEscape(userID), kind)
		body := map[string]string{"tweet_id": tweetID}
		return c.do(ctx, accessToken, http.MethodPost, path, body, nil)
	}
	path := fmt.Sprintf("/2/users/%s/%s/%s", url.PathEscape(userID), kind, url.PathEscape(tweetID))
	if kind == EngagementRetweet {
		// The removal endpoint uses the singular source-tweet form.
		path = fmt.Sprintf("/2/users/%s/retweets/%s", url.PathEscape(userID), url.PathEscape(tweetID))
	}
	return c.do(ctx, accessToken, http.MethodDelete, path, nil, nil)
}

// RefreshToken implements API.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*models.AuthData, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", c.clientID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/2/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.clientID, c.clientSecret)

	response, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode == http.StatusUnauthorized || response.StatusCode == http.StatusForbidden {
		return nil, ErrUnauthorized
	}
	if response.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("token refresh returned status %d", response.StatusCode)
	}

	var tok tokenResponse
	if err := json.NewDecoder(response.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	return &models.AuthData{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ValidUntil:   time.Now().UTC().Add(time.Duration(tok.ExpiresIn) * time.Second),
	}, nil
}

func (c *Client) do(ctx context.Context, accessToken, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	response, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("platform request failed: %w", err)
	}
	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode == http.StatusUnauthorized || response.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	if response.StatusCode >= http.StatusMultipleChoices {
		c.logger.Warn().
			Str("path", path).
			Int("status", response.StatusCode).
			Msg("platform returned non-2xx status")
		return fmt.Errorf("platform returned status %d", response.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(response.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

var _ API = (*Client)(nil)
