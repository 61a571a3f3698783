// Package posts persists scheduled posts and exposes the submission,
// deletion and listing operations built on top of the scheduling engine.
package posts

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/janic0/autotwitter/internal/models"
	"github.com/janic0/autotwitter/internal/store"
)

// Repository errors.
var (
	ErrPostNotFound = errors.New("scheduled post not found")
)

// Repository stores scheduled posts under composite account/post keys.
type Repository struct {
	store store.Store
}

// NewRepository creates a post repository.
func NewRepository(s store.Store) *Repository {
	return &Repository{store: s}
}

// ListPosts returns all posts of an account, sent and pending, ordered by
// creation time.
func (r *Repository) ListPosts(ctx context.Context, accountID string) ([]*models.ScheduledPost, error) {
	return r.list(ctx, store.ScheduledPostPrefix(accountID))
}

// ListAllPosts returns every post of every account, ordered by creation time.
func (r *Repository) ListAllPosts(ctx context.Context) ([]*models.ScheduledPost, error) {
	return r.list(ctx, store.AllScheduledPostsPrefix())
}

func (r *Repository) list(ctx context.Context, prefix string) ([]*models.ScheduledPost, error) {
	keys, err := r.store.Keys(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to scan posts: %w", err)
	}

	posts := make([]*models.ScheduledPost, 0, len(keys))
	for _, key := range keys {
		var post models.ScheduledPost
		if err := store.GetJSON(ctx, r.store, key, &post); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, err
		}
		posts = append(posts, &post)
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.Before(posts[j].CreatedAt)
	})
	return posts, nil
}

// GetPost returns one post by account and id.
func (r *Repository) GetPost(ctx context.Context, accountID, postID string) (*models.ScheduledPost, error) {
	var post models.ScheduledPost
	err := store.GetJSON(ctx, r.store, store.ScheduledPostKey(accountID, postID), &post)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

// SavePost persists a post.
func (r *Repository) SavePost(ctx context.Context, post *models.ScheduledPost) error {
	key := store.ScheduledPostKey(post.AccountID, post.ID)
	if err := store.SetJSON(ctx, r.store, key, post); err != nil {
		return fmt.Errorf("failed to save post: %w", err)
	}
	return nil
}

// DeletePost removes a post.
func (r *Repository) DeletePost(ctx context.Context, accountID, postID string) error {
	if err := r.store.Delete(ctx, store.ScheduledPostKey(accountID, postID)); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return nil
}

// AccountIDs returns the distinct account ids that have at least one post.
func (r *Repository) AccountIDs(ctx context.Context) ([]string, error) {
	keys, err := r.store.Keys(ctx, store.AllScheduledPostsPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to scan posts: %w", err)
	}
	seen := make(map[string]struct{})
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		rest := strings.TrimPrefix(key, store.AllScheduledPostsPrefix())
		id, _, ok := strings.Cut(rest, ",")
		if !ok || id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
