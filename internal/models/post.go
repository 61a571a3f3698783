package models

import (
	"strings"
	"time"
)

// ScheduledPost is a tweet queued for automatic delivery.
type ScheduledPost struct {
	// ID is the unique identifier for the post.
	ID string `json:"id"`

	// AccountID references the owning account.
	AccountID string `json:"account_id"`

	// Text is the tweet content.
	Text string `json:"text"`

	// CreatedAt orders posts for deterministic rebalancing.
	CreatedAt time.Time `json:"created_at"`

	// RandomOffset is a fixed seed in [0, 1) assigned at creation. It places
	// the post inside its sub-slot and is never regenerated, so rescheduling
	// with unchanged inputs reproduces the same timestamps.
	RandomOffset float64 `json:"random_offset"`

	// Sent marks posts that were successfully delivered. Sent posts keep
	// their ScheduledAt forever and are never rebalanced.
	Sent bool `json:"sent"`

	// ScheduledAt is the computed delivery instant. Nil means the post will
	// never be sent automatically (quota is zero).
	ScheduledAt *time.Time `json:"scheduled_at"`

	// Error marks posts whose last dispatch attempt failed. The post stays
	// visible and is not retried automatically.
	Error bool `json:"error,omitempty"`
}

// Validate checks if the post is valid.
func (p *ScheduledPost) Validate() error {
	validation := &ValidationErrors{}
	if strings.TrimSpace(p.Text) == "" {
		validation.Add("text", ErrEmptyPostText)
	}
	if p.AccountID == "" {
		validation.Add("account_id", ErrInvalidAccountID)
	}
	if p.RandomOffset < 0 || p.RandomOffset >= 1 {
		validation.Add("random_offset", ErrInvalidOffset)
	}
	return validation.Err()
}

// Due reports whether the post should be dispatched at the given time.
func (p *ScheduledPost) Due(now time.Time) bool {
	return !p.Sent && p.ScheduledAt != nil && !p.ScheduledAt.After(now)
}
