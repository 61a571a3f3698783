package models

import "time"

// TweetAuthor identifies the author of an inbound tweet.
type TweetAuthor struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	Name            string `json:"name"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
}

// TweetMedia is an attachment on an inbound tweet.
type TweetMedia struct {
	Key  string `json:"media_key"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

// ReferencedTweet is the parent a mention replied to, if any.
type ReferencedTweet struct {
	ID     string       `json:"id"`
	Text   string       `json:"text"`
	Author *TweetAuthor `json:"author,omitempty"`
}

// Tweet is an inbound platform post, hydrated with author, parent and media.
type Tweet struct {
	ID        string           `json:"id"`
	AuthorID  string           `json:"author_id"`
	Text      string           `json:"text"`
	Author    *TweetAuthor     `json:"author,omitempty"`
	RepliedTo *ReferencedTweet `json:"replied_to,omitempty"`
	Media     []TweetMedia     `json:"media,omitempty"`
}

// IsReply reports whether the tweet replies to another tweet.
func (t *Tweet) IsReply() bool {
	return t.RepliedTo != nil && t.RepliedTo.ID != ""
}

// Answer records a human response to a reply-queue item. Its presence marks
// the item as resolved.
type Answer struct {
	Text       string    `json:"text"`
	TweetID    string    `json:"tweet_id,omitempty"`
	AnsweredAt time.Time `json:"answered_at"`
}

// ReplyQueueItem is an inbound mention awaiting a human action in a chat.
// Items are keyed by (chat id, tweet id).
type ReplyQueueItem struct {
	Tweet     Tweet  `json:"tweet"`
	AccountID string `json:"account_id"`
	ChatID    int64  `json:"chat_id"`

	// ReportedAt is when the mention was ingested.
	ReportedAt time.Time `json:"reported_at"`

	// ComputedAt overrides ReportedAt for queue ordering. Snoozing an item
	// sets it just past the newest queued item, pushing it to the back.
	ComputedAt *time.Time `json:"computed_at,omitempty"`

	// Answer, once set, removes the item from the pending view.
	Answer *Answer `json:"answer,omitempty"`

	Liked     bool `json:"liked"`
	Retweeted bool `json:"retweeted"`

	// MessageID is the outward chat message currently representing this
	// item, if it has been displayed.
	MessageID int64 `json:"message_id,omitempty"`
}

// Freshness is the timestamp used for queue ordering.
func (i *ReplyQueueItem) Freshness() time.Time {
	if i.ComputedAt != nil {
		return *i.ComputedAt
	}
	return i.ReportedAt
}

// Answered reports whether the item has been resolved.
func (i *ReplyQueueItem) Answered() bool {
	return i.Answer != nil
}

// Validate checks if the item is valid.
func (i *ReplyQueueItem) Validate() error {
	validation := &ValidationErrors{}
	if i.ChatID == 0 {
		validation.Add("chat_id", ErrInvalidChatID)
	}
	if i.Tweet.ID == "" {
		validation.Add("tweet.id", ErrInvalidTweetID)
	}
	if i.AccountID == "" {
		validation.Add("account_id", ErrInvalidAccountID)
	}
	return validation.Err()
}

// LockState tags the chat lock state machine.
type LockState string

const (
	// LockEmpty means no item is displayed and the queue is drained.
	LockEmpty LockState = "empty"

	// LockDisplaying means exactly one item is actively presented.
	LockDisplaying LockState = "displaying"
)

// ChatLock records which single reply-queue item is currently presented in a
// chat. At most one item is active per chat at any time; user actions must
// target the locked item or be rejected as stale.
type ChatLock struct {
	State     LockState       `json:"state"`
	ChatID    int64           `json:"chat_id"`
	AccountID string          `json:"account_id,omitempty"`
	Item      *ReplyQueueItem `json:"item,omitempty"`
	MessageID int64           `json:"message_id,omitempty"`
}

// Holds reports whether the lock is displaying the given tweet.
func (l *ChatLock) Holds(tweetID string) bool {
	return l != nil && l.State == LockDisplaying && l.Item != nil && l.Item.Tweet.ID == tweetID
}
