package models

import (
	"testing"
	"time"
)

func TestScheduledPostDue(t *testing.T) {
	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name string
		post ScheduledPost
		want bool
	}{
		{"past instant is due", ScheduledPost{ScheduledAt: &past}, true},
		{"exact instant is due", ScheduledPost{ScheduledAt: &now}, true},
		{"future instant is not due", ScheduledPost{ScheduledAt: &future}, false},
		{"sent post is never due", ScheduledPost{Sent: true, ScheduledAt: &past}, false},
		{"unscheduled post is never due", ScheduledPost{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.post.Due(now); got != tt.want {
				t.Errorf("Due = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReplyQueueItemFreshness(t *testing.T) {
	reported := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	computed := reported.Add(time.Hour)

	item := ReplyQueueItem{ReportedAt: reported}
	if !item.Freshness().Equal(reported) {
		t.Error("Freshness should fall back to ReportedAt")
	}
	item.ComputedAt = &computed
	if !item.Freshness().Equal(computed) {
		t.Error("Freshness should prefer ComputedAt")
	}
}

func TestTweetIsReply(t *testing.T) {
	tweet := Tweet{ID: "t1"}
	if tweet.IsReply() {
		t.Error("tweet with no parent reported as reply")
	}
	tweet.RepliedTo = &ReferencedTweet{}
	if tweet.IsReply() {
		t.Error("empty parent id reported as reply")
	}
	tweet.RepliedTo.ID = "parent"
	if !tweet.IsReply() {
		t.Error("tweet with parent not reported as reply")
	}
}

func TestChatLockHolds(t *testing.T) {
	var nilLock *ChatLock
	if nilLock.Holds("t1") {
		t.Error("nil lock holds")
	}
	lock := &ChatLock{State: LockEmpty}
	if lock.Holds("t1") {
		t.Error("empty lock holds")
	}
	lock = &ChatLock{
		State: LockDisplaying,
		Item:  &ReplyQueueItem{Tweet: Tweet{ID: "t1"}},
	}
	if !lock.Holds("t1") {
		t.Error("displaying lock does not hold its own item")
	}
	if lock.Holds("t2") {
		t.Error("lock holds a foreign item")
	}
}
