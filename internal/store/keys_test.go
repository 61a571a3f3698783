package store

import "testing"

func TestKeyLayout(t *testing.T) {
	if got := ScheduledPostKey("u1", "p1"); got != "scheduled_tweet=u1,p1" {
		t.Errorf("ScheduledPostKey = %q", got)
	}
	if got := ReplyQueueItemKey(42, "t9"); got != "reply_queue_item=42=t9" {
		t.Errorf("ReplyQueueItemKey = %q", got)
	}
	if got := ReminderSentKey("u1", 1700000000000); got != "notification_sent=u1,1700000000000" {
		t.Errorf("ReminderSentKey = %q", got)
	}
}

func TestAccountIDRecovery(t *testing.T) {
	if got := AccountIDFromConfigKey(AccountConfigKey("u1")); got != "u1" {
		t.Errorf("AccountIDFromConfigKey = %q", got)
	}
	if got := AccountIDFromNotificationKey(NotificationMethodsKey("u1")); got != "u1" {
		t.Errorf("AccountIDFromNotificationKey = %q", got)
	}
}

func TestReplyQueuePrefixScopesChat(t *testing.T) {
	// Chat 4 must not match items of chat 42.
	key := ReplyQueueItemKey(42, "t1")
	prefix := ReplyQueuePrefix(4)
	if len(prefix) <= len("reply_queue_item=") {
		t.Fatal("prefix lacks chat scope")
	}
	if key[:len(prefix)] == prefix {
		t.Errorf("prefix %q matches foreign key %q", prefix, key)
	}
}
