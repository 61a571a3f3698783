package store

import (
	"fmt"
	"strings"
)

// Key layout. Every entity lives under a composite key scoped by entity type
// and id(s); prefix scans enumerate collections.
const (
	prefixScheduledPost  = "scheduled_tweet="
	prefixAccountConfig  = "user_config="
	prefixNotifyMethods  = "notification_methods="
	prefixAuth           = "auth="
	prefixLastMention    = "last_mention_id="
	prefixReminderSent   = "notification_sent="
	prefixReplyQueueItem = "reply_queue_item="
	prefixChatLock       = "telegram_lock="
	prefixLinkToken      = "telegram_id="
	keyTelegramOffset    = "telegram_offset"
)

// ScheduledPostKey addresses one post of one account.
func ScheduledPostKey(accountID, postID string) string {
	return fmt.Sprintf("%s%s,%s", prefixScheduledPost, accountID, postID)
}

// ScheduledPostPrefix scans all posts of one account.
func ScheduledPostPrefix(accountID string) string {
	return prefixScheduledPost + accountID + ","
}

// AllScheduledPostsPrefix scans every post of every account.
func AllScheduledPostsPrefix() string { return prefixScheduledPost }

// AccountConfigKey addresses an account's scheduling configuration.
func AccountConfigKey(accountID string) string { return prefixAccountConfig + accountID }

// AccountConfigPrefix scans all account configurations.
func AccountConfigPrefix() string { return prefixAccountConfig }

// AccountIDFromConfigKey recovers the account id from a config key.
func AccountIDFromConfigKey(key string) string {
	return strings.TrimPrefix(key, prefixAccountConfig)
}

// NotificationMethodsKey addresses an account's notification bindings.
func NotificationMethodsKey(accountID string) string { return prefixNotifyMethods + accountID }

// NotificationMethodsPrefix scans all notification bindings.
func NotificationMethodsPrefix() string { return prefixNotifyMethods }

// AccountIDFromNotificationKey recovers the account id from a binding key.
func AccountIDFromNotificationKey(key string) string {
	return strings.TrimPrefix(key, prefixNotifyMethods)
}

// AuthKey addresses an account's OAuth tokens.
func AuthKey(accountID string) string { return prefixAuth + accountID }

// LastMentionKey addresses the mention watermark of an account.
func LastMentionKey(accountID string) string { return prefixLastMention + accountID }

// ReminderSentKey is the idempotency key for one reminder per account and
// period start.
func ReminderSentKey(accountID string, periodStart int64) string {
	return fmt.Sprintf("%s%s,%d", prefixReminderSent, accountID, periodStart)
}

// ReplyQueueItemKey addresses one queue item by chat and tweet.
func ReplyQueueItemKey(chatID int64, tweetID string) string {
	return fmt.Sprintf("%s%d=%s", prefixReplyQueueItem, chatID, tweetID)
}

// ReplyQueuePrefix scans all queue items of one chat.
func ReplyQueuePrefix(chatID int64) string {
	return fmt.Sprintf("%s%d=", prefixReplyQueueItem, chatID)
}

// ChatLockKey addresses the lock record of a chat.
func ChatLockKey(chatID int64) string { return fmt.Sprintf("%s%d", prefixChatLock, chatID) }

// LinkTokenKey addresses a pending chat link token issued by /start.
func LinkTokenKey(token string) string { return prefixLinkToken + token }

// TelegramOffsetKey addresses the persisted long-poll offset.
func TelegramOffsetKey() string { return keyTelegramOffset }
