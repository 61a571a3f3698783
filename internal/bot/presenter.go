package bot

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/janic0/autotwitter/internal/logging"
	"github.com/janic0/autotwitter/internal/models"
	"github.com/janic0/autotwitter/internal/render"
	"github.com/janic0/autotwitter/internal/telegram"
)

// Messenger is the slice of the chat transport the presenter uses.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts telegram.SendOptions) (int64, error)
	EditMessage(ctx context.Context, chatID, messageID int64, text string, opts telegram.SendOptions) error
	SendPhoto(ctx context.Context, chatID int64, photoURL string) error
	SendVideo(ctx context.Context, chatID int64, videoURL string) error
	SendMediaGroup(ctx context.Context, chatID int64, media []telegram.InputMedia) error
}

// Presenter renders reply-queue items as chat messages with action buttons.
type Presenter struct {
	messenger Messenger
	logger    zerolog.Logger
}

// NewPresenter creates a presenter over the chat transport.
func NewPresenter(messenger Messenger) *Presenter {
	return &Presenter{
		messenger: messenger,
		logger:    logging.Component("bot"),
	}
}

// Show sends a new message for the item, then forwards its media. Media
// failures are logged and swallowed: the graph message is the source of
// truth, attachments are best effort.
func (p *Presenter) Show(ctx context.Context, item *models.ReplyQueueItem) (int64, error) {
	messageID, err := p.messenger.SendMessage(ctx, item.ChatID, render.Thread(&item.Tweet, answerText(item)), telegram.SendOptions{
		ParseMode: telegram.ParseModeMarkdownV2,
		Keyboard:  itemKeyboard(item),
	})
	if err != nil {
		return 0, err
	}
	if err := p.forwardMedia(ctx, item); err != nil {
		p.logger.Warn().Err(err).
			Int64("chat_id", item.ChatID).
			Str("tweet_id", item.Tweet.ID).
			Msg("failed to forward media")
	}
	return messageID, nil
}

// Edit re-renders the message already representing the item.
func (p *Presenter) Edit(ctx context.Context, item *models.ReplyQueueItem, messageID int64) error {
	return p.messenger.EditMessage(ctx, item.ChatID, messageID, render.Thread(&item.Tweet, answerText(item)), telegram.SendOptions{
		ParseMode: telegram.ParseModeMarkdownV2,
		Keyboard:  itemKeyboard(item),
	})
}

func answerText(item *models.ReplyQueueItem) string {
	if item.Answer == nil {
		return ""
	}
	return item.Answer.Text
}

// itemKeyboard builds the action buttons: engagement toggles always, skip
// and delay only while the item still awaits an answer.
func itemKeyboard(item *models.ReplyQueueItem) telegram.InlineKeyboard {
	like := telegram.InlineKeyboardButton{Text: "Like", CallbackData: VerbLike + "_" + item.Tweet.ID}
	if item.Liked {
		like.Text = "Unlike"
	}
	retweet := telegram.InlineKeyboardButton{Text: "Retweet", CallbackData: VerbRetweet + "_" + item.Tweet.ID}
	if item.Retweeted {
		retweet.Text = "Un-Retweet"
	}

	keyboard := telegram.InlineKeyboard{{like, retweet}}
	if !item.Answered() {
		keyboard = append(keyboard, []telegram.InlineKeyboardButton{
			{Text: "Skip", CallbackData: VerbSkip},
			{Text: "Later", CallbackData: VerbDelay},
		})
	}
	return keyboard
}

// forwardMedia pushes the tweet's attachments into the chat. A single
// attachment goes out as a bare photo or video, several as one album.
// Animated GIFs are delivered as photos, which is what the platform's CDN
// serves for them.
func (p *Presenter) forwardMedia(ctx context.Context, item *models.ReplyQueueItem) error {
	media := make([]telegram.InputMedia, 0, len(item.Tweet.Media))
	for _, m := range item.Tweet.Media {
		switch m.Type {
		case "photo", "animated_gif":
			media = append(media, telegram.InputMedia{Type: "photo", Media: m.URL})
		case "video":
			media = append(media, telegram.InputMedia{Type: "video", Media: m.URL})
		}
	}

	switch len(media) {
	case 0:
		return nil
	case 1:
		if media[0].Type == "video" {
			return p.messenger.SendVideo(ctx, item.ChatID, media[0].Media)
		}
		return p.messenger.SendPhoto(ctx, item.ChatID, media[0].Media)
	default:
		return p.messenger.SendMediaGroup(ctx, item.ChatID, media)
	}
}
