package telegram

// Bot API wire types, limited to the fields the bot reads.

// Chat identifies a conversation.
type Chat struct {
	ID int64 `json:"id"`
}

// User identifies a chat participant.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Message is an inbound or outbound chat message.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

// CallbackQuery is a button press on an inline keyboard.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    *User    `json:"from,omitempty"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data"`
}

// Update is one event from long polling or the webhook.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

// InlineKeyboardButton is one button on an inline keyboard.
type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
	URL          string `json:"url,omitempty"`
}

// InlineKeyboard is a grid of inline buttons.
type InlineKeyboard [][]InlineKeyboardButton

// InputMedia is one element of a media group.
type InputMedia struct {
	Type  string `json:"type"`
	Media string `json:"media"`
}
