package models

import (
	"fmt"
	"strconv"
	"time"
)

// PeriodType is the repeating window a posting quota applies to.
type PeriodType string

const (
	PeriodHour PeriodType = "hour"
	PeriodDay  PeriodType = "day"
	PeriodWeek PeriodType = "week"
)

// Duration returns the fixed window length for the period type.
func (p PeriodType) Duration() time.Duration {
	switch p {
	case PeriodHour:
		return time.Hour
	case PeriodDay:
		return 24 * time.Hour
	case PeriodWeek:
		return 7 * 24 * time.Hour
	}
	return 0
}

// Valid reports whether the period type is one of hour, day or week.
func (p PeriodType) Valid() bool {
	return p == PeriodHour || p == PeriodDay || p == PeriodWeek
}

// TimePolicyType selects between a fixed instant and a random range.
type TimePolicyType string

const (
	TimeSpecific TimePolicyType = "specific"
	TimeRange    TimePolicyType = "range"
)

// ClockTime is an hour/minute pair derived from a raw "HH:MM" string.
type ClockTime struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// ParseClockTime parses a "HH:MM" string.
func ParseClockTime(raw string) (ClockTime, error) {
	if len(raw) != 5 || raw[2] != ':' {
		return ClockTime{}, ErrInvalidTimeValue
	}
	hour, err := strconv.Atoi(raw[0:2])
	if err != nil || hour < 0 || hour > 23 {
		return ClockTime{}, ErrInvalidTimeValue
	}
	minute, err := strconv.Atoi(raw[3:5])
	if err != nil || minute < 0 || minute > 59 {
		return ClockTime{}, ErrInvalidTimeValue
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}

// String renders the time back as "HH:MM".
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// FrequencyConfig is the posting quota per period window.
type FrequencyConfig struct {
	Type PeriodType `json:"type"`

	// Value is the quota per period. Zero means never auto-schedule.
	Value int `json:"value"`
}

// TimeConfig is the time-of-day placement policy.
type TimeConfig struct {
	Type TimePolicyType `json:"type"`

	// Value holds the raw "HH:MM" strings (one for specific, two for range).
	Value []string `json:"value"`

	// Computed holds the parsed hour/minute pairs, derived from Value on
	// every config update.
	Computed []ClockTime `json:"computed_value"`

	// TZ is the timezone offset in minutes. Some timezones shift by
	// fractions of an hour, so this cannot be whole hours.
	TZ int `json:"tz"`
}

// ResponseConfig holds the reply-queue behavior flags.
type ResponseConfig struct {
	// IncludeOrdinaryPosts pulls the whole home timeline into the reply
	// queue instead of mentions only.
	IncludeOrdinaryPosts bool `json:"include_ordinary_posts"`

	// AutoLikeOnReply likes a tweet automatically when it is answered.
	AutoLikeOnReply bool `json:"auto_like_on_reply"`
}

// AccountConfig is the per-account scheduling configuration. It is
// overwritten wholesale on every update, which always triggers a rebalance.
type AccountConfig struct {
	Frequency FrequencyConfig `json:"frequency"`
	Time      TimeConfig      `json:"time"`

	// TelegramResponsesEnabled turns on mention ingestion into the chat bot.
	TelegramResponsesEnabled bool `json:"telegram_responses_enabled"`

	Responses ResponseConfig `json:"responses"`
}

// DefaultAccountConfig is the config assigned on first access:
// one post per day, placed randomly between 08:00 and 18:00 UTC.
func DefaultAccountConfig() *AccountConfig {
	return &AccountConfig{
		Frequency: FrequencyConfig{Type: PeriodDay, Value: 1},
		Time: TimeConfig{
			Type:     TimeRange,
			Value:    []string{"08:00", "18:00"},
			Computed: []ClockTime{{Hour: 8}, {Hour: 18}},
			TZ:       0,
		},
	}
}

// Validate checks the config and fills Computed from the raw values.
func (c *AccountConfig) Validate() error {
	validation := &ValidationErrors{}

	if !c.Frequency.Type.Valid() {
		validation.Add("frequency.type", ErrInvalidFrequencyType)
	}
	if c.Frequency.Value < 0 {
		validation.Add("frequency.value", ErrInvalidFrequencyValue)
	}

	switch c.Time.Type {
	case TimeSpecific:
		if len(c.Time.Value) < 1 {
			validation.Add("time.value", ErrInvalidTimeValue)
		}
	case TimeRange:
		if len(c.Time.Value) != 2 {
			validation.Add("time.value", ErrInvalidRangeArity)
		}
	default:
		validation.Add("time.type", ErrInvalidTimeType)
	}

	computed := make([]ClockTime, 0, len(c.Time.Value))
	for i, raw := range c.Time.Value {
		ct, err := ParseClockTime(raw)
		if err != nil {
			validation.Add(fmt.Sprintf("time.value[%d]", i), err)
			continue
		}
		computed = append(computed, ct)
	}
	if err := validation.Err(); err != nil {
		return err
	}

	c.Time.Computed = computed
	return nil
}

// NotificationMethods records where an account's notifications go.
// A zero TelegramChatID means no chat is linked.
type NotificationMethods struct {
	TelegramChatID int64 `json:"telegram"`
}

// AuthData holds the platform OAuth tokens for an account.
type AuthData struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ValidUntil   time.Time `json:"valid_until"`
}

// Fulfillment is the result of comparing scheduled posts against the quota
// for one period window.
type Fulfillment struct {
	Fulfilled   bool       `json:"fulfilled"`
	PeriodType  PeriodType `json:"period_type"`
	PeriodStart int64      `json:"period_start"`
	Expectation int        `json:"expectation"`
	Reality     int        `json:"reality"`
}
