package models

import "errors"

// Validation errors for models
var (
	// Post errors
	ErrEmptyPostText    = errors.New("post text is required")
	ErrInvalidAccountID = errors.New("account id is required")
	ErrInvalidOffset    = errors.New("random offset must be in [0, 1)")

	// Config errors
	ErrInvalidFrequencyType  = errors.New("frequency type must be hour, day or week")
	ErrInvalidFrequencyValue = errors.New("frequency value must be >= 0")
	ErrInvalidTimeType       = errors.New("time type must be specific or range")
	ErrInvalidTimeValue      = errors.New("time values must be HH:MM strings")
	ErrInvalidRangeArity     = errors.New("range time requires exactly two values")

	// Reply queue errors
	ErrInvalidChatID  = errors.New("chat id is required")
	ErrInvalidTweetID = errors.New("tweet id is required")
)
