package bot

import "strings"

// Action verbs carried in callback data.
const (
	VerbLike    = "like"
	VerbRetweet = "retweet"
	VerbSkip    = "skip_queue_item"
	VerbDelay   = "delay_queue_item"
)

// Action is a parsed inline-button press.
type Action struct {
	Verb string

	// Arg is the tweet id for like/retweet actions.
	Arg string
}

// ParseAction decodes callback data. Engagement verbs carry the target tweet
// id after an underscore; queue verbs stand alone.
func ParseAction(data string) (Action, bool) {
	switch data {
	case VerbSkip, VerbDelay:
		return Action{Verb: data}, true
	}
	for _, verb := range []string{VerbLike, VerbRetweet} {
		if arg, ok := strings.CutPrefix(data, verb+"_"); ok && arg != "" {
			return Action{Verb: verb, Arg: arg}, true
		}
	}
	return Action{}, false
}
