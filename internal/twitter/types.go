package twitter

import "github.com/janic0/autotwitter/internal/models"

// Wire structs for the platform's v2 responses. Only the fields the
// application reads are mapped.

type tweetObject struct {
	ID               string `json:"id"`
	AuthorID         string `json:"author_id"`
	Text             string `json:"text"`
	ReferencedTweets []struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	} `json:"referenced_tweets"`
	Attachments struct {
		MediaKeys []string `json:"media_keys"`
	} `json:"attachments"`
}

type userObject struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	Name            string `json:"name"`
	ProfileImageURL string `json:"profile_image_url"`
}

type mediaObject struct {
	MediaKey string `json:"media_key"`
	Type     string `json:"type"`
	URL      string `json:"url"`
}

type timelineResponse struct {
	Data     []tweetObject `json:"data"`
	Includes struct {
		Users  []userObject  `json:"users"`
		Tweets []tweetObject `json:"tweets"`
		Media  []mediaObject `json:"media"`
	} `json:"includes"`
	Meta struct {
		NewestID    string `json:"newest_id"`
		ResultCount int    `json:"result_count"`
	} `json:"meta"`
}

type createTweetRequest struct {
	Text  string `json:"text"`
	Reply *struct {
		InReplyToTweetID string `json:"in_reply_to_tweet_id"`
	} `json:"reply,omitempty"`
}

type createTweetResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// MentionBatch is a hydrated page of inbound tweets plus the watermark to
// persist for the next fetch.
type MentionBatch struct {
	Tweets   []models.Tweet
	NewestID string
}

// hydrate joins a raw timeline page with its includes, producing tweets with
// author, parent and media resolved.
func (r *timelineResponse) hydrate() []models.Tweet {
	users := make(map[string]*models.TweetAuthor, len(r.Includes.Users))
	for _, u := range r.Includes.Users {
		users[u.ID] = &models.TweetAuthor{
			ID:              u.ID,
			Username:        u.Username,
			Name:            u.Name,
			ProfileImageURL: u.ProfileImageURL,
		}
	}
	parents := make(map[string]tweetObject, len(r.Includes.Tweets))
	for _, t := range r.Includes.Tweets {
		parents[t.ID] = t
	}
	media := make(map[string]models.TweetMedia, len(r.Includes.Media))
	for _, m := range r.Includes.Media {
		media[m.MediaKey] = models.TweetMedia{Key: m.MediaKey, Type: m.Type, URL: m.URL}
	}

	tweets := make([]models.Tweet, 0, len(r.Data))
	for _, raw := range r.Data {
		tweet := models.Tweet{
			ID:       raw.ID,
			AuthorID: raw.AuthorID,
			Text:     raw.Text,
			Author:   users[raw.AuthorID],
		}
		for _, ref := range raw.ReferencedTweets {
			if ref.Type != "replied_to" {
				continue
			}
			parent := &models.ReferencedTweet{ID: ref.ID}
			if hydrated, ok := parents[ref.ID]; ok {
				parent.Text = hydrated.Text
				parent.Author = users[hydrated.AuthorID]
			}
			tweet.RepliedTo = parent
			break
		}
		for _, key := range raw.Attachments.MediaKeys {
			if m, ok := media[key]; ok {
				tweet.Media = append(tweet.Media, m)
			}
		}
		tweets = append(tweets, tweet)
	}
	return tweets
}
