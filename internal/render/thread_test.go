package render

import (
	"strings"
	"testing"

	"github.com/janic0/autotwitter/internal/models"
)

func TestThreadPlainMention(t *testing.T) {
	tweet := &models.Tweet{
		ID:     "100",
		Text:   "hello there",
		Author: &models.TweetAuthor{Name: "Alice", Username: "alice"},
	}

	got := Thread(tweet, "")
	want := "┏━━━━━\n" +
		"    [Alice \\(@alice\\)](https://twitter.com/alice)\n" +
		"    *hello there*\n" +
		"┗━━━━━\n"
	if got != want {
		t.Errorf("Thread() =\n%q\nwant\n%q", got, want)
	}
}

func TestThreadNestsParentAndAnswer(t *testing.T) {
	tweet := &models.Tweet{
		ID:   "100",
		Text: "replying to you",
		Author: &models.TweetAuthor{
			Name: "Bob", Username: "bob",
		},
		RepliedTo: &models.ReferencedTweet{
			ID:     "90",
			Text:   "original post",
			Author: &models.TweetAuthor{Name: "Carol", Username: "carol"},
		},
	}

	got := Thread(tweet, "thanks!")
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 11 {
		t.Fatalf("line count = %d, want 11:\n%s", len(lines), got)
	}

	// Each section is indented two spaces deeper than the previous.
	if !strings.HasPrefix(lines[0], "┏") {
		t.Errorf("parent section start = %q", lines[0])
	}
	if !strings.HasPrefix(lines[4], "  ┏") {
		t.Errorf("mention section start = %q", lines[4])
	}
	if !strings.HasPrefix(lines[8], "    ┏") {
		t.Errorf("answer section start = %q", lines[8])
	}
	if !strings.Contains(got, "_original post_") {
		t.Error("parent text not italicized")
	}
	if !strings.Contains(got, "*replying to you*") {
		t.Error("mention text not bolded")
	}
	if !strings.Contains(got, "_thanks\\!_") {
		t.Error("answer not escaped and italicized")
	}
}

func TestThreadUnknownAuthor(t *testing.T) {
	tweet := &models.Tweet{ID: "100", Text: "anon"}

	got := Thread(tweet, "")
	if !strings.Contains(got, "[? \\(@?\\)](https://twitter.com/?)") {
		t.Errorf("missing placeholder author link:\n%s", got)
	}
}
