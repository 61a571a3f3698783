// Package render draws reply-queue items as MarkdownV2 text: a box-drawing
// thread graph with the parent tweet, the mention and the answer nested.
package render

import (
	"fmt"
	"strings"

	"github.com/janic0/autotwitter/internal/models"
	"github.com/janic0/autotwitter/internal/telegram"
)

// Thread renders a tweet and its context as nested box sections. Each
// section is indented one level deeper than the previous one: the parent
// first (if the mention is a reply), then the mention itself, then the
// answer once one exists.
func Thread(tweet *models.Tweet, answer string) string {
	var b strings.Builder
	indent := 0

	section := func(lines ...string) {
		pad := strings.Repeat("  ", indent)
		b.WriteString(pad + "┏━━━━━\n")
		for _, line := range lines {
			b.WriteString(pad + "    " + line + "\n")
		}
		b.WriteString(pad + "┗━━━━━\n")
		indent++
	}

	if tweet.RepliedTo != nil && tweet.RepliedTo.Text != "" {
		section(
			authorLink(tweet.RepliedTo.Author),
			"_"+telegram.EscapeMarkdownV2(tweet.RepliedTo.Text)+"_",
		)
	}
	section(
		authorLink(tweet.Author),
		"*"+telegram.EscapeMarkdownV2(tweet.Text)+"*",
	)
	if answer != "" {
		section("_" + telegram.EscapeMarkdownV2(answer) + "_")
	}
	return b.String()
}

// authorLink renders "Name (@username)" as a profile link. Unknown fields
// degrade to question marks instead of breaking the layout.
func authorLink(author *models.TweetAuthor) string {
	name, username := "?", "?"
	if author != nil {
		if author.Name != "" {
			name = author.Name
		}
		if author.Username != "" {
			username = author.Username
		}
	}
	label := telegram.EscapeMarkdownV2(fmt.Sprintf("%s (@%s)", name, username))
	return fmt.Sprintf("[%s](https://twitter.com/%s)", label, username)
}
