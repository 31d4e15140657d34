package domain

import (
	"context"
	"fmt"
	"log/slog"
)

// Relationships expands one item into one or two ordered posts depending on
// its retweet/quote/reply linkage.
type Relationships struct {
	composer *Composer
	logger   *slog.Logger
}

// NewRelationships creates a relationship composer on top of the embed
// composer.
func NewRelationships(composer *Composer, logger *slog.Logger) *Relationships {
	return &Relationships{composer: composer, logger: logger}
}

// Compose returns [primary] or [primary, quoted]. For a retweet the retweeted
// item becomes the primary post, annotated with the retweeter's handle; for a
// reply the item itself is primary, annotated with the replied-to author. A
// quoted item, when resolvable, is appended as an annotated secondary post.
func (r *Relationships) Compose(ctx context.Context, it *Item, lookup *Lookup) []*Post {
	primarySource := it

	if it.IsRetweet() {
		if original := lookup.Item(it.RetweetOf); original != nil && original.Valid(lookup) {
			primarySource = original
		} else {
			r.logger.Warn("retweeted item not resolvable, composing retweet shell",
				"item_id", it.ID, "retweet_of", it.RetweetOf)
		}
	}

	primary := r.composer.Compose(ctx, primarySource, lookup)

	if it.IsRetweet() && primarySource != it {
		if retweeter := lookup.Author(it.AuthorID); retweeter != nil {
			primary.AuthorLine += fmt.Sprintf(" [RT BY @%s]", retweeter.Handle)
		}
	} else if it.IsReply() {
		if orig := lookup.Author(it.ReplyToAuthorID); orig != nil {
			primary.AuthorLine += fmt.Sprintf(" [REPLY TO @%s]", orig.Handle)
		}
	}

	posts := []*Post{primary}

	if it.IsQuote() {
		if quoted := lookup.Item(it.QuoteOf); quoted != nil && quoted.Valid(lookup) {
			secondary := r.composer.Compose(ctx, quoted, lookup)
			secondary.AuthorLine = "[QUOTED] " + secondary.AuthorLine
			posts = append(posts, secondary)
		} else {
			r.logger.Warn("quoted item not resolvable, skipping secondary post",
				"item_id", it.ID, "quote_of", it.QuoteOf)
		}
	}

	return posts
}
