package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRelationships() *Relationships {
	return NewRelationships(newTestComposer(nil), testLogger())
}

func TestRelationships_PlainItem(t *testing.T) {
	r := newTestRelationships()
	lookup := testLookup()
	it := &Item{ID: "200", AuthorID: "1", Text: "just words"}

	posts := r.Compose(context.Background(), it, lookup)

	require.Len(t, posts, 1)
	assert.Equal(t, "Alice A (@alice)", posts[0].AuthorLine)
}

func TestRelationships_RetweetComposesOriginal(t *testing.T) {
	r := newTestRelationships()
	lookup := testLookup()
	original := &Item{ID: "900", AuthorID: "2", Text: "original words"}
	lookup.Items["900"] = original
	it := &Item{ID: "201", AuthorID: "1", Text: "RT @bob: original words", RetweetOf: "900"}

	posts := r.Compose(context.Background(), it, lookup)

	require.Len(t, posts, 1)
	assert.Equal(t, "@bob [RT BY @alice]", posts[0].AuthorLine)
	assert.Equal(t, "original words", posts[0].Description)
	assert.Equal(t, "https://twitter.com/bob/status/900", posts[0].URL)
}

func TestRelationships_ReplyAnnotated(t *testing.T) {
	r := newTestRelationships()
	lookup := testLookup()
	it := &Item{
		ID:              "202",
		AuthorID:        "1",
		Text:            "answering",
		ReplyTo:         "901",
		ReplyToAuthorID: "2",
	}

	posts := r.Compose(context.Background(), it, lookup)

	require.Len(t, posts, 1)
	assert.Equal(t, "Alice A (@alice) [REPLY TO @bob]", posts[0].AuthorLine)
}

func TestRelationships_SelfReplyStillAnnotated(t *testing.T) {
	r := newTestRelationships()
	lookup := testLookup()
	it := &Item{
		ID:              "203",
		AuthorID:        "1",
		Text:            "thread continues",
		ReplyTo:         "902",
		ReplyToAuthorID: "1",
	}

	posts := r.Compose(context.Background(), it, lookup)

	require.Len(t, posts, 1)
	assert.Equal(t, "Alice A (@alice) [REPLY TO @alice]", posts[0].AuthorLine)
}

func TestRelationships_QuoteAddsSecondaryPost(t *testing.T) {
	r := newTestRelationships()
	lookup := testLookup()
	quoted := &Item{ID: "903", AuthorID: "2", Text: "quoted words"}
	lookup.Items["903"] = quoted
	it := &Item{ID: "204", AuthorID: "1", Text: "look at this", QuoteOf: "903"}

	posts := r.Compose(context.Background(), it, lookup)

	require.Len(t, posts, 2)
	assert.Equal(t, "Alice A (@alice)", posts[0].AuthorLine)
	assert.Equal(t, "look at this", posts[0].Description)
	assert.Equal(t, "[QUOTED] @bob", posts[1].AuthorLine)
	assert.Equal(t, "quoted words", posts[1].Description)
}

func TestRelationships_UnresolvableQuoteSkipsSecondary(t *testing.T) {
	r := newTestRelationships()
	lookup := testLookup()
	it := &Item{ID: "205", AuthorID: "1", Text: "look at this", QuoteOf: "missing"}

	posts := r.Compose(context.Background(), it, lookup)

	require.Len(t, posts, 1)
}

func TestRelationships_UnresolvableRetweetFallsBackToShell(t *testing.T) {
	r := newTestRelationships()
	lookup := testLookup()
	it := &Item{ID: "206", AuthorID: "1", Text: "RT @ghost: gone", RetweetOf: "missing"}

	posts := r.Compose(context.Background(), it, lookup)

	require.Len(t, posts, 1)
	assert.Equal(t, "Alice A (@alice)", posts[0].AuthorLine)
}
