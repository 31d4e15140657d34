package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_NoTextFlag(t *testing.T) {
	lookup := testLookup()
	textItem := &Item{ID: "1", AuthorID: "1", Text: "words"}

	lookup.Media["m1"] = &Media{Key: "m1", Type: MediaPhoto, URL: "https://img.example/a.jpg"}
	mediaItem := &Item{ID: "2", AuthorID: "1", Text: "pic", MediaKeys: []string{"m1"}}

	sub := Subscription{Flags: FlagNoText}
	assert.False(t, sub.InterestedIn(textItem, lookup))
	assert.True(t, sub.InterestedIn(mediaItem, lookup))

	// Without the flag, text items pass.
	assert.True(t, Subscription{}.InterestedIn(textItem, lookup))
}

func TestFilter_RetweetsOptIn(t *testing.T) {
	lookup := testLookup()
	rt := &Item{ID: "1", AuthorID: "1", Text: "RT", RetweetOf: "9"}

	assert.False(t, Subscription{}.InterestedIn(rt, lookup))
	assert.True(t, Subscription{Flags: FlagRetweets}.InterestedIn(rt, lookup))
}

func TestFilter_QuotesOptOut(t *testing.T) {
	lookup := testLookup()
	lookup.Media["m1"] = &Media{Key: "m1", Type: MediaPhoto, URL: "https://img.example/a.jpg"}
	quote := &Item{ID: "1", AuthorID: "1", Text: "look", QuoteOf: "9", MediaKeys: []string{"m1"}}

	assert.False(t, Subscription{Flags: FlagNoQuotes}.InterestedIn(quote, lookup))
	assert.True(t, Subscription{}.InterestedIn(quote, lookup))
}

func TestFilter_RepliesOptInWithSelfThreadException(t *testing.T) {
	lookup := testLookup()
	toOther := &Item{ID: "1", AuthorID: "1", Text: "re", ReplyTo: "9", ReplyToAuthorID: "2"}
	selfThread := &Item{ID: "2", AuthorID: "1", Text: "re", ReplyTo: "9", ReplyToAuthorID: "1"}

	assert.False(t, Subscription{}.InterestedIn(toOther, lookup))
	assert.True(t, Subscription{Flags: FlagReplies}.InterestedIn(toOther, lookup))
	assert.True(t, Subscription{}.InterestedIn(selfThread, lookup))
}

func TestFilter_PreservesOrderAndIdentity(t *testing.T) {
	lookup := testLookup()
	it := &Item{ID: "1", AuthorID: "1", Text: "words"}

	subs := []Subscription{
		{UserID: "1", ChannelID: "c1", Message: "heads up"},
		{UserID: "1", ChannelID: "c2", Flags: FlagNoText},
		{UserID: "1", ChannelID: "c3"},
	}

	got := Filter(it, lookup, subs)

	assert.Equal(t, []Subscription{
		{UserID: "1", ChannelID: "c1", Message: "heads up"},
		{UserID: "1", ChannelID: "c3"},
	}, got)
}

func TestFlagsHas(t *testing.T) {
	f := FlagRetweets | FlagReplies
	assert.True(t, f.Has(FlagRetweets))
	assert.True(t, f.Has(FlagReplies))
	assert.False(t, f.Has(FlagNoText))
	assert.False(t, f.Has(FlagNoQuotes))
}
