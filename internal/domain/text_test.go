package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUnfurler serves canned metadata per URL and fails for anything else.
type fakeUnfurler struct {
	metas map[string]*LinkMetadata
}

func (f *fakeUnfurler) FetchMetadata(_ context.Context, url string) (*LinkMetadata, error) {
	if meta, ok := f.metas[url]; ok {
		return meta, nil
	}
	return nil, errors.New("unfurl failed")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestReconstructor(metas map[string]*LinkMetadata) *Reconstructor {
	return NewReconstructor(&fakeUnfurler{metas: metas}, testLogger())
}

func TestReconstruct_NoEntities(t *testing.T) {
	r := newTestReconstructor(nil)

	got := r.Reconstruct(context.Background(), "hello world", nil, nil, true)

	assert.Equal(t, "hello world", got.Text)
	assert.Empty(t, got.PreviewImageURL)
}

func TestReconstruct_ReplyPreambleDeleted(t *testing.T) {
	r := newTestReconstructor(nil)
	entities := &Entities{
		Mentions: []Mention{
			{Start: 0, End: 6, Handle: "alice"},
			{Start: 7, End: 11, Handle: "bob"},
		},
	}

	got := r.Reconstruct(context.Background(), "@alice @bob hello", entities, nil, true)

	assert.Equal(t, "hello", got.Text)
}

func TestReconstruct_PreambleEndsAtFirstGap(t *testing.T) {
	r := newTestReconstructor(nil)
	// "@alice hi @bob yo": @alice is a preamble of one; @bob starts past the
	// gap and becomes a link.
	entities := &Entities{
		Mentions: []Mention{
			{Start: 0, End: 6, Handle: "alice"},
			{Start: 10, End: 14, Handle: "bob"},
		},
	}

	got := r.Reconstruct(context.Background(), "@alice hi @bob yo", entities, nil, true)

	assert.Equal(t, "hi [@bob](https://twitter.com/bob) yo", got.Text)
}

func TestReconstruct_MentionUsesDisplayNameFromLookup(t *testing.T) {
	r := newTestReconstructor(nil)
	lookup := &Lookup{
		AuthorsByName: map[string]*Author{
			"bob": {ID: "2", Handle: "bob", Name: "Bob Builder"},
		},
	}
	entities := &Entities{
		Mentions: []Mention{{Start: 3, End: 7, Handle: "bob"}},
	}

	got := r.Reconstruct(context.Background(), "cc @bob", entities, lookup, true)

	assert.Equal(t, "cc [@Bob Builder](https://twitter.com/bob)", got.Text)
}

func TestReconstruct_HashtagsAndCashtags(t *testing.T) {
	r := newTestReconstructor(nil)
	entities := &Entities{
		Hashtags: []Tag{{Start: 3, End: 10, Text: "golang"}},
		Cashtags: []Tag{{Start: 11, End: 16, Text: "TSLA"}},
	}

	got := r.Reconstruct(context.Background(), "go #golang $TSLA", entities, nil, true)

	assert.Equal(t,
		"go [#golang](https://twitter.com/hashtag/golang) [$TSLA](https://twitter.com/search?q=%24TSLA)",
		got.Text)
}

func TestReconstruct_LinkExpanded(t *testing.T) {
	r := newTestReconstructor(map[string]*LinkMetadata{
		"https://example.com/story": {},
	})
	entities := &Entities{
		Links: []Link{{Start: 5, End: 21, URL: "https://t.co/abc", Expanded: "https://example.com/story"}},
	}

	got := r.Reconstruct(context.Background(), "read https://t.co/abc now", entities, nil, false)

	assert.Equal(t, "read https://example.com/story now", got.Text)
	assert.Empty(t, got.PreviewImageURL, "preview only applies to text-only items")
}

func TestReconstruct_PreviewFromLastResolvedLink(t *testing.T) {
	r := newTestReconstructor(map[string]*LinkMetadata{
		"https://a.example/1": {OpenGraphImages: []string{"https://a.example/a.png"}},
		"https://b.example/2": {OpenGraphImages: []string{"https://b.example/b.png"}},
	})
	entities := &Entities{
		Links: []Link{
			{Start: 0, End: 16, URL: "https://t.co/aaa", Expanded: "https://a.example/1"},
			{Start: 17, End: 33, URL: "https://t.co/bbb", Expanded: "https://b.example/2"},
		},
	}

	got := r.Reconstruct(context.Background(), "https://t.co/aaa https://t.co/bbb", entities, nil, true)

	assert.Equal(t, "https://a.example/1 https://b.example/2", got.Text)
	assert.Equal(t, "https://b.example/b.png", got.PreviewImageURL)
}

func TestReconstruct_FailedLookupIsolated(t *testing.T) {
	// Only the first link resolves; the second fails but is still expanded.
	r := newTestReconstructor(map[string]*LinkMetadata{
		"https://a.example/1": {OpenGraphImages: []string{"https://a.example/a.png"}},
	})
	entities := &Entities{
		Links: []Link{
			{Start: 0, End: 16, URL: "https://t.co/aaa", Expanded: "https://a.example/1"},
			{Start: 17, End: 33, URL: "https://t.co/bbb", Expanded: "https://b.example/2"},
		},
	}

	got := r.Reconstruct(context.Background(), "https://t.co/aaa https://t.co/bbb", entities, nil, true)

	assert.Equal(t, "https://a.example/1 https://b.example/2", got.Text)
	assert.Equal(t, "https://a.example/a.png", got.PreviewImageURL)
}

func TestReconstruct_TwitterCardBeatsOpenGraph(t *testing.T) {
	r := newTestReconstructor(map[string]*LinkMetadata{
		"https://a.example/1": {
			OpenGraphImages:   []string{"https://a.example/og.png"},
			TwitterCardImages: []string{"https://a.example/card.png"},
		},
	})
	entities := &Entities{
		Links: []Link{{Start: 0, End: 16, URL: "https://t.co/aaa", Expanded: "https://a.example/1"}},
	}

	got := r.Reconstruct(context.Background(), "https://t.co/aaa", entities, nil, true)

	assert.Equal(t, "https://a.example/card.png", got.PreviewImageURL)
}

func TestReconstruct_ProtocolRelativePreviewPinnedToHTTPS(t *testing.T) {
	r := newTestReconstructor(map[string]*LinkMetadata{
		"https://a.example/1": {
			TwitterCardImages: []string{"//cdn.a.example/card.png"},
		},
	})
	entities := &Entities{
		Links: []Link{{Start: 0, End: 16, URL: "https://t.co/aaa", Expanded: "https://a.example/1"}},
	}

	got := r.Reconstruct(context.Background(), "https://t.co/aaa", entities, nil, true)

	assert.Equal(t, "https://cdn.a.example/card.png", got.PreviewImageURL)
}

func TestReconstruct_UnusableImagesSkipped(t *testing.T) {
	r := newTestReconstructor(map[string]*LinkMetadata{
		"https://a.example/1": {
			TwitterCardImages: []string{"", "notaurl", "ftp://a.example/x.png"},
			OpenGraphImages:   []string{"https://a.example/real.jpg"},
		},
	})
	entities := &Entities{
		Links: []Link{{Start: 0, End: 16, URL: "https://t.co/aaa", Expanded: "https://a.example/1"}},
	}

	got := r.Reconstruct(context.Background(), "https://t.co/aaa", entities, nil, true)

	assert.Equal(t, "https://a.example/real.jpg", got.PreviewImageURL)
}

func TestReconstruct_HTMLEntitiesUnescaped(t *testing.T) {
	r := newTestReconstructor(nil)
	entities := &Entities{
		Hashtags: []Tag{{Start: 0, End: 3, Text: "go"}},
	}

	got := r.Reconstruct(context.Background(), "#go a &amp; b &gt; c &lt; d", entities, nil, true)

	assert.Equal(t, "[#go](https://twitter.com/hashtag/go) a & b > c < d", got.Text)
}

func TestReconstruct_TrailingShortenerTruncated(t *testing.T) {
	r := newTestReconstructor(nil)
	entities := &Entities{
		Hashtags: []Tag{{Start: 0, End: 3, Text: "go"}},
	}

	got := r.Reconstruct(context.Background(), "#go hello https://t.co/img123", entities, nil, false)

	assert.Equal(t, "[#go](https://twitter.com/hashtag/go) hello ", got.Text)
}

func TestReconstruct_LengthProperty(t *testing.T) {
	// For non-overlapping spans without truncation or unescaping, the output
	// length is the input length plus the per-span length deltas.
	r := newTestReconstructor(map[string]*LinkMetadata{
		"https://a.example/1": {},
	})
	text := "cc @bob read https://t.co/abc #go"
	entities := &Entities{
		Mentions: []Mention{{Start: 3, End: 7, Handle: "bob"}},
		Links:    []Link{{Start: 13, End: 29, URL: "https://x.co/a", Expanded: "https://a.example/1"}},
		Hashtags: []Tag{{Start: 30, End: 33, Text: "go"}},
	}

	got := r.Reconstruct(context.Background(), text, entities, nil, false)

	require.NotEmpty(t, got.Text)
	delta := 0
	delta += len([]rune("[@bob](https://twitter.com/bob)")) - (7 - 3)
	delta += len([]rune("https://a.example/1")) - (29 - 13)
	delta += len([]rune("[#go](https://twitter.com/hashtag/go)")) - (33 - 30)
	assert.Equal(t, len([]rune(text))+delta, len([]rune(got.Text)))
}

func TestReconstruct_CodePointOffsets(t *testing.T) {
	// Offsets are code points: the emoji counts as one unit.
	r := newTestReconstructor(nil)
	text := "🎉 #go yay"
	entities := &Entities{
		Hashtags: []Tag{{Start: 2, End: 5, Text: "go"}},
	}

	got := r.Reconstruct(context.Background(), text, entities, nil, true)

	assert.Equal(t, "🎉 [#go](https://twitter.com/hashtag/go) yay", got.Text)
}

func TestReconstruct_InvalidSpansIgnored(t *testing.T) {
	r := newTestReconstructor(nil)
	entities := &Entities{
		Hashtags: []Tag{
			{Start: 12, End: 20, Text: "oob"},
			{Start: 0, End: 3, Text: "ok"},
		},
	}

	got := r.Reconstruct(context.Background(), "#ok here", entities, nil, true)

	assert.Equal(t, "[#ok](https://twitter.com/hashtag/ok) here", got.Text)
}
