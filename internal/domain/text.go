package domain

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// shortenerPrefix is the provider link shortener. Any occurrence left in the
// text after entity substitution is a trailing auto-appended media link with
// no visible content of its own.
const shortenerPrefix = "https://t.co/"

// Reconstructed is the output of text reconstruction.
type Reconstructed struct {
	Text string

	// PreviewImageURL is set for pure-text items whose last resolvable link
	// unfurled to a page with a usable card image.
	PreviewImageURL string
}

// Reconstructor rewrites raw item text using entity offset spans and extracts
// an optional preview image from unfurled links.
type Reconstructor struct {
	unfurler Unfurler
	logger   *slog.Logger
}

// NewReconstructor creates a Reconstructor using the given unfurler for link
// metadata lookups.
func NewReconstructor(unfurler Unfurler, logger *slog.Logger) *Reconstructor {
	return &Reconstructor{unfurler: unfurler, logger: logger}
}

// span is one pending text substitution over the half-open code-point range
// [start, end).
type span struct {
	start       int
	end         int
	replacement string
}

// Reconstruct rewrites text according to its entities. Mention runs forming a
// reply preamble are deleted, remaining mentions, hashtags and cashtags become
// markdown links, shortened links are expanded, and for text-only items the
// last resolvable link may contribute a preview image.
func (r *Reconstructor) Reconstruct(ctx context.Context, text string, entities *Entities, lookup *Lookup, textOnly bool) Reconstructed {
	if entities.Empty() {
		return Reconstructed{Text: text}
	}

	runes := []rune(text)
	spans := make([]span, 0, len(entities.Mentions)+len(entities.Links)+len(entities.Hashtags)+len(entities.Cashtags))

	spans = append(spans, r.mentionSpans(runes, entities.Mentions, lookup)...)

	linkSpans, preview := r.linkSpans(ctx, entities.Links, textOnly)
	spans = append(spans, linkSpans...)

	for _, tag := range entities.Hashtags {
		if !validSpan(runes, tag.Start, tag.End) {
			continue
		}
		spans = append(spans, span{
			start:       tag.Start,
			end:         tag.End,
			replacement: fmt.Sprintf("[#%s](https://twitter.com/hashtag/%s)", tag.Text, tag.Text),
		})
	}
	for _, tag := range entities.Cashtags {
		if !validSpan(runes, tag.Start, tag.End) {
			continue
		}
		spans = append(spans, span{
			start:       tag.Start,
			end:         tag.End,
			replacement: fmt.Sprintf("[$%s](https://twitter.com/search?q=%%24%s)", tag.Text, tag.Text),
		})
	}

	out := applySpans(runes, spans)
	out = unescapeHTML(out)

	// Anything still pointing at the shortener is the auto-appended media
	// link; cut the text there.
	if idx := strings.Index(out, shortenerPrefix); idx >= 0 {
		out = out[:idx]
	}

	return Reconstructed{Text: out, PreviewImageURL: preview}
}

// mentionSpans builds deletion spans for the reply preamble and link spans for
// every mention after it. A preamble mention's deletion span absorbs the
// separator that follows it, so the next preamble mention starts exactly at
// the end of the previous deleted span. The first mention that breaks the
// chain ends the preamble for good.
func (r *Reconstructor) mentionSpans(runes []rune, mentions []Mention, lookup *Lookup) []span {
	spans := make([]span, 0, len(mentions))
	cursor := 0
	inPreamble := true
	for _, m := range mentions {
		if !validSpan(runes, m.Start, m.End) {
			continue
		}
		if inPreamble && m.Start == cursor {
			end := m.End
			if end < len(runes) && runes[end] == ' ' {
				end++
			}
			spans = append(spans, span{start: m.Start, end: end})
			cursor = end
			continue
		}
		inPreamble = false
		name := m.Handle
		if a := lookup.AuthorByHandle(m.Handle); a != nil && a.Name != "" {
			name = a.Name
		}
		spans = append(spans, span{
			start:       m.Start,
			end:         m.End,
			replacement: fmt.Sprintf("[@%s](https://twitter.com/%s)", name, m.Handle),
		})
	}
	return spans
}

// linkSpans resolves all links concurrently, replaces each with its expanded
// form and, for text-only items, picks a preview image from the last link
// that unfurled successfully.
func (r *Reconstructor) linkSpans(ctx context.Context, links []Link, textOnly bool) ([]span, string) {
	if len(links) == 0 {
		return nil, ""
	}

	metas := make([]*LinkMetadata, len(links))
	var wg sync.WaitGroup
	for i, link := range links {
		target := link.Expanded
		if target == "" {
			target = link.URL
		}
		wg.Add(1)
		go func(i int, target string) {
			defer wg.Done()
			meta, err := r.unfurler.FetchMetadata(ctx, target)
			if err != nil {
				// Accepted degradation: this link gets no preview.
				return
			}
			metas[i] = meta
		}(i, target)
	}
	wg.Wait()

	spans := make([]span, 0, len(links))
	for _, link := range links {
		expanded := link.Expanded
		if expanded == "" {
			expanded = link.URL
		}
		spans = append(spans, span{start: link.Start, end: link.End, replacement: expanded})
	}

	var preview string
	if textOnly {
		for i := len(metas) - 1; i >= 0; i-- {
			if metas[i] == nil {
				continue
			}
			preview = pickPreviewImage(metas[i])
			break
		}
	}
	return spans, preview
}

// pickPreviewImage returns the first usable image URL, preferring twitter-card
// images over Open-Graph ones. Protocol-relative URLs are pinned to https.
func pickPreviewImage(meta *LinkMetadata) string {
	candidates := make([]string, 0, len(meta.TwitterCardImages)+len(meta.OpenGraphImages))
	candidates = append(candidates, meta.TwitterCardImages...)
	candidates = append(candidates, meta.OpenGraphImages...)
	for _, img := range candidates {
		if !usableImageURL(img) {
			continue
		}
		if strings.HasPrefix(img, "//") {
			return "https:" + img
		}
		return img
	}
	return ""
}

// usableImageURL reports whether a card image URL is worth embedding: it must
// be non-empty, http(s) or protocol-relative, and contain a dot past the
// first character.
func usableImageURL(img string) bool {
	if img == "" {
		return false
	}
	if !strings.HasPrefix(img, "http://") && !strings.HasPrefix(img, "https://") && !strings.HasPrefix(img, "//") {
		return false
	}
	return strings.Index(img[1:], ".") >= 0
}

// applySpans substitutes all spans over the code-point sequence. Spans are
// applied in ascending start order while a running offset maps original
// coordinates into the post-substitution space.
func applySpans(runes []rune, spans []span) string {
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	out := make([]rune, len(runes))
	copy(out, runes)
	offset := 0
	for _, sp := range spans {
		start := sp.start + offset
		end := sp.end + offset
		if start < 0 || end > len(out) || start > end {
			continue
		}
		repl := []rune(sp.replacement)
		next := make([]rune, 0, len(out)+len(repl)-(end-start))
		next = append(next, out[:start]...)
		next = append(next, repl...)
		next = append(next, out[end:]...)
		out = next
		offset += len(repl) - (sp.end - sp.start)
	}
	return string(out)
}

func validSpan(runes []rune, start, end int) bool {
	return start >= 0 && start < end && end <= len(runes)
}

var htmlUnescaper = strings.NewReplacer("&amp;", "&", "&gt;", ">", "&lt;", "<")

func unescapeHTML(s string) string {
	return htmlUnescaper.Replace(s)
}
