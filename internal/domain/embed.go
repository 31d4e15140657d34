package domain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// maxVideoBitrate is the exclusive upper bound for rendition selection.
// Discord refuses to inline anything heavier.
const maxVideoBitrate = 1_000_000

// Composer classifies an item's attachments and builds its normalized post.
type Composer struct {
	recon  *Reconstructor
	logger *slog.Logger
}

// NewComposer creates a Composer backed by the given text reconstructor.
func NewComposer(recon *Reconstructor, logger *slog.Logger) *Composer {
	return &Composer{recon: recon, logger: logger}
}

// Compose builds the post for a single item. The caller guarantees the item
// has passed Valid.
func (c *Composer) Compose(ctx context.Context, it *Item, lookup *Lookup) *Post {
	media := lookup.ResolveMedia(it)
	kind := classify(media)

	rec := c.recon.Reconstruct(ctx, it.Text, it.Entities, lookup, kind == KindText)

	author := lookup.Author(it.AuthorID)
	post := &Post{
		URL:          fmt.Sprintf("https://twitter.com/%s/status/%s", author.Handle, it.ID),
		AuthorLine:   authorLine(author),
		ThumbnailURL: author.AvatarURL,
		Description:  rec.Text,
		Kind:         kind,
		Color:        kind.Color(),
	}

	switch kind {
	case KindVideo:
		// The still frame shows while the rendition loads, and is all that
		// renders when no rendition qualifies.
		post.ImageURL = media[0].PreviewURL
		if url := selectVideoVariant(media[0]); url != "" {
			post.VideoURL = url
		} else {
			// Still delivered as a video-colored post, just without a
			// playable rendition.
			c.logger.Warn("video item has no usable rendition",
				"item_id", it.ID,
				"media_key", media[0].Key,
				"variants", len(media[0].Variants),
			)
		}
	case KindImage:
		post.ImageURL = media[0].URL
	case KindImages:
		urls := make([]string, 0, len(media))
		for _, m := range media {
			urls = append(urls, m.URL)
		}
		post.ImageURLs = urls
	case KindText:
		if rec.PreviewImageURL != "" {
			post.ImageURL = rec.PreviewImageURL
		}
	}

	return post
}

// classify maps resolved attachments to a post kind. The first attachment's
// declared type decides the video branch; everything else is photos.
func classify(media []*Media) Kind {
	if len(media) == 0 {
		return KindText
	}
	switch media[0].Type {
	case MediaVideo, MediaAnimatedGIF:
		return KindVideo
	}
	if len(media) == 1 {
		return KindImage
	}
	return KindImages
}

// selectVideoVariant returns the URL of the last rendition that is mp4 and
// under the bitrate cap, in declared order. Last qualifying wins; this is the
// provider's historical ordering contract, not a best-bitrate pick.
func selectVideoVariant(m *Media) string {
	var url string
	for _, v := range m.Variants {
		if v.ContentType == "video/mp4" && v.Bitrate < maxVideoBitrate {
			url = v.URL
		}
	}
	return stripTrailingQuery(url)
}

// stripTrailingQuery removes a query string that appears after the last path
// separator.
func stripTrailingQuery(url string) string {
	slash := strings.LastIndex(url, "/")
	if slash < 0 {
		return url
	}
	if q := strings.Index(url[slash:], "?"); q >= 0 {
		return url[:slash+q]
	}
	return url
}

// authorLine renders "Name (@handle)", collapsing to "@handle" when the
// display name is just the handle again.
func authorLine(a *Author) string {
	if a.Name == "" || a.Name == a.Handle {
		return "@" + a.Handle
	}
	return fmt.Sprintf("%s (@%s)", a.Name, a.Handle)
}
