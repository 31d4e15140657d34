package stream

import (
	"encoding/json"
	"fmt"

	"github.com/mbaird/twitrelay/internal/domain"
)

// fatalErrorCode is the provider's enhance-your-calm status. It signals an
// unrecoverable rate/auth condition; the process terminates instead of
// retrying.
const fatalErrorCode = 420

// Error is a structured stream error with the provider's classification.
type Error struct {
	Title  string
	Detail string
	Type   string
	Code   int
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("stream error %d (%s): %s", e.Code, e.Title, e.Detail)
	}
	return fmt.Sprintf("stream error %d (%s)", e.Code, e.Title)
}

// IsFatal reports whether the error is the unrecoverable provider condition.
func (e *Error) IsFatal() bool {
	return e.Code == fatalErrorCode
}

// Raw wire shapes of one stream event: the item payload plus the expansion
// records needed to resolve its references.
type streamEvent struct {
	Data     *itemPayload     `json:"data"`
	Includes *includesPayload `json:"includes"`
	Errors   []errorPayload   `json:"errors"`
}

type itemPayload struct {
	ID               string              `json:"id"`
	AuthorID         string              `json:"author_id"`
	Text             string              `json:"text"`
	InReplyToUserID  string              `json:"in_reply_to_user_id"`
	Entities         *entitiesPayload    `json:"entities"`
	Attachments      *attachmentsPayload `json:"attachments"`
	ReferencedTweets []refPayload        `json:"referenced_tweets"`
}

type entitiesPayload struct {
	Mentions []mentionPayload `json:"mentions"`
	URLs     []urlPayload     `json:"urls"`
	Hashtags []tagPayload     `json:"hashtags"`
	Cashtags []tagPayload     `json:"cashtags"`
}

type mentionPayload struct {
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Username string `json:"username"`
}

type urlPayload struct {
	Start       int    `json:"start"`
	End         int    `json:"end"`
	URL         string `json:"url"`
	ExpandedURL string `json:"expanded_url"`
}

type tagPayload struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Tag   string `json:"tag"`
}

type attachmentsPayload struct {
	MediaKeys []string `json:"media_keys"`
}

type refPayload struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type includesPayload struct {
	Users  []userPayload  `json:"users"`
	Media  []mediaPayload `json:"media"`
	Tweets []itemPayload  `json:"tweets"`
}

type userPayload struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Username        string `json:"username"`
	ProfileImageURL string `json:"profile_image_url"`
}

type mediaPayload struct {
	MediaKey        string           `json:"media_key"`
	Type            string           `json:"type"`
	URL             string           `json:"url"`
	PreviewImageURL string           `json:"preview_image_url"`
	Variants        []variantPayload `json:"variants"`
}

type variantPayload struct {
	BitRate     int    `json:"bit_rate"`
	ContentType string `json:"content_type"`
	URL         string `json:"url"`
}

type errorPayload struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Type   string `json:"type"`
	Code   int    `json:"code"`
}

func parseEvent(data []byte) (*streamEvent, error) {
	var event streamEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("unmarshal stream event: %w", err)
	}
	return &event, nil
}

// toDomain converts the wire item into the normalized shape the core operates
// on. The core never sees raw provider payloads.
func (p *itemPayload) toDomain() *domain.Item {
	it := &domain.Item{
		ID:              p.ID,
		AuthorID:        p.AuthorID,
		Text:            p.Text,
		ReplyToAuthorID: p.InReplyToUserID,
	}
	if p.Attachments != nil {
		it.MediaKeys = p.Attachments.MediaKeys
	}
	if p.Entities != nil {
		it.Entities = p.Entities.toDomain()
	}
	for _, ref := range p.ReferencedTweets {
		switch domain.RefKind(ref.Type) {
		case domain.RefRetweet:
			it.RetweetOf = ref.ID
		case domain.RefQuote:
			it.QuoteOf = ref.ID
		case domain.RefReply:
			it.ReplyTo = ref.ID
		}
	}
	return it
}

func (e *entitiesPayload) toDomain() *domain.Entities {
	out := &domain.Entities{}
	for _, m := range e.Mentions {
		out.Mentions = append(out.Mentions, domain.Mention{Start: m.Start, End: m.End, Handle: m.Username})
	}
	for _, u := range e.URLs {
		out.Links = append(out.Links, domain.Link{Start: u.Start, End: u.End, URL: u.URL, Expanded: u.ExpandedURL})
	}
	for _, h := range e.Hashtags {
		out.Hashtags = append(out.Hashtags, domain.Tag{Start: h.Start, End: h.End, Text: h.Tag})
	}
	for _, c := range e.Cashtags {
		out.Cashtags = append(out.Cashtags, domain.Tag{Start: c.Start, End: c.End, Text: c.Tag})
	}
	return out
}

// toLookup builds the per-event lookup context from the expansion records.
func (e *streamEvent) toLookup() *domain.Lookup {
	lookup := &domain.Lookup{
		Authors:       make(map[string]*domain.Author),
		AuthorsByName: make(map[string]*domain.Author),
		Media:         make(map[string]*domain.Media),
		Items:         make(map[string]*domain.Item),
	}
	if e.Includes == nil {
		return lookup
	}
	for _, u := range e.Includes.Users {
		author := &domain.Author{
			ID:        u.ID,
			Handle:    u.Username,
			Name:      u.Name,
			AvatarURL: u.ProfileImageURL,
		}
		lookup.Authors[author.ID] = author
		lookup.AuthorsByName[author.Handle] = author
	}
	for _, m := range e.Includes.Media {
		media := &domain.Media{
			Key:        m.MediaKey,
			Type:       domain.MediaType(m.Type),
			URL:        m.URL,
			PreviewURL: m.PreviewImageURL,
		}
		for _, v := range m.Variants {
			media.Variants = append(media.Variants, domain.Variant{
				ContentType: v.ContentType,
				Bitrate:     v.BitRate,
				URL:         v.URL,
			})
		}
		lookup.Media[media.Key] = media
	}
	for i := range e.Includes.Tweets {
		it := e.Includes.Tweets[i].toDomain()
		lookup.Items[it.ID] = it
	}
	return lookup
}
