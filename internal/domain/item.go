package domain

// RefKind classifies a reference from one item to another.
type RefKind string

const (
	RefRetweet RefKind = "retweeted"
	RefQuote   RefKind = "quoted"
	RefReply   RefKind = "replied_to"
)

// MediaType is the declared type of an attached media object.
type MediaType string

const (
	MediaPhoto       MediaType = "photo"
	MediaVideo       MediaType = "video"
	MediaAnimatedGIF MediaType = "animated_gif"
)

// Author is a feed account referenced by an item. Authors are owned by the
// lookup context accompanying each item and are never mutated by the core.
type Author struct {
	ID        string
	Handle    string
	Name      string
	AvatarURL string
}

// Mention is an @-mention entity with its span in the item text.
type Mention struct {
	Start  int
	End    int
	Handle string
}

// Link is a URL entity. URL is the provider-shortened form appearing in the
// text; Expanded is the destination it resolves to.
type Link struct {
	Start    int
	End      int
	URL      string
	Expanded string
}

// Tag is a hashtag or cashtag entity.
type Tag struct {
	Start int
	End   int
	Text  string
}

// Entities holds the entity lists of an item. All spans are half-open
// [Start, End) ranges counted in Unicode code points.
type Entities struct {
	Mentions []Mention
	Links    []Link
	Hashtags []Tag
	Cashtags []Tag
}

// Empty reports whether no entity of any category is present.
func (e *Entities) Empty() bool {
	if e == nil {
		return true
	}
	return len(e.Mentions) == 0 && len(e.Links) == 0 &&
		len(e.Hashtags) == 0 && len(e.Cashtags) == 0
}

// Variant is one rendition of a video or animated-gif attachment.
type Variant struct {
	ContentType string
	Bitrate     int
	URL         string
}

// Media is one resolved attachment.
type Media struct {
	Key        string
	Type       MediaType
	URL        string
	PreviewURL string
	Variants   []Variant
}

// Item is the normalized feed post the core operates on. The stream adapter
// produces it from the provider payload; the core never sees raw provider
// shapes.
type Item struct {
	ID        string
	AuthorID  string
	Text      string
	Entities  *Entities
	MediaKeys []string

	// Referenced item ids by relation kind, zero or one per kind.
	RetweetOf string
	QuoteOf   string
	ReplyTo   string

	// ReplyToAuthorID is the author of the item this one replies to, when
	// known. Used for the self-thread exception in filtering.
	ReplyToAuthorID string
}

// IsRetweet reports whether the item is a retweet of another item.
func (it *Item) IsRetweet() bool { return it.RetweetOf != "" }

// IsQuote reports whether the item quotes another item.
func (it *Item) IsQuote() bool { return it.QuoteOf != "" }

// IsReply reports whether the item replies to another item.
func (it *Item) IsReply() bool { return it.ReplyTo != "" }

// Lookup carries the expansion records shipped alongside one stream event:
// authors, media and referenced items keyed for resolution. It lives for the
// processing of a single item and is read-only to the core.
type Lookup struct {
	Authors       map[string]*Author // by author id
	AuthorsByName map[string]*Author // by handle
	Media         map[string]*Media  // by media key
	Items         map[string]*Item   // by item id
}

// Author resolves an author id, returning nil when absent.
func (l *Lookup) Author(id string) *Author {
	if l == nil {
		return nil
	}
	return l.Authors[id]
}

// AuthorByHandle resolves a handle, returning nil when absent.
func (l *Lookup) AuthorByHandle(handle string) *Author {
	if l == nil {
		return nil
	}
	return l.AuthorsByName[handle]
}

// Item resolves a referenced item id, returning nil when absent.
func (l *Lookup) Item(id string) *Item {
	if l == nil {
		return nil
	}
	return l.Items[id]
}

// ResolveMedia returns the media records for the item's attachment keys,
// skipping keys the lookup cannot resolve.
func (l *Lookup) ResolveMedia(it *Item) []*Media {
	if l == nil || len(it.MediaKeys) == 0 {
		return nil
	}
	media := make([]*Media, 0, len(it.MediaKeys))
	for _, key := range it.MediaKeys {
		if m, ok := l.Media[key]; ok {
			media = append(media, m)
		}
	}
	return media
}

// Valid reports whether an item can be processed at all: it must carry an id
// and an author id, and the author must be resolvable in the lookup context.
func (it *Item) Valid(lookup *Lookup) bool {
	if it == nil || it.ID == "" || it.AuthorID == "" {
		return false
	}
	return lookup.Author(it.AuthorID) != nil
}
