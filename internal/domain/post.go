package domain

// Kind is the media classification of a composed post.
type Kind int

const (
	KindText Kind = iota
	KindImage
	KindImages
	KindVideo
)

// Embed colors per classification, Twitter palette.
const (
	ColorText   = 0x1DA1F2
	ColorImage  = 0x19CF86
	ColorImages = 0xFFAD1F
	ColorVideo  = 0xE0245E
)

// Color returns the fixed color constant for the classification.
func (k Kind) Color() int {
	switch k {
	case KindImage:
		return ColorImage
	case KindImages:
		return ColorImages
	case KindVideo:
		return ColorVideo
	default:
		return ColorText
	}
}

// Post is the normalized destination-ready representation of one item.
// ImageURL and ImageURLs are mutually exclusive; a video post may carry both
// VideoURL and ImageURL, the latter holding the still preview frame. All are
// empty for a pure-text post without a link preview.
type Post struct {
	// URL links back to the item on the source platform.
	URL string

	// AuthorLine is "Name (@handle)", collapsed to "@handle" when the
	// display name equals the handle. Relationship composition may prefix
	// or suffix it with annotations.
	AuthorLine string

	// ThumbnailURL is the author's avatar.
	ThumbnailURL string

	// Description is the reconstructed item text.
	Description string

	ImageURL  string
	VideoURL  string
	ImageURLs []string

	Kind  Kind
	Color int
}
