package domain

import (
	"context"
)

// SubscriptionStore defines read access to subscription configuration.
type SubscriptionStore interface {
	// SubscriptionsForAuthor returns every subscription configured for the
	// given source author. An empty slice means nobody is interested.
	SubscriptionsForAuthor(ctx context.Context, authorID string) ([]Subscription, error)
}

// UserStore defines persistence operations for tracked source accounts.
type UserStore interface {
	// AllSourceIDs returns the ids of every author with at least one live
	// subscription. The stream is recreated from this set in full on every
	// (re)connect attempt.
	AllSourceIDs(ctx context.Context) ([]string, error)

	// RecordSeen upserts the author's current profile data.
	RecordSeen(ctx context.Context, author *Author) error
}

// MaintenanceStore defines the paginated scan-and-delete operations used by
// the reconciliation job. Pages are keyset-paginated by id to stay stable
// while rows are deleted.
type MaintenanceStore interface {
	UserIDsPage(ctx context.Context, afterID string, limit int) ([]string, error)
	ChannelIDsPage(ctx context.Context, afterID string, limit int) ([]string, error)
	SubscriptionCountForUser(ctx context.Context, userID string) (int, error)
	SubscriptionCountForChannel(ctx context.Context, channelID string) (int, error)
	DeleteUser(ctx context.Context, userID string) error
	DeleteChannel(ctx context.Context, channelID string) error
}

// LinkMetadata is the page metadata fetched for one expanded link.
type LinkMetadata struct {
	OpenGraphImages   []string
	TwitterCardImages []string
}

// Unfurler fetches page metadata for expanded links. Each call fails
// independently; a failure degrades to "no preview" for that link only.
type Unfurler interface {
	FetchMetadata(ctx context.Context, url string) (*LinkMetadata, error)
}

// Dispatcher delivers one post to one destination channel. Implementations
// log and absorb delivery failures per destination.
type Dispatcher interface {
	Send(ctx context.Context, channelID, message string, post *Post) error
}
