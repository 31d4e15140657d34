package domain

import (
	"context"
	"log/slog"

	"github.com/mbaird/twitrelay/internal/metric"
)

// Service is the per-item pipeline: validate, filter, compose, dispatch. One
// logical worker drives it, so items are processed end-to-end in arrival
// order.
type Service struct {
	subs          SubscriptionStore
	users         UserStore
	relationships *Relationships
	dispatcher    Dispatcher
	metrics       *metric.Metrics
	logger        *slog.Logger
}

// NewService wires the pipeline. metrics may be nil.
func NewService(subs SubscriptionStore, users UserStore, relationships *Relationships, dispatcher Dispatcher, metrics *metric.Metrics, logger *slog.Logger) *Service {
	return &Service{
		subs:          subs,
		users:         users,
		relationships: relationships,
		dispatcher:    dispatcher,
		metrics:       metrics,
		logger:        logger,
	}
}

// HandleItem processes one stream item end-to-end. Malformed items are
// dropped silently apart from a debug record; per-destination delivery
// failures are logged and never abort the remaining destinations.
func (s *Service) HandleItem(ctx context.Context, it *Item, lookup *Lookup) {
	s.metrics.IncItemsReceived()

	if !it.Valid(lookup) {
		s.metrics.IncItemsDropped()
		s.logger.Debug("dropping invalid item")
		return
	}

	subs, err := s.subs.SubscriptionsForAuthor(ctx, it.AuthorID)
	if err != nil {
		s.logger.Error("subscription lookup failed", "author_id", it.AuthorID, "error", err)
		return
	}
	if len(subs) == 0 {
		return
	}

	interested := Filter(it, lookup, subs)
	if len(interested) == 0 {
		return
	}

	if author := lookup.Author(it.AuthorID); author != nil {
		if err := s.users.RecordSeen(ctx, author); err != nil {
			s.logger.Error("failed to record author", "author_id", author.ID, "error", err)
		}
	}

	posts := s.relationships.Compose(ctx, it, lookup)
	primary := posts[0]
	var secondary *Post
	if len(posts) > 1 {
		secondary = posts[1]
	}

	for _, sub := range interested {
		s.dispatch(ctx, sub, primary, secondary)
	}
}

// dispatch delivers the post pair to one destination, clearing a quoted image
// that duplicates the primary one.
func (s *Service) dispatch(ctx context.Context, sub Subscription, primary, secondary *Post) {
	s.send(ctx, sub.ChannelID, sub.Message, primary)

	if secondary == nil {
		return
	}
	quoted := *secondary
	if quoted.ImageURL != "" && quoted.ImageURL == primary.ImageURL {
		quoted.ImageURL = ""
	}
	s.send(ctx, sub.ChannelID, "", &quoted)
}

func (s *Service) send(ctx context.Context, channelID, message string, post *Post) {
	if err := s.dispatcher.Send(ctx, channelID, message, post); err != nil {
		s.metrics.IncDispatchErrors()
		s.logger.Error("dispatch failed", "channel_id", channelID, "post_url", post.URL, "error", err)
		return
	}
	s.metrics.IncPostsDispatched()
}
