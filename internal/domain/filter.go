package domain

// InterestedIn evaluates one item against a single subscription's flag set.
// All checks are independent; any failing check excludes the subscription.
func (s Subscription) InterestedIn(it *Item, lookup *Lookup) bool {
	if s.Flags.Has(FlagNoText) && len(lookup.ResolveMedia(it)) == 0 {
		return false
	}
	if !s.Flags.Has(FlagRetweets) && it.IsRetweet() {
		return false
	}
	if s.Flags.Has(FlagNoQuotes) && it.IsQuote() {
		return false
	}
	// Replies are opt-in, except self-threads which always pass.
	if !s.Flags.Has(FlagReplies) && it.IsReply() && it.ReplyToAuthorID != it.AuthorID {
		return false
	}
	return true
}

// Filter returns the subscriptions interested in the item, preserving input
// order. The caller has already validated the item and fetched its author's
// subscriptions.
func Filter(it *Item, lookup *Lookup, subs []Subscription) []Subscription {
	interested := make([]Subscription, 0, len(subs))
	for _, sub := range subs {
		if sub.InterestedIn(it, lookup) {
			interested = append(interested, sub)
		}
	}
	return interested
}
