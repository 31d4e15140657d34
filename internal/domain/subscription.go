package domain

// Flags is the per-subscription filter flag set.
type Flags uint8

const (
	// FlagNoText excludes items without media.
	FlagNoText Flags = 1 << iota
	// FlagRetweets opts in to retweets (excluded by default).
	FlagRetweets
	// FlagNoQuotes excludes quote items.
	FlagNoQuotes
	// FlagReplies opts in to replies to other authors (self-threads always
	// pass).
	FlagReplies
)

// Has reports whether flag is set.
func (f Flags) Has(flag Flags) bool { return f&flag != 0 }

// Subscription configures one destination for one source author. Owned by the
// subscription store; read-only to the core.
type Subscription struct {
	UserID    string
	ChannelID string
	Flags     Flags

	// Message is an optional fixed text sent alongside every post.
	Message string
}
