package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mbaird/twitrelay/internal/domain"
	"github.com/mbaird/twitrelay/internal/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// importFile is the YAML shape accepted by -import.
type importFile struct {
	Subscriptions []importEntry `yaml:"subscriptions"`
}

type importEntry struct {
	UserID    string `yaml:"user_id"`
	ChannelID string `yaml:"channel_id"`
	GuildID   string `yaml:"guild_id"`
	Webhook   string `yaml:"webhook"`
	Message   string `yaml:"message"`
	NoText    bool   `yaml:"notext"`
	Retweets  bool   `yaml:"retweets"`
	NoQuotes  bool   `yaml:"noquotes"`
	Replies   bool   `yaml:"replies"`
}

func (e importEntry) flags() domain.Flags {
	var f domain.Flags
	if e.NoText {
		f |= domain.FlagNoText
	}
	if e.Retweets {
		f |= domain.FlagRetweets
	}
	if e.NoQuotes {
		f |= domain.FlagNoQuotes
	}
	if e.Replies {
		f |= domain.FlagReplies
	}
	return f
}

func run() error {
	var (
		dbPath     string
		userID     string
		channelID  string
		guildID    string
		webhook    string
		message    string
		notext     bool
		retweets   bool
		noquotes   bool
		replies    bool
		remove     bool
		list       bool
		importPath string
	)

	flag.StringVar(&dbPath, "db", envOrDefault("RELAY_DATABASE_PATH", "./relay.db"), "SQLite database path")
	flag.StringVar(&userID, "user", "", "Source author id")
	flag.StringVar(&channelID, "channel", "", "Destination channel id")
	flag.StringVar(&guildID, "guild", "", "Destination guild id")
	flag.StringVar(&webhook, "webhook", "", "Webhook path for the channel (id/token)")
	flag.StringVar(&message, "message", "", "Fixed message sent with every post")
	flag.BoolVar(&notext, "notext", false, "Exclude items without media")
	flag.BoolVar(&retweets, "retweets", false, "Include retweets")
	flag.BoolVar(&noquotes, "noquotes", false, "Exclude quote items")
	flag.BoolVar(&replies, "replies", false, "Include replies to other authors")
	flag.BoolVar(&remove, "remove", false, "Remove the subscription instead of adding it")
	flag.BoolVar(&list, "list", false, "List all subscriptions")
	flag.StringVar(&importPath, "import", "", "Bulk-import subscriptions from a YAML file")
	flag.Parse()

	store, err := sqlite.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()

	switch {
	case list:
		subs, err := store.ListSubscriptions(ctx)
		if err != nil {
			return err
		}
		for _, sub := range subs {
			fmt.Printf("user=%s channel=%s flags=%04b message=%q\n",
				sub.UserID, sub.ChannelID, sub.Flags, sub.Message)
		}
		return nil

	case importPath != "":
		return importSubscriptions(ctx, store, importPath)

	case remove:
		if userID == "" || channelID == "" {
			return fmt.Errorf("-user and -channel are required with -remove")
		}
		if err := store.RemoveSubscription(ctx, userID, channelID); err != nil {
			return err
		}
		fmt.Printf("Removed subscription user=%s channel=%s\n", userID, channelID)
		return nil

	default:
		if userID == "" || channelID == "" {
			return fmt.Errorf("-user and -channel are required")
		}
		entry := importEntry{
			UserID: userID, ChannelID: channelID,
			NoText: notext, Retweets: retweets, NoQuotes: noquotes, Replies: replies,
		}
		sub := domain.Subscription{
			UserID:    userID,
			ChannelID: channelID,
			Flags:     entry.flags(),
			Message:   message,
		}
		if err := store.AddSubscription(ctx, sub, guildID, webhook); err != nil {
			return err
		}
		fmt.Printf("Added subscription user=%s channel=%s\n", userID, channelID)
		return nil
	}
}

func importSubscriptions(ctx context.Context, store *sqlite.Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}

	var file importFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse import file: %w", err)
	}

	for i, entry := range file.Subscriptions {
		if entry.UserID == "" || entry.ChannelID == "" {
			return fmt.Errorf("entry %d: user_id and channel_id are required", i)
		}
		sub := domain.Subscription{
			UserID:    entry.UserID,
			ChannelID: entry.ChannelID,
			Flags:     entry.flags(),
			Message:   entry.Message,
		}
		if err := store.AddSubscription(ctx, sub, entry.GuildID, entry.Webhook); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}

	fmt.Printf("Imported %d subscriptions\n", len(file.Subscriptions))
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
