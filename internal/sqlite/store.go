package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mbaird/twitrelay/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	handle     TEXT NOT NULL DEFAULT '',
	name       TEXT NOT NULL DEFAULT '',
	avatar_url TEXT NOT NULL DEFAULT '',
	seen_at    TIMESTAMP
);

CREATE TABLE IF NOT EXISTS channels (
	id       TEXT PRIMARY KEY,
	guild_id TEXT NOT NULL DEFAULT '',
	webhook  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS subscriptions (
	user_id    TEXT NOT NULL,
	channel_id TEXT NOT NULL,
	flags      INTEGER NOT NULL DEFAULT 0,
	message    TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (user_id, channel_id)
);

CREATE INDEX IF NOT EXISTS idx_subscriptions_channel ON subscriptions (channel_id);
`

// Store implements domain.SubscriptionStore, domain.UserStore and
// domain.MaintenanceStore on SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at path, verifies the connection
// and applies the schema. The caller should Close the store when done.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SubscriptionsForAuthor returns every subscription configured for the author.
func (s *Store) SubscriptionsForAuthor(ctx context.Context, authorID string) ([]domain.Subscription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, channel_id, flags, message
		FROM subscriptions
		WHERE user_id = ?
		ORDER BY channel_id`,
		authorID,
	)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []domain.Subscription
	for rows.Next() {
		var sub domain.Subscription
		var flags int
		if err := rows.Scan(&sub.UserID, &sub.ChannelID, &flags, &sub.Message); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		sub.Flags = domain.Flags(flags)
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}
	return subs, nil
}

// AllSourceIDs returns the distinct author ids that have at least one
// subscription.
func (s *Store) AllSourceIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM subscriptions ORDER BY user_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query source ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan source id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source ids: %w", err)
	}
	return ids, nil
}

// RecordSeen upserts the author's profile data and stamps the time it was
// last seen on the stream.
func (s *Store) RecordSeen(ctx context.Context, author *domain.Author) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, handle, name, avatar_url, seen_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			handle = excluded.handle,
			name = excluded.name,
			avatar_url = excluded.avatar_url,
			seen_at = excluded.seen_at`,
		author.ID, author.Handle, author.Name, author.AvatarURL, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// WebhookForChannel returns the webhook path ("id/token") registered for a
// channel, or false when the channel is unknown or has no webhook.
func (s *Store) WebhookForChannel(ctx context.Context, channelID string) (string, bool) {
	var webhook string
	err := s.db.QueryRowContext(ctx,
		`SELECT webhook FROM channels WHERE id = ?`, channelID,
	).Scan(&webhook)
	if err != nil || webhook == "" {
		return "", false
	}
	return webhook, true
}

// AddSubscription inserts or replaces a subscription, materializing the user
// and channel rows it references.
func (s *Store) AddSubscription(ctx context.Context, sub domain.Subscription, guildID, webhook string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (id) VALUES (?) ON CONFLICT (id) DO NOTHING`,
		sub.UserID,
	); err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO channels (id, guild_id, webhook) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			guild_id = excluded.guild_id,
			webhook = CASE WHEN excluded.webhook != '' THEN excluded.webhook ELSE channels.webhook END`,
		sub.ChannelID, guildID, webhook,
	); err != nil {
		return fmt.Errorf("ensure channel: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO subscriptions (user_id, channel_id, flags, message)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, channel_id) DO UPDATE SET
			flags = excluded.flags,
			message = excluded.message`,
		sub.UserID, sub.ChannelID, int(sub.Flags), sub.Message,
	); err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// RemoveSubscription deletes one subscription. Orphaned user and channel rows
// are left for the maintenance sweep.
func (s *Store) RemoveSubscription(ctx context.Context, userID, channelID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE user_id = ? AND channel_id = ?`,
		userID, channelID,
	)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}

// ListSubscriptions returns every subscription, ordered for stable output.
func (s *Store) ListSubscriptions(ctx context.Context) ([]domain.Subscription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, channel_id, flags, message
		FROM subscriptions
		ORDER BY user_id, channel_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []domain.Subscription
	for rows.Next() {
		var sub domain.Subscription
		var flags int
		if err := rows.Scan(&sub.UserID, &sub.ChannelID, &flags, &sub.Message); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		sub.Flags = domain.Flags(flags)
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}
	return subs, nil
}

// UserIDsPage returns up to limit user ids after afterID in id order.
func (s *Store) UserIDsPage(ctx context.Context, afterID string, limit int) ([]string, error) {
	return s.idsPage(ctx, "users", afterID, limit)
}

// ChannelIDsPage returns up to limit channel ids after afterID in id order.
func (s *Store) ChannelIDsPage(ctx context.Context, afterID string, limit int) ([]string, error) {
	return s.idsPage(ctx, "channels", afterID, limit)
}

func (s *Store) idsPage(ctx context.Context, table, afterID string, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM `+table+` WHERE id > ? ORDER BY id LIMIT ?`,
		afterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query %s page: %w", table, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s id: %w", table, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s page: %w", table, err)
	}
	return ids, nil
}

// SubscriptionCountForUser counts the subscriptions referencing a user.
func (s *Store) SubscriptionCountForUser(ctx context.Context, userID string) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM subscriptions WHERE user_id = ?`, userID)
}

// SubscriptionCountForChannel counts the subscriptions referencing a channel.
func (s *Store) SubscriptionCountForChannel(ctx context.Context, channelID string) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM subscriptions WHERE channel_id = ?`, channelID)
}

func (s *Store) count(ctx context.Context, query, arg string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, query, arg).Scan(&n); err != nil {
		return 0, fmt.Errorf("count subscriptions: %w", err)
	}
	return n, nil
}

// DeleteUser removes a user row.
func (s *Store) DeleteUser(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// DeleteChannel removes a channel row.
func (s *Store) DeleteChannel(ctx context.Context, channelID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM channels WHERE id = ?`, channelID)
	if err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	return nil
}
