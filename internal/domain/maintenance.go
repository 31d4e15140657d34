package domain

import (
	"context"
	"log/slog"
	"time"
)

// Maintainer reconciles stored users and channels against the subscription
// table: anything left without a live subscription is removed. The scan is an
// explicit paginated loop with a delay between pages.
type Maintainer struct {
	store     MaintenanceStore
	pageSize  int
	pageDelay time.Duration
	logger    *slog.Logger
}

// NewMaintainer creates a maintenance job over the given store.
func NewMaintainer(store MaintenanceStore, pageSize int, pageDelay time.Duration, logger *slog.Logger) *Maintainer {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Maintainer{
		store:     store,
		pageSize:  pageSize,
		pageDelay: pageDelay,
		logger:    logger,
	}
}

// Run executes the reconciliation immediately and then on every interval tick
// until ctx is cancelled.
func (m *Maintainer) Run(ctx context.Context, interval time.Duration) {
	m.reconcile(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.reconcile(ctx)
		}
	}
}

func (m *Maintainer) reconcile(ctx context.Context) {
	usersDeleted := m.scan(ctx, m.store.UserIDsPage, m.store.SubscriptionCountForUser, m.store.DeleteUser)
	channelsDeleted := m.scan(ctx, m.store.ChannelIDsPage, m.store.SubscriptionCountForChannel, m.store.DeleteChannel)
	if usersDeleted > 0 || channelsDeleted > 0 {
		m.logger.Info("maintenance sweep complete",
			"users_deleted", usersDeleted,
			"channels_deleted", channelsDeleted,
		)
	}
}

// scan walks one table page by page, deleting rows with zero subscriptions.
// Keyset pagination keeps the walk stable while rows disappear under it.
func (m *Maintainer) scan(
	ctx context.Context,
	page func(context.Context, string, int) ([]string, error),
	count func(context.Context, string) (int, error),
	del func(context.Context, string) error,
) int {
	deleted := 0
	afterID := ""
	for {
		ids, err := page(ctx, afterID, m.pageSize)
		if err != nil {
			m.logger.Error("maintenance page scan failed", "after_id", afterID, "error", err)
			return deleted
		}
		if len(ids) == 0 {
			return deleted
		}

		for _, id := range ids {
			n, err := count(ctx, id)
			if err != nil {
				m.logger.Error("maintenance count failed", "id", id, "error", err)
				continue
			}
			if n > 0 {
				continue
			}
			if err := del(ctx, id); err != nil {
				m.logger.Error("maintenance delete failed", "id", id, "error", err)
				continue
			}
			deleted++
		}

		afterID = ids[len(ids)-1]

		if m.pageDelay > 0 {
			select {
			case <-ctx.Done():
				return deleted
			case <-time.After(m.pageDelay):
			}
		}
	}
}
