package domain

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeMaintenanceStore struct {
	users           map[string]int // id -> subscription count
	channels        map[string]int
	deletedUsers    []string
	deletedChannels []string
}

func (f *fakeMaintenanceStore) UserIDsPage(_ context.Context, afterID string, limit int) ([]string, error) {
	return page(f.users, afterID, limit), nil
}

func (f *fakeMaintenanceStore) ChannelIDsPage(_ context.Context, afterID string, limit int) ([]string, error) {
	return page(f.channels, afterID, limit), nil
}

func (f *fakeMaintenanceStore) SubscriptionCountForUser(_ context.Context, id string) (int, error) {
	return f.users[id], nil
}

func (f *fakeMaintenanceStore) SubscriptionCountForChannel(_ context.Context, id string) (int, error) {
	return f.channels[id], nil
}

func (f *fakeMaintenanceStore) DeleteUser(_ context.Context, id string) error {
	delete(f.users, id)
	f.deletedUsers = append(f.deletedUsers, id)
	return nil
}

func (f *fakeMaintenanceStore) DeleteChannel(_ context.Context, id string) error {
	delete(f.channels, id)
	f.deletedChannels = append(f.deletedChannels, id)
	return nil
}

func page(m map[string]int, afterID string, limit int) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}

func TestMaintainer_PrunesOrphans(t *testing.T) {
	store := &fakeMaintenanceStore{
		users:    map[string]int{"u1": 0, "u2": 2, "u3": 0},
		channels: map[string]int{"c1": 1, "c2": 0},
	}
	m := NewMaintainer(store, 10, 0, testLogger())

	m.reconcile(context.Background())

	assert.ElementsMatch(t, []string{"u1", "u3"}, store.deletedUsers)
	assert.ElementsMatch(t, []string{"c2"}, store.deletedChannels)
	assert.Contains(t, store.users, "u2")
	assert.Contains(t, store.channels, "c1")
}

func TestMaintainer_PaginatesStably(t *testing.T) {
	// Page size 1 forces one page per row; deleting rows mid-walk must not
	// skip or repeat ids.
	store := &fakeMaintenanceStore{
		users:    map[string]int{"a": 0, "b": 0, "c": 1, "d": 0},
		channels: map[string]int{},
	}
	m := NewMaintainer(store, 1, 0, testLogger())

	m.reconcile(context.Background())

	assert.ElementsMatch(t, []string{"a", "b", "d"}, store.deletedUsers)
	assert.Contains(t, store.users, "c")
}

func TestMaintainer_EmptyStoreNoop(t *testing.T) {
	store := &fakeMaintenanceStore{users: map[string]int{}, channels: map[string]int{}}
	m := NewMaintainer(store, 10, 0, testLogger())

	m.reconcile(context.Background())

	assert.Empty(t, store.deletedUsers)
	assert.Empty(t, store.deletedChannels)
}
