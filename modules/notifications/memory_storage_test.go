package notifications_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgecrm/forgecrm/modules/notifications"
)

func TestMemoryStorage_IsolatesUsers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := notifications.NewMemoryStorage()

	require.NoError(t, storage.Create(ctx, notifications.Notification{
		ID: "n-1", UserID: "alice", Type: notifications.TypeEmailSent, CreatedAt: time.Now(),
	}))
	require.NoError(t, storage.Create(ctx, notifications.Notification{
		ID: "n-2", UserID: "bob", Type: notifications.TypeEmailSent, CreatedAt: time.Now(),
	}))

	items, err := storage.List(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "n-1", items[0].ID)

	err = storage.MarkRead(ctx, "alice", "n-2")
	assert.ErrorIs(t, err, notifications.ErrNotificationNotFound)
}

func TestMemoryStorage_ListLimit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := notifications.NewMemoryStorage()
	base := time.Now()

	require.NoError(t, storage.Create(ctx, notifications.Notification{
		ID: "old", UserID: "alice", Type: notifications.TypeSystem, CreatedAt: base.Add(-time.Minute),
	}))
	require.NoError(t, storage.Create(ctx, notifications.Notification{
		ID: "new", UserID: "alice", Type: notifications.TypeSystem, CreatedAt: base,
	}))

	items, err := storage.List(ctx, "alice", 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "new", items[0].ID)
}

func TestMemoryStorage_ListReturnsCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := notifications.NewMemoryStorage()
	require.NoError(t, storage.Create(ctx, notifications.Notification{
		ID: "n-1", UserID: "alice", Type: notifications.TypeSystem, Title: "original", CreatedAt: time.Now(),
	}))

	items, err := storage.List(ctx, "alice", 0)
	require.NoError(t, err)
	items[0].Title = "mutated"

	again, err := storage.List(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Equal(t, "original", again[0].Title)
}

func TestMemoryStorage_MarkAllReadPreservesReadAt(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := notifications.NewMemoryStorage()
	require.NoError(t, storage.Create(ctx, notifications.Notification{
		ID: "n-1", UserID: "alice", Type: notifications.TypeSystem, CreatedAt: time.Now(),
	}))

	require.NoError(t, storage.MarkRead(ctx, "alice", "n-1"))
	items, err := storage.List(ctx, "alice", 0)
	require.NoError(t, err)
	require.NotNil(t, items[0].ReadAt)
	firstReadAt := *items[0].ReadAt

	require.NoError(t, storage.MarkAllRead(ctx, "alice"))
	items, err = storage.List(ctx, "alice", 0)
	require.NoError(t, err)
	require.NotNil(t, items[0].ReadAt)
	assert.Equal(t, firstReadAt, *items[0].ReadAt)
}

func TestMemoryStorage_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := notifications.NewMemoryStorage()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = storage.Create(ctx, notifications.Notification{
				ID:        "n-" + string(rune('0'+i%10)) + string(rune('a'+i/10)),
				UserID:    "alice",
				Type:      notifications.TypeEmailSent,
				CreatedAt: time.Now(),
			})
			_, _ = storage.List(ctx, "alice", 0)
			_, _ = storage.CountUnread(ctx, "alice")
		}()
	}
	wg.Wait()

	unread, err := storage.CountUnread(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 50, unread)
}
