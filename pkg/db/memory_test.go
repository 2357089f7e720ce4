package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_ListsOldestFirst(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.RecordPending(ctx, &PendingAttachment{ID: "b", Target: TargetProfilePicture, AssetURLs: []string{"https://cdn/b.jpg"}, CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, store.RecordPending(ctx, &PendingAttachment{ID: "a", Target: TargetApplication, AssetURLs: []string{"https://cdn/a.jpg"}, CreatedAt: base}))

	pending, err := store.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "a", pending[0].ID)
	assert.Equal(t, "b", pending[1].ID)
}

func TestMemoryStore_Resolve(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.RecordPending(ctx, &PendingAttachment{ID: "a"}))
	require.NoError(t, store.ResolvePending(ctx, "a"))
	assert.Error(t, store.ResolvePending(ctx, "a"))

	pending, err := store.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestMemoryStore_RequiresID(t *testing.T) {
	assert.Error(t, NewMemoryStore().RecordPending(context.Background(), &PendingAttachment{}))
}
