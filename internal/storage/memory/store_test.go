package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinywideclouds/go-notification-engine/internal/storage/memory"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.Put("users/b", map[string]any{"fcm": "tb"})
	store.Put("users/a", map[string]any{"fcm": "ta"})
	store.Put("users/c", map[string]any{"fcm": "tc"})
	store.Put("users/a/devices/d1", map[string]any{"fcm": "nested"})
	store.Put("groups/g1", map[string]any{})

	t.Run("Get", func(t *testing.T) {
		doc, err := store.Get(ctx, "/users/a")
		require.NoError(t, err)
		require.NotNil(t, doc)
		assert.Equal(t, "a", doc.ID)
		assert.Equal(t, "users/a", doc.Path)

		missing, err := store.Get(ctx, "users/zz")
		require.NoError(t, err)
		assert.Nil(t, missing)
		assert.Equal(t, 2, store.GetCalls())
	})

	t.Run("Scan orders by id and skips subcollections", func(t *testing.T) {
		page, err := store.Scan(ctx, "users", nil, 2, "")
		require.NoError(t, err)
		require.Len(t, page.Documents, 2)
		assert.Equal(t, "a", page.Documents[0].ID)
		assert.Equal(t, "b", page.Documents[1].ID)

		page, err = store.Scan(ctx, "users", nil, 2, "b")
		require.NoError(t, err)
		require.Len(t, page.Documents, 1)
		assert.Equal(t, "users/c", page.Documents[0].Path)

		nested, err := store.Scan(ctx, "users/a/devices", nil, 10, "")
		require.NoError(t, err)
		require.Len(t, nested.Documents, 1)
		assert.Equal(t, "d1", nested.Documents[0].ID)
		assert.Equal(t, 3, store.ScanCalls())
	})
}
