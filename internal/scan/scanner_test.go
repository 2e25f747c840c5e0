package scan_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tinywideclouds/go-notification-engine/internal/scan"
	"github.com/tinywideclouds/go-notification-engine/internal/storage/memory"
	"github.com/tinywideclouds/go-notification-engine/pkg/dispatch"
	"github.com/tinywideclouds/go-notification-engine/pkg/notify"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(ctx context.Context, path string) (*dispatch.Document, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dispatch.Document), args.Error(1)
}

func (m *mockStore) Scan(ctx context.Context, path string, filters []notify.Condition, pageSize int, cursor string) (dispatch.Page, error) {
	args := m.Called(ctx, path, filters, pageSize, cursor)
	return args.Get(0).(dispatch.Page), args.Error(1)
}

func docs(ids ...string) dispatch.Page {
	page := dispatch.Page{}
	for _, id := range ids {
		page.Documents = append(page.Documents, dispatch.Document{ID: id, Path: "users/" + id})
	}
	return page
}

func seed(n int) *memory.Store {
	store := memory.NewStore()
	for i := 0; i < n; i++ {
		store.Put(fmt.Sprintf("users/u%03d", i), map[string]any{"n": i})
	}
	return store
}

func TestScanner_Pages(t *testing.T) {
	ctx := context.Background()

	t.Run("advances the cursor until a short page", func(t *testing.T) {
		store := new(mockStore)
		filters := []notify.Condition{{Op: notify.OpEquals, Key: "plan", Value: "pro"}}

		store.On("Scan", ctx, "users", filters, 2, "").Return(docs("a", "b"), nil).Once()
		store.On("Scan", ctx, "users", filters, 2, "b").Return(docs("c", "d"), nil).Once()
		store.On("Scan", ctx, "users", filters, 2, "d").Return(docs("e"), nil).Once()

		var sizes []int
		for page, err := range scan.New(store, "users", filters, 2).Pages(ctx) {
			require.NoError(t, err)
			sizes = append(sizes, len(page))
		}

		assert.Equal(t, []int{2, 2, 1}, sizes)
		store.AssertExpectations(t)
	})

	t.Run("exact multiple ends with an empty page", func(t *testing.T) {
		store := seed(4)

		var sizes []int
		for page, err := range scan.New(store, "users", nil, 2).Pages(ctx) {
			require.NoError(t, err)
			sizes = append(sizes, len(page))
		}

		assert.Equal(t, []int{2, 2, 0}, sizes)
		assert.Equal(t, 3, store.ScanCalls())
	})

	t.Run("store error is yielded once and stops", func(t *testing.T) {
		store := new(mockStore)
		store.On("Scan", ctx, "users", mock.Anything, 2, "").Return(docs("a", "b"), nil).Once()
		store.On("Scan", ctx, "users", mock.Anything, 2, "b").Return(dispatch.Page{}, errors.New("unavailable")).Once()

		var errs []error
		pages := 0
		for _, err := range scan.New(store, "users", nil, 2).Pages(ctx) {
			if err != nil {
				errs = append(errs, err)
				continue
			}
			pages++
		}

		assert.Equal(t, 1, pages)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Error(), "unavailable")
	})

	t.Run("scanner is not restartable", func(t *testing.T) {
		store := seed(3)
		s := scan.New(store, "users", nil, 2)

		count := 0
		for range s.Pages(ctx) {
			count++
		}
		for range s.Pages(ctx) {
			count++
		}

		assert.Equal(t, 2, count)
		assert.Equal(t, 2, store.ScanCalls())
	})

	t.Run("cancelled context stops before the store is called", func(t *testing.T) {
		store := seed(3)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		for _, err := range scan.New(store, "users", nil, 2).Pages(cctx) {
			assert.ErrorIs(t, err, context.Canceled)
		}
		assert.Zero(t, store.ScanCalls())
	})

	t.Run("non-positive page size uses the default", func(t *testing.T) {
		store := new(mockStore)
		store.On("Scan", ctx, "users", mock.Anything, notify.DefaultPageSize, "").Return(docs("a"), nil).Once()

		for range scan.New(store, "users", nil, 0).Pages(ctx) {
		}
		store.AssertExpectations(t)
	})
}

func TestScanner_Documents(t *testing.T) {
	ctx := context.Background()
	store := seed(5)

	var ids []string
	for doc, err := range scan.New(store, "users", nil, 2).Documents(ctx) {
		require.NoError(t, err)
		ids = append(ids, doc.ID)
	}

	assert.Equal(t, []string{"u000", "u001", "u002", "u003", "u004"}, ids)

	t.Run("early break stops paging", func(t *testing.T) {
		store := seed(5)
		for range scan.New(store, "users", nil, 2).Documents(ctx) {
			break
		}
		assert.Equal(t, 1, store.ScanCalls())
	})
}
