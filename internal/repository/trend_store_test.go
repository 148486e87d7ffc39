package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"tvtime-service/internal/model"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLStore(t *testing.T) *SQLDocumentStore {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	store, err := OpenSQLDocumentStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func documentStores(t *testing.T) map[string]DocumentStore {
	return map[string]DocumentStore{
		"memory": NewMemoryDocumentStore(),
		"redis":  NewRedisDocumentStore(newTestRedis(t)),
		"sql":    newTestSQLStore(t),
	}
}

func newCounter(term string, count int64) *model.TrendCounter {
	return &model.TrendCounter{
		ID:         uuid.NewString(),
		SearchTerm: term,
		Count:      count,
		MovieID:    268,
		PosterURL:  "https://image.tmdb.org/t/p/w500/batman.jpg",
	}
}

func TestDocumentStore_FindCreateIncrement(t *testing.T) {
	for name, store := range documentStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.FindByTerm(ctx, "batman")
			assert.True(t, IsNotFound(err))

			doc := newCounter("batman", 1)
			require.NoError(t, store.Create(ctx, doc))

			found, err := store.FindByTerm(ctx, "batman")
			require.NoError(t, err)
			assert.Equal(t, doc.ID, found.ID)
			assert.Equal(t, int64(1), found.Count)
			assert.Equal(t, 268, found.MovieID)
			assert.Equal(t, doc.PosterURL, found.PosterURL)

			require.NoError(t, store.Increment(ctx, found.ID, 1))
			found, err = store.FindByTerm(ctx, "batman")
			require.NoError(t, err)
			assert.Equal(t, int64(2), found.Count)

			// exact match only
			_, err = store.FindByTerm(ctx, "Batman")
			assert.True(t, IsNotFound(err))

			assert.ErrorIs(t, store.Create(ctx, newCounter("batman", 1)), ErrDuplicate)
			assert.True(t, IsNotFound(store.Increment(ctx, uuid.NewString(), 3)))
		})
	}
}

func TestDocumentStore_ListByCount(t *testing.T) {
	for name, store := range documentStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for _, c := range []struct {
				term  string
				count int64
			}{
				{"dune", 3},
				{"arrival", 7},
				{"batman", 3},
				{"heat", 1},
				{"alien", 3},
			} {
				require.NoError(t, store.Create(ctx, newCounter(c.term, c.count)))
			}

			top, err := store.ListByCount(ctx, 3)
			require.NoError(t, err)
			require.Len(t, top, 3)
			assert.Equal(t, "arrival", top[0].SearchTerm)
			// ties keep insertion order
			assert.Equal(t, "dune", top[1].SearchTerm)
			assert.Equal(t, "batman", top[2].SearchTerm)

			all, err := store.ListByCount(ctx, 10)
			require.NoError(t, err)
			assert.Len(t, all, 5)
			assert.Equal(t, "heat", all[4].SearchTerm)

			require.NoError(t, store.Reset(ctx))
			empty, err := store.ListByCount(ctx, 5)
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestDocumentStore_ConcurrentIncrement(t *testing.T) {
	for name, store := range documentStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			doc := newCounter("batman", 1)
			require.NoError(t, store.Create(ctx, doc))

			var wg conc.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Go(func() {
					assert.NoError(t, store.Increment(ctx, doc.ID, 1))
				})
			}
			wg.Wait()

			found, err := store.FindByTerm(ctx, "batman")
			require.NoError(t, err)
			assert.Equal(t, int64(21), found.Count)

			top, err := store.ListByCount(ctx, 1)
			require.NoError(t, err)
			require.Len(t, top, 1)
			assert.Equal(t, int64(21), top[0].Count)
		})
	}
}

func TestDocumentStore_ConcurrentCreateSingleWinner(t *testing.T) {
	for name, store := range documentStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			var mu sync.Mutex
			created, duplicates := 0, 0
			var wg conc.WaitGroup
			for i := 0; i < 10; i++ {
				wg.Go(func() {
					err := store.Create(ctx, newCounter("dune", 1))
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						created++
					case errors.Is(err, ErrDuplicate):
						duplicates++
					default:
						t.Errorf("unexpected create error: %v", err)
					}
				})
			}
			wg.Wait()

			assert.Equal(t, 1, created)
			assert.Equal(t, 9, duplicates)
		})
	}
}
