package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"tvtime-service/internal/model"
	"tvtime-service/internal/repository"

	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingDocumentStore errors on every call
type failingDocumentStore struct {
	calls int
}

func (f *failingDocumentStore) FindByTerm(ctx context.Context, term string) (*model.TrendCounter, error) {
	f.calls++
	return nil, errors.New("document store unavailable")
}

func (f *failingDocumentStore) Create(ctx context.Context, doc *model.TrendCounter) error {
	f.calls++
	return errors.New("document store unavailable")
}

func (f *failingDocumentStore) Increment(ctx context.Context, id string, delta int64) error {
	f.calls++
	return errors.New("document store unavailable")
}

func (f *failingDocumentStore) ListByCount(ctx context.Context, limit int) ([]model.TrendCounter, error) {
	f.calls++
	return nil, errors.New("document store unavailable")
}

func (f *failingDocumentStore) Reset(ctx context.Context) error {
	return nil
}

// slowFindStore widens the window between lookup and write
type slowFindStore struct {
	*repository.MemoryDocumentStore
}

func (s slowFindStore) FindByTerm(ctx context.Context, term string) (*model.TrendCounter, error) {
	time.Sleep(2 * time.Millisecond)
	return s.MemoryDocumentStore.FindByTerm(ctx, term)
}

const testImageBase = "https://image.tmdb.org/t/p/w500"

func TestTrendRecorder_FirstWriteWinsRepresentative(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryDocumentStore()
	rec := NewTrendRecorder(store, testImageBase, BreakerConfig{})

	rec.Record(ctx, "batman", movie(268, "Batman"))
	rec.Record(ctx, "batman", movie(414906, "The Batman"))

	doc, err := store.FindByTerm(ctx, "batman")
	require.NoError(t, err)
	assert.Equal(t, int64(2), doc.Count)
	assert.Equal(t, 268, doc.MovieID)
	assert.Equal(t, testImageBase+"/268.jpg", doc.PosterURL)
}

func TestTrendRecorder_TopN(t *testing.T) {
	ctx := context.Background()
	rec := NewTrendRecorder(repository.NewMemoryDocumentStore(), testImageBase, BreakerConfig{})

	for _, term := range []string{"dune", "batman", "dune", "heat", "dune", "batman"} {
		rec.Record(ctx, term, movie(1, term))
	}

	top := rec.TopN(ctx, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "dune", top[0].SearchTerm)
	assert.Equal(t, int64(3), top[0].Count)
	assert.Equal(t, "batman", top[1].SearchTerm)

	assert.Empty(t, rec.TopN(ctx, 0))
}

func TestTrendRecorder_EmptyTermIgnored(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryDocumentStore()
	rec := NewTrendRecorder(store, testImageBase, BreakerConfig{})

	rec.Record(ctx, "", movie(1, "x"))
	top, err := store.ListByCount(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestTrendRecorder_FailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	rec := NewTrendRecorder(&failingDocumentStore{}, testImageBase, BreakerConfig{})

	assert.NotPanics(t, func() {
		rec.Record(ctx, "batman", movie(268, "Batman"))
	})

	top := rec.TopN(ctx, 5)
	assert.NotNil(t, top)
	assert.Empty(t, top)
}

func TestTrendRecorder_BreakerOpensAndFailsFast(t *testing.T) {
	ctx := context.Background()
	store := &failingDocumentStore{}
	rec := NewTrendRecorder(store, testImageBase, BreakerConfig{FailureThreshold: 2, Timeout: time.Minute})

	rec.Record(ctx, "a", movie(1, "a"))
	rec.Record(ctx, "b", movie(2, "b"))
	assert.Equal(t, "open", rec.BreakerState())

	calls := store.calls
	rec.Record(ctx, "c", movie(3, "c"))
	assert.Empty(t, rec.TopN(ctx, 5))
	assert.Equal(t, calls, store.calls, "open breaker must not reach the store")
}

func TestTrendRecorder_ConcurrentRecordsKeepEveryIncrement(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryDocumentStore()
	rec := NewTrendRecorder(slowFindStore{store}, testImageBase, BreakerConfig{})
	rec.Record(ctx, "batman", movie(268, "Batman"))

	var wg conc.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Go(func() {
			rec.Record(ctx, "batman", movie(268, "Batman"))
		})
	}
	wg.Wait()

	doc, err := store.FindByTerm(ctx, "batman")
	require.NoError(t, err)
	assert.Equal(t, int64(21), doc.Count)
}

func TestTrendRecorder_ConcurrentFirstSightingsCountOnce(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryDocumentStore()
	rec := NewTrendRecorder(slowFindStore{store}, testImageBase, BreakerConfig{})

	var wg conc.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Go(func() {
			rec.Record(ctx, "dune", movie(438631, "Dune"))
		})
	}
	wg.Wait()

	top, err := store.ListByCount(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, int64(20), top[0].Count)
	assert.Equal(t, "closed", rec.BreakerState())
}
