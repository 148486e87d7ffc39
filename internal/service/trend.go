package service

import (
	"context"
	"errors"
	"time"

	"tvtime-service/internal/metrics"
	"tvtime-service/internal/model"
	"tvtime-service/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker/v2"
)

// DefaultTrendingLimit is the size of the trending strip
const DefaultTrendingLimit = 5

// BreakerConfig tunes the circuit breaker in front of the document store
type BreakerConfig struct {
	FailureThreshold uint32
	Timeout          time.Duration
}

// TrendRecorder counts searches per term on a document store. It never
// returns errors: trending is an enhancement and must not block browsing.
type TrendRecorder struct {
	store     repository.DocumentStore
	imageBase string
	breaker   *gobreaker.CircuitBreaker[interface{}]
}

// NewTrendRecorder creates a recorder; imageBase prefixes stored poster paths
func NewTrendRecorder(store repository.DocumentStore, imageBase string, cfg BreakerConfig) *TrendRecorder {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "trend-store",
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			// lookups that miss or lose a create race are answers, not outages
			return err == nil || repository.IsNotFound(err) || errors.Is(err, repository.ErrDuplicate)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Trend store breaker state changed")
		},
	}

	return &TrendRecorder{
		store:     store,
		imageBase: imageBase,
		breaker:   gobreaker.NewCircuitBreaker[interface{}](settings),
	}
}

// Record increments the counter for term, creating it with movie as the
// representative on first sight. The representative is never overwritten.
func (r *TrendRecorder) Record(ctx context.Context, term string, movie model.MovieSummary) {
	if term == "" {
		return
	}

	err := r.record(ctx, term, movie)
	if errors.Is(err, repository.ErrDuplicate) {
		// lost a create race with another writer; the counter exists now
		err = r.record(ctx, term, movie)
	}
	if err != nil {
		metrics.TrendStoreErrors.WithLabelValues("record").Inc()
		log.Error().Err(err).Str("term", term).Msg("Error updating search count")
		return
	}
	log.Debug().Str("term", term).Int("movie_id", movie.ID).Msg("📈 Search count updated")
}

func (r *TrendRecorder) record(ctx context.Context, term string, movie model.MovieSummary) error {
	found, err := r.find(ctx, term)
	if err == nil {
		return r.exec(func() error {
			return r.store.Increment(ctx, found.ID, 1)
		})
	}
	if !repository.IsNotFound(err) {
		return err
	}

	doc := &model.TrendCounter{
		ID:         uuid.NewString(),
		SearchTerm: term,
		Count:      1,
		MovieID:    movie.ID,
		PosterURL:  r.posterURL(movie.PosterPath),
		CreatedAt:  time.Now(),
	}
	return r.exec(func() error {
		return r.store.Create(ctx, doc)
	})
}

func (r *TrendRecorder) find(ctx context.Context, term string) (*model.TrendCounter, error) {
	res, err := r.breaker.Execute(func() (interface{}, error) {
		return r.store.FindByTerm(ctx, term)
	})
	if err != nil {
		return nil, err
	}
	return res.(*model.TrendCounter), nil
}

func (r *TrendRecorder) exec(fn func() error) error {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

// TopN returns the n most searched terms. Failures yield an empty list.
func (r *TrendRecorder) TopN(ctx context.Context, n int) []model.TrendCounter {
	if n <= 0 {
		return []model.TrendCounter{}
	}

	res, err := r.breaker.Execute(func() (interface{}, error) {
		return r.store.ListByCount(ctx, n)
	})
	if err != nil {
		metrics.TrendStoreErrors.WithLabelValues("top").Inc()
		log.Error().Err(err).Msg("Error fetching trending movies")
		return []model.TrendCounter{}
	}

	docs := res.([]model.TrendCounter)
	if docs == nil {
		return []model.TrendCounter{}
	}
	return docs
}

// Reset clears every counter (admin only)
func (r *TrendRecorder) Reset(ctx context.Context) error {
	return r.store.Reset(ctx)
}

// BreakerState reports the breaker state for the status endpoint
func (r *TrendRecorder) BreakerState() string {
	return r.breaker.State().String()
}

func (r *TrendRecorder) posterURL(posterPath *string) string {
	if posterPath == nil || *posterPath == "" {
		return ""
	}
	return r.imageBase + *posterPath
}
