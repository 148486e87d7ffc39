package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"tvtime-service/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	trendDocPrefix  = "trend:doc:"
	trendTermPrefix = "trend:term:"
	trendByCountKey = "trend:by_count"
	trendSeqKey     = "trend:seq"
)

// RedisDocumentStore keeps one hash per counter, a term index and a sorted set by count
type RedisDocumentStore struct {
	client *redis.Client
}

// NewRedisDocumentStore wraps a connected client
func NewRedisDocumentStore(client *redis.Client) *RedisDocumentStore {
	return &RedisDocumentStore{client: client}
}

// FindByTerm looks a counter up by exact term
func (s *RedisDocumentStore) FindByTerm(ctx context.Context, term string) (*model.TrendCounter, error) {
	id, err := s.client.Get(ctx, trendTermPrefix+term).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get term: %w", err)
	}
	return s.get(ctx, id)
}

func (s *RedisDocumentStore) get(ctx context.Context, id string) (*model.TrendCounter, error) {
	result, err := s.client.HGetAll(ctx, trendDocPrefix+id).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	if len(result) == 0 {
		return nil, ErrNotFound
	}

	count, _ := strconv.ParseInt(result["count"], 10, 64)
	movieID, _ := strconv.Atoi(result["movie_id"])
	seq, _ := strconv.ParseInt(result["seq"], 10, 64)
	createdUnix, _ := strconv.ParseInt(result["created_at"], 10, 64)

	return &model.TrendCounter{
		ID:         id,
		SearchTerm: result["search_term"],
		Count:      count,
		MovieID:    movieID,
		PosterURL:  result["poster_url"],
		CreatedAt:  time.Unix(0, createdUnix),
		Seq:        seq,
	}, nil
}

// Create inserts a new counter. The term index is claimed first so two
// concurrent creates for one term cannot both succeed.
func (s *RedisDocumentStore) Create(ctx context.Context, doc *model.TrendCounter) error {
	claimed, err := s.client.SetNX(ctx, trendTermPrefix+doc.SearchTerm, doc.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("redis setnx term: %w", err)
	}
	if !claimed {
		return ErrDuplicate
	}

	seq, err := s.client.Incr(ctx, trendSeqKey).Result()
	if err != nil {
		s.client.Del(ctx, trendTermPrefix+doc.SearchTerm)
		return fmt.Errorf("redis incr seq: %w", err)
	}
	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, trendDocPrefix+doc.ID, map[string]interface{}{
		"search_term": doc.SearchTerm,
		"count":       doc.Count,
		"movie_id":    doc.MovieID,
		"poster_url":  doc.PosterURL,
		"created_at":  createdAt.UnixNano(),
		"seq":         seq,
	})
	pipe.ZAdd(ctx, trendByCountKey, redis.Z{Score: float64(doc.Count), Member: doc.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		s.client.Del(ctx, trendTermPrefix+doc.SearchTerm)
		return fmt.Errorf("redis create counter: %w", err)
	}
	return nil
}

// Increment adds delta to an existing counter with HINCRBY/ZINCRBY in one transaction
func (s *RedisDocumentStore) Increment(ctx context.Context, id string, delta int64) error {
	exists, err := s.client.Exists(ctx, trendDocPrefix+id).Result()
	if err != nil {
		return fmt.Errorf("redis exists: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}

	pipe := s.client.TxPipeline()
	pipe.HIncrBy(ctx, trendDocPrefix+id, "count", delta)
	pipe.ZIncrBy(ctx, trendByCountKey, float64(delta), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis increment counter: %w", err)
	}
	return nil
}

// ListByCount returns up to limit counters, highest first. Members tied with
// the last admitted score are all loaded so the insertion-order tiebreak is exact.
func (s *RedisDocumentStore) ListByCount(ctx context.Context, limit int) ([]model.TrendCounter, error) {
	if limit <= 0 {
		return []model.TrendCounter{}, nil
	}

	top, err := s.client.ZRevRangeWithScores(ctx, trendByCountKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis zrevrange: %w", err)
	}
	if len(top) == 0 {
		return []model.TrendCounter{}, nil
	}

	floor := top[len(top)-1].Score
	ids, err := s.client.ZRangeByScore(ctx, trendByCountKey, &redis.ZRangeBy{
		Min: strconv.FormatFloat(floor, 'f', -1, 64),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis zrangebyscore: %w", err)
	}

	docs := make([]model.TrendCounter, 0, len(ids))
	for _, id := range ids {
		doc, err := s.get(ctx, id)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		docs = append(docs, *doc)
	}

	sortByCount(docs)
	if len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

// Reset drops every counter
func (s *RedisDocumentStore) Reset(ctx context.Context) error {
	keys, err := s.client.Keys(ctx, "trend:*").Result()
	if err != nil {
		return fmt.Errorf("redis keys error: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	deleted, err := s.client.Del(ctx, keys...).Result()
	if err != nil {
		return fmt.Errorf("redis del error: %w", err)
	}
	log.Info().Int64("keys", deleted).Msg("🗑️ Trend counters reset")
	return nil
}
