package service

import (
	"context"
	"errors"
	"fmt"

	"tvtime-service/internal/metrics"
	"tvtime-service/internal/repository"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

var (
	// ErrPersistenceCorrupt marks stored data that could not be decoded
	ErrPersistenceCorrupt = errors.New("persisted data is corrupt")
	// ErrPersistenceWriteFailed marks a storage write that did not land
	ErrPersistenceWriteFailed = errors.New("persisting data failed")
)

// loadList reads a JSON list from kv. Missing keys, unreadable storage and
// malformed values all come back as an empty list; the last two are logged.
func loadList[T any](ctx context.Context, kv repository.KV, store, key string) []T {
	raw, err := kv.Get(ctx, key)
	if err != nil {
		if !repository.IsNotFound(err) {
			metrics.PersistenceFailures.WithLabelValues(store, "read").Inc()
			log.Warn().Err(err).Str("store", store).Str("key", key).Msg("Failed to load from storage")
		}
		return []T{}
	}

	var list []T
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		metrics.PersistenceFailures.WithLabelValues(store, "corrupt").Inc()
		log.Warn().
			Err(fmt.Errorf("%w: %v", ErrPersistenceCorrupt, err)).
			Str("store", store).
			Str("key", key).
			Msg("Failed to load from storage, starting empty")
		return []T{}
	}
	if list == nil {
		return []T{}
	}
	return list
}

// saveList writes a JSON list to kv. Failures are logged and returned wrapped
// in ErrPersistenceWriteFailed for callers that want to count them.
func saveList[T any](ctx context.Context, kv repository.KV, store, key string, list []T) error {
	data, err := json.Marshal(list)
	if err == nil {
		err = kv.Set(ctx, key, string(data))
	}
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrPersistenceWriteFailed, err)
		metrics.PersistenceFailures.WithLabelValues(store, "write").Inc()
		log.Warn().Err(err).Str("store", store).Str("key", key).Msg("Failed to persist to storage")
		return err
	}
	return nil
}
