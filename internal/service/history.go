package service

import (
	"context"
	"strings"
	"sync"

	"tvtime-service/internal/metrics"
	"tvtime-service/internal/repository"

	"github.com/rs/zerolog/log"
)

const (
	// HistoryKey is the global storage key of the search history
	HistoryKey = "searchHistory"
	// MaxHistory is how many terms are kept
	MaxHistory = 10
)

// HistoryStore keeps recent search terms, most recent first, without duplicates.
// Loaded from storage on first use, then served from memory and written through.
type HistoryStore struct {
	kv     repository.KV
	mu     sync.Mutex
	terms  []string
	loaded bool
}

// load must be called with mu held
func (s *HistoryStore) load(ctx context.Context) []string {
	if !s.loaded {
		s.terms = loadList[string](ctx, s.kv, "history", HistoryKey)
		s.loaded = true
	}
	return s.terms
}

// NewHistoryStore creates a store over kv
func NewHistoryStore(kv repository.KV) *HistoryStore {
	return &HistoryStore{kv: kv}
}

// Record moves term to the front. Blank terms are ignored.
func (s *HistoryStore) Record(ctx context.Context, term string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.load(ctx)
	if strings.TrimSpace(term) == "" {
		return append([]string{}, history...)
	}

	next := make([]string, 0, len(history)+1)
	next = append(next, term)
	for _, item := range history {
		if item != term {
			next = append(next, item)
		}
	}
	if len(next) > MaxHistory {
		next = next[:MaxHistory]
	}

	s.terms = next
	saveList(ctx, s.kv, "history", HistoryKey, next)
	return append([]string{}, next...)
}

// Remove deletes an exact match
func (s *HistoryStore) Remove(ctx context.Context, term string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.load(ctx)
	next := make([]string, 0, len(history))
	for _, item := range history {
		if item != term {
			next = append(next, item)
		}
	}
	if len(next) != len(history) {
		s.terms = next
		saveList(ctx, s.kv, "history", HistoryKey, next)
	}
	return append([]string{}, next...)
}

// Clear empties the history by removing its key
func (s *HistoryStore) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.terms = []string{}
	s.loaded = true
	if err := s.kv.Remove(ctx, HistoryKey); err != nil {
		metrics.PersistenceFailures.WithLabelValues("history", "write").Inc()
		log.Warn().Err(err).Str("key", HistoryKey).Msg("Failed to clear search history")
	}
}

// List returns the history, most recent first
func (s *HistoryStore) List(ctx context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.load(ctx)...)
}
