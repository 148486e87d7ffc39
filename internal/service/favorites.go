package service

import (
	"context"
	"sync"

	"tvtime-service/internal/model"
	"tvtime-service/internal/repository"
)

// DefaultUser is the namespace used when a request names no user
const DefaultUser = "default_user"

// FavoritesKey is the storage key of a user's favorites
func FavoritesKey(user string) string {
	if user == "" {
		user = DefaultUser
	}
	return "tvtime_favorites_" + user
}

// FavoritesStore keeps each user's favorites newest first, one entry per movie id.
// A user's list is read from storage on first use and served from memory after
// that; every mutation is written through.
type FavoritesStore struct {
	kv    repository.KV
	mu    sync.Mutex
	users map[string][]model.FavoriteEntry
}

// NewFavoritesStore creates a store over kv
func NewFavoritesStore(kv repository.KV) *FavoritesStore {
	return &FavoritesStore{
		kv:    kv,
		users: make(map[string][]model.FavoriteEntry),
	}
}

// load must be called with mu held
func (s *FavoritesStore) load(ctx context.Context, key string) []model.FavoriteEntry {
	list, ok := s.users[key]
	if !ok {
		list = loadList[model.FavoriteEntry](ctx, s.kv, "favorites", key)
		s.users[key] = list
	}
	return list
}

// store must be called with mu held. A failed write keeps the in-memory list.
func (s *FavoritesStore) store(ctx context.Context, key string, list []model.FavoriteEntry) {
	s.users[key] = list
	saveList(ctx, s.kv, "favorites", key, list)
}

// Toggle removes the movie if present, otherwise adds its projection at the
// front. It reports whether the movie is a favorite afterwards.
func (s *FavoritesStore) Toggle(ctx context.Context, user string, movie model.MovieSummary) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := FavoritesKey(user)
	list := s.load(ctx, key)

	for i, entry := range list {
		if entry.ID == movie.ID {
			next := make([]model.FavoriteEntry, 0, len(list)-1)
			next = append(next, list[:i]...)
			next = append(next, list[i+1:]...)
			s.store(ctx, key, next)
			return false
		}
	}

	next := make([]model.FavoriteEntry, 0, len(list)+1)
	next = append(next, model.NewFavoriteEntry(movie))
	next = append(next, list...)
	s.store(ctx, key, next)
	return true
}

// Contains reports whether id is a favorite
func (s *FavoritesStore) Contains(ctx context.Context, user string, id int) bool {
	for _, entry := range s.All(ctx, user) {
		if entry.ID == id {
			return true
		}
	}
	return false
}

// All returns every favorite, newest first
func (s *FavoritesStore) All(ctx context.Context, user string) []model.FavoriteEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.load(ctx, FavoritesKey(user))
	out := make([]model.FavoriteEntry, len(list))
	copy(out, list)
	return out
}

// List returns one 1-based display page. Pages past the end are empty.
func (s *FavoritesStore) List(ctx context.Context, user string, page, pageSize int) []model.FavoriteEntry {
	if page < 1 || pageSize < 1 {
		return []model.FavoriteEntry{}
	}

	all := s.All(ctx, user)
	start := (page - 1) * pageSize
	if start >= len(all) {
		return []model.FavoriteEntry{}
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

// Count returns the number of favorites
func (s *FavoritesStore) Count(ctx context.Context, user string) int {
	return len(s.All(ctx, user))
}

// PageCount returns ceil(count/pageSize)
func PageCount(count, pageSize int) int {
	if pageSize < 1 || count <= 0 {
		return 0
	}
	return (count + pageSize - 1) / pageSize
}
