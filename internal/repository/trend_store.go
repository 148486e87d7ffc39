package repository

import (
	"context"
	"errors"
	"sort"
	"sync"

	"tvtime-service/internal/model"
)

// ErrDuplicate is returned by Create when the search term already has a document
var ErrDuplicate = errors.New("duplicate search term")

// DocumentStore is the hosted counter table behind the trending list.
// The recorder only relies on find/create/increment; listing and reset serve the
// read-only strip and the admin endpoint. Increment is atomic in every backend.
type DocumentStore interface {
	FindByTerm(ctx context.Context, term string) (*model.TrendCounter, error)
	Create(ctx context.Context, doc *model.TrendCounter) error
	Increment(ctx context.Context, id string, delta int64) error
	ListByCount(ctx context.Context, limit int) ([]model.TrendCounter, error)
	Reset(ctx context.Context) error
}

// sortByCount orders counters by count desc, then insertion order
func sortByCount(docs []model.TrendCounter) {
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].Count != docs[j].Count {
			return docs[i].Count > docs[j].Count
		}
		return docs[i].Seq < docs[j].Seq
	})
}

// MemoryDocumentStore is an in-process DocumentStore
type MemoryDocumentStore struct {
	mu     sync.Mutex
	docs   map[string]*model.TrendCounter
	byTerm map[string]string
	seq    int64
}

// NewMemoryDocumentStore creates an empty store
func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{
		docs:   make(map[string]*model.TrendCounter),
		byTerm: make(map[string]string),
	}
}

// FindByTerm looks a counter up by exact term
func (m *MemoryDocumentStore) FindByTerm(ctx context.Context, term string) (*model.TrendCounter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byTerm[term]
	if !ok {
		return nil, ErrNotFound
	}
	doc := *m.docs[id]
	return &doc, nil
}

// Create inserts a new counter
func (m *MemoryDocumentStore) Create(ctx context.Context, doc *model.TrendCounter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byTerm[doc.SearchTerm]; ok {
		return ErrDuplicate
	}
	m.seq++
	stored := *doc
	stored.Seq = m.seq
	m.docs[stored.ID] = &stored
	m.byTerm[stored.SearchTerm] = stored.ID
	return nil
}

// Increment adds delta to an existing counter
func (m *MemoryDocumentStore) Increment(ctx context.Context, id string, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return ErrNotFound
	}
	doc.Count += delta
	return nil
}

// ListByCount returns up to limit counters, highest first
func (m *MemoryDocumentStore) ListByCount(ctx context.Context, limit int) ([]model.TrendCounter, error) {
	m.mu.Lock()
	docs := make([]model.TrendCounter, 0, len(m.docs))
	for _, d := range m.docs {
		docs = append(docs, *d)
	}
	m.mu.Unlock()

	sortByCount(docs)
	if limit >= 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

// Reset drops every counter
func (m *MemoryDocumentStore) Reset(ctx context.Context) error {
	m.mu.Lock()
	m.docs = make(map[string]*model.TrendCounter)
	m.byTerm = make(map[string]string)
	m.mu.Unlock()
	return nil
}
