package browse

import (
	"context"
	"errors"
	"sync"
	"time"

	"tvtime-service/internal/metrics"
	"tvtime-service/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultIdleTimeout is how long an untouched session survives
	DefaultIdleTimeout = 30 * time.Minute
	// DefaultMaxSessions caps live sessions; each one owns a goroutine and upstream calls
	DefaultMaxSessions = 1000
)

// ErrSessionLimit is returned by Create when the registry is full
var ErrSessionLimit = errors.New("too many active sessions")

type session struct {
	orch     *Orchestrator
	lastSeen time.Time
}

// Registry holds the live sessions of the HTTP surface
type Registry struct {
	catalog service.Catalog
	trends  Trends
	opts    Options
	limit   int

	mu       sync.Mutex
	sessions map[string]*session
	now      func() time.Time
}

// NewRegistry creates an empty registry; sessions it creates share catalog and trends.
// maxSessions <= 0 means DefaultMaxSessions.
func NewRegistry(catalog service.Catalog, trends Trends, opts Options, maxSessions int) *Registry {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &Registry{
		catalog:  catalog,
		trends:   trends,
		opts:     opts,
		limit:    maxSessions,
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

// Create starts a new session and returns its id
func (r *Registry) Create() (string, *Orchestrator, error) {
	r.mu.Lock()
	if len(r.sessions) >= r.limit {
		r.mu.Unlock()
		log.Warn().Int("limit", r.limit).Msg("⚠️  Browse session limit reached")
		return "", nil, ErrSessionLimit
	}
	id := uuid.New().String()
	orch := New(r.catalog, r.trends, r.opts)
	r.sessions[id] = &session{orch: orch, lastSeen: r.now()}
	n := len(r.sessions)
	r.mu.Unlock()

	orch.Start()
	metrics.ActiveSessions.Set(float64(n))
	log.Debug().Str("session", id).Msg("Browse session created")
	return id, orch, nil
}

// Get returns a session and marks it as used
func (r *Registry) Get(id string) (*Orchestrator, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	s.lastSeen = r.now()
	return s.orch, true
}

// Delete closes and forgets a session
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		return false
	}
	s.orch.Close()
	metrics.ActiveSessions.Set(float64(n))
	return true
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes sessions idle for longer than idle and returns how many it closed
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	var expired []*session
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	for _, s := range expired {
		s.orch.Close()
	}
	if len(expired) > 0 {
		metrics.ActiveSessions.Set(float64(n))
		log.Info().Int("expired", len(expired)).Int("active", n).Msg("🧹 Idle browse sessions swept")
	}
	return len(expired)
}

// Run sweeps idle sessions until ctx is done
func (r *Registry) Run(ctx context.Context, idle time.Duration) {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	interval := idle / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(idle)
		}
	}
}

// Close ends every session
func (r *Registry) Close() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*session)
	r.mu.Unlock()

	for _, s := range all {
		s.orch.Close()
	}
	metrics.ActiveSessions.Set(0)
}
