package services

import (
	"sync"

	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// SessionCacheRegistry owns the per-session cache instances. Sessions
// are independent namespaces: there is no lock across sessions, only
// the per-session lock inside each CacheService. The registry replaces
// any process-wide singleton: callers create one at startup, hand it to
// whoever needs caches, and drop sessions when they end.
type SessionCacheRegistry struct {
	mu       sync.Mutex
	repo     driven.CacheStoreRepo
	embedder driven.EmbeddingService
	opts     []CacheOption
	caches   map[string]*CacheService
}

// NewSessionCacheRegistry creates a registry. The options are applied
// to every cache it creates.
func NewSessionCacheRegistry(repo driven.CacheStoreRepo, embedder driven.EmbeddingService, opts ...CacheOption) *SessionCacheRegistry {
	return &SessionCacheRegistry{
		repo:     repo,
		embedder: embedder,
		opts:     opts,
		caches:   make(map[string]*CacheService),
	}
}

// Get returns the session's cache, creating it on first use.
func (r *SessionCacheRegistry) Get(sessionID string) *CacheService {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.caches[sessionID]; ok {
		return c
	}
	c := NewCacheService(r.repo, r.embedder, sessionID, r.opts...)
	r.caches[sessionID] = c
	logger.Debug("Cache registry: created cache for session %s", sessionID)
	return c
}

// Drop releases the session's cache instance. The on-disk store stays;
// a later Get simply reloads it.
func (r *SessionCacheRegistry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.caches, sessionID)
}

// Sessions returns the ids of the sessions with live cache instances.
func (r *SessionCacheRegistry) Sessions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.caches))
	for id := range r.caches {
		ids = append(ids, id)
	}
	return ids
}

// Close drops all session instances.
func (r *SessionCacheRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caches = make(map[string]*CacheService)
}
