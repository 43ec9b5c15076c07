// Package memory provides in-memory store implementations, used by
// tests and for ephemeral sessions that should leave nothing on disk.
package memory

import (
	"context"
	"strconv"
	"sync"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
)

// Ensure CacheStoreRepo implements the interface.
var _ driven.CacheStoreRepo = (*CacheStoreRepo)(nil)

// CacheStoreRepo keeps per-session stores in memory with the same
// generation-token CAS semantics as the file repository.
type CacheStoreRepo struct {
	mu     sync.Mutex
	stores map[string]*storedState
}

type storedState struct {
	store domain.CacheStore
	gen   uint64
}

// NewCacheStoreRepo creates an empty in-memory repository.
func NewCacheStoreRepo() *CacheStoreRepo {
	return &CacheStoreRepo{stores: make(map[string]*storedState)}
}

// Load returns a deep copy of the session's store and its generation.
func (r *CacheStoreRepo) Load(_ context.Context, sessionID string) (*domain.CacheStore, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.stores[sessionID]
	if !ok {
		return domain.NewCacheStore(sessionID), "", nil
	}

	clone := state.store
	clone.Entries = append([]domain.CacheEntry(nil), state.store.Entries...)
	return &clone, strconv.FormatUint(state.gen, 10), nil
}

// Write replaces the session's store if expectGen matches.
func (r *CacheStoreRepo) Write(_ context.Context, store *domain.CacheStore, expectGen string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.stores[store.SessionID]
	current := ""
	if ok {
		current = strconv.FormatUint(state.gen, 10)
	}
	if current != expectGen {
		return domain.ErrCacheConflict
	}

	clone := *store
	clone.Entries = append([]domain.CacheEntry(nil), store.Entries...)

	next := uint64(1)
	if ok {
		next = state.gen + 1
	}
	r.stores[store.SessionID] = &storedState{store: clone, gen: next}
	return nil
}

// Delete removes the session's store.
func (r *CacheStoreRepo) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stores, sessionID)
	return nil
}
