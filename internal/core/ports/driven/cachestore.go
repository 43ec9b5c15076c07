package driven

import (
	"context"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// CacheStoreRepo persists per-session cache stores. A store is loaded
// fully, mutated in memory, and written back; the generation token makes
// the write a compare-and-swap so concurrent writers cannot silently
// lose a newly written entry.
type CacheStoreRepo interface {
	// Load returns the session's store and an opaque generation token
	// for the bytes that were read. A missing store yields a fresh empty
	// store with an empty token. A corrupt store also yields a fresh
	// store (logged by the implementation) so one bad file never wedges
	// a session.
	Load(ctx context.Context, sessionID string) (*domain.CacheStore, string, error)

	// Write persists the store if the session's current generation still
	// matches expectGen. Returns domain.ErrCacheConflict when another
	// writer got there first; the caller reloads and retries. The write
	// replaces the whole file atomically.
	Write(ctx context.Context, store *domain.CacheStore, expectGen string) error

	// Delete removes the session's store. Missing stores are not an error.
	Delete(ctx context.Context, sessionID string) error
}
