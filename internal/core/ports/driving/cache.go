package driving

import (
	"context"
	"encoding/json"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// QueryCache is the semantic-aware cache surface for one session. It
// remembers recent query→payload pairs so that semantically similar
// follow-up queries can be served without recomputation.
type QueryCache interface {
	// Load looks up a payload for the query: exact hash first, then
	// embedding similarity against stored original queries. Returns
	// (nil, false, nil) on a miss. forceRefresh skips lookup entirely
	// and always misses.
	Load(ctx context.Context, query string, forceRefresh bool) (json.RawMessage, bool, error)

	// Save stores a payload for the query, replacing any previous entry
	// for the same normalized query and purging expired entries in the
	// same write. fastRetry shortens the TTL for payloads expected to
	// change soon. Returns the entry's query hash.
	Save(ctx context.Context, query string, payload json.RawMessage, sources []json.RawMessage, fastRetry bool) (string, error)

	// Stats summarises the session's store.
	Stats(ctx context.Context) (domain.CacheStats, error)

	// Clear removes the session's store entirely.
	Clear(ctx context.Context) error
}
