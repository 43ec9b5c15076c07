package domain

import (
	"encoding/json"
	"time"
)

// CacheSchemaVersion is the current on-disk cache format version.
// Bumping it invalidates every entry written under an older version
// regardless of remaining TTL. This is the deliberate "format changed"
// escape hatch and a hard rule, not a heuristic.
const CacheSchemaVersion = "1.1"

// Cache TTL defaults.
const (
	// DefaultCacheTTLHours applies to ordinary entries.
	DefaultCacheTTLHours = 24

	// FastRetryTTLHours applies to entries written under a fast-retry
	// condition, where the payload is expected to change soon.
	FastRetryTTLHours = 1
)

// DefaultSimilarityThreshold is the minimum cosine similarity for a
// semantic cache hit.
const DefaultSimilarityThreshold = 0.65

// CacheEntry is one cached query→payload pair. The payload and sources
// are opaque to the core: only the orchestration layer above interprets
// them.
type CacheEntry struct {
	SchemaVersion string            `json:"schema_version"`
	QueryHash     string            `json:"query_hash"`
	OriginalQuery string            `json:"original_query"`
	CreatedAt     time.Time         `json:"created_at"`
	ExpiresAt     time.Time         `json:"expires_at"`
	TTLHours      uint32            `json:"ttl_hours"`
	Payload       json.RawMessage   `json:"payload"`
	Sources       []json.RawMessage `json:"sources,omitempty"`
	ReuseCount    uint32            `json:"reuse_count"`
}

// Expired reports whether the entry is past its expiry at the given time.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Valid reports whether the entry is live: current schema version and
// not expired.
func (e *CacheEntry) Valid(now time.Time) bool {
	return e.SchemaVersion == CacheSchemaVersion && !e.Expired(now)
}

// CacheStore is the on-disk unit of persistence: one store per session.
// It is loaded fully into memory per operation, mutated, and written
// back atomically.
type CacheStore struct {
	SchemaVersion string       `json:"schema_version"`
	SessionID     string       `json:"session_id"`
	Entries       []CacheEntry `json:"entries"`
}

// NewCacheStore returns an empty store for the session at the current
// schema version.
func NewCacheStore(sessionID string) *CacheStore {
	return &CacheStore{
		SchemaVersion: CacheSchemaVersion,
		SessionID:     sessionID,
		Entries:       []CacheEntry{},
	}
}

// FindByHash returns the index of the entry with the given query hash,
// or -1. At most one live entry exists per hash.
func (s *CacheStore) FindByHash(hash string) int {
	for i := range s.Entries {
		if s.Entries[i].QueryHash == hash {
			return i
		}
	}
	return -1
}

// PurgeExpired removes every entry past its expiry, returning the
// number removed.
func (s *CacheStore) PurgeExpired(now time.Time) int {
	kept := s.Entries[:0]
	for i := range s.Entries {
		if !s.Entries[i].Expired(now) {
			kept = append(kept, s.Entries[i])
		}
	}
	removed := len(s.Entries) - len(kept)
	s.Entries = kept
	return removed
}

// CacheStats summarises a session's cache store.
type CacheStats struct {
	TotalEntries   int     `json:"total_entries"`
	TotalReuses    int     `json:"total_reuses"`
	AvgReuseCount  float64 `json:"avg_reuse_count"`
	OldestAgeHours float64 `json:"oldest_age_hours"`
	NewestAgeHours float64 `json:"newest_age_hours"`
}
