package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driving"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// Ensure CacheService implements the interface.
var _ driving.QueryCache = (*CacheService)(nil)

// maxWriteRetries bounds how often a conflicting store write is retried
// before the write is dropped and logged.
const maxWriteRetries = 3

// NormalizeQuery canonicalises a query for hashing: lower-cased with
// whitespace collapsed. "Syrian  Hamster" and "syrian hamster" share a
// cache entry.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// HashQuery returns the cache hash of a query.
func HashQuery(query string) string {
	sum := sha256.Sum256([]byte(NormalizeQuery(query)))
	return hex.EncodeToString(sum[:])
}

// CacheService is the semantic-aware query cache for one session. Each
// lookup runs a two-stage state machine: exact hash check first, then
// embedding similarity against all live stored queries. The per-session
// mutex serialises load+mutate+write within the process; the repo's
// compare-and-swap write covers concurrent processes.
type CacheService struct {
	mu        sync.Mutex
	repo      driven.CacheStoreRepo
	embedder  driven.EmbeddingService
	sessionID string
	threshold float64
	ttlHours  uint32
	now       func() time.Time
}

// CacheOption configures a CacheService.
type CacheOption func(*CacheService)

// WithSimilarityThreshold overrides the semantic hit threshold.
func WithSimilarityThreshold(t float64) CacheOption {
	return func(c *CacheService) { c.threshold = t }
}

// WithTTLHours overrides the default entry TTL.
func WithTTLHours(h uint32) CacheOption {
	return func(c *CacheService) { c.ttlHours = h }
}

// WithCacheClock overrides the cache clock (tests).
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *CacheService) { c.now = now }
}

// NewCacheService creates the cache for a session. embedder may be nil;
// without it the semantic lookup stage is skipped and only exact hash
// hits are possible.
func NewCacheService(repo driven.CacheStoreRepo, embedder driven.EmbeddingService, sessionID string, opts ...CacheOption) *CacheService {
	c := &CacheService{
		repo:      repo,
		embedder:  embedder,
		sessionID: sessionID,
		threshold: domain.DefaultSimilarityThreshold,
		ttlHours:  domain.DefaultCacheTTLHours,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load looks up a cached payload for the query.
func (c *CacheService) Load(ctx context.Context, query string, forceRefresh bool) (json.RawMessage, bool, error) {
	if forceRefresh {
		logger.Debug("Cache: force refresh, skipping lookup for %q", query)
		return nil, false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	store, gen, err := c.repo.Load(ctx, c.sessionID)
	if err != nil {
		return nil, false, err
	}

	now := c.now()
	hash := HashQuery(query)

	// Stage one: exact hash.
	if i := store.FindByHash(hash); i >= 0 {
		entry := &store.Entries[i]
		switch {
		case entry.SchemaVersion != domain.CacheSchemaVersion:
			// Format changed: a hard miss regardless of TTL.
			logger.Debug("Cache: version mismatch for %q (%s != %s)",
				query, entry.SchemaVersion, domain.CacheSchemaVersion)
			return nil, false, nil
		case entry.Expired(now):
			logger.Debug("Cache: exact hit for %q expired, trying semantic", query)
		default:
			logger.Info("Cache: exact hit for %q (reused %d times)", query, entry.ReuseCount)
			payload := entry.Payload
			c.recordReuse(ctx, store, gen, i)
			return payload, true, nil
		}
	}

	// Stage two: embedding similarity against all live stored queries.
	idx, ok := c.semanticMatch(ctx, store, query, now)
	if !ok {
		return nil, false, nil
	}

	entry := &store.Entries[idx]
	logger.Info("Cache: semantic hit for %q via %q", query, entry.OriginalQuery)
	payload := entry.Payload
	c.recordReuse(ctx, store, gen, idx)
	return payload, true, nil
}

// semanticMatch finds the most similar live stored query, if any clears
// the threshold. Backend absence or failure is a miss, not an error.
func (c *CacheService) semanticMatch(ctx context.Context, store *domain.CacheStore, query string, now time.Time) (int, bool) {
	if c.embedder == nil {
		return 0, false
	}

	var candidates []int
	for i := range store.Entries {
		if store.Entries[i].Valid(now) {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return 0, false
	}

	queryVec, err := c.embedder.Embed(ctx, NormalizeQuery(query))
	if err != nil {
		logger.Warn("Cache: query embedding failed, skipping semantic lookup: %v", err)
		return 0, false
	}

	texts := make([]string, len(candidates))
	for i, idx := range candidates {
		texts[i] = NormalizeQuery(store.Entries[idx].OriginalQuery)
	}
	vecs, err := c.embedder.EmbedBatch(ctx, texts)
	if err != nil || len(vecs) != len(candidates) {
		logger.Warn("Cache: stored query embedding failed, skipping semantic lookup: %v", err)
		return 0, false
	}

	best, bestSim := -1, 0.0
	for i, idx := range candidates {
		if sim := cosineSimilarity(queryVec, vecs[i]); sim > bestSim {
			best, bestSim = idx, sim
		}
	}

	if best < 0 || bestSim < c.threshold {
		logger.Debug("Cache: best similarity %.3f below threshold %.2f", bestSim, c.threshold)
		return 0, false
	}

	logger.Debug("Cache: similarity %.3f >= %.2f", bestSim, c.threshold)
	return best, true
}

// recordReuse increments the entry's reuse count and persists the store.
// Losing this write to a concurrent writer only loses a statistic, so a
// conflict is logged and dropped without retry.
func (c *CacheService) recordReuse(ctx context.Context, store *domain.CacheStore, gen string, idx int) {
	store.Entries[idx].ReuseCount++
	if err := c.repo.Write(ctx, store, gen); err != nil {
		logger.Warn("Cache: reuse count update dropped: %v", err)
	}
}

// Save stores a payload for the query. The previous entry for the same
// hash is replaced, and expired entries are purged in the same write.
// Conflicting writes are retried; a new entry must not be lost silently.
func (c *CacheService) Save(ctx context.Context, query string, payload json.RawMessage, sources []json.RawMessage, fastRetry bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hash := HashQuery(query)
	ttl := c.ttlHours
	if fastRetry {
		ttl = domain.FastRetryTTLHours
	}

	var lastErr error
	for attempt := 0; attempt <= maxWriteRetries; attempt++ {
		store, gen, err := c.repo.Load(ctx, c.sessionID)
		if err != nil {
			return "", err
		}

		now := c.now()
		entry := domain.CacheEntry{
			SchemaVersion: domain.CacheSchemaVersion,
			QueryHash:     hash,
			OriginalQuery: query,
			CreatedAt:     now,
			ExpiresAt:     now.Add(time.Duration(ttl) * time.Hour),
			TTLHours:      ttl,
			Payload:       payload,
			Sources:       sources,
		}

		if purged := store.PurgeExpired(now); purged > 0 {
			logger.Debug("Cache: purged %d expired entries", purged)
		}
		if i := store.FindByHash(hash); i >= 0 {
			store.Entries[i] = entry
		} else {
			store.Entries = append(store.Entries, entry)
		}

		lastErr = c.repo.Write(ctx, store, gen)
		if lastErr == nil {
			logger.Debug("Cache: saved %q (ttl %dh)", query, ttl)
			return hash, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		logger.Debug("Cache: write conflict on attempt %d, retrying", attempt+1)
	}

	// Retries exhausted: the last consistent version wins; the write is
	// dropped rather than corrupting the store.
	logger.Warn("Cache: dropping write for %q after %d conflicts: %v", query, maxWriteRetries+1, lastErr)
	return hash, nil
}

// Stats summarises the session's store.
func (c *CacheService) Stats(ctx context.Context) (domain.CacheStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	store, _, err := c.repo.Load(ctx, c.sessionID)
	if err != nil {
		return domain.CacheStats{}, err
	}

	stats := domain.CacheStats{TotalEntries: len(store.Entries)}
	if len(store.Entries) == 0 {
		return stats, nil
	}

	now := c.now()
	oldest, newest := store.Entries[0].CreatedAt, store.Entries[0].CreatedAt
	for i := range store.Entries {
		stats.TotalReuses += int(store.Entries[i].ReuseCount)
		created := store.Entries[i].CreatedAt
		if created.Before(oldest) {
			oldest = created
		}
		if created.After(newest) {
			newest = created
		}
	}
	stats.AvgReuseCount = float64(stats.TotalReuses) / float64(stats.TotalEntries)
	stats.OldestAgeHours = now.Sub(oldest).Hours()
	stats.NewestAgeHours = now.Sub(newest).Hours()

	return stats, nil
}

// Clear removes the session's store entirely.
func (c *CacheService) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.repo.Delete(ctx, c.sessionID)
}
