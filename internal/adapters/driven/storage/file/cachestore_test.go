package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

func newTestRepo(t *testing.T) *CacheStoreRepo {
	t.Helper()
	repo, err := NewCacheStoreRepo(t.TempDir())
	require.NoError(t, err)
	return repo
}

func sampleEntry(query string) domain.CacheEntry {
	now := time.Now().UTC().Truncate(time.Second)
	return domain.CacheEntry{
		SchemaVersion: domain.CacheSchemaVersion,
		QueryHash:     "deadbeef",
		OriginalQuery: query,
		CreatedAt:     now,
		ExpiresAt:     now.Add(24 * time.Hour),
		TTLHours:      24,
		Payload:       json.RawMessage(`{"k":"v"}`),
	}
}

func TestLoadMissingFileYieldsFreshStore(t *testing.T) {
	repo := newTestRepo(t)

	store, gen, err := repo.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", store.SessionID)
	assert.Empty(t, store.Entries)
	assert.Empty(t, gen)
}

func TestWriteLoadRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	store, gen, err := repo.Load(ctx, "s1")
	require.NoError(t, err)
	store.Entries = append(store.Entries, sampleEntry("hamster lifespan"))
	require.NoError(t, repo.Write(ctx, store, gen))

	got, gen2, err := repo.Load(ctx, "s1")
	require.NoError(t, err)
	assert.NotEmpty(t, gen2)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, "hamster lifespan", got.Entries[0].OriginalQuery)
	assert.JSONEq(t, `{"k":"v"}`, string(got.Entries[0].Payload))
}

func TestWriteStaleGenerationConflicts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	store, gen, err := repo.Load(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, repo.Write(ctx, store, gen))

	// The empty token is now stale.
	err = repo.Write(ctx, store, gen)
	assert.ErrorIs(t, err, domain.ErrCacheConflict)
}

func TestWriteSeesConcurrentUpdate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a, genA, err := repo.Load(ctx, "s1")
	require.NoError(t, err)
	b, genB, err := repo.Load(ctx, "s1")
	require.NoError(t, err)

	a.Entries = append(a.Entries, sampleEntry("from a"))
	require.NoError(t, repo.Write(ctx, a, genA))

	b.Entries = append(b.Entries, sampleEntry("from b"))
	assert.ErrorIs(t, repo.Write(ctx, b, genB), domain.ErrCacheConflict)

	// A's entry survived.
	got, _, err := repo.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, "from a", got.Entries[0].OriginalQuery)
}

func TestLoadCorruptFileStartsFresh(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	path := filepath.Join(repo.Dir(), "s1.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store, gen, err := repo.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, store.Entries)
	assert.Empty(t, gen)

	// The fresh store writes over the corrupt file with the empty token.
	require.NoError(t, repo.Write(ctx, store, gen))
	got, _, err := repo.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.SessionID)
}

func TestDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	store, gen, err := repo.Load(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, repo.Write(ctx, store, gen))

	require.NoError(t, repo.Delete(ctx, "s1"))
	_, err = os.Stat(filepath.Join(repo.Dir(), "s1.json"))
	assert.True(t, os.IsNotExist(err))

	// Idempotent.
	assert.NoError(t, repo.Delete(ctx, "s1"))
}

func TestSessionIDCannotEscapeDirectory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	store, gen, err := repo.Load(ctx, "../evil")
	require.NoError(t, err)
	store.SessionID = "../evil"
	require.NoError(t, repo.Write(ctx, store, gen))

	entries, err := os.ReadDir(repo.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ".._evil.json", entries[0].Name())
}

func TestWriteHeldLockConflicts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	store, gen, err := repo.Load(ctx, "s1")
	require.NoError(t, err)

	// Another writer holds the lock: the write must surface as a
	// conflict so the caller's retry loop handles it.
	lock := filepath.Join(repo.Dir(), "s1.json.lock")
	require.NoError(t, os.WriteFile(lock, nil, 0o600))
	assert.ErrorIs(t, repo.Write(ctx, store, gen), domain.ErrCacheConflict)

	require.NoError(t, os.Remove(lock))
	assert.NoError(t, repo.Write(ctx, store, gen))
}

func TestWriteReleasesLock(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	store, gen, err := repo.Load(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, repo.Write(ctx, store, gen))

	_, err = os.Stat(filepath.Join(repo.Dir(), "s1.json.lock"))
	assert.True(t, os.IsNotExist(err))
}

func TestWriteReclaimsStaleLock(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	store, gen, err := repo.Load(ctx, "s1")
	require.NoError(t, err)

	// A crashed writer left a lock behind long ago.
	lock := filepath.Join(repo.Dir(), "s1.json.lock")
	require.NoError(t, os.WriteFile(lock, nil, 0o600))
	old := time.Now().Add(-time.Minute)
	require.NoError(t, os.Chtimes(lock, old, old))

	// The first attempt reclaims the stale lock and reports conflict;
	// the retry goes through.
	assert.ErrorIs(t, repo.Write(ctx, store, gen), domain.ErrCacheConflict)
	assert.NoError(t, repo.Write(ctx, store, gen))
}

func TestWriteFilePermissions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	store, gen, err := repo.Load(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, repo.Write(ctx, store, gen))

	info, err := os.Stat(filepath.Join(repo.Dir(), "s1.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
