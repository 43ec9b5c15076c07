// Package file provides the on-disk cache store repository: one JSON
// file per session, written atomically via temp-file rename with a
// generation token acting as a compare-and-swap guard.
package file

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// Ensure CacheStoreRepo implements the interface.
var _ driven.CacheStoreRepo = (*CacheStoreRepo)(nil)

// CacheStoreRepo persists per-session cache stores under a directory.
// The generation token is a hash of the file bytes read at Load time;
// Write refuses to replace a file whose current bytes hash differently,
// so a concurrent writer's entry is never silently lost.
type CacheStoreRepo struct {
	dir string
}

// NewCacheStoreRepo creates the repository, creating the directory if
// needed. This is the one genuinely unrecoverable configuration error
// in the cache path.
func NewCacheStoreRepo(dir string) (*CacheStoreRepo, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, ".recall", "cache")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &CacheStoreRepo{dir: dir}, nil
}

// Dir returns the repository directory.
func (r *CacheStoreRepo) Dir() string {
	return r.dir
}

func (r *CacheStoreRepo) path(sessionID string) string {
	// Session ids come from callers; keep them from escaping the dir.
	name := strings.ReplaceAll(sessionID, string(os.PathSeparator), "_")
	return filepath.Join(r.dir, name+".json")
}

func generation(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// lockStaleAfter bounds how long a crashed writer's leftover lock file
// can block a session before it is reclaimed.
const lockStaleAfter = 10 * time.Second

// acquireLock takes the session's exclusive write lock via an O_EXCL
// lock file, returning the release func. A held lock maps to
// domain.ErrCacheConflict so the caller's retry loop covers contention;
// stale locks are removed so the next attempt can proceed.
func (r *CacheStoreRepo) acquireLock(sessionID string) (func(), error) {
	lock := r.path(sessionID) + ".lock"

	f, err := os.OpenFile(lock, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err == nil {
		f.Close()
		return func() { os.Remove(lock) }, nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return nil, fmt.Errorf("acquire store lock: %w", err)
	}

	if info, statErr := os.Stat(lock); statErr == nil && time.Since(info.ModTime()) > lockStaleAfter {
		logger.Warn("Cache store lock for session %s stale, reclaiming", sessionID)
		os.Remove(lock)
	}
	return nil, domain.ErrCacheConflict
}

// Load reads the session's store. A missing file yields a fresh empty
// store with an empty generation token; a corrupt file is logged and
// treated the same way so one bad file never wedges a session.
func (r *CacheStoreRepo) Load(_ context.Context, sessionID string) (*domain.CacheStore, string, error) {
	data, err := os.ReadFile(r.path(sessionID))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.NewCacheStore(sessionID), "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("reading cache store: %w", err)
	}

	var store domain.CacheStore
	if err := json.Unmarshal(data, &store); err != nil {
		logger.Warn("Cache store for session %s corrupt, starting fresh: %v", sessionID, err)
		return domain.NewCacheStore(sessionID), "", nil
	}
	if store.Entries == nil {
		store.Entries = []domain.CacheEntry{}
	}

	return &store, generation(data), nil
}

// Write persists the store atomically if the file's current generation
// still matches expectGen. The temp file lands in the same directory so
// the rename cannot cross filesystems. An exclusive lock file spans the
// generation check and the rename, so two out-of-process writers cannot
// both pass the check; the loser gets domain.ErrCacheConflict either
// from the lock or from the generation mismatch.
func (r *CacheStoreRepo) Write(_ context.Context, store *domain.CacheStore, expectGen string) error {
	release, err := r.acquireLock(store.SessionID)
	if err != nil {
		return err
	}
	defer release()

	current, err := r.currentGeneration(store.SessionID)
	if err != nil {
		return err
	}
	if current != expectGen {
		return domain.ErrCacheConflict
	}

	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache store: %w", err)
	}

	target := r.path(store.SessionID)
	tmp, err := os.CreateTemp(r.dir, ".store-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp store: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp store: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("chmod temp store: %w", err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("replace cache store: %w", err)
	}
	return nil
}

func (r *CacheStoreRepo) currentGeneration(sessionID string) (string, error) {
	data, err := os.ReadFile(r.path(sessionID))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading cache store: %w", err)
	}
	if !json.Valid(data) {
		// Corrupt stores load as empty, so they carry the empty token.
		return "", nil
	}
	return generation(data), nil
}

// Delete removes the session's store. Missing files are not an error.
func (r *CacheStoreRepo) Delete(_ context.Context, sessionID string) error {
	err := os.Remove(r.path(sessionID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
