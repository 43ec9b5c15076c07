// Package memoryfs adapts the on-disk personal knowledge store to the
// driven.MemoryFS port: turn directories named by a zero-padded numeric
// convention, recursive knowledge/belief note trees, and a single
// user-preferences note.
package memoryfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.MemoryFS = (*Store)(nil)

// turnDirWidth is the zero padding of turn directory names: turn 42
// lives in "000042/".
const turnDirWidth = 6

// summaryFile is the document inside each turn directory.
const summaryFile = "summary.md"

// Config locates the knowledge store on disk.
type Config struct {
	// TurnsDir holds the zero-padded turn directories.
	TurnsDir string

	// KnowledgeRoots are the fixed roots scanned recursively for
	// knowledge/belief notes.
	KnowledgeRoots []string

	// PreferencesPath is the user-preferences note, optional.
	PreferencesPath string
}

// Store reads the knowledge store from the local filesystem.
type Store struct {
	cfg Config
}

// New creates a filesystem-backed knowledge store.
func New(cfg Config) *Store {
	return &Store{cfg: cfg}
}

// ListTurns returns the turn numbers present on disk, ascending.
// Directories that do not parse as turn numbers are ignored.
func (s *Store) ListTurns(ctx context.Context) ([]uint64, error) {
	if s.cfg.TurnsDir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(s.cfg.TurnsDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading turns dir: %w", err)
	}

	var turns []uint64
	for _, entry := range entries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !entry.IsDir() {
			continue
		}
		turn, err := strconv.ParseUint(entry.Name(), 10, 64)
		if err != nil {
			continue
		}
		turns = append(turns, turn)
	}

	sort.Slice(turns, func(i, j int) bool { return turns[i] < turns[j] })
	return turns, nil
}

// TurnPath returns the document path for a turn, existing or not.
func (s *Store) TurnPath(turn uint64) string {
	name := fmt.Sprintf("%0*d", turnDirWidth, turn)
	return filepath.Join(s.cfg.TurnsDir, name, summaryFile)
}

// ListNotes walks the knowledge roots recursively and returns every
// markdown note path. An unreadable subtree is skipped and logged, not
// fatal: corpus building must survive partial I/O failure.
func (s *Store) ListNotes(ctx context.Context) ([]string, error) {
	var notes []string
	for _, root := range s.cfg.KnowledgeRoots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err != nil {
				logger.Warn("Note scan: skipping %s: %v", path, err)
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if strings.EqualFold(filepath.Ext(path), ".md") {
				notes = append(notes, path)
			}
			return nil
		})
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			logger.Warn("Note scan: root %s failed: %v", root, err)
		}
	}
	return notes, nil
}

// PreferencesPath returns the configured preferences note path.
func (s *Store) PreferencesPath() string {
	return s.cfg.PreferencesPath
}

// Read returns a document's raw content.
func (s *Store) Read(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}
