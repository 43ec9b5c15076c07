package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
)

// --- Mock implementations shared by the service tests ---

// fakeMemoryFS implements driven.MemoryFS over in-memory documents.
type fakeMemoryFS struct {
	docs      map[string]string // path -> raw content
	turnNums  []uint64
	prefsPath string
	failReads map[string]bool // paths whose Read fails
	turnsErr  error
	notesErr  error
}

func newFakeMemoryFS() *fakeMemoryFS {
	return &fakeMemoryFS{
		docs:      make(map[string]string),
		failReads: make(map[string]bool),
	}
}

func (f *fakeMemoryFS) addTurn(turn uint64, content string) {
	f.docs[f.TurnPath(turn)] = content
	f.turnNums = append(f.turnNums, turn)
}

func (f *fakeMemoryFS) addNote(path, content string) {
	f.docs[path] = content
}

func (f *fakeMemoryFS) setPreferences(path, content string) {
	f.prefsPath = path
	f.docs[path] = content
}

func (f *fakeMemoryFS) ListTurns(_ context.Context) ([]uint64, error) {
	if f.turnsErr != nil {
		return nil, f.turnsErr
	}
	turns := append([]uint64(nil), f.turnNums...)
	sort.Slice(turns, func(i, j int) bool { return turns[i] < turns[j] })
	return turns, nil
}

func (f *fakeMemoryFS) TurnPath(turn uint64) string {
	return fmt.Sprintf("turns/%06d/summary.md", turn)
}

func (f *fakeMemoryFS) ListNotes(_ context.Context) ([]string, error) {
	if f.notesErr != nil {
		return nil, f.notesErr
	}
	var notes []string
	for path := range f.docs {
		if path == f.prefsPath {
			continue
		}
		if len(path) > 6 && path[:6] == "turns/" {
			continue
		}
		notes = append(notes, path)
	}
	sort.Strings(notes)
	return notes, nil
}

func (f *fakeMemoryFS) PreferencesPath() string {
	return f.prefsPath
}

func (f *fakeMemoryFS) Read(_ context.Context, path string) (string, error) {
	if f.failReads[path] {
		return "", fmt.Errorf("read %s: permission denied", path)
	}
	content, ok := f.docs[path]
	if !ok {
		return "", domain.ErrNotFound
	}
	return content, nil
}

// mockEmbedder implements driven.EmbeddingService with fixed vectors
// keyed by text, so test rankings are fully deterministic.
type mockEmbedder struct {
	vectors  map[string][]float32
	fallback []float32 // used when a text has no fixed vector
	embedErr error
	batchErr error
	calls    int
}

var _ driven.EmbeddingService = (*mockEmbedder)(nil)

func (m *mockEmbedder) vector(text string) []float32 {
	if v, ok := m.vectors[text]; ok {
		return v
	}
	if m.fallback != nil {
		return m.fallback
	}
	return []float32{1, 0, 0}
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.calls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vector(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.calls++
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vecs[i] = m.vector(text)
	}
	return vecs, nil
}

func (m *mockEmbedder) Dimensions() int   { return 3 }
func (m *mockEmbedder) ModelName() string { return "mock" }

func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

// mockTelemetry implements driven.SearchTelemetry, recording traces in
// memory.
type mockTelemetry struct {
	traces    []driven.SearchTrace
	recordErr error
}

var _ driven.SearchTelemetry = (*mockTelemetry)(nil)

func (m *mockTelemetry) Record(_ context.Context, trace driven.SearchTrace) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	m.traces = append(m.traces, trace)
	return nil
}

func (m *mockTelemetry) Close() error { return nil }

// conflictRepo wraps a CacheStoreRepo, failing the first n writes with
// domain.ErrCacheConflict.
type conflictRepo struct {
	driven.CacheStoreRepo
	conflicts int
	writes    int
}

func (r *conflictRepo) Write(ctx context.Context, store *domain.CacheStore, expectGen string) error {
	r.writes++
	if r.conflicts > 0 {
		r.conflicts--
		return domain.ErrCacheConflict
	}
	return r.CacheStoreRepo.Write(ctx, store, expectGen)
}
