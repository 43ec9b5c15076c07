package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

func searchFS() *fakeMemoryFS {
	fs := newFakeMemoryFS()
	fs.addTurn(1, "we talked about golden retrievers and training schedules")
	fs.addTurn(2, "syrian hamsters make good first pets")
	fs.addTurn(3, "weather in berlin next week")
	fs.addNote("notes/hamster-care.md", "syrian hamster care and feeding notes")
	fs.setPreferences("prefs/user.md", "prefers short answers without preamble")
	return fs
}

func TestEngineSearchRanksLexically(t *testing.T) {
	engine := NewEngine(searchFS(), nil, DefaultTurnLookback, 0)

	results, err := engine.Search(context.Background(), domain.SearchRequest{
		QueryTerms:  []string{"syrian hamster"},
		CurrentTurn: 10,
	})
	require.NoError(t, err)

	require.NotEmpty(t, results.Items)
	paths := make([]string, len(results.Items))
	for i, item := range results.Items {
		paths[i] = item.DocumentPath
		assert.Equal(t, domain.OriginSearch, item.Origin)
		assert.Positive(t, item.FusedScore)
		assert.NotEmpty(t, item.Snippet)
		assert.NotEmpty(t, item.Content)
	}
	assert.Contains(t, paths, "notes/hamster-care.md")
	assert.NotContains(t, paths, "turns/000003/summary.md")
}

func TestEngineSearchDeterministic(t *testing.T) {
	engine := NewEngine(searchFS(), nil, DefaultTurnLookback, 0)
	req := domain.SearchRequest{
		QueryTerms:  []string{"syrian hamster", "training"},
		CurrentTurn: 10,
	}

	first, err := engine.Search(context.Background(), req)
	require.NoError(t, err)
	second, err := engine.Search(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEngineSearchNoDuplicatePaths(t *testing.T) {
	engine := NewEngine(searchFS(), nil, DefaultTurnLookback, 0)

	// Turn 2 is both an explicit reference and a strong lexical match.
	results, err := engine.Search(context.Background(), domain.SearchRequest{
		QueryTerms:     []string{"syrian hamsters"},
		CurrentTurn:    3,
		ReferenceTurns: []uint64{2},
	})
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, item := range results.Items {
		assert.False(t, seen[item.DocumentPath], "duplicate path %s", item.DocumentPath)
		seen[item.DocumentPath] = true
	}
	assert.True(t, seen["turns/000002/summary.md"])
}

func TestEngineSearchAlwaysIncludeGuarantee(t *testing.T) {
	fs := newFakeMemoryFS()
	fs.addTurn(4, "completely unrelated discussion of quarterly budgets")
	fs.addNote("notes/hamster.md", "syrian hamster care")
	engine := NewEngine(fs, nil, DefaultTurnLookback, 0)

	// The previous turn shares no tokens with the query; it must still
	// appear, at zero score.
	results, err := engine.Search(context.Background(), domain.SearchRequest{
		QueryTerms:          []string{"syrian hamster"},
		CurrentTurn:         5,
		IncludePreviousTurn: true,
	})
	require.NoError(t, err)

	require.Len(t, results.Items, 2)
	assert.Equal(t, "turns/000004/summary.md", results.Items[0].DocumentPath)
	assert.Equal(t, domain.OriginAlwaysInclude, results.Items[0].Origin)
	assert.Zero(t, results.Items[0].FusedScore)
	assert.Equal(t, "notes/hamster.md", results.Items[1].DocumentPath)
	assert.Equal(t, domain.OriginSearch, results.Items[1].Origin)
}

func TestEngineSearchEmptyCorpus(t *testing.T) {
	engine := NewEngine(newFakeMemoryFS(), nil, DefaultTurnLookback, 0)

	results, err := engine.Search(context.Background(), domain.SearchRequest{
		QueryTerms:  []string{"anything"},
		CurrentTurn: 1,
	})
	require.NoError(t, err)

	assert.Empty(t, results.Items)
	assert.Zero(t, results.Stats.DocumentsScanned)
	assert.Zero(t, results.Stats.FinalCount)
}

func TestEngineSearchNoQueryTermsStillServesIncludes(t *testing.T) {
	engine := NewEngine(searchFS(), nil, DefaultTurnLookback, 0)

	results, err := engine.Search(context.Background(), domain.SearchRequest{
		QueryTerms:         []string{"  ", ""},
		CurrentTurn:        3,
		IncludePreferences: true,
	})
	require.NoError(t, err)

	require.Len(t, results.Items, 1)
	assert.Equal(t, "prefs/user.md", results.Items[0].DocumentPath)
	assert.Equal(t, domain.OriginAlwaysInclude, results.Items[0].Origin)
	assert.Empty(t, results.QueryTerms)
}

func TestEngineSearchRespectsTopK(t *testing.T) {
	fs := newFakeMemoryFS()
	for i := uint64(1); i <= 8; i++ {
		fs.addTurn(i, "syrian hamster mentions in every turn")
	}
	engine := NewEngine(fs, nil, DefaultTurnLookback, 0)

	results, err := engine.Search(context.Background(), domain.SearchRequest{
		QueryTerms:  []string{"syrian hamster"},
		CurrentTurn: 20,
		TopK:        3,
	})
	require.NoError(t, err)
	assert.Len(t, results.Items, 3)
}

func TestEngineSearchRecordsTelemetry(t *testing.T) {
	tel := &mockTelemetry{}
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	engine := NewEngine(searchFS(), nil, DefaultTurnLookback, 0,
		WithTelemetry(tel),
		WithSessionID("session-a"),
		WithClock(func() time.Time { return at }),
	)

	results, err := engine.Search(context.Background(), domain.SearchRequest{
		QueryTerms:  []string{"syrian hamster"},
		CurrentTurn: 10,
	})
	require.NoError(t, err)

	require.Len(t, tel.traces, 1)
	trace := tel.traces[0]
	assert.Equal(t, "session-a", trace.SessionID)
	assert.Equal(t, []string{"syrian hamster"}, trace.QueryTerms)
	assert.Equal(t, at, trace.RecordedAt)
	require.Len(t, trace.Items, len(results.Items))
	assert.Equal(t, results.Items[0].DocumentPath, trace.Items[0].DocumentPath)
}

func TestEngineSearchTelemetryFailureIsNotFatal(t *testing.T) {
	tel := &mockTelemetry{recordErr: assert.AnError}
	engine := NewEngine(searchFS(), nil, DefaultTurnLookback, 0, WithTelemetry(tel))

	_, err := engine.Search(context.Background(), domain.SearchRequest{
		QueryTerms:  []string{"syrian hamster"},
		CurrentTurn: 10,
	})
	assert.NoError(t, err)
}

func TestEngineSearchSemanticOnlyMatch(t *testing.T) {
	fs := newFakeMemoryFS()
	fs.addTurn(1, "rodent shopping options downtown")
	embedder := &mockEmbedder{
		vectors: map[string][]float32{
			"hamster":                          {1, 0, 0},
			"rodent shopping options downtown": {0.9, 0.436, 0},
		},
	}
	engine := NewEngine(fs, embedder, DefaultTurnLookback, DefaultEmbedTimeout)

	// No token overlap; only the embedding similarity surfaces the turn.
	results, err := engine.Search(context.Background(), domain.SearchRequest{
		QueryTerms:  []string{"hamster"},
		CurrentTurn: 5,
	})
	require.NoError(t, err)

	require.Len(t, results.Items, 1)
	assert.Equal(t, domain.NoRank, results.Items[0].LexicalRank)
	assert.Equal(t, 0, results.Items[0].SemanticRank)
	assert.Equal(t, 1, results.Stats.SemanticHits)
	assert.Equal(t, 0, results.Stats.LexicalHits)
}
