package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

func TestCorpusBuilderTurnLookback(t *testing.T) {
	fs := newFakeMemoryFS()
	for turn := uint64(1); turn <= 10; turn++ {
		fs.addTurn(turn, "turn content here")
	}

	builder := NewCorpusBuilder(fs, 3)
	corpus := builder.Build(context.Background(), domain.SearchRequest{CurrentTurn: 8})

	// Only turns strictly older than 8, newest first, capped at 3.
	require.Len(t, corpus, 3)
	assert.Equal(t, fs.TurnPath(7), corpus[0].DocumentPath)
	assert.Equal(t, fs.TurnPath(6), corpus[1].DocumentPath)
	assert.Equal(t, fs.TurnPath(5), corpus[2].DocumentPath)
	for _, d := range corpus {
		assert.Equal(t, domain.SourceTurnSummary, d.SourceType)
	}
}

func TestCorpusBuilderEmptyTurnsDoNotConsumeLookback(t *testing.T) {
	fs := newFakeMemoryFS()
	fs.addTurn(1, "oldest real turn")
	fs.addTurn(2, "older real turn")
	fs.addTurn(3, "---\ntitle: only front matter\n---\n")
	fs.addTurn(4, "---\ntitle: only front matter\n---\n")
	fs.addTurn(5, "newest real turn")

	builder := NewCorpusBuilder(fs, 2)
	corpus := builder.Build(context.Background(), domain.SearchRequest{CurrentTurn: 6})

	// Turns 4 and 3 normalise to empty; the window slides past them to
	// the next real turns instead of shrinking.
	require.Len(t, corpus, 2)
	assert.Equal(t, fs.TurnPath(5), corpus[0].DocumentPath)
	assert.Equal(t, fs.TurnPath(2), corpus[1].DocumentPath)
}

func TestCorpusBuilderExcludesCurrentAndNewerTurns(t *testing.T) {
	fs := newFakeMemoryFS()
	fs.addTurn(4, "older")
	fs.addTurn(5, "current")
	fs.addTurn(6, "future")

	builder := NewCorpusBuilder(fs, 0)
	corpus := builder.Build(context.Background(), domain.SearchRequest{CurrentTurn: 5})

	require.Len(t, corpus, 1)
	assert.Equal(t, fs.TurnPath(4), corpus[0].DocumentPath)
}

func TestCorpusBuilderNotesTaggedFact(t *testing.T) {
	fs := newFakeMemoryFS()
	fs.addNote("knowledge/pets/hamster.md", "# Hamster\nSyrian hamsters are solitary.")

	builder := NewCorpusBuilder(fs, 0)
	corpus := builder.Build(context.Background(), domain.SearchRequest{CurrentTurn: 1})

	require.Len(t, corpus, 1)
	assert.Equal(t, domain.SourceFact, corpus[0].SourceType)
	assert.Equal(t, "Hamster\nSyrian hamsters are solitary.", corpus[0].Text)
}

func TestCorpusBuilderPreferencesOnlyWhenRequested(t *testing.T) {
	fs := newFakeMemoryFS()
	fs.setPreferences("prefs/user.md", "prefers concise answers")

	builder := NewCorpusBuilder(fs, 0)

	without := builder.Build(context.Background(), domain.SearchRequest{CurrentTurn: 1})
	assert.Empty(t, without)

	with := builder.Build(context.Background(), domain.SearchRequest{
		CurrentTurn:        1,
		IncludePreferences: true,
	})
	require.Len(t, with, 1)
	assert.Equal(t, domain.SourcePreference, with[0].SourceType)
}

func TestCorpusBuilderSupplementsConvertOneToOne(t *testing.T) {
	fs := newFakeMemoryFS()

	builder := NewCorpusBuilder(fs, 0)
	corpus := builder.Build(context.Background(), domain.SearchRequest{
		CurrentTurn: 1,
		Supplements: []domain.SupplementalHit{
			{Path: "research/hamsters.json", Topic: "syrian hamster sellers", SourceType: domain.SourceResearchCache},
			{Path: "visits/petshop.md", Topic: "petshop visit notes", SourceType: domain.SourceVisitRecord},
		},
	})

	require.Len(t, corpus, 2)
	assert.Equal(t, domain.SourceResearchCache, corpus[0].SourceType)
	assert.Equal(t, domain.SourceVisitRecord, corpus[1].SourceType)
}

func TestCorpusBuilderDedupFirstWins(t *testing.T) {
	fs := newFakeMemoryFS()
	fs.addNote("knowledge/hamster.md", "note text")

	builder := NewCorpusBuilder(fs, 0)
	corpus := builder.Build(context.Background(), domain.SearchRequest{
		CurrentTurn: 1,
		Supplements: []domain.SupplementalHit{
			// Same path as the note: supplement must not overwrite it.
			{Path: "knowledge/hamster.md", Topic: "different text", SourceType: domain.SourceResearchCache},
		},
	})

	require.Len(t, corpus, 1)
	assert.Equal(t, domain.SourceFact, corpus[0].SourceType)
	assert.Equal(t, "note text", corpus[0].Text)
}

func TestCorpusBuilderDropsEmptyDocuments(t *testing.T) {
	fs := newFakeMemoryFS()
	fs.addNote("knowledge/empty.md", "---\ntitle: only front matter\n---\n")
	fs.addNote("knowledge/real.md", "actual content")

	builder := NewCorpusBuilder(fs, 0)
	corpus := builder.Build(context.Background(), domain.SearchRequest{CurrentTurn: 1})

	require.Len(t, corpus, 1)
	assert.Equal(t, "knowledge/real.md", corpus[0].DocumentPath)
}

func TestCorpusBuilderSkipsUnreadableFiles(t *testing.T) {
	fs := newFakeMemoryFS()
	fs.addTurn(1, "readable turn")
	fs.addTurn(2, "unreadable turn")
	fs.failReads[fs.TurnPath(2)] = true
	fs.addNote("knowledge/bad.md", "unreadable note")
	fs.failReads["knowledge/bad.md"] = true
	fs.addNote("knowledge/good.md", "readable note")

	builder := NewCorpusBuilder(fs, 0)
	corpus := builder.Build(context.Background(), domain.SearchRequest{CurrentTurn: 5})

	paths := make([]string, len(corpus))
	for i, d := range corpus {
		paths[i] = d.DocumentPath
	}
	assert.ElementsMatch(t, []string{fs.TurnPath(1), "knowledge/good.md"}, paths)
}

func TestCorpusBuilderSurvivesListFailures(t *testing.T) {
	fs := newFakeMemoryFS()
	fs.turnsErr = errors.New("turns dir gone")
	fs.notesErr = errors.New("notes root gone")

	builder := NewCorpusBuilder(fs, 0)
	corpus := builder.Build(context.Background(), domain.SearchRequest{
		CurrentTurn: 1,
		Supplements: []domain.SupplementalHit{
			{Path: "research/x.json", Topic: "still works", SourceType: domain.SourceResearchCache},
		},
	})

	require.Len(t, corpus, 1)
}

func TestNodeIDStableAcrossScanOrder(t *testing.T) {
	id1 := NodeID("knowledge/hamster.md")
	id2 := NodeID("knowledge/hamster.md")
	assert.Equal(t, id1, id2)
	assert.NotEqual(t, id1, NodeID("knowledge/gerbil.md"))
}
