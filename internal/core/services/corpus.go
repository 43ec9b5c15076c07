package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/logger"
	"github.com/custodia-labs/recall-cli/internal/normalisers/markdown"
)

// DefaultTurnLookback caps how many prior turns enter the corpus.
const DefaultTurnLookback = 50

// nodeNamespace seeds deterministic node ids. Ids are derived from the
// document path alone, so they do not depend on scan order.
var nodeNamespace = uuid.MustParse("9f2c41f0-5fb4-4fd2-8f27-1f6a3f0c7d11")

// NodeID returns the stable node id for a document path.
func NodeID(path string) string {
	return uuid.NewSHA1(nodeNamespace, []byte(path)).String()
}

// CorpusBuilder scans the configured heterogeneous sources and produces
// a flat, deduplicated list of searchable documents for one call.
type CorpusBuilder struct {
	fs       driven.MemoryFS
	lookback int
}

// NewCorpusBuilder creates a corpus builder over the given store.
// lookback <= 0 selects DefaultTurnLookback.
func NewCorpusBuilder(fs driven.MemoryFS, lookback int) *CorpusBuilder {
	if lookback <= 0 {
		lookback = DefaultTurnLookback
	}
	return &CorpusBuilder{fs: fs, lookback: lookback}
}

// Build assembles the corpus for a request. It never fails for partial
// I/O problems: unreadable files are skipped and logged. Documents that
// normalise to empty text are dropped; duplicate paths keep the first
// occurrence.
func (b *CorpusBuilder) Build(ctx context.Context, req domain.SearchRequest) []domain.CorpusDocument {
	var corpus []domain.CorpusDocument
	seen := make(map[string]bool)

	add := func(path, text string, sourceType domain.SourceType) bool {
		if seen[path] {
			return false
		}
		text = markdown.Normalise(text)
		if text == "" {
			logger.Debug("Corpus: dropping empty document %s", path)
			return false
		}
		seen[path] = true
		corpus = append(corpus, domain.CorpusDocument{
			Text:         text,
			DocumentPath: path,
			SourceType:   sourceType,
			NodeID:       NodeID(path),
		})
		return true
	}

	// Prior turns, newest first, strictly older than the current turn,
	// truncated to the lookback window.
	turns, err := b.fs.ListTurns(ctx)
	if err != nil {
		logger.Warn("Corpus: listing turns failed: %v", err)
	}
	taken := 0
	for i := len(turns) - 1; i >= 0 && taken < b.lookback; i-- {
		turn := turns[i]
		if turn >= req.CurrentTurn {
			continue
		}
		path := b.fs.TurnPath(turn)
		content, err := b.fs.Read(ctx, path)
		if err != nil {
			logger.Warn("Corpus: skipping unreadable turn %d: %v", turn, err)
			continue
		}
		// Dropped turns (empty after normalising) must not consume a
		// lookback slot, or they would shrink the effective window.
		if add(path, content, domain.SourceTurnSummary) {
			taken++
		}
	}

	// Knowledge/belief notes, recursively discovered, tagged fact.
	notes, err := b.fs.ListNotes(ctx)
	if err != nil {
		logger.Warn("Corpus: listing notes failed: %v", err)
	}
	for _, path := range notes {
		content, err := b.fs.Read(ctx, path)
		if err != nil {
			logger.Warn("Corpus: skipping unreadable note %s: %v", path, err)
			continue
		}
		add(path, content, domain.SourceFact)
	}

	// The preferences note enters only when the caller asked for it.
	if req.IncludePreferences {
		if path := b.fs.PreferencesPath(); path != "" {
			content, err := b.fs.Read(ctx, path)
			if err != nil {
				logger.Warn("Corpus: preferences unreadable: %v", err)
			} else {
				add(path, content, domain.SourcePreference)
			}
		}
	}

	// Pre-fetched supplementary results convert 1:1, keeping their
	// original source type.
	for _, hit := range req.Supplements {
		add(hit.Path, hit.Topic, hit.SourceType)
	}

	logger.Debug("Corpus: %d documents assembled", len(corpus))
	return corpus
}
