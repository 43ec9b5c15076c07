package services

import (
	"context"
	"strings"
	"time"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driving"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// Ensure Engine implements the interface.
var _ driving.SearchService = (*Engine)(nil)

// Engine is the hybrid retrieval engine: corpus assembly, lexical and
// semantic scoring, weighted rank fusion, always-include promotion, and
// result assembly. It is stateless per call; the host may invoke it
// concurrently for different sessions with no shared mutable state.
type Engine struct {
	fs        driven.MemoryFS
	builder   *CorpusBuilder
	scorer    *Scorer
	telemetry driven.SearchTelemetry
	sessionID string
	now       func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithTelemetry attaches a write-only search trace store.
func WithTelemetry(t driven.SearchTelemetry) EngineOption {
	return func(e *Engine) { e.telemetry = t }
}

// WithSessionID tags telemetry records with a session.
func WithSessionID(id string) EngineOption {
	return func(e *Engine) { e.sessionID = id }
}

// WithClock overrides the engine clock (tests).
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a retrieval engine. The embedding service is
// optional (may be nil): without it the engine is lexical-only.
func NewEngine(
	fs driven.MemoryFS,
	embedder driven.EmbeddingService,
	lookback int,
	embedTimeout time.Duration,
	opts ...EngineOption,
) *Engine {
	e := &Engine{
		fs:      fs,
		builder: NewCorpusBuilder(fs, lookback),
		scorer:  NewScorer(embedder, embedTimeout),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search executes one retrieval call.
func (e *Engine) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResults, error) {
	logger.Section("Search Execution")

	phrases := make([]string, 0, len(req.QueryTerms))
	for _, term := range req.QueryTerms {
		if term = strings.TrimSpace(term); term != "" {
			phrases = append(phrases, term)
		}
	}
	logger.Debug("Query terms: %q, turn %d", phrases, req.CurrentTurn)

	results := &domain.SearchResults{
		QueryTerms:          phrases,
		Items:               []domain.SearchResultItem{},
		IncludePreferences:  req.IncludePreferences,
		IncludePreviousTurn: req.IncludePreviousTurn,
	}

	corpus := e.builder.Build(ctx, req)
	results.Stats.DocumentsScanned = len(corpus)
	if len(corpus) == 0 {
		logger.Info("Empty corpus, returning no results")
		return results, nil
	}

	var fused []fusedDoc
	if len(phrases) > 0 {
		rankings := e.scorer.Score(ctx, corpus, phrases)
		fused = fuseRankings(corpus, rankings)
		logger.Debug("Fused ranking: %d documents with positive score", len(fused))
	}

	always := resolveAlwaysInclude(e.fs, req, corpus, fused)
	logger.Debug("Always-include: %d reserved slots", len(always))

	items, stats := assembleResults(ctx, e.fs, corpus, fused, always, req.TopK)
	results.Items = items
	results.Stats = stats

	logger.Info("Final results: %d (lexical hits %d, semantic hits %d)",
		stats.FinalCount, stats.LexicalHits, stats.SemanticHits)

	e.record(ctx, phrases, items)
	return results, nil
}

// record writes the per-query observability trace. Best effort only.
func (e *Engine) record(ctx context.Context, phrases []string, items []domain.SearchResultItem) {
	if e.telemetry == nil {
		return
	}

	trace := driven.SearchTrace{
		SessionID:  e.sessionID,
		QueryTerms: phrases,
		RecordedAt: e.now(),
		Items:      make([]driven.TraceItem, len(items)),
	}
	for i, item := range items {
		trace.Items[i] = driven.TraceItem{
			DocumentPath: item.DocumentPath,
			SourceType:   item.SourceType,
			FusedScore:   item.FusedScore,
			LexicalRank:  item.LexicalRank,
			SemanticRank: item.SemanticRank,
			Snippet:      item.Snippet,
			Origin:       item.Origin,
		}
	}

	if err := e.telemetry.Record(ctx, trace); err != nil {
		logger.Warn("Telemetry record failed: %v", err)
	}
}
