package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// SearchTelemetry records one observability trace per retrieval call.
// Traces are write-only: the core never reads them back. Recording
// failures are logged by the caller and never fail the search.
type SearchTelemetry interface {
	// Record persists a single search trace.
	Record(ctx context.Context, trace SearchTrace) error

	// Close releases resources.
	Close() error
}

// SearchTrace is the per-query observability record.
type SearchTrace struct {
	SessionID  string
	QueryTerms []string
	RecordedAt time.Time
	Items      []TraceItem
}

// TraceItem captures how one returned item ranked.
type TraceItem struct {
	DocumentPath string
	SourceType   domain.SourceType
	FusedScore   float64
	LexicalRank  int
	SemanticRank int
	Snippet      string
	Origin       domain.ResultOrigin
}
