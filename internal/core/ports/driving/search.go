package driving

import (
	"context"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// SearchService is the retrieval engine's exposed surface: rank and
// return the most relevant documents from the personal knowledge store
// for a set of short search phrases.
type SearchService interface {
	// Search assembles a fresh corpus, scores it lexically and (when an
	// embedding backend is available) semantically, fuses the rankings,
	// reserves always-include slots, and returns the assembled results.
	// An empty corpus returns empty results with zeroed stats, not an
	// error.
	Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResults, error)
}
