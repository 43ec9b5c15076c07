package domain

// DefaultTopK is the default size of the final result set.
const DefaultTopK = 15

// NoRank marks the absence of a rank for one scoring method.
const NoRank = -1

// ResultOrigin records how an item earned its slot in the result set.
type ResultOrigin string

// Result origins.
const (
	// OriginSearch marks items that earned their slot by fused rank.
	OriginSearch ResultOrigin = "search"

	// OriginAlwaysInclude marks items holding a reserved slot
	// independent of their score.
	OriginAlwaysInclude ResultOrigin = "always_include"
)

// SearchRequest describes one retrieval call.
type SearchRequest struct {
	// QueryTerms are 1-5 short search phrases.
	QueryTerms []string

	// IncludePreferences reserves a slot for the user-preferences note.
	IncludePreferences bool

	// IncludePreviousTurn reserves a slot for turn CurrentTurn-1.
	IncludePreviousTurn bool

	// CurrentTurn is the in-progress turn. Only strictly older turns
	// enter the corpus.
	CurrentTurn uint64

	// ReferenceTurns are turns the caller explicitly referenced; each
	// gets a reserved slot when its document exists.
	ReferenceTurns []uint64

	// TopK caps the final result set. Zero means DefaultTopK.
	TopK int

	// Supplements are pre-fetched provider hits folded into the corpus.
	Supplements []SupplementalHit
}

// SearchResultItem is a single ranked hit.
type SearchResultItem struct {
	// DocumentPath is unique within a SearchResults collection.
	DocumentPath string

	// SourceType is the document's provenance.
	SourceType SourceType

	// NodeID is the document's stable node identifier.
	NodeID string

	// FusedScore is the weighted RRF score. Zero for synthesized
	// always-include items.
	FusedScore float64

	// LexicalRank is the document's best lexical rank across all query
	// phrases (0-based). NoRank when the document had no lexical signal.
	LexicalRank int

	// SemanticRank is the document's best semantic rank across all
	// query phrases (0-based). NoRank when semantic scoring was
	// unavailable or the document had no embedding.
	SemanticRank int

	// Snippet is a short preview of the document text.
	Snippet string

	// Origin records whether the item was ranked in or reserved.
	Origin ResultOrigin

	// Content is the truncated full text, loaded by the assembler.
	// Empty when the source file is unreadable.
	Content string
}

// SearchStats summarises one retrieval call.
type SearchStats struct {
	// DocumentsScanned is the corpus size after dedup.
	DocumentsScanned int

	// LexicalHits counts returned items with any lexical signal.
	LexicalHits int

	// SemanticHits counts returned items with any semantic signal.
	SemanticHits int

	// FinalCount is the number of items returned.
	FinalCount int
}

// SearchResults is the immutable value returned to the caller.
// Its lifetime ends with the request.
type SearchResults struct {
	QueryTerms          []string
	Items               []SearchResultItem
	Stats               SearchStats
	IncludePreferences  bool
	IncludePreviousTurn bool
}
