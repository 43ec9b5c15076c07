package domain

// SourceType classifies where a corpus document came from.
// The type controls how much the fusion stage trusts the document:
// original material outranks machine-generated summaries so that
// summarisation drift does not compound across turns.
type SourceType string

// Known source types.
const (
	SourceFact          SourceType = "fact"
	SourcePreference    SourceType = "preference"
	SourceResearchCache SourceType = "research_cache"
	SourceTurnSummary   SourceType = "turn_summary"
	SourceVisitRecord   SourceType = "visit_record"
)

// sourceWeights biases fusion scores by provenance. These values are
// load-bearing: changing them changes which candidate wins whenever the
// lexical and semantic signals are ambiguous.
var sourceWeights = map[SourceType]float64{
	SourceFact:          1.0,
	SourcePreference:    1.0,
	SourceResearchCache: 0.9,
	SourceVisitRecord:   0.7,
	SourceTurnSummary:   0.5,
}

// Weight returns the fusion trust weight for the source type.
// Unknown types get the most conservative weight.
func (t SourceType) Weight() float64 {
	if w, ok := sourceWeights[t]; ok {
		return w
	}
	return sourceWeights[SourceTurnSummary]
}

// Valid reports whether t is a known source type.
func (t SourceType) Valid() bool {
	_, ok := sourceWeights[t]
	return ok
}

// CorpusDocument is one searchable unit of the per-call corpus.
// A corpus is assembled fresh for every search invocation and never
// mutated; the invocation owns it exclusively.
type CorpusDocument struct {
	// Text is the normalised searchable text (front matter and markup stripped).
	Text string

	// DocumentPath is the unique identity of the document within a corpus.
	DocumentPath string

	// SourceType classifies the document's provenance.
	SourceType SourceType

	// NodeID is a stable identifier derived from the path, independent
	// of scan order.
	NodeID string
}

// SupplementalHit is a pre-fetched result from an external provider
// (durable-memory or research-cache). The corpus builder folds these in
// as-is; the engine never calls the providers itself.
type SupplementalHit struct {
	// Path is the document path the hit refers to.
	Path string

	// Topic is the provider's summary or topic line for the hit.
	Topic string

	// Relevance is the provider's own relevance estimate.
	Relevance float64

	// SourceType is the provenance the hit carries into the corpus.
	SourceType SourceType
}
