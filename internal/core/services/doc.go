// Package services implements the core retrieval and caching logic.
//
// The retrieval engine is a pure, stateless computation per call:
// corpus assembly, BM25 lexical scoring, optional dense-embedding
// scoring, weighted Reciprocal Rank Fusion, always-include promotion,
// and result assembly. Each search call owns its corpus and results
// exclusively, so concurrent calls share no mutable state.
//
// The semantic-aware query cache is the one stateful subsystem: it
// guards a per-session on-disk store with a per-session lock and a
// compare-and-swap write.
//
// Services depend only on domain types and driven ports; all
// infrastructure lives behind adapters.
package services
