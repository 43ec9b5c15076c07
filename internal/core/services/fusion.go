package services

import (
	"sort"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// rrfK is the RRF smoothing constant. k=60 is the standard choice; it
// keeps a single top rank from dominating the fused score.
const rrfK = 60

// fusedDoc is one corpus document after rank fusion.
type fusedDoc struct {
	index int // position in the corpus (scan order)
	score float64

	// Best (lowest) rank across all phrases per method, or domain.NoRank
	// when the method produced no signal for this document.
	bestLex int
	bestSem int
}

// fuseRankings combines all lexical and semantic rankings across all
// phrases into one fused ordering using weighted Reciprocal Rank Fusion:
//
//	fused(d) = Σ_phrase w(source_type(d)) * (1/(k+lex_rank) + 1/(k+sem_rank))
//
// A document contributes a lexical term only where it had lexical
// overlap, and a semantic term only where the phrase was semantically
// scored and the document had a vector. Documents with fused score <= 0
// are excluded; ties break stable on corpus scan order.
func fuseRankings(corpus []domain.CorpusDocument, rankings []PhraseRanking) []fusedDoc {
	if len(corpus) == 0 || len(rankings) == 0 {
		return nil
	}

	fused := make([]fusedDoc, len(corpus))
	for i := range fused {
		fused[i] = fusedDoc{index: i, bestLex: domain.NoRank, bestSem: domain.NoRank}
	}

	for _, ranking := range rankings {
		for i := range corpus {
			weight := corpus[i].SourceType.Weight()

			if ranking.LexScore[i] > 0 {
				fused[i].score += weight / float64(rrfK+ranking.LexRank[i])
				if fused[i].bestLex == domain.NoRank || ranking.LexRank[i] < fused[i].bestLex {
					fused[i].bestLex = ranking.LexRank[i]
				}
			}

			if ranking.Semantic && ranking.SemRank[i] != domain.NoRank {
				fused[i].score += weight / float64(rrfK+ranking.SemRank[i])
				if fused[i].bestSem == domain.NoRank || ranking.SemRank[i] < fused[i].bestSem {
					fused[i].bestSem = ranking.SemRank[i]
				}
			}
		}
	}

	kept := fused[:0]
	for _, d := range fused {
		if d.score > 0 {
			kept = append(kept, d)
		}
	}

	sort.SliceStable(kept, func(a, b int) bool {
		return kept[a].score > kept[b].score
	})

	return kept
}
