package services

import (
	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// resolveAlwaysInclude produces the items that occupy reserved output
// slots: the preferences note, the immediately preceding turn, and any
// explicitly referenced turns, in that order of precedence. Duplicate
// reasons for the same path collapse to one item.
//
// A required document already present in the fused ranking is promoted
// (its score and ranks are reused); one present only in the corpus is
// synthesized at zero score so it is never silently dropped for lack of
// lexical or semantic overlap. Documents absent from the corpus are
// skipped.
func resolveAlwaysInclude(
	fs driven.MemoryFS,
	req domain.SearchRequest,
	corpus []domain.CorpusDocument,
	fused []fusedDoc,
) []domain.SearchResultItem {
	var required []string
	seen := make(map[string]bool)

	requirePath := func(path string) {
		if path == "" || seen[path] {
			return
		}
		seen[path] = true
		required = append(required, path)
	}

	if req.IncludePreferences {
		requirePath(fs.PreferencesPath())
	}
	if req.IncludePreviousTurn && req.CurrentTurn > 0 {
		requirePath(fs.TurnPath(req.CurrentTurn - 1))
	}
	for _, turn := range req.ReferenceTurns {
		requirePath(fs.TurnPath(turn))
	}

	if len(required) == 0 {
		return nil
	}

	corpusByPath := make(map[string]int, len(corpus))
	for i := range corpus {
		corpusByPath[corpus[i].DocumentPath] = i
	}
	fusedByIndex := make(map[int]*fusedDoc, len(fused))
	for i := range fused {
		fusedByIndex[fused[i].index] = &fused[i]
	}

	items := make([]domain.SearchResultItem, 0, len(required))
	for _, path := range required {
		idx, inCorpus := corpusByPath[path]
		if !inCorpus {
			logger.Debug("Always-include: %s not in corpus, skipping", path)
			continue
		}
		doc := corpus[idx]

		item := domain.SearchResultItem{
			DocumentPath: doc.DocumentPath,
			SourceType:   doc.SourceType,
			NodeID:       doc.NodeID,
			LexicalRank:  domain.NoRank,
			SemanticRank: domain.NoRank,
			Origin:       domain.OriginAlwaysInclude,
		}

		if fd, ranked := fusedByIndex[idx]; ranked {
			// Promote the ranked item rather than duplicating it.
			item.FusedScore = fd.score
			item.LexicalRank = fd.bestLex
			item.SemanticRank = fd.bestSem
		}

		items = append(items, item)
	}

	return items
}
