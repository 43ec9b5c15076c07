package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// Content bounds: snippets preview a document in ranked lists; content
// is capped to bound downstream token cost.
const (
	snippetMaxChars = 200
	contentMaxChars = 3000
)

// assembleResults merges the reserved always-include slots with the
// top-ranked search slots, deduplicated by document path with the first
// occurrence winning (always the always-include item when both exist),
// then loads content for every returned item.
func assembleResults(
	ctx context.Context,
	fs driven.MemoryFS,
	corpus []domain.CorpusDocument,
	fused []fusedDoc,
	always []domain.SearchResultItem,
	topK int,
) ([]domain.SearchResultItem, domain.SearchStats) {
	if topK <= 0 {
		topK = domain.DefaultTopK
	}

	items := make([]domain.SearchResultItem, 0, topK)
	taken := make(map[string]bool)

	for _, item := range always {
		if taken[item.DocumentPath] {
			continue
		}
		taken[item.DocumentPath] = true
		items = append(items, item)
	}

	// Search slots fill whatever the reserved slots left over.
	for _, fd := range fused {
		if len(items) >= topK {
			break
		}
		doc := corpus[fd.index]
		if taken[doc.DocumentPath] {
			continue
		}
		taken[doc.DocumentPath] = true
		items = append(items, domain.SearchResultItem{
			DocumentPath: doc.DocumentPath,
			SourceType:   doc.SourceType,
			NodeID:       doc.NodeID,
			FusedScore:   fd.score,
			LexicalRank:  fd.bestLex,
			SemanticRank: fd.bestSem,
			Origin:       domain.OriginSearch,
		})
	}

	corpusByPath := make(map[string]int, len(corpus))
	for i := range corpus {
		corpusByPath[corpus[i].DocumentPath] = i
	}

	stats := domain.SearchStats{DocumentsScanned: len(corpus)}
	for i := range items {
		if idx, ok := corpusByPath[items[i].DocumentPath]; ok {
			items[i].Snippet = truncate(corpus[idx].Text, snippetMaxChars)
		}

		content, err := fs.Read(ctx, items[i].DocumentPath)
		if err != nil {
			// A vanished or unreadable file costs its content, not the call.
			logger.Warn("Assemble: content unreadable for %s: %v", items[i].DocumentPath, err)
			content = ""
		}
		items[i].Content = truncate(content, contentMaxChars)

		if items[i].LexicalRank != domain.NoRank {
			stats.LexicalHits++
		}
		if items[i].SemanticRank != domain.NoRank {
			stats.SemanticHits++
		}
	}
	stats.FinalCount = len(items)

	return items, stats
}

// truncate cuts s to at most max runes, on a rune boundary.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max]))
}
