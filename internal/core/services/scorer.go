package services

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// BM25 parameters (standard values).
const (
	bm25K1 = 1.5  // term frequency saturation
	bm25B  = 0.75 // length normalisation
)

// MaxQueryPhrases caps how many phrases one call scores.
const MaxQueryPhrases = 5

// DefaultEmbedTimeout bounds the whole embedding phase of one search.
// A slow or absent backend degrades the call to lexical-only instead of
// blocking it.
const DefaultEmbedTimeout = 10 * time.Second

// stopWords is the fixed stop-word set removed during tokenisation.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "had": {}, "her": {}, "was": {},
	"one": {}, "our": {}, "out": {}, "has": {}, "have": {}, "him": {},
	"his": {}, "how": {}, "its": {}, "may": {}, "she": {}, "that": {},
	"this": {}, "with": {}, "they": {}, "them": {}, "then": {}, "than": {},
	"from": {}, "what": {}, "when": {}, "were": {}, "will": {}, "would": {},
	"there": {}, "their": {}, "which": {}, "about": {}, "into": {},
	"some": {}, "your": {}, "been": {}, "because": {},
}

// Tokenize converts text to normalised tokens: lower-cased alphabetic
// runs of at least two characters, stop words removed.
func Tokenize(text string) []string {
	text = strings.ToLower(text)

	var tokens []string
	var current strings.Builder

	flush := func() {
		token := current.String()
		current.Reset()
		if utf8.RuneCountInString(token) < 2 {
			return
		}
		if _, stop := stopWords[token]; stop {
			return
		}
		tokens = append(tokens, token)
	}

	for _, r := range text {
		if unicode.IsLetter(r) {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	return tokens
}

// PhraseRanking holds the full per-document ranking for one query
// phrase, lexical and semantic. Rankings are dense and 0-based: every
// document gets exactly one rank per method.
type PhraseRanking struct {
	// Phrase is the query phrase this ranking belongs to.
	Phrase string

	// LexScore[i] is document i's BM25 score for the phrase. Zero means
	// no lexical overlap; such documents still hold a (trailing) rank.
	LexScore []float64

	// LexRank[i] is document i's 0-based lexical rank.
	LexRank []int

	// SemScore[i] is document i's cosine similarity to the phrase.
	// Meaningless when Semantic is false or the document has no vector.
	SemScore []float64

	// SemRank[i] is document i's 0-based semantic rank, or domain.NoRank
	// when the document has no vector.
	SemRank []int

	// Semantic reports whether semantic scoring ran for this phrase.
	Semantic bool
}

// Scorer produces lexical and semantic rankings over a corpus.
// The embedding service is optional; when nil or failing, the scorer
// degrades to lexical-only without aborting the search.
type Scorer struct {
	embedder     driven.EmbeddingService
	embedTimeout time.Duration
}

// NewScorer creates a scorer. embedder may be nil.
func NewScorer(embedder driven.EmbeddingService, embedTimeout time.Duration) *Scorer {
	if embedTimeout <= 0 {
		embedTimeout = DefaultEmbedTimeout
	}
	return &Scorer{embedder: embedder, embedTimeout: embedTimeout}
}

// Score ranks every corpus document against every phrase, both ways.
// Phrases beyond MaxQueryPhrases are ignored (logged).
func (s *Scorer) Score(ctx context.Context, corpus []domain.CorpusDocument, phrases []string) []PhraseRanking {
	if len(phrases) > MaxQueryPhrases {
		logger.Warn("Scorer: %d phrases given, scoring first %d", len(phrases), MaxQueryPhrases)
		phrases = phrases[:MaxQueryPhrases]
	}

	idx := buildLexicalIndex(corpus)

	rankings := make([]PhraseRanking, len(phrases))
	for i, phrase := range phrases {
		rankings[i] = idx.rank(phrase)
	}

	s.scoreSemantic(ctx, corpus, phrases, rankings)
	return rankings
}

// lexicalIndex holds per-corpus BM25 statistics.
type lexicalIndex struct {
	termFreqs []map[string]int
	docLens   []int
	docFreqs  map[string]int
	avgLen    float64
}

func buildLexicalIndex(corpus []domain.CorpusDocument) *lexicalIndex {
	idx := &lexicalIndex{
		termFreqs: make([]map[string]int, len(corpus)),
		docLens:   make([]int, len(corpus)),
		docFreqs:  make(map[string]int),
	}

	total := 0
	for i, doc := range corpus {
		tokens := Tokenize(doc.Text)
		freqs := make(map[string]int, len(tokens))
		for _, t := range tokens {
			freqs[t]++
		}
		idx.termFreqs[i] = freqs
		idx.docLens[i] = len(tokens)
		total += len(tokens)
		for t := range freqs {
			idx.docFreqs[t]++
		}
	}

	if len(corpus) > 0 {
		idx.avgLen = float64(total) / float64(len(corpus))
	}
	return idx
}

// rank scores all documents for one phrase and assigns dense 0-based
// ranks. Documents that tokenise to nothing score zero and sort last,
// stable on corpus order.
func (idx *lexicalIndex) rank(phrase string) PhraseRanking {
	n := len(idx.termFreqs)
	queryTerms := Tokenize(phrase)

	scores := make([]float64, n)
	for i := 0; i < n; i++ {
		scores[i] = idx.bm25(queryTerms, i)
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	ranks := make([]int, n)
	for pos, docIdx := range order {
		ranks[docIdx] = pos
	}

	return PhraseRanking{
		Phrase:   phrase,
		LexScore: scores,
		LexRank:  ranks,
		SemRank:  noRanks(n),
		SemScore: make([]float64, n),
	}
}

func (idx *lexicalIndex) bm25(queryTerms []string, doc int) float64 {
	if idx.avgLen == 0 {
		return 0
	}

	n := float64(len(idx.termFreqs))
	docLen := float64(idx.docLens[doc])

	score := 0.0
	for _, term := range queryTerms {
		tf := float64(idx.termFreqs[doc][term])
		if tf == 0 {
			continue
		}
		df := float64(idx.docFreqs[term])

		// Lucene-style IDF: strictly positive, so any term overlap
		// yields a positive score even for corpus-wide terms.
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))

		tfNorm := (tf * (bm25K1 + 1)) / (tf + bm25K1*(1-bm25B+bm25B*docLen/idx.avgLen))
		score += idf * tfNorm
	}

	return score
}

func noRanks(n int) []int {
	ranks := make([]int, n)
	for i := range ranks {
		ranks[i] = domain.NoRank
	}
	return ranks
}

// scoreSemantic fills in the semantic side of the rankings. Any failure
// (no backend, timeout, batch error) leaves the rankings lexical-only;
// it is logged, never raised.
func (s *Scorer) scoreSemantic(ctx context.Context, corpus []domain.CorpusDocument, phrases []string, rankings []PhraseRanking) {
	if s.embedder == nil {
		logger.Debug("Scorer: no embedding service, lexical-only")
		return
	}
	if len(corpus) == 0 || len(phrases) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.embedTimeout)
	defer cancel()

	texts := make([]string, len(corpus))
	for i, doc := range corpus {
		texts[i] = doc.Text
	}

	var docVecs [][]float32
	phraseVecs := make([][]float32, len(phrases))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		docVecs, err = s.embedder.EmbedBatch(gctx, texts)
		return err
	})
	g.Go(func() error {
		var err error
		vecs, err := s.embedder.EmbedBatch(gctx, phrases)
		if err != nil {
			return err
		}
		copy(phraseVecs, vecs)
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Warn("Scorer: embedding failed, degrading to lexical-only: %v", err)
		return
	}
	if len(docVecs) != len(corpus) {
		logger.Warn("Scorer: embedding batch returned %d vectors for %d documents, degrading to lexical-only",
			len(docVecs), len(corpus))
		return
	}

	for p := range phrases {
		qv := phraseVecs[p]
		if len(qv) == 0 {
			logger.Warn("Scorer: no embedding for phrase %q, lexical-only for that phrase", phrases[p])
			continue
		}

		ranking := &rankings[p]
		ranking.Semantic = true

		// Rank only documents that have vectors; the rest keep NoRank.
		var withVec []int
		for i := range corpus {
			if len(docVecs[i]) == 0 {
				continue
			}
			ranking.SemScore[i] = cosineSimilarity(qv, docVecs[i])
			withVec = append(withVec, i)
		}

		sort.SliceStable(withVec, func(a, b int) bool {
			return ranking.SemScore[withVec[a]] > ranking.SemScore[withVec[b]]
		})
		for pos, docIdx := range withVec {
			ranking.SemRank[docIdx] = pos
		}
	}

	logger.Debug("Scorer: semantic scoring complete (%d documents, %d phrases)", len(corpus), len(phrases))
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched or zero-length vectors score zero.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
