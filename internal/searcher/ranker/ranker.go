// Package ranker scores documents against a query vector by cosine
// similarity.
package ranker

import (
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/indexer/vector"
)

type ScoredDoc struct {
	DocID int     `json:"doc_id"`
	Score float64 `json:"score"`
}

// Less orders by descending score, then ascending document id.
func Less(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.DocID < b.DocID
}

// Rank returns every document with a positive cosine score against q, in no
// particular order; merger.TopK selects and orders the best of them. Both q and the document vectors must be L2-normalized, so the
// dot product is the cosine. Only documents sharing a term with q are
// visited; all others would score 0 and be dropped anyway.
func Rank(idx *index.Index, vectors []vector.Vector, q vector.Vector) []ScoredDoc {
	if len(q) == 0 {
		return nil
	}
	candidates := make(map[int]struct{})
	for term := range q {
		for _, p := range idx.Search(term) {
			candidates[p.DocID] = struct{}{}
		}
	}

	result := make([]ScoredDoc, 0, len(candidates))
	for docID := range candidates {
		if docID < 0 || docID >= len(vectors) {
			continue
		}
		score := vector.Dot(q, vectors[docID])
		if score <= 0 {
			continue
		}
		result = append(result, ScoredDoc{DocID: docID, Score: score})
	}
	return result
}
