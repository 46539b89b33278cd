// Package vector turns an inverted index into L2-normalized TF-IDF vectors
// and scores queries against them.
package vector

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/indexer/index"
)

// Vector is a sparse term -> weight map. A vector with no entries scores 0
// against everything.
type Vector map[string]float64

// IDF is ln(N/df). Unknown terms and an empty corpus weigh 0.
func IDF(idx *index.Index, term string) float64 {
	n := idx.NumDocs()
	df := idx.DocFreq(term)
	if n == 0 || df == 0 {
		return 0
	}
	return math.Log(float64(n) / float64(df))
}

// Build computes one vector per document, indexed by document id. Terms are
// visited in sorted order so repeated builds produce identical floats.
func Build(idx *index.Index) []Vector {
	n := idx.NumDocs()
	idf := make(map[string]float64, idx.NumTerms())
	for term := range idx.Postings() {
		idf[term] = IDF(idx, term)
	}

	vectors := make([]Vector, n)
	for docID := 0; docID < n; docID++ {
		tf := idx.TermFreqs(docID)
		v := make(Vector, len(tf))
		for _, term := range sortedTerms(tf) {
			if w := float64(tf[term]) * idf[term]; w != 0 {
				v[term] = w
			}
		}
		vectors[docID] = normalize(v)
	}
	return vectors
}

// Query weights normalized query terms by corpus IDF, counting repeats, and
// L2-normalizes the result. Terms absent from the corpus contribute nothing.
func Query(idx *index.Index, terms []string) Vector {
	counts := make(map[string]int, len(terms))
	for _, term := range terms {
		counts[term]++
	}
	v := make(Vector, len(counts))
	for _, term := range sortedTerms(counts) {
		if w := float64(counts[term]) * IDF(idx, term); w != 0 {
			v[term] = w
		}
	}
	return normalize(v)
}

// Dot is the cosine similarity of two normalized vectors. It iterates the
// smaller vector.
func Dot(a, b Vector) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	var sum float64
	for _, term := range sortedTerms(a) {
		if w, ok := b[term]; ok {
			sum += a[term] * w
		}
	}
	return sum
}

// Norm is the Euclidean length of v.
func Norm(v Vector) float64 {
	var sum float64
	for _, term := range sortedTerms(v) {
		sum += v[term] * v[term]
	}
	return math.Sqrt(sum)
}

func normalize(v Vector) Vector {
	norm := Norm(v)
	if norm == 0 {
		return Vector{}
	}
	for term, w := range v {
		v[term] = w / norm
	}
	return v
}

func sortedTerms[V any](m map[string]V) []string {
	terms := make([]string, 0, len(m))
	for term := range m {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}
