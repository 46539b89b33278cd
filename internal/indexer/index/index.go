// Package index builds the inverted index: term -> postings of
// (document id, term frequency). An Index is immutable once built and safe
// for concurrent readers.
package index

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/indexer/tokenizer"
)

// Index is the inverted index plus the per-document statistics gathered in
// the same pass.
type Index struct {
	postings   map[string]PostingList
	docLengths []int
	termFreqs  []TermFreqs
}

// New wraps already-built postings, e.g. ones read back from disk. Per-document
// term frequencies are reconstructed once here for callers that need them.
func New(postings map[string]PostingList, numDocs int) *Index {
	idx := &Index{
		postings:   postings,
		docLengths: make([]int, numDocs),
		termFreqs:  make([]TermFreqs, numDocs),
	}
	for i := range idx.termFreqs {
		idx.termFreqs[i] = make(TermFreqs)
	}
	for term, list := range postings {
		sort.Slice(list, func(i, j int) bool {
			return list[i].DocID < list[j].DocID
		})
		for _, p := range list {
			if p.DocID < 0 || p.DocID >= numDocs {
				continue
			}
			idx.termFreqs[p.DocID][term] = p.Frequency
			idx.docLengths[p.DocID] += p.Frequency
		}
	}
	return idx
}

// Build tokenizes every document and constructs a fresh index. Documents are
// tokenized concurrently (at most parallelism at a time) but merged in id
// order, so the result is identical to a sequential build.
func Build(ctx context.Context, docs []corpus.Document, parallelism int) (*Index, error) {
	if parallelism < 1 {
		parallelism = 1
	}
	termFreqs := make([]TermFreqs, len(docs))
	docLengths := make([]int, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tokens := tokenizer.Tokenize(doc.Text)
			tf := make(TermFreqs, len(tokens)/2+1)
			for _, tok := range tokens {
				tf[tok.Term]++
			}
			termFreqs[i] = tf
			docLengths[i] = len(tokens)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("tokenizing corpus: %w", err)
	}

	postings := make(map[string]PostingList)
	for docID, tf := range termFreqs {
		for term, freq := range tf {
			postings[term] = append(postings[term], Posting{DocID: docID, Frequency: freq})
		}
	}
	return &Index{
		postings:   postings,
		docLengths: docLengths,
		termFreqs:  termFreqs,
	}, nil
}

// Search returns the postings for an already-normalized term.
func (x *Index) Search(term string) PostingList {
	return x.postings[term]
}

// DocFreq is the number of documents containing term.
func (x *Index) DocFreq(term string) int {
	return len(x.postings[term])
}

// NumDocs is N, the number of documents the index was built over.
func (x *Index) NumDocs() int {
	return len(x.termFreqs)
}

// NumTerms is the vocabulary size.
func (x *Index) NumTerms() int {
	return len(x.postings)
}

// DocLength is the number of surviving tokens in a document.
func (x *Index) DocLength(docID int) int {
	if docID < 0 || docID >= len(x.docLengths) {
		return 0
	}
	return x.docLengths[docID]
}

// TermFreqs returns the term frequencies of one document. Callers must not
// modify the returned map.
func (x *Index) TermFreqs(docID int) TermFreqs {
	if docID < 0 || docID >= len(x.termFreqs) {
		return nil
	}
	return x.termFreqs[docID]
}

// Postings exposes the raw term -> postings map. Callers must not modify it.
func (x *Index) Postings() map[string]PostingList {
	return x.postings
}

// Entries walks the index in ascending term order.
func (x *Index) Entries() []TermEntry {
	entries := make([]TermEntry, 0, len(x.postings))
	for term, list := range x.postings {
		entries = append(entries, TermEntry{Term: term, Postings: list})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}
