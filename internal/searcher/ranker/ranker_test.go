package ranker

import (
	"context"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/indexer/vector"
)

func build(t *testing.T, texts ...string) (*index.Index, []vector.Vector) {
	t.Helper()
	entries := make([]corpus.Entry, len(texts))
	for i, text := range texts {
		entries[i] = corpus.Entry{Filename: "f.txt", Text: text}
	}
	idx, err := index.Build(context.Background(), corpus.New(entries).Documents(), 1)
	if err != nil {
		t.Fatal(err)
	}
	return idx, vector.Build(idx)
}

func TestRankPositiveOnly(t *testing.T) {
	idx, vectors := build(t, "the cat sat", "the dog ran", "cat and dog play", "birds fly south")
	q := vector.Query(idx, tokenizer.Terms("cat dog"))
	got := Rank(idx, vectors, q)
	if len(got) != 3 {
		t.Fatalf("got %d results, want 3: %v", len(got), got)
	}
	for _, d := range got {
		if d.Score <= 0 {
			t.Errorf("doc %d has non-positive score %v", d.DocID, d.Score)
		}
		if d.DocID == 3 {
			t.Error("document without query terms was ranked")
		}
	}
}

func TestRankEmptyQuery(t *testing.T) {
	idx, vectors := build(t, "the cat sat")
	if got := Rank(idx, vectors, vector.Vector{}); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestLess(t *testing.T) {
	tests := []struct {
		a, b ScoredDoc
		want bool
	}{
		{ScoredDoc{DocID: 5, Score: 0.9}, ScoredDoc{DocID: 1, Score: 0.5}, true},
		{ScoredDoc{DocID: 1, Score: 0.5}, ScoredDoc{DocID: 5, Score: 0.9}, false},
		{ScoredDoc{DocID: 1, Score: 0.5}, ScoredDoc{DocID: 2, Score: 0.5}, true},
		{ScoredDoc{DocID: 2, Score: 0.5}, ScoredDoc{DocID: 1, Score: 0.5}, false},
	}
	for _, tt := range tests {
		if got := Less(tt.a, tt.b); got != tt.want {
			t.Errorf("Less(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
