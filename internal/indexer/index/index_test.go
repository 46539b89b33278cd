package index

import (
	"context"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/corpus"
)

func testDocs(texts ...string) []corpus.Document {
	entries := make([]corpus.Entry, len(texts))
	for i, text := range texts {
		entries[i] = corpus.Entry{Filename: "doc.txt", Text: text}
	}
	return corpus.New(entries).Documents()
}

func TestBuildPostings(t *testing.T) {
	docs := testDocs("the cat sat", "the dog ran", "cat and dog play", "cat cat cat")
	idx, err := Build(context.Background(), docs, 2)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if idx.NumDocs() != 4 {
		t.Fatalf("NumDocs = %d", idx.NumDocs())
	}
	want := PostingList{{DocID: 0, Frequency: 1}, {DocID: 2, Frequency: 1}, {DocID: 3, Frequency: 3}}
	if got := idx.Search("cat"); !reflect.DeepEqual(got, want) {
		t.Errorf("Search(cat) = %v, want %v", got, want)
	}
	if idx.DocFreq("dog") != 2 {
		t.Errorf("DocFreq(dog) = %d", idx.DocFreq("dog"))
	}
	if idx.Search("the") != nil {
		t.Error("stopwords must not be indexed")
	}
	if idx.DocLength(3) != 3 || idx.DocLength(0) != 2 {
		t.Errorf("doc lengths = %d, %d", idx.DocLength(3), idx.DocLength(0))
	}
	if tf := idx.TermFreqs(3); tf["cat"] != 3 {
		t.Errorf("TermFreqs(3) = %v", tf)
	}
}

func TestBuildInvariants(t *testing.T) {
	docs := testDocs("alpha beta beta", "beta gamma", "delta", "")
	idx, err := Build(context.Background(), docs, 4)
	if err != nil {
		t.Fatal(err)
	}
	for term, list := range idx.Postings() {
		if len(list) == 0 {
			t.Errorf("term %q has empty postings", term)
		}
		seen := map[int]bool{}
		for i, p := range list {
			if p.Frequency < 1 {
				t.Errorf("term %q doc %d has frequency %d", term, p.DocID, p.Frequency)
			}
			if seen[p.DocID] {
				t.Errorf("term %q has duplicate posting for doc %d", term, p.DocID)
			}
			seen[p.DocID] = true
			if i > 0 && list[i-1].DocID >= p.DocID {
				t.Errorf("term %q postings not ordered", term)
			}
		}
	}
	if idx.DocLength(3) != 0 || len(idx.TermFreqs(3)) != 0 {
		t.Error("empty document should have no terms")
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	docs := testDocs("kernel scheduler preempts threads", "threads share memory", "memory paging kernel")
	a, err := Build(context.Background(), docs, 1)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Build(context.Background(), docs, 8)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a.Entries(), b.Entries()) {
		t.Error("sequential and parallel builds differ")
	}
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Build(ctx, testDocs("one", "two"), 1); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestNewRebuildsDocStats(t *testing.T) {
	docs := testDocs("cat dog", "dog dog bird")
	built, err := Build(context.Background(), docs, 1)
	if err != nil {
		t.Fatal(err)
	}
	copied := make(map[string]PostingList)
	for term, list := range built.Postings() {
		copied[term] = append(PostingList(nil), list...)
	}
	loaded := New(copied, built.NumDocs())
	for id := 0; id < built.NumDocs(); id++ {
		if !reflect.DeepEqual(loaded.TermFreqs(id), built.TermFreqs(id)) {
			t.Errorf("doc %d term freqs differ", id)
		}
		if loaded.DocLength(id) != built.DocLength(id) {
			t.Errorf("doc %d length differs", id)
		}
	}
}

func TestEntriesSorted(t *testing.T) {
	idx, _ := Build(context.Background(), testDocs("zebra apple mango"), 1)
	entries := idx.Entries()
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Term >= entries[i].Term {
			t.Fatalf("entries not sorted: %q >= %q", entries[i-1].Term, entries[i].Term)
		}
	}
}
