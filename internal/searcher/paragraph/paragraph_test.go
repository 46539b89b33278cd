package paragraph

import (
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/indexer/tokenizer"
)

func unitIDF(string) float64 { return 1 }

func TestSplit(t *testing.T) {
	text := "  first para\nstill first \n\n\nsecond\n   \nthird\r\n\r\nfourth\n\n"
	want := []string{"first para\nstill first", "second", "third", "fourth"}
	if got := Split(text); !reflect.DeepEqual(got, want) {
		t.Errorf("Split = %q, want %q", got, want)
	}
	if got := Split(" \n\n \n"); len(got) != 0 {
		t.Errorf("Split(blank) = %q", got)
	}
}

func TestSelectBest(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		query string
		want  string
	}{
		{
			name:  "second paragraph matches",
			text:  "Introduction to the course.\n\n  Deadlocks occur when processes wait on each other.  ",
			query: "deadlock",
			want:  "Deadlocks occur when processes wait on each other.",
		},
		{
			name:  "no match falls back to first",
			text:  "Alpha paragraph.\n\nBeta paragraph.",
			query: "gamma",
			want:  "Alpha paragraph.",
		},
		{
			name:  "tie goes to first",
			text:  "paging here\n\npaging there",
			query: "paging",
			want:  "paging here",
		},
		{
			name:  "frequency wins",
			text:  "paging once\n\npaging paging twice",
			query: "paging",
			want:  "paging paging twice",
		},
		{
			name:  "leading blank lines skipped",
			text:  "\n\n\nOnly paragraph",
			query: "missing",
			want:  "Only paragraph",
		},
		{
			name:  "empty document",
			text:  "   \n\n  ",
			query: "anything",
			want:  "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectBest(tt.text, tokenizer.Terms(tt.query), unitIDF)
			if got != tt.want {
				t.Errorf("SelectBest = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSelectBestUsesIDF(t *testing.T) {
	text := "common common common\n\nrare"
	rare := tokenizer.Terms("rare")[0]
	idf := func(term string) float64 {
		if term == rare {
			return 5
		}
		return 1
	}
	got := SelectBest(text, tokenizer.Terms("common rare"), idf)
	if got != "rare" {
		t.Errorf("SelectBest = %q, want rare", got)
	}
}

func TestSelectBestDuplicateQueryTerms(t *testing.T) {
	// Query terms are a set: repeating one must not change weights.
	text := "paging paging\n\nthreads threads threads"
	got := SelectBest(text, tokenizer.Terms("paging paging paging threads"), unitIDF)
	if got != "threads threads threads" {
		t.Errorf("SelectBest = %q", got)
	}
}
