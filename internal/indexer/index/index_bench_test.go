package index

import (
	"context"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/corpus"
)

func benchCorpus(n int) []corpus.Document {
	entries := make([]corpus.Entry, n)
	for i := range entries {
		entries[i] = corpus.Entry{
			Filename: fmt.Sprintf("lecture_%04d.txt", i),
			Text:     fmt.Sprintf("lecture %d covers distributed indexing, query processing and paging in operating kernels", i),
		}
	}
	return corpus.New(entries).Documents()
}

// BenchmarkBuild measures full index construction at a few corpus sizes and
// parallelism levels.
func BenchmarkBuild(b *testing.B) {
	for _, size := range []int{100, 1000, 5000} {
		docs := benchCorpus(size)
		for _, par := range []int{1, 4} {
			b.Run(fmt.Sprintf("docs_%d/par_%d", size, par), func(b *testing.B) {
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					if _, err := Build(context.Background(), docs, par); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

// BenchmarkSearchParallel measures concurrent read throughput on a built
// index.
func BenchmarkSearchParallel(b *testing.B) {
	idx, err := Build(context.Background(), benchCorpus(10000), 4)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = idx.Search("kernel")
		}
	})
}
