package executor

import (
	"context"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/indexer"
)

var benchVocabulary = []string{
	"kernel", "paging", "scheduler", "thread", "mutex", "semaphore", "deadlock",
	"filesystem", "inode", "journal", "cache", "virtual", "memory", "process",
	"interrupt", "syscall", "socket", "network", "packet", "router",
}

func benchEngine(b *testing.B, numDocs int) *indexer.Engine {
	b.Helper()
	entries := make([]corpus.Entry, numDocs)
	for i := range entries {
		text := ""
		for j := 0; j < 40; j++ {
			text += benchVocabulary[(i*7+j*3)%len(benchVocabulary)] + " "
			if j%10 == 9 {
				text += "\n\n"
			}
		}
		entries[i] = corpus.Entry{Filename: fmt.Sprintf("doc_%04d.txt", i), Text: text}
	}
	e := indexer.NewEngine(corpus.StaticLoader(entries), indexer.Options{Parallelism: 4})
	if err := e.Init(context.Background()); err != nil {
		b.Fatal(err)
	}
	return e
}

func BenchmarkSearch(b *testing.B) {
	for _, numDocs := range []int{100, 1000} {
		b.Run(fmt.Sprintf("docs_%d", numDocs), func(b *testing.B) {
			ex := New(benchEngine(b, numDocs), Options{})
			ctx := context.Background()
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := ex.Search(ctx, "virtual memory paging", 10); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkSearchParallel(b *testing.B) {
	ex := New(benchEngine(b, 1000), Options{})
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := ex.Search(ctx, "deadlock mutex semaphore", 10); err != nil {
				b.Error(err)
				return
			}
		}
	})
}
