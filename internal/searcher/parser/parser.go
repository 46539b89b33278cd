// Package parser turns a raw query string into the normalized terms the
// ranker and paragraph selector work with.
package parser

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/indexer/tokenizer"
)

// MaxQueryLength bounds the raw query in bytes.
const MaxQueryLength = 1024

type QueryPlan struct {
	RawQuery string
	// Terms keeps repeats, since query term frequency feeds the query vector.
	Terms []string
}

func Parse(query string) *QueryPlan {
	query = strings.TrimSpace(query)
	return &QueryPlan{
		RawQuery: query,
		Terms:    tokenizer.Terms(query),
	}
}

// Empty reports whether normalization left nothing to search for.
func (p *QueryPlan) Empty() bool {
	return len(p.Terms) == 0
}

// Distinct returns the terms without repeats, in first-seen order.
func (p *QueryPlan) Distinct() []string {
	seen := make(map[string]struct{}, len(p.Terms))
	out := make([]string, 0, len(p.Terms))
	for _, t := range p.Terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// CacheKey is a canonical form of the raw query: lower-cased with runs of
// whitespace collapsed.
func (p *QueryPlan) CacheKey() string {
	return strings.Join(strings.Fields(strings.ToLower(p.RawQuery)), " ")
}
