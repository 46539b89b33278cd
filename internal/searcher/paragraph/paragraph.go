// Package paragraph picks the passage of a document that best matches a
// query.
package paragraph

import (
	"regexp"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/indexer/tokenizer"
)

var blankLine = regexp.MustCompile(`\r?\n[ \t\r]*\r?\n`)

// Split breaks text on blank lines and returns the trimmed, non-empty
// paragraphs in order.
func Split(text string) []string {
	parts := blankLine.Split(text, -1)
	paragraphs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// SelectBest returns the paragraph with the highest sum of tf*idf over the
// distinct query terms. Earlier paragraphs win ties. When no query term
// scores anywhere the first paragraph is returned, and a text without
// paragraphs yields "".
func SelectBest(text string, queryTerms []string, idf func(term string) float64) string {
	paragraphs := Split(text)
	if len(paragraphs) == 0 {
		return ""
	}

	weights := make(map[string]float64, len(queryTerms))
	for _, term := range queryTerms {
		if _, ok := weights[term]; !ok {
			weights[term] = idf(term)
		}
	}

	best, bestScore := 0, 0.0
	for i, p := range paragraphs {
		var score float64
		for _, term := range tokenizer.Terms(p) {
			score += weights[term]
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return paragraphs[best]
}
