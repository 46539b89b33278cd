// Package tokenizer turns raw text into index terms. It lower-cases input,
// splits it into word-like spans, strips everything outside [a-z0-9], removes
// stop-words, lemmatizes and finally applies the English Snowball stemmer.
// The pipeline is pure: the same text always yields the same terms.
package tokenizer

import (
	"regexp"
	"strings"

	"github.com/kljensen/snowball/english"
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’\-_.][\p{L}\p{N}]+)*`)

// Token represents a single normalised term and its position among the
// surviving terms of the original text.
type Token struct {
	Term     string
	Position int
}

// Tokenize breaks text into stemmed, lowercased Tokens with stop-words
// removed. Text with nothing indexable yields an empty, non-nil slice.
func Tokenize(text string) []Token {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	tokens := make([]Token, 0, len(words)/2+1)
	pos := 0
	for _, word := range words {
		term := Normalize(word)
		if term == "" {
			continue
		}
		tokens = append(tokens, Token{
			Term:     term,
			Position: pos,
		})
		pos++
	}
	return tokens
}

// Terms is Tokenize without positions.
func Terms(text string) []string {
	tokens := Tokenize(text)
	terms := make([]string, len(tokens))
	for i, t := range tokens {
		terms[i] = t.Term
	}
	return terms
}

// Normalize reduces a single lower-cased word to its index term, or returns
// "" when the word is not indexable.
func Normalize(word string) string {
	word = stripNonAlnum(word)
	if word == "" {
		return ""
	}
	if IsStopWord(word) {
		return ""
	}
	return english.Stem(lemmatize(word), true)
}

func stripNonAlnum(word string) string {
	var b strings.Builder
	b.Grow(len(word))
	for i := 0; i < len(word); i++ {
		c := word[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
		}
	}
	return b.String()
}
