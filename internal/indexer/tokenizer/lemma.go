package tokenizer

import "strings"

// irregular maps inflected forms that suffix rules cannot reach.
var irregular = map[string]string{
	"children":  "child",
	"men":       "man",
	"women":     "woman",
	"people":    "person",
	"mice":      "mouse",
	"geese":     "goose",
	"feet":      "foot",
	"teeth":     "tooth",
	"indices":   "index",
	"matrices":  "matrix",
	"vertices":  "vertex",
	"analyses":  "analysis",
	"theses":    "thesis",
	"criteria":  "criterion",
	"phenomena": "phenomenon",
}

// uninflected words end like plurals but are their own lemma, so the suffix
// rules must not touch them.
var uninflected = map[string]bool{
	"series":   true,
	"species":  true,
	"caries":   true,
	"facies":   true,
	"news":     true,
	"means":    true,
	"specimen": true,
	"abdomen":  true,
	"acumen":   true,
	"regimen":  true,
	"stamen":   true,
	"lumen":    true,
	"omen":     true,
	"semen":    true,
}

// nounRules follow WordNet's noun detachment order; the first suffix that
// matches wins.
var nounRules = []struct {
	suffix      string
	replacement string
}{
	{"ies", "y"},
	{"ches", "ch"},
	{"shes", "sh"},
	{"sses", "ss"},
	{"xes", "x"},
	{"zes", "z"},
	{"men", "man"},
	{"s", ""},
}

// lemmatize maps plural nouns and a few irregular forms to their dictionary
// form. Words that already look singular are returned unchanged.
func lemmatize(word string) string {
	if lemma, ok := irregular[word]; ok {
		return lemma
	}
	if len(word) <= 3 || uninflected[word] {
		return word
	}
	for _, suffix := range []string{"ss", "us", "is", "ous"} {
		if strings.HasSuffix(word, suffix) {
			return word
		}
	}
	for _, rule := range nounRules {
		if strings.HasSuffix(word, rule.suffix) {
			stem := word[:len(word)-len(rule.suffix)] + rule.replacement
			if len(stem) >= 2 {
				return stem
			}
			return word
		}
	}
	return word
}
