package rerank

import (
	"strings"
	"unicode"
)

// tokenizer splits text into lowercase terms, dropping stopwords and
// folding plural forms so "running shoes" matches "running shoe".
type tokenizer struct {
	stopwords map[string]struct{}
}

func newTokenizer() *tokenizer {
	return &tokenizer{stopwords: defaultStopwords()}
}

func (t *tokenizer) terms(text string) map[string]int {
	terms := make(map[string]int)
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		word := strings.ToLower(current.String())
		current.Reset()
		if len(word) < 2 {
			return
		}
		if _, isStop := t.stopwords[word]; isStop {
			return
		}
		terms[singular(word)]++
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return terms
}

// singular strips common English plural suffixes. Deliberately light:
// product vocabulary rarely needs more than plural folding, and a full
// stemmer would conflate distinct product terms.
func singular(word string) string {
	switch {
	case strings.HasSuffix(word, "ies") && len(word) > 4:
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(word, "sses"):
		return word[:len(word)-2]
	case strings.HasSuffix(word, "xes"), strings.HasSuffix(word, "ches"), strings.HasSuffix(word, "shes"):
		return word[:len(word)-2]
	case strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss") && len(word) > 3:
		return word[:len(word)-1]
	}
	return word
}

func defaultStopwords() map[string]struct{} {
	stops := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for",
		"from", "has", "he", "in", "is", "it", "its", "of", "on",
		"that", "the", "to", "was", "were", "will", "with", "this",
		"have", "had", "but", "not", "you", "your", "we", "our",
		"they", "their", "if", "or", "so", "no", "can", "do",
		"does", "did", "would", "could", "should", "which", "what",
		"when", "where", "how", "any", "some", "such", "than",
	}
	m := make(map[string]struct{}, len(stops))
	for _, s := range stops {
		m[s] = struct{}{}
	}
	return m
}
