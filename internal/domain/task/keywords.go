package task

import (
	"strings"
	"unicode"
)

const (
	minKeywordLen = 3
	maxKeywords   = 8
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {},
	"and": {}, "or": {}, "but": {}, "nor": {}, "yet": {}, "so": {},
	"for": {}, "with": {}, "that": {}, "this": {}, "these": {}, "those": {},
	"can": {}, "you": {}, "ask": {}, "way": {}, "called": {},
	"on": {}, "in": {}, "to": {}, "of": {}, "at": {}, "by": {},
	"from": {}, "into": {}, "are": {}, "was": {}, "were": {}, "has": {},
	"have": {}, "not": {}, "all": {}, "any": {}, "our": {}, "its": {},
	"should": {}, "will": {}, "when": {}, "then": {}, "than": {},
}

func isSeparator(r rune) bool {
	if unicode.IsSpace(r) {
		return true
	}
	switch r {
	case ',', '.', '\'', '"', '(', ')':
		return true
	}
	return false
}

// ExtractKeywords derives up to eight salient, lowercase terms from a task
// summary, in order of first appearance.
func ExtractKeywords(summary string) []string {
	tokens := strings.FieldsFunc(strings.ToLower(summary), isSeparator)

	keywords := make([]string, 0, maxKeywords)
	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if len([]rune(tok)) < minKeywordLen {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		keywords = append(keywords, tok)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}
