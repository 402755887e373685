package evidence

import (
	"strings"

	"github.com/Strob0t/taskalign/internal/domain/task"
)

const (
	minKeywordHits   = 2
	minHintHits      = 2
	maxSearchKeyword = 2
)

// DomainHint is a narrow fallback for task keys that rarely appear in
// repository text: when Pattern occurs in the task key, the item matches
// if at least two of Keywords occur in its text.
type DomainHint struct {
	Pattern  string   `yaml:"pattern" json:"pattern"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// Matcher decides whether a piece of repository history refers to a task.
// It is immutable and safe for concurrent use.
type Matcher struct {
	hints []DomainHint
}

// NewMatcher creates a Matcher with the given domain hints (may be nil).
func NewMatcher(hints []DomainHint) *Matcher {
	normalized := make([]DomainHint, 0, len(hints))
	for _, h := range hints {
		p := strings.ToLower(strings.TrimSpace(h.Pattern))
		if p == "" {
			continue
		}
		kws := make([]string, 0, len(h.Keywords))
		for _, kw := range h.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				kws = append(kws, kw)
			}
		}
		normalized = append(normalized, DomainHint{Pattern: p, Keywords: kws})
	}
	return &Matcher{hints: normalized}
}

// Matches reports whether text (a commit message, PR title and body, or
// branch name) refers to t.
func (m *Matcher) Matches(t *task.Task, text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	lower := strings.ToLower(text)

	if matchesKey(t.Key, lower) {
		return true
	}
	if countContained(t.Keywords, lower) >= minKeywordHits {
		return true
	}
	return m.matchesHint(t.Key, lower)
}

// CodeSearchTerms returns the terms used to search code for t: the task key
// followed by up to two keywords.
func (m *Matcher) CodeSearchTerms(t *task.Task) []string {
	terms := make([]string, 0, 1+maxSearchKeyword)
	if t.Key != "" {
		terms = append(terms, t.Key)
	}
	for i := 0; i < len(t.Keywords) && i < maxSearchKeyword; i++ {
		terms = append(terms, t.Keywords[i])
	}
	return terms
}

// matchesKey checks the key verbatim, without its hyphen, and with the
// hyphen replaced by a space. text must already be lowercase.
func matchesKey(key, text string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	if k == "" {
		return false
	}
	if strings.Contains(text, k) {
		return true
	}
	if !strings.Contains(k, "-") {
		return false
	}
	return strings.Contains(text, strings.ReplaceAll(k, "-", "")) ||
		strings.Contains(text, strings.ReplaceAll(k, "-", " "))
}

func (m *Matcher) matchesHint(key, text string) bool {
	k := strings.ToLower(key)
	for _, h := range m.hints {
		if strings.Contains(k, h.Pattern) && countContained(h.Keywords, text) >= minHintHits {
			return true
		}
	}
	return false
}

func countContained(words []string, text string) int {
	n := 0
	for _, w := range words {
		if w != "" && strings.Contains(text, w) {
			n++
		}
	}
	return n
}
