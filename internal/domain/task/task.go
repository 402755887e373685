// Package task defines the tracker Task entity as seen by the alignment engine.
package task

import "strings"

// StatusCategory is the coarse classification of a tracker status label.
type StatusCategory string

const (
	CategoryDone       StatusCategory = "done"
	CategoryInProgress StatusCategory = "in_progress"
	CategoryTodo       StatusCategory = "todo"
	CategoryUnknown    StatusCategory = "unknown"
)

// Task is a tracker issue normalised for alignment checks.
// Values are built with New and treated as read-only afterwards.
type Task struct {
	Key            string         `json:"key"`
	StatusLabel    string         `json:"status"`
	StatusCategory StatusCategory `json:"status_category"`
	Summary        string         `json:"summary"`
	Assignee       string         `json:"assignee,omitempty"`
	Keywords       []string       `json:"keywords"`
}

// New builds a Task, deriving its status category and keywords.
func New(key, summary, statusLabel, assignee string) Task {
	return Task{
		Key:            key,
		StatusLabel:    statusLabel,
		StatusCategory: Categorize(statusLabel),
		Summary:        summary,
		Assignee:       assignee,
		Keywords:       ExtractKeywords(summary),
	}
}

// categoryRules is checked in order; the first rule with a matching
// substring decides the category.
var categoryRules = []struct {
	category StatusCategory
	needles  []string
}{
	{CategoryDone, []string{"done", "closed", "resolved"}},
	{CategoryInProgress, []string{"progress", "selected for development"}},
	{CategoryTodo, []string{"to do", "open", "backlog"}},
}

// Categorize maps a tracker status label to a StatusCategory.
func Categorize(label string) StatusCategory {
	l := strings.ToLower(label)
	for _, rule := range categoryRules {
		for _, n := range rule.needles {
			if strings.Contains(l, n) {
				return rule.category
			}
		}
	}
	return CategoryUnknown
}

// MatchesStatusFilter reports whether the status label contains any of the
// filter values (case-insensitive). A filter with no non-blank values
// matches everything.
func MatchesStatusFilter(label string, filter []string) bool {
	l := strings.ToLower(label)
	active := false
	for _, f := range filter {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		active = true
		if strings.Contains(l, f) {
			return true
		}
	}
	return !active
}
