// Package evidence defines repository artifacts linked to a task and the
// matcher that decides whether an artifact is about a task.
package evidence

import "time"

// DisplayLimit caps each evidence list in a report.
const DisplayLimit = 5

// CommitRef is a commit linked to a task.
type CommitRef struct {
	SHA     string    `json:"sha"`
	Message string    `json:"message"`
	Date    time.Time `json:"date"`
	URL     string    `json:"url"`
}

// PRRef is a pull request linked to a task.
type PRRef struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	State string `json:"state"`
	URL   string `json:"url"`
}

// FileRef is a code search hit linked to a task.
type FileRef struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// Counts holds the number of matches found before the display cap.
type Counts struct {
	Commits      int `json:"commits"`
	PullRequests int `json:"pull_requests"`
	Branches     int `json:"branches"`
	CodeMatches  int `json:"code_matches"`
}

// Total returns the sum of all match counts.
func (c Counts) Total() int {
	return c.Commits + c.PullRequests + c.Branches + c.CodeMatches
}

// Evidence is everything the collector linked to one task.
// The slices are capped at DisplayLimit; Counts keeps the true totals.
type Evidence struct {
	Commits      []CommitRef `json:"commits"`
	PullRequests []PRRef     `json:"pull_requests"`
	Branches     []string    `json:"branches"`
	CodeMatches  []FileRef   `json:"code_matches"`
	Counts       Counts      `json:"counts"`

	// uncapped matches, kept for classification only
	allCommits []CommitRef
	allPRs     []PRRef
}

// MatchedCommits returns every matched commit, not just the displayed ones.
func (e *Evidence) MatchedCommits() []CommitRef {
	if e.allCommits != nil {
		return e.allCommits
	}
	return e.Commits
}

// MatchedPullRequests returns every matched pull request.
func (e *Evidence) MatchedPullRequests() []PRRef {
	if e.allPRs != nil {
		return e.allPRs
	}
	return e.PullRequests
}

// HasEvidence reports whether any artifact matched, regardless of the cap.
func (e *Evidence) HasEvidence() bool {
	return e.Counts.Total() > 0
}

// New assembles Evidence from the full match lists, recording the true
// counts and truncating each displayed list to DisplayLimit.
func New(commits []CommitRef, prs []PRRef, branches []string, code []FileRef) Evidence {
	return Evidence{
		Commits:      capped(commits),
		PullRequests: capped(prs),
		Branches:     capped(branches),
		CodeMatches:  capped(code),
		Counts: Counts{
			Commits:      len(commits),
			PullRequests: len(prs),
			Branches:     len(branches),
			CodeMatches:  len(code),
		},
		allCommits: commits,
		allPRs:     prs,
	}
}

func capped[T any](s []T) []T {
	n := min(len(s), DisplayLimit)
	out := make([]T, n)
	copy(out, s[:n])
	return out
}
