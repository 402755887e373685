// Package codehost defines the port interface for code hosting platforms
// (GitHub, GitLab, Gitea, ...), limited to the repository history the
// alignment engine reads.
package codehost

import (
	"context"
	"errors"
	"time"
)

// ErrNotSupported is returned when a host does not support the requested operation.
var ErrNotSupported = errors.New("operation not supported by this code host")

// Pull request states accepted by ListPullRequests.
const (
	StateAll    = "all"
	StateOpen   = "open"
	StateClosed = "closed"
)

// Commit is a repository commit.
type Commit struct {
	SHA     string    `json:"sha"`
	Message string    `json:"message"`
	Date    time.Time `json:"date"`
	URL     string    `json:"url"`
}

// PullRequest is a pull/merge request. State is normalised to
// "open", "closed" or "merged".
type PullRequest struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
	State string `json:"state"`
	URL   string `json:"url"`
}

// Branch is a repository branch.
type Branch struct {
	Name string `json:"name"`
}

// CodeMatch is a code search hit.
type CodeMatch struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// Capabilities declares which operations a code host supports.
type Capabilities struct {
	Commits      bool `json:"commits"`
	PullRequests bool `json:"pull_requests"`
	Branches     bool `json:"branches"`
	CodeSearch   bool `json:"code_search"`
}

// Host is the port interface for reading repository history.
// repo is an "owner/name" (or "group/sub/name") identifier.
type Host interface {
	// Name returns the unique identifier for this host (e.g. "github").
	Name() string

	// Capabilities returns what this host supports.
	Capabilities() Capabilities

	// ListCommits returns up to maxCount most recent commits, newest first.
	ListCommits(ctx context.Context, repo string, maxCount int) ([]Commit, error)

	// ListPullRequests returns up to maxCount pull requests in the given state.
	ListPullRequests(ctx context.Context, repo, state string, maxCount int) ([]PullRequest, error)

	// ListBranches returns the repository's branches.
	ListBranches(ctx context.Context, repo string) ([]Branch, error)

	// SearchCode returns up to maxCount files whose content matches term.
	// Returns ErrNotSupported if the host has no code search.
	SearchCode(ctx context.Context, repo, term string, maxCount int) ([]CodeMatch, error)
}
