// Package tracker defines the port interface for project trackers
// (Jira and similar boards-and-issues systems).
package tracker

import "context"

// Project is a tracker project.
type Project struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Board is an agile board belonging to a project.
type Board struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Issue is a tracker issue with the fields the alignment engine reads.
type Issue struct {
	Key         string `json:"key"`
	Summary     string `json:"summary"`
	StatusLabel string `json:"status"`
	Assignee    string `json:"assignee,omitempty"`
}

// IssuePage is one page of board issues.
type IssuePage struct {
	Issues  []Issue `json:"issues"`
	HasMore bool    `json:"has_more"`
}

// Tracker is the port interface for project tracking platforms.
type Tracker interface {
	// Name returns the provider identifier (e.g. "jira").
	Name() string

	// ListProjects returns all projects visible to the configured account.
	ListProjects(ctx context.Context) ([]Project, error)

	// ListBoards returns the boards of a project (by ID or key).
	ListBoards(ctx context.Context, projectID string) ([]Board, error)

	// ListBoardIssues returns one page of a board's issues starting at offset.
	ListBoardIssues(ctx context.Context, boardID string, offset, pageSize int) (IssuePage, error)

	// SearchIssues runs a query in the tracker's query language.
	SearchIssues(ctx context.Context, query string, maxResults int) ([]Issue, error)
}
