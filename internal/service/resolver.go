// Package service implements the alignment use-cases on top of ports.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Strob0t/taskalign/internal/domain/alignment"
	"github.com/Strob0t/taskalign/internal/domain/task"
	"github.com/Strob0t/taskalign/internal/port/tracker"
)

const (
	issuePageSize = 50
	// maxBoardPages bounds board pagination when a status filter keeps
	// rejecting issues and maxTasks is never reached.
	maxBoardPages = 100
)

// hintPrefixes are stripped from a project hint before resolution.
var hintPrefixes = []string{"PROJECT", "SPACE"}

// TaskResolver turns a project hint into a tracker project key and pages
// tasks out of the tracker.
type TaskResolver struct {
	tracker tracker.Tracker
	rec     upstreamRecorder
}

// NewTaskResolver creates a TaskResolver backed by the given tracker.
func NewTaskResolver(t tracker.Tracker) *TaskResolver {
	return &TaskResolver{tracker: t}
}

// NormalizeHint uppercases a project hint and strips a leading "PROJECT" or
// "SPACE" word (followed by a separator such as space, colon or hyphen).
func NormalizeHint(hint string) string {
	h := strings.ToUpper(strings.TrimSpace(hint))
	for _, p := range hintPrefixes {
		rest, ok := strings.CutPrefix(h, p)
		if !ok || rest == "" || !strings.ContainsRune(" :-_", rune(rest[0])) {
			continue
		}
		if rest = strings.TrimLeft(rest, " :-_"); rest != "" {
			return rest
		}
	}
	return h
}

// ResolveProject maps a free-text hint to a project key. It prefers an
// exact key match, then an exact name match, then a name containing the
// hint. When nothing matches, or the project list cannot be fetched, the
// normalised hint is used as a literal key and matched is false.
// An empty hint returns ("", false), meaning all projects.
func (r *TaskResolver) ResolveProject(ctx context.Context, hint string) (key string, matched bool) {
	norm := NormalizeHint(hint)
	if norm == "" {
		return "", false
	}

	projects, err := r.tracker.ListProjects(ctx)
	if err != nil {
		degraded(ctx, r.rec, r.tracker.Name(), "list_projects", err, "hint", hint)
		return norm, false
	}

	for i := range projects {
		if strings.EqualFold(projects[i].Key, norm) {
			return projects[i].Key, true
		}
	}
	lower := strings.ToLower(norm)
	for i := range projects {
		if strings.ToLower(projects[i].Name) == lower {
			return projects[i].Key, true
		}
	}
	for i := range projects {
		if strings.Contains(strings.ToLower(projects[i].Name), lower) {
			return projects[i].Key, true
		}
	}

	slog.InfoContext(ctx, "project hint matched no project, using it as key", "hint", hint, "key", norm)
	return norm, false
}

// FetchTasks returns up to maxTasks tasks in tracker order. With a project
// key it walks that project's boards and falls back to a query search when
// the boards yield nothing. With an empty key it walks every project and
// stops as soon as maxTasks is reached. The status filter is applied while
// paging. Upstream errors are logged and treated as empty results.
func (r *TaskResolver) FetchTasks(ctx context.Context, projectKey string, statusFilter []string, maxTasks int) []task.Task {
	if maxTasks <= 0 {
		maxTasks = alignment.DefaultMaxTasks
	}
	acc := newTaskAccumulator(maxTasks, statusFilter)

	if projectKey != "" {
		r.collectProject(ctx, projectKey, acc)
		if len(acc.tasks) == 0 {
			r.searchProject(ctx, projectKey, acc)
		}
		return acc.tasks
	}

	projects, err := r.tracker.ListProjects(ctx)
	if err != nil {
		degraded(ctx, r.rec, r.tracker.Name(), "list_projects", err)
		return acc.tasks
	}
	for i := range projects {
		if acc.full() || ctx.Err() != nil {
			break
		}
		id := projects[i].Key
		if id == "" {
			id = projects[i].ID
		}
		r.collectProject(ctx, id, acc)
	}
	return acc.tasks
}

func (r *TaskResolver) collectProject(ctx context.Context, projectKey string, acc *taskAccumulator) {
	boards, err := r.tracker.ListBoards(ctx, projectKey)
	if err != nil {
		degraded(ctx, r.rec, r.tracker.Name(), "list_boards", err, "project", projectKey)
		return
	}
	for _, b := range boards {
		if acc.full() {
			return
		}
		r.collectBoard(ctx, projectKey, b.ID, acc)
	}
}

func (r *TaskResolver) collectBoard(ctx context.Context, projectKey, boardID string, acc *taskAccumulator) {
	offset := 0
	for page := 0; page < maxBoardPages && !acc.full(); page++ {
		if ctx.Err() != nil {
			return
		}
		p, err := r.tracker.ListBoardIssues(ctx, boardID, offset, issuePageSize)
		if err != nil {
			degraded(ctx, r.rec, r.tracker.Name(), "list_board_issues", err,
				"project", projectKey, "board", boardID, "offset", offset)
			return
		}
		for _, is := range p.Issues {
			if !acc.add(is) {
				return
			}
		}
		if !p.HasMore || len(p.Issues) == 0 {
			return
		}
		offset += len(p.Issues)
	}
}

func (r *TaskResolver) searchProject(ctx context.Context, projectKey string, acc *taskAccumulator) {
	jql := fmt.Sprintf("project = %s ORDER BY updated DESC", quoteQuery(projectKey))
	issues, err := r.tracker.SearchIssues(ctx, jql, acc.max)
	if err != nil {
		degraded(ctx, r.rec, r.tracker.Name(), "search_issues", err, "project", projectKey)
		return
	}
	for _, is := range issues {
		if !acc.add(is) {
			return
		}
	}
}

// quoteQuery wraps a value in double quotes for the tracker query language.
func quoteQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// taskAccumulator gathers filtered, de-duplicated tasks up to max.
type taskAccumulator struct {
	max    int
	filter []string
	seen   map[string]struct{}
	tasks  []task.Task
}

func newTaskAccumulator(maxTasks int, filter []string) *taskAccumulator {
	return &taskAccumulator{
		max:    maxTasks,
		filter: filter,
		seen:   make(map[string]struct{}),
		tasks:  make([]task.Task, 0, min(maxTasks, issuePageSize)),
	}
}

func (a *taskAccumulator) full() bool { return len(a.tasks) >= a.max }

// add appends the issue if it passes the filter and is new. It returns
// false once the accumulator is full.
func (a *taskAccumulator) add(is tracker.Issue) bool {
	if a.full() {
		return false
	}
	if is.Key == "" || !task.MatchesStatusFilter(is.StatusLabel, a.filter) {
		return true
	}
	if _, dup := a.seen[is.Key]; dup {
		return true
	}
	a.seen[is.Key] = struct{}{}
	a.tasks = append(a.tasks, task.New(is.Key, is.Summary, is.StatusLabel, is.Assignee))
	return !a.full()
}
