package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Strob0t/taskalign/internal/port/tracker"
)

func TestNormalizeHint(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"  bknd ", "BKND"},
		{"Project BKND", "BKND"},
		{"project:bknd", "BKND"},
		{"SPACE-OPS", "OPS"},
		{"Projector", "PROJECTOR"},
		{"project", "PROJECT"},
		{"Backend Team", "BACKEND TEAM"},
	}
	for _, tt := range tests {
		if got := NormalizeHint(tt.in); got != tt.want {
			t.Errorf("NormalizeHint(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveProject(t *testing.T) {
	tr := &fakeTracker{projects: []tracker.Project{
		{ID: "1", Key: "FRNT", Name: "Frontend"},
		{ID: "2", Key: "BKND", Name: "Core Backend Team"},
		{ID: "3", Key: "OPS", Name: "Backend"},
	}}
	r := NewTaskResolver(tr)

	tests := []struct {
		hint        string
		wantKey     string
		wantMatched bool
	}{
		{"", "", false},
		{"frnt", "FRNT", true},
		{"Project OPS", "OPS", true},
		{"backend", "OPS", true},       // exact name beats substring
		{"Backend Team", "BKND", true}, // name substring
		{"ghost", "GHOST", false},      // literal fallback
	}
	for _, tt := range tests {
		t.Run(tt.hint, func(t *testing.T) {
			key, matched := r.ResolveProject(context.Background(), tt.hint)
			if key != tt.wantKey || matched != tt.wantMatched {
				t.Fatalf("ResolveProject(%q) = (%q, %v), want (%q, %v)", tt.hint, key, matched, tt.wantKey, tt.wantMatched)
			}
		})
	}
}

func TestResolveProject_ListFailureFallsBack(t *testing.T) {
	r := NewTaskResolver(&fakeTracker{listProjectsErr: errors.New("502")})
	key, matched := r.ResolveProject(context.Background(), "Backend Team")
	if key != "BACKEND TEAM" || matched {
		t.Fatalf("expected literal fallback, got (%q, %v)", key, matched)
	}
}

func manyIssues(prefix string, n int, status string) []tracker.Issue {
	out := make([]tracker.Issue, n)
	for i := range out {
		out[i] = issue(fmt.Sprintf("%s-%d", prefix, i+1), "summary", status)
	}
	return out
}

func TestFetchTasks_PaginatesUntilMax(t *testing.T) {
	tr := &fakeTracker{
		boards: map[string][]tracker.Board{"BKND": {{ID: "10"}}},
		issues: map[string][]tracker.Issue{"10": manyIssues("BKND", 180, "Done")},
	}
	tasks := NewTaskResolver(tr).FetchTasks(context.Background(), "BKND", nil, 120)

	if len(tasks) != 120 {
		t.Fatalf("expected 120 tasks, got %d", len(tasks))
	}
	if tr.pageCalls != 3 {
		t.Fatalf("expected 3 pages of 50, got %d", tr.pageCalls)
	}
	if tasks[0].Key != "BKND-1" || tasks[119].Key != "BKND-120" {
		t.Fatal("expected tasks in tracker order")
	}
}

func TestFetchTasks_StatusFilterWhilePaging(t *testing.T) {
	issues := append(manyIssues("A", 60, "To Do"), manyIssues("B", 5, "In Progress")...)
	tr := &fakeTracker{
		boards: map[string][]tracker.Board{"P": {{ID: "1"}}},
		issues: map[string][]tracker.Issue{"1": issues},
	}
	tasks := NewTaskResolver(tr).FetchTasks(context.Background(), "P", []string{"progress"}, 3)

	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}
	for _, tk := range tasks {
		if !strings.HasPrefix(tk.Key, "B-") {
			t.Fatalf("unexpected task %s", tk.Key)
		}
	}
	if tr.pageCalls != 2 {
		t.Fatalf("expected to stop after the page that filled the quota, got %d pages", tr.pageCalls)
	}
}

func TestFetchTasks_DeduplicatesAcrossBoards(t *testing.T) {
	tr := &fakeTracker{
		boards: map[string][]tracker.Board{"P": {{ID: "1"}, {ID: "2"}}},
		issues: map[string][]tracker.Issue{
			"1": {issue("P-1", "a", "Done"), issue("P-2", "b", "Done")},
			"2": {issue("P-2", "b", "Done"), issue("P-3", "c", "Done")},
		},
	}
	tasks := NewTaskResolver(tr).FetchTasks(context.Background(), "P", nil, 10)
	if len(tasks) != 3 {
		t.Fatalf("expected 3 unique tasks, got %d", len(tasks))
	}
}

func TestFetchTasks_SearchFallback(t *testing.T) {
	tr := &fakeTracker{
		search: []tracker.Issue{issue("KAN-1", "x", "Done"), issue("KAN-2", "y", "To Do")},
	}
	tasks := NewTaskResolver(tr).FetchTasks(context.Background(), "KAN", []string{"done"}, 10)

	if len(tasks) != 1 || tasks[0].Key != "KAN-1" {
		t.Fatalf("expected filtered search result, got %+v", tasks)
	}
	if len(tr.queries) != 1 || tr.queries[0] != `project = "KAN" ORDER BY updated DESC` {
		t.Fatalf("unexpected queries %v", tr.queries)
	}
}

func TestFetchTasks_NoFallbackWhenBoardsYield(t *testing.T) {
	tr := &fakeTracker{
		boards: map[string][]tracker.Board{"P": {{ID: "1"}}},
		issues: map[string][]tracker.Issue{"1": {issue("P-1", "a", "Done")}},
	}
	NewTaskResolver(tr).FetchTasks(context.Background(), "P", nil, 10)
	if len(tr.queries) != 0 {
		t.Fatalf("expected no search fallback, got %v", tr.queries)
	}
}

func TestFetchTasks_AllProjectsShortCircuits(t *testing.T) {
	tr := &fakeTracker{
		projects: []tracker.Project{{Key: "A"}, {Key: "B"}, {Key: "C"}},
		boards: map[string][]tracker.Board{
			"A": {{ID: "a"}}, "B": {{ID: "b"}}, "C": {{ID: "c"}},
		},
		issues: map[string][]tracker.Issue{
			"a": manyIssues("A", 3, "Done"),
			"b": manyIssues("B", 3, "Done"),
			"c": manyIssues("C", 3, "Done"),
		},
	}
	tasks := NewTaskResolver(tr).FetchTasks(context.Background(), "", nil, 5)

	if len(tasks) != 5 {
		t.Fatalf("expected 5 tasks, got %d", len(tasks))
	}
	if tasks[4].Key != "B-2" {
		t.Fatalf("expected to stop inside project B, last task %s", tasks[4].Key)
	}
	if tr.pageCalls != 2 {
		t.Fatalf("expected project C to be skipped, got %d page calls", tr.pageCalls)
	}
}

func TestFetchTasks_UpstreamErrorsDegrade(t *testing.T) {
	tr := &fakeTracker{
		boards:    map[string][]tracker.Board{"P": {{ID: "1"}}},
		issuesErr: errors.New("timeout"),
		searchErr: errors.New("timeout"),
	}
	tasks := NewTaskResolver(tr).FetchTasks(context.Background(), "P", nil, 10)
	if len(tasks) != 0 {
		t.Fatalf("expected no tasks, got %d", len(tasks))
	}

	all := NewTaskResolver(&fakeTracker{listProjectsErr: errors.New("down")}).FetchTasks(context.Background(), "", nil, 10)
	if len(all) != 0 {
		t.Fatalf("expected no tasks, got %d", len(all))
	}
}

func TestFetchTasks_DefaultMax(t *testing.T) {
	tr := &fakeTracker{
		boards: map[string][]tracker.Board{"P": {{ID: "1"}}},
		issues: map[string][]tracker.Issue{"1": manyIssues("P", 150, "Done")},
	}
	if got := len(NewTaskResolver(tr).FetchTasks(context.Background(), "P", nil, 0)); got != 100 {
		t.Fatalf("expected default of 100 tasks, got %d", got)
	}
}
