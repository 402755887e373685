package gitea

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Strob0t/taskalign/internal/port/codehost"
	"github.com/Strob0t/taskalign/internal/resilience"
)

// Compile-time interface check.
var _ codehost.Host = (*Client)(nil)

func newTestClient(url string) *Client {
	return NewClient(url, "tok", resilience.NewBreaker("gitea", 3, time.Minute))
}

func TestCapabilities(t *testing.T) {
	c := newTestClient("http://localhost")
	if c.Name() != "gitea" {
		t.Fatalf("expected 'gitea', got %q", c.Name())
	}
	if c.Capabilities().CodeSearch {
		t.Fatal("expected CodeSearch=false")
	}
}

func TestSearchCodeNotSupported(t *testing.T) {
	_, err := newTestClient("http://localhost").SearchCode(context.Background(), "o/r", "X-1", 3)
	if !errors.Is(err, codehost.ErrNotSupported) {
		t.Fatalf("expected ErrNotSupported, got %v", err)
	}
}

func TestListCommits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "token tok" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		if r.URL.Path != "/api/v1/repos/owner/repo/commits" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `[{"sha":"s1","html_url":"h1","commit":{"message":"Implement OPS-2","author":{"date":"2026-01-02T03:04:05Z"}}}]`)
	}))
	defer srv.Close()

	commits, err := newTestClient(srv.URL).ListCommits(context.Background(), "owner/repo", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(commits) != 1 || commits[0].Message != "Implement OPS-2" {
		t.Fatalf("unexpected commits %+v", commits)
	}
}

func TestListPullRequestsMerged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != "all" {
			t.Errorf("expected state=all, got %q", r.URL.Query().Get("state"))
		}
		fmt.Fprint(w, `[{"number":4,"title":"OPS-2","body":"","state":"closed","merged":true,"html_url":"p4"}]`)
	}))
	defer srv.Close()

	prs, err := newTestClient(srv.URL).ListPullRequests(context.Background(), "owner/repo", "", 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prs) != 1 || prs[0].State != "merged" {
		t.Fatalf("unexpected pulls %+v", prs)
	}
}

func TestListBranchesStopsOnShortPage(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		fmt.Fprint(w, `[{"name":"main"},{"name":"ops-2-fix"}]`)
	}))
	defer srv.Close()

	branches, err := newTestClient(srv.URL).ListBranches(context.Background(), "owner/repo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(branches) != 2 || calls != 1 {
		t.Fatalf("expected 2 branches in 1 call, got %d in %d", len(branches), calls)
	}
}

func TestInvalidRepo(t *testing.T) {
	if _, err := newTestClient("http://localhost").ListBranches(context.Background(), "a/b/c"); err == nil {
		t.Fatal("expected error for nested repo path")
	}
}

func TestCheckConfigured(t *testing.T) {
	if err := newTestClient("https://git.example.com").CheckConfigured(); err != nil {
		t.Fatalf("expected configured client, got %v", err)
	}
	if err := NewClient("", "tok", nil).CheckConfigured(); err == nil {
		t.Fatal("expected missing base URL error")
	}
}

func TestListBranchesBounded(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		fmt.Fprint(w, "[")
		for i := range pageLimit {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"name":"b-%d-%d"}`, calls, i)
		}
		fmt.Fprint(w, "]")
	}))
	defer srv.Close()

	branches, err := newTestClient(srv.URL).ListBranches(context.Background(), "acme/api")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != maxPages || len(branches) != maxPages*pageLimit {
		t.Fatalf("expected %d pages, got %d calls and %d branches", maxPages, calls, len(branches))
	}
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", resilience.NewBreaker("gitea", 1, time.Minute))
	for range 3 {
		if _, err := c.ListCommits(context.Background(), "acme/missing", 10); err == nil || errors.Is(err, resilience.ErrCircuitOpen) {
			t.Fatalf("expected a plain 404 error, got %v", err)
		}
	}
}
