package gitlab

import (
	"context"
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
	return NewClient(url, "test-token", resilience.NewBreaker("gitlab", 3, time.Minute))
}

func TestProviderName(t *testing.T) {
	if got := newTestClient("http://localhost").Name(); got != "gitlab" {
		t.Fatalf("expected 'gitlab', got %q", got)
	}
}

func TestListCommits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("PRIVATE-TOKEN") != "test-token" {
			t.Errorf("expected PRIVATE-TOKEN header, got %q", r.Header.Get("PRIVATE-TOKEN"))
		}
		if r.URL.EscapedPath() != "/api/v4/projects/mygroup%2Fmyproject/repository/commits" {
			t.Errorf("unexpected path %s", r.URL.EscapedPath())
		}
		fmt.Fprint(w, `[{"id":"a1","message":"Fix BKND-3 timeout","committed_date":"2026-03-01T10:00:00Z","web_url":"w1"}]`)
	}))
	defer srv.Close()

	commits, err := newTestClient(srv.URL).ListCommits(context.Background(), "mygroup/myproject", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(commits) != 1 || commits[0].SHA != "a1" || commits[0].Message != "Fix BKND-3 timeout" {
		t.Fatalf("unexpected commits %+v", commits)
	}
}

func TestListMergeRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != "all" {
			t.Errorf("expected state=all, got %q", r.URL.Query().Get("state"))
		}
		fmt.Fprint(w, `[
			{"iid":1,"title":"BKND-3","description":"x","state":"merged","web_url":"m1"},
			{"iid":2,"title":"BKND-4","description":"","state":"opened","web_url":"m2"}
		]`)
	}))
	defer srv.Close()

	prs, err := newTestClient(srv.URL).ListPullRequests(context.Background(), "mygroup/myproject", codehost.StateAll, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prs) != 2 {
		t.Fatalf("expected 2 merge requests, got %d", len(prs))
	}
	if prs[0].State != "merged" || prs[1].State != "open" {
		t.Fatalf("unexpected states %q / %q", prs[0].State, prs[1].State)
	}
	if prs[0].Body != "x" {
		t.Fatalf("expected description as body, got %q", prs[0].Body)
	}
}

func TestSearchCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("scope") != "blobs" || r.URL.Query().Get("search") != "BKND-3" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, `[{"path":"pkg/timeout.go","ref":"main"}]`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	matches, err := c.SearchCode(context.Background(), "mygroup/myproject", "BKND-3", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	want := srv.URL + "/mygroup/myproject/-/blob/main/pkg/timeout.go"
	if matches[0].URL != want {
		t.Fatalf("expected URL %q, got %q", want, matches[0].URL)
	}
}

func TestValidateRepo(t *testing.T) {
	tests := []struct {
		ref     string
		wantErr bool
	}{
		{"group/project", false},
		{"group/sub/project", false},
		{"project", true},
		{"group//project", true},
		{"", true},
	}
	for _, tt := range tests {
		if err := validateRepo(tt.ref); (err != nil) != tt.wantErr {
			t.Errorf("validateRepo(%q) error = %v, wantErr %v", tt.ref, err, tt.wantErr)
		}
	}
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"403 Forbidden"}`))
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).ListBranches(context.Background(), "mygroup/myproject"); err == nil {
		t.Fatal("expected error for 403")
	}
}

func TestCheckConfigured(t *testing.T) {
	if err := newTestClient("").CheckConfigured(); err != nil {
		t.Fatalf("expected configured client, got %v", err)
	}
	if err := NewClient("", "", nil).CheckConfigured(); err == nil {
		t.Fatal("expected missing token error")
	}
}

func TestListBranchesBounded(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		fmt.Fprint(w, "[")
		for i := range maxPerPage {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"name":"b-%d-%d"}`, calls, i)
		}
		fmt.Fprint(w, "]")
	}))
	defer srv.Close()

	branches, err := newTestClient(srv.URL).ListBranches(context.Background(), "mygroup/myproject")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != maxBranchPages || len(branches) != maxBranchPages*maxPerPage {
		t.Fatalf("expected %d pages, got %d calls and %d branches", maxBranchPages, calls, len(branches))
	}
}
