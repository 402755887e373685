package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Strob0t/taskalign/internal/port/codehost"
	"github.com/Strob0t/taskalign/internal/resilience"
)

// Compile-time interface check.
var _ codehost.Host = (*Client)(nil)

func newTestClient(url string) *Client {
	return NewClient(url, "ghp_test", resilience.NewBreaker("github", 3, time.Minute))
}

func TestNameAndCapabilities(t *testing.T) {
	c := NewClient("", "", resilience.NewBreaker("github", 1, time.Second))
	if c.Name() != "github" {
		t.Fatalf("expected 'github', got %q", c.Name())
	}
	if c.baseURL != defaultBaseURL {
		t.Fatalf("expected default base URL, got %q", c.baseURL)
	}
	if !c.Capabilities().CodeSearch {
		t.Fatal("expected CodeSearch=true")
	}
}

func TestListCommits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer ghp_test" {
			t.Errorf("expected bearer token, got %q", r.Header.Get("Authorization"))
		}
		if r.URL.Path != "/repos/acme/api/commits" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("per_page") != "100" {
			t.Errorf("expected per_page=100, got %q", r.URL.Query().Get("per_page"))
		}
		fmt.Fprint(w, `[
			{"sha":"abc","html_url":"https://gh/c/abc","commit":{"message":"feat: SCRUM-7 checkout","author":{"date":"2026-03-01T10:00:00Z"}}},
			{"sha":"def","html_url":"https://gh/c/def","commit":{"message":"chore: deps","author":{"date":"2026-02-01T10:00:00Z"}}}
		]`)
	}))
	defer srv.Close()

	commits, err := newTestClient(srv.URL).ListCommits(context.Background(), "acme/api", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(commits) != 2 {
		t.Fatalf("expected 2 commits, got %d", len(commits))
	}
	if commits[0].SHA != "abc" || commits[0].Message != "feat: SCRUM-7 checkout" {
		t.Fatalf("unexpected commit %+v", commits[0])
	}
	if commits[0].Date.Year() != 2026 || commits[0].URL != "https://gh/c/abc" {
		t.Fatalf("unexpected commit metadata %+v", commits[0])
	}
}

func TestListPullRequestsNormalisesMerged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != "all" {
			t.Errorf("expected state=all, got %q", r.URL.Query().Get("state"))
		}
		fmt.Fprint(w, `[
			{"number":12,"title":"SCRUM-7 checkout","body":"done","state":"closed","merged_at":"2026-03-01T10:00:00Z","html_url":"u12"},
			{"number":13,"title":"WIP","body":"","state":"open","merged_at":null,"html_url":"u13"},
			{"number":14,"title":"Abandoned","body":"","state":"closed","merged_at":null,"html_url":"u14"}
		]`)
	}))
	defer srv.Close()

	prs, err := newTestClient(srv.URL).ListPullRequests(context.Background(), "acme/api", "", 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"merged", "open", "closed"}
	for i, st := range want {
		if prs[i].State != st {
			t.Fatalf("pr %d: expected state %q, got %q", prs[i].ID, st, prs[i].State)
		}
	}
}

func TestListBranchesPaginates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			w.Write([]byte("["))
			for i := range maxPerPage {
				if i > 0 {
					w.Write([]byte(","))
				}
				fmt.Fprintf(w, `{"name":"b%d"}`, i)
			}
			w.Write([]byte("]"))
			return
		}
		fmt.Fprint(w, `[{"name":"feature/scrum-7"}]`)
	}))
	defer srv.Close()

	branches, err := newTestClient(srv.URL).ListBranches(context.Background(), "acme/api")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(branches) != maxPerPage+1 {
		t.Fatalf("expected %d branches, got %d", maxPerPage+1, len(branches))
	}
	if branches[len(branches)-1].Name != "feature/scrum-7" {
		t.Fatalf("unexpected last branch %q", branches[len(branches)-1].Name)
	}
}

func TestSearchCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/code" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "SCRUM-7 repo:acme/api" {
			t.Errorf("unexpected query %q", got)
		}
		fmt.Fprint(w, `{"items":[{"path":"src/checkout.go","html_url":"u1"}]}`)
	}))
	defer srv.Close()

	matches, err := newTestClient(srv.URL).SearchCode(context.Background(), "acme/api", "SCRUM-7", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 || matches[0].Path != "src/checkout.go" {
		t.Fatalf("unexpected matches %+v", matches)
	}
}

func TestInvalidRepository(t *testing.T) {
	c := newTestClient("http://localhost")
	if _, err := c.ListCommits(context.Background(), "no-slash", 10); err == nil {
		t.Fatal("expected error for malformed repository")
	}
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).ListBranches(context.Background(), "acme/missing"); err == nil {
		t.Fatal("expected error for 404")
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

func TestSearchFailuresDoNotBlockCommits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search/code":
			http.Error(w, `{"message":"API rate limit exceeded"}`, http.StatusTooManyRequests)
		default:
			fmt.Fprint(w, `[{"sha":"abc","commit":{"message":"fix SCRUM-5","author":{"date":"2026-03-01T10:00:00Z"}}}]`)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "ghp_test", resilience.NewBreaker("github", 2, time.Minute))
	ctx := context.Background()
	for range 3 {
		_, _ = c.SearchCode(ctx, "acme/api", "SCRUM-5", 5)
	}
	if _, err := c.SearchCode(ctx, "acme/api", "SCRUM-5", 5); !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected search breaker open after 429s, got %v", err)
	}

	commits, err := c.ListCommits(ctx, "acme/api", 10)
	if err != nil || len(commits) != 1 {
		t.Fatalf("expected commits while search is throttled, got %v (%v)", commits, err)
	}
}

func TestForbiddenSearchDoesNotTripBreaker(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, `{"message":"secondary rate limit"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "ghp_test", resilience.NewBreaker("github", 1, time.Minute))
	for range 3 {
		if _, err := c.SearchCode(context.Background(), "acme/api", "SCRUM-5", 5); errors.Is(err, resilience.ErrCircuitOpen) {
			t.Fatal("403 responses must not open the breaker")
		}
	}
	if calls != 3 {
		t.Fatalf("expected every search to reach the server, got %d calls", calls)
	}
}

func TestListBranchesBounded(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		var b strings.Builder
		b.WriteString("[")
		for i := range maxPerPage {
			if i > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, `{"name":"b-%d-%d"}`, calls, i)
		}
		b.WriteString("]")
		fmt.Fprint(w, b.String())
	}))
	defer srv.Close()

	branches, err := newTestClient(srv.URL).ListBranches(context.Background(), "acme/api")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != maxBranchPages || len(branches) != maxBranchPages*maxPerPage {
		t.Fatalf("expected %d pages, got %d calls and %d branches", maxBranchPages, calls, len(branches))
	}
}
