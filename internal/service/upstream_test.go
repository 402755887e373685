package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Strob0t/taskalign/internal/adapter/github"
	"github.com/Strob0t/taskalign/internal/domain/alignment"
	"github.com/Strob0t/taskalign/internal/resilience"
)

// Repeated verifications against a GitHub whose code search is refused must
// keep finding commit evidence: one endpoint failing cannot leak into other
// fetches or into the next request.
func TestVerify_CodeSearchFailuresDoNotLeakAcrossRequests(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"search forbidden", http.StatusForbidden},
		{"search validation failed", http.StatusUnprocessableEntity},
		{"search rate limited", http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			commitDate := fixedNow.Add(-time.Hour).Format(time.RFC3339)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/search/code":
					http.Error(w, `{"message":"search refused"}`, tt.status)
				case "/repos/acme/api/commits":
					fmt.Fprintf(w, `[{"sha":"a1","commit":{"message":"fix SCRUM-5 login bug","author":{"date":%q}}}]`, commitDate)
				default:
					fmt.Fprint(w, `[]`)
				}
			}))
			defer srv.Close()

			host := github.NewClient(srv.URL, "ghp_test", resilience.NewBreaker("github", 1, time.Minute))
			svc := newTestService(scrumTracker(issue("SCRUM-5", "Login bug", "Done")), host)
			req := alignment.Request{Repository: "acme/api", ProjectHint: "SCRUM"}

			for run := 1; run <= 2; run++ {
				r, err := svc.Verify(context.Background(), req)
				if err != nil {
					t.Fatalf("run %d: Verify: %v", run, err)
				}
				res := findResult(r.Aligned, "SCRUM-5")
				if res == nil {
					t.Fatalf("run %d: expected SCRUM-5 aligned, misaligned=%+v", run, r.Misaligned)
				}
				if res.Counts.Commits != 1 {
					t.Fatalf("run %d: expected 1 commit, got %d", run, res.Counts.Commits)
				}
			}
		})
	}
}
