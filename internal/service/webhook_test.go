package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Strob0t/taskalign/internal/domain/alignment"
)

// fakeVerifier records verification requests.
type fakeVerifier struct {
	mu       sync.Mutex
	requests []alignment.Request
	failed   []error
	err      error
	block    chan struct{}
}

var _ Verifier = (*fakeVerifier)(nil)

func (f *fakeVerifier) Verify(ctx context.Context, req alignment.Request) (*alignment.Report, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return alignment.BuildReport(req.Repository, req.ProjectHint, req.ProjectHint, nil), nil
}

func (f *fakeVerifier) PublishFailed(_ context.Context, _ *alignment.Request, cause error) {
	f.mu.Lock()
	f.failed = append(f.failed, cause)
	f.mu.Unlock()
}

func TestParseGitHubPush(t *testing.T) {
	payload := `{
		"ref": "refs/heads/feature/login",
		"after": "abc123",
		"repository": {"full_name": "acme/api"},
		"sender": {"login": "octocat"},
		"commits": [{"id": "1"}, {"id": "2"}]
	}`
	ev, err := ParseGitHubPush([]byte(payload))
	if err != nil {
		t.Fatalf("ParseGitHubPush: %v", err)
	}
	if ev.Provider != "github" || ev.Repository != "acme/api" || ev.Branch != "feature/login" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.Sender != "octocat" || ev.Commits != 2 || ev.Deleted() {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestParseGitLabPush(t *testing.T) {
	payload := `{
		"ref": "refs/heads/main",
		"after": "0000000000000000000000000000000000000000",
		"project": {"path_with_namespace": "group/sub/api"},
		"user_username": "dev"
	}`
	ev, err := ParseGitLabPush([]byte(payload))
	if err != nil {
		t.Fatalf("ParseGitLabPush: %v", err)
	}
	if ev.Repository != "group/sub/api" || ev.Branch != "main" || ev.Sender != "dev" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if !ev.Deleted() {
		t.Fatal("expected branch deletion")
	}
}

func TestParsePush_InvalidJSON(t *testing.T) {
	if _, err := ParseGitHubPush([]byte("{")); err == nil {
		t.Fatal("expected error")
	}
	if _, err := ParseGitLabPush([]byte("nope")); err == nil {
		t.Fatal("expected error")
	}
}

func TestExtractBranchFromRef(t *testing.T) {
	tests := map[string]string{
		"refs/heads/main":        "main",
		"refs/heads/feature/foo": "feature/foo",
		"refs/tags/v1.0":         "refs/tags/v1.0",
		"":                       "",
	}
	for in, want := range tests {
		if got := extractBranchFromRef(in); got != want {
			t.Errorf("extractBranchFromRef(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWebhookService_Trigger(t *testing.T) {
	v := &fakeVerifier{}
	svc := NewWebhookService(v, map[string]string{"acme/api": "BKND"}, time.Second)

	req, ok := svc.Trigger(context.Background(), &PushEvent{Repository: "acme/api", After: "abc"})
	if !ok {
		t.Fatal("expected verification to start")
	}
	if req.ProjectHint != "BKND" {
		t.Fatalf("expected mapped project hint, got %q", req.ProjectHint)
	}
	svc.Wait()

	if len(v.requests) != 1 || v.requests[0].Repository != "acme/api" {
		t.Fatalf("unexpected requests %+v", v.requests)
	}
	if len(v.failed) != 0 {
		t.Fatal("expected no failure event")
	}
}

func TestWebhookService_IgnoresDeletesAndEmptyRepos(t *testing.T) {
	v := &fakeVerifier{}
	svc := NewWebhookService(v, nil, time.Second)

	if _, ok := svc.Trigger(context.Background(), &PushEvent{Repository: "acme/api", After: zeroSHA}); ok {
		t.Fatal("expected branch deletion to be ignored")
	}
	if _, ok := svc.Trigger(context.Background(), &PushEvent{After: "abc"}); ok {
		t.Fatal("expected empty repository to be ignored")
	}
	svc.Wait()
	if len(v.requests) != 0 {
		t.Fatal("expected no verification")
	}
}

func TestWebhookService_FailurePublished(t *testing.T) {
	v := &fakeVerifier{err: errors.New("boom")}
	svc := NewWebhookService(v, nil, time.Second)

	svc.Trigger(context.Background(), &PushEvent{Repository: "acme/api", After: "abc"})
	svc.Wait()

	if len(v.failed) != 1 {
		t.Fatalf("expected one failure event, got %d", len(v.failed))
	}
}

func TestWebhookService_OutlivesRequestContext(t *testing.T) {
	v := &fakeVerifier{block: make(chan struct{})}
	svc := NewWebhookService(v, nil, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	svc.Trigger(ctx, &PushEvent{Repository: "acme/api", After: "abc"})
	cancel()
	close(v.block)
	svc.Wait()

	if len(v.requests) != 1 || len(v.failed) != 0 {
		t.Fatalf("expected the verification to survive request cancellation, got %d requests / %d failures",
			len(v.requests), len(v.failed))
	}
}
