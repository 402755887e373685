package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Strob0t/taskalign/internal/domain/alignment"
)

// zeroSHA is the "after" value of a push that deleted the branch.
const zeroSHA = "0000000000000000000000000000000000000000"

// Verifier runs verifications and reports the ones that could not start.
// AlignmentService implements it.
type Verifier interface {
	Verify(ctx context.Context, req alignment.Request) (*alignment.Report, error)
	PublishFailed(ctx context.Context, req *alignment.Request, cause error)
}

var _ Verifier = (*AlignmentService)(nil)

// PushEvent is the part of a code-host push webhook that triggers a
// re-verification.
type PushEvent struct {
	Provider   string `json:"provider"`
	Repository string `json:"repository"`
	Branch     string `json:"branch"`
	Sender     string `json:"sender"`
	After      string `json:"after"`
	Commits    int    `json:"commits"`
}

// Deleted reports whether the push removed the branch.
func (e *PushEvent) Deleted() bool { return e.After == zeroSHA }

// ParseGitHubPush parses a GitHub push webhook payload.
func ParseGitHubPush(data []byte) (*PushEvent, error) {
	var raw struct {
		Ref        string `json:"ref"`
		After      string `json:"after"`
		Repository struct {
			FullName string `json:"full_name"`
		} `json:"repository"`
		Sender struct {
			Login string `json:"login"`
		} `json:"sender"`
		Commits []json.RawMessage `json:"commits"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse github push: %w", err)
	}
	return &PushEvent{
		Provider:   "github",
		Repository: raw.Repository.FullName,
		Branch:     extractBranchFromRef(raw.Ref),
		Sender:     raw.Sender.Login,
		After:      raw.After,
		Commits:    len(raw.Commits),
	}, nil
}

// ParseGitLabPush parses a GitLab push hook payload.
func ParseGitLabPush(data []byte) (*PushEvent, error) {
	var raw struct {
		Ref     string `json:"ref"`
		After   string `json:"after"`
		Project struct {
			PathWithNamespace string `json:"path_with_namespace"`
		} `json:"project"`
		UserUsername string            `json:"user_username"`
		Commits      []json.RawMessage `json:"commits"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse gitlab push: %w", err)
	}
	return &PushEvent{
		Provider:   "gitlab",
		Repository: raw.Project.PathWithNamespace,
		Branch:     extractBranchFromRef(raw.Ref),
		Sender:     raw.UserUsername,
		After:      raw.After,
		Commits:    len(raw.Commits),
	}, nil
}

func extractBranchFromRef(ref string) string {
	// refs/heads/main -> main, refs/heads/feature/foo -> feature/foo
	const prefix = "refs/heads/"
	if strings.HasPrefix(ref, prefix) {
		return ref[len(prefix):]
	}
	return ref
}

// WebhookService re-verifies a repository after a push. Verifications run
// in the background so the webhook can be acknowledged immediately.
type WebhookService struct {
	verifier Verifier
	projects map[string]string
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewWebhookService creates a WebhookService. projects maps a repository
// to the tracker project hint used for its verifications.
func NewWebhookService(v Verifier, projects map[string]string, timeout time.Duration) *WebhookService {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &WebhookService{verifier: v, projects: projects, timeout: timeout}
}

// Trigger starts a background verification for ev and returns the request
// it will run. Branch deletions are ignored (ok is false).
func (s *WebhookService) Trigger(ctx context.Context, ev *PushEvent) (req alignment.Request, ok bool) {
	if ev.Repository == "" || ev.Deleted() {
		return req, false
	}
	req = alignment.Request{
		Repository:  ev.Repository,
		ProjectHint: s.projects[ev.Repository],
	}

	slog.InfoContext(ctx, "push received, verifying",
		"provider", ev.Provider, "repository", ev.Repository, "branch", ev.Branch, "commits", ev.Commits)

	bg := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		vctx, cancel := context.WithTimeout(bg, s.timeout)
		defer cancel()
		if _, err := s.verifier.Verify(vctx, req); err != nil {
			slog.WarnContext(vctx, "push verification failed", "repository", req.Repository, "error", err)
			s.verifier.PublishFailed(vctx, &req, err)
		}
	}()
	return req, true
}

// Wait blocks until all background verifications have finished.
func (s *WebhookService) Wait() { s.wg.Wait() }
