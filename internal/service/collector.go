package service

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Strob0t/taskalign/internal/domain/evidence"
	"github.com/Strob0t/taskalign/internal/domain/task"
	"github.com/Strob0t/taskalign/internal/port/codehost"
	"github.com/Strob0t/taskalign/internal/workpool"
)

// Upstream fetch bounds per verification.
const (
	commitFetchLimit     = 100
	pullRequestLimit     = 50
	codeSearchTermLimit  = 2
	codeSearchPerTerm    = 3
	codeMatchResultLimit = evidence.DisplayLimit
)

// History is the repository history fetched once per verification and
// shared read-only by every task.
type History struct {
	Commits      []codehost.Commit
	PullRequests []codehost.PullRequest
	Branches     []codehost.Branch
}

// EvidenceCollector links repository history to tasks.
type EvidenceCollector struct {
	host    codehost.Host
	matcher *evidence.Matcher
	pool    *workpool.Pool
	rec     upstreamRecorder
}

// NewEvidenceCollector creates a collector. A nil pool runs tasks one by one.
func NewEvidenceCollector(host codehost.Host, matcher *evidence.Matcher, pool *workpool.Pool) *EvidenceCollector {
	if matcher == nil {
		matcher = evidence.NewMatcher(nil)
	}
	return &EvidenceCollector{host: host, matcher: matcher, pool: pool}
}

// FetchHistory loads commits, pull requests and branches concurrently.
// Each fetch fails on its own: an error is logged and leaves that list empty.
func (c *EvidenceCollector) FetchHistory(ctx context.Context, repo string) History {
	var (
		h History
		g errgroup.Group
	)
	g.Go(func() error {
		commits, err := c.host.ListCommits(ctx, repo, commitFetchLimit)
		if err != nil {
			degraded(ctx, c.rec, c.host.Name(), "list_commits", err, "repository", repo)
			return nil
		}
		h.Commits = capSlice(commits, commitFetchLimit)
		return nil
	})
	g.Go(func() error {
		prs, err := c.host.ListPullRequests(ctx, repo, codehost.StateAll, pullRequestLimit)
		if err != nil {
			degraded(ctx, c.rec, c.host.Name(), "list_pull_requests", err, "repository", repo)
			return nil
		}
		h.PullRequests = capSlice(prs, pullRequestLimit)
		return nil
	})
	g.Go(func() error {
		branches, err := c.host.ListBranches(ctx, repo)
		if err != nil {
			degraded(ctx, c.rec, c.host.Name(), "list_branches", err, "repository", repo)
			return nil
		}
		h.Branches = branches
		return nil
	})
	_ = g.Wait()
	return h
}

// Collect fetches the history once and returns the evidence for every task,
// keyed by task key.
func (c *EvidenceCollector) Collect(ctx context.Context, repo string, tasks []task.Task) map[string]evidence.Evidence {
	h := c.FetchHistory(ctx, repo)
	evs := c.Match(ctx, repo, &h, tasks)
	out := make(map[string]evidence.Evidence, len(tasks))
	for i := range tasks {
		out[tasks[i].Key] = evs[i]
	}
	return out
}

// Match builds evidence for each task from h, in task order. Matching and
// code search run on the collector's pool.
func (c *EvidenceCollector) Match(ctx context.Context, repo string, h *History, tasks []task.Task) []evidence.Evidence {
	codeSearch := c.host.Capabilities().CodeSearch
	return workpool.Map(ctx, c.pool, tasks, func(ctx context.Context, t task.Task) evidence.Evidence {
		var code []evidence.FileRef
		if codeSearch {
			code = c.searchCode(ctx, repo, &t)
		}
		return evidence.New(
			c.matchCommits(&t, h.Commits),
			c.matchPullRequests(&t, h.PullRequests),
			c.matchBranches(&t, h.Branches),
			code,
		)
	})
}

func (c *EvidenceCollector) matchCommits(t *task.Task, commits []codehost.Commit) []evidence.CommitRef {
	var out []evidence.CommitRef
	for i := range commits {
		cm := &commits[i]
		if c.matcher.Matches(t, cm.Message) {
			out = append(out, evidence.CommitRef{SHA: cm.SHA, Message: cm.Message, Date: cm.Date, URL: cm.URL})
		}
	}
	return out
}

func (c *EvidenceCollector) matchPullRequests(t *task.Task, prs []codehost.PullRequest) []evidence.PRRef {
	var out []evidence.PRRef
	for i := range prs {
		pr := &prs[i]
		if c.matcher.Matches(t, pr.Title+"\n"+pr.Body) {
			out = append(out, evidence.PRRef{ID: pr.ID, Title: pr.Title, State: pr.State, URL: pr.URL})
		}
	}
	return out
}

func (c *EvidenceCollector) matchBranches(t *task.Task, branches []codehost.Branch) []string {
	var out []string
	for _, b := range branches {
		if c.matcher.Matches(t, b.Name) {
			out = append(out, b.Name)
		}
	}
	return out
}

// searchCode tries the first codeSearchTermLimit terms and keeps the hits of
// the first term that returns any. Errors count as zero hits.
func (c *EvidenceCollector) searchCode(ctx context.Context, repo string, t *task.Task) []evidence.FileRef {
	terms := c.matcher.CodeSearchTerms(t)
	for i := 0; i < len(terms) && i < codeSearchTermLimit; i++ {
		hits, err := c.host.SearchCode(ctx, repo, terms[i], codeSearchPerTerm)
		if err != nil {
			slog.DebugContext(ctx, "code search failed", "repository", repo, "task", t.Key, "term", terms[i], "error", err)
			continue
		}
		if len(hits) == 0 {
			continue
		}
		seen := make(map[string]struct{}, len(hits))
		out := make([]evidence.FileRef, 0, len(hits))
		for _, hit := range hits {
			if _, dup := seen[hit.Path]; dup {
				continue
			}
			seen[hit.Path] = struct{}{}
			out = append(out, evidence.FileRef{Path: hit.Path, URL: hit.URL})
		}
		return capSlice(out, codeMatchResultLimit)
	}
	return nil
}

func capSlice[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
