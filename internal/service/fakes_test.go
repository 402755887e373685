package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Strob0t/taskalign/internal/port/broadcast"
	"github.com/Strob0t/taskalign/internal/port/cache"
	"github.com/Strob0t/taskalign/internal/port/codehost"
	"github.com/Strob0t/taskalign/internal/port/messagequeue"
	"github.com/Strob0t/taskalign/internal/port/tracker"
)

var (
	_ tracker.Tracker        = (*fakeTracker)(nil)
	_ codehost.Host          = (*fakeHost)(nil)
	_ messagequeue.Publisher = (*fakePublisher)(nil)
	_ broadcast.Broadcaster  = (*fakeBroadcaster)(nil)
	_ cache.Cache            = (*memCache)(nil)
)

// fakeTracker is an in-memory tracker.Tracker. Board issues are paged the
// way the agile API pages them.
type fakeTracker struct {
	mu sync.Mutex

	projects []tracker.Project
	boards   map[string][]tracker.Board // by project key
	issues   map[string][]tracker.Issue // by board ID
	search   []tracker.Issue

	listProjectsErr error
	listBoardsErr   error
	issuesErr       error
	searchErr       error
	configErr       error

	projectCalls int
	pageCalls    int
	queries      []string
}

func (f *fakeTracker) Name() string { return "fake-tracker" }

func (f *fakeTracker) CheckConfigured() error { return f.configErr }

func (f *fakeTracker) ListProjects(_ context.Context) ([]tracker.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.projectCalls++
	if f.listProjectsErr != nil {
		return nil, f.listProjectsErr
	}
	return f.projects, nil
}

func (f *fakeTracker) ListBoards(_ context.Context, projectID string) ([]tracker.Board, error) {
	if f.listBoardsErr != nil {
		return nil, f.listBoardsErr
	}
	return f.boards[projectID], nil
}

func (f *fakeTracker) ListBoardIssues(_ context.Context, boardID string, offset, pageSize int) (tracker.IssuePage, error) {
	f.mu.Lock()
	f.pageCalls++
	f.mu.Unlock()
	if f.issuesErr != nil {
		return tracker.IssuePage{}, f.issuesErr
	}
	all := f.issues[boardID]
	if offset >= len(all) {
		return tracker.IssuePage{}, nil
	}
	end := min(offset+pageSize, len(all))
	return tracker.IssuePage{Issues: all[offset:end], HasMore: end < len(all)}, nil
}

func (f *fakeTracker) SearchIssues(_ context.Context, query string, maxResults int) ([]tracker.Issue, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return capSlice(f.search, maxResults), nil
}

// fakeHost is an in-memory codehost.Host.
type fakeHost struct {
	mu sync.Mutex

	commits  []codehost.Commit
	prs      []codehost.PullRequest
	branches []codehost.Branch
	code     map[string][]codehost.CodeMatch // by search term

	noCodeSearch bool
	commitsErr   error
	prsErr       error
	branchesErr  error
	searchErr    error
	configErr    error

	calls       int
	searchTerms []string
	prState     string
}

func (f *fakeHost) Name() string { return "fake-host" }

func (f *fakeHost) CheckConfigured() error { return f.configErr }

func (f *fakeHost) Capabilities() codehost.Capabilities {
	return codehost.Capabilities{Commits: true, PullRequests: true, Branches: true, CodeSearch: !f.noCodeSearch}
}

func (f *fakeHost) count() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeHost) ListCommits(_ context.Context, _ string, maxCount int) ([]codehost.Commit, error) {
	f.count()
	if f.commitsErr != nil {
		return nil, f.commitsErr
	}
	return capSlice(f.commits, maxCount), nil
}

func (f *fakeHost) ListPullRequests(_ context.Context, _, state string, maxCount int) ([]codehost.PullRequest, error) {
	f.count()
	f.mu.Lock()
	f.prState = state
	f.mu.Unlock()
	if f.prsErr != nil {
		return nil, f.prsErr
	}
	return capSlice(f.prs, maxCount), nil
}

func (f *fakeHost) ListBranches(_ context.Context, _ string) ([]codehost.Branch, error) {
	f.count()
	if f.branchesErr != nil {
		return nil, f.branchesErr
	}
	return f.branches, nil
}

func (f *fakeHost) SearchCode(_ context.Context, _, term string, maxCount int) ([]codehost.CodeMatch, error) {
	f.count()
	f.mu.Lock()
	f.searchTerms = append(f.searchTerms, term)
	f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return capSlice(f.code[term], maxCount), nil
}

// fakeBroadcaster records live events.
type fakeBroadcaster struct {
	mu     sync.Mutex
	repos  []string
	types  []string
	events []any
}

func (b *fakeBroadcaster) BroadcastEvent(_ context.Context, repository, eventType string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.repos = append(b.repos, repository)
	b.types = append(b.types, eventType)
	b.events = append(b.events, payload)
}

// fakePublisher records published messages.
type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return nil
}

func issue(key, summary, status string) tracker.Issue {
	return tracker.Issue{Key: key, Summary: summary, StatusLabel: status}
}

// memCache is a map-backed cache.Cache. TTLs are ignored.
type memCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

var errUpstream = errors.New("upstream unavailable")
