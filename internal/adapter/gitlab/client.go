// Package gitlab implements a codehost.Host for GitLab instances using their REST API v4.
package gitlab

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Strob0t/taskalign/internal/port/codehost"
	"github.com/Strob0t/taskalign/internal/resilience"
)

const (
	providerName   = "gitlab"
	defaultBaseURL = "https://gitlab.com"
	maxPerPage     = 100
	// maxBranchPages bounds the branch listing.
	maxBranchPages = 20
)

// Client implements codehost.Host for GitLab projects via the REST API v4.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a GitLab client with the given base URL and private token.
func NewClient(baseURL, token string, breaker *resilience.Breaker) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: http.DefaultClient,
		breaker:    breaker,
	}
}

func (c *Client) Name() string { return providerName }

func (c *Client) Capabilities() codehost.Capabilities {
	return codehost.Capabilities{Commits: true, PullRequests: true, Branches: true, CodeSearch: true}
}

// gitlabCommit mirrors the JSON response from the repository commits API.
type gitlabCommit struct {
	ID            string    `json:"id"`
	Message       string    `json:"message"`
	CommittedDate time.Time `json:"committed_date"`
	WebURL        string    `json:"web_url"`
}

type gitlabMergeRequest struct {
	IID         int    `json:"iid"`
	Title       string `json:"title"`
	Description string `json:"description"`
	State       string `json:"state"`
	WebURL      string `json:"web_url"`
}

type gitlabBranch struct {
	Name string `json:"name"`
}

type gitlabBlob struct {
	Path string `json:"path"`
	Ref  string `json:"ref"`
}

func (c *Client) ListCommits(ctx context.Context, repo string, maxCount int) ([]codehost.Commit, error) {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(clampPerPage(maxCount)))

	var raw []gitlabCommit
	if err := c.getJSON(ctx, "list_commits", repo, "/repository/commits", q, &raw); err != nil {
		return nil, fmt.Errorf("gitlab list commits: %w", err)
	}

	commits := make([]codehost.Commit, 0, len(raw))
	for i := range raw {
		commits = append(commits, codehost.Commit{
			SHA:     raw[i].ID,
			Message: raw[i].Message,
			Date:    raw[i].CommittedDate,
			URL:     raw[i].WebURL,
		})
	}
	return capSlice(commits, maxCount), nil
}

func (c *Client) ListPullRequests(ctx context.Context, repo, state string, maxCount int) ([]codehost.PullRequest, error) {
	q := url.Values{}
	q.Set("state", mapState(state))
	q.Set("per_page", strconv.Itoa(clampPerPage(maxCount)))
	q.Set("order_by", "updated_at")

	var raw []gitlabMergeRequest
	if err := c.getJSON(ctx, "list_pull_requests", repo, "/merge_requests", q, &raw); err != nil {
		return nil, fmt.Errorf("gitlab list merge requests: %w", err)
	}

	prs := make([]codehost.PullRequest, 0, len(raw))
	for i := range raw {
		mr := &raw[i]
		prs = append(prs, codehost.PullRequest{
			ID:    mr.IID,
			Title: mr.Title,
			Body:  mr.Description,
			State: normaliseState(mr.State),
			URL:   mr.WebURL,
		})
	}
	return capSlice(prs, maxCount), nil
}

func (c *Client) ListBranches(ctx context.Context, repo string) ([]codehost.Branch, error) {
	var branches []codehost.Branch
	for page := 1; page <= maxBranchPages; page++ {
		q := url.Values{}
		q.Set("per_page", strconv.Itoa(maxPerPage))
		q.Set("page", strconv.Itoa(page))

		var raw []gitlabBranch
		if err := c.getJSON(ctx, "list_branches", repo, "/repository/branches", q, &raw); err != nil {
			return nil, fmt.Errorf("gitlab list branches: %w", err)
		}
		for _, b := range raw {
			branches = append(branches, codehost.Branch{Name: b.Name})
		}
		if len(raw) < maxPerPage {
			break
		}
	}
	return branches, nil
}

func (c *Client) SearchCode(ctx context.Context, repo, term string, maxCount int) ([]codehost.CodeMatch, error) {
	q := url.Values{}
	q.Set("scope", "blobs")
	q.Set("search", term)
	q.Set("per_page", strconv.Itoa(clampPerPage(maxCount)))

	var raw []gitlabBlob
	if err := c.getJSON(ctx, "search_code", repo, "/search", q, &raw); err != nil {
		return nil, fmt.Errorf("gitlab search blobs: %w", err)
	}

	matches := make([]codehost.CodeMatch, 0, len(raw))
	for _, b := range raw {
		matches = append(matches, codehost.CodeMatch{
			Path: b.Path,
			URL:  fmt.Sprintf("%s/%s/-/blob/%s/%s", c.baseURL, repo, b.Ref, b.Path),
		})
	}
	return capSlice(matches, maxCount), nil
}

func (c *Client) getJSON(ctx context.Context, op, repo, path string, q url.Values, out any) error {
	if err := validateRepo(repo); err != nil {
		return err
	}
	reqURL := fmt.Sprintf("%s/api/v4/projects/%s%s", c.baseURL, url.PathEscape(repo), path)
	if len(q) > 0 {
		reqURL += "?" + q.Encode()
	}
	body, err := c.doRequest(ctx, op, reqURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// doRequest runs one GET through the breaker for op, so a failing endpoint
// does not block the others.
func (c *Client) doRequest(ctx context.Context, op, reqURL string) ([]byte, error) {
	var respBody []byte
	err := c.breaker.For(op).Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		if c.token != "" {
			req.Header.Set("PRIVATE-TOKEN", c.token)
		}

		resp, err := c.httpClient.Do(req) //nolint:gosec // URL is constructed from trusted baseURL + project ref
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode >= 400 {
			err := fmt.Errorf("gitlab API %d: %s", resp.StatusCode, string(respBody))
			if !resilience.Transient(resp.StatusCode) {
				return resilience.Permanent(err)
			}
			return err
		}
		return nil
	})
	return respBody, err
}

// validateRepo accepts "group/project" and nested "group/sub/project" paths.
func validateRepo(ref string) error {
	parts := strings.Split(ref, "/")
	if len(parts) < 2 {
		return fmt.Errorf("invalid repository %q: expected group/project", ref)
	}
	for _, p := range parts {
		if p == "" {
			return fmt.Errorf("invalid repository %q: empty path segment", ref)
		}
	}
	return nil
}

// mapState converts a codehost state filter to the merge_requests API value.
func mapState(state string) string {
	switch state {
	case codehost.StateOpen:
		return "opened"
	case codehost.StateClosed:
		return "closed"
	default:
		return "all"
	}
}

func normaliseState(state string) string {
	switch strings.ToLower(state) {
	case "opened", "locked":
		return "open"
	default:
		return strings.ToLower(state)
	}
}

func clampPerPage(n int) int {
	if n <= 0 || n > maxPerPage {
		return maxPerPage
	}
	return n
}

func capSlice[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}
