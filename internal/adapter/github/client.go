// Package github implements a codehost.Host for GitHub using the REST API v3.
package github

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
	providerName   = "github"
	defaultBaseURL = "https://api.github.com"
	maxPerPage     = 100
	// maxBranchPages bounds the branch listing.
	maxBranchPages = 20
)

// Client implements codehost.Host for github.com and GitHub Enterprise.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a GitHub client. An empty baseURL targets api.github.com.
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

type ghCommit struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url"`
	Commit  struct {
		Message string `json:"message"`
		Author  struct {
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

type ghPull struct {
	Number   int        `json:"number"`
	Title    string     `json:"title"`
	Body     string     `json:"body"`
	State    string     `json:"state"`
	MergedAt *time.Time `json:"merged_at"`
	HTMLURL  string     `json:"html_url"`
}

type ghBranch struct {
	Name string `json:"name"`
}

type ghCodeSearch struct {
	Items []struct {
		Path    string `json:"path"`
		HTMLURL string `json:"html_url"`
	} `json:"items"`
}

func (c *Client) ListCommits(ctx context.Context, repo string, maxCount int) ([]codehost.Commit, error) {
	owner, name, err := parseRepo(repo)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(clampPerPage(maxCount)))

	var raw []ghCommit
	if err := c.getJSON(ctx, "list_commits", fmt.Sprintf("/repos/%s/%s/commits", owner, name), q, &raw); err != nil {
		return nil, fmt.Errorf("github list commits: %w", err)
	}

	commits := make([]codehost.Commit, 0, len(raw))
	for i := range raw {
		commits = append(commits, codehost.Commit{
			SHA:     raw[i].SHA,
			Message: raw[i].Commit.Message,
			Date:    raw[i].Commit.Author.Date,
			URL:     raw[i].HTMLURL,
		})
	}
	return capSlice(commits, maxCount), nil
}

func (c *Client) ListPullRequests(ctx context.Context, repo, state string, maxCount int) ([]codehost.PullRequest, error) {
	owner, name, err := parseRepo(repo)
	if err != nil {
		return nil, err
	}
	if state == "" {
		state = codehost.StateAll
	}
	q := url.Values{}
	q.Set("state", state)
	q.Set("per_page", strconv.Itoa(clampPerPage(maxCount)))
	q.Set("sort", "updated")
	q.Set("direction", "desc")

	var raw []ghPull
	if err := c.getJSON(ctx, "list_pull_requests", fmt.Sprintf("/repos/%s/%s/pulls", owner, name), q, &raw); err != nil {
		return nil, fmt.Errorf("github list pulls: %w", err)
	}

	prs := make([]codehost.PullRequest, 0, len(raw))
	for i := range raw {
		pr := &raw[i]
		st := pr.State
		if pr.MergedAt != nil {
			st = "merged"
		}
		prs = append(prs, codehost.PullRequest{
			ID:    pr.Number,
			Title: pr.Title,
			Body:  pr.Body,
			State: st,
			URL:   pr.HTMLURL,
		})
	}
	return capSlice(prs, maxCount), nil
}

// ListBranches pages through the repository branches, at most
// maxBranchPages pages.
func (c *Client) ListBranches(ctx context.Context, repo string) ([]codehost.Branch, error) {
	owner, name, err := parseRepo(repo)
	if err != nil {
		return nil, err
	}
	var branches []codehost.Branch
	for page := 1; page <= maxBranchPages; page++ {
		q := url.Values{}
		q.Set("per_page", strconv.Itoa(maxPerPage))
		q.Set("page", strconv.Itoa(page))

		var raw []ghBranch
		if err := c.getJSON(ctx, "list_branches", fmt.Sprintf("/repos/%s/%s/branches", owner, name), q, &raw); err != nil {
			return nil, fmt.Errorf("github list branches: %w", err)
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
	if _, _, err := parseRepo(repo); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("q", fmt.Sprintf("%s repo:%s", term, repo))
	q.Set("per_page", strconv.Itoa(clampPerPage(maxCount)))

	var raw ghCodeSearch
	if err := c.getJSON(ctx, "search_code", "/search/code", q, &raw); err != nil {
		return nil, fmt.Errorf("github search code: %w", err)
	}

	matches := make([]codehost.CodeMatch, 0, len(raw.Items))
	for _, it := range raw.Items {
		matches = append(matches, codehost.CodeMatch{Path: it.Path, URL: it.HTMLURL})
	}
	return capSlice(matches, maxCount), nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, q url.Values, out any) error {
	reqURL := c.baseURL + path
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

// doRequest runs one GET through the breaker for op. Code search is
// throttled separately by GitHub and must not block commit listing.
func (c *Client) doRequest(ctx context.Context, op, reqURL string) ([]byte, error) {
	var respBody []byte
	err := c.breaker.For(op).Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req) //nolint:gosec // URL is built from the configured API base
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode >= 400 {
			err := fmt.Errorf("github API %d: %s", resp.StatusCode, string(respBody))
			if !resilience.Transient(resp.StatusCode) {
				return resilience.Permanent(err)
			}
			return err
		}
		return nil
	})
	return respBody, err
}

func parseRepo(ref string) (owner, repo string, err error) {
	parts := strings.Split(ref, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q: expected owner/repo", ref)
	}
	return parts[0], parts[1], nil
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
