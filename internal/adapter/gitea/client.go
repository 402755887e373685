// Package gitea implements a codehost.Host for Gitea/Forgejo instances using their REST API.
package gitea

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
	providerName = "gitea"
	pageLimit    = 50
	// maxPages bounds every page walk, including the branch listing.
	maxPages = 20
)

// Client implements codehost.Host for Gitea/Forgejo repositories.
// Gitea exposes no per-repository code search, so SearchCode reports
// codehost.ErrNotSupported.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a Gitea client with the given base URL and token.
func NewClient(baseURL, token string, breaker *resilience.Breaker) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: http.DefaultClient,
		breaker:    breaker,
	}
}

func (c *Client) Name() string { return providerName }

func (c *Client) Capabilities() codehost.Capabilities {
	return codehost.Capabilities{Commits: true, PullRequests: true, Branches: true}
}

type giteaCommit struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url"`
	Commit  struct {
		Message string `json:"message"`
		Author  struct {
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

type giteaPull struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	State   string `json:"state"`
	Merged  bool   `json:"merged"`
	HTMLURL string `json:"html_url"`
}

type giteaBranch struct {
	Name string `json:"name"`
}

func (c *Client) ListCommits(ctx context.Context, repo string, maxCount int) ([]codehost.Commit, error) {
	var commits []codehost.Commit
	err := c.paginate(ctx, repo, "/commits", nil, maxCount, func(body []byte) (int, error) {
		var raw []giteaCommit
		if err := json.Unmarshal(body, &raw); err != nil {
			return 0, err
		}
		for i := range raw {
			commits = append(commits, codehost.Commit{
				SHA:     raw[i].SHA,
				Message: raw[i].Commit.Message,
				Date:    raw[i].Commit.Author.Date,
				URL:     raw[i].HTMLURL,
			})
		}
		return len(raw), nil
	})
	if err != nil {
		return nil, fmt.Errorf("gitea list commits: %w", err)
	}
	return capSlice(commits, maxCount), nil
}

func (c *Client) ListPullRequests(ctx context.Context, repo, state string, maxCount int) ([]codehost.PullRequest, error) {
	if state == "" {
		state = codehost.StateAll
	}
	q := url.Values{}
	q.Set("state", state)
	q.Set("sort", "recentupdate")

	var prs []codehost.PullRequest
	err := c.paginate(ctx, repo, "/pulls", q, maxCount, func(body []byte) (int, error) {
		var raw []giteaPull
		if err := json.Unmarshal(body, &raw); err != nil {
			return 0, err
		}
		for i := range raw {
			pr := &raw[i]
			st := pr.State
			if pr.Merged {
				st = "merged"
			}
			prs = append(prs, codehost.PullRequest{ID: pr.Number, Title: pr.Title, Body: pr.Body, State: st, URL: pr.HTMLURL})
		}
		return len(raw), nil
	})
	if err != nil {
		return nil, fmt.Errorf("gitea list pulls: %w", err)
	}
	return capSlice(prs, maxCount), nil
}

func (c *Client) ListBranches(ctx context.Context, repo string) ([]codehost.Branch, error) {
	var branches []codehost.Branch
	err := c.paginate(ctx, repo, "/branches", nil, 0, func(body []byte) (int, error) {
		var raw []giteaBranch
		if err := json.Unmarshal(body, &raw); err != nil {
			return 0, err
		}
		for _, b := range raw {
			branches = append(branches, codehost.Branch{Name: b.Name})
		}
		return len(raw), nil
	})
	if err != nil {
		return nil, fmt.Errorf("gitea list branches: %w", err)
	}
	return branches, nil
}

func (c *Client) SearchCode(_ context.Context, _, _ string, _ int) ([]codehost.CodeMatch, error) {
	return nil, codehost.ErrNotSupported
}

// paginate walks page-numbered results until a short page, until maxCount
// items have been seen (0 means no limit) or for at most maxPages pages.
func (c *Client) paginate(ctx context.Context, repo, path string, q url.Values, maxCount int, decode func([]byte) (int, error)) error {
	owner, name, err := parseRepo(repo)
	if err != nil {
		return err
	}
	if q == nil {
		q = url.Values{}
	}
	breaker := c.breaker.For(strings.TrimPrefix(path, "/"))
	seen := 0
	for page := 1; page <= maxPages; page++ {
		q.Set("page", strconv.Itoa(page))
		q.Set("limit", strconv.Itoa(pageLimit))
		reqURL := fmt.Sprintf("%s/api/v1/repos/%s/%s%s?%s", c.baseURL, owner, name, path, q.Encode())

		body, err := c.doRequest(ctx, breaker, reqURL)
		if err != nil {
			return err
		}
		n, err := decode(body)
		if err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
		seen += n
		if n < pageLimit || (maxCount > 0 && seen >= maxCount) {
			return nil
		}
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, breaker *resilience.Breaker, reqURL string) ([]byte, error) {
	var respBody []byte
	err := breaker.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		if c.token != "" {
			req.Header.Set("Authorization", "token "+c.token)
		}

		resp, err := c.httpClient.Do(req) //nolint:gosec // URL is constructed from trusted baseURL + repo ref
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode >= 400 {
			err := fmt.Errorf("gitea API %d: %s", resp.StatusCode, string(respBody))
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

func capSlice[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}
