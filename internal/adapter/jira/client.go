// Package jira implements a tracker.Tracker for Jira Cloud using the
// platform REST API v3 and the Jira Software agile API.
package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Strob0t/taskalign/internal/port/tracker"
	"github.com/Strob0t/taskalign/internal/resilience"
)

const (
	providerName = "jira"
	pageSize     = 50
	issueFields  = "summary,status,assignee"
	// maxListPages bounds the project and board listings.
	maxListPages = 20
)

// Client implements tracker.Tracker against a Jira Cloud site.
type Client struct {
	baseURL    string
	email      string
	apiToken   string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a Jira client authenticating with email + API token.
func NewClient(baseURL, email, apiToken string, breaker *resilience.Breaker) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		email:      email,
		apiToken:   apiToken,
		httpClient: http.DefaultClient,
		breaker:    breaker,
	}
}

func (c *Client) Name() string { return providerName }

type projectSearchResponse struct {
	IsLast bool          `json:"isLast"`
	Values []jiraProject `json:"values"`
}

type jiraProject struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

type boardListResponse struct {
	IsLast bool        `json:"isLast"`
	Values []jiraBoard `json:"values"`
}

type jiraBoard struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type boardIssuesResponse struct {
	StartAt int         `json:"startAt"`
	Total   int         `json:"total"`
	Issues  []jiraIssue `json:"issues"`
}

type jqlSearchResponse struct {
	Issues        []jiraIssue `json:"issues"`
	NextPageToken string      `json:"nextPageToken"`
	IsLast        bool        `json:"isLast"`
}

type jiraIssue struct {
	Key    string     `json:"key"`
	Fields issueField `json:"fields"`
}

type issueField struct {
	Summary  string    `json:"summary"`
	Status   *named    `json:"status"`
	Assignee *jiraUser `json:"assignee"`
}

type named struct {
	Name string `json:"name"`
}

type jiraUser struct {
	DisplayName string `json:"displayName"`
}

// ListProjects pages through /rest/api/3/project/search.
func (c *Client) ListProjects(ctx context.Context) ([]tracker.Project, error) {
	var projects []tracker.Project
	for page := 0; page < maxListPages; page++ {
		startAt := page * pageSize
		q := url.Values{}
		q.Set("startAt", strconv.Itoa(startAt))
		q.Set("maxResults", strconv.Itoa(pageSize))

		var resp projectSearchResponse
		if err := c.getJSON(ctx, "list_projects", "/rest/api/3/project/search", q, &resp); err != nil {
			return nil, fmt.Errorf("jira list projects: %w", err)
		}
		for _, p := range resp.Values {
			projects = append(projects, tracker.Project{ID: p.ID, Key: p.Key, Name: p.Name})
		}
		if resp.IsLast || len(resp.Values) == 0 {
			break
		}
	}
	return projects, nil
}

// ListBoards returns the agile boards attached to a project key or ID.
func (c *Client) ListBoards(ctx context.Context, projectID string) ([]tracker.Board, error) {
	var boards []tracker.Board
	for page := 0; page < maxListPages; page++ {
		startAt := page * pageSize
		q := url.Values{}
		q.Set("projectKeyOrId", projectID)
		q.Set("startAt", strconv.Itoa(startAt))
		q.Set("maxResults", strconv.Itoa(pageSize))

		var resp boardListResponse
		if err := c.getJSON(ctx, "list_boards", "/rest/agile/1.0/board", q, &resp); err != nil {
			return nil, fmt.Errorf("jira list boards for %s: %w", projectID, err)
		}
		for _, b := range resp.Values {
			boards = append(boards, tracker.Board{ID: strconv.Itoa(b.ID), Name: b.Name})
		}
		if resp.IsLast || len(resp.Values) == 0 {
			break
		}
	}
	return boards, nil
}

// ListBoardIssues returns one page of a board's issues.
func (c *Client) ListBoardIssues(ctx context.Context, boardID string, offset, size int) (tracker.IssuePage, error) {
	if size <= 0 {
		size = pageSize
	}
	q := url.Values{}
	q.Set("startAt", strconv.Itoa(offset))
	q.Set("maxResults", strconv.Itoa(size))
	q.Set("fields", issueFields)

	var resp boardIssuesResponse
	path := "/rest/agile/1.0/board/" + url.PathEscape(boardID) + "/issue"
	if err := c.getJSON(ctx, "board_issues", path, q, &resp); err != nil {
		return tracker.IssuePage{}, fmt.Errorf("jira board %s issues: %w", boardID, err)
	}

	page := tracker.IssuePage{Issues: toIssues(resp.Issues)}
	page.HasMore = len(resp.Issues) > 0 && resp.StartAt+len(resp.Issues) < resp.Total
	return page, nil
}

// SearchIssues runs a JQL query via the enhanced search endpoint, following
// nextPageToken until maxResults issues are collected.
func (c *Client) SearchIssues(ctx context.Context, jql string, maxResults int) ([]tracker.Issue, error) {
	if maxResults <= 0 {
		maxResults = pageSize
	}
	var issues []tracker.Issue
	token := ""
	for len(issues) < maxResults {
		q := url.Values{}
		q.Set("jql", jql)
		q.Set("maxResults", strconv.Itoa(min(pageSize, maxResults-len(issues))))
		q.Set("fields", issueFields)
		if token != "" {
			q.Set("nextPageToken", token)
		}

		var resp jqlSearchResponse
		if err := c.getJSON(ctx, "search_issues", "/rest/api/3/search/jql", q, &resp); err != nil {
			return nil, fmt.Errorf("jira search: %w", err)
		}
		issues = append(issues, toIssues(resp.Issues)...)
		if resp.IsLast || resp.NextPageToken == "" || len(resp.Issues) == 0 {
			break
		}
		token = resp.NextPageToken
	}
	if len(issues) > maxResults {
		issues = issues[:maxResults]
	}
	return issues, nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, q url.Values, out any) error {
	reqURL := c.baseURL + path
	if len(q) > 0 {
		reqURL += "?" + q.Encode()
	}
	body, err := c.doRequest(ctx, op, http.MethodGet, reqURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// doRequest runs one call through the breaker for op. Client errors such as
// a 404 for an unknown project key do not count as failures.
func (c *Client) doRequest(ctx context.Context, op, method, reqURL string) ([]byte, error) {
	var respBody []byte
	err := c.breaker.For(op).Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, reqURL, http.NoBody)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.SetBasicAuth(c.email, c.apiToken)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req) //nolint:gosec // URL is built from the configured site URL
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode >= 400 {
			err := fmt.Errorf("jira API %d: %s", resp.StatusCode, truncate(respBody, 200))
			if !resilience.Transient(resp.StatusCode) {
				return resilience.Permanent(err)
			}
			return err
		}
		return nil
	})
	return respBody, err
}

func toIssues(in []jiraIssue) []tracker.Issue {
	out := make([]tracker.Issue, 0, len(in))
	for i := range in {
		is := &in[i]
		issue := tracker.Issue{Key: is.Key, Summary: is.Fields.Summary}
		if is.Fields.Status != nil {
			issue.StatusLabel = is.Fields.Status.Name
		}
		if is.Fields.Assignee != nil {
			issue.Assignee = is.Fields.Assignee.DisplayName
		}
		out = append(out, issue)
	}
	return out
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
