package mcp

import (
	"context"
	"encoding/json"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/taskalign/internal/domain/alignment"
)

// Tool names.
const (
	ToolVerifyAlignment = "verify_alignment"
	ToolListProviders   = "list_providers"
)

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.verifyAlignmentTool(),
		s.listProvidersTool(),
	)
}

func (s *Server) verifyAlignmentTool() mcpserver.ServerTool {
	tool := mcplib.NewTool(ToolVerifyAlignment,
		mcplib.WithDescription("Check whether tracker task statuses match the code evidence in a repository. "+
			"Returns a report with aligned and misaligned tasks, warnings and recommendations."),
		mcplib.WithString("repository",
			mcplib.Required(),
			mcplib.Description("Repository as owner/name"),
		),
		mcplib.WithString("project",
			mcplib.Description("Tracker project key or name; empty checks all projects"),
		),
		mcplib.WithString("status_filter",
			mcplib.Description("Comma-separated status labels to include, e.g. \"Done,In Progress\""),
		),
		mcplib.WithNumber("max_tasks",
			mcplib.Description("Maximum number of tasks to analyse (default 100)"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleVerifyAlignment,
	}
}

func (s *Server) listProvidersTool() mcpserver.ServerTool {
	tool := mcplib.NewTool(ToolListProviders,
		mcplib.WithDescription("Show the configured task tracker and code host"),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleListProviders,
	}
}

func (s *Server) handleVerifyAlignment(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Verifier == nil {
		return mcplib.NewToolResultError("alignment service not configured"), nil
	}
	areq, ok := requestFromArgs(req.GetArguments())
	if !ok {
		return mcplib.NewToolResultError("repository is required"), nil
	}
	report, err := s.deps.Verifier.Verify(ctx, areq)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("verification failed", err), nil
	}
	data, err := json.Marshal(report)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal report", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleListProviders(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Providers == nil {
		return mcplib.NewToolResultError("alignment service not configured"), nil
	}
	data, err := json.Marshal(providersOf(s.deps.Providers))
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal providers", err), nil
	}
	return toolResultJSON(string(data)), nil
}

// requestFromArgs converts tool arguments into a Request. status_filter
// may be a comma-separated string or a list of strings.
func requestFromArgs(args map[string]any) (alignment.Request, bool) {
	var req alignment.Request
	repo, _ := args["repository"].(string)
	if strings.TrimSpace(repo) == "" {
		return req, false
	}
	req.Repository = repo
	req.ProjectHint, _ = args["project"].(string)

	switch v := args["status_filter"].(type) {
	case string:
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				req.StatusFilter = append(req.StatusFilter, part)
			}
		}
	case []any:
		for _, item := range v {
			if str, ok := item.(string); ok && strings.TrimSpace(str) != "" {
				req.StatusFilter = append(req.StatusFilter, strings.TrimSpace(str))
			}
		}
	}

	switch v := args["max_tasks"].(type) {
	case float64:
		req.MaxTasks = int(v)
	case int:
		req.MaxTasks = v
	}
	return req, true
}

type providers struct {
	Tracker  string `json:"tracker"`
	CodeHost string `json:"code_host"`
}

func providersOf(p ProviderLister) providers {
	tn, hn := p.Providers()
	return providers{Tracker: tn, CodeHost: hn}
}
