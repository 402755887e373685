package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/Strob0t/taskalign/internal/domain/alignment"
)

// Client runs verifications against a remote taskalign MCP endpoint.
type Client struct {
	url     string
	apiKey  string
	version string
}

// NewClient creates a client for the streamable HTTP endpoint at url
// (e.g. "http://localhost:8081/mcp").
func NewClient(url, apiKey, version string) *Client {
	return &Client{url: url, apiKey: apiKey, version: version}
}

// connect opens an initialised session. The caller closes it.
func (c *Client) connect(ctx context.Context) (*mcpclient.Client, error) {
	var opts []transport.StreamableHTTPCOption
	if c.apiKey != "" {
		opts = append(opts, transport.WithHTTPHeaders(map[string]string{"Authorization": "Bearer " + c.apiKey}))
	}
	cl, err := mcpclient.NewStreamableHttpClient(c.url, opts...)
	if err != nil {
		return nil, fmt.Errorf("mcp client: %w", err)
	}
	if err := cl.Start(ctx); err != nil {
		_ = cl.Close()
		return nil, fmt.Errorf("mcp start: %w", err)
	}

	initReq := mcplib.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcplib.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcplib.Implementation{Name: "taskalign-cli", Version: c.version}
	if _, err := cl.Initialize(ctx, initReq); err != nil {
		_ = cl.Close()
		return nil, fmt.Errorf("mcp initialize: %w", err)
	}
	return cl, nil
}

// Rules reads the server's classification table.
func (c *Client) Rules(ctx context.Context) ([]alignment.Rule, error) {
	cl, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer cl.Close() //nolint:errcheck // best-effort cleanup

	readReq := mcplib.ReadResourceRequest{}
	readReq.Params.URI = RulesURI
	res, err := cl.ReadResource(ctx, readReq)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", RulesURI, err)
	}
	for _, content := range res.Contents {
		if tc, ok := content.(mcplib.TextResourceContents); ok {
			var rules []alignment.Rule
			if err := json.Unmarshal([]byte(tc.Text), &rules); err != nil {
				return nil, fmt.Errorf("decode rules: %w", err)
			}
			return rules, nil
		}
	}
	return nil, errors.New("empty resource")
}

// Verify calls the verify_alignment tool and decodes the report.
func (c *Client) Verify(ctx context.Context, req alignment.Request) (*alignment.Report, error) {
	cl, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer cl.Close() //nolint:errcheck // best-effort cleanup

	args := map[string]any{"repository": req.Repository}
	if req.ProjectHint != "" {
		args["project"] = req.ProjectHint
	}
	if len(req.StatusFilter) > 0 {
		args["status_filter"] = req.StatusFilter
	}
	if req.MaxTasks > 0 {
		args["max_tasks"] = req.MaxTasks
	}

	callReq := mcplib.CallToolRequest{}
	callReq.Params.Name = ToolVerifyAlignment
	callReq.Params.Arguments = args
	res, err := cl.CallTool(ctx, callReq)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", ToolVerifyAlignment, err)
	}

	text := firstText(res)
	if res.IsError {
		return nil, fmt.Errorf("%s: %s", ToolVerifyAlignment, text)
	}
	if text == "" {
		return nil, errors.New("empty tool result")
	}
	var report alignment.Report
	if err := json.Unmarshal([]byte(text), &report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &report, nil
}

func firstText(res *mcplib.CallToolResult) string {
	for _, c := range res.Content {
		if tc, ok := c.(mcplib.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}
