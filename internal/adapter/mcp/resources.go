package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/Strob0t/taskalign/internal/domain/alignment"
)

// Resource URIs.
const (
	ProvidersURI = "taskalign://providers"
	RulesURI     = "taskalign://rules"
)

func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(ProvidersURI, "Providers",
			mcplib.WithResourceDescription("Configured task tracker and code host"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleProvidersResource,
	)
	s.mcpServer.AddResource(
		mcplib.NewResource(RulesURI, "Classification rules",
			mcplib.WithResourceDescription("Ordered table mapping status category and code evidence to a verdict"),
			mcplib.WithMIMEType("application/json"),
		),
		handleRulesResource,
	)
}

func (s *Server) handleProvidersResource(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.deps.Providers == nil {
		return jsonResource(req.Params.URI, map[string]string{"error": "alignment service not configured"})
	}
	return jsonResource(req.Params.URI, providersOf(s.deps.Providers))
}

func handleRulesResource(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	return jsonResource(req.Params.URI, alignment.Rules)
}

func jsonResource(uri string, v any) ([]mcplib.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{URI: uri, MIMEType: "application/json", Text: string(data)},
	}, nil
}
