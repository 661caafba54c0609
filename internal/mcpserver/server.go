// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes ghlbridge tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/botpilote/ghlbridge/internal/mapping"
	"github.com/botpilote/ghlbridge/internal/match"
	"github.com/botpilote/ghlbridge/internal/resolver"
)

// Server wraps the MCP server with ghlbridge tools.
type Server struct {
	mcp      *server.MCPServer
	resolver *resolver.Service
	mappings *mapping.Store
}

// New creates a new MCP server with all ghlbridge tools registered.
func New(res *resolver.Service, store *mapping.Store) *Server {
	s := &Server{resolver: res, mappings: store}

	s.mcp = server.NewMCPServer(
		"ghlbridge",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("resolve_custom_value",
		mcp.WithDescription("Resolve a logical field name (e.g. 'welcome message', 'OpenAI key') "+
			"to a GoHighLevel custom value via fuzzy matching. Returns the matched record plus "+
			"diagnostic candidates when no exact match exists."),
		mcp.WithString("ghlApiKey", mcp.Required(), mcp.Description("GHL bearer token or legacy API key")),
		mcp.WithString("fieldKey", mcp.Required(), mcp.Description("Logical field name to resolve")),
		mcp.WithString("locationId", mcp.Description("Explicit GHL location id (skips credential-based scope discovery)")),
	), s.resolveCustomValue)

	s.mcp.AddTool(mcp.NewTool("list_custom_values",
		mcp.WithDescription("List all custom values visible to a credential, with values truncated "+
			"for display safety."),
		mcp.WithString("ghlApiKey", mcp.Required(), mcp.Description("GHL bearer token or legacy API key")),
		mcp.WithString("locationId", mcp.Description("Explicit GHL location id")),
	), s.listCustomValues)

	s.mcp.AddTool(mcp.NewTool("list_field_mappings",
		mcp.WithDescription("List the stored field mappings for a chatbot."),
		mcp.WithString("chatbotId", mcp.Required(), mcp.Description("Chatbot id whose mappings to list")),
	), s.listFieldMappings)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) resolveCustomValue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	apiKey, err := req.RequireString("ghlApiKey")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fieldKey, err := req.RequireString("fieldKey")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	locationID := ""
	if v, lErr := req.RequireString("locationId"); lErr == nil {
		locationID = v
	}

	resp := s.resolver.Resolve(ctx, resolver.Request{
		LocationID: locationID,
		Credential: apiKey,
		FieldKey:   fieldKey,
	})
	if resp.Error != "" {
		return mcp.NewToolResultError(resp.Error), nil
	}
	out, _ := json.MarshalIndent(resp, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listCustomValues(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	apiKey, err := req.RequireString("ghlApiKey")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	locationID := ""
	if v, lErr := req.RequireString("locationId"); lErr == nil {
		locationID = v
	}

	scope, err := s.resolver.ResolveScope(ctx, apiKey, locationID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	records, err := s.resolver.Records(ctx, scope, apiKey)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	previews := make([]previewRow, 0, len(records))
	for _, rec := range records {
		previews = append(previews, previewRow{
			Key:          rec.Key,
			Name:         rec.Name,
			ValuePreview: match.Truncate(rec.Value, 50),
		})
	}
	out, _ := json.MarshalIndent(previews, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

type previewRow struct {
	Key          string `json:"key"`
	Name         string `json:"name,omitempty"`
	ValuePreview string `json:"valuePreview,omitempty"`
}

func (s *Server) listFieldMappings(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	chatbotID, err := req.RequireString("chatbotId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	list, err := s.mappings.ListByChatbot(chatbotID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(list, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
