// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the Wunjo assistant and workspace data via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/wunjo/internal/analyzer"
	"github.com/starford/wunjo/internal/chat"
	"github.com/starford/wunjo/internal/llm"
)

const formatURI = "wunjo://workspace-format"

// Server wraps the MCP server with Wunjo tools.
type Server struct {
	mcp      *server.MCPServer
	session  *chat.Session
	analyzer *analyzer.Analyzer
	data     chat.DataProvider
}

// New creates a new MCP server with all Wunjo tools registered. session may
// be nil, in which case ask_assistant reports that no provider is configured.
func New(session *chat.Session, a *analyzer.Analyzer, data chat.DataProvider) *Server {
	s := &Server{session: session, analyzer: a, data: data}

	s.mcp = server.NewMCPServer(
		"Wunjo",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("ask_assistant",
		mcp.WithDescription("Ask the productivity assistant a question about the user's tasks and notes. "+
			"The question and answer are added to the stored conversation."),
		mcp.WithString("question", mcp.Required(), mcp.Description("Natural-language question")),
	), s.askAssistant)

	s.mcp.AddTool(mcp.NewTool("analyze_query",
		mcp.WithDescription("Classify a question: intent, confidence, time range and the data it would need."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Question to analyze")),
	), s.analyzeQuery)

	s.mcp.AddTool(mcp.NewTool("workspace_summary",
		mcp.WithDescription("Aggregated task and note statistics with productivity patterns for a time range."),
		mcp.WithString("range", mcp.Description("Time range (default 7d)"), mcp.Enum("7d", "30d", "90d", "all")),
		mcp.WithBoolean("tasks", mcp.Description("Include task statistics (default true)")),
		mcp.WithBoolean("notes", mcp.Description("Include note statistics (default true)")),
	), s.workspaceSummary)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Case-insensitive search through note titles and content. Returns up to 10 matches."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search term")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("list_providers",
		mcp.WithDescription("Supported model providers with models, pricing and the recommended choice."),
	), s.listProviders)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Workspace Format",
			mcp.WithResourceDescription("How notes and boards must be laid out for the assistant to read them."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) askAssistant(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(question) == "" {
		return mcp.NewToolResultError("question is empty"), nil
	}
	if s.session == nil {
		return mcp.NewToolResultError("assistant is not configured: set assistant.api_key"), nil
	}
	reply, err := s.session.Send(ctx, question)
	if err != nil {
		var ce *chat.Error
		if errors.As(err, &ce) {
			return mcp.NewToolResultError(string(ce.Category) + ": " + ce.Message), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(reply.Text), nil
}

func (s *Server) analyzeQuery(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.analyzer.Analyze(query))
}

func (s *Server) workspaceSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tr := analyzer.Range7d
	if raw := req.GetString("range", ""); raw != "" {
		parsed, ok := analyzer.ParseTimeRange(raw)
		if !ok {
			return mcp.NewToolResultError("range must be one of 7d, 30d, 90d, all"), nil
		}
		tr = parsed
	}
	need := analyzer.DataNeed{
		TimeRange:  tr,
		NeedsTasks: req.GetBool("tasks", true),
		NeedsNotes: req.GetBool("notes", true),
	}
	return jsonResult(s.data.GetData(ctx, need))
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return mcp.NewToolResultError("query is empty"), nil
	}
	data := s.data.GetData(ctx, analyzer.DataNeed{NeedsNotes: true, TimeRange: analyzer.RangeAll, SearchTerm: query})
	if len(data.SearchResults) == 0 {
		return mcp.NewToolResultText("no notes found"), nil
	}
	return jsonResult(data.SearchResults)
}

func (s *Server) listProviders(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out := map[string]any{
		"providers":   llm.Providers(),
		"recommended": llm.Recommend(""),
	}
	if s.session != nil {
		out["configured"] = s.session.Service().ProviderInfo()
	}
	return jsonResult(out)
}

func (s *Server) readFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     WorkspaceFormat,
		},
	}, nil
}
