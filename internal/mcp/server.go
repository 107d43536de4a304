package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mdsalman850/co-teachers-sub003/internal/indexer"
	"github.com/mdsalman850/co-teachers-sub003/internal/library"
	"github.com/mdsalman850/co-teachers-sub003/internal/session"
)

// Loader resolves a textbook reference and loads it. *app.App satisfies it.
type Loader interface {
	LoadRef(ctx context.Context, ref string) (*indexer.Result, error)
}

// Library lists the textbooks available by reference.
// *library.GitHubLibrary satisfies it.
type Library interface {
	String() string
	List(ctx context.Context) ([]library.Entry, error)
}

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
	tutor  *session.Tutor
}

// Config holds server dependencies. Library may be nil.
type Config struct {
	Tutor   *session.Tutor
	Loader  Loader
	Library Library
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "textbook-tutor",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "load_textbook",
		Description: "Load a textbook PDF from a local path, URL or library reference. Replaces the current textbook.",
	}, makeLoadHandler(cfg.Loader))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_textbook",
		Description: "Find the textbook passages most relevant to a question. Returns excerpts with page numbers.",
	}, makeSearchHandler(cfg.Tutor))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_textbook",
		Description: "Ask the tutor a question. The answer is grounded in the loaded textbook and refuses when the textbook does not cover it.",
	}, makeAskHandler(cfg.Tutor))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "clear_conversation",
		Description: "Forget the conversation history of one topic for the loaded textbook.",
	}, makeClearHandler(cfg.Tutor))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_status",
		Description: "Get the loaded textbook, its page and passage counts and when it was loaded.",
	}, makeStatusHandler(cfg.Tutor))

	if cfg.Library != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "list_library",
			Description: "List the textbook PDFs available as library references.",
		}, makeListLibraryHandler(cfg.Library))
	}

	return &Server{
		server: server,
		tutor:  cfg.Tutor,
	}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
