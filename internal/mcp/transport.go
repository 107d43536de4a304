package mcp

import (
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// HTTPHandlerOptions configures the HTTP transport behavior.
type HTTPHandlerOptions struct {
	// Stateless disables session management. The tutor keeps its own
	// conversation state, so clients rarely need MCP sessions.
	Stateless bool
}

// NewHTTPHandler creates an HTTP handler serving the tools over Streamable
// HTTP. Mount it on "/mcp".
func NewHTTPHandler(server *Server, opts *HTTPHandlerOptions) http.Handler {
	if opts == nil {
		opts = &HTTPHandlerOptions{}
	}

	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return server.MCPServer()
	}, &mcp.StreamableHTTPOptions{Stateless: opts.Stateless})
}

// NewMux routes the landing page, the MCP endpoint and the health check.
func NewMux(server *Server, health http.Handler, opts *HTTPHandlerOptions) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/mcp", NewHTTPHandler(server, opts))
	mux.Handle("/health", health)
	mux.Handle("/", NewLandingHandler())
	return mux
}
