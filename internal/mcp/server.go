package mcp

import (
	"context"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/takeshy/sentryrelease/internal/assets"
	"github.com/takeshy/sentryrelease/internal/plugin"
)

// Server wraps the MCP server with release publishing tools
type Server struct {
	mcpServer *mcp.Server
	plugin    *plugin.Plugin
}

// NewServer creates a new MCP server backed by p
func NewServer(p *plugin.Plugin, version string) *Server {
	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "sentryrelease",
		Version: version,
	}, nil)

	s := &Server{
		mcpServer: mcpServer,
		plugin:    p,
	}

	s.registerTools()

	return s
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_assets",
		Description: "List the files of a build output directory that would be uploaded to the release or deleted by cleanup.",
	}, s.handleListAssets)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "create_release",
		Description: "Create the configured release on Sentry.",
	}, s.handleCreateRelease)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "upload_sourcemaps",
		Description: "Upload the eligible files of a build output directory to the configured release. Creates the release first unless skip_release is set.",
	}, s.handleUploadSourceMaps)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "clean_sourcemaps",
		Description: "Delete local source map files of a build output directory and strip their sourceMappingURL comments from the bundles.",
	}, s.handleCleanSourceMaps)
}

// RunStdio runs the server using stdio transport
func (s *Server) RunStdio(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// NewHTTPHandler creates an HTTP handler for SSE transport
func (s *Server) NewHTTPHandler() http.Handler {
	return mcp.NewSSEHandler(func(req *http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)
}

// NewStreamableHTTPHandler creates a streamable HTTP handler
func (s *Server) NewStreamableHTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(req *http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)
}

// discover scans the output directory named by a tool input
func discover(outputDir string) (*assets.Compilation, error) {
	if outputDir == "" {
		return nil, fmt.Errorf("output_dir is required")
	}
	return assets.Discover(outputDir)
}
