package mcp

import (
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"aistack/internal/logging"
	"aistack/internal/template"
)

// Version is reported to MCP clients; set via ldflags at build time.
var Version = "dev"

// Server wraps the mcp-go server and the engine its tools drive.
type Server struct {
	engine    *template.Engine
	logger    *logging.AppLogger
	now       func() time.Time
	mcpServer *server.MCPServer
}

// NewServer creates the server and registers every tool.
func NewServer(engine *template.Engine, logger *logging.AppLogger) *Server {
	if logger == nil {
		logger = logging.GetDefault()
	}
	s := &Server{
		engine: engine,
		logger: logger,
		now:    time.Now,
	}

	s.mcpServer = server.NewMCPServer(
		"aistack",
		Version,
		server.WithToolCapabilities(false),
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(listTemplatesTool, s.handleListTemplates)
	s.mcpServer.AddTool(applyTemplateTool, s.handleApplyTemplate)
	s.mcpServer.AddTool(buildSingleTool, s.handleBuildSingle)
	s.mcpServer.AddTool(buildMultiTool, s.handleBuildMulti)
	s.mcpServer.AddTool(validateConfigTool, s.handleValidateConfig)
}

// Start serves on stdio until stdin closes.
func (s *Server) Start() error {
	s.logger.Info("Starting MCP server", "version", Version)
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
