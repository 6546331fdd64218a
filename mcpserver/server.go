// Package mcpserver provides the Model Context Protocol (MCP) server
// implementation.
//
// The mcpserver package exposes the runner to LLM agents as an MCP tool. It
// uses the mark3labs/mcp-go library to handle the protocol details and
// provides execute_python_code as the single tool surface.
//
// The server supports both stdio and streamable HTTP transports as
// configured by the application configuration.
package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/agentbox/agentbox/config"
)

// Executor runs one submission and returns its textual result.
type Executor interface {
	Execute(ctx context.Context, source string) string
}

// MCPServer represents the MCP server
type MCPServer struct {
	config    *config.Config
	logger    *zap.Logger
	exec      Executor
	mcpServer *server.MCPServer
}

// New creates a new MCPServer
func New(cfg *config.Config, logger *zap.Logger, exec Executor) (*MCPServer, error) {
	s := &MCPServer{
		config: cfg,
		logger: logger,
		exec:   exec,
	}

	logger.Info("configuration loaded",
		zap.String("server.transport", cfg.Server.Transport),
		zap.Int("server.http_port", cfg.Server.HTTPPort),
		zap.Int("server.max_workers", cfg.Server.MaxWorkers),
		zap.String("runner.container_name", cfg.Runner.ContainerName),
		zap.String("runner.python_binary", cfg.Runner.PythonBinary),
		zap.String("runner.code_dir", cfg.Runner.CodeDir),
		zap.Int64("runner.cpu_quota", cfg.Runner.CPUQuota),
		zap.String("runner.memory_limit", cfg.Runner.MemoryLimit),
		zap.String("runner.memswap_limit", cfg.Runner.MemswapLimit),
		zap.Int("runner.default_timeout_sec", cfg.Runner.DefaultTimeoutSec),
	)

	s.mcpServer = server.NewMCPServer("agentbox", "Run Python code in an isolated container")
	s.registerExecutePythonCodeTool()

	return s, nil
}

// registerExecutePythonCodeTool registers the execute_python_code tool
func (s *MCPServer) registerExecutePythonCodeTool() {
	tool := mcp.Tool{
		Name:        "execute_python_code",
		Description: "Execute untrusted Python code in an isolated container and return its output",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"code": map[string]any{
					"type":        "string",
					"description": "Python source code to execute",
				},
			},
			Required: []string{"code"},
		},
	}

	s.mcpServer.AddTool(tool, s.handleExecutePythonCode)
}

// handleExecutePythonCode handles the execute_python_code tool. Rejections
// and failures arrive as textual results, so the tool never errors on a bad
// submission, only on a malformed request.
func (s *MCPServer) handleExecutePythonCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := request.RequireString("code")
	if err != nil {
		return nil, fmt.Errorf("code parameter is required: %w", err)
	}

	s.logger.Info("code execution requested", zap.Int("code_len", len(code)))
	output := s.exec.Execute(ctx, code)
	s.logger.Info("code execution completed", zap.Int("output_len", len(output)))

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: output,
			},
		},
	}, nil
}

// ServeStdio starts the server on stdio
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server on stdio")
	return server.ServeStdio(s.mcpServer)
}

// ServeHTTP starts the server on HTTP
func (s *MCPServer) ServeHTTP() error {
	port := s.config.Server.HTTPPort
	s.logger.Info("starting MCP server on HTTP", zap.Int("port", port))

	httpServer := server.NewStreamableHTTPServer(s.mcpServer)
	return httpServer.Start(fmt.Sprintf(":%d", port))
}
