// Package mcp exposes the operator registry as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/example/pluginhost/pkg/operator"
	"github.com/example/pluginhost/pkg/types"
)

const operatorsURI = "pluginhost://operators"

// Invoker runs operators on behalf of the MCP tools.
type Invoker interface {
	ResolveOperator(ctx context.Context, uri string, params operator.Params) (*types.Property, error)
	ExecuteOperator(ctx context.Context, uri string, params operator.Params) (*operator.Summary, error)
}

// Server wraps the operator registry and exposes it as an MCP server.
type Server struct {
	invoker   Invoker
	registry  *operator.Registry
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates an MCP server named pluginhost.
func NewServer(inv Invoker, reg *operator.Registry, version string, logger *slog.Logger) *Server {
	s := &Server{
		invoker:   inv,
		registry:  reg,
		logger:    logger,
		mcpServer: server.NewMCPServer("pluginhost", version),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio serves on stdin and stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_operators",
		mcp.WithDescription("List the operators available on this host."),
	), s.handleListOperators)

	s.mcpServer.AddTool(mcp.NewTool("resolve_input",
		mcp.WithDescription("Resolve the input form of an operator for the given parameters."),
		mcp.WithString("operator", mcp.Required(), mcp.Description("Operator name, or <plugin>/<operator> for plugin operators")),
		mcp.WithString("params", mcp.Description("JSON object of form parameters")),
	), s.handleResolveInput)

	s.mcpServer.AddTool(mcp.NewTool("execute",
		mcp.WithDescription("Execute an operator with the given parameters."),
		mcp.WithString("operator", mcp.Required(), mcp.Description("Operator name, or <plugin>/<operator> for plugin operators")),
		mcp.WithString("params", mcp.Description("JSON object of form parameters")),
	), s.handleExecute)
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(operatorsURI, "Available operators",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.operatorConfigs())
		if err != nil {
			return nil, fmt.Errorf("failed to encode operators: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      operatorsURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}

func (s *Server) operatorConfigs() []operator.Config {
	configs := []operator.Config{}
	for _, e := range s.registry.List() {
		cfg := e.Operator.Config()
		if cfg.Unlisted {
			continue
		}
		cfg.Name = e.URI
		configs = append(configs, cfg)
	}
	return configs
}

func (s *Server) handleListOperators(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.operatorConfigs())
}

func parseArgs(request mcp.CallToolRequest) (string, operator.Params, error) {
	name, err := request.RequireString("operator")
	if err != nil {
		return "", nil, err
	}
	params := operator.Params{}
	if raw := request.GetString("params", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &params); err != nil {
			return "", nil, fmt.Errorf("params must be a JSON object: %w", err)
		}
	}
	return name, params, nil
}

func (s *Server) handleResolveInput(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, params, err := parseArgs(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	prop, err := s.invoker.ResolveOperator(ctx, name, params)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("resolve failed: %v", err)), nil
	}
	return jsonResult(prop)
}

func (s *Server) handleExecute(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, params, err := parseArgs(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	summary, err := s.invoker.ExecuteOperator(ctx, name, params)
	if err != nil {
		s.logger.Error("MCP execute failed", "operator", name, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("execute failed: %v", err)), nil
	}
	return jsonResult(summary)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
