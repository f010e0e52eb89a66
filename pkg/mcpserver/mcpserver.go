// Package mcpserver exposes the tool registry as a Model Context Protocol
// server, so MCP clients can run the same lookups the assistant uses.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/sparky/pkg/llm"
	"github.com/papercomputeco/sparky/pkg/tools"
)

const serverName = "sparky"

// New returns an MCP server with one tool per registry entry. Tool failures
// are reported as results with IsError set, never as protocol errors.
func New(registry *tools.Registry, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: version}, nil)

	for _, spec := range registry.Specs() {
		switch spec.Name {
		case tools.GetUsers:
			addTool[tools.UsersArgs](server, registry, spec)
		case tools.GetFiles:
			addTool[tools.FilesArgs](server, registry, spec)
		case tools.GetMessages:
			addTool[tools.MessagesArgs](server, registry, spec)
		}
	}

	return server
}

func addTool[A any](server *mcp.Server, registry *tools.Registry, spec llm.ToolDeclaration) {
	tool := &mcp.Tool{
		Name:        spec.Name,
		Description: spec.Description,
	}

	mcp.AddTool(server, tool, func(ctx context.Context, _ *mcp.CallToolRequest, args A) (*mcp.CallToolResult, any, error) {
		raw, err := toArgs(args)
		if err != nil {
			return errorResult(tools.ErrorPrefix + err.Error()), nil, nil
		}

		text, err := registry.Run(ctx, spec.Name, raw)
		if err != nil {
			return errorResult(tools.RenderError(spec.Name, err)), nil, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil, nil
	})
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// toArgs converts typed MCP input back into the raw argument map the
// registry dispatches on.
func toArgs(args any) (map[string]any, error) {
	data, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode arguments: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode arguments: %w", err)
	}
	return raw, nil
}
