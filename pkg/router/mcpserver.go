// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/stacklok/mcpbridge/pkg/adapter"
)

// newMCPServer builds the MCP server for one adapter instance. Tools are
// registered once since they are static; resources are served by the
// router directly because they change between calls.
func newMCPServer(service string, opts adapter.InitOptions, a adapter.Adapter, m *Metrics) *server.MCPServer {
	serverOpts := []server.ServerOption{
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
	}
	if opts.Instructions != "" {
		serverOpts = append(serverOpts, server.WithInstructions(opts.Instructions))
	}
	srv := server.NewMCPServer(opts.ServerName, opts.ServerVersion, serverOpts...)

	for _, tool := range a.ListTools() {
		srv.AddTool(tool, toolHandler(service, a, m))
	}
	return srv
}

func toolHandler(service string, a adapter.Adapter, m *Metrics) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := req.Params.Arguments.(map[string]any)
		start := time.Now()
		res, err := a.CallTool(ctx, req.Params.Name, args)
		m.toolCall(service, req.Params.Name, res, err, time.Since(start))
		return res, err
	}
}
