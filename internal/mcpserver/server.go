// Package mcpserver exposes the latency aggregate to MCP clients, so an
// agent can inspect the monitored application's call-tree latencies
// without scraping the dashboard.
package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tobert/reactmon/internal/aggregate"
	"github.com/tobert/reactmon/internal/fetch"
)

// Server wraps the MCP server with the published aggregate and the
// mutable monitored target.
type Server struct {
	mcpServer *mcp.Server
	agg       *aggregate.Aggregator
	target    *fetch.Target
}

// NewServer creates an MCP server exposing the latency query tools.
func NewServer(agg *aggregate.Aggregator, target *fetch.Target, version string) (*Server, error) {
	if agg == nil {
		return nil, fmt.Errorf("aggregator cannot be nil")
	}
	if target == nil {
		return nil, fmt.Errorf("target cannot be nil")
	}

	s := &Server{agg: agg, target: target}

	s.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    "reactmon",
		Title:   "Call tree latency monitor",
		Version: version,
	}, &mcp.ServerOptions{
		Instructions: `Call-tree latency monitor. Polls a react-instrumented application
for call trees and aggregates per-action latency quantiles.

Workflow: get_status -> list_actions -> get_action_stats / get_tree_waterfall.
Use set_monitored_host to repoint the poller; it takes effect next cycle.`,
	})

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport. It blocks until the
// context is cancelled or stdin closes.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for alternative
// transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}
