package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tobert/reactmon/internal/calltree"
	"github.com/tobert/reactmon/internal/viz"
)

// toolQuantiles are the percentiles reported by get_action_stats.
var toolQuantiles = []struct {
	q     float64
	label string
}{
	{0.5, "p50"},
	{0.75, "p75"},
	{0.9, "p90"},
	{0.95, "p95"},
	{0.99, "p99"},
}

// Tool 1: get_status

type GetStatusInput struct{}

type GetStatusOutput struct {
	MonitoredHost string `json:"monitored_host" jsonschema:"Address currently being polled for call trees"`
	TreesSeen     int    `json:"trees_seen" jsonschema:"Distinct call trees observed since startup"`
	Cycles        int    `json:"cycles" jsonschema:"Completed poll cycles"`
	Actions       int    `json:"actions" jsonschema:"Distinct action names with latency history"`
	Generation    uint64 `json:"generation" jsonschema:"Aggregate generation counter, bumps on every commit"`
}

func (s *Server) handleGetStatus(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input GetStatusInput,
) (*mcp.CallToolResult, GetStatusOutput, error) {
	st := s.agg.Current()
	return &mcp.CallToolResult{}, GetStatusOutput{
		MonitoredHost: s.target.Address(),
		TreesSeen:     st.TreesSeen,
		Cycles:        st.Cycles,
		Actions:       len(st.Series),
		Generation:    s.agg.Generation(),
	}, nil
}

// Tool 2: list_actions

type ListActionsInput struct{}

type ActionSummary struct {
	Name       string `json:"name" jsonschema:"Action name"`
	TotalCalls int    `json:"total_calls" jsonschema:"Latency samples recorded across all cycles"`
	Snapshots  int    `json:"snapshots" jsonschema:"Per-cycle snapshots retained"`
}

type ListActionsOutput struct {
	Actions []ActionSummary `json:"actions" jsonschema:"All known actions, sorted by name"`
}

func (s *Server) handleListActions(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ListActionsInput,
) (*mcp.CallToolResult, ListActionsOutput, error) {
	st := s.agg.Current()

	out := ListActionsOutput{Actions: make([]ActionSummary, 0, len(st.Series))}
	for _, name := range st.ActionNames() {
		series := st.Series[name]
		out.Actions = append(out.Actions, ActionSummary{
			Name:       name,
			TotalCalls: len(series.History),
			Snapshots:  len(series.Snapshots),
		})
	}
	return &mcp.CallToolResult{}, out, nil
}

// Tool 3: get_action_stats

type GetActionStatsInput struct {
	Name string `json:"name" jsonschema:"Action name, as returned by list_actions"`
}

type GetActionStatsOutput struct {
	Name       string             `json:"name" jsonschema:"Action name"`
	Calls      int                `json:"calls" jsonschema:"Samples in the latest poll-cycle snapshot"`
	Timestamp  string             `json:"timestamp" jsonschema:"Snapshot time (RFC3339)"`
	Quantiles  map[string]float64 `json:"quantiles" jsonschema:"Latency quantiles of the latest snapshot (p50..p99)"`
	Min        float64            `json:"min" jsonschema:"Fastest sample in the latest snapshot"`
	Max        float64            `json:"max" jsonschema:"Slowest sample in the latest snapshot"`
	TotalCalls int                `json:"total_calls" jsonschema:"Samples recorded across all cycles"`
}

func (s *Server) handleGetActionStats(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input GetActionStatsInput,
) (*mcp.CallToolResult, GetActionStatsOutput, error) {
	if input.Name == "" {
		return nil, GetActionStatsOutput{}, fmt.Errorf("action name cannot be empty")
	}

	st := s.agg.Current()
	series, ok := st.Series[input.Name]
	if !ok {
		return nil, GetActionStatsOutput{}, fmt.Errorf("unknown action %q, use list_actions to discover names", input.Name)
	}

	snap, ok := st.Latest(input.Name)
	if !ok {
		return nil, GetActionStatsOutput{}, fmt.Errorf("action %q has no snapshots yet", input.Name)
	}

	qs := make(map[string]float64, len(toolQuantiles))
	for _, qt := range toolQuantiles {
		if v, err := snap.Quantile(qt.q); err == nil {
			qs[qt.label] = v
		}
	}

	// Samples are sorted ascending at commit time.
	return &mcp.CallToolResult{}, GetActionStatsOutput{
		Name:       input.Name,
		Calls:      snap.Calls(),
		Timestamp:  snap.Timestamp.Format("2006-01-02T15:04:05.999Z07:00"),
		Quantiles:  qs,
		Min:        snap.Samples[0],
		Max:        snap.Samples[len(snap.Samples)-1],
		TotalCalls: len(series.History),
	}, nil
}

// Tool 4: get_tree_waterfall

type GetTreeWaterfallInput struct {
	RootName string `json:"root_name" jsonschema:"Root action name of the representative tree (from list_actions or get_status)"`
	Width    int    `json:"width,omitempty" jsonschema:"Character width of the chart (default 100)"`
}

type GetTreeWaterfallOutput struct {
	TreeID    string `json:"tree_id" jsonschema:"ID of the representative tree"`
	RootName  string `json:"root_name" jsonschema:"Root action name"`
	Spans     int    `json:"spans" jsonschema:"Number of spans in the tree"`
	Waterfall string `json:"waterfall" jsonschema:"ASCII waterfall chart, one row per span"`
}

func (s *Server) handleGetTreeWaterfall(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input GetTreeWaterfallInput,
) (*mcp.CallToolResult, GetTreeWaterfallOutput, error) {
	if input.RootName == "" {
		return nil, GetTreeWaterfallOutput{}, fmt.Errorf("root_name cannot be empty")
	}

	width := input.Width
	if width <= 0 {
		width = 100
	}

	st := s.agg.Current()
	tree, ok := st.Representatives[input.RootName]
	if !ok {
		return nil, GetTreeWaterfallOutput{}, fmt.Errorf("no representative tree for root %q", input.RootName)
	}

	spans, err := calltree.Flatten(tree)
	if err != nil {
		return nil, GetTreeWaterfallOutput{}, fmt.Errorf("flatten representative tree: %w", err)
	}

	return &mcp.CallToolResult{}, GetTreeWaterfallOutput{
		TreeID:    tree.ID,
		RootName:  input.RootName,
		Spans:     len(spans),
		Waterfall: viz.Waterfall(tree.ID, spans, width),
	}, nil
}

// Tool 5: set_monitored_host

type SetMonitoredHostInput struct {
	Host string `json:"host" jsonschema:"host:port of the application to poll (e.g. localhost:20000)"`
}

type SetMonitoredHostOutput struct {
	PreviousHost string `json:"previous_host" jsonschema:"Address that was being polled"`
	Host         string `json:"host" jsonschema:"Address now being polled"`
	Message      string `json:"message" jsonschema:"Confirmation message"`
}

func (s *Server) handleSetMonitoredHost(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SetMonitoredHostInput,
) (*mcp.CallToolResult, SetMonitoredHostOutput, error) {
	if input.Host == "" {
		return nil, SetMonitoredHostOutput{}, fmt.Errorf("host cannot be empty")
	}

	previous := s.target.Address()
	s.target.Set(input.Host)

	return &mcp.CallToolResult{}, SetMonitoredHostOutput{
		PreviousHost: previous,
		Host:         input.Host,
		Message:      fmt.Sprintf("now polling %s, takes effect at the next cycle", input.Host),
	}, nil
}

// Register all tools

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_status",
		Description: "START HERE: current monitoring status - which host is polled, how many distinct call trees have been seen, completed cycles, and known actions. The generation counter bumps every cycle, so compare it across calls to tell whether new data arrived.",
	}, s.handleGetStatus)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_actions",
		Description: "List every action name with latency history, with total recorded calls and retained snapshots per action. Use the names with get_action_stats and get_tree_waterfall.",
	}, s.handleListActions)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_action_stats",
		Description: "Latency quantiles (p50/p75/p90/p95/p99), min, max, and call count for one action, computed over its latest poll-cycle snapshot. Answers 'how slow is action X right now?'.",
	}, s.handleGetActionStats)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_tree_waterfall",
		Description: "ASCII waterfall chart of the representative call tree for a root action: one aligned row per span showing relative start, duration, and nesting order. The fastest way to see where time goes inside a request.",
	}, s.handleGetTreeWaterfall)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "set_monitored_host",
		Description: "Repoint the poller at a different host:port. Takes effect at the start of the next poll cycle; dedup state and latency history are kept.",
	}, s.handleSetMonitoredHost)
}
