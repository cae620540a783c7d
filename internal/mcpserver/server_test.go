package mcpserver

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/tobert/reactmon/internal/aggregate"
	"github.com/tobert/reactmon/internal/calltree"
	"github.com/tobert/reactmon/internal/fetch"
)

// seededAggregator returns an aggregator that committed one cycle with a
// two-action tree rooted at "main".
func seededAggregator(t *testing.T) *aggregate.Aggregator {
	t.Helper()

	agg := aggregate.New(0, 0)
	tree := &calltree.Tree{
		ID: "tree-9",
		Actions: []calltree.Action{
			{
				Name: "main", StartTime: 200, StopTime: 280,
				Actions: []calltree.Action{
					{Name: "inner", StartTime: 210, StopTime: 240},
				},
			},
		},
	}
	spans, err := calltree.Flatten(tree)
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}

	agg.RecordTree(tree)
	batch := aggregate.NewBatch()
	batch.Add(spans)
	agg.Commit(batch, time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC))
	return agg
}

func TestServerCreation(t *testing.T) {
	agg := aggregate.New(0, 0)
	target := fetch.NewTarget("localhost:20000")

	server, err := NewServer(agg, target, "test")
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	if server.mcpServer == nil {
		t.Fatal("mcp server is nil")
	}
	if server.MCPServer() != server.mcpServer {
		t.Fatal("MCPServer accessor returned a different server")
	}
}

func TestServerCreationNilAggregator(t *testing.T) {
	if _, err := NewServer(nil, fetch.NewTarget("h:1"), "test"); err == nil {
		t.Fatal("expected error for nil aggregator, got nil")
	}
}

func TestServerCreationNilTarget(t *testing.T) {
	if _, err := NewServer(aggregate.New(0, 0), nil, "test"); err == nil {
		t.Fatal("expected error for nil target, got nil")
	}
}

func TestGetStatusTool(t *testing.T) {
	server, err := NewServer(seededAggregator(t), fetch.NewTarget("localhost:20000"), "test")
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	_, out, err := server.handleGetStatus(context.Background(), nil, GetStatusInput{})
	if err != nil {
		t.Fatalf("get_status failed: %v", err)
	}

	if out.MonitoredHost != "localhost:20000" {
		t.Fatalf("expected host localhost:20000, got %q", out.MonitoredHost)
	}
	if out.TreesSeen != 1 || out.Cycles != 1 || out.Actions != 2 {
		t.Fatalf("unexpected status: %+v", out)
	}
}

func TestListActionsTool(t *testing.T) {
	server, err := NewServer(seededAggregator(t), fetch.NewTarget("localhost:20000"), "test")
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	_, out, err := server.handleListActions(context.Background(), nil, ListActionsInput{})
	if err != nil {
		t.Fatalf("list_actions failed: %v", err)
	}

	if len(out.Actions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(out.Actions))
	}
	if out.Actions[0].Name != "inner" || out.Actions[1].Name != "main" {
		t.Fatalf("expected sorted names [inner main], got %+v", out.Actions)
	}
	if out.Actions[1].TotalCalls != 1 || out.Actions[1].Snapshots != 1 {
		t.Fatalf("unexpected main summary: %+v", out.Actions[1])
	}
}

func TestGetActionStatsTool(t *testing.T) {
	server, err := NewServer(seededAggregator(t), fetch.NewTarget("localhost:20000"), "test")
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	_, out, err := server.handleGetActionStats(context.Background(), nil, GetActionStatsInput{Name: "main"})
	if err != nil {
		t.Fatalf("get_action_stats failed: %v", err)
	}

	if out.Calls != 1 {
		t.Fatalf("expected 1 call, got %d", out.Calls)
	}
	// Single 80-unit sample: every quantile collapses onto it.
	if out.Quantiles["p50"] != 80 || out.Quantiles["p99"] != 80 {
		t.Fatalf("unexpected quantiles: %+v", out.Quantiles)
	}
	if out.Min != 80 || out.Max != 80 {
		t.Fatalf("expected min=max=80, got min=%v max=%v", out.Min, out.Max)
	}
}

func TestGetActionStatsUnknownAction(t *testing.T) {
	server, err := NewServer(seededAggregator(t), fetch.NewTarget("localhost:20000"), "test")
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	if _, _, err := server.handleGetActionStats(context.Background(), nil, GetActionStatsInput{Name: "nope"}); err == nil {
		t.Fatal("expected error for unknown action, got nil")
	}
	if _, _, err := server.handleGetActionStats(context.Background(), nil, GetActionStatsInput{}); err == nil {
		t.Fatal("expected error for empty name, got nil")
	}
}

func TestGetTreeWaterfallTool(t *testing.T) {
	server, err := NewServer(seededAggregator(t), fetch.NewTarget("localhost:20000"), "test")
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	_, out, err := server.handleGetTreeWaterfall(context.Background(), nil, GetTreeWaterfallInput{RootName: "main"})
	if err != nil {
		t.Fatalf("get_tree_waterfall failed: %v", err)
	}

	if out.TreeID != "tree-9" {
		t.Fatalf("expected tree-9, got %q", out.TreeID)
	}
	if out.Spans != 2 {
		t.Fatalf("expected 2 spans, got %d", out.Spans)
	}
	if !strings.Contains(out.Waterfall, "main") || !strings.Contains(out.Waterfall, "inner") {
		t.Fatalf("waterfall missing span rows:\n%s", out.Waterfall)
	}
}

func TestGetTreeWaterfallUnknownRoot(t *testing.T) {
	server, err := NewServer(seededAggregator(t), fetch.NewTarget("localhost:20000"), "test")
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	if _, _, err := server.handleGetTreeWaterfall(context.Background(), nil, GetTreeWaterfallInput{RootName: "nope"}); err == nil {
		t.Fatal("expected error for unknown root, got nil")
	}
}

func TestSetMonitoredHostTool(t *testing.T) {
	target := fetch.NewTarget("localhost:20000")
	server, err := NewServer(seededAggregator(t), target, "test")
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	_, out, err := server.handleSetMonitoredHost(context.Background(), nil, SetMonitoredHostInput{Host: "other:1234"})
	if err != nil {
		t.Fatalf("set_monitored_host failed: %v", err)
	}
	if out.PreviousHost != "localhost:20000" || out.Host != "other:1234" {
		t.Fatalf("unexpected output: %+v", out)
	}
	if target.Address() != "other:1234" {
		t.Fatalf("target not updated, got %q", target.Address())
	}

	if _, _, err := server.handleSetMonitoredHost(context.Background(), nil, SetMonitoredHostInput{}); err == nil {
		t.Fatal("expected error for empty host, got nil")
	}
}
