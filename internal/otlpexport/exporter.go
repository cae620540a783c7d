// Package otlpexport forwards flattened call trees to an OTLP gRPC
// collector as trace spans, so the monitored application's call trees
// show up next to regular distributed traces.
package otlpexport

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	collectortrace "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/tobert/reactmon/internal/calltree"
)

// serviceName identifies exported call trees in the collector.
const serviceName = "reactmon"

// Exporter sends call trees to an OTLP gRPC endpoint. It satisfies the
// poller's exporter hook.
type Exporter struct {
	conn   *grpc.ClientConn
	client collectortrace.TraceServiceClient
	logger *zap.Logger
}

// NewExporter connects to an OTLP gRPC collector at endpoint. The
// connection is lazy; a collector that is down only fails exports, not
// construction.
func NewExporter(endpoint string, logger *zap.Logger) (*Exporter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("create grpc client for %s: %w", endpoint, err)
	}

	return &Exporter{
		conn:   conn,
		client: collectortrace.NewTraceServiceClient(conn),
		logger: logger,
	}, nil
}

// ExportTree converts one call tree into OTLP spans and sends them.
// spans is the tree's flattened form and is only consulted for its
// length; the tree itself is walked so parent links survive.
func (e *Exporter) ExportTree(ctx context.Context, tree *calltree.Tree, spans []calltree.Span) error {
	req, err := buildRequest(tree, time.Now())
	if err != nil {
		return err
	}

	if e.logger.Core().Enabled(zapcore.DebugLevel) {
		e.logger.Debug("exporting call tree",
			zap.String("tree_id", tree.ID),
			zap.Int("spans", len(spans)),
			zap.String("request", protojson.Format(req)))
	}

	if _, err := e.client.Export(ctx, req); err != nil {
		return fmt.Errorf("export tree %s: %w", tree.ID, err)
	}
	return nil
}

// Close tears down the gRPC connection.
func (e *Exporter) Close() error {
	return e.conn.Close()
}

// buildRequest walks the tree in the same pre-order as flattening and
// emits one OTLP span per action, preserving parent/child links.
// Call-tree times are unitless offsets; they are treated as
// microseconds anchored at the export time.
func buildRequest(tree *calltree.Tree, anchor time.Time) (*collectortrace.ExportTraceServiceRequest, error) {
	if len(tree.Actions) == 0 {
		return nil, fmt.Errorf("tree %s has no actions", tree.ID)
	}

	traceID := deriveTraceID(tree.ID)
	origin := tree.Actions[0].StartTime

	var out []*tracepb.Span
	index := 0
	var walk func(a *calltree.Action, parent []byte)
	walk = func(a *calltree.Action, parent []byte) {
		spanID := deriveSpanID(tree.ID, index)
		index++

		out = append(out, &tracepb.Span{
			TraceId:           traceID,
			SpanId:            spanID,
			ParentSpanId:      parent,
			Name:              a.Name,
			Kind:              tracepb.Span_SPAN_KIND_INTERNAL,
			StartTimeUnixNano: offsetNanos(anchor, a.StartTime-origin),
			EndTimeUnixNano:   offsetNanos(anchor, a.StopTime-origin),
			Status:            &tracepb.Status{Code: tracepb.Status_STATUS_CODE_OK},
		})
		for i := range a.Actions {
			walk(&a.Actions[i], spanID)
		}
	}
	for i := range tree.Actions {
		walk(&tree.Actions[i], nil)
	}

	return &collectortrace.ExportTraceServiceRequest{
		ResourceSpans: []*tracepb.ResourceSpans{
			{
				Resource: &resourcepb.Resource{
					Attributes: []*commonpb.KeyValue{
						{
							Key:   "service.name",
							Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: serviceName}},
						},
						{
							Key:   "calltree.id",
							Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: tree.ID}},
						},
					},
				},
				ScopeSpans: []*tracepb.ScopeSpans{
					{Spans: out},
				},
			},
		},
	}, nil
}

// deriveTraceID maps a tree id onto a stable 16-byte OTLP trace id.
func deriveTraceID(treeID string) []byte {
	sum := sha256.Sum256([]byte(treeID))
	return sum[:16]
}

// deriveSpanID maps a tree id plus pre-order index onto a stable
// 8-byte OTLP span id.
func deriveSpanID(treeID string, index int) []byte {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s/%d", treeID, index))
	return sum[:8]
}

func offsetNanos(anchor time.Time, offset float64) uint64 {
	return uint64(anchor.Add(time.Duration(offset * float64(time.Microsecond))).UnixNano())
}
