// Package webui serves the latency dashboard: a JSON API over the
// published aggregate, a form to repoint the monitored host, and a
// WebSocket that pushes an update after every committed poll cycle.
package webui

import (
	"context"
	"embed"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/tobert/reactmon/internal/aggregate"
	"github.com/tobert/reactmon/internal/calltree"
	"github.com/tobert/reactmon/internal/fetch"
	"github.com/tobert/reactmon/internal/viz"
)

//go:embed static/index.html
var staticFiles embed.FS

// quantiles are the dashboard's stacked-histogram percentile columns.
var quantiles = []struct {
	q     float64
	label string
}{
	{0.5, "50%"},
	{0.75, "75%"},
	{0.9, "90%"},
	{0.95, "95%"},
	{0.99, "99%"},
}

// Server serves the embedded dashboard and its API.
type Server struct {
	agg    *aggregate.Aggregator
	target *fetch.Target
	logger *zap.Logger
	start  time.Time
}

// New creates a dashboard server over the given aggregate and target.
func New(agg *aggregate.Aggregator, target *fetch.Target, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{agg: agg, target: target, logger: logger, start: time.Now()}
}

// RegisterRoutes attaches dashboard routes to an existing ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/trees", s.handleTrees)
	mux.HandleFunc("GET /api/histograms", s.handleHistograms)
	mux.HandleFunc("POST /set_host", s.handleSetHost)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
}

// ListenAndServe starts the dashboard HTTP server and shuts it down
// when ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// handleIndex serves the embedded dashboard page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data, err := staticFiles.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "dashboard page not found", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// statusResponse is the JSON shape for /api/status.
type statusResponse struct {
	MonitoredHost string  `json:"monitored_host"`
	TreesSeen     int     `json:"trees_seen"`
	Cycles        int     `json:"cycles"`
	Actions       int     `json:"actions"`
	Generation    uint64  `json:"generation"`
	Uptime        float64 `json:"uptime_seconds"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.agg.Current()
	s.writeJSON(w, statusResponse{
		MonitoredHost: s.target.Address(),
		TreesSeen:     st.TreesSeen,
		Cycles:        st.Cycles,
		Actions:       len(st.Series),
		Generation:    s.agg.Generation(),
		Uptime:        time.Since(s.start).Seconds(),
	})
}

// treeResponse is one representative tree flattened and decorated for
// the timeline chart. Spans (colors included) are recomputed per
// request.
type treeResponse struct {
	TreeID   string             `json:"tree_id"`
	RootName string             `json:"root_name"`
	Spans    []viz.RenderedSpan `json:"spans"`
}

func (s *Server) handleTrees(w http.ResponseWriter, r *http.Request) {
	st := s.agg.Current()

	out := make([]treeResponse, 0, len(st.RepOrder))
	for _, name := range st.RepOrder {
		tree := st.Representatives[name]
		spans, err := calltree.Flatten(tree)
		if err != nil {
			// Representatives always flattened once before; stale data only.
			continue
		}
		out = append(out, treeResponse{
			TreeID:   tree.ID,
			RootName: name,
			Spans:    viz.RenderSpans(spans),
		})
	}
	s.writeJSON(w, out)
}

// histogramSeries is the stacked-histogram data for one action name:
// one measurement per poll-cycle snapshot, carrying the call count and
// the quantile columns.
type histogramSeries struct {
	Name         string           `json:"name"`
	Measurements []map[string]any `json:"measurements"`
}

func (s *Server) handleHistograms(w http.ResponseWriter, r *http.Request) {
	st := s.agg.Current()

	out := make([]histogramSeries, 0, len(st.Series))
	for _, name := range st.ActionNames() {
		series := st.Series[name]
		measurements := make([]map[string]any, 0, len(series.Snapshots))
		for _, snap := range series.Snapshots {
			m := map[string]any{
				"timestamp": snap.Timestamp.UnixMilli(),
				"calls":     snap.Calls(),
			}
			for _, qt := range quantiles {
				v, err := snap.Quantile(qt.q)
				if err != nil {
					continue
				}
				m[qt.label] = v
			}
			measurements = append(measurements, m)
		}
		out = append(out, histogramSeries{Name: name, Measurements: measurements})
	}
	s.writeJSON(w, out)
}

// handleSetHost repoints the monitored address. The change takes effect
// at the start of the next poll cycle.
func (s *Server) handleSetHost(w http.ResponseWriter, r *http.Request) {
	host := r.FormValue("host")
	if host == "" {
		http.Error(w, "host must not be empty", http.StatusBadRequest)
		return
	}
	s.target.Set(host)
	s.logger.Info("monitored host changed", zap.String("host", host))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// wsUpdate is the server-sent message pushed after each commit.
type wsUpdate struct {
	Generation uint64           `json:"generation"`
	TreesSeen  int              `json:"trees_seen"`
	Cycles     int              `json:"cycles"`
	Actions    []wsActionUpdate `json:"actions,omitempty"`
}

// wsActionUpdate summarizes the latest snapshot for one action name.
type wsActionUpdate struct {
	Name      string             `json:"name"`
	Calls     int                `json:"calls"`
	Timestamp int64              `json:"timestamp"`
	Quantiles map[string]float64 `json:"quantiles"`
}

// handleWebSocket upgrades to WebSocket and pushes an update whenever
// the aggregate commits, plus a 15s keepalive.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // localhost dashboard
	})
	if err != nil {
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	notifyCh, unsubscribe := s.agg.Subscribe()
	defer unsubscribe()

	// Initial state so the page renders without waiting for a cycle.
	if !s.sendWSUpdate(ctx, conn) {
		return
	}

	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "server shutting down")
			return
		case <-notifyCh:
			if !s.sendWSUpdate(ctx, conn) {
				return
			}
		case <-keepalive.C:
			if !s.sendWSUpdate(ctx, conn) {
				return
			}
		}
	}
}

// sendWSUpdate writes one update frame. Returns false when the
// connection is gone.
func (s *Server) sendWSUpdate(ctx context.Context, conn *websocket.Conn) bool {
	st := s.agg.Current()

	update := wsUpdate{
		Generation: s.agg.Generation(),
		TreesSeen:  st.TreesSeen,
		Cycles:     st.Cycles,
	}
	for _, name := range st.ActionNames() {
		snap, ok := st.Latest(name)
		if !ok {
			continue
		}
		qs := make(map[string]float64, len(quantiles))
		for _, qt := range quantiles {
			if v, err := snap.Quantile(qt.q); err == nil {
				qs[qt.label] = v
			}
		}
		update.Actions = append(update.Actions, wsActionUpdate{
			Name:      name,
			Calls:     snap.Calls(),
			Timestamp: snap.Timestamp.UnixMilli(),
			Quantiles: qs,
		})
	}

	data, err := json.Marshal(update)
	if err != nil {
		s.logger.Error("marshal ws update", zap.Error(err))
		return true
	}

	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return conn.Write(writeCtx, websocket.MessageText, data) == nil
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("write JSON response", zap.Error(err))
	}
}
