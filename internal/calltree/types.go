// Package calltree decodes and flattens the call-tree documents a
// react-instrumented application serves on /call_tree. A call tree is a
// nested record of named, timed actions from one transaction trace; the
// tree itself carries an id and supplies the time origin, the actions
// carry the measurements.
package calltree

// Tree is one call tree as received from the monitored application.
// Trees are read-only once decoded.
type Tree struct {
	ID      string   `json:"id"`
	Actions []Action `json:"actions"`
}

// Action is a single named time interval, possibly containing nested
// child actions. Start and stop times are in the tree's own time unit,
// treated as an opaque scalar that is only comparable within one tree.
type Action struct {
	Name      string   `json:"name"`
	StartTime float64  `json:"start_time"`
	StopTime  float64  `json:"stop_time"`
	Actions   []Action `json:"actions,omitempty"`
}

// Span is one action flattened to start/end times relative to the
// tree's time origin. Spans carry no presentation state; colors and the
// like are decorations applied at render time.
type Span struct {
	Name  string
	Start float64
	End   float64
}

// Duration returns the span's latency delta (end minus start).
func (s Span) Duration() float64 {
	return s.End - s.Start
}

// RootName returns the name of the tree's first top-level action, which
// identifies the trace for representative-tree tracking. Returns ""
// when the tree has no actions.
func (t *Tree) RootName() string {
	if len(t.Actions) == 0 {
		return ""
	}
	return t.Actions[0].Name
}
