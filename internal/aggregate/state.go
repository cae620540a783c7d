package aggregate

import (
	"sort"

	"github.com/tobert/reactmon/internal/calltree"
)

// State is one published aggregate. A new State is built on every cycle
// commit and swapped in atomically, so a reader always observes either
// the previous complete aggregate or the new complete one, never a mix.
// All fields and reachable slices are read-only once published.
type State struct {
	// TreesSeen counts distinct call trees processed over the process
	// lifetime (bounded only by the id registry's capacity).
	TreesSeen int

	// Cycles counts committed poll cycles, including empty ones.
	Cycles int

	// Representatives maps a root action name to the most recently
	// newly seen tree with that name, for per-trace visualization.
	Representatives map[string]*calltree.Tree

	// RepOrder lists representative names in first-seen order.
	RepOrder []string

	// Series holds the per-action-name latency history and snapshot
	// series.
	Series map[string]Series
}

// Series is the accumulated data for one action name.
type Series struct {
	// History is the ordered sequence of latency deltas across all poll
	// cycles, in encounter order, capped at the configured retention.
	History []float64

	// Snapshots is the per-cycle snapshot series, oldest first.
	Snapshots []Snapshot
}

// ActionNames returns the state's action names sorted alphabetically.
func (s *State) ActionNames() []string {
	names := make([]string, 0, len(s.Series))
	for name := range s.Series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Latest returns the most recent snapshot for an action name, or false
// when the name has no snapshots.
func (s *State) Latest(name string) (Snapshot, bool) {
	series, ok := s.Series[name]
	if !ok || len(series.Snapshots) == 0 {
		return Snapshot{}, false
	}
	return series.Snapshots[len(series.Snapshots)-1], true
}
