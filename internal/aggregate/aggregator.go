// Package aggregate accumulates flattened call-tree spans into
// per-action latency history and per-cycle sorted snapshots, and
// publishes the result as an immutable State behind an atomic pointer.
// Exactly one writer (the poll loop) mutates the aggregator; any number
// of readers load the published State lock-free.
package aggregate

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tobert/reactmon/internal/calltree"
)

const (
	// DefaultHistorySize caps the per-action latency history.
	DefaultHistorySize = 10_000

	// DefaultSnapshotSeriesSize caps the per-action snapshot series.
	DefaultSnapshotSeriesSize = 1_000
)

// Aggregator owns the mutable accumulation state. Histories and
// snapshot series are bounded rings; retention is a tunable decision
// here, not the upstream dashboard's grow-forever behavior.
type Aggregator struct {
	historyCap  int
	snapshotCap int

	// Writer-owned; only the poll loop touches these.
	histories map[string]*ring[float64]
	series    map[string]*ring[Snapshot]
	reps      map[string]*calltree.Tree
	repOrder  []string
	treesSeen int
	cycles    int

	published atomic.Pointer[State]

	// Change notification for streaming readers (WebSocket push).
	generation atomic.Uint64
	subMu      sync.Mutex
	subs       map[uint64]chan struct{}
	nextSub    uint64
}

// New creates an aggregator and publishes an empty initial State.
// Non-positive capacities fall back to the defaults.
func New(historyCap, snapshotCap int) *Aggregator {
	if historyCap <= 0 {
		historyCap = DefaultHistorySize
	}
	if snapshotCap <= 0 {
		snapshotCap = DefaultSnapshotSeriesSize
	}
	a := &Aggregator{
		historyCap:  historyCap,
		snapshotCap: snapshotCap,
		histories:   make(map[string]*ring[float64]),
		series:      make(map[string]*ring[Snapshot]),
		reps:        make(map[string]*calltree.Tree),
		subs:        make(map[uint64]chan struct{}),
	}
	a.published.Store(&State{
		Representatives: map[string]*calltree.Tree{},
		Series:          map[string]Series{},
	})
	return a
}

// Batch collects one poll cycle's span durations grouped by action
// name. Names keep their first-encounter order, and durations within a
// name keep traversal order.
type Batch struct {
	names  []string
	byName map[string][]float64
}

// NewBatch creates an empty per-cycle batch.
func NewBatch() *Batch {
	return &Batch{byName: make(map[string][]float64)}
}

// Add appends the durations of one flattened tree to the batch.
func (b *Batch) Add(spans []calltree.Span) {
	for _, s := range spans {
		if _, ok := b.byName[s.Name]; !ok {
			b.names = append(b.names, s.Name)
		}
		b.byName[s.Name] = append(b.byName[s.Name], s.Duration())
	}
}

// Empty reports whether the batch saw no spans.
func (b *Batch) Empty() bool {
	return len(b.names) == 0
}

// RecordTree records one newly seen tree: it counts toward TreesSeen
// and becomes the representative for its root action name. Must only be
// called from the poll loop, and only for trees the registry reported
// as new.
func (a *Aggregator) RecordTree(tree *calltree.Tree) {
	a.treesSeen++
	name := tree.RootName()
	if name == "" {
		return
	}
	if _, ok := a.reps[name]; !ok {
		a.repOrder = append(a.repOrder, name)
	}
	a.reps[name] = tree
}

// Commit ends a poll cycle: for every action name in the batch it
// appends the batch durations to that name's history and appends one
// snapshot with the cycle timestamp and the durations sorted ascending.
// It then publishes a fresh immutable State and notifies subscribers.
// Must only be called from the poll loop.
func (a *Aggregator) Commit(batch *Batch, now time.Time) {
	for _, name := range batch.names {
		durations := batch.byName[name]

		h, ok := a.histories[name]
		if !ok {
			h = newRing[float64](a.historyCap)
			a.histories[name] = h
			a.series[name] = newRing[Snapshot](a.snapshotCap)
		}
		for _, d := range durations {
			h.append(d)
		}

		sorted := append([]float64(nil), durations...)
		sort.Float64s(sorted)
		a.series[name].append(Snapshot{Timestamp: now, Samples: sorted})
	}

	a.cycles++
	a.publish()
	a.generation.Add(1)
	a.notify()
}

// publish materializes the writer state into an immutable State and
// swaps it in.
func (a *Aggregator) publish() {
	st := &State{
		TreesSeen:       a.treesSeen,
		Cycles:          a.cycles,
		Representatives: make(map[string]*calltree.Tree, len(a.reps)),
		RepOrder:        append([]string(nil), a.repOrder...),
		Series:          make(map[string]Series, len(a.histories)),
	}
	for name, tree := range a.reps {
		st.Representatives[name] = tree
	}
	for name, h := range a.histories {
		st.Series[name] = Series{
			History:   h.copyOut(),
			Snapshots: a.series[name].copyOut(),
		}
	}
	a.published.Store(st)
}

// Current returns the most recently published aggregate. Safe to call
// from any goroutine; the returned State must be treated as read-only.
func (a *Aggregator) Current() *State {
	return a.published.Load()
}

// Generation returns a counter that increments on every commit, for
// cheap change detection.
func (a *Aggregator) Generation() uint64 {
	return a.generation.Load()
}

// Subscribe returns a channel that receives a signal after each commit,
// and an unsubscribe function. The channel is buffered with capacity 1
// to coalesce rapid updates.
func (a *Aggregator) Subscribe() (<-chan struct{}, func()) {
	a.subMu.Lock()
	defer a.subMu.Unlock()

	id := a.nextSub
	a.nextSub++

	ch := make(chan struct{}, 1)
	a.subs[id] = ch

	unsubscribe := func() {
		a.subMu.Lock()
		defer a.subMu.Unlock()
		delete(a.subs, id)
	}

	return ch, unsubscribe
}

func (a *Aggregator) notify() {
	a.subMu.Lock()
	defer a.subMu.Unlock()

	for _, ch := range a.subs {
		select {
		case ch <- struct{}{}:
		default:
			// A notification is already pending; coalesce.
		}
	}
}
