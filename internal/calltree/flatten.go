package calltree

import (
	"errors"
	"fmt"
)

// maxFlattenDepth bounds recursion over nested actions. JSON cannot
// encode cycles, so this only guards against pathologically deep
// documents from a misbehaving upstream.
const maxFlattenDepth = 10_000

// ErrNoActions is returned for a tree with no top-level actions. Such a
// tree has no time origin and yields no spans.
var ErrNoActions = errors.New("call tree has no top-level actions")

// ErrTooDeep is returned when nested actions exceed maxFlattenDepth.
var ErrTooDeep = errors.New("call tree nesting too deep")

// Flatten converts one call tree into its ordered sequence of spans.
//
// The time origin is the start time of the tree's first top-level
// action; every span's start/end is that action's start/stop minus the
// origin. The anchor is deliberate upstream behavior: if the first
// action does not mark the trace start, all relative times shift with
// it. Traversal is pre-order depth-first, and the tree node itself
// emits no span, so a tree with k nodes (tree included) yields k-1
// spans.
func Flatten(tree *Tree) ([]Span, error) {
	if len(tree.Actions) == 0 {
		return nil, fmt.Errorf("tree %q: %w", tree.ID, ErrNoActions)
	}

	origin := tree.Actions[0].StartTime
	spans := make([]Span, 0, len(tree.Actions))

	for i := range tree.Actions {
		var err error
		spans, err = appendSpans(spans, &tree.Actions[i], origin, 1)
		if err != nil {
			return nil, fmt.Errorf("tree %q: %w", tree.ID, err)
		}
	}

	return spans, nil
}

func appendSpans(spans []Span, a *Action, origin float64, depth int) ([]Span, error) {
	if depth > maxFlattenDepth {
		return nil, ErrTooDeep
	}

	spans = append(spans, Span{
		Name:  a.Name,
		Start: a.StartTime - origin,
		End:   a.StopTime - origin,
	})

	for i := range a.Actions {
		var err error
		spans, err = appendSpans(spans, &a.Actions[i], origin, depth+1)
		if err != nil {
			return nil, err
		}
	}

	return spans, nil
}
