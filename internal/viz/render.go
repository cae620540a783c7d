// Package viz renders call trees for presentation. Everything here is
// computed fresh on each render call; nothing in this package is part
// of the core data model.
package viz

import (
	"fmt"
	"math/rand/v2"

	"github.com/tobert/reactmon/internal/calltree"
)

// RenderedSpan is one timeline bar for the dashboard. JSON keys match
// the chart data provider the dashboard consumes. Color is a cosmetic
// decoration assigned per render, never persisted or compared.
type RenderedSpan struct {
	Name  string  `json:"name"`
	Start float64 `json:"startTime"`
	End   float64 `json:"endTime"`
	Color string  `json:"color"`
}

// RenderSpans decorates flattened spans with fresh random colors.
func RenderSpans(spans []calltree.Span) []RenderedSpan {
	out := make([]RenderedSpan, len(spans))
	for i, s := range spans {
		out[i] = RenderedSpan{
			Name:  s.Name,
			Start: s.Start,
			End:   s.End,
			Color: randomColor(),
		}
	}
	return out
}

// randomColor returns a "#rrggbb" hex color.
func randomColor() string {
	return fmt.Sprintf("#%06x", rand.IntN(0x1000000))
}
