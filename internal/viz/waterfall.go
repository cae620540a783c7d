package viz

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tobert/reactmon/internal/calltree"
)

const (
	maxSpansPerWaterfall = 50
	defaultBarWidth      = 30
)

// Waterfall renders an ASCII timeline for one call tree's flattened
// spans, in traversal order. Times are printed in the tree's own unit;
// no unit is assumed. Width controls the total line width; 0 uses 80.
func Waterfall(treeID string, spans []calltree.Span, width int) string {
	if len(spans) == 0 {
		return ""
	}
	if width <= 0 {
		width = 80
	}

	// Time bounds, clamping end to max(end, start) to handle bad data.
	minStart := spans[0].Start
	maxEnd := minStart
	for _, s := range spans {
		if s.Start < minStart {
			minStart = s.Start
		}
		if end := max(s.End, s.Start); end > maxEnd {
			maxEnd = end
		}
	}
	total := maxEnd - minStart

	var b strings.Builder
	fmt.Fprintf(&b, "Tree %s (%d spans, %s units)\n",
		treeID, len(spans), formatScalar(total))

	overflow := 0
	if len(spans) > maxSpansPerWaterfall {
		overflow = len(spans) - maxSpansPerWaterfall
		spans = spans[:maxSpansPerWaterfall]
	}

	// Column widths for alignment.
	nameWidth := 0
	durWidth := 0
	for _, s := range spans {
		if len(s.Name) > nameWidth {
			nameWidth = len(s.Name)
		}
		if l := len(formatScalar(max(s.End, s.Start) - s.Start)); l > durWidth {
			durWidth = l
		}
	}
	barWidth := width - nameWidth - durWidth - 8
	if barWidth < 10 {
		barWidth = defaultBarWidth
	}

	for _, s := range spans {
		renderSpanRow(&b, s, minStart, total, nameWidth, durWidth, barWidth)
	}

	if overflow > 0 {
		fmt.Fprintf(&b, "... +%d more spans\n", overflow)
	}

	return b.String()
}

func renderSpanRow(b *strings.Builder, s calltree.Span, minStart, total float64,
	nameWidth, durWidth, barWidth int) {

	start := s.Start
	end := max(s.End, s.Start)

	startCol, endCol := 0, barWidth
	if total > 0 {
		startCol = int((start - minStart) / total * float64(barWidth))
		endCol = int((end - minStart) / total * float64(barWidth))
	}
	if endCol <= startCol {
		endCol = startCol + 1 // zero-duration spans still get one cell
	}
	if endCol > barWidth {
		endCol = barWidth
	}
	if startCol >= barWidth {
		startCol = barWidth - 1
	}

	bar := strings.Repeat(" ", startCol) +
		strings.Repeat("#", endCol-startCol) +
		strings.Repeat(" ", barWidth-endCol)

	fmt.Fprintf(b, "  %-*s [%s] %*s\n",
		nameWidth, s.Name, bar, durWidth, formatScalar(end-start))
}

// formatScalar prints an opaque time scalar compactly.
func formatScalar(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
