// Package digest renders an ordered item list into human-readable text
// blocks. Pure formatting, no I/O.
package digest

import (
	"fmt"
	"strings"

	"github.com/alekseyt9/newswatch/internal/domain"
)

// Markers distinguish how each item's display text was produced.
const (
	markerSummarized = "📝"
	markerTranslated = "🌐"
	markerPlain      = "•"
)

// Separator joins blocks when a caller needs one string.
const Separator = "\n\n"

// Options controls rendering.
type Options struct {
	// PreferEnriched picks EnrichedText over the title when present.
	PreferEnriched bool
	// MaxItems caps the rendered items; 0 means no cap. When capped an
	// overflow line reporting the omitted count is appended.
	MaxItems int
}

// Format renders each item as one block and returns the blocks in order.
func Format(items []domain.Item, opts Options) []string {
	render := items
	omitted := 0
	if opts.MaxItems > 0 && len(items) > opts.MaxItems {
		render = items[:opts.MaxItems]
		omitted = len(items) - opts.MaxItems
	}

	blocks := make([]string, 0, len(render)+1)
	for _, it := range render {
		blocks = append(blocks, formatItem(it, opts.PreferEnriched))
	}
	if omitted > 0 {
		blocks = append(blocks, fmt.Sprintf("... 외 %d개 항목", omitted))
	}
	return blocks
}

// Join concatenates blocks with the standard separator.
func Join(blocks []string) string {
	return strings.Join(blocks, Separator)
}

func formatItem(it domain.Item, preferEnriched bool) string {
	marker := markerPlain
	text := it.Title
	if preferEnriched && it.EnrichedText != "" {
		text = it.EnrichedText
		switch {
		case it.Enriched && it.FromAbstract:
			marker = markerSummarized
		case it.Enriched:
			marker = markerTranslated
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] %s", marker, it.Source, text)
	if it.PublishedAt != nil {
		fmt.Fprintf(&b, " (%s)", it.PublishedAt.Format("01/02 15:04"))
	}
	if it.Link != "" {
		fmt.Fprintf(&b, "\n  %s", it.Link)
	}
	return b.String()
}
