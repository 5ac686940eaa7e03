package peer

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/weaver/bridge"
)

// Describe snapshots n. className is the raw attribute, including any
// visual marker currently applied; only the selector filters markers out.
func Describe(d *Document, n *html.Node, cfg Config) bridge.ElementDescriptor {
	cfg.defaults()
	return bridge.ElementDescriptor{
		TagName:     tagName(n),
		ID:          attr(n, "id"),
		ClassName:   attr(n, "class"),
		TextContent: truncate(strings.TrimSpace(textContent(n)), cfg.TextLimit),
		Selector:    GenerateSelector(n, cfg.HoverClass, cfg.SelectedClass),
		PagePath:    d.PagePath(),
		Rect:        d.Rect(n),
	}
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
