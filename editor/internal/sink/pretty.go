package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/hazyhaar/weaver/bridge"
)

var (
	prettyTime     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	prettySelected = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
	prettyHover    = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))
	prettyTag      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	prettySelector = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	prettyText     = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245"))
)

// Pretty renders records for a human watching a terminal.
type Pretty struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPretty creates a Pretty sink. If w is nil, os.Stdout is used.
func NewPretty(w io.Writer) *Pretty {
	if w == nil {
		w = os.Stdout
	}
	return &Pretty{w: w}
}

func (p *Pretty) Send(_ context.Context, rec bridge.Record) error {
	line := p.render(rec)
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := fmt.Fprintln(p.w, line)
	return err
}

func (p *Pretty) render(rec bridge.Record) string {
	kind := prettyHover.Render("hover   ")
	if rec.Kind == bridge.ElementSelected {
		kind = prettySelected.Render("selected")
	}
	el := rec.Element
	tag := "<" + el.TagName
	if el.ID != "" {
		tag += "#" + el.ID
	}
	tag += ">"

	parts := []string{
		prettyTime.Render(time.UnixMilli(rec.Timestamp).Format("15:04:05.000")),
		kind,
		prettyTag.Render(tag),
		prettySelector.Render(el.Selector),
	}
	if el.TextContent != "" {
		parts = append(parts, prettyText.Render(fmt.Sprintf("%q", el.TextContent)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, join(parts)...)
}

func join(parts []string) []string {
	out := make([]string, 0, 2*len(parts))
	for i, s := range parts {
		if i > 0 {
			out = append(out, " ")
		}
		out = append(out, s)
	}
	return out
}

func (p *Pretty) Close() error { return nil }
