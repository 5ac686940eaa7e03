package peer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// SelectorSeparator joins selector segments.
const SelectorSeparator = " > "

// ErrNotFound is returned by Resolve when no element matches.
var ErrNotFound = errors.New("peer: no element matches selector")

// GenerateSelector builds the body-relative path of n. Walking upward from n
// and stopping below <body>, each segment is the lowercase tag, then either
// #id (which ends the walk) or the element's classes minus exclude, then
// :nth-child(k) among the parent's element children.
func GenerateSelector(n *html.Node, exclude ...string) string {
	var path []string
	for cur := n; cur != nil && !isBody(cur); cur = parentElement(cur) {
		seg := strings.ToLower(cur.Data)
		if id := attr(cur, "id"); id != "" {
			path = append(path, seg+"#"+id)
			break
		}
		if classes := filterClasses(attr(cur, "class"), exclude); len(classes) > 0 {
			seg += "." + strings.Join(classes, ".")
		}
		seg += ":nth-child(" + strconv.Itoa(childIndex(cur)) + ")"
		path = append(path, seg)
	}

	// Segments were collected bottom-up.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return strings.Join(path, SelectorSeparator)
}

func isBody(n *html.Node) bool {
	return n.Type == html.ElementNode && n.DataAtom == atom.Body
}

func filterClasses(raw string, exclude []string) []string {
	var out []string
	for _, c := range strings.Fields(raw) {
		skip := false
		for _, x := range exclude {
			if c == x {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, c)
		}
	}
	return out
}

// childIndex is the 1-based position of n among its parent's element
// children, or 0 when n has no parent element.
func childIndex(n *html.Node) int {
	parent := parentElement(n)
	if parent == nil {
		return 0
	}
	for i, c := range elementChildren(parent) {
		if c == n {
			return i + 1
		}
	}
	return 0
}

// segment is one parsed selector step: tag, optional #id, classes,
// optional :nth-child index.
type segment struct {
	tag     string
	id      string
	classes []string
	nth     int
}

func parseSegment(s string) (segment, error) {
	var seg segment
	s = strings.TrimSpace(s)
	if s == "" {
		return seg, fmt.Errorf("peer: empty selector segment")
	}

	if idx := strings.Index(s, ":nth-child("); idx >= 0 {
		rest := s[idx+len(":nth-child("):]
		end := strings.IndexByte(rest, ')')
		if end < 0 {
			return seg, fmt.Errorf("peer: unterminated nth-child in %q", s)
		}
		k, err := strconv.Atoi(rest[:end])
		if err != nil {
			return seg, fmt.Errorf("peer: nth-child index in %q: %w", s, err)
		}
		seg.nth = k
		s = s[:idx]
	}

	if idx := strings.IndexByte(s, '#'); idx >= 0 {
		seg.id = s[idx+1:]
		s = s[:idx]
	}

	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		for _, c := range strings.Split(s[idx+1:], ".") {
			if c != "" {
				seg.classes = append(seg.classes, c)
			}
		}
		s = s[:idx]
	}

	seg.tag = strings.ToLower(s)
	if seg.tag == "" {
		return seg, fmt.Errorf("peer: selector segment %q has no tag", s)
	}
	return seg, nil
}

func (seg segment) matches(n *html.Node) bool {
	if n.Type != html.ElementNode || strings.ToLower(n.Data) != seg.tag {
		return false
	}
	if seg.id != "" && attr(n, "id") != seg.id {
		return false
	}
	for _, c := range seg.classes {
		if !hasClass(n, c) {
			return false
		}
	}
	return true
}

// Resolve finds the element a selector produced by GenerateSelector points
// at. A leading #id segment anchors at that element; otherwise the path
// starts at <body>.
func Resolve(d *Document, selector string) (*html.Node, error) {
	parts := strings.Split(selector, SelectorSeparator)
	segs := make([]segment, 0, len(parts))
	for _, p := range parts {
		seg, err := parseSegment(p)
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
	}

	var cur *html.Node
	rest := segs
	if segs[0].id != "" {
		cur = d.ElementByID(segs[0].id)
		if cur == nil || !segs[0].matches(cur) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, selector)
		}
		rest = segs[1:]
	} else {
		cur = d.Body()
		if cur == nil {
			return nil, fmt.Errorf("%w: document has no body", ErrNotFound)
		}
	}

	for _, seg := range rest {
		next := stepInto(cur, seg)
		if next == nil {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, selector)
		}
		cur = next
	}
	return cur, nil
}

func stepInto(parent *html.Node, seg segment) *html.Node {
	children := elementChildren(parent)
	if seg.nth > 0 {
		if seg.nth > len(children) {
			return nil
		}
		if c := children[seg.nth-1]; seg.matches(c) {
			return c
		}
		return nil
	}
	for _, c := range children {
		if seg.matches(c) {
			return c
		}
	}
	return nil
}
