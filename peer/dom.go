package peer

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/weaver/bridge"
)

// LayoutFunc supplies element geometry. Parsed documents have no layout, so
// the default reports a zero rect.
type LayoutFunc func(n *html.Node) bridge.Rect

// Document is a parsed HTML document plus the location it was loaded from.
// It is not safe for concurrent use.
type Document struct {
	root    *html.Node
	loc     *url.URL
	layout  LayoutFunc
	keyAttr string
	nextKey int
}

// Parse reads an HTML document. pageURL is the document's location and may
// be empty.
func Parse(r io.Reader, pageURL string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("peer: parse: %w", err)
	}
	return NewDocument(root, pageURL)
}

// ParseString is Parse over a string.
func ParseString(src, pageURL string) (*Document, error) {
	return Parse(strings.NewReader(src), pageURL)
}

// NewDocument wraps an already parsed tree.
func NewDocument(root *html.Node, pageURL string) (*Document, error) {
	loc, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("peer: page url: %w", err)
	}
	return &Document{root: root, loc: loc, keyAttr: DefaultConfig().KeyAttr}, nil
}

// SetLayout installs a geometry provider.
func (d *Document) SetLayout(f LayoutFunc) { d.layout = f }

// URL returns the document location.
func (d *Document) URL() *url.URL { return d.loc }

// Origin returns scheme://host of the document location, or "null" when the
// location has no host.
func (d *Document) Origin() string {
	if d.loc == nil || d.loc.Host == "" {
		return "null"
	}
	return d.loc.Scheme + "://" + d.loc.Host
}

// PagePath is the query string plus fragment, "" when both are absent.
func (d *Document) PagePath() string {
	if d.loc == nil {
		return ""
	}
	var b strings.Builder
	if d.loc.RawQuery != "" {
		b.WriteString("?" + d.loc.RawQuery)
	}
	if frag := d.loc.EscapedFragment(); frag != "" {
		b.WriteString("#" + frag)
	}
	return b.String()
}

// DocumentElement returns <html>.
func (d *Document) DocumentElement() *html.Node {
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

// Head returns <head>, or nil.
func (d *Document) Head() *html.Node { return d.childOfRoot(atom.Head) }

// Body returns <body>, or nil.
func (d *Document) Body() *html.Node { return d.childOfRoot(atom.Body) }

func (d *Document) childOfRoot(a atom.Atom) *html.Node {
	docEl := d.DocumentElement()
	if docEl == nil {
		return nil
	}
	for c := docEl.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
	}
	return nil
}

// ElementByID returns the first element in document order with the id.
func (d *Document) ElementByID(id string) *html.Node {
	if id == "" {
		return nil
	}
	return d.find(func(n *html.Node) bool { return attr(n, "id") == id })
}

// Elements returns every element in document order.
func (d *Document) Elements() []*html.Node {
	var out []*html.Node
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			out = append(out, n)
		}
		return false
	})
	return out
}

// WithClass returns every element carrying the class.
func (d *Document) WithClass(class string) []*html.Node {
	var out []*html.Node
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && hasClass(n, class) {
			out = append(out, n)
		}
		return false
	})
	return out
}

// Key returns the stable identity of n, assigning one on first use.
func (d *Document) Key(n *html.Node) string {
	if k := attr(n, d.keyAttr); k != "" {
		return k
	}
	d.nextKey++
	k := strconv.Itoa(d.nextKey)
	setAttr(n, d.keyAttr, k)
	return k
}

// Lookup resolves a key back to its element. Detached or unknown keys
// resolve to nil.
func (d *Document) Lookup(key string) *html.Node {
	if key == "" {
		return nil
	}
	return d.find(func(n *html.Node) bool { return attr(n, d.keyAttr) == key })
}

func (d *Document) useKeyAttr(name string) {
	if name != "" {
		d.keyAttr = name
	}
}

// Rect returns the geometry of n.
func (d *Document) Rect(n *html.Node) bridge.Rect {
	if d.layout == nil {
		return bridge.Rect{}
	}
	return d.layout(n)
}

// Remove detaches n from the tree.
func (d *Document) Remove(n *html.Node) {
	if n != nil && n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// Render serialises the document.
func (d *Document) Render() string {
	var buf bytes.Buffer
	_ = html.Render(&buf, d.root)
	return buf.String()
}

func (d *Document) find(match func(*html.Node) bool) *html.Node {
	var found *html.Node
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && match(n) {
			found = n
			return true
		}
		return false
	})
	return found
}

// walk visits n and its descendants in document order until visit returns true.
func walk(n *html.Node, visit func(*html.Node) bool) bool {
	if visit(n) {
		return true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if walk(c, visit) {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func addClass(n *html.Node, class string) {
	if hasClass(n, class) {
		return
	}
	cur := attr(n, "class")
	if strings.TrimSpace(cur) == "" {
		setAttr(n, "class", class)
		return
	}
	setAttr(n, "class", cur+" "+class)
}

func removeClass(n *html.Node, class string) {
	if !hasClass(n, class) {
		return
	}
	var kept []string
	for _, c := range strings.Fields(attr(n, "class")) {
		if c != class {
			kept = append(kept, c)
		}
	}
	setAttr(n, "class", strings.Join(kept, " "))
}

// tagName is the uppercase tag, as Element.tagName reports for HTML.
func tagName(n *html.Node) string {
	return strings.ToUpper(n.Data)
}

// parentElement mirrors Node.parentElement: nil above <html>.
func parentElement(n *html.Node) *html.Node {
	if n.Parent == nil || n.Parent.Type != html.ElementNode {
		return nil
	}
	return n.Parent
}

func elementChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// contains mirrors Node.contains: true for n itself and its descendants.
func contains(n, other *html.Node) bool {
	for cur := other; cur != nil; cur = cur.Parent {
		if cur == n {
			return true
		}
	}
	return false
}

// textContent concatenates all descendant text, like Node.textContent.
func textContent(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		return false
	})
	return b.String()
}
