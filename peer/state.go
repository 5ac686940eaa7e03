package peer

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/weaver/bridge"
)

// PostFunc delivers a peer → host message.
type PostFunc func(bridge.Message)

// State is one injected peer instance. Like peer.js it starts active,
// installs the stylesheet and listeners, and afterwards changes only in
// response to control messages and pointer events.
type State struct {
	doc  *Document
	cfg  Config
	post PostFunc

	active             bool
	hoveredKey         string
	selectedKey        string
	listenersInstalled bool
	seq                uint64
}

// NewState boots a peer on doc. post may be nil.
func NewState(doc *Document, cfg Config, post PostFunc) *State {
	cfg.defaults()
	doc.useKeyAttr(cfg.KeyAttr)
	if post == nil {
		post = func(bridge.Message) {}
	}
	s := &State{doc: doc, cfg: cfg, post: post, active: true}
	s.injectStyles()
	s.installListeners()
	return s
}

// Active reports the peer-local edit mode flag.
func (s *State) Active() bool { return s.active }

// Seq is the highest control sequence number applied.
func (s *State) Seq() uint64 { return s.seq }

// ListenersInstalled reports whether pointer handling is wired.
func (s *State) ListenersInstalled() bool { return s.listenersInstalled }

// Hovered resolves the hovered element, nil if none or detached.
func (s *State) Hovered() *html.Node { return s.doc.Lookup(s.hoveredKey) }

// Selected resolves the selected element, nil if none or detached.
func (s *State) Selected() *html.Node { return s.doc.Lookup(s.selectedKey) }

// HandleControl applies a host → peer message. Unknown types are ignored.
func (s *State) HandleControl(m bridge.Message) {
	if m.Seq > s.seq {
		s.seq = m.Seq
	}
	switch m.Type {
	case bridge.ToggleEditMode:
		s.active = m.EditModeOn()
		if s.active {
			s.injectStyles()
			s.installListeners()
		} else {
			s.clearHover()
			s.clearSelected()
		}
	case bridge.ClearSelection:
		s.clearSelected()
	case bridge.ClearAllEffects:
		s.active = false
		s.clearHover()
		s.clearSelected()
		s.doc.Remove(s.doc.ElementByID(s.cfg.TipID))
	}
}

// PointerEnter handles the pointer entering n.
func (s *State) PointerEnter(n *html.Node) {
	if !s.listenersInstalled || !s.active || s.ignorable(n) {
		return
	}
	if k := attr(n, s.cfg.KeyAttr); k != "" && (k == s.hoveredKey || k == s.selectedKey) {
		return
	}

	s.clearHover()
	addClass(n, s.cfg.HoverClass)
	s.hoveredKey = s.doc.Key(n)
	s.post(bridge.NewEvent(bridge.ElementHover, Describe(s.doc, n, s.cfg), s.seq))
}

// PointerLeave handles the pointer leaving n for related (nil when the
// pointer left the document). Moving into a descendant keeps the hover.
func (s *State) PointerLeave(n, related *html.Node) {
	if !s.listenersInstalled || !s.active {
		return
	}
	if related == nil || !contains(n, related) {
		s.clearHover()
	}
}

// Click handles a click on n and reports whether the default action and
// propagation were suppressed.
func (s *State) Click(n *html.Node) bool {
	if !s.listenersInstalled || !s.active {
		return false
	}
	if s.ignorable(n) {
		return true
	}

	s.clearSelected()
	s.clearHover()
	addClass(n, s.cfg.SelectedClass)
	s.selectedKey = s.doc.Key(n)
	s.post(bridge.NewEvent(bridge.ElementSelected, Describe(s.doc, n, s.cfg), s.seq))
	return true
}

func (s *State) ignorable(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return true
	}
	switch n.DataAtom {
	case atom.Body, atom.Html, atom.Script, atom.Style:
		return true
	}
	return false
}

func (s *State) clearHover() {
	if n := s.doc.Lookup(s.hoveredKey); n != nil {
		removeClass(n, s.cfg.HoverClass)
	}
	s.hoveredKey = ""
}

func (s *State) clearSelected() {
	for _, n := range s.doc.WithClass(s.cfg.SelectedClass) {
		removeClass(n, s.cfg.SelectedClass)
	}
	s.selectedKey = ""
}

func (s *State) injectStyles() {
	if s.doc.ElementByID(s.cfg.StyleID) != nil {
		return
	}
	parent := s.doc.Head()
	if parent == nil {
		parent = s.doc.DocumentElement()
	}
	if parent == nil {
		return
	}
	style := &html.Node{
		Type:     html.ElementNode,
		Data:     "style",
		DataAtom: atom.Style,
		Attr:     []html.Attribute{{Key: "id", Val: s.cfg.StyleID}},
	}
	style.AppendChild(&html.Node{Type: html.TextNode, Data: s.cfg.CSS})
	parent.AppendChild(style)
}

func (s *State) installListeners() {
	if s.listenersInstalled || s.doc.Body() == nil {
		return
	}
	s.listenersInstalled = true
}
