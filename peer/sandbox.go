package peer

import (
	"fmt"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/weaver/bridge"
)

// Sandbox is an in-process bridge.Frame over a parsed Document. Appending
// the peer script element boots a State on the document, the way a browser
// would execute it; posted control messages reach that State and its
// events are delivered to the host handler.
//
// Events are delivered after the sandbox lock is released, so the handler
// may call back into the sandbox.
type Sandbox struct {
	mu          sync.Mutex
	doc         *Document
	scriptID    string
	ready       bool
	crossOrigin bool
	detached    bool
	state       *State
	received    []bridge.Message
	outbox      []bridge.Message
	toHost      func(bridge.Event)
}

// NewSandbox creates a ready, same-origin sandbox around doc. toHost
// receives peer events and may be nil.
func NewSandbox(doc *Document, toHost func(bridge.Event)) *Sandbox {
	if toHost == nil {
		toHost = func(bridge.Event) {}
	}
	return &Sandbox{
		doc:      doc,
		scriptID: DefaultConfig().ScriptID,
		ready:    true,
		toHost:   toHost,
	}
}

// SetReady toggles whether the document reports itself as parsed.
func (s *Sandbox) SetReady(ready bool) {
	s.mu.Lock()
	s.ready = ready
	s.mu.Unlock()
}

// SetCrossOrigin makes document access fail with bridge.ErrCrossOrigin.
func (s *Sandbox) SetCrossOrigin(v bool) {
	s.mu.Lock()
	s.crossOrigin = v
	s.mu.Unlock()
}

// Detach drops the browsing context: ContentWindow returns nil.
func (s *Sandbox) Detach() {
	s.mu.Lock()
	s.detached = true
	s.mu.Unlock()
}

// Navigate replaces the document. The running peer, if any, is discarded
// with the old document.
func (s *Sandbox) Navigate(doc *Document) {
	s.mu.Lock()
	s.doc = doc
	s.state = nil
	s.mu.Unlock()
}

// Document returns the current document. Callers must not mutate it while
// the sandbox is in use by another goroutine.
func (s *Sandbox) Document() *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// Peer returns the running peer, nil before injection.
func (s *Sandbox) Peer() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Received returns every message posted into the frame, in order, whether
// or not a peer was listening.
func (s *Sandbox) Received() []bridge.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bridge.Message(nil), s.received...)
}

// ContentWindow implements bridge.Frame.
func (s *Sandbox) ContentWindow() bridge.Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached {
		return nil
	}
	return sandboxWindow{s}
}

// ContentDocument implements bridge.Frame.
func (s *Sandbox) ContentDocument() (bridge.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.detached:
		return nil, bridge.ErrNoFrame
	case s.crossOrigin:
		return nil, bridge.ErrCrossOrigin
	case !s.ready:
		return nil, bridge.ErrNotReady
	}
	return sandboxDocument{s}, nil
}

// Hover moves the pointer onto the element matching selector.
func (s *Sandbox) Hover(selector string) error {
	return s.pointer(selector, func(st *State, n *html.Node) { st.PointerEnter(n) })
}

// Leave moves the pointer from the element matching selector to the one
// matching related ("" for outside the document).
func (s *Sandbox) Leave(selector, related string) error {
	return s.pointer(selector, func(st *State, n *html.Node) {
		var rel *html.Node
		if related != "" {
			rel, _ = Resolve(s.doc, related)
		}
		st.PointerLeave(n, rel)
	})
}

// Click clicks the element matching selector.
func (s *Sandbox) Click(selector string) error {
	return s.pointer(selector, func(st *State, n *html.Node) { st.Click(n) })
}

func (s *Sandbox) pointer(selector string, fn func(*State, *html.Node)) error {
	s.mu.Lock()
	n, err := Resolve(s.doc, selector)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if s.state != nil {
		fn(s.state, n)
	}
	s.mu.Unlock()
	s.flush()
	return nil
}

// flush delivers queued peer events outside the lock.
func (s *Sandbox) flush() {
	s.mu.Lock()
	out := s.outbox
	s.outbox = nil
	origin := s.doc.Origin()
	s.mu.Unlock()

	for _, m := range out {
		data, err := bridge.Encode(m)
		if err != nil {
			continue
		}
		s.toHost(bridge.Event{Origin: origin, Data: data})
	}
}

type sandboxWindow struct{ s *Sandbox }

// PostMessage round-trips the message through JSON, as structured clone
// would, and hands it to the peer if one is running.
func (w sandboxWindow) PostMessage(msg bridge.Message, targetOrigin string) error {
	data, err := bridge.Encode(msg)
	if err != nil {
		return fmt.Errorf("sandbox: encode: %w", err)
	}
	cloned, err := bridge.Decode(data)
	if err != nil {
		return fmt.Errorf("sandbox: decode: %w", err)
	}

	s := w.s
	s.mu.Lock()
	s.received = append(s.received, cloned)
	if s.state != nil {
		s.state.HandleControl(cloned)
	}
	s.mu.Unlock()
	s.flush()
	return nil
}

type sandboxDocument struct{ s *Sandbox }

func (d sandboxDocument) HasElement(id string) (bool, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	return d.s.doc.ElementByID(id) != nil, nil
}

// AppendHeadScript inserts the element and, when it is the peer script,
// boots a State as the browser would run it.
func (d sandboxDocument) AppendHeadScript(el bridge.ScriptElement) error {
	s := d.s
	s.mu.Lock()
	defer s.mu.Unlock()

	head := s.doc.Head()
	if head == nil {
		return fmt.Errorf("sandbox: document has no head")
	}
	script := &html.Node{
		Type:     html.ElementNode,
		Data:     "script",
		DataAtom: atom.Script,
		Attr:     []html.Attribute{{Key: "id", Val: el.ID}},
	}
	for k, v := range el.Data {
		script.Attr = append(script.Attr, html.Attribute{Key: "data-" + k, Val: v})
	}
	script.AppendChild(&html.Node{Type: html.TextNode, Data: el.Source})
	head.AppendChild(script)

	if el.ID == s.scriptID || el.Source == peerJS {
		cfg := ConfigFromElement(el)
		s.state = NewState(s.doc, cfg, func(m bridge.Message) {
			s.outbox = append(s.outbox, m)
		})
	}
	return nil
}
