package peer

import (
	"errors"
	"sync"
	"testing"

	"github.com/hazyhaar/weaver/bridge"
)

type hostLog struct {
	mu     sync.Mutex
	events []bridge.Event
}

func (h *hostLog) deliver(e bridge.Event) {
	h.mu.Lock()
	h.events = append(h.events, e)
	h.mu.Unlock()
}

func (h *hostLog) messages(t *testing.T) []bridge.Message {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]bridge.Message, 0, len(h.events))
	for _, e := range h.events {
		m, err := bridge.Decode(e.Data)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, m)
	}
	return out
}

func newSandbox(t *testing.T) (*Sandbox, *hostLog) {
	t.Helper()
	h := &hostLog{}
	return NewSandbox(mustParse(t, tipPage, "http://localhost:7000/preview/app?v=1"), h.deliver), h
}

func inject(t *testing.T, sb *Sandbox) {
	t.Helper()
	doc, err := sb.ContentDocument()
	if err != nil {
		t.Fatal(err)
	}
	if err := doc.AppendHeadScript(ScriptElement(DefaultConfig())); err != nil {
		t.Fatal(err)
	}
}

func TestSandboxInjection(t *testing.T) {
	sb, _ := newSandbox(t)
	doc, err := sb.ContentDocument()
	if err != nil {
		t.Fatal(err)
	}

	has, err := doc.HasElement("visual-edit-script")
	if err != nil || has {
		t.Fatalf("before injection: has=%v err=%v", has, err)
	}
	if sb.Peer() != nil {
		t.Fatal("peer running before injection")
	}

	inject(t, sb)

	has, _ = doc.HasElement("visual-edit-script")
	if !has {
		t.Error("script sentinel missing after injection")
	}
	if sb.Peer() == nil || !sb.Peer().Active() {
		t.Error("peer should boot active")
	}
	script := sb.Document().ElementByID("visual-edit-script")
	if attr(script, "data-config") == "" {
		t.Error("script element lost its data-config")
	}
}

func TestSandboxEventsCarryOrigin(t *testing.T) {
	sb, h := newSandbox(t)
	inject(t, sb)

	if err := sb.Hover("main:nth-child(2) > h1:nth-child(1)"); err != nil {
		t.Fatal(err)
	}
	if err := sb.Click("main:nth-child(2) > p.lead:nth-child(2)"); err != nil {
		t.Fatal(err)
	}

	h.mu.Lock()
	if len(h.events) != 2 {
		h.mu.Unlock()
		t.Fatalf("events: got %d, want 2", len(h.events))
	}
	if h.events[0].Origin != "http://localhost:7000" {
		t.Errorf("origin: got %q", h.events[0].Origin)
	}
	h.mu.Unlock()

	msgs := h.messages(t)
	if msgs[0].Type != bridge.ElementHover || msgs[1].Type != bridge.ElementSelected {
		t.Errorf("types: got %s, %s", msgs[0].Type, msgs[1].Type)
	}
	el := msgs[1].Element()
	if el.TagName != "P" || el.PagePath != "?v=1" || el.TextContent != "Intro bold" {
		t.Errorf("selected: got %+v", el)
	}
}

func TestSandboxControlReachesPeer(t *testing.T) {
	sb, h := newSandbox(t)
	inject(t, sb)

	w := sb.ContentWindow()
	if err := w.PostMessage(bridge.Toggle(false), "*"); err != nil {
		t.Fatal(err)
	}
	if sb.Peer().Active() {
		t.Error("peer still active after toggle off")
	}
	_ = sb.Hover("main:nth-child(2) > h1:nth-child(1)")
	if len(h.messages(t)) != 0 {
		t.Error("inactive peer reported a hover")
	}

	got := sb.Received()
	if len(got) != 1 || got[0].Type != bridge.ToggleEditMode || got[0].EditModeOn() {
		t.Errorf("received: got %+v", got)
	}
}

func TestSandboxMessagesBeforeInjectionAreDropped(t *testing.T) {
	sb, _ := newSandbox(t)
	if err := sb.ContentWindow().PostMessage(bridge.Toggle(false), "*"); err != nil {
		t.Fatal(err)
	}
	inject(t, sb)
	if !sb.Peer().Active() {
		t.Error("a message posted before injection reached the peer")
	}
	if len(sb.Received()) != 1 {
		t.Error("sandbox should still record the message")
	}
}

func TestSandboxDocumentAccess(t *testing.T) {
	sb, _ := newSandbox(t)

	sb.SetReady(false)
	if _, err := sb.ContentDocument(); !errors.Is(err, bridge.ErrNotReady) {
		t.Errorf("not ready: got %v", err)
	}
	sb.SetReady(true)

	sb.SetCrossOrigin(true)
	if _, err := sb.ContentDocument(); !errors.Is(err, bridge.ErrCrossOrigin) {
		t.Errorf("cross origin: got %v", err)
	}
	if sb.ContentWindow() == nil {
		t.Error("cross-origin frames still expose a window")
	}
	sb.SetCrossOrigin(false)

	sb.Detach()
	if sb.ContentWindow() != nil {
		t.Error("detached frame exposes a window")
	}
	if _, err := sb.ContentDocument(); !errors.Is(err, bridge.ErrNoFrame) {
		t.Errorf("detached: got %v", err)
	}
}

func TestSandboxNavigateDropsPeer(t *testing.T) {
	sb, _ := newSandbox(t)
	inject(t, sb)

	sb.Navigate(mustParse(t, tipPage, "http://localhost:7000/preview/app/other"))
	if sb.Peer() != nil {
		t.Error("peer survived navigation")
	}
	doc, _ := sb.ContentDocument()
	if has, _ := doc.HasElement("visual-edit-script"); has {
		t.Error("new document already carries the script")
	}
}

func TestSandboxHandlerMayReenter(t *testing.T) {
	var sb *Sandbox
	var reentered bool
	d := mustParse(t, tipPage, "http://localhost/preview/app")
	sb = NewSandbox(d, func(bridge.Event) {
		// Deadlocks if events are delivered under the sandbox lock.
		_ = sb.ContentWindow().PostMessage(bridge.Control(bridge.ClearSelection), "*")
		reentered = true
	})
	inject(t, sb)
	if err := sb.Click("main:nth-child(2) > h1:nth-child(1)"); err != nil {
		t.Fatal(err)
	}
	if !reentered {
		t.Error("handler not called")
	}
	if sb.Peer().Selected() != nil {
		t.Error("selection should be cleared by the re-entrant message")
	}
}

func TestSandboxUnknownSelector(t *testing.T) {
	sb, _ := newSandbox(t)
	inject(t, sb)
	if err := sb.Click("article:nth-child(1)"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}
