package bridge

import "errors"

var (
	// ErrNotReady means the embedded document exists but has not finished
	// parsing. Callers may retry.
	ErrNotReady = errors.New("bridge: document not ready")

	// ErrCrossOrigin means the host is not allowed to reach into the
	// embedded document. This is structural and never retried.
	ErrCrossOrigin = errors.New("bridge: cross-origin document")

	// ErrNoFrame means no frame is bound or the frame has gone away.
	ErrNoFrame = errors.New("bridge: no frame")
)

// WildcardOrigin is the target origin used for every host → peer send.
// The embedded document is not assumed to live at a known origin.
const WildcardOrigin = "*"

// Frame is the host's handle to an embedded browsing context.
type Frame interface {
	// ContentWindow returns the frame's window, or nil when the frame has
	// no browsing context.
	ContentWindow() Window

	// ContentDocument returns the frame's document once it is reachable and
	// fully parsed. It returns ErrNotReady while loading and ErrCrossOrigin
	// when same-origin access is denied.
	ContentDocument() (Document, error)
}

// Window posts structured messages into a browsing context.
type Window interface {
	PostMessage(msg Message, targetOrigin string) error
}

// Document is the subset of a DOM document the host needs for injection.
type Document interface {
	// HasElement reports whether an element with the given id exists.
	HasElement(id string) (bool, error)

	// AppendHeadScript creates a script element and appends it to <head>.
	AppendHeadScript(el ScriptElement) error
}

// ScriptElement describes a script to inject. Data entries become
// data-* attributes on the element.
type ScriptElement struct {
	ID     string
	Source string
	Data   map[string]string
}
