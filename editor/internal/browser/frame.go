package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/weaver/bridge"
)

// Frame is a bridge.Frame over an iframe of the host page. Every operation
// is a short script evaluated in the host page, which shares an origin with
// the preview and can therefore reach into the iframe's document.
type Frame struct {
	page     *rod.Page
	selector string
	timeout  time.Duration
}

var _ bridge.Frame = (*Frame)(nil)

// Frame states reported by probeJS.
const (
	stateNoFrame     = "no_frame"
	stateCrossOrigin = "cross_origin"
	stateNotReady    = "not_ready"
	stateReady       = "ready"
)

const probeJS = `(sel) => {
	const f = document.querySelector(sel);
	if (!f || !f.contentWindow) return 'no_frame';
	let d = null;
	try { d = f.contentDocument; } catch (e) { return 'cross_origin'; }
	if (!d) return 'cross_origin';
	if (d.location.href === 'about:blank' || d.readyState !== 'complete' || !d.head) return 'not_ready';
	return 'ready';
}`

const postJS = `(sel, raw, origin) => {
	const f = document.querySelector(sel);
	if (!f || !f.contentWindow) return false;
	f.contentWindow.postMessage(JSON.parse(raw), origin);
	return true;
}`

const hasElementJS = `(sel, id) => {
	const d = document.querySelector(sel).contentDocument;
	return !!(d && d.getElementById(id));
}`

const appendScriptJS = `(sel, id, src, rawData) => {
	const d = document.querySelector(sel).contentDocument;
	const s = d.createElement('script');
	s.id = id;
	const data = JSON.parse(rawData);
	for (const k of Object.keys(data)) s.setAttribute('data-' + k, data[k]);
	s.textContent = src;
	d.head.appendChild(s);
	return true;
}`

func (f *Frame) eval(js string, args ...any) (*proto.RuntimeRemoteObject, error) {
	p := f.page.Timeout(f.timeout)
	defer p.CancelTimeout()
	return p.Eval(js, args...)
}

func (f *Frame) probe() (string, error) {
	res, err := f.eval(probeJS, f.selector)
	if err != nil {
		return "", fmt.Errorf("browser: probe frame: %w", err)
	}
	return res.Value.Str(), nil
}

// ContentWindow implements bridge.Frame. It returns nil when the iframe is
// missing or detached.
func (f *Frame) ContentWindow() bridge.Window {
	st, err := f.probe()
	if err != nil || st == stateNoFrame {
		return nil
	}
	return frameWindow{f}
}

// ContentDocument implements bridge.Frame.
func (f *Frame) ContentDocument() (bridge.Document, error) {
	st, err := f.probe()
	if err != nil {
		return nil, frameError(err)
	}
	switch st {
	case stateReady:
		return frameDocument{f}, nil
	case stateNotReady:
		return nil, bridge.ErrNotReady
	case stateCrossOrigin:
		return nil, bridge.ErrCrossOrigin
	default:
		return nil, bridge.ErrNoFrame
	}
}

// frameError classifies a failed frame check. A timeout means the host page is
// busy and is retried like a document still loading; anything else means
// the host page is gone.
func frameError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", bridge.ErrNotReady, err)
	}
	return fmt.Errorf("%w: %v", bridge.ErrNoFrame, err)
}

type frameWindow struct{ f *Frame }

func (w frameWindow) PostMessage(msg bridge.Message, targetOrigin string) error {
	raw, err := bridge.Encode(msg)
	if err != nil {
		return fmt.Errorf("browser: encode: %w", err)
	}
	res, err := w.f.eval(postJS, w.f.selector, string(raw), targetOrigin)
	if err != nil {
		return fmt.Errorf("browser: post: %w", err)
	}
	if !res.Value.Bool() {
		return bridge.ErrNoFrame
	}
	return nil
}

type frameDocument struct{ f *Frame }

func (d frameDocument) HasElement(id string) (bool, error) {
	res, err := d.f.eval(hasElementJS, d.f.selector, id)
	if err != nil {
		return false, fmt.Errorf("browser: has element: %w", err)
	}
	return res.Value.Bool(), nil
}

func (d frameDocument) AppendHeadScript(el bridge.ScriptElement) error {
	data, err := json.Marshal(el.Data)
	if err != nil {
		return fmt.Errorf("browser: script data: %w", err)
	}
	if _, err := d.f.eval(appendScriptJS, d.f.selector, el.ID, el.Source, string(data)); err != nil {
		return fmt.Errorf("browser: append script: %w", err)
	}
	return nil
}
