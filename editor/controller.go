package editor

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/weaver/bridge"
	"github.com/hazyhaar/weaver/peer"
)

// Callbacks are the host hooks for peer events. Either may be nil, in which
// case the corresponding event is dropped.
type Callbacks struct {
	OnElementSelected func(bridge.ElementDescriptor)
	OnElementHover    func(bridge.ElementDescriptor)
}

// ControllerConfig tunes a Controller. Zero values select the defaults.
type ControllerConfig struct {
	EnableDelay     time.Duration // before the first injection, default 300ms
	ReloadDelay     time.Duration // after a frame load, default 500ms
	PollInterval    time.Duration // between readiness checks, default 100ms
	MaxPollAttempts int           // readiness checks per injection, default 100
	Peer            peer.Config
	Clock           Clock
	Logger          *slog.Logger
}

// Default controller timings.
const (
	DefaultEnableDelay     = 300 * time.Millisecond
	DefaultReloadDelay     = 500 * time.Millisecond
	DefaultPollInterval    = 100 * time.Millisecond
	DefaultMaxPollAttempts = 100
)

func (c *ControllerConfig) defaults() {
	if c.EnableDelay <= 0 {
		c.EnableDelay = DefaultEnableDelay
	}
	if c.ReloadDelay <= 0 {
		c.ReloadDelay = DefaultReloadDelay
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MaxPollAttempts <= 0 {
		c.MaxPollAttempts = DefaultMaxPollAttempts
	}
	if c.Peer == (peer.Config{}) {
		c.Peer = peer.DefaultConfig()
	}
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// InjectionState is the outcome of the most recent injection attempt.
type InjectionState string

const (
	InjectionIdle      InjectionState = "idle"
	InjectionPolling   InjectionState = "polling"
	InjectionInjected  InjectionState = "injected"  // script appended
	InjectionReenabled InjectionState = "reenabled" // script present, TOGGLE_EDIT_MODE sent
	InjectionBlocked   InjectionState = "blocked"   // document unreachable for good
	InjectionGaveUp    InjectionState = "gave_up"   // attempts exhausted
	InjectionNoFrame   InjectionState = "no_frame"
)

// Controller is the host side of the visual edit bridge. It owns the edit
// mode flag and the frame reference, injects the peer, sends control
// messages and dispatches peer events to Callbacks.
//
// Timers fire on their own goroutines. The mutex guards state only; frames
// and callbacks are always called with it released.
type Controller struct {
	cb     Callbacks
	cfg    ControllerConfig
	logger *slog.Logger

	mu        sync.Mutex
	frame     bridge.Frame
	active    bool
	injection InjectionState
	gen       uint64 // injection generation; a newer injection retires older polls
	seq       uint64 // last control seq stamped
	peerSeq   uint64 // highest seq echoed by the peer
}

// New creates a Controller. It is inert until Init binds a frame.
func New(cb Callbacks, cfg ControllerConfig) *Controller {
	cfg.defaults()
	return &Controller{
		cb:        cb,
		cfg:       cfg,
		logger:    cfg.Logger,
		injection: InjectionIdle,
	}
}

// Init binds the controller to a frame. Calling it again rebinds.
func (c *Controller) Init(frame bridge.Frame) {
	c.mu.Lock()
	c.frame = frame
	c.mu.Unlock()
}

// Active reports whether edit mode is on.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// InjectionState reports the state of the latest injection.
func (c *Controller) InjectionState() InjectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.injection
}

// PeerSeq is the highest control sequence number the peer has echoed.
func (c *Controller) PeerSeq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peerSeq
}

// EnableEditMode turns edit mode on and schedules injection after
// EnableDelay. Without a frame it does nothing.
func (c *Controller) EnableEditMode() {
	c.mu.Lock()
	if c.frame == nil {
		c.mu.Unlock()
		c.logger.Debug("editor: enable ignored, no frame")
		return
	}
	c.active = true
	c.mu.Unlock()

	c.cfg.Clock.AfterFunc(c.cfg.EnableDelay, c.inject)
}

// DisableEditMode turns edit mode off and tells the peer to drop every
// effect. Both messages are sent even if the peer was never injected.
func (c *Controller) DisableEditMode() {
	c.mu.Lock()
	c.active = false
	c.mu.Unlock()

	c.send(bridge.Toggle(false))
	c.send(bridge.Control(bridge.ClearAllEffects))
}

// ToggleEditMode flips edit mode and returns the new state.
func (c *Controller) ToggleEditMode() bool {
	if c.Active() {
		c.DisableEditMode()
	} else {
		c.EnableEditMode()
	}
	return c.Active()
}

// SyncState re-sends CLEAR_ALL_EFFECTS when edit mode is off.
func (c *Controller) SyncState() {
	if !c.Active() {
		c.send(bridge.Control(bridge.ClearAllEffects))
	}
}

// ClearSelection asks the peer to drop its selection.
func (c *Controller) ClearSelection() {
	c.send(bridge.Control(bridge.ClearSelection))
}

// OnFrameLoad must be called whenever the frame finishes loading. The new
// document has no peer, so after ReloadDelay the controller re-injects if
// edit mode is on, or resyncs if it is off.
func (c *Controller) OnFrameLoad() {
	c.cfg.Clock.AfterFunc(c.cfg.ReloadDelay, func() {
		if c.Active() {
			c.inject()
			return
		}
		c.SyncState()
	})
}

// HandleFrameMessage dispatches one inbound message. Malformed input and
// unknown types are ignored.
func (c *Controller) HandleFrameMessage(ev bridge.Event) {
	m, err := bridge.Decode(ev.Data)
	if err != nil {
		c.logger.Debug("editor: drop message", "origin", ev.Origin, "error", err)
		return
	}
	if !m.Type.IsEvent() {
		return
	}

	if m.Data != nil {
		c.mu.Lock()
		if m.Data.Seq > c.peerSeq {
			c.peerSeq = m.Data.Seq
		}
		c.mu.Unlock()
	}

	el := m.Element()
	if el == nil {
		return
	}
	switch m.Type {
	case bridge.ElementSelected:
		if c.cb.OnElementSelected != nil {
			c.cb.OnElementSelected(*el)
		}
	case bridge.ElementHover:
		if c.cb.OnElementHover != nil {
			c.cb.OnElementHover(*el)
		}
	}
}

// send stamps a sequence number and posts m to the frame's window. Sends
// without a frame or window are dropped.
func (c *Controller) send(m bridge.Message) {
	c.mu.Lock()
	frame := c.frame
	c.seq++
	m.Seq = c.seq
	c.mu.Unlock()

	if frame == nil {
		c.logger.Debug("editor: drop control, no frame", "type", m.Type)
		return
	}
	w := frame.ContentWindow()
	if w == nil {
		c.logger.Debug("editor: drop control, no window", "type", m.Type)
		return
	}
	if err := w.PostMessage(m, bridge.WildcardOrigin); err != nil {
		c.logger.Debug("editor: post failed", "type", m.Type, "error", err)
	}
}

// inject starts a new bounded polling loop. The first check runs
// immediately.
func (c *Controller) inject() {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	frame := c.frame
	if frame == nil {
		c.injection = InjectionNoFrame
		c.mu.Unlock()
		return
	}
	c.injection = InjectionPolling
	c.mu.Unlock()

	c.attempt(gen, frame, 1)
}

func (c *Controller) attempt(gen uint64, frame bridge.Frame, n int) {
	if !c.current(gen) {
		return
	}
	if !c.Active() {
		// Disabled while the timer was pending.
		c.finish(gen, InjectionIdle)
		return
	}

	doc, err := frame.ContentDocument()
	switch {
	case errors.Is(err, bridge.ErrNotReady):
		if n >= c.cfg.MaxPollAttempts {
			c.finish(gen, InjectionGaveUp)
			c.logger.Debug("editor: injection gave up", "attempts", n)
			return
		}
		c.cfg.Clock.AfterFunc(c.cfg.PollInterval, func() { c.attempt(gen, frame, n+1) })
		return
	case errors.Is(err, bridge.ErrNoFrame):
		c.finish(gen, InjectionNoFrame)
		return
	case err != nil:
		c.finish(gen, InjectionBlocked)
		c.logger.Debug("editor: injection blocked", "error", err)
		return
	}

	present, err := doc.HasElement(c.cfg.Peer.ScriptID)
	if err != nil {
		c.finish(gen, InjectionBlocked)
		c.logger.Debug("editor: sentinel check failed", "error", err)
		return
	}
	if present {
		c.finish(gen, InjectionReenabled)
		c.send(bridge.Toggle(true))
		c.settle()
		return
	}

	if err := doc.AppendHeadScript(peer.ScriptElement(c.cfg.Peer)); err != nil {
		c.finish(gen, InjectionBlocked)
		c.logger.Debug("editor: append script failed", "error", err)
		return
	}
	c.finish(gen, InjectionInjected)
	c.logger.Debug("editor: peer injected", "attempts", n)
	c.settle()
}

// settle runs after an attempt has touched the peer. The document checks
// are round trips, so edit mode may have been turned off meanwhile; the
// peer then got TOGGLE_EDIT_MODE or booted active after the disable's
// CLEAR_ALL_EFFECTS, and is told again.
func (c *Controller) settle() {
	if !c.Active() {
		c.logger.Debug("editor: disabled during injection")
		c.send(bridge.Control(bridge.ClearAllEffects))
	}
}

func (c *Controller) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == gen
}

func (c *Controller) finish(gen uint64, st InjectionState) {
	c.mu.Lock()
	if c.gen == gen {
		c.injection = st
	}
	c.mu.Unlock()
}
