package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hazyhaar/weaver/bridge"
	"github.com/hazyhaar/weaver/editor/internal/browser"
	"github.com/hazyhaar/weaver/editor/internal/sink"
	"github.com/hazyhaar/weaver/editor/internal/store"
)

// DefaultFrameSelector matches the preview iframe of the host page.
const DefaultFrameSelector = "#weaver-preview"

// historySize bounds the in-memory selection history kept without a Store.
const historySize = 100

// SessionConfig configures a Session.
type SessionConfig struct {
	ID            string // generated (UUIDv7) when empty
	HostURL       string // host page embedding the preview iframe
	FrameSelector string // default DefaultFrameSelector
	Browser       BrowserConfig
	Controller    ControllerConfig
	Store         *Store // optional; selections are also kept in memory
	Sinks         []Sink
	HoverEvents   bool // forward ELEMENT_HOVER records to sinks
	Logger        *slog.Logger
}

// Session is one editing session: a Controller bound to a preview frame,
// with peer events turned into Records and fanned out to sinks.
type Session struct {
	id     string
	cfg    SessionConfig
	ctrl   *Controller
	router *sink.Router
	logger *slog.Logger

	mu       sync.Mutex
	ctx      context.Context
	history  []bridge.Record // newest last
	selected *bridge.ElementDescriptor

	mgr    *browser.Manager
	host   *browser.Host
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSession creates a Session. It has no frame until Open or Attach.
func NewSession(cfg SessionConfig) *Session {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ID == "" {
		cfg.ID = newID()
	}
	if cfg.FrameSelector == "" {
		cfg.FrameSelector = DefaultFrameSelector
	}
	if cfg.Controller.Logger == nil {
		cfg.Controller.Logger = cfg.Logger
	}

	s := &Session{
		id:     cfg.ID,
		cfg:    cfg,
		router: sink.NewRouter(cfg.Logger, cfg.Sinks...),
		logger: cfg.Logger.With("session", cfg.ID),
		ctx:    context.Background(),
	}
	if cfg.Store != nil {
		s.router.Add(sink.NewStore(cfg.Store))
	}
	s.ctrl = New(Callbacks{
		OnElementSelected: s.onSelected,
		OnElementHover:    s.onHover,
	}, cfg.Controller)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Controller returns the underlying controller.
func (s *Session) Controller() *Controller { return s.ctrl }

// Attach binds the session to a frame directly, without a browser.
func (s *Session) Attach(frame bridge.Frame) {
	s.ctrl.Init(frame)
}

// Open starts Chrome, loads the host page, binds its preview iframe and
// starts relaying messages. It returns once the host page has loaded.
func (s *Session) Open(ctx context.Context) error {
	if s.cfg.HostURL == "" {
		return fmt.Errorf("editor: session has no host URL")
	}
	bcfg := s.cfg.Browser
	if bcfg.Logger == nil {
		bcfg.Logger = s.logger
	}
	mgr := browser.NewManager(bcfg)
	if _, err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("editor: start browser: %w", err)
	}

	host, err := browser.OpenHost(ctx, mgr, s.cfg.HostURL)
	if err != nil {
		mgr.Close()
		return fmt.Errorf("editor: open host: %w", err)
	}

	lctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.mgr, s.host, s.cancel = mgr, host, cancel
	s.ctx = lctx
	s.done = make(chan struct{})
	s.mu.Unlock()

	s.Attach(host.Frame(s.cfg.FrameSelector))

	go func() {
		defer close(s.done)
		host.Listen(lctx, s.Deliver)
	}()

	s.logger.Info("editor: session open", "host", s.cfg.HostURL, "frame", s.cfg.FrameSelector)
	return nil
}

// Deliver routes one relayed message: frame load notices go to
// OnFrameLoad, everything else to HandleFrameMessage.
func (s *Session) Deliver(ev bridge.Event) {
	if m, err := bridge.Decode(ev.Data); err == nil && m.Type == bridge.FrameLoaded {
		s.ctrl.OnFrameLoad()
		return
	}
	s.ctrl.HandleFrameMessage(ev)
}

func (s *Session) onSelected(el bridge.ElementDescriptor) {
	rec := s.record(bridge.ElementSelected, el)

	s.mu.Lock()
	s.selected = &rec.Element
	s.history = append(s.history, rec)
	if len(s.history) > historySize {
		s.history = s.history[len(s.history)-historySize:]
	}
	s.mu.Unlock()

	s.emit(rec)
}

func (s *Session) onHover(el bridge.ElementDescriptor) {
	if !s.cfg.HoverEvents {
		return
	}
	s.emit(s.record(bridge.ElementHover, el))
}

func (s *Session) record(kind bridge.MessageType, el bridge.ElementDescriptor) bridge.Record {
	return bridge.Record{
		ID:        newID(),
		SessionID: s.id,
		Kind:      kind,
		Element:   el,
		PeerSeq:   s.ctrl.PeerSeq(),
		Timestamp: time.Now().UnixMilli(),
	}
}

func (s *Session) emit(rec bridge.Record) {
	s.mu.Lock()
	parent := s.ctx
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(parent, 10*time.Second)
	defer cancel()
	if err := s.router.Send(ctx, rec); err != nil {
		s.logger.Warn("editor: sink", "kind", rec.Kind, "error", err)
	}
}

// Enable turns edit mode on.
func (s *Session) Enable() { s.ctrl.EnableEditMode() }

// Disable turns edit mode off and forgets the current selection.
func (s *Session) Disable() {
	s.ctrl.DisableEditMode()
	s.mu.Lock()
	s.selected = nil
	s.mu.Unlock()
}

// Toggle flips edit mode and returns the new state.
func (s *Session) Toggle() bool {
	if s.ctrl.Active() {
		s.Disable()
		return false
	}
	s.Enable()
	return s.ctrl.Active()
}

// ClearSelection asks the peer to drop its selection.
func (s *Session) ClearSelection() {
	s.ctrl.ClearSelection()
	s.mu.Lock()
	s.selected = nil
	s.mu.Unlock()
}

// Status is a point-in-time view of a session.
type Status struct {
	SessionID  string                    `json:"session_id"`
	HostURL    string                    `json:"host_url,omitempty"`
	Active     bool                      `json:"active"`
	Injection  InjectionState            `json:"injection"`
	PeerSeq    uint64                    `json:"peer_seq"`
	Selected   *bridge.ElementDescriptor `json:"selected,omitempty"`
	Selections int                       `json:"selections"`
	Last       *bridge.Record            `json:"last,omitempty"`       // latest ELEMENT_SELECTED, kept across disable
	HeapBytes  int64                     `json:"heap_bytes,omitempty"` // JS heap of the host tab
}

// Status reports the session state. With a Store, Last is read from it and
// so survives a restart that reuses the session ID.
func (s *Session) Status(ctx context.Context) Status {
	st := Status{
		SessionID: s.id,
		HostURL:   s.cfg.HostURL,
		Active:    s.ctrl.Active(),
		Injection: s.ctrl.InjectionState(),
		PeerSeq:   s.ctrl.PeerSeq(),
	}
	s.mu.Lock()
	if s.selected != nil {
		el := *s.selected
		st.Selected = &el
	}
	st.Selections = len(s.history)
	if n := len(s.history); n > 0 && s.cfg.Store == nil {
		rec := s.history[n-1]
		st.Last = &rec
	}
	host := s.host
	s.mu.Unlock()

	if s.cfg.Store != nil {
		rec, err := s.cfg.Store.Last(ctx, s.id)
		switch {
		case err == nil:
			st.Last = &rec
		case !errors.Is(err, store.ErrNoRecords):
			s.logger.Warn("editor: status last selection", "error", err)
		}
	}
	if host != nil {
		if n, err := host.HeapUsage(); err == nil {
			st.HeapBytes = n
		} else {
			s.logger.Debug("editor: status heap", "error", err)
		}
	}
	return st
}

// Selections returns up to limit selection records, newest first. With a
// Store the history survives restarts; otherwise it is the in-memory tail.
func (s *Session) Selections(ctx context.Context, limit int) ([]bridge.Record, error) {
	if limit <= 0 {
		limit = 20
	}
	if s.cfg.Store != nil {
		return s.cfg.Store.List(ctx, s.id, bridge.ElementSelected, limit)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]bridge.Record, 0, min(limit, len(s.history)))
	for i := len(s.history) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.history[i])
	}
	return out, nil
}

// Close stops relaying, closes the host tab and browser, then the sinks.
// The Store is owned by the caller.
func (s *Session) Close() error {
	s.mu.Lock()
	cancel, done, host, mgr := s.cancel, s.done, s.host, s.mgr
	s.cancel, s.host, s.mgr = nil, nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if host != nil {
		host.Close()
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			s.logger.Warn("editor: listener did not stop")
		}
	}
	if mgr != nil {
		mgr.Close()
	}
	s.logger.Info("editor: session closed")
	return s.router.Close()
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}
