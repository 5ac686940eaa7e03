package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/weaver/bridge"
)

// Host is the tab showing the host page: the page that embeds the preview
// iframe and relays its messages through bridge.BindingName.
type Host struct {
	Page    *rod.Page
	URL     string
	router  *rod.HijackRouter
	manager *Manager
}

// OpenHost opens a tab on hostURL. The relay binding is registered before
// navigation so that the host page finds it on its first script run.
func OpenHost(ctx context.Context, mgr *Manager, hostURL string) (*Host, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	var page *rod.Page
	var err error
	if mgr.cfg.Mode == ModeHeadless {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	h := &Host{Page: page, URL: hostURL, manager: mgr}

	if len(mgr.cfg.Block) > 0 {
		set, unknown := blockSet(mgr.cfg.Block)
		if len(unknown) > 0 {
			mgr.cfg.Logger.Warn("browser: unknown resource kinds", "kinds", unknown)
		}
		if len(set) > 0 {
			h.router = blockResources(page, set)
		}
	}

	if err := (proto.RuntimeAddBinding{Name: bridge.BindingName}).Call(page); err != nil {
		h.Close()
		return nil, fmt.Errorf("browser: add binding: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := page.Context(navCtx).Navigate(hostURL); err != nil {
		h.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", hostURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		mgr.cfg.Logger.Warn("browser: wait load timeout", "url", hostURL, "error", err)
	}
	return h, nil
}

// Frame returns the iframe matched by selector in the host page.
func (h *Host) Frame(selector string) *Frame {
	return &Frame{page: h.Page, selector: selector, timeout: 5 * time.Second}
}

// relayEnvelope is what the host page passes to the binding.
type relayEnvelope struct {
	Origin string          `json:"origin"`
	Data   json.RawMessage `json:"data"`
}

// Listen delivers relayed messages to fn until ctx is done. It blocks.
func (h *Host) Listen(ctx context.Context, fn func(bridge.Event)) {
	log := h.manager.cfg.Logger
	h.Page.Context(ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bridge.BindingName {
			return
		}
		var env relayEnvelope
		if err := json.Unmarshal([]byte(e.Payload), &env); err != nil {
			log.Debug("browser: bad relay payload", "error", err)
			return
		}
		fn(bridge.Event{Origin: env.Origin, Data: env.Data})
	})()
}

// HeapUsage reports the JS heap of the host tab, in bytes. The preview
// iframe shares the renderer, so its peer is included.
func (h *Host) HeapUsage() (int64, error) {
	p := h.Page.Timeout(2 * time.Second)
	defer p.CancelTimeout()
	res, err := p.Eval(`() => (performance.memory ? performance.memory.usedJSHeapSize : 0)`)
	if err != nil {
		return 0, fmt.Errorf("browser: heap: %w", err)
	}
	return int64(res.Value.Int()), nil
}

// Close closes the tab.
func (h *Host) Close() error {
	if h.router != nil {
		_ = h.router.Stop()
	}
	if h.Page != nil {
		return h.Page.Close()
	}
	return nil
}
