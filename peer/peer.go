// Package peer holds the program injected into the embedded document and a
// Go model of the same program.
//
// peer.js is a static artifact. Its only inputs are read from the data-config
// attribute of the script element the host injects, so the host never builds
// script source at runtime. The Go model (State, GenerateSelector, Describe,
// Sandbox) implements identical semantics over golang.org/x/net/html and is
// what the tests and the command line tools exercise.
package peer

import (
	_ "embed"
	"encoding/json"

	"github.com/hazyhaar/weaver/bridge"
)

//go:embed peer.js
var peerJS string

//go:embed peer.css
var peerCSS string

// Class names applied by the peer for visual feedback. They are fixed
// because peer.css refers to them.
const (
	HoverClass    = "edit-hover"
	SelectedClass = "edit-selected"
)

// Config carries the sentinel ids and constants the peer program reads from
// its script element.
type Config struct {
	ScriptID      string `json:"scriptId"`
	StyleID       string `json:"styleId"`
	TipID         string `json:"tipId"`
	KeyAttr       string `json:"keyAttr"`
	HoverClass    string `json:"hoverClass"`
	SelectedClass string `json:"selectedClass"`
	TextLimit     int    `json:"textLimit"`
	CSS           string `json:"css"`
}

// DefaultConfig returns the ids used by the visual editor.
func DefaultConfig() Config {
	return Config{
		ScriptID:      "visual-edit-script",
		StyleID:       "edit-mode-styles",
		TipID:         "edit-tip",
		KeyAttr:       "data-weaver-key",
		HoverClass:    HoverClass,
		SelectedClass: SelectedClass,
		TextLimit:     bridge.MaxTextContent,
		CSS:           peerCSS,
	}
}

func (c *Config) defaults() {
	d := DefaultConfig()
	if c.ScriptID == "" {
		c.ScriptID = d.ScriptID
	}
	if c.StyleID == "" {
		c.StyleID = d.StyleID
	}
	if c.TipID == "" {
		c.TipID = d.TipID
	}
	if c.KeyAttr == "" {
		c.KeyAttr = d.KeyAttr
	}
	// Class names are pinned to the stylesheet.
	c.HoverClass = HoverClass
	c.SelectedClass = SelectedClass
	if c.TextLimit <= 0 || c.TextLimit > bridge.MaxTextContent {
		c.TextLimit = bridge.MaxTextContent
	}
	if c.CSS == "" {
		c.CSS = peerCSS
	}
}

// Script returns the peer program source.
func Script() string { return peerJS }

// Stylesheet returns the stylesheet the peer injects once per document.
func Stylesheet() string { return peerCSS }

// ScriptElement returns the element the host appends to the embedded
// document's head.
func ScriptElement(cfg Config) bridge.ScriptElement {
	cfg.defaults()
	data, _ := json.Marshal(cfg)
	return bridge.ScriptElement{
		ID:     cfg.ScriptID,
		Source: peerJS,
		Data:   map[string]string{"config": string(data)},
	}
}

// ConfigFromElement recovers the configuration carried by a script element
// built with ScriptElement. Missing or invalid data yields the defaults.
func ConfigFromElement(el bridge.ScriptElement) Config {
	var cfg Config
	if raw, ok := el.Data["config"]; ok {
		_ = json.Unmarshal([]byte(raw), &cfg)
	}
	cfg.defaults()
	return cfg
}
