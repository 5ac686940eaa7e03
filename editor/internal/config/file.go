// Package config holds the weaver configuration, read from YAML with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level weaver configuration.
type Config struct {
	Listen  string        `yaml:"listen"`
	DB      string        `yaml:"db"`
	Preview PreviewConfig `yaml:"preview"`
	Browser BrowserConfig `yaml:"browser"`
	Editor  EditorConfig  `yaml:"editor"`
	Sinks   []SinkConfig  `yaml:"sinks"`
}

// PreviewConfig says where generated sites come from. Exactly one of Root
// and Upstream is used; Upstream wins when both are set.
type PreviewConfig struct {
	Root     string `yaml:"root"`     // directory holding one subdirectory per app
	Upstream string `yaml:"upstream"` // base URL of a dev server
}

// BrowserConfig controls Chrome.
type BrowserConfig struct {
	Remote      string   `yaml:"remote"`
	Mode        string   `yaml:"mode"` // headless | headful
	XvfbDisplay string   `yaml:"xvfb_display"`
	Block       []string `yaml:"block"` // images | fonts | media | stylesheets
}

// EditorConfig tunes the host controller.
type EditorConfig struct {
	EnableDelay     time.Duration `yaml:"enable_delay"`
	ReloadDelay     time.Duration `yaml:"reload_delay"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	MaxPollAttempts int           `yaml:"max_poll_attempts"`
	HoverEvents     bool          `yaml:"hover_events"` // forward ELEMENT_HOVER to sinks
}

// SinkConfig defines an output backend.
type SinkConfig struct {
	Type    string `yaml:"type"` // stdout | pretty | webhook | sqlite
	URL     string `yaml:"url"`  // webhook
	Retries int    `yaml:"retries"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Environment variables that override the file.
const (
	EnvListen      = "WEAVER_LISTEN"
	EnvPreviewRoot = "WEAVER_PREVIEW_ROOT"
	EnvUpstream    = "WEAVER_UPSTREAM"
	EnvRemote      = "WEAVER_BROWSER_REMOTE"
	EnvDB          = "WEAVER_DB"
)

// ApplyEnv overrides fields from the environment. getenv is usually
// os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvListen); v != "" {
		c.Listen = v
	}
	if v := getenv(EnvPreviewRoot); v != "" {
		c.Preview.Root = v
	}
	if v := getenv(EnvUpstream); v != "" {
		c.Preview.Upstream = v
	}
	if v := getenv(EnvRemote); v != "" {
		c.Browser.Remote = v
	}
	if v := getenv(EnvDB); v != "" {
		c.DB = v
	}
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8700"
	}
	if c.DB == "" {
		c.DB = "weaver.db"
	}
	if c.Preview.Root == "" && c.Preview.Upstream == "" {
		c.Preview.Root = "."
	}
	if c.Browser.Mode == "" {
		c.Browser.Mode = "headless"
	}
	if c.Editor.EnableDelay <= 0 {
		c.Editor.EnableDelay = 300 * time.Millisecond
	}
	if c.Editor.ReloadDelay <= 0 {
		c.Editor.ReloadDelay = 500 * time.Millisecond
	}
	if c.Editor.PollInterval <= 0 {
		c.Editor.PollInterval = 100 * time.Millisecond
	}
	if c.Editor.MaxPollAttempts <= 0 {
		c.Editor.MaxPollAttempts = 100
	}
	if len(c.Sinks) == 0 {
		c.Sinks = []SinkConfig{{Type: "stdout"}}
	}
	for i := range c.Sinks {
		if c.Sinks[i].Type == "webhook" && c.Sinks[i].Retries <= 0 {
			c.Sinks[i].Retries = 3
		}
	}
}
