package editor

import (
	"github.com/hazyhaar/weaver/editor/internal/browser"
	"github.com/hazyhaar/weaver/editor/internal/config"
)

// Config is the top-level weaver configuration. Re-exported from internal.
type Config = config.Config

// PreviewConfig says where generated sites come from.
type PreviewConfig = config.PreviewConfig

// EditorConfig tunes the host controller.
type EditorConfig = config.EditorConfig

// SinkConfig defines an output backend.
type SinkConfig = config.SinkConfig

// BrowserConfig configures the Chrome manager.
type BrowserConfig = browser.Config

// BrowserMode selects headless or headful Chrome.
type BrowserMode = browser.Mode

const (
	ModeHeadless = browser.ModeHeadless
	ModeHeadful  = browser.ModeHeadful
)

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// ControllerConfigFrom maps the file settings onto a ControllerConfig.
func ControllerConfigFrom(cfg *Config) ControllerConfig {
	return ControllerConfig{
		EnableDelay:     cfg.Editor.EnableDelay,
		ReloadDelay:     cfg.Editor.ReloadDelay,
		PollInterval:    cfg.Editor.PollInterval,
		MaxPollAttempts: cfg.Editor.MaxPollAttempts,
	}
}

// BrowserConfigFrom maps the file settings onto a BrowserConfig.
func BrowserConfigFrom(cfg *Config) BrowserConfig {
	return BrowserConfig{
		RemoteURL:   cfg.Browser.Remote,
		Mode:        browser.ParseMode(cfg.Browser.Mode),
		XvfbDisplay: cfg.Browser.XvfbDisplay,
		Block:       cfg.Browser.Block,
	}
}
