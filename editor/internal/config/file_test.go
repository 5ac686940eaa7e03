package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Listen != "127.0.0.1:8700" {
		t.Errorf("Listen: got %q", cfg.Listen)
	}
	if cfg.Editor.EnableDelay != 300*time.Millisecond || cfg.Editor.ReloadDelay != 500*time.Millisecond {
		t.Errorf("delays: got %v / %v", cfg.Editor.EnableDelay, cfg.Editor.ReloadDelay)
	}
	if cfg.Editor.PollInterval != 100*time.Millisecond || cfg.Editor.MaxPollAttempts != 100 {
		t.Errorf("polling: got %v x %d", cfg.Editor.PollInterval, cfg.Editor.MaxPollAttempts)
	}
	if len(cfg.Sinks) != 1 || cfg.Sinks[0].Type != "stdout" {
		t.Errorf("Sinks: got %+v", cfg.Sinks)
	}
	if cfg.Preview.Root != "." {
		t.Errorf("Preview.Root: got %q", cfg.Preview.Root)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weaver.yaml")
	src := `
listen: ":9000"
preview:
  upstream: http://localhost:5173
browser:
  mode: headful
  block: [images, media]
editor:
  enable_delay: 1s
  max_poll_attempts: 20
sinks:
  - type: webhook
    url: http://hooks.local/sel
  - type: sqlite
`
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":9000" {
		t.Errorf("Listen: got %q", cfg.Listen)
	}
	if cfg.Preview.Upstream != "http://localhost:5173" || cfg.Preview.Root != "" {
		t.Errorf("Preview: got %+v", cfg.Preview)
	}
	if cfg.Browser.Mode != "headful" || len(cfg.Browser.Block) != 2 {
		t.Errorf("Browser: got %+v", cfg.Browser)
	}
	if cfg.Editor.EnableDelay != time.Second {
		t.Errorf("EnableDelay: got %v", cfg.Editor.EnableDelay)
	}
	if cfg.Editor.ReloadDelay != 500*time.Millisecond {
		t.Errorf("ReloadDelay default: got %v", cfg.Editor.ReloadDelay)
	}
	if cfg.Editor.MaxPollAttempts != 20 {
		t.Errorf("MaxPollAttempts: got %d", cfg.Editor.MaxPollAttempts)
	}
	if len(cfg.Sinks) != 2 || cfg.Sinks[0].Retries != 3 {
		t.Errorf("Sinks: got %+v", cfg.Sinks)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file: want error")
	}
	if _, err := Parse([]byte("listen: [")); err == nil {
		t.Error("bad yaml: want error")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvListen:   ":7000",
		EnvUpstream: "http://dev:3000",
		EnvRemote:   "ws://chrome:9222/devtools/browser/x",
		EnvDB:       "/tmp/w.db",
	}
	cfg := Default()
	cfg.ApplyEnv(func(k string) string { return env[k] })

	if cfg.Listen != ":7000" || cfg.Preview.Upstream != "http://dev:3000" {
		t.Errorf("got %+v", cfg)
	}
	if cfg.Browser.Remote != env[EnvRemote] || cfg.DB != "/tmp/w.db" {
		t.Errorf("got %+v", cfg)
	}
	if cfg.Preview.Root != "." {
		t.Error("unset variables must not clear fields")
	}
}
