package preview

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hazyhaar/weaver/bridge"
)

func siteRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	app := filepath.Join(root, "shop")
	if err := os.MkdirAll(filepath.Join(app, "about"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(app, "index.html"), []byte("<h1>Shop</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(app, "about", "index.html"), []byte("<h1>About</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

func newTestServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	s, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func TestNewNeedsSource(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("want error without root or upstream")
	}
	if _, err := New(Config{Upstream: "not a url"}); err == nil {
		t.Error("want error for a bad upstream")
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, Config{Root: t.TempDir()})
	resp, body := get(t, ts.URL+"/healthz")
	if resp.StatusCode != 200 || body != "ok" {
		t.Errorf("got %d %q", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Trace-ID") == "" {
		t.Error("missing trace id")
	}
}

func TestHostPage(t *testing.T) {
	ts := newTestServer(t, Config{Root: siteRoot(t)})
	resp, body := get(t, ts.URL+HostPath("shop"))
	if resp.StatusCode != 200 {
		t.Fatalf("status %d", resp.StatusCode)
	}
	for _, want := range []string{
		`id="weaver-preview"`,
		`src="/preview/shop/"`,
		`"__weaverBridge"`,
		`"FRAME_LOADED"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("host page missing %s", want)
		}
	}
	if resp.Header.Get("X-Frame-Options") != "DENY" {
		t.Errorf("X-Frame-Options = %q", resp.Header.Get("X-Frame-Options"))
	}
}

func TestHostPageRejectsBadApp(t *testing.T) {
	ts := newTestServer(t, Config{Root: siteRoot(t)})
	for _, app := range []string{".hidden", "a..b"} {
		resp, _ := get(t, ts.URL+"/edit/"+app)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%q: status %d", app, resp.StatusCode)
		}
	}
}

func TestPreviewStatic(t *testing.T) {
	ts := newTestServer(t, Config{Root: siteRoot(t)})

	resp, body := get(t, ts.URL+"/preview/shop/")
	if resp.StatusCode != 200 || body != "<h1>Shop</h1>" {
		t.Fatalf("index: %d %q", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Frame-Options") != "SAMEORIGIN" {
		t.Errorf("X-Frame-Options = %q", resp.Header.Get("X-Frame-Options"))
	}

	_, body = get(t, ts.URL+"/preview/shop/about/")
	if body != "<h1>About</h1>" {
		t.Errorf("about: %q", body)
	}

	// Bare app path redirects to the trailing slash form.
	_, body = get(t, ts.URL+"/preview/shop")
	if body != "<h1>Shop</h1>" {
		t.Errorf("redirect: %q", body)
	}
}

func TestPreviewProxy(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Write([]byte("upstream " + r.URL.Path + "?" + r.URL.RawQuery))
	}))
	defer up.Close()

	ts := newTestServer(t, Config{Upstream: up.URL})
	resp, body := get(t, ts.URL+"/preview/shop/cart?x=1")
	if body != "upstream /cart?x=1" {
		t.Errorf("body %q", body)
	}
	if got := resp.Header.Values("X-Frame-Options"); len(got) != 1 || got[0] != "SAMEORIGIN" {
		t.Errorf("X-Frame-Options = %v", got)
	}
}

func TestPreviewProxyDown(t *testing.T) {
	up := httptest.NewServer(http.NotFoundHandler())
	url := up.URL
	up.Close()

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	ts := newTestServer(t, Config{Upstream: url, Logger: logger})
	resp, _ := get(t, ts.URL+"/preview/shop/")
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status %d", resp.StatusCode)
	}

	traceID := resp.Header.Get("X-Trace-ID")
	out := logs.String()
	if traceID == "" || !strings.Contains(out, `"trace_id":"`+traceID+`"`) {
		t.Errorf("upstream failure not logged with trace id %q: %s", traceID, out)
	}
	if !strings.Contains(out, "preview: upstream failed") {
		t.Errorf("missing warning: %s", out)
	}
}

func TestPeerAssets(t *testing.T) {
	ts := newTestServer(t, Config{Root: t.TempDir()})
	resp, body := get(t, ts.URL+"/peer.js")
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "application/javascript") || body == "" {
		t.Errorf("peer.js: %q len %d", resp.Header.Get("Content-Type"), len(body))
	}
	resp, body = get(t, ts.URL+"/peer.css")
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/css") || !strings.Contains(body, "#667eea") {
		t.Errorf("peer.css: %q", resp.Header.Get("Content-Type"))
	}
}

func TestHubBroadcast(t *testing.T) {
	s, err := New(Config{Root: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.Hub().Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.Hub().Clients() != 1 {
		t.Fatalf("clients = %d", s.Hub().Clients())
	}

	rec := bridge.Record{ID: "r1", SessionID: "s1", Kind: bridge.ElementSelected,
		Element: bridge.ElementDescriptor{TagName: "H1"}}
	if err := s.Hub().Send(context.Background(), rec); err != nil {
		t.Fatal(err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var got hubEnvelope
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Type != "ELEMENT_SELECTED" || got.Data.ID != "r1" || got.Data.Element.TagName != "H1" {
		t.Errorf("got %+v", got)
	}

	s.Hub().Close()
	if s.Hub().Clients() != 0 {
		t.Error("Close should drop clients")
	}
}
