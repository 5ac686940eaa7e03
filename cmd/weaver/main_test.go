package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hazyhaar/weaver/bridge"
)

const page = `<!DOCTYPE html><html><head><title>t</title><script>var x;</script></head><body>
<main id="content"><h1 class="title">Prices</h1>
<table><tr><th>Plan</th><th>Cost</th></tr><tr><td>Pro</td><td>9</td></tr></table>
<p>See <a href="/faq">the FAQ</a>.</p></main>
<script>track()</script>
</body></html>`

func writePage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.html")
	if err := os.WriteFile(path, []byte(page), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand(&globals{})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSelectors(t *testing.T) {
	out, err := run(t, "selectors", writePage(t))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	var first bridge.ElementDescriptor
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatal(err)
	}
	if first.TagName != "MAIN" || first.Selector != "main#content" {
		t.Errorf("first: %+v", first)
	}
	for _, l := range lines {
		if strings.Contains(l, `"tagName":"SCRIPT"`) {
			t.Error("script elements listed")
		}
	}
}

func TestLocate(t *testing.T) {
	path := writePage(t)
	out, err := run(t, "selectors", path)
	if err != nil {
		t.Fatal(err)
	}
	var h1 bridge.ElementDescriptor
	for _, l := range strings.Split(strings.TrimSpace(out), "\n") {
		var d bridge.ElementDescriptor
		if json.Unmarshal([]byte(l), &d) == nil && d.TagName == "H1" {
			h1 = d
		}
	}
	if h1.Selector == "" {
		t.Fatal("no H1 listed")
	}

	out, err = run(t, "locate", path, h1.Selector)
	if err != nil {
		t.Fatal(err)
	}
	var got bridge.ElementDescriptor
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatal(err)
	}
	if got.TextContent != "Prices" || got.ClassName != "title" {
		t.Errorf("got %+v", got)
	}
}

func TestLocateMarkdown(t *testing.T) {
	out, err := run(t, "locate", writePage(t), "main#content", "--markdown")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"# Prices", "| Plan", "[the FAQ]("} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q:\n%s", want, out)
		}
	}
}

func TestLocateUnknown(t *testing.T) {
	if _, err := run(t, "locate", writePage(t), "main#nope"); err == nil {
		t.Error("want error for an unknown selector")
	}
}
