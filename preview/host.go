package preview

import (
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/weaver/bridge"
	"github.com/hazyhaar/weaver/shield"
)

// The host page relays every message the preview posts to its parent into
// the browser binding as {origin, data}, and reports each iframe load as a
// FRAME_LOADED message. Without the binding (a plain browser) it does
// nothing beyond showing the preview.
var hostPage = template.Must(template.New("host").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.App}} · weaver</title>
<style>
html, body { margin: 0; height: 100%; }
iframe { border: 0; width: 100%; height: 100%; display: block; }
</style>
</head>
<body>
<iframe id="{{.FrameID}}" src="{{.PreviewURL}}"></iframe>
<script>
(function () {
  var binding = {{.Binding}};
  var frame = document.getElementById({{.FrameID}});
  function relay(origin, data) {
    if (typeof window[binding] !== 'function') return;
    try { window[binding](JSON.stringify({ origin: origin, data: data })); } catch (e) {}
  }
  window.addEventListener('message', function (event) {
    if (event.source !== frame.contentWindow) return;
    relay(event.origin, event.data);
  });
  frame.addEventListener('load', function () {
    relay(location.origin, { type: {{.FrameLoaded}} });
  });
})();
</script>
</body>
</html>
`))

type hostData struct {
	App         string
	FrameID     string
	PreviewURL  string
	Binding     string
	FrameLoaded string
}

func (s *Server) handleHost(w http.ResponseWriter, r *http.Request) {
	app := chi.URLParam(r, "app")
	if !validApp(app) {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	err := hostPage.Execute(w, hostData{
		App:         app,
		FrameID:     FrameID,
		PreviewURL:  PreviewPath(app),
		Binding:     bridge.BindingName,
		FrameLoaded: string(bridge.FrameLoaded),
	})
	if err != nil {
		shield.GetLogger(r.Context()).Warn("preview: render host page", "app", app, "error", err)
	}
}
