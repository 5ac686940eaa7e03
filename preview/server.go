// Package preview serves the pages Chrome loads during an editing session:
// the host page, the previewed site under the same origin, the peer assets
// and a websocket feed of element records.
package preview

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/weaver/peer"
	"github.com/hazyhaar/weaver/shield"
)

// FrameID is the id of the preview iframe in the host page.
const FrameID = "weaver-preview"

// FrameSelector selects the preview iframe in the host page.
const FrameSelector = "#" + FrameID

// Config configures a Server. Exactly one of Root and Upstream is used;
// Upstream wins when both are set.
type Config struct {
	Root     string // directory with one subdirectory per app
	Upstream string // base URL of a dev server
	Logger   *slog.Logger
}

// Server is the preview HTTP server.
type Server struct {
	cfg    Config
	router chi.Router
	hub    *Hub
	proxy  *httputil.ReverseProxy
}

var appName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// New builds the router.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Root == "" && cfg.Upstream == "" {
		return nil, fmt.Errorf("preview: need a root directory or an upstream URL")
	}

	s := &Server{cfg: cfg, hub: NewHub(cfg.Logger)}
	if cfg.Upstream != "" {
		u, err := url.Parse(cfg.Upstream)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("preview: bad upstream %q", cfg.Upstream)
		}
		s.proxy = newProxy(u)
	}

	r := chi.NewRouter()
	for _, mw := range shield.DefaultStack(cfg.Logger) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(shield.SecurityHeaders(shield.HostHeaders()))
		r.Get("/edit/{app}", s.handleHost)
		r.Get("/peer.js", asset("application/javascript; charset=utf-8", peer.Script()))
		r.Get("/peer.css", asset("text/css; charset=utf-8", peer.Stylesheet()))
		r.Get("/events", s.hub.ServeHTTP)
	})

	r.Group(func(r chi.Router) {
		r.Use(shield.SecurityHeaders(shield.PreviewHeaders()))
		r.HandleFunc("/preview/{app}", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, PreviewPath(chi.URLParam(r, "app")), http.StatusMovedPermanently)
		})
		r.HandleFunc("/preview/{app}/*", s.handlePreview)
	})

	s.router = r
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Hub returns the websocket record feed. It is a sink for editor sessions.
func (s *Server) Hub() *Hub { return s.hub }

// HostPath is the path of the host page for app.
func HostPath(app string) string { return "/edit/" + url.PathEscape(app) }

// PreviewPath is the path under which app is served.
func PreviewPath(app string) string { return "/preview/" + url.PathEscape(app) + "/" }

func validApp(app string) bool {
	return appName.MatchString(app) && !strings.Contains(app, "..")
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	app := chi.URLParam(r, "app")
	if !validApp(app) {
		http.NotFound(w, r)
		return
	}
	rest := "/" + chi.URLParam(r, "*")

	if s.proxy != nil {
		r2 := r.Clone(r.Context())
		r2.URL.Path = rest
		r2.URL.RawPath = ""
		s.proxy.ServeHTTP(w, r2)
		return
	}

	dir := filepath.Join(s.cfg.Root, app)
	http.StripPrefix(strings.TrimSuffix(PreviewPath(app), "/"), http.FileServer(http.Dir(dir))).ServeHTTP(w, r)
}

func newProxy(target *url.URL) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.Host = target.Host
		},
		// Upstream framing rules give way to PreviewHeaders.
		ModifyResponse: func(resp *http.Response) error {
			resp.Header.Del("X-Frame-Options")
			resp.Header.Del("Content-Security-Policy")
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			shield.GetLogger(r.Context()).Warn("preview: upstream failed", "upstream_path", r.URL.Path, "error", err)
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
		},
	}
}

func asset(contentType, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "no-cache")
		w.Write([]byte(body))
	}
}
