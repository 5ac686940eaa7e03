package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/weaver/editor"
	"github.com/hazyhaar/weaver/mcpquic"
	"github.com/hazyhaar/weaver/preview"
)

type editFlags struct {
	mcp      bool
	mcpQUIC  string
	tlsCert  string
	tlsKey   string
	noEnable bool
}

func newEditCommand(g *globals) *cobra.Command {
	f := &editFlags{}
	cmd := &cobra.Command{
		Use:   "edit <app>",
		Short: "Open an app in an editing session",
		Long: `edit serves the app, opens the host page in Chrome and turns edit mode on.
Selected elements go to the configured sinks and to websocket clients of
/events. With --mcp the session is driven by MCP tools over stdio instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd.Context(), g, f, args[0])
		},
	}
	cmd.Flags().BoolVar(&f.mcp, "mcp", false, "serve visual_edit_* tools over stdio")
	cmd.Flags().StringVar(&f.mcpQUIC, "mcp-quic", "", "also serve the tools over QUIC on this UDP address")
	cmd.Flags().StringVar(&f.tlsCert, "tls-cert", "", "certificate for --mcp-quic (self-signed when empty)")
	cmd.Flags().StringVar(&f.tlsKey, "tls-key", "", "key for --mcp-quic")
	cmd.Flags().BoolVar(&f.noEnable, "no-enable", false, "leave edit mode off at start")
	return cmd
}

func runEdit(ctx context.Context, g *globals, f *editFlags, app string) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	logger := g.logger

	srv, err := newPreview(cfg, logger)
	if err != nil {
		return err
	}
	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Listen, err)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	serveErr := make(chan error, 1)
	go func() { serveErr <- servePreview(ctx, ln, srv, logger) }()

	// stdout belongs to the MCP transport in --mcp mode.
	var out io.Writer = os.Stdout
	if f.mcp {
		out = os.Stderr
	}
	sinks, err := editor.BuildSinks(cfg, out, logger)
	if err != nil {
		return err
	}
	sinks = append(sinks, srv.Hub())

	var st *editor.Store
	if wantsStore(cfg) {
		if st, err = editor.OpenStore(cfg.DB); err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
	}

	sess := editor.NewSession(editor.SessionConfig{
		HostURL:       "http://" + ln.Addr().String() + preview.HostPath(app),
		FrameSelector: preview.FrameSelector,
		Browser:       editor.BrowserConfigFrom(cfg),
		Controller:    editor.ControllerConfigFrom(cfg),
		Store:         st,
		Sinks:         sinks,
		HoverEvents:   cfg.Editor.HoverEvents,
		Logger:        logger,
	})
	defer sess.Close()

	if err := sess.Open(ctx); err != nil {
		return err
	}
	if !f.noEnable {
		sess.Enable()
	}

	var mcpSrv *mcp.Server
	if f.mcp || f.mcpQUIC != "" {
		mcpSrv = mcp.NewServer(&mcp.Implementation{Name: "weaver", Version: version}, nil)
		sess.RegisterMCP(mcpSrv)
	}

	if f.mcpQUIC != "" {
		ql, err := listenQUIC(f, mcpSrv, logger)
		if err != nil {
			return err
		}
		defer ql.Close()
		go func() {
			logger.Info("weaver: MCP on QUIC", "addr", ql.Addr(), "session", sess.ID())
			if err := ql.Serve(ctx); err != nil && ctx.Err() == nil {
				logger.Error("weaver: MCP QUIC", "error", err)
			}
		}()
	}

	if f.mcp {
		logger.Info("weaver: MCP on stdio", "session", sess.ID())
		if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
			return fmt.Errorf("mcp: %w", err)
		}
		return nil
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-serveErr:
		return err
	}
}

func listenQUIC(f *editFlags, srv *mcp.Server, logger *slog.Logger) (*mcpquic.Listener, error) {
	var (
		tlsCfg *tls.Config
		err    error
	)
	if f.tlsCert != "" && f.tlsKey != "" {
		tlsCfg, err = mcpquic.ServerTLSConfig(f.tlsCert, f.tlsKey)
	} else {
		tlsCfg, err = mcpquic.SelfSignedTLSConfig()
	}
	if err != nil {
		return nil, err
	}
	ql, err := mcpquic.NewListener(f.mcpQUIC, tlsCfg, srv, logger)
	if err != nil {
		return nil, fmt.Errorf("mcp quic listen %s: %w", f.mcpQUIC, err)
	}
	return ql, nil
}

func wantsStore(cfg *editor.Config) bool {
	for _, s := range cfg.Sinks {
		if s.Type == "sqlite" {
			return true
		}
	}
	return false
}
