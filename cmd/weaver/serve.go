package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/weaver/editor"
	"github.com/hazyhaar/weaver/preview"
)

func newServeCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the preview server without a browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			srv, err := newPreview(cfg, g.logger)
			if err != nil {
				return err
			}
			defer srv.Hub().Close()

			ln, err := net.Listen("tcp", cfg.Listen)
			if err != nil {
				return fmt.Errorf("listen %s: %w", cfg.Listen, err)
			}
			return servePreview(cmd.Context(), ln, srv, g.logger)
		},
	}
}

func newPreview(cfg *editor.Config, logger *slog.Logger) (*preview.Server, error) {
	return preview.New(preview.Config{
		Root:     cfg.Preview.Root,
		Upstream: cfg.Preview.Upstream,
		Logger:   logger,
	})
}

// servePreview serves until ctx is done, then shuts down gracefully.
func servePreview(ctx context.Context, ln net.Listener, srv *preview.Server, logger *slog.Logger) error {
	hs := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("weaver: preview server", "addr", ln.Addr().String())
		errc <- hs.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return hs.Shutdown(shutdownCtx)
}
