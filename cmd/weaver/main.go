// Command weaver serves generated sites for visual editing and drives a
// Chrome host page whose preview iframe reports the elements a user picks.
//
// Usage:
//
//	weaver serve -c weaver.yaml            # preview server only
//	weaver edit shop                       # open shop in an editing session
//	weaver edit shop --mcp                 # expose the session as MCP tools on stdio
//	weaver selectors page.html             # list element selectors of a page
//	weaver locate page.html 'main > h1:nth-child(1)' --markdown
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/weaver/editor"
)

var version = "dev"

type globals struct {
	configPath string
	logLevel   string
	logger     *slog.Logger
}

func main() {
	// A missing .env is normal.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g := &globals{}
	root := newRootCommand(g)
	if err := root.ExecuteContext(ctx); err != nil {
		logger := g.logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("weaver: fatal", "error", err)
		os.Exit(1)
	}
}

func newRootCommand(g *globals) *cobra.Command {
	root := &cobra.Command{
		Use:   "weaver",
		Short: "Visual element picking for generated sites",
		Long: `weaver serves a generated site inside a host page, injects a small peer
script into the preview, and reports the elements a user hovers or clicks
as structured records (tag, id, classes, text, selector, geometry).`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			g.logger = newLogger(g.logLevel)
			slog.SetDefault(g.logger)
		},
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "path to weaver.yaml")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(
		newServeCommand(g),
		newEditCommand(g),
		newSelectorsCommand(),
		newLocateCommand(),
	)
	return root
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	// stdout carries records and MCP traffic.
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// loadConfig reads the config file when given, then the environment.
func (g *globals) loadConfig() (*editor.Config, error) {
	cfg := editor.DefaultConfig()
	if g.configPath != "" {
		var err error
		if cfg, err = editor.LoadConfigFile(g.configPath); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}
