package editor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hazyhaar/weaver/bridge"
	"github.com/hazyhaar/weaver/editor/internal/sink"
	"github.com/hazyhaar/weaver/editor/internal/store"
)

// Sink is the output interface for element records.
type Sink = sink.Sink

// RecordFunc is called for each record by a callback sink.
type RecordFunc = sink.RecordFunc

// Store is the SQLite record store.
type Store = store.Store

// OpenStore opens (or creates) the record database at path.
func OpenStore(path string) (*Store, error) {
	return store.Open(path)
}

// NewStdoutSink creates a JSON-lines sink.
func NewStdoutSink(w io.Writer) Sink {
	return sink.NewStdout(w)
}

// NewPrettySink creates a human-readable terminal sink.
func NewPrettySink(w io.Writer) Sink {
	return sink.NewPretty(w)
}

// NewWebhookSink creates a webhook POST sink with retry.
func NewWebhookSink(url string, retries int, logger *slog.Logger) Sink {
	return sink.NewWebhook(url,
		sink.WithWebhookRetries(retries),
		sink.WithWebhookBackoff(time.Second),
		sink.WithWebhookLogger(logger))
}

// NewCallbackSink creates an in-process sink.
func NewCallbackSink(fn func(ctx context.Context, rec bridge.Record) error) Sink {
	return sink.NewCallback(fn)
}

// NewStoreSink writes records to st.
func NewStoreSink(st *Store) Sink {
	return sink.NewStore(st)
}

// BuildSinks creates the sinks listed in cfg. "sqlite" entries are skipped:
// records reach the database through SessionConfig.Store.
func BuildSinks(cfg *Config, stdout io.Writer, logger *slog.Logger) ([]Sink, error) {
	var out []Sink
	for _, sc := range cfg.Sinks {
		switch sc.Type {
		case "stdout":
			out = append(out, NewStdoutSink(stdout))
		case "pretty":
			out = append(out, NewPrettySink(stdout))
		case "webhook":
			if sc.URL == "" {
				return nil, fmt.Errorf("editor: webhook sink without url")
			}
			out = append(out, NewWebhookSink(sc.URL, sc.Retries, logger))
		case "sqlite":
		default:
			return nil, fmt.Errorf("editor: unknown sink type %q", sc.Type)
		}
	}
	return out, nil
}
