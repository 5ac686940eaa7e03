package sink

import (
	"context"

	"github.com/hazyhaar/weaver/bridge"
)

// RecordFunc handles one record in process.
type RecordFunc func(ctx context.Context, rec bridge.Record) error

// Callback hands records to a Go function, without serialisation.
type Callback struct {
	fn RecordFunc
}

// NewCallback creates a Callback sink. fn may be nil.
func NewCallback(fn RecordFunc) *Callback {
	return &Callback{fn: fn}
}

func (c *Callback) Send(ctx context.Context, rec bridge.Record) error {
	if c.fn == nil {
		return nil
	}
	return c.fn(ctx, rec)
}

func (c *Callback) Close() error { return nil }
