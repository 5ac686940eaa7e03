// Package sink delivers visual edit records to output backends.
package sink

import (
	"context"

	"github.com/hazyhaar/weaver/bridge"
)

// Sink receives one record per forwarded peer event.
type Sink interface {
	Send(ctx context.Context, rec bridge.Record) error
	Close() error
}
