package sink

import (
	"context"

	"github.com/hazyhaar/weaver/bridge"
)

// Inserter persists records. *store.Store satisfies it.
type Inserter interface {
	Insert(ctx context.Context, rec bridge.Record) error
}

// Store writes records to a persistent store. Closing the sink does not
// close the store; its owner does.
type Store struct {
	db Inserter
}

// NewStore wraps an Inserter.
func NewStore(db Inserter) *Store {
	return &Store{db: db}
}

func (s *Store) Send(ctx context.Context, rec bridge.Record) error {
	return s.db.Insert(ctx, rec)
}

func (s *Store) Close() error { return nil }
