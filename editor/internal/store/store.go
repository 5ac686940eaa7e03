// Package store persists element records in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/weaver/bridge"
)

// Schema creates the records table.
const Schema = `
CREATE TABLE IF NOT EXISTS records (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	kind       TEXT NOT NULL,
	element    TEXT NOT NULL,
	peer_seq   INTEGER NOT NULL DEFAULT 0,
	timestamp  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_session ON records(session_id, timestamp);
`

// ErrNoRecords is returned by Last when a session has no records.
var ErrNoRecords = errors.New("store: no records")

// Store is the weaver database handle.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the database at path and applies Schema.
func Open(path string) (*Store, error) {
	db, err := openDB(path, Schema)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// OpenMemory opens a private in-memory database.
func OpenMemory() (*Store, error) {
	return Open(":memory:")
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Insert stores rec. Inserting an existing ID is a no-op.
func (s *Store) Insert(ctx context.Context, rec bridge.Record) error {
	el, err := json.Marshal(rec.Element)
	if err != nil {
		return fmt.Errorf("store: marshal element: %w", err)
	}
	err = execRetry(ctx, s.DB, `
		INSERT OR IGNORE INTO records (id, session_id, kind, element, peer_seq, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, string(rec.Kind), string(el), int64(rec.PeerSeq), rec.Timestamp)
	if err != nil {
		return fmt.Errorf("store: insert %s: %w", rec.ID, err)
	}
	return nil
}

// List returns up to limit records, newest first. Empty sessionID or kind
// match everything. limit <= 0 means 50.
func (s *Store) List(ctx context.Context, sessionID string, kind bridge.MessageType, limit int) ([]bridge.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT id, session_id, kind, element, peer_seq, timestamp FROM records WHERE 1=1`
	var args []any
	if sessionID != "" {
		q += ` AND session_id = ?`
		args = append(args, sessionID)
	}
	if kind != "" {
		q += ` AND kind = ?`
		args = append(args, string(kind))
	}
	q += ` ORDER BY timestamp DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var out []bridge.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Last returns the newest ELEMENT_SELECTED record of a session.
func (s *Store) Last(ctx context.Context, sessionID string) (bridge.Record, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, session_id, kind, element, peer_seq, timestamp FROM records
		WHERE session_id = ? AND kind = ?
		ORDER BY timestamp DESC, id DESC LIMIT 1`,
		sessionID, string(bridge.ElementSelected))
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return bridge.Record{}, ErrNoRecords
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (bridge.Record, error) {
	var (
		rec  bridge.Record
		kind string
		el   string
		seq  int64
	)
	if err := sc.Scan(&rec.ID, &rec.SessionID, &kind, &el, &seq, &rec.Timestamp); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("store: scan: %w", err)
	}
	rec.Kind = bridge.MessageType(kind)
	rec.PeerSeq = uint64(seq)
	if err := json.Unmarshal([]byte(el), &rec.Element); err != nil {
		return rec, fmt.Errorf("store: element of %s: %w", rec.ID, err)
	}
	return rec, nil
}
