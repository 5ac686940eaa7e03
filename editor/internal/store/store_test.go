package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hazyhaar/weaver/bridge"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMemory()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func rec(id, session string, kind bridge.MessageType, ts int64) bridge.Record {
	return bridge.Record{
		ID:        id,
		SessionID: session,
		Kind:      kind,
		Element: bridge.ElementDescriptor{
			TagName:  "BUTTON",
			ID:       "save",
			Selector: "button#save",
			Rect:     bridge.Rect{Top: 10, Left: 20, Width: 80, Height: 24},
		},
		PeerSeq:   7,
		Timestamp: ts,
	}
}

func TestPragmas(t *testing.T) {
	s := openTest(t)
	var fk, bt int
	if err := s.DB.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatal(err)
	}
	if err := s.DB.QueryRow("PRAGMA busy_timeout").Scan(&bt); err != nil {
		t.Fatal(err)
	}
	if fk != 1 || bt != 10_000 {
		t.Errorf("foreign_keys=%d busy_timeout=%d", fk, bt)
	}
}

func TestInsertList(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	for _, r := range []bridge.Record{
		rec("a", "s1", bridge.ElementHover, 100),
		rec("b", "s1", bridge.ElementSelected, 200),
		rec("c", "s2", bridge.ElementSelected, 300),
	} {
		if err := s.Insert(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	// Duplicate IDs are ignored.
	if err := s.Insert(ctx, rec("a", "s1", bridge.ElementHover, 100)); err != nil {
		t.Fatal(err)
	}

	got, err := s.List(ctx, "s1", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Fatalf("List(s1): got %+v", got)
	}
	if got[0].Element.Rect.Width != 80 || got[0].PeerSeq != 7 || got[0].Kind != bridge.ElementSelected {
		t.Errorf("round trip: got %+v", got[0])
	}

	all, err := s.List(ctx, "", "", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].ID != "c" {
		t.Errorf("List(all, 2): got %+v", all)
	}

	sel, err := s.List(ctx, "s1", bridge.ElementSelected, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(sel) != 1 || sel[0].ID != "b" {
		t.Errorf("List(s1, selected): got %+v", sel)
	}
}

func TestLast(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	if _, err := s.Last(ctx, "s1"); !errors.Is(err, ErrNoRecords) {
		t.Fatalf("empty: got %v", err)
	}

	s.Insert(ctx, rec("a", "s1", bridge.ElementSelected, 100))
	s.Insert(ctx, rec("b", "s1", bridge.ElementSelected, 200))
	s.Insert(ctx, rec("c", "s1", bridge.ElementHover, 300))

	got, err := s.Last(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "b" {
		t.Errorf("Last: got %q, want b (hovers skipped)", got.ID)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "weaver.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.Insert(context.Background(), rec("x", "s", bridge.ElementSelected, 1)); err != nil {
		t.Fatal(err)
	}
}

func TestIsBusy(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("other"), false},
		{errors.New("prefix: SQLITE_BUSY (5)"), true},
		{errors.New("database is locked"), true},
	}
	for _, c := range cases {
		if got := isBusy(c.err); got != c.want {
			t.Errorf("isBusy(%v) = %v", c.err, got)
		}
	}
}
