package sqlite

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	// Verify WAL mode is set.
	var journalMode string
	err := s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	if err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected wal, got %s", journalMode)
	}

	// Foreign keys must be on for every pooled connection, so check several at once.
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		conn, err := s.db.Conn(ctx)
		if err != nil {
			t.Fatalf("conn: %v", err)
		}
		defer conn.Close()

		var fk int
		if err := conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk); err != nil {
			t.Fatalf("query foreign_keys: %v", err)
		}
		if fk != 1 {
			t.Errorf("conn %d: expected foreign_keys=1, got %d", i, fk)
		}
	}

	// Verify tables exist.
	tables := []string{"users", "tags", "notes", "note_tags", "note_shares"}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestOpen_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(dbPath, nil)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := s1.CreateUser(context.Background(), makeTestUser("user-1", "a@example.com")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	s1.Close()

	s2, err := Open(dbPath, nil)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s2.Close()

	if _, err := s2.GetUser(context.Background(), "user-1"); err != nil {
		t.Errorf("user lost across reopen: %v", err)
	}
}

func TestFormatTime_SortsLexically(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	earlier := formatTime(base)
	later := formatTime(base.Add(time.Millisecond))
	whole := formatTime(base.Add(time.Second))

	if !(earlier < later && later < whole) {
		t.Errorf("timestamps not lexically ordered: %q %q %q", earlier, later, whole)
	}

	got, err := parseTime(later)
	if err != nil {
		t.Fatalf("parseTime: %v", err)
	}
	if !got.Equal(base.Add(time.Millisecond)) {
		t.Errorf("round trip: got %v", got)
	}
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
