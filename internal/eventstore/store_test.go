package eventstore

import (
	"path/filepath"
	"testing"
)

func TestOpen_CreatesFileAndMigrates(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "events.sqlite")

	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	var name string
	if err := s.Conn().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='events'").Scan(&name); err != nil {
		t.Fatalf("events table missing: %v", err)
	}
}

func TestAppendAndLoadAll_PreservesOrder(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "events.sqlite")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	if err := s.Append("kind_a", `{"n":1}`); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := s.Append("kind_b", `{"n":2}`); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	records, err := s.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(records) != 2 || records[0].Kind != "kind_a" || records[1].Kind != "kind_b" {
		t.Fatalf("records = %+v, want [kind_a, kind_b] in order", records)
	}

	count, err := s.Count()
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 2 {
		t.Fatalf("Count() = %d, want 2", count)
	}
}

func TestMigrations_AreIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "events.sqlite")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	if err := s.runMigrations(); err != nil {
		t.Fatalf("second runMigrations() error = %v", err)
	}

	var count int
	if err := s.Conn().QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count schema_migrations: %v", err)
	}
	entries, _ := migrationsFS.ReadDir("migrations")
	if count != len(entries) {
		t.Fatalf("schema_migrations count = %d, want %d", count, len(entries))
	}
}
