package repositories

import (
	"context"
	"field-route-service/internal/platform/db"
	"os"
	"path/filepath"
	"testing"
)

func TestSeedFromJSONUpserts(t *testing.T) {
	_, conn := newTestRepo(t)

	path := filepath.Join(t.TempDir(), "seed.json")
	body := `{"workers":[{"id":"w1","name":"Alice Renamed"}],"jobs":[{"id":"j9","title":"New job","address":"9 Elm St"}]}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	if err := SeedFromJSON(context.Background(), conn, db.SQLite, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var name string
	if err := conn.QueryRow(`SELECT name FROM workers WHERE id = 'w1'`).Scan(&name); err != nil {
		t.Fatalf("select worker: %v", err)
	}
	if name != "Alice Renamed" {
		t.Fatalf("worker name = %q, want Alice Renamed", name)
	}

	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM jobs`).Scan(&n); err != nil {
		t.Fatalf("count jobs: %v", err)
	}
	if n != 4 {
		t.Fatalf("jobs = %d, want 4", n)
	}
}

func TestApplySeedRejectsMissingID(t *testing.T) {
	_, conn := newTestRepo(t)

	err := ApplySeed(context.Background(), conn, db.SQLite, Seed{Jobs: []JobSeed{{Title: "no id"}}})
	if err == nil {
		t.Fatalf("expected validation error")
	}
}
