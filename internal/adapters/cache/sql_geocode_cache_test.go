package cache

import (
	"context"
	"field-route-service/internal/adapters/repositories"
	"field-route-service/internal/domain"
	"field-route-service/internal/platform/db"
	"testing"
)

func newTestCache(t *testing.T) *SQLGeocodeCache {
	t.Helper()

	conn, err := db.OpenSqlite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	if err := repositories.InitSchema(context.Background(), conn, db.SQLite); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return NewSQLGeocodeCache(conn, db.SQLite)
}

func TestSQLGeocodeCachePutThenGet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	err := c.PutMany(ctx, map[string]domain.Coordinate{
		"10 Elm St": {Lat: 42.35, Lng: -71.07},
		"bad":       domain.NoCoordinate(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := c.GetMany(ctx, []string{"10 Elm St", " 10 Elm St ", "bad", "missing", ""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 hit, got %d: %+v", len(got), got)
	}
	if c := got["10 Elm St"]; c.Lat != 42.35 || c.Lng != -71.07 {
		t.Fatalf("coord = %+v, want (42.35, -71.07)", c)
	}
}

func TestSQLGeocodeCacheUpsert(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.PutMany(ctx, map[string]domain.Coordinate{"A": {Lat: 1, Lng: 2}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.PutMany(ctx, map[string]domain.Coordinate{"A": {Lat: 3, Lng: 4}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := c.GetMany(ctx, []string{"A"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["A"].Lat != 3 || got["A"].Lng != 4 {
		t.Fatalf("coord = %+v, want (3, 4)", got["A"])
	}
}

func TestSQLGeocodeCacheRejectsEmptyKey(t *testing.T) {
	c := newTestCache(t)

	if err := c.PutMany(context.Background(), map[string]domain.Coordinate{" ": {Lat: 1, Lng: 2}}); err == nil {
		t.Fatalf("expected error for empty address key")
	}
}
