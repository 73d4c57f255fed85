package repositories

import (
	"context"
	"database/sql"
	"field-route-service/internal/platform/db"
	"testing"
)

func ptr(f float64) *float64 { return &f }

func newTestRepo(t *testing.T) (*SQLRouteRepository, *sql.DB) {
	t.Helper()

	conn, err := db.OpenSqlite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	ctx := context.Background()
	if err := InitSchema(ctx, conn, db.SQLite); err != nil {
		t.Fatalf("init schema: %v", err)
	}

	seed := Seed{
		Clients: []ClientSeed{{ID: "c1", Name: "Acme"}},
		Workers: []WorkerSeed{
			{ID: "w1", Name: "Alice", DepotAddress: "1 Main St", DepotLat: ptr(42.36), DepotLng: ptr(-71.06)},
			{ID: "w2", Name: "Bob"},
		},
		Jobs: []JobSeed{
			{ID: "j1", Title: "Fix sink", Address: "10 Elm St", Latitude: ptr(42.35), Longitude: ptr(-71.07), ClientID: "c1"},
			{ID: "j2", Title: "Paint fence", Address: "20 Oak St", Latitude: ptr(42.37), Longitude: ptr(-71.05)},
			{ID: "j3", Title: "Mow lawn", Address: "30 Pine St"},
		},
	}
	if err := ApplySeed(ctx, conn, db.SQLite, seed); err != nil {
		t.Fatalf("apply seed: %v", err)
	}

	return NewSQLRouteRepository(conn, db.SQLite), conn
}
