package services

import (
	"context"
	"field-route-service/internal/adapters/repositories"
	"field-route-service/internal/platform/db"
	"fmt"
	"testing"
	"time"
)

func ptr(f float64) *float64 { return &f }

var day = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *repositories.SQLRouteRepository {
	t.Helper()

	conn, err := db.OpenSqlite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	ctx := context.Background()
	if err := repositories.InitSchema(ctx, conn, db.SQLite); err != nil {
		t.Fatalf("init schema: %v", err)
	}

	seed := repositories.Seed{
		Workers: []repositories.WorkerSeed{
			{ID: "w1", Name: "Amy"},
			{ID: "w2", Name: "Ben"},
			{ID: "w3", Name: "Cal"},
		},
	}
	for i := 1; i <= 6; i++ {
		seed.Jobs = append(seed.Jobs, repositories.JobSeed{
			ID:        fmt.Sprintf("j%d", i),
			Title:     fmt.Sprintf("Job %d", i),
			Address:   fmt.Sprintf("%d Elm St", i),
			Latitude:  ptr(42.30 + float64(i)/100),
			Longitude: ptr(-71.05),
		})
	}
	if err := repositories.ApplySeed(ctx, conn, db.SQLite, seed); err != nil {
		t.Fatalf("apply seed: %v", err)
	}

	return repositories.NewSQLRouteRepository(conn, db.SQLite)
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%03d", n)
	}
}
