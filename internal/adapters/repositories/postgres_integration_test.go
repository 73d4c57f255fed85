//go:build postgres_integration

package repositories

import (
	"context"
	"errors"
	"field-route-service/internal/domain"
	"field-route-service/internal/platform/db"
	"field-route-service/internal/ports"
	"os"
	"testing"

	"github.com/google/uuid"
)

// Run with: DATABASE_URL=postgres://... go test -tags postgres_integration ./internal/adapters/repositories
func TestPostgresRoundTrip(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	conn, err := db.Open(url)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	if err := InitSchema(ctx, conn, db.Postgres); err != nil {
		t.Fatalf("init schema: %v", err)
	}

	suffix := uuid.NewString()[:8]
	workerID, jobA, jobB := "w-"+suffix, "ja-"+suffix, "jb-"+suffix
	seed := Seed{
		Workers: []WorkerSeed{{ID: workerID, Name: "Integration Worker"}},
		Jobs: []JobSeed{
			{ID: jobA, Title: "Job A", Address: "1 A St", Latitude: ptr(42.35), Longitude: ptr(-71.07)},
			{ID: jobB, Title: "Job B", Address: "2 B St", Latitude: ptr(42.37), Longitude: ptr(-71.05)},
		},
	}
	if err := ApplySeed(ctx, conn, db.Postgres, seed); err != nil {
		t.Fatalf("apply seed: %v", err)
	}

	repo := NewSQLRouteRepository(conn, db.Postgres)
	routeID := "r-" + suffix
	insertRoute(t, repo, routeID, workerID, jobA, jobB)

	id, ok, err := repo.FindRouteID(ctx, workerID, day)
	if err != nil || !ok || id != routeID {
		t.Fatalf("FindRouteID = %q, %v, %v; want %q", id, ok, err, routeID)
	}

	sums, err := repo.ListRoutes(ctx, domain.RouteFilter{WorkerID: workerID})
	if err != nil {
		t.Fatalf("ListRoutes: %v", err)
	}
	if len(sums) != 1 || sums[0].StopCount != 2 {
		t.Fatalf("summaries = %+v, want one route with 2 stops", sums)
	}

	detail, err := repo.GetFullRoute(ctx, routeID)
	if err != nil {
		t.Fatalf("GetFullRoute: %v", err)
	}
	if len(detail.Path) != 2 || len(detail.Stops) != 2 || detail.Stops[0].JobID != jobA {
		t.Fatalf("detail = %+v", detail)
	}

	jobs, err := repo.ListJobs(ctx, []string{jobA, jobB})
	if err != nil || len(jobs) != 2 {
		t.Fatalf("ListJobs = %d jobs, %v", len(jobs), err)
	}

	cleanup := func() error {
		return repo.WithinTx(ctx, func(w ports.RouteWriter) error {
			if err := w.DeleteRouteStops(ctx, routeID); err != nil {
				return err
			}
			if err := w.ClearJobRoutePointers(ctx, routeID); err != nil {
				return err
			}
			return w.DeleteRoute(ctx, routeID)
		})
	}
	if err := cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, err := repo.GetFullRoute(ctx, routeID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetFullRoute after delete err = %v, want ErrNotFound", err)
	}
}
