package repositories

import (
	"context"
	"database/sql"
	"errors"
	"field-route-service/internal/platform/db"
	"fmt"
	"strings"
)

// Initialize the store schema for the given dialect.
//
// routes carries UNIQUE (worker_id, route_date) so a second route for the same
// worker and day fails on insert. jobs.route_id and route_jobs.route_id have no
// cascade: a route row can only be deleted after its stops and job pointers.
func InitSchema(ctx context.Context, conn *sql.DB, dialect db.Dialect) error {
	if conn == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	floatType, pathType := "REAL", "TEXT"
	if dialect == db.Postgres {
		floatType, pathType = "DOUBLE PRECISION", "JSONB"
	}

	createClientsQuery := `
	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		company TEXT,
		email TEXT,
		phone TEXT,
		address TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`

	createWorkersQuery := `
	CREATE TABLE IF NOT EXISTS workers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		depot_address TEXT,
		depot_lat {{real}},
		depot_lng {{real}},
		status TEXT NOT NULL DEFAULT 'active',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`

	createRoutesQuery := `
	CREATE TABLE IF NOT EXISTS routes (
		id TEXT PRIMARY KEY,
		worker_id TEXT REFERENCES workers(id) ON DELETE SET NULL,
		route_date DATE NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		total_distance_meters INTEGER NOT NULL DEFAULT 0,
		total_duration_seconds INTEGER NOT NULL DEFAULT 0,
		optimized_path {{path}},
		notes TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE (worker_id, route_date)
	);
	`

	createJobsQuery := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		address TEXT,
		latitude {{real}},
		longitude {{real}},
		client_id TEXT REFERENCES clients(id) ON DELETE SET NULL,
		worker_id TEXT REFERENCES workers(id) ON DELETE SET NULL,
		route_id TEXT REFERENCES routes(id),
		route_order INTEGER,
		status TEXT NOT NULL DEFAULT 'pending',
		scheduled_date DATE,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`

	createRouteJobsQuery := `
	CREATE TABLE IF NOT EXISTS route_jobs (
		id TEXT PRIMARY KEY,
		route_id TEXT NOT NULL REFERENCES routes(id),
		job_id TEXT REFERENCES jobs(id) ON DELETE SET NULL,
		job_order INTEGER NOT NULL,
		location_lat {{real}},
		location_lng {{real}},
		completed_at TIMESTAMP
	);
	`

	createGeocodeCacheQuery := `
	CREATE TABLE IF NOT EXISTS geocode_cache (
		address TEXT PRIMARY KEY,
		lat {{real}} NOT NULL,
		lng {{real}} NOT NULL
	);
	`

	statements := []string{
		createClientsQuery,
		createWorkersQuery,
		createRoutesQuery,
		createJobsQuery,
		createRouteJobsQuery,
		createGeocodeCacheQuery,
		`CREATE INDEX IF NOT EXISTS idx_routes_route_date ON routes(route_date);`,
		`CREATE INDEX IF NOT EXISTS idx_route_jobs_route_id ON route_jobs(route_id);`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_route_id ON jobs(route_id);`,
	}

	r := strings.NewReplacer("{{real}}", floatType, "{{path}}", pathType)
	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, r.Replace(stmt)); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
