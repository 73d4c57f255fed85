package repositories

import (
	"context"
	"database/sql"
	"field-route-service/internal/domain"
	"field-route-service/internal/platform/db"
	"field-route-service/internal/platform/obs"
	"fmt"
)

// Return the jobs with the given ids in id order. Unknown ids are skipped.
func (s *SQLRouteRepository) ListJobs(ctx context.Context, ids []string) (_ []domain.JobRef, err error) {
	defer obs.Time(ctx, "selection.ListJobs")(&err)

	if len(ids) == 0 {
		return []domain.JobRef{}, nil
	}

	query := fmt.Sprintf(`
	SELECT id, title, address, latitude, longitude
	FROM jobs
	WHERE id IN (%s)
	ORDER BY id;
	`, db.Placeholders(len(ids)))

	rows, err := s.DB.QueryContext(ctx, s.Dialect.Rebind(query), stringArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: query jobs table: %w", err)
	}
	defer rows.Close()

	out := make([]domain.JobRef, 0, len(ids))
	for rows.Next() {
		var (
			j        domain.JobRef
			address  sql.NullString
			lat, lng sql.NullFloat64
		)
		if err := rows.Scan(&j.ID, &j.Title, &address, &lat, &lng); err != nil {
			return nil, fmt.Errorf("list jobs: scan row: %w", err)
		}
		j.Address = address.String
		if lat.Valid && lng.Valid {
			j = j.WithLocation(domain.Coordinate{Lat: lat.Float64, Lng: lng.Float64})
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: row iteration: %w", err)
	}

	return out, nil
}

// Return the workers with the given ids in id order. Unknown ids are skipped.
func (s *SQLRouteRepository) ListWorkers(ctx context.Context, ids []string) (_ []domain.WorkerRef, err error) {
	defer obs.Time(ctx, "selection.ListWorkers")(&err)

	if len(ids) == 0 {
		return []domain.WorkerRef{}, nil
	}

	query := fmt.Sprintf(`
	SELECT id, name, depot_address, depot_lat, depot_lng
	FROM workers
	WHERE id IN (%s)
	ORDER BY id;
	`, db.Placeholders(len(ids)))

	rows, err := s.DB.QueryContext(ctx, s.Dialect.Rebind(query), stringArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("list workers: query workers table: %w", err)
	}
	defer rows.Close()

	out := make([]domain.WorkerRef, 0, len(ids))
	for rows.Next() {
		var (
			w        domain.WorkerRef
			depot    sql.NullString
			lat, lng sql.NullFloat64
		)
		if err := rows.Scan(&w.ID, &w.Name, &depot, &lat, &lng); err != nil {
			return nil, fmt.Errorf("list workers: scan row: %w", err)
		}
		w.DepotAddress = depot.String
		if lat.Valid && lng.Valid {
			la, ln := lat.Float64, lng.Float64
			w.DepotLat, w.DepotLng = &la, &ln
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list workers: row iteration: %w", err)
	}

	return out, nil
}

func stringArgs(ss []string) []any {
	args := make([]any, 0, len(ss))
	for _, s := range ss {
		args = append(args, s)
	}
	return args
}
