package repositories

import (
	"context"
	"database/sql"
	"errors"
	"field-route-service/internal/domain"
	"field-route-service/internal/platform/db"
	"field-route-service/internal/platform/obs"
	"fmt"
	"strings"
	"time"
)

const summarySelect = `
	SELECT
		r.id,
		r.worker_id,
		w.name,
		r.route_date,
		r.status,
		r.total_distance_meters,
		r.total_duration_seconds,
		(SELECT COUNT(*) FROM route_jobs rj WHERE rj.route_id = r.id) AS stop_count,
		(SELECT COUNT(*) FROM route_jobs rj WHERE rj.route_id = r.id AND rj.completed_at IS NOT NULL) AS completed_count
	FROM routes r
	LEFT JOIN workers w ON w.id = r.worker_id
`

// Return every route on date with its worker and stop counts. Routes whose
// worker row is gone are still listed under domain.UnknownName.
func (s *SQLRouteRepository) ListActiveRoutesForDate(
	ctx context.Context,
	date time.Time,
) (_ []domain.WorkerRouteSummary, err error) {
	defer obs.Time(ctx, "routes.ListActiveRoutesForDate")(&err)

	query := summarySelect + `
	WHERE r.route_date = ?
	ORDER BY COALESCE(w.name, ''), r.id;
	`

	out, err := s.querySummaries(ctx, query, domain.FormatDate(date))
	if err != nil {
		return nil, fmt.Errorf("list active routes date=%s: %w", domain.FormatDate(date), err)
	}
	return out, nil
}

// Return routes matching filter, newest route_date first.
func (s *SQLRouteRepository) ListRoutes(
	ctx context.Context,
	filter domain.RouteFilter,
) (_ []domain.WorkerRouteSummary, err error) {
	defer obs.Time(ctx, "routes.ListRoutes")(&err)

	where := make([]string, 0, 3)
	args := make([]any, 0, 3)
	if filter.WorkerID != "" {
		where = append(where, "r.worker_id = ?")
		args = append(args, filter.WorkerID)
	}
	if !filter.Date.IsZero() {
		where = append(where, "r.route_date = ?")
		args = append(args, domain.FormatDate(filter.Date))
	}
	if filter.Status != "" {
		where = append(where, "r.status = ?")
		args = append(args, filter.Status)
	}

	query := summarySelect
	if len(where) > 0 {
		query += "WHERE " + strings.Join(where, " AND ") + "\n"
	}
	query += "ORDER BY r.route_date DESC, COALESCE(w.name, ''), r.id;"

	out, err := s.querySummaries(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	return out, nil
}

func (s *SQLRouteRepository) querySummaries(ctx context.Context, query string, args ...any) ([]domain.WorkerRouteSummary, error) {
	rows, err := s.DB.QueryContext(ctx, s.Dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query routes table: %w", err)
	}
	defer rows.Close()

	out := make([]domain.WorkerRouteSummary, 0, 16)
	for rows.Next() {
		var (
			sum        domain.WorkerRouteSummary
			workerID   sql.NullString
			workerName sql.NullString
			routeDate  any
		)
		if err := rows.Scan(
			&sum.RouteID,
			&workerID,
			&workerName,
			&routeDate,
			&sum.Status,
			&sum.TotalDistanceMeters,
			&sum.TotalDurationSeconds,
			&sum.StopCount,
			&sum.CompletedCount,
		); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		sum.WorkerID = workerID.String
		sum.WorkerName = workerName.String
		if sum.WorkerName == "" {
			sum.WorkerName = domain.UnknownName
		}
		if sum.RouteDate, err = asDate(routeDate); err != nil {
			return nil, fmt.Errorf("scan row route_id=%s: %w", sum.RouteID, err)
		}

		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}

	return out, nil
}

// Return a route with its stops joined to job title and address, ordered by
// visit order. Stops whose job no longer exists are dropped.
func (s *SQLRouteRepository) GetFullRoute(ctx context.Context, routeID string) (_ *domain.RouteDetail, err error) {
	defer obs.Time(ctx, "routes.GetFullRoute")(&err)

	query := `
	SELECT
		r.id,
		r.worker_id,
		w.name,
		r.route_date,
		r.status,
		r.total_distance_meters,
		r.total_duration_seconds,
		r.optimized_path,
		r.notes,
		r.created_at,
		r.updated_at
	FROM routes r
	LEFT JOIN workers w ON w.id = r.worker_id
	WHERE r.id = ?;
	`

	var (
		detail     domain.RouteDetail
		workerID   sql.NullString
		workerName sql.NullString
		notes      sql.NullString
		path       sql.NullString
		routeDate  any
		createdAt  any
		updatedAt  any
	)
	err = s.DB.QueryRowContext(ctx, s.Dialect.Rebind(query), routeID).Scan(
		&detail.ID,
		&workerID,
		&workerName,
		&routeDate,
		&detail.Status,
		&detail.TotalDistanceMeters,
		&detail.TotalDurationSeconds,
		&path,
		&notes,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get route %q: %w", routeID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get route %q: %w", routeID, err)
	}

	detail.WorkerID = workerID.String
	detail.WorkerName = workerName.String
	if detail.WorkerName == "" {
		detail.WorkerName = domain.UnknownName
	}
	detail.Notes = notes.String
	if detail.RouteDate, err = asDate(routeDate); err != nil {
		return nil, fmt.Errorf("get route %q: %w", routeID, err)
	}
	if detail.CreatedAt, _, err = asTime(createdAt); err != nil {
		return nil, fmt.Errorf("get route %q: created_at: %w", routeID, err)
	}
	if detail.UpdatedAt, _, err = asTime(updatedAt); err != nil {
		return nil, fmt.Errorf("get route %q: updated_at: %w", routeID, err)
	}
	detail.Path = decodePath(ctx, routeID, path)

	stops, err := s.queryStops(ctx, []string{routeID})
	if err != nil {
		return nil, fmt.Errorf("get route %q: %w", routeID, err)
	}
	detail.Stops = stops[routeID]
	if detail.Stops == nil {
		detail.Stops = []domain.RouteDetailStop{}
	}

	return &detail, nil
}

// queryStops loads stops for many routes in one query, grouped by route id and
// ordered by visit order.
func (s *SQLRouteRepository) queryStops(ctx context.Context, routeIDs []string) (map[string][]domain.RouteDetailStop, error) {
	out := make(map[string][]domain.RouteDetailStop, len(routeIDs))
	if len(routeIDs) == 0 {
		return out, nil
	}

	args := stringArgs(routeIDs)

	// Only the placeholder structure is interpolated; all values remain parameterized.
	query := fmt.Sprintf(`
	SELECT
		rj.id,
		rj.route_id,
		j.id,
		rj.job_order,
		rj.location_lat,
		rj.location_lng,
		rj.completed_at,
		j.title,
		j.address
	FROM route_jobs rj
	LEFT JOIN jobs j ON j.id = rj.job_id
	WHERE rj.route_id IN (%s)
	ORDER BY rj.route_id, rj.job_order;
	`, db.Placeholders(len(args)))

	rows, err := s.DB.QueryContext(ctx, s.Dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query route_jobs table: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			stop        domain.RouteDetailStop
			jobID       sql.NullString
			lat, lng    sql.NullFloat64
			completedAt any
			title, addr sql.NullString
		)
		if err := rows.Scan(&stop.ID, &stop.RouteID, &jobID, &stop.Order, &lat, &lng, &completedAt, &title, &addr); err != nil {
			return nil, fmt.Errorf("scan route_jobs row: %w", err)
		}
		if !jobID.Valid {
			continue
		}

		stop.JobID = jobID.String
		stop.Location = coordinateFromNull(lat, lng)
		stop.JobTitle = title.String
		stop.JobAddress = addr.String

		t, ok, err := asTime(completedAt)
		if err != nil {
			return nil, fmt.Errorf("scan route_jobs row id=%s: completed_at: %w", stop.ID, err)
		}
		if ok {
			stop.CompletedAt = &t
		}

		out[stop.RouteID] = append(out[stop.RouteID], stop)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("route_jobs row iteration: %w", err)
	}

	return out, nil
}

// Return every route on date in the map display shape.
func (s *SQLRouteRepository) RoutesForDisplay(ctx context.Context, date time.Time) (_ []domain.RouteDisplay, err error) {
	defer obs.Time(ctx, "routes.RoutesForDisplay")(&err)

	query := `
	SELECT
		r.id,
		r.worker_id,
		w.name,
		r.optimized_path
	FROM routes r
	LEFT JOIN workers w ON w.id = r.worker_id
	WHERE r.route_date = ?
	ORDER BY COALESCE(w.name, ''), r.id;
	`

	type routeRow struct {
		id      string
		display domain.RouteDisplay
	}

	rows, err := s.DB.QueryContext(ctx, s.Dialect.Rebind(query), domain.FormatDate(date))
	if err != nil {
		return nil, fmt.Errorf("routes for display: query routes table: %w", err)
	}

	routes := make([]routeRow, 0, 16)
	for rows.Next() {
		var (
			rr         routeRow
			workerID   sql.NullString
			workerName sql.NullString
			path       sql.NullString
		)
		if err := rows.Scan(&rr.id, &workerID, &workerName, &path); err != nil {
			rows.Close()
			return nil, fmt.Errorf("routes for display: scan row: %w", err)
		}
		rr.display.WorkerID = workerID.String
		rr.display.WorkerName = workerName.String
		if rr.display.WorkerName == "" {
			rr.display.WorkerName = domain.UnknownName
		}
		rr.display.Path = decodePath(ctx, rr.id, path)
		routes = append(routes, rr)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("routes for display: row iteration: %w", err)
	}
	rows.Close()

	ids := make([]string, 0, len(routes))
	for _, rr := range routes {
		ids = append(ids, rr.id)
	}
	stops, err := s.queryStops(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("routes for display: %w", err)
	}

	out := make([]domain.RouteDisplay, 0, len(routes))
	for _, rr := range routes {
		d := rr.display
		d.Stops = make([]domain.DisplayStop, 0, len(stops[rr.id]))
		for _, st := range stops[rr.id] {
			name := st.JobTitle
			if name == "" {
				name = domain.UnknownName
			}
			d.Stops = append(d.Stops, domain.DisplayStop{
				JobID:    st.JobID,
				JobName:  name,
				Location: st.Location,
				Order:    st.Order,
			})
		}
		out = append(out, d)
	}

	return out, nil
}
