package repositories

import (
	"context"
	"database/sql"
	"errors"
	"field-route-service/internal/domain"
	"field-route-service/internal/platform/db"
	"field-route-service/internal/platform/obs"
	"field-route-service/internal/ports"
	"fmt"
	"time"
)

var (
	_ ports.RouteStore          = (*SQLRouteRepository)(nil)
	_ ports.RouteQuerier        = (*SQLRouteRepository)(nil)
	_ ports.SelectionRepository = (*SQLRouteRepository)(nil)
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// routeWriter runs single reconciliation statements against a DB or a Tx.
type routeWriter struct {
	q       queryer
	dialect db.Dialect
}

// SQL-backed implementation of the route store, query and selection ports.
// The same queries serve SQLite and Postgres through Dialect.Rebind.
type SQLRouteRepository struct {
	DB      *sql.DB
	Dialect db.Dialect
	routeWriter
}

func NewSQLRouteRepository(conn *sql.DB, dialect db.Dialect) *SQLRouteRepository {
	return &SQLRouteRepository{
		DB:          conn,
		Dialect:     dialect,
		routeWriter: routeWriter{q: conn, dialect: dialect},
	}
}

// WithinTx runs fn against a transaction and commits only when fn succeeds.
func (s *SQLRouteRepository) WithinTx(ctx context.Context, fn func(w ports.RouteWriter) error) error {
	if s.DB == nil {
		return errors.New("route repository: DB is nil")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("route repository: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&routeWriter{q: tx, dialect: s.Dialect}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("route repository: commit tx: %w", err)
	}

	return nil
}

func (w *routeWriter) FindRouteID(ctx context.Context, workerID string, date time.Time) (string, bool, error) {
	query := `
	SELECT id
	FROM routes
	WHERE worker_id = ? AND route_date = ?;
	`

	var id string
	err := w.q.QueryRowContext(ctx, w.dialect.Rebind(query), workerID, domain.FormatDate(date)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("find route worker_id=%s: %w", workerID, err)
	}

	return id, true, nil
}

func (w *routeWriter) DeleteRouteStops(ctx context.Context, routeID string) error {
	query := `DELETE FROM route_jobs WHERE route_id = ?;`
	if _, err := w.q.ExecContext(ctx, w.dialect.Rebind(query), routeID); err != nil {
		return fmt.Errorf("delete route stops route_id=%s: %w", routeID, err)
	}
	return nil
}

func (w *routeWriter) ClearJobRoutePointers(ctx context.Context, routeID string) error {
	query := `
	UPDATE jobs
	SET route_id = NULL,
		route_order = NULL
	WHERE route_id = ?;
	`
	if _, err := w.q.ExecContext(ctx, w.dialect.Rebind(query), routeID); err != nil {
		return fmt.Errorf("clear job route pointers route_id=%s: %w", routeID, err)
	}
	return nil
}

func (w *routeWriter) DeleteRoute(ctx context.Context, routeID string) error {
	query := `DELETE FROM routes WHERE id = ?;`
	if _, err := w.q.ExecContext(ctx, w.dialect.Rebind(query), routeID); err != nil {
		return fmt.Errorf("delete route route_id=%s: %w", routeID, err)
	}
	return nil
}

func (w *routeWriter) InsertRoute(ctx context.Context, route domain.Route) (err error) {
	defer obs.Time(ctx, "routes.InsertRoute")(&err)

	path, err := encodePath(route.Path)
	if err != nil {
		return fmt.Errorf("insert route worker_id=%s: %w", route.WorkerID, err)
	}

	query := `
	INSERT INTO routes (
		id,
		worker_id,
		route_date,
		status,
		total_distance_meters,
		total_duration_seconds,
		optimized_path,
		notes,
		created_at,
		updated_at
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`
	_, err = w.q.ExecContext(ctx, w.dialect.Rebind(query),
		route.ID,
		route.WorkerID,
		domain.FormatDate(route.RouteDate),
		route.Status,
		route.TotalDistanceMeters,
		route.TotalDurationSeconds,
		path,
		nullIfEmpty(route.Notes),
		route.CreatedAt.UTC(),
		route.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert route worker_id=%s: %w", route.WorkerID, err)
	}

	return nil
}

func (w *routeWriter) InsertRouteStops(ctx context.Context, stops []domain.RouteStop) error {
	if len(stops) == 0 {
		return nil
	}

	stmt, err := w.q.PrepareContext(ctx, w.dialect.Rebind(`
	INSERT INTO route_jobs (
		id,
		route_id,
		job_id,
		job_order,
		location_lat,
		location_lng
	)
	VALUES (?, ?, ?, ?, ?, ?);
	`))
	if err != nil {
		return fmt.Errorf("insert route stops: prepare: %w", err)
	}
	defer stmt.Close()

	for _, s := range stops {
		var lat, lng any
		if s.Location.Valid() {
			lat, lng = s.Location.Lat, s.Location.Lng
		}
		if _, err := stmt.ExecContext(ctx, s.ID, s.RouteID, s.JobID, s.Order, lat, lng); err != nil {
			return fmt.Errorf("insert route stop job_id=%s order=%d: %w", s.JobID, s.Order, err)
		}
	}

	return nil
}

func (w *routeWriter) SetJobRoutePointer(ctx context.Context, jobID string, routeID string, order int) error {
	query := `
	UPDATE jobs
	SET route_id = ?,
		route_order = ?
	WHERE id = ?;
	`
	if _, err := w.q.ExecContext(ctx, w.dialect.Rebind(query), routeID, order, jobID); err != nil {
		return fmt.Errorf("set job route pointer job_id=%s: %w", jobID, err)
	}
	return nil
}
