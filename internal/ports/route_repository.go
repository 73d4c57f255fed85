package ports

import (
	"context"
	"field-route-service/internal/domain"
	"time"
)

// RouteWriter holds the individual reconciliation steps. Each call is a single
// statement; ordering and atomicity belong to the caller.
type RouteWriter interface {
	// Return the id of the route for (workerID, date), if one exists.
	FindRouteID(ctx context.Context, workerID string, date time.Time) (string, bool, error)
	DeleteRouteStops(ctx context.Context, routeID string) error
	// Clear route_id and route_order on every job pointing at routeID.
	ClearJobRoutePointers(ctx context.Context, routeID string) error
	DeleteRoute(ctx context.Context, routeID string) error
	InsertRoute(ctx context.Context, route domain.Route) error
	InsertRouteStops(ctx context.Context, stops []domain.RouteStop) error
	SetJobRoutePointer(ctx context.Context, jobID string, routeID string, order int) error
}

// RouteStore is a RouteWriter that can run a group of steps in one transaction.
type RouteStore interface {
	RouteWriter
	// Run fn in a transaction. The transaction commits only if fn returns nil.
	WithinTx(ctx context.Context, fn func(w RouteWriter) error) error
}

// Read side of persisted routes. Implementations never mutate.
type RouteQuerier interface {
	ListActiveRoutesForDate(ctx context.Context, date time.Time) ([]domain.WorkerRouteSummary, error)
	// Fails with domain.ErrNotFound when the route does not exist.
	GetFullRoute(ctx context.Context, routeID string) (*domain.RouteDetail, error)
	ListRoutes(ctx context.Context, filter domain.RouteFilter) ([]domain.WorkerRouteSummary, error)
	RoutesForDisplay(ctx context.Context, date time.Time) ([]domain.RouteDisplay, error)
}

// Read access to the jobs and workers a caller selects for optimization.
type SelectionRepository interface {
	ListJobs(ctx context.Context, ids []string) ([]domain.JobRef, error)
	ListWorkers(ctx context.Context, ids []string) ([]domain.WorkerRef, error)
}
