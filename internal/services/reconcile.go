package services

import (
	"context"
	"errors"
	"field-route-service/internal/domain"
	"field-route-service/internal/platform/metrics"
	"field-route-service/internal/platform/obs"
	"field-route-service/internal/ports"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RouteReconciler replaces persisted routes with optimizer output.
//
// For every worker the existing route for the day is removed children first
// (stops, then job pointers, then the route row) and the new route is inserted
// with its stops and job pointers, all inside one transaction. Workers are
// saved one at a time; a failure stops the call but keeps workers already
// committed.
type RouteReconciler struct {
	Store  ports.RouteStore
	Events ports.EventPublisher
	Now    func() time.Time
	NewID  func() string
}

func NewRouteReconciler(store ports.RouteStore, events ports.EventPublisher) *RouteReconciler {
	return &RouteReconciler{
		Store:  store,
		Events: events,
		Now:    time.Now,
		NewID:  uuid.NewString,
	}
}

type pendingRoute struct {
	workerID string
	route    domain.OptimizedRoute
	stops    []domain.Stop
}

// SaveRoutes persists one route per worker for date and returns the routes
// that were committed, in worker id order.
//
// On error the returned slice holds the routes committed before the failure.
// Validation problems are reported before anything is written.
func (r *RouteReconciler) SaveRoutes(
	ctx context.Context,
	routesByWorker map[string]domain.OptimizedRoute,
	routeDate time.Time,
) (_ []domain.Route, err error) {
	defer obs.Time(ctx, "reconciler.SaveRoutes")(&err)

	if r.Store == nil {
		return nil, errors.New("save routes: store is nil")
	}

	plan, err := planSave(routesByWorker, routeDate)
	if err != nil {
		return nil, err
	}
	date := domain.DateOf(routeDate)

	// Look every worker up first so a broken store fails the call before any write.
	for _, p := range plan {
		if _, _, err := r.Store.FindRouteID(ctx, p.workerID, date); err != nil {
			return nil, &domain.PersistenceError{Op: "find existing route", WorkerID: p.workerID, Err: err}
		}
	}

	saved := make([]domain.Route, 0, len(plan))
	for _, p := range plan {
		route, err := r.saveWorker(ctx, p, date)
		if err != nil {
			metrics.RouteSaveFailures.Inc()
			obs.Log(ctx).WithError(err).WithField("worker_id", p.workerID).
				WithField("saved", len(saved)).Error("route save aborted")
			return saved, err
		}
		metrics.RoutesSaved.Inc()
		saved = append(saved, route)
		r.publish(ctx, route, len(p.stops))
	}

	return saved, nil
}

func (r *RouteReconciler) saveWorker(ctx context.Context, p pendingRoute, date time.Time) (domain.Route, error) {
	now := r.now()
	route := domain.Route{
		ID:                   r.newID(),
		WorkerID:             p.workerID,
		RouteDate:            date,
		Status:               domain.RouteStatusPending,
		TotalDistanceMeters:  p.route.TotalDistanceMeters,
		TotalDurationSeconds: p.route.TotalDurationSeconds,
		Path:                 p.route.Path,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	stops := make([]domain.RouteStop, 0, len(p.stops))
	for _, s := range p.stops {
		stops = append(stops, domain.RouteStop{
			ID:       r.newID(),
			RouteID:  route.ID,
			JobID:    s.JobID,
			Order:    s.Order,
			Location: s.Location,
		})
	}

	err := r.Store.WithinTx(ctx, func(w ports.RouteWriter) error {
		// Looked up again inside the transaction to see routes committed since the pre-check.
		oldID, found, err := w.FindRouteID(ctx, p.workerID, date)
		if err != nil {
			return &domain.PersistenceError{Op: "find existing route", WorkerID: p.workerID, Err: err}
		}

		if found {
			if err := w.DeleteRouteStops(ctx, oldID); err != nil {
				return &domain.PersistenceError{Op: "delete route stops", WorkerID: p.workerID, Err: err}
			}
			if err := w.ClearJobRoutePointers(ctx, oldID); err != nil {
				return &domain.PersistenceError{Op: "clear job route pointers", WorkerID: p.workerID, Err: err}
			}
			if err := w.DeleteRoute(ctx, oldID); err != nil {
				return &domain.PersistenceError{Op: "delete route", WorkerID: p.workerID, Err: err}
			}
			metrics.RoutesReplaced.Inc()
		}

		if err := w.InsertRoute(ctx, route); err != nil {
			return &domain.PersistenceError{Op: "insert route", WorkerID: p.workerID, Err: err}
		}
		if err := w.InsertRouteStops(ctx, stops); err != nil {
			return &domain.PersistenceError{Op: "insert route stops", WorkerID: p.workerID, Err: err}
		}
		for _, s := range stops {
			if err := w.SetJobRoutePointer(ctx, s.JobID, route.ID, s.Order); err != nil {
				return &domain.PersistenceError{Op: "set job route pointer", WorkerID: p.workerID, Err: err}
			}
		}
		return nil
	})
	if err != nil {
		var pe *domain.PersistenceError
		if errors.As(err, &pe) {
			return domain.Route{}, err
		}
		return domain.Route{}, &domain.PersistenceError{Op: "commit", WorkerID: p.workerID, Err: err}
	}

	return route, nil
}

func (r *RouteReconciler) publish(ctx context.Context, route domain.Route, stopCount int) {
	if r.Events == nil {
		return
	}

	evt := domain.RouteEvent{
		Type:      domain.EventRouteSaved,
		RouteID:   route.ID,
		WorkerID:  route.WorkerID,
		RouteDate: domain.FormatDate(route.RouteDate),
		StopCount: stopCount,
		At:        route.CreatedAt,
	}
	if err := r.Events.Publish(ctx, evt); err != nil {
		obs.Log(ctx).WithError(err).WithField("route_id", route.ID).Warn("publish route event failed")
	}
}

func (r *RouteReconciler) now() time.Time {
	if r.Now == nil {
		return time.Now().UTC()
	}
	return r.Now().UTC()
}

func (r *RouteReconciler) newID() string {
	if r.NewID == nil {
		return uuid.NewString()
	}
	return r.NewID()
}

// planSave validates the whole batch and returns it sorted by worker id with
// each route's stops sorted by visit order.
func planSave(routesByWorker map[string]domain.OptimizedRoute, routeDate time.Time) ([]pendingRoute, error) {
	if routeDate.IsZero() {
		return nil, &domain.ValidationError{Field: "route_date", Msg: "route date is required"}
	}

	jobOwner := make(map[string]string)
	plan := make([]pendingRoute, 0, len(routesByWorker))

	for key, rt := range routesByWorker {
		workerID := strings.TrimSpace(rt.WorkerID)
		if workerID == "" {
			workerID = strings.TrimSpace(key)
		}
		if workerID == "" {
			return nil, &domain.ValidationError{Field: "worker_id", Msg: "route has no worker id"}
		}
		if key != "" && key != workerID {
			return nil, &domain.ValidationError{Field: "worker_id", Msg: fmt.Sprintf("route keyed %q belongs to worker %q", key, workerID)}
		}

		stops := make([]domain.Stop, len(rt.Stops))
		copy(stops, rt.Stops)
		sort.SliceStable(stops, func(i, j int) bool { return stops[i].Order < stops[j].Order })

		orders := make(map[int]struct{}, len(stops))
		for i, s := range stops {
			if strings.TrimSpace(s.JobID) == "" {
				return nil, &domain.ValidationError{Field: "jobs", Msg: fmt.Sprintf("worker %q has a stop without a job id", workerID)}
			}
			if s.Order < 1 {
				return nil, &domain.ValidationError{Field: "jobs", Msg: fmt.Sprintf("worker %q job %q has order %d, want >= 1", workerID, s.JobID, s.Order)}
			}
			if _, dup := orders[s.Order]; dup {
				return nil, &domain.ValidationError{Field: "jobs", Msg: fmt.Sprintf("worker %q has two stops with order %d", workerID, s.Order)}
			}
			orders[s.Order] = struct{}{}
			if s.Order != stops[0].Order+i {
				return nil, &domain.ValidationError{Field: "jobs", Msg: fmt.Sprintf("worker %q stop orders skip from %d to %d", workerID, stops[i-1].Order, s.Order)}
			}

			if owner, dup := jobOwner[s.JobID]; dup {
				return nil, &domain.ValidationError{Field: "jobs", Msg: fmt.Sprintf("job %q is assigned to both %q and %q", s.JobID, owner, workerID)}
			}
			jobOwner[s.JobID] = workerID
		}

		plan = append(plan, pendingRoute{workerID: workerID, route: rt, stops: stops})
	}

	sort.Slice(plan, func(i, j int) bool { return plan[i].workerID < plan[j].workerID })
	return plan, nil
}
