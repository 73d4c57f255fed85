package services

import (
	"context"
	"field-route-service/internal/domain"
	"field-route-service/internal/platform/obs"
	"field-route-service/internal/ports"
	"fmt"
	"strings"
)

var _ ports.RouteOptimizer = (*LocalOptimizer)(nil)

// LocalOptimizer plans routes in-process when no external optimizer is
// configured. Jobs are banded by distance from a hub and each band is
// ordered nearest-neighbor from the worker's depot.
//
// The hub is the first worker depot, or the centroid of the jobs when no
// worker has one.
type LocalOptimizer struct{}

func NewLocalOptimizer() *LocalOptimizer { return &LocalOptimizer{} }

func (o *LocalOptimizer) Optimize(
	ctx context.Context,
	jobs []domain.JobRef,
	workers []domain.WorkerRef,
) (_ *domain.OptimizationResult, err error) {
	defer obs.Time(ctx, "local.Optimize")(&err)

	if len(jobs) == 0 {
		return nil, &domain.ValidationError{Field: "jobs", Msg: "select at least one job"}
	}
	if len(workers) == 0 {
		return nil, &domain.ValidationError{Field: "workers", Msg: "select at least one worker"}
	}

	located := make([]LocatedJob, 0, len(jobs))
	points := make([]domain.Coordinate, 0, len(jobs))
	for _, j := range jobs {
		loc, ok := j.Location()
		if !ok {
			return nil, &domain.ValidationError{Field: "jobs", Msg: fmt.Sprintf("job %q has no valid coordinates", j.ID)}
		}
		located = append(located, LocatedJob{ID: j.ID, Location: loc})
		points = append(points, loc)
	}

	seen := make(map[string]struct{}, len(workers))
	hub := domain.NoCoordinate()
	for _, w := range workers {
		if strings.TrimSpace(w.ID) == "" {
			return nil, &domain.ValidationError{Field: "workers", Msg: "worker id is empty"}
		}
		if _, dup := seen[w.ID]; dup {
			return nil, &domain.ValidationError{Field: "workers", Msg: fmt.Sprintf("worker %q selected twice", w.ID)}
		}
		seen[w.ID] = struct{}{}

		if depot, ok := w.Depot(); ok && !hub.Valid() {
			hub = depot
		}
	}
	if !hub.Valid() {
		hub = domain.Centroid(points)
	}

	bands, err := AssignJobsByDistance(hub, located, len(workers))
	if err != nil {
		return nil, &domain.OptimizationError{Kind: domain.KindService, Msg: "assign jobs", Err: err}
	}

	result := &domain.OptimizationResult{Routes: make(map[string]domain.OptimizedRoute, len(workers))}
	for i, w := range workers {
		if len(bands[i]) == 0 {
			result.Warnings = append(result.Warnings, fmt.Sprintf("worker %s received no jobs", w.ID))
			continue
		}

		start, ok := w.Depot()
		if !ok {
			start = hub
		}
		result.Routes[w.ID] = NearestNeighborRoute(w, start, bands[i])
	}

	return result, nil
}
