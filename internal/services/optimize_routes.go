package services

import (
	"context"
	"errors"
	"field-route-service/internal/domain"
	"field-route-service/internal/platform/obs"
	"field-route-service/internal/ports"
	"fmt"
	"strings"
	"time"
)

// RoutePlanner runs the optimize-then-persist flow for a selection of jobs
// and workers.
type RoutePlanner struct {
	Optimizer  ports.RouteOptimizer
	Geocoder   ports.Geocoder
	Cache      ports.GeocodeCache
	Selection  ports.SelectionRepository
	Reconciler *RouteReconciler
}

// PlanResult is the outcome of OptimizeAndSave. Saved may be shorter than
// Routes when persistence stopped part way.
type PlanResult struct {
	// Jobs are the submitted jobs with any geocoded coordinates filled in.
	Jobs     []domain.JobRef
	Routes   map[string]domain.OptimizedRoute
	Saved    []domain.Route
	Warnings []any
}

// OptimizeAndSave resolves missing job coordinates, calls the optimizer and
// persists the result for date.
func (p *RoutePlanner) OptimizeAndSave(
	ctx context.Context,
	jobs []domain.JobRef,
	workers []domain.WorkerRef,
	date time.Time,
) (_ *PlanResult, err error) {
	defer obs.Time(ctx, "planner.OptimizeAndSave")(&err)

	if p.Optimizer == nil || p.Reconciler == nil {
		return nil, errors.New("optimize and save: planner is not configured")
	}
	if date.IsZero() {
		return nil, &domain.ValidationError{Field: "route_date", Msg: "route date is required"}
	}
	if len(jobs) == 0 {
		return nil, &domain.ValidationError{Field: "jobs", Msg: "select at least one job"}
	}
	if len(workers) == 0 {
		return nil, &domain.ValidationError{Field: "workers", Msg: "select at least one worker"}
	}

	resolved, err := p.ResolveJobLocations(ctx, jobs)
	if err != nil {
		return nil, err
	}

	opt, err := p.Optimizer.Optimize(ctx, resolved, workers)
	if err != nil {
		return nil, err
	}

	res := &PlanResult{Jobs: resolved, Routes: opt.Routes, Warnings: opt.Warnings}
	res.Saved, err = p.Reconciler.SaveRoutes(ctx, opt.Routes, date)
	if err != nil {
		return res, err
	}

	return res, nil
}

// OptimizeSelection loads jobs and workers by id and runs OptimizeAndSave.
// Unknown ids are a validation error.
func (p *RoutePlanner) OptimizeSelection(
	ctx context.Context,
	jobIDs []string,
	workerIDs []string,
	date time.Time,
) (*PlanResult, error) {
	if p.Selection == nil {
		return nil, errors.New("optimize selection: selection repository is not configured")
	}

	jobs, err := p.Selection.ListJobs(ctx, jobIDs)
	if err != nil {
		return nil, fmt.Errorf("optimize selection: %w", err)
	}
	if missing := missingIDs(jobIDs, jobs, func(j domain.JobRef) string { return j.ID }); len(missing) > 0 {
		return nil, &domain.ValidationError{Field: "job_ids", Msg: "unknown jobs: " + strings.Join(missing, ", ")}
	}

	workers, err := p.Selection.ListWorkers(ctx, workerIDs)
	if err != nil {
		return nil, fmt.Errorf("optimize selection: %w", err)
	}
	if missing := missingIDs(workerIDs, workers, func(w domain.WorkerRef) string { return w.ID }); len(missing) > 0 {
		return nil, &domain.ValidationError{Field: "worker_ids", Msg: "unknown workers: " + strings.Join(missing, ", ")}
	}

	return p.OptimizeAndSave(ctx, jobs, workers, date)
}

// ResolveJobLocations returns jobs with every missing coordinate filled in
// from the geocoder. A job that cannot be located is a validation error.
func (p *RoutePlanner) ResolveJobLocations(ctx context.Context, jobs []domain.JobRef) ([]domain.JobRef, error) {
	out := make([]domain.JobRef, len(jobs))
	copy(out, jobs)

	var (
		pending   []int
		addresses []string
	)
	for i, j := range out {
		if _, ok := j.Location(); ok {
			continue
		}
		addr := domain.NormalizeAddress(j.Address)
		if addr == "" {
			return nil, &domain.ValidationError{Field: "jobs", Msg: fmt.Sprintf("job %q has no coordinates and no address", j.ID)}
		}
		pending = append(pending, i)
		addresses = append(addresses, addr)
	}
	if len(pending) == 0 {
		return out, nil
	}

	coords, err := p.Geocode(ctx, addresses)
	if err != nil {
		return nil, err
	}

	for k, i := range pending {
		if !coords[k].Valid() {
			return nil, &domain.ValidationError{Field: "jobs", Msg: fmt.Sprintf("could not geocode job %q (%s)", out[i].ID, addresses[k])}
		}
		out[i] = out[i].WithLocation(coords[k])
	}

	return out, nil
}

// Geocode resolves addresses through the cache first and the remote geocoder
// for the rest. Cache failures are logged and treated as misses.
func (p *RoutePlanner) Geocode(ctx context.Context, addresses []string) ([]domain.Coordinate, error) {
	if len(addresses) == 0 {
		return nil, &domain.ValidationError{Field: "addresses", Msg: "no addresses to geocode"}
	}

	norm := make([]string, len(addresses))
	for i, a := range addresses {
		norm[i] = domain.NormalizeAddress(a)
		if norm[i] == "" {
			return nil, &domain.ValidationError{Field: "addresses", Msg: fmt.Sprintf("address at index %d is empty", i)}
		}
	}

	cached := map[string]domain.Coordinate{}
	if p.Cache != nil {
		hits, err := p.Cache.GetMany(ctx, norm)
		if err != nil {
			obs.Log(ctx).WithError(err).Warn("geocode cache read failed")
		} else {
			cached = hits
		}
	}

	seen := make(map[string]struct{}, len(norm))
	var misses []string
	for _, a := range norm {
		if _, ok := cached[a]; ok {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		misses = append(misses, a)
	}

	if len(misses) > 0 {
		if p.Geocoder == nil {
			return nil, &domain.GeocodeError{Kind: domain.KindTransport, Msg: "no geocoder configured"}
		}

		coords, err := p.Geocoder.Geocode(ctx, misses)
		if err != nil {
			return nil, err
		}

		fresh := make(map[string]domain.Coordinate, len(misses))
		for i, a := range misses {
			cached[a] = coords[i]
			if coords[i].Valid() {
				fresh[a] = coords[i]
			}
		}

		if p.Cache != nil && len(fresh) > 0 {
			if err := p.Cache.PutMany(ctx, fresh); err != nil {
				obs.Log(ctx).WithError(err).Warn("geocode cache write failed")
			}
		}
	}

	out := make([]domain.Coordinate, len(norm))
	for i, a := range norm {
		out[i] = cached[a]
	}
	return out, nil
}

func missingIDs[T any](want []string, got []T, id func(T) string) []string {
	have := make(map[string]struct{}, len(got))
	for _, g := range got {
		have[id(g)] = struct{}{}
	}

	var missing []string
	for _, w := range want {
		if _, ok := have[w]; !ok {
			missing = append(missing, w)
		}
	}
	return missing
}
