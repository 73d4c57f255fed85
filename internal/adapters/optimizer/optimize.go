package optimizer

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"field-route-service/internal/domain"
	"field-route-service/internal/platform/obs"
	"field-route-service/internal/ports"
)

var _ ports.RouteOptimizer = (*Client)(nil)

const defaultOptimizeFailure = "Failed to optimize routes"

type jobPayload struct {
	ID        string  `json:"id"`
	Address   string  `json:"address,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type workerPayload struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	DepotAddress string   `json:"depot_address,omitempty"`
	DepotLat     *float64 `json:"depot_lat,omitempty"`
	DepotLng     *float64 `json:"depot_lng,omitempty"`
}

type optimizeRequest struct {
	Jobs    []jobPayload    `json:"jobs"`
	Workers []workerPayload `json:"workers"`
}

type stopPayload struct {
	JobID    string     `json:"job_id" validate:"required"`
	Order    int        `json:"order" validate:"gte=1"`
	Location []*float64 `json:"location" validate:"len=2"`
}

type routePayload struct {
	WorkerID             string        `json:"worker_id" validate:"required"`
	WorkerName           string        `json:"worker_name"`
	Jobs                 []stopPayload `json:"jobs" validate:"dive"`
	TotalDurationSeconds *float64      `json:"total_duration_seconds" validate:"required"`
	TotalDistanceMeters  *float64      `json:"total_distance_meters" validate:"required"`
	OptimizedPath        [][]*float64  `json:"optimized_path"`
}

type optimizeResponse struct {
	Success  *bool                   `json:"success" validate:"required"`
	Routes   map[string]routePayload `json:"routes"`
	Error    string                  `json:"error"`
	Warnings []any                   `json:"warnings"`
}

// Optimize sends jobs and workers to {base}/api/optimize-routes.
//
// The result holds only workers that were submitted; unknown keys in the
// response are logged and dropped. Any transport, service or shape failure
// returns *domain.OptimizationError and no result.
func (c *Client) Optimize(
	ctx context.Context,
	jobs []domain.JobRef,
	workers []domain.WorkerRef,
) (_ *domain.OptimizationResult, err error) {
	defer obs.Time(ctx, "optimizer.Optimize")(&err)

	req, err := buildOptimizeRequest(jobs, workers)
	if err != nil {
		return nil, err
	}

	body, err := c.post(ctx, "/api/optimize-routes", req)
	if err != nil {
		return nil, &domain.OptimizationError{Kind: domain.KindTransport, Msg: "request failed", Err: err}
	}

	var decoded optimizeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &domain.OptimizationError{Kind: domain.KindMalformed, Msg: "decode response", Err: err}
	}

	if decoded.Success != nil && !*decoded.Success {
		msg := strings.TrimSpace(decoded.Error)
		if msg == "" {
			msg = defaultOptimizeFailure
		}
		return nil, &domain.OptimizationError{Kind: domain.KindService, Msg: msg}
	}

	if err := c.validate.Struct(decoded); err != nil {
		return nil, &domain.OptimizationError{Kind: domain.KindMalformed, Msg: "invalid response", Err: err}
	}
	if decoded.Routes == nil {
		return nil, &domain.OptimizationError{Kind: domain.KindMalformed, Msg: "success response without routes"}
	}

	submitted := make(map[string]domain.WorkerRef, len(workers))
	for _, w := range workers {
		submitted[w.ID] = w
	}

	result := &domain.OptimizationResult{
		Routes:   make(map[string]domain.OptimizedRoute, len(decoded.Routes)),
		Warnings: decoded.Warnings,
	}
	for key, rp := range decoded.Routes {
		w, ok := submitted[key]
		if !ok {
			obs.Log(ctx).WithField("worker_id", key).Warn("optimizer returned a route for an unknown worker, dropping it")
			continue
		}

		if err := c.validate.Struct(rp); err != nil {
			return nil, &domain.OptimizationError{Kind: domain.KindMalformed, Msg: fmt.Sprintf("route for worker %q", key), Err: err}
		}
		route, err := convertRoute(key, rp, w)
		if err != nil {
			return nil, &domain.OptimizationError{Kind: domain.KindMalformed, Msg: fmt.Sprintf("route for worker %q", key), Err: err}
		}
		result.Routes[key] = route
	}

	return result, nil
}

func buildOptimizeRequest(jobs []domain.JobRef, workers []domain.WorkerRef) (optimizeRequest, error) {
	if len(jobs) == 0 {
		return optimizeRequest{}, &domain.ValidationError{Field: "jobs", Msg: "select at least one job"}
	}
	if len(workers) == 0 {
		return optimizeRequest{}, &domain.ValidationError{Field: "workers", Msg: "select at least one worker"}
	}

	req := optimizeRequest{
		Jobs:    make([]jobPayload, 0, len(jobs)),
		Workers: make([]workerPayload, 0, len(workers)),
	}

	for _, j := range jobs {
		if strings.TrimSpace(j.ID) == "" {
			return optimizeRequest{}, &domain.ValidationError{Field: "jobs", Msg: "job id is empty"}
		}
		loc, ok := j.Location()
		if !ok {
			return optimizeRequest{}, &domain.ValidationError{Field: "jobs", Msg: fmt.Sprintf("job %q has no valid coordinates", j.ID)}
		}
		req.Jobs = append(req.Jobs, jobPayload{ID: j.ID, Address: j.Address, Latitude: loc.Lat, Longitude: loc.Lng})
	}

	seen := make(map[string]struct{}, len(workers))
	for _, w := range workers {
		if strings.TrimSpace(w.ID) == "" {
			return optimizeRequest{}, &domain.ValidationError{Field: "workers", Msg: "worker id is empty"}
		}
		if _, dup := seen[w.ID]; dup {
			return optimizeRequest{}, &domain.ValidationError{Field: "workers", Msg: fmt.Sprintf("worker %q selected twice", w.ID)}
		}
		seen[w.ID] = struct{}{}

		wp := workerPayload{ID: w.ID, Name: w.Name, DepotAddress: w.DepotAddress}
		if depot, ok := w.Depot(); ok {
			lat, lng := depot.Lat, depot.Lng
			wp.DepotLat, wp.DepotLng = &lat, &lng
		}
		req.Workers = append(req.Workers, wp)
	}

	return req, nil
}

func convertRoute(key string, rp routePayload, w domain.WorkerRef) (domain.OptimizedRoute, error) {
	if rp.WorkerID != key {
		return domain.OptimizedRoute{}, fmt.Errorf("worker_id %q does not match key", rp.WorkerID)
	}

	name := strings.TrimSpace(rp.WorkerName)
	if name == "" {
		name = w.Name
	}

	route := domain.OptimizedRoute{
		WorkerID:             key,
		WorkerName:           name,
		Stops:                make([]domain.Stop, 0, len(rp.Jobs)),
		TotalDistanceMeters:  int(math.Round(*rp.TotalDistanceMeters)),
		TotalDurationSeconds: int(math.Round(*rp.TotalDurationSeconds)),
		Path:                 make([]domain.Coordinate, 0, len(rp.OptimizedPath)),
	}

	orders := make(map[int]struct{}, len(rp.Jobs))
	for _, sp := range rp.Jobs {
		if _, dup := orders[sp.Order]; dup {
			return domain.OptimizedRoute{}, fmt.Errorf("duplicate stop order %d", sp.Order)
		}
		orders[sp.Order] = struct{}{}

		loc := domain.CoordinateFromPair(sp.Location)
		if !loc.Valid() {
			return domain.OptimizedRoute{}, fmt.Errorf("stop %q has invalid location", sp.JobID)
		}
		route.Stops = append(route.Stops, domain.Stop{JobID: sp.JobID, Order: sp.Order, Location: loc})
	}
	sort.Slice(route.Stops, func(i, j int) bool { return route.Stops[i].Order < route.Stops[j].Order })
	for i, st := range route.Stops {
		if st.Order != route.Stops[0].Order+i {
			return domain.OptimizedRoute{}, fmt.Errorf("stop orders skip from %d to %d", route.Stops[i-1].Order, st.Order)
		}
	}

	for _, p := range rp.OptimizedPath {
		c := domain.CoordinateFromPair(p)
		if !c.Valid() {
			continue
		}
		route.Path = append(route.Path, c)
	}

	return route, nil
}
