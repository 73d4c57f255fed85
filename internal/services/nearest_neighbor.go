package services

import (
	"field-route-service/internal/domain"
	"math"
)

// Travel speed used to estimate durations from straight-line distance.
const averageSpeedMetersPerSecond = 11.1

// NearestNeighborRoute orders jobs with a greedy nearest-neighbor walk from start.
//
// Each step picks the closest remaining job by great-circle distance.
// It does not attempt global route optimization.
func NearestNeighborRoute(worker domain.WorkerRef, start domain.Coordinate, jobs []LocatedJob) domain.OptimizedRoute {
	route := domain.OptimizedRoute{
		WorkerID:   worker.ID,
		WorkerName: worker.Name,
		Stops:      make([]domain.Stop, 0, len(jobs)),
		Path:       make([]domain.Coordinate, 0, len(jobs)+1),
	}
	if len(jobs) == 0 {
		return route
	}

	remaining := make(map[int]struct{}, len(jobs))
	for i := range jobs {
		remaining[i] = struct{}{}
	}

	current := start
	route.Path = append(route.Path, start)
	totalMeters := 0.0

	for len(remaining) > 0 {
		best := -1
		minDist := math.MaxFloat64

		for i := range remaining {
			d := domain.DistanceMeters(current, jobs[i].Location)
			// Tie-breaker ensures deterministic ordering when distances are equal.
			if d < minDist || (d == minDist && (best == -1 || jobs[i].ID < jobs[best].ID)) {
				minDist = d
				best = i
			}
		}

		next := jobs[best]
		totalMeters += minDist
		route.Stops = append(route.Stops, domain.Stop{
			JobID:    next.ID,
			Order:    len(route.Stops) + 1,
			Location: next.Location,
		})
		route.Path = append(route.Path, next.Location)

		delete(remaining, best)
		current = next.Location
	}

	route.TotalDistanceMeters = int(math.Round(totalMeters))
	route.TotalDurationSeconds = int(math.Round(totalMeters / averageSpeedMetersPerSecond))
	return route
}
