package services

import (
	"errors"
	"field-route-service/internal/domain"
	"slices"
)

// LocatedJob is a job with a resolved coordinate.
type LocatedJob struct {
	ID       string
	Location domain.Coordinate
	hubDist  float64
}

// AssignJobsByDistance splits jobs into one band per worker.
//
// Jobs are sorted by distance from hub and chunked across workers, so each
// worker receives a contiguous ring of work. The result is deterministic.
// Workers past the last band receive no jobs.
func AssignJobsByDistance(hub domain.Coordinate, jobs []LocatedJob, nWorkers int) ([][]LocatedJob, error) {
	if nWorkers <= 0 {
		return nil, errors.New("assign jobs: worker list must not be empty")
	}

	sorted := make([]LocatedJob, len(jobs))
	copy(sorted, jobs)
	for i := range sorted {
		sorted[i].hubDist = domain.DistanceMeters(hub, sorted[i].Location)
	}

	slices.SortFunc(sorted, func(a, b LocatedJob) int {
		if a.hubDist < b.hubDist {
			return -1
		}
		if a.hubDist > b.hubDist {
			return 1
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})

	nJobs := len(sorted)

	// Ceiling division: distribute jobs as evenly as possible across workers.
	chunkSize := (nJobs + nWorkers - 1) / nWorkers

	bands := make([][]LocatedJob, nWorkers)
	for wi := 0; wi < nWorkers; wi++ {
		start := wi * chunkSize
		if start >= nJobs {
			break
		}

		end := start + chunkSize
		if end > nJobs {
			end = nJobs
		}
		bands[wi] = sorted[start:end]
	}

	return bands, nil
}
