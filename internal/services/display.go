package services

import (
	"field-route-service/internal/domain"
	"sort"
)

// DisplayFromOptimized converts optimizer output into the map display shape,
// sorted by worker name. Job titles come from jobs when known.
func DisplayFromOptimized(routes map[string]domain.OptimizedRoute, jobs []domain.JobRef) []domain.RouteDisplay {
	titles := make(map[string]string, len(jobs))
	for _, j := range jobs {
		titles[j.ID] = j.Title
	}

	out := make([]domain.RouteDisplay, 0, len(routes))
	for key, rt := range routes {
		workerID := rt.WorkerID
		if workerID == "" {
			workerID = key
		}
		name := rt.WorkerName
		if name == "" {
			name = domain.UnknownName
		}

		d := domain.RouteDisplay{
			WorkerID:   workerID,
			WorkerName: name,
			Path:       rt.Path,
			Stops:      make([]domain.DisplayStop, 0, len(rt.Stops)),
		}
		for _, s := range rt.Stops {
			title := titles[s.JobID]
			if title == "" {
				title = domain.UnknownName
			}
			d.Stops = append(d.Stops, domain.DisplayStop{JobID: s.JobID, JobName: title, Location: s.Location, Order: s.Order})
		}
		sort.SliceStable(d.Stops, func(i, j int) bool { return d.Stops[i].Order < d.Stops[j].Order })

		out = append(out, d)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].WorkerName != out[j].WorkerName {
			return out[i].WorkerName < out[j].WorkerName
		}
		return out[i].WorkerID < out[j].WorkerID
	})
	return out
}
