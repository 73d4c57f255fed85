package domain

import "time"

const (
	RouteStatusPending = "pending"

	// Worker name shown when a route has lost its worker linkage.
	UnknownName = "Unknown"
)

// Represents a single stop in an optimized route.
// Order is the 1-based visit position assigned by the optimizer.
type Stop struct {
	JobID    string
	Order    int
	Location Coordinate
}

// Represents the optimizer output for a single worker.
// Path is the route geometry and is generally denser than Stops.
type OptimizedRoute struct {
	WorkerID             string
	WorkerName           string
	Stops                []Stop
	TotalDistanceMeters  int
	TotalDurationSeconds int
	Path                 []Coordinate
}

// OptimizationResult maps worker id to that worker's optimized route.
type OptimizationResult struct {
	Routes   map[string]OptimizedRoute
	Warnings []any
}

// Route is a persisted route for one worker on one calendar day.
type Route struct {
	ID                   string
	WorkerID             string
	RouteDate            time.Time
	Status               string
	TotalDistanceMeters  int
	TotalDurationSeconds int
	Path                 []Coordinate
	Notes                string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// RouteStop is a persisted stop owned by exactly one Route.
type RouteStop struct {
	ID          string
	RouteID     string
	JobID       string
	Order       int
	Location    Coordinate
	CompletedAt *time.Time
}

// WorkerRouteSummary is the list projection of a Route.
type WorkerRouteSummary struct {
	RouteID              string
	WorkerID             string
	WorkerName           string
	RouteDate            time.Time
	Status               string
	TotalDistanceMeters  int
	TotalDurationSeconds int
	StopCount            int
	CompletedCount       int
}

// RouteDetailStop is a RouteStop joined to its job.
type RouteDetailStop struct {
	RouteStop
	JobTitle   string
	JobAddress string
}

// RouteDetail is a Route with its worker name and stops ordered by visit order.
type RouteDetail struct {
	Route
	WorkerName string
	Stops      []RouteDetailStop
}

// RouteFilter narrows ListRoutes. Zero fields do not filter.
type RouteFilter struct {
	WorkerID string
	Date     time.Time
	Status   string
}

// DisplayStop is a stop as shown on the map.
type DisplayStop struct {
	JobID    string
	JobName  string
	Location Coordinate
	Order    int
}

// RouteDisplay is the shared shape consumed by the map renderer.
type RouteDisplay struct {
	WorkerID   string
	WorkerName string
	Path       []Coordinate
	Stops      []DisplayStop
	Color      string
}

const EventRouteSaved = "route.saved"

// RouteEvent is published after a route is committed.
type RouteEvent struct {
	Type      string    `json:"type"`
	RouteID   string    `json:"route_id"`
	WorkerID  string    `json:"worker_id"`
	RouteDate string    `json:"route_date"`
	StopCount int       `json:"stop_count"`
	At        time.Time `json:"at"`
}
