package dto

import (
	"field-route-service/internal/domain"
	"field-route-service/internal/mapview"
	"time"
)

type JobInput struct {
	ID        string   `json:"id" validate:"required"`
	Title     string   `json:"title"`
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" validate:"omitempty,longitude"`
}

type WorkerInput struct {
	ID           string   `json:"id" validate:"required"`
	Name         string   `json:"name"`
	DepotAddress string   `json:"depot_address"`
	DepotLat     *float64 `json:"depot_lat" validate:"omitempty,latitude"`
	DepotLng     *float64 `json:"depot_lng" validate:"omitempty,longitude"`
}

// OptimizeRequest selects jobs and workers either inline or by id.
type OptimizeRequest struct {
	Jobs      []JobInput    `json:"jobs" validate:"dive"`
	Workers   []WorkerInput `json:"workers" validate:"dive"`
	JobIDs    []string      `json:"job_ids" validate:"dive,required"`
	WorkerIDs []string      `json:"worker_ids" validate:"dive,required"`
	RouteDate string        `json:"route_date" validate:"required"`
}

type GeocodeRequest struct {
	Addresses []string `json:"addresses" validate:"required,min=1,dive,required"`
}

type StopResponse struct {
	JobID    string     `json:"job_id"`
	Order    int        `json:"order"`
	Location [2]float64 `json:"location"`
}

type OptimizedRouteResponse struct {
	WorkerID             string         `json:"worker_id"`
	WorkerName           string         `json:"worker_name"`
	Jobs                 []StopResponse `json:"jobs"`
	TotalDurationSeconds int            `json:"total_duration_seconds"`
	TotalDistanceMeters  int            `json:"total_distance_meters"`
	OptimizedPath        [][2]float64   `json:"optimized_path"`
	Color                string         `json:"color,omitempty"`
}

type SavedRouteResponse struct {
	ID                   string    `json:"id"`
	WorkerID             string    `json:"worker_id"`
	RouteDate            string    `json:"route_date"`
	Status               string    `json:"status"`
	TotalDistanceMeters  int       `json:"total_distance_meters"`
	TotalDurationSeconds int       `json:"total_duration_seconds"`
	CreatedAt            time.Time `json:"created_at"`
}

type OptimizeResponse struct {
	Success  bool                              `json:"success"`
	Routes   map[string]OptimizedRouteResponse `json:"routes,omitempty"`
	Saved    []SavedRouteResponse              `json:"saved"`
	Warnings []any                             `json:"warnings,omitempty"`
	Map      *mapview.View                     `json:"map,omitempty"`
	Error    string                            `json:"error,omitempty"`
}

type GeocodeResult struct {
	Address string   `json:"address"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
	Success bool     `json:"success"`
}

type GeocodeResponse struct {
	Success     bool            `json:"success"`
	Coordinates []GeocodeResult `json:"coordinates"`
	Error       string          `json:"error,omitempty"`
}

type RouteSummaryResponse struct {
	RouteID              string `json:"route_id"`
	WorkerID             string `json:"worker_id"`
	WorkerName           string `json:"worker_name"`
	RouteDate            string `json:"route_date"`
	Status               string `json:"status"`
	TotalDistanceMeters  int    `json:"total_distance_meters"`
	TotalDurationSeconds int    `json:"total_duration_seconds"`
	StopCount            int    `json:"stop_count"`
	CompletedCount       int    `json:"completed_count"`
}

type ListRoutesResponse struct {
	Routes []RouteSummaryResponse `json:"routes"`
}

type RouteStopResponse struct {
	ID          string      `json:"id"`
	JobID       string      `json:"job_id"`
	JobTitle    string      `json:"job_title"`
	JobAddress  string      `json:"job_address"`
	Order       int         `json:"order"`
	Location    *[2]float64 `json:"location"`
	CompletedAt *time.Time  `json:"completed_at"`
}

type RouteDetailResponse struct {
	ID                   string              `json:"id"`
	WorkerID             string              `json:"worker_id"`
	WorkerName           string              `json:"worker_name"`
	RouteDate            string              `json:"route_date"`
	Status               string              `json:"status"`
	TotalDistanceMeters  int                 `json:"total_distance_meters"`
	TotalDurationSeconds int                 `json:"total_duration_seconds"`
	OptimizedPath        [][2]float64        `json:"optimized_path"`
	Notes                string              `json:"notes,omitempty"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
	Stops                []RouteStopResponse `json:"stops"`
}

func (j JobInput) ToDomain() domain.JobRef {
	return domain.JobRef{ID: j.ID, Title: j.Title, Address: j.Address, Latitude: j.Latitude, Longitude: j.Longitude}
}

func (w WorkerInput) ToDomain() domain.WorkerRef {
	return domain.WorkerRef{ID: w.ID, Name: w.Name, DepotAddress: w.DepotAddress, DepotLat: w.DepotLat, DepotLng: w.DepotLng}
}

func FromOptimized(routes map[string]domain.OptimizedRoute) map[string]OptimizedRouteResponse {
	out := make(map[string]OptimizedRouteResponse, len(routes))
	for k, rt := range routes {
		resp := OptimizedRouteResponse{
			WorkerID:             rt.WorkerID,
			WorkerName:           rt.WorkerName,
			Jobs:                 make([]StopResponse, 0, len(rt.Stops)),
			TotalDurationSeconds: rt.TotalDurationSeconds,
			TotalDistanceMeters:  rt.TotalDistanceMeters,
			OptimizedPath:        validPoints(rt.Path),
		}
		for _, s := range rt.Stops {
			resp.Jobs = append(resp.Jobs, StopResponse{JobID: s.JobID, Order: s.Order, Location: s.Location.LatLng()})
		}
		out[k] = resp
	}
	return out
}

func FromSaved(routes []domain.Route) []SavedRouteResponse {
	out := make([]SavedRouteResponse, 0, len(routes))
	for _, r := range routes {
		out = append(out, SavedRouteResponse{
			ID:                   r.ID,
			WorkerID:             r.WorkerID,
			RouteDate:            domain.FormatDate(r.RouteDate),
			Status:               r.Status,
			TotalDistanceMeters:  r.TotalDistanceMeters,
			TotalDurationSeconds: r.TotalDurationSeconds,
			CreatedAt:            r.CreatedAt,
		})
	}
	return out
}

func FromSummaries(sums []domain.WorkerRouteSummary) ListRoutesResponse {
	out := ListRoutesResponse{Routes: make([]RouteSummaryResponse, 0, len(sums))}
	for _, s := range sums {
		out.Routes = append(out.Routes, RouteSummaryResponse{
			RouteID:              s.RouteID,
			WorkerID:             s.WorkerID,
			WorkerName:           s.WorkerName,
			RouteDate:            domain.FormatDate(s.RouteDate),
			Status:               s.Status,
			TotalDistanceMeters:  s.TotalDistanceMeters,
			TotalDurationSeconds: s.TotalDurationSeconds,
			StopCount:            s.StopCount,
			CompletedCount:       s.CompletedCount,
		})
	}
	return out
}

func FromDetail(d *domain.RouteDetail) RouteDetailResponse {
	resp := RouteDetailResponse{
		ID:                   d.ID,
		WorkerID:             d.WorkerID,
		WorkerName:           d.WorkerName,
		RouteDate:            domain.FormatDate(d.RouteDate),
		Status:               d.Status,
		TotalDistanceMeters:  d.TotalDistanceMeters,
		TotalDurationSeconds: d.TotalDurationSeconds,
		OptimizedPath:        validPoints(d.Path),
		Notes:                d.Notes,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
		Stops:                make([]RouteStopResponse, 0, len(d.Stops)),
	}
	for _, s := range d.Stops {
		stop := RouteStopResponse{
			ID:          s.ID,
			JobID:       s.JobID,
			JobTitle:    s.JobTitle,
			JobAddress:  s.JobAddress,
			Order:       s.Order,
			CompletedAt: s.CompletedAt,
		}
		if s.Location.Valid() {
			loc := s.Location.LatLng()
			stop.Location = &loc
		}
		resp.Stops = append(resp.Stops, stop)
	}
	return resp
}

// validPoints drops coordinates that cannot be encoded as JSON numbers.
func validPoints(path []domain.Coordinate) [][2]float64 {
	out := make([][2]float64, 0, len(path))
	for _, c := range path {
		if c.Valid() {
			out = append(out, c.LatLng())
		}
	}
	return out
}
