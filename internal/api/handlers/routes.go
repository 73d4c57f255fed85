package handlers

import (
	"bytes"
	"field-route-service/internal/api/dto"
	"field-route-service/internal/domain"
	"field-route-service/internal/export"
	"field-route-service/internal/mapview"
	"field-route-service/internal/platform/obs"
	"field-route-service/internal/ports"
	"field-route-service/internal/services"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type RouteHandler struct {
	Planner *services.RoutePlanner
	Routes  ports.RouteQuerier
}

// Optimize runs optimization for the selected jobs and workers and replaces
// their routes for route_date. Jobs and workers are given inline or by id.
func (h *RouteHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	var req dto.OptimizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	date, err := domain.ParseDate(req.RouteDate)
	if err != nil {
		writeOptimizeError(w, r, err, nil)
		return
	}

	inline := len(req.Jobs) > 0 || len(req.Workers) > 0
	byID := len(req.JobIDs) > 0 || len(req.WorkerIDs) > 0
	if inline && byID {
		writeOptimizeError(w, r, &domain.ValidationError{Msg: "send either jobs/workers or job_ids/worker_ids, not both"}, nil)
		return
	}

	var res *services.PlanResult
	if byID {
		res, err = h.Planner.OptimizeSelection(r.Context(), req.JobIDs, req.WorkerIDs, date)
	} else {
		jobs := make([]domain.JobRef, 0, len(req.Jobs))
		for _, j := range req.Jobs {
			jobs = append(jobs, j.ToDomain())
		}
		workers := make([]domain.WorkerRef, 0, len(req.Workers))
		for _, wk := range req.Workers {
			workers = append(workers, wk.ToDomain())
		}
		res, err = h.Planner.OptimizeAndSave(r.Context(), jobs, workers, date)
	}
	if err != nil {
		writeOptimizeError(w, r, err, res)
		return
	}

	// One color assignment for the preview map and the route list.
	view := mapview.Render(services.DisplayFromOptimized(res.Routes, res.Jobs))
	colors := view.Colors()
	routes := dto.FromOptimized(res.Routes)
	for id, rt := range routes {
		rt.Color = colors[id]
		routes[id] = rt
	}

	writeJSON(w, r, http.StatusOK, dto.OptimizeResponse{
		Success:  true,
		Routes:   routes,
		Saved:    dto.FromSaved(res.Saved),
		Warnings: res.Warnings,
		Map:      &view,
	})
}

// writeOptimizeError keeps the {success:false} envelope and reports any
// routes committed before a persistence failure.
func writeOptimizeError(w http.ResponseWriter, r *http.Request, err error, res *services.PlanResult) {
	resp := dto.OptimizeResponse{Success: false, Saved: []dto.SavedRouteResponse{}, Error: messageFor(r, err)}
	if res != nil {
		resp.Saved = dto.FromSaved(res.Saved)
	}
	writeJSON(w, r, statusFor(err), resp)
}

// Geocode resolves addresses through the cache and the remote geocoder.
func (h *RouteHandler) Geocode(w http.ResponseWriter, r *http.Request) {
	var req dto.GeocodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	coords, err := h.Planner.Geocode(r.Context(), req.Addresses)
	if err != nil {
		writeJSON(w, r, statusFor(err), dto.GeocodeResponse{Success: false, Coordinates: []dto.GeocodeResult{}, Error: messageFor(r, err)})
		return
	}

	resp := dto.GeocodeResponse{Success: true, Coordinates: make([]dto.GeocodeResult, 0, len(coords))}
	for i, c := range coords {
		res := dto.GeocodeResult{Address: req.Addresses[i]}
		if c.Valid() {
			lat, lng := c.Lat, c.Lng
			res.Lat, res.Lng, res.Success = &lat, &lng, true
		}
		resp.Coordinates = append(resp.Coordinates, res)
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// List returns route summaries filtered by date, worker_id and status.
func (h *RouteHandler) List(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r, false)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	q := r.URL.Query()
	filter := domain.RouteFilter{
		WorkerID: strings.TrimSpace(q.Get("worker_id")),
		Date:     date,
		Status:   strings.TrimSpace(q.Get("status")),
	}

	sums, err := h.Routes.ListRoutes(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.FromSummaries(sums))
}

// Active returns one summary per route on the given date.
func (h *RouteHandler) Active(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r, true)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	sums, err := h.Routes.ListActiveRoutesForDate(r.Context(), date)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.FromSummaries(sums))
}

func (h *RouteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "route id is required")
		return
	}

	detail, err := h.Routes.GetFullRoute(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.FromDetail(detail))
}

// Map renders every route on the date as a map view.
func (h *RouteHandler) Map(w http.ResponseWriter, r *http.Request) {
	view, ok := h.renderDay(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

func (h *RouteHandler) MapGeoJSON(w http.ResponseWriter, r *http.Request) {
	view, ok := h.renderDay(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	writeJSONBody(w, r, view.GeoJSON())
}

func (h *RouteHandler) renderDay(w http.ResponseWriter, r *http.Request) (mapview.View, bool) {
	date, err := dateParam(r, true)
	if err != nil {
		writeDomainError(w, r, err)
		return mapview.View{}, false
	}

	routes, err := h.Routes.RoutesForDisplay(r.Context(), date)
	if err != nil {
		writeDomainError(w, r, err)
		return mapview.View{}, false
	}
	return mapview.Render(routes), true
}

// Export streams the day's routes as an xlsx workbook.
func (h *RouteHandler) Export(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r, true)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteDay(r.Context(), &buf, h.Routes, date); err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="routes-%s.xlsx"`, domain.FormatDate(date)))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		obs.Log(r.Context()).WithError(err).Warn("write export failed")
	}
}
