package mapview

import (
	"field-route-service/internal/domain"
	"fmt"
)

// Palette is the fixed route color cycle.
var Palette = []string{
	"#EF4444",
	"#3B82F6",
	"#10B981",
	"#8B5CF6",
	"#F59E0B",
	"#EC4899",
	"#14B8A6",
	"#F97316",
}

const (
	EmptyMessage = "No valid route data to display"
	// Padding in pixels around the fitted bounds.
	BoundsPadding = 50
	DefaultZoom   = 12
)

// DefaultCenter is used when there is nothing to fit (Boston City Hall).
var DefaultCenter = domain.Coordinate{Lat: 42.3601, Lng: -71.0589}

type Bounds struct {
	SouthWest [2]float64 `json:"south_west"`
	NorthEast [2]float64 `json:"north_east"`
	Padding   int        `json:"padding"`
}

type Marker struct {
	Position [2]float64 `json:"position"`
	Label    string     `json:"label"`
	Order    int        `json:"order"`
	JobID    string     `json:"job_id"`
	JobName  string     `json:"job_name"`
	Color    string     `json:"color"`
}

type Polyline struct {
	Points [][2]float64 `json:"points"`
	Color  string       `json:"color"`
}

type LegendEntry struct {
	WorkerID string `json:"worker_id"`
	Label    string `json:"label"`
	Color    string `json:"color"`
}

type Layer struct {
	WorkerID   string    `json:"worker_id"`
	WorkerName string    `json:"worker_name"`
	Color      string    `json:"color"`
	Polyline   *Polyline `json:"polyline,omitempty"`
	Markers    []Marker  `json:"markers"`
}

// View is a renderer-agnostic map description.
type View struct {
	Empty   bool          `json:"empty"`
	Message string        `json:"message,omitempty"`
	Center  [2]float64    `json:"center"`
	Zoom    int           `json:"zoom"`
	Bounds  *Bounds       `json:"bounds,omitempty"`
	Layers  []Layer       `json:"layers"`
	Legend  []LegendEntry `json:"legend"`
}

// Render turns routes into a View.
//
// Routes without stops are skipped. Invalid stop and path coordinates are
// dropped one by one; a route left with no valid stop is skipped too. Colors
// are assigned by position among the routes that remain. Render never fails:
// with nothing to draw it returns the empty view.
func Render(routes []domain.RouteDisplay) View {
	kept := make([]domain.RouteDisplay, 0, len(routes))
	for _, rt := range routes {
		if len(rt.Stops) == 0 {
			continue
		}

		clean := rt
		clean.Stops = make([]domain.DisplayStop, 0, len(rt.Stops))
		for _, s := range rt.Stops {
			if s.Location.Valid() {
				clean.Stops = append(clean.Stops, s)
			}
		}
		if len(clean.Stops) == 0 {
			continue
		}

		clean.Path = make([]domain.Coordinate, 0, len(rt.Path))
		for _, p := range rt.Path {
			if p.Valid() {
				clean.Path = append(clean.Path, p)
			}
		}

		kept = append(kept, clean)
	}

	if len(kept) == 0 {
		return emptyView()
	}

	kept = AssignColors(kept)

	view := View{
		Center: DefaultCenter.LatLng(),
		Zoom:   DefaultZoom,
		Layers: make([]Layer, 0, len(kept)),
		Legend: make([]LegendEntry, 0, len(kept)),
	}

	var box boundsBuilder
	for _, rt := range kept {
		layer := Layer{
			WorkerID:   rt.WorkerID,
			WorkerName: rt.WorkerName,
			Color:      rt.Color,
			Markers:    make([]Marker, 0, len(rt.Stops)),
		}

		if len(rt.Path) >= 2 {
			pl := &Polyline{Points: make([][2]float64, 0, len(rt.Path)), Color: rt.Color}
			for _, p := range rt.Path {
				pl.Points = append(pl.Points, p.LatLng())
				box.add(p)
			}
			layer.Polyline = pl
		}

		for _, s := range rt.Stops {
			layer.Markers = append(layer.Markers, Marker{
				Position: s.Location.LatLng(),
				Label:    fmt.Sprintf("%d", s.Order),
				Order:    s.Order,
				JobID:    s.JobID,
				JobName:  s.JobName,
				Color:    rt.Color,
			})
			box.add(s.Location)
		}

		view.Layers = append(view.Layers, layer)
		view.Legend = append(view.Legend, LegendEntry{
			WorkerID: rt.WorkerID,
			Label:    fmt.Sprintf("%s (%d jobs)", rt.WorkerName, len(rt.Stops)),
			Color:    rt.Color,
		})
	}

	b := box.bounds()
	view.Bounds = &b
	view.Center = [2]float64{(b.SouthWest[0] + b.NorthEast[0]) / 2, (b.SouthWest[1] + b.NorthEast[1]) / 2}
	return view
}

func emptyView() View {
	return View{
		Empty:   true,
		Message: EmptyMessage,
		Center:  DefaultCenter.LatLng(),
		Zoom:    DefaultZoom,
		Layers:  []Layer{},
		Legend:  []LegendEntry{},
	}
}

// AssignColors returns a copy of routes where every route without an explicit
// color takes Palette[i % len(Palette)] for its index i.
func AssignColors(routes []domain.RouteDisplay) []domain.RouteDisplay {
	out := make([]domain.RouteDisplay, len(routes))
	copy(out, routes)
	for i := range out {
		if out[i].Color == "" {
			out[i].Color = Palette[i%len(Palette)]
		}
	}
	return out
}

// Colors returns worker id -> color as drawn, so lists shown beside the map
// can reuse the same assignment.
func (v View) Colors() map[string]string {
	m := make(map[string]string, len(v.Legend))
	for _, e := range v.Legend {
		m[e.WorkerID] = e.Color
	}
	return m
}

type boundsBuilder struct {
	minLat, minLng, maxLat, maxLng float64
	n                              int
}

func (b *boundsBuilder) add(c domain.Coordinate) {
	if b.n == 0 {
		b.minLat, b.maxLat, b.minLng, b.maxLng = c.Lat, c.Lat, c.Lng, c.Lng
	}
	b.minLat = min(b.minLat, c.Lat)
	b.maxLat = max(b.maxLat, c.Lat)
	b.minLng = min(b.minLng, c.Lng)
	b.maxLng = max(b.maxLng, c.Lng)
	b.n++
}

func (b *boundsBuilder) bounds() Bounds {
	return Bounds{
		SouthWest: [2]float64{b.minLat, b.minLng},
		NorthEast: [2]float64{b.maxLat, b.maxLng},
		Padding:   BoundsPadding,
	}
}
