package mapview

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type Geometry struct {
	Type        string `json:"type"`
	Coordinates any    `json:"coordinates"`
}

// GeoJSON renders the view as a FeatureCollection: one LineString per
// polyline and one Point per marker, in [lng, lat] order.
func (v View) GeoJSON() FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}

	for _, l := range v.Layers {
		if l.Polyline != nil {
			line := make([][]float64, 0, len(l.Polyline.Points))
			for _, p := range l.Polyline.Points {
				line = append(line, []float64{p[1], p[0]})
			}
			fc.Features = append(fc.Features, Feature{
				Type:     "Feature",
				Geometry: Geometry{Type: "LineString", Coordinates: line},
				Properties: map[string]any{
					"kind":        "route",
					"worker_id":   l.WorkerID,
					"worker_name": l.WorkerName,
					"color":       l.Color,
				},
			})
		}

		for _, m := range l.Markers {
			fc.Features = append(fc.Features, Feature{
				Type:     "Feature",
				Geometry: Geometry{Type: "Point", Coordinates: []float64{m.Position[1], m.Position[0]}},
				Properties: map[string]any{
					"kind":      "stop",
					"worker_id": l.WorkerID,
					"job_id":    m.JobID,
					"job_name":  m.JobName,
					"order":     m.Order,
					"label":     m.Label,
					"color":     m.Color,
				},
			})
		}
	}

	return fc
}
