package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"field-route-service/internal/adapters/cache"
	"field-route-service/internal/adapters/events"
	"field-route-service/internal/adapters/repositories"
	"field-route-service/internal/api/dto"
	"field-route-service/internal/domain"
	"field-route-service/internal/mapview"
	"field-route-service/internal/platform/db"
	"field-route-service/internal/services"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

const testDay = "2024-03-05"

func ptr(f float64) *float64 { return &f }

type stubGeocoder struct {
	calls int
}

func (g *stubGeocoder) Geocode(_ context.Context, addresses []string) ([]domain.Coordinate, error) {
	g.calls++
	out := make([]domain.Coordinate, len(addresses))
	for i, a := range addresses {
		if strings.Contains(a, "Nowhere") {
			out[i] = domain.NoCoordinate()
			continue
		}
		out[i] = domain.Coordinate{Lat: 42.3 + float64(i)/100, Lng: -71.1}
	}
	return out, nil
}

type testServer struct {
	handler http.Handler
	geo     *stubGeocoder
}

func newTestServer(t *testing.T, withGeocoder bool) *testServer {
	t.Helper()

	conn, err := db.OpenSqlite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	ctx := context.Background()
	if err := repositories.InitSchema(ctx, conn, db.SQLite); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	seed := repositories.Seed{
		Workers: []repositories.WorkerSeed{
			{ID: "w1", Name: "Alice", DepotAddress: "1 Main St", DepotLat: ptr(42.36), DepotLng: ptr(-71.06)},
			{ID: "w2", Name: "Bob"},
		},
		Jobs: []repositories.JobSeed{
			{ID: "j1", Title: "Fix sink", Address: "10 Elm St", Latitude: ptr(42.35), Longitude: ptr(-71.07)},
			{ID: "j2", Title: "Paint fence", Address: "20 Oak St", Latitude: ptr(42.37), Longitude: ptr(-71.05)},
		},
	}
	if err := repositories.ApplySeed(ctx, conn, db.SQLite, seed); err != nil {
		t.Fatalf("apply seed: %v", err)
	}

	repo := repositories.NewSQLRouteRepository(conn, db.SQLite)
	broker := events.NewMemoryBroker()
	planner := &services.RoutePlanner{
		Optimizer:  services.NewLocalOptimizer(),
		Cache:      cache.NewSQLGeocodeCache(conn, db.SQLite),
		Selection:  repo,
		Reconciler: services.NewRouteReconciler(repo, broker),
	}

	ts := &testServer{}
	if withGeocoder {
		ts.geo = &stubGeocoder{}
		planner.Geocoder = ts.geo
	}

	ts.handler = NewRouter(Deps{
		Planner: planner,
		Routes:  repo,
		Events:  broker,
		Ping:    conn.PingContext,
	})
	return ts
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func (s *testServer) optimize(t *testing.T) dto.OptimizeResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/routes/optimize",
		`{"job_ids":["j1","j2"],"worker_ids":["w1"],"route_date":"`+testDay+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("optimize status = %d, body %s", rec.Code, rec.Body.String())
	}
	return decode[dto.OptimizeResponse](t, rec)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing X-Request-ID header")
	}
}

func TestHealthReportsStoreFailure(t *testing.T) {
	h := NewRouter(Deps{Ping: func(context.Context) error { return errors.New("down") }})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("X-Request-ID = %q, want %q", got, "abc-123")
	}
}

func TestOptimizeThenQuery(t *testing.T) {
	s := newTestServer(t, false)

	res := s.optimize(t)
	if !res.Success {
		t.Fatalf("success = false, error %q", res.Error)
	}
	if len(res.Saved) != 1 || res.Saved[0].WorkerID != "w1" {
		t.Fatalf("saved = %+v, want one route for w1", res.Saved)
	}
	if res.Saved[0].RouteDate != testDay {
		t.Fatalf("route_date = %q, want %q", res.Saved[0].RouteDate, testDay)
	}
	if got := len(res.Routes["w1"].Jobs); got != 2 {
		t.Fatalf("optimized stops = %d, want 2", got)
	}
	if res.Map == nil || len(res.Map.Layers) != 1 {
		t.Fatalf("preview map = %+v, want one layer", res.Map)
	}
	if got := res.Routes["w1"].Color; got != mapview.Palette[0] || got != res.Map.Layers[0].Color {
		t.Fatalf("route color = %q, want the map color %q", got, res.Map.Layers[0].Color)
	}
	routeID := res.Saved[0].ID

	rec := s.do(t, http.MethodGet, "/api/routes/active?date="+testDay, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("active status = %d, body %s", rec.Code, rec.Body.String())
	}
	active := decode[dto.ListRoutesResponse](t, rec)
	if len(active.Routes) != 1 {
		t.Fatalf("active routes = %d, want 1", len(active.Routes))
	}
	if sum := active.Routes[0]; sum.WorkerName != "Alice" || sum.StopCount != 2 || sum.CompletedCount != 0 {
		t.Fatalf("summary = %+v, want Alice with 2 open stops", sum)
	}

	rec = s.do(t, http.MethodGet, "/api/routes?worker_id=w1", "")
	if list := decode[dto.ListRoutesResponse](t, rec); len(list.Routes) != 1 {
		t.Fatalf("list by worker = %d routes, want 1", len(list.Routes))
	}
	rec = s.do(t, http.MethodGet, "/api/routes?worker_id=w2", "")
	if list := decode[dto.ListRoutesResponse](t, rec); len(list.Routes) != 0 {
		t.Fatalf("list for idle worker = %d routes, want 0", len(list.Routes))
	}

	rec = s.do(t, http.MethodGet, "/api/routes/"+routeID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("detail status = %d, body %s", rec.Code, rec.Body.String())
	}
	detail := decode[dto.RouteDetailResponse](t, rec)
	if len(detail.Stops) != 2 {
		t.Fatalf("detail stops = %d, want 2", len(detail.Stops))
	}
	for i, st := range detail.Stops {
		if st.Order != i+1 {
			t.Fatalf("stop %d order = %d, want %d", i, st.Order, i+1)
		}
	}

	rec = s.do(t, http.MethodGet, "/api/routes/map?date="+testDay, "")
	view := decode[mapview.View](t, rec)
	if view.Empty || len(view.Layers) != 1 {
		t.Fatalf("map view = %+v, want one layer", view)
	}
	if got := view.Legend[0].Label; got != "Alice (2 jobs)" {
		t.Fatalf("legend = %q, want %q", got, "Alice (2 jobs)")
	}

	rec = s.do(t, http.MethodGet, "/api/routes/map.geojson?date="+testDay, "")
	if ct := rec.Header().Get("Content-Type"); ct != "application/geo+json" {
		t.Fatalf("geojson content type = %q", ct)
	}
	fc := decode[mapview.FeatureCollection](t, rec)
	if fc.Type != "FeatureCollection" || len(fc.Features) == 0 {
		t.Fatalf("geojson = %+v, want features", fc)
	}

	rec = s.do(t, http.MethodGet, "/api/routes/export.xlsx?date="+testDay, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d, body %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "routes-"+testDay+".xlsx") {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Fatalf("export body is not a zip container")
	}
}

func TestOptimizeTwiceKeepsOneRoutePerWorker(t *testing.T) {
	s := newTestServer(t, false)

	first := s.optimize(t)
	second := s.optimize(t)
	if first.Saved[0].ID == second.Saved[0].ID {
		t.Fatalf("second save reused route id %q", first.Saved[0].ID)
	}

	rec := s.do(t, http.MethodGet, "/api/routes/active?date="+testDay, "")
	if got := len(decode[dto.ListRoutesResponse](t, rec).Routes); got != 1 {
		t.Fatalf("active routes = %d, want 1", got)
	}

	rec = s.do(t, http.MethodGet, "/api/routes/"+first.Saved[0].ID, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("replaced route status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestOptimizeInlineSelection(t *testing.T) {
	s := newTestServer(t, false)

	body := `{
		"jobs": [{"id":"j1","latitude":42.35,"longitude":-71.07},{"id":"j2","latitude":42.37,"longitude":-71.05}],
		"workers": [{"id":"w1","name":"Alice","depot_lat":42.36,"depot_lng":-71.06},{"id":"w2","name":"Bob"}],
		"route_date": "` + testDay + `"
	}`
	rec := s.do(t, http.MethodPost, "/api/routes/optimize", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	res := decode[dto.OptimizeResponse](t, rec)
	if len(res.Saved) != 2 {
		t.Fatalf("saved = %d routes, want 2", len(res.Saved))
	}
}

func TestOptimizeRejectsBadRequests(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"missing date", `{"job_ids":["j1"],"worker_ids":["w1"]}`, "routedate"},
		{"bad date", `{"job_ids":["j1"],"worker_ids":["w1"],"route_date":"2024-13-01"}`, "invalid date"},
		{"unknown field", `{"jobz":[],"route_date":"` + testDay + `"}`, "invalid json"},
		{"unknown job", `{"job_ids":["jx"],"worker_ids":["w1"],"route_date":"` + testDay + `"}`, "unknown jobs: jx"},
		{"unknown worker", `{"job_ids":["j1"],"worker_ids":["wx"],"route_date":"` + testDay + `"}`, "unknown workers: wx"},
		{"nothing selected", `{"route_date":"` + testDay + `"}`, "select at least one job"},
		{
			"mixed selection",
			`{"jobs":[{"id":"j1","latitude":1,"longitude":1}],"worker_ids":["w1"],"route_date":"` + testDay + `"}`,
			"not both",
		},
		{"bad latitude", `{"jobs":[{"id":"j1","latitude":91,"longitude":1}],"workers":[{"id":"w1"}],"route_date":"` + testDay + `"}`, "latitude"},
	}

	s := newTestServer(t, false)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/routes/optimize", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusBadRequest, rec.Body.String())
			}
			if !strings.Contains(strings.ToLower(rec.Body.String()), strings.ToLower(tc.want)) {
				t.Fatalf("body = %s, want it to mention %q", rec.Body.String(), tc.want)
			}
		})
	}
}

func TestQueryErrors(t *testing.T) {
	s := newTestServer(t, false)

	cases := []struct {
		path string
		want int
	}{
		{"/api/routes/does-not-exist", http.StatusNotFound},
		{"/api/routes/active", http.StatusBadRequest},
		{"/api/routes/map", http.StatusBadRequest},
		{"/api/routes/export.xlsx?date=yesterday", http.StatusBadRequest},
		{"/api/routes?date=2024-02-30", http.StatusBadRequest},
	}
	for _, tc := range cases {
		rec := s.do(t, http.MethodGet, tc.path, "")
		if rec.Code != tc.want {
			t.Fatalf("GET %s status = %d, want %d", tc.path, rec.Code, tc.want)
		}
	}
}

func TestMapForEmptyDay(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(t, http.MethodGet, "/api/routes/map?date="+testDay, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	view := decode[mapview.View](t, rec)
	if !view.Empty || view.Message != mapview.EmptyMessage {
		t.Fatalf("view = %+v, want empty view", view)
	}
}

func TestGeocodeUsesCache(t *testing.T) {
	s := newTestServer(t, true)

	body := `{"addresses":["10  Elm St","Nowhere Lane"]}`
	rec := s.do(t, http.MethodPost, "/api/geocode", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	res := decode[dto.GeocodeResponse](t, rec)
	if !res.Success || len(res.Coordinates) != 2 {
		t.Fatalf("response = %+v", res)
	}
	if c := res.Coordinates[0]; !c.Success || c.Address != "10  Elm St" || c.Lat == nil {
		t.Fatalf("first = %+v, want resolved", c)
	}
	if c := res.Coordinates[1]; c.Success || c.Lat != nil {
		t.Fatalf("second = %+v, want unresolved", c)
	}

	// The resolved address is cached; the unresolved one is asked again.
	s.do(t, http.MethodPost, "/api/geocode", `{"addresses":["10 Elm St"]}`)
	if s.geo.calls != 1 {
		t.Fatalf("geocoder calls = %d, want 1", s.geo.calls)
	}
	s.do(t, http.MethodPost, "/api/geocode", `{"addresses":["Nowhere Lane"]}`)
	if s.geo.calls != 2 {
		t.Fatalf("geocoder calls = %d, want 2", s.geo.calls)
	}
}

func TestGeocodeWithoutGeocoder(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(t, http.MethodPost, "/api/geocode", `{"addresses":["10 Elm St"]}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadGateway)
	}
	res := decode[dto.GeocodeResponse](t, rec)
	if res.Success || !strings.Contains(res.Error, "unavailable") {
		t.Fatalf("response = %+v", res)
	}

	rec = s.do(t, http.MethodPost, "/api/geocode", `{"addresses":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty addresses status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestRouteStreamDeliversSavedEvents(t *testing.T) {
	s := newTestServer(t, false)
	srv := httptest.NewServer(s.handler)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/routes"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	res := s.optimize(t)

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var evt domain.RouteEvent
	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if evt.Type != domain.EventRouteSaved || evt.RouteID != res.Saved[0].ID {
		t.Fatalf("event = %+v, want route.saved for %s", evt, res.Saved[0].ID)
	}
	if evt.StopCount != 2 || evt.RouteDate != testDay {
		t.Fatalf("event = %+v, want 2 stops on %s", evt, testDay)
	}
}
