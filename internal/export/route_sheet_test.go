package export

import (
	"bytes"
	"context"
	"field-route-service/internal/domain"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

type stubQuerier struct {
	summaries []domain.WorkerRouteSummary
	details   map[string]*domain.RouteDetail
}

func (q *stubQuerier) ListActiveRoutesForDate(ctx context.Context, date time.Time) ([]domain.WorkerRouteSummary, error) {
	return q.summaries, nil
}

func (q *stubQuerier) GetFullRoute(ctx context.Context, routeID string) (*domain.RouteDetail, error) {
	return q.details[routeID], nil
}

func (q *stubQuerier) ListRoutes(ctx context.Context, filter domain.RouteFilter) ([]domain.WorkerRouteSummary, error) {
	return q.summaries, nil
}

func (q *stubQuerier) RoutesForDisplay(ctx context.Context, date time.Time) ([]domain.RouteDisplay, error) {
	return nil, nil
}

func TestWriteDay(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	q := &stubQuerier{
		summaries: []domain.WorkerRouteSummary{{
			RouteID:              "r1",
			WorkerName:           "Amy",
			RouteDate:            day,
			Status:               domain.RouteStatusPending,
			TotalDistanceMeters:  12500,
			TotalDurationSeconds: 1800,
			StopCount:            2,
		}},
		details: map[string]*domain.RouteDetail{
			"r1": {
				WorkerName: "Amy",
				Stops: []domain.RouteDetailStop{
					{RouteStop: domain.RouteStop{Order: 1, Location: domain.Coordinate{Lat: 42.35, Lng: -71.07}}, JobTitle: "Fix sink", JobAddress: "10 Elm St"},
					{RouteStop: domain.RouteStop{Order: 2, Location: domain.NoCoordinate()}, JobTitle: "Paint fence"},
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := WriteDay(context.Background(), &buf, q, day); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(SummarySheet)
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("summary rows = %d, want header + 1", len(rows))
	}
	if rows[1][0] != "Amy" || rows[1][2] != "2024-01-15" || rows[1][6] != "12.5" || rows[1][7] != "30" {
		t.Fatalf("summary row = %v", rows[1])
	}

	stops, err := f.GetRows(StopsSheet)
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	if len(stops) != 3 {
		t.Fatalf("stop rows = %d, want header + 2", len(stops))
	}
	if stops[1][2] != "Fix sink" || stops[1][4] != "42.35" {
		t.Fatalf("first stop row = %v", stops[1])
	}
	if len(stops[2]) > 4 && stops[2][4] != "" {
		t.Fatalf("invalid location should be blank, got %v", stops[2])
	}
}
