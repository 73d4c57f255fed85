package export

import (
	"context"
	"field-route-service/internal/domain"
	"field-route-service/internal/platform/obs"
	"field-route-service/internal/ports"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	SummarySheet = "Routes"
	StopsSheet   = "Stops"
)

var (
	summaryHeader = []any{"Worker", "Route ID", "Date", "Status", "Stops", "Completed", "Distance (km)", "Duration (min)"}
	stopsHeader   = []any{"Worker", "Order", "Job", "Address", "Latitude", "Longitude", "Completed At"}
)

// WriteDay loads every route on date from q and writes a two-sheet workbook
// to w: one summary row per route, then one row per stop in visit order.
func WriteDay(ctx context.Context, w io.Writer, q ports.RouteQuerier, date time.Time) (err error) {
	defer obs.Time(ctx, "export.WriteDay")(&err)

	summaries, err := q.ListActiveRoutesForDate(ctx, date)
	if err != nil {
		return fmt.Errorf("export routes: %w", err)
	}

	details := make([]*domain.RouteDetail, 0, len(summaries))
	for _, s := range summaries {
		d, err := q.GetFullRoute(ctx, s.RouteID)
		if err != nil {
			return fmt.Errorf("export routes: %w", err)
		}
		details = append(details, d)
	}

	f, err := Build(summaries, details)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("export routes: write workbook: %w", err)
	}
	return nil
}

// Build lays out the workbook. details[i] must belong to summaries[i].
func Build(summaries []domain.WorkerRouteSummary, details []*domain.RouteDetail) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("export routes: rename sheet: %w", err)
	}
	if _, err := f.NewSheet(StopsSheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("export routes: add sheet: %w", err)
	}

	if err := writeRow(f, SummarySheet, 1, summaryHeader); err != nil {
		_ = f.Close()
		return nil, err
	}
	for i, s := range summaries {
		row := []any{
			s.WorkerName,
			s.RouteID,
			domain.FormatDate(s.RouteDate),
			s.Status,
			s.StopCount,
			s.CompletedCount,
			float64(s.TotalDistanceMeters) / 1000,
			s.TotalDurationSeconds / 60,
		}
		if err := writeRow(f, SummarySheet, i+2, row); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	if err := writeRow(f, StopsSheet, 1, stopsHeader); err != nil {
		_ = f.Close()
		return nil, err
	}
	n := 2
	for _, d := range details {
		for _, st := range d.Stops {
			row := []any{d.WorkerName, st.Order, st.JobTitle, st.JobAddress, "", "", ""}
			if st.Location.Valid() {
				row[4], row[5] = st.Location.Lat, st.Location.Lng
			}
			if st.CompletedAt != nil {
				row[6] = st.CompletedAt.UTC().Format(time.RFC3339)
			}
			if err := writeRow(f, StopsSheet, n, row); err != nil {
				_ = f.Close()
				return nil, err
			}
			n++
		}
	}

	return f, nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("export routes: cell name: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("export routes: write %s row %d: %w", sheet, row, err)
	}
	return nil
}
