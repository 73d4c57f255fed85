package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"field-route-service/internal/domain"
	"field-route-service/internal/platform/obs"
	"fmt"
	"strings"
	"time"
)

// Drivers disagree on DATE and TIMESTAMP: pgx returns time.Time, SQLite may
// return the stored text. Scan into any and normalize here.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	domain.DateLayout,
}

func asTime(v any) (time.Time, bool, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false, nil
	case time.Time:
		return t, true, nil
	case []byte:
		return parseTime(string(t))
	case string:
		return parseTime(t)
	default:
		return time.Time{}, false, fmt.Errorf("unsupported time value %T", v)
	}
}

func parseTime(s string) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, nil
	}
	// Go's time.Time.String adds a monotonic clock suffix.
	if i := strings.Index(s, " m="); i > 0 {
		s = s[:i]
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("parse time %q", s)
}

func asDate(v any) (time.Time, error) {
	t, ok, err := asTime(v)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, fmt.Errorf("missing date")
	}
	return domain.DateOf(t), nil
}

// encodePath stores a path as [[lat, lng], ...]. Invalid points are dropped.
func encodePath(path []domain.Coordinate) (string, error) {
	pairs := make([][2]float64, 0, len(path))
	for _, c := range path {
		if !c.Valid() {
			continue
		}
		pairs = append(pairs, c.LatLng())
	}
	b, err := json.Marshal(pairs)
	if err != nil {
		return "", fmt.Errorf("encode path: %w", err)
	}
	return string(b), nil
}

// decodePath never fails: malformed points become domain.NoCoordinate so the
// renderer can drop them, and an unreadable column yields an empty path.
func decodePath(ctx context.Context, routeID string, raw sql.NullString) []domain.Coordinate {
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return []domain.Coordinate{}
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw.String), &items); err != nil {
		obs.Log(ctx).WithError(err).WithField("route_id", routeID).Warn("unreadable optimized_path, dropping polyline")
		return []domain.Coordinate{}
	}

	out := make([]domain.Coordinate, 0, len(items))
	for _, item := range items {
		var pair []*float64
		if err := json.Unmarshal(item, &pair); err != nil {
			out = append(out, domain.NoCoordinate())
			continue
		}
		out = append(out, domain.CoordinateFromPair(pair))
	}
	return out
}

func coordinateFromNull(lat, lng sql.NullFloat64) domain.Coordinate {
	if !lat.Valid || !lng.Valid {
		return domain.NoCoordinate()
	}
	return domain.Coordinate{Lat: lat.Float64, Lng: lng.Float64}
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
