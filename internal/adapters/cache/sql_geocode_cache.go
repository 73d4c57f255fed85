package cache

import (
	"context"
	"database/sql"
	"errors"
	"field-route-service/internal/domain"
	"field-route-service/internal/platform/db"
	"field-route-service/internal/platform/obs"
	"field-route-service/internal/ports"
	"fmt"
	"strings"
)

var _ ports.GeocodeCache = (*SQLGeocodeCache)(nil)

// SQLGeocodeCache is a SQL-backed cache mapping addresses to coordinates.
// Address keys are expected to be normalized by the caller.
type SQLGeocodeCache struct {
	DB      *sql.DB
	Dialect db.Dialect
}

func NewSQLGeocodeCache(conn *sql.DB, dialect db.Dialect) *SQLGeocodeCache {
	return &SQLGeocodeCache{DB: conn, Dialect: dialect}
}

// Fetch cached coordinates for the given addresses.
func (s *SQLGeocodeCache) GetMany(
	ctx context.Context,
	addresses []string,
) (_ map[string]domain.Coordinate, err error) {
	defer obs.Time(ctx, "geocode.cache.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("geocode cache: db is nil")
	}

	uniq := uniqueAddresses(addresses)
	if len(uniq) == 0 {
		return map[string]domain.Coordinate{}, nil
	}

	args := make([]any, 0, len(uniq))
	for _, a := range uniq {
		args = append(args, a)
	}

	// Only the placeholder structure is interpolated; all values remain parameterized.
	q := fmt.Sprintf(`
	SELECT address, lat, lng
	FROM geocode_cache
	WHERE address IN (%s);
	`, db.Placeholders(len(uniq)))

	rows, err := s.DB.QueryContext(ctx, s.Dialect.Rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("get geocode cache: query geocode_cache table: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.Coordinate, len(uniq))
	for rows.Next() {
		var addr string
		var lat, lng float64
		if err := rows.Scan(&addr, &lat, &lng); err != nil {
			return nil, fmt.Errorf("get geocode cache: scan rows: %w", err)
		}
		out[addr] = domain.Coordinate{Lat: lat, Lng: lng}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get geocode cache: row iteration: %w", err)
	}

	return out, nil
}

// Store address -> coordinate mappings in the cache. Invalid coordinates are skipped.
func (s *SQLGeocodeCache) PutMany(ctx context.Context, results map[string]domain.Coordinate) (err error) {
	defer obs.Time(ctx, "geocode.cache.PutMany")(&err)

	if s.DB == nil {
		return errors.New("geocode cache: db is nil")
	}

	if len(results) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert geocode cache: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.Dialect.Rebind(`
	INSERT INTO geocode_cache (address, lat, lng)
	VALUES (?, ?, ?)
	ON CONFLICT (address) DO UPDATE
	SET lat = excluded.lat,
		lng = excluded.lng;
	`))
	if err != nil {
		return fmt.Errorf("insert geocode cache: db prepare: %w", err)
	}
	defer stmt.Close()

	for addr, c := range results {
		if strings.TrimSpace(addr) == "" {
			return fmt.Errorf("insert geocode cache: empty address key")
		}
		if !c.Valid() {
			continue
		}

		if _, err := stmt.ExecContext(ctx, addr, c.Lat, c.Lng); err != nil {
			return fmt.Errorf("insert geocode cache address=%q: %w", addr, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert geocode cache commit: %w", err)
	}

	return nil
}

func uniqueAddresses(addresses []string) []string {
	seen := map[string]struct{}{}
	uniq := make([]string, 0, len(addresses))
	for _, a := range addresses {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}

		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		uniq = append(uniq, a)
	}
	return uniq
}
