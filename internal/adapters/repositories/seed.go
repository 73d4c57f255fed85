package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"field-route-service/internal/platform/db"
	"fmt"
	"os"
	"strings"
)

type ClientSeed struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Company string `json:"company"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type WorkerSeed struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	DepotAddress string   `json:"depot_address"`
	DepotLat     *float64 `json:"depot_lat"`
	DepotLng     *float64 `json:"depot_lng"`
}

type JobSeed struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Address       string   `json:"address"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	ClientID      string   `json:"client_id"`
	ScheduledDate string   `json:"scheduled_date"`
}

// Seed is the on-disk fixture format for SeedFromJSON.
type Seed struct {
	Clients []ClientSeed `json:"clients"`
	Workers []WorkerSeed `json:"workers"`
	Jobs    []JobSeed    `json:"jobs"`
}

// Populate the database with clients, workers and jobs from a JSON file.
// Rows are upserted by id so seeding twice is harmless.
func SeedFromJSON(ctx context.Context, conn *sql.DB, dialect db.Dialect, jsonPath string) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed: read %q: %w", jsonPath, err)
	}

	var data Seed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return fmt.Errorf("seed: parse json: %w", err)
	}

	return ApplySeed(ctx, conn, dialect, data)
}

// ApplySeed validates and upserts data in one transaction.
func ApplySeed(ctx context.Context, conn *sql.DB, dialect db.Dialect, data Seed) error {
	for i, c := range data.Clients {
		if strings.TrimSpace(c.ID) == "" || strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("seed: client at index %d: id and name are required", i+1)
		}
	}
	for i, w := range data.Workers {
		if strings.TrimSpace(w.ID) == "" || strings.TrimSpace(w.Name) == "" {
			return fmt.Errorf("seed: worker at index %d: id and name are required", i+1)
		}
	}
	for i, j := range data.Jobs {
		if strings.TrimSpace(j.ID) == "" || strings.TrimSpace(j.Title) == "" {
			return fmt.Errorf("seed: job at index %d: id and title are required", i+1)
		}
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	clientQuery := `
	INSERT INTO clients (id, name, company, email, phone, address)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		name = excluded.name,
		company = excluded.company,
		email = excluded.email,
		phone = excluded.phone,
		address = excluded.address;
	`
	workerQuery := `
	INSERT INTO workers (id, name, email, depot_address, depot_lat, depot_lng)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		name = excluded.name,
		email = excluded.email,
		depot_address = excluded.depot_address,
		depot_lat = excluded.depot_lat,
		depot_lng = excluded.depot_lng;
	`
	jobQuery := `
	INSERT INTO jobs (id, title, address, latitude, longitude, client_id, scheduled_date)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		title = excluded.title,
		address = excluded.address,
		latitude = excluded.latitude,
		longitude = excluded.longitude,
		client_id = excluded.client_id,
		scheduled_date = excluded.scheduled_date;
	`

	stmt, err := tx.PrepareContext(ctx, dialect.Rebind(clientQuery))
	if err != nil {
		return fmt.Errorf("seed clients: prepare insert: %w", err)
	}
	for _, c := range data.Clients {
		if _, err := stmt.ExecContext(ctx, c.ID, c.Name, nullIfEmpty(c.Company), nullIfEmpty(c.Email), nullIfEmpty(c.Phone), nullIfEmpty(c.Address)); err != nil {
			_ = stmt.Close()
			return fmt.Errorf("seed clients: insert id=%s: %w", c.ID, err)
		}
	}
	_ = stmt.Close()

	stmt, err = tx.PrepareContext(ctx, dialect.Rebind(workerQuery))
	if err != nil {
		return fmt.Errorf("seed workers: prepare insert: %w", err)
	}
	for _, w := range data.Workers {
		if _, err := stmt.ExecContext(ctx, w.ID, w.Name, nullIfEmpty(w.Email), nullIfEmpty(w.DepotAddress), w.DepotLat, w.DepotLng); err != nil {
			_ = stmt.Close()
			return fmt.Errorf("seed workers: insert id=%s: %w", w.ID, err)
		}
	}
	_ = stmt.Close()

	stmt, err = tx.PrepareContext(ctx, dialect.Rebind(jobQuery))
	if err != nil {
		return fmt.Errorf("seed jobs: prepare insert: %w", err)
	}
	for _, j := range data.Jobs {
		if _, err := stmt.ExecContext(ctx, j.ID, j.Title, nullIfEmpty(j.Address), j.Latitude, j.Longitude, nullIfEmpty(j.ClientID), nullIfEmpty(j.ScheduledDate)); err != nil {
			_ = stmt.Close()
			return fmt.Errorf("seed jobs: insert id=%s: %w", j.ID, err)
		}
	}
	_ = stmt.Close()

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit tx: %w", err)
	}

	return nil
}
