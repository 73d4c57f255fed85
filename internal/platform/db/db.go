package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect selects placeholder and DDL flavor for the shared SQL adapters.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// Rebind rewrites ? placeholders to $n for Postgres. Queries must not contain
// literal question marks.
func (d Dialect) Rebind(q string) string {
	if d != Postgres {
		return q
	}

	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Placeholders returns "?, ?, ..." for an IN clause of n values.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func Open(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("openDB: open postgres database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("openDB: verify postgres connection: %w", err)
	}

	return db, nil
}

// OpenSqlite opens a SQLite database with foreign keys enforced.
// A single connection keeps ":memory:" databases shared and serializes writers.
func OpenSqlite(path string) (*sql.DB, error) {
	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	} else {
		dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("openDB: open sqlite database %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("openDB: verify sqlite connection to %q: %w", path, err)
	}

	return db, nil
}

// Connect opens Postgres when databaseURL is set and the SQLite file at
// sqlitePath otherwise. The SQLite parent directory is created if missing.
func Connect(databaseURL, sqlitePath string) (*sql.DB, Dialect, error) {
	if strings.TrimSpace(databaseURL) != "" {
		conn, err := Open(databaseURL)
		return conn, Postgres, err
	}

	if sqlitePath != ":memory:" {
		if dir := filepath.Dir(sqlitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, SQLite, fmt.Errorf("openDB: create %q: %w", dir, err)
			}
		}
	}
	conn, err := OpenSqlite(sqlitePath)
	return conn, SQLite, err
}
