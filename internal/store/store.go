package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS refreshes (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	device     TEXT NOT NULL,
	sku        TEXT NOT NULL,
	at         TEXT NOT NULL,
	took_ms    INTEGER NOT NULL,
	ok         INTEGER NOT NULL,
	error      TEXT
);
CREATE TABLE IF NOT EXISTS events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	device     TEXT NOT NULL,
	at         TEXT NOT NULL,
	fields     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS api_requests (
	day        TEXT PRIMARY KEY,
	total      INTEGER NOT NULL
);
`

// Store journals refresh outcomes, push events, and daily API request
// counts to sqlite. It exists for operator diagnostics; the bridge never
// reads state back from it at runtime.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the journal database at path. Use ":memory:"
// in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	log.Info().Str("path", path).Msg("Journal database opened")
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRefresh journals the outcome of one poll cycle.
func (s *Store) RecordRefresh(device, sku string, took time.Duration, refreshErr error) error {
	ok := 1
	errText := sql.NullString{}
	if refreshErr != nil {
		ok = 0
		errText = sql.NullString{String: refreshErr.Error(), Valid: true}
	}

	_, err := s.db.Exec(
		`INSERT INTO refreshes (device, sku, at, took_ms, ok, error) VALUES (?, ?, ?, ?, ?, ?)`,
		device, sku, time.Now().Format(time.RFC3339), took.Milliseconds(), ok, errText,
	)
	if err != nil {
		return fmt.Errorf("failed to record refresh for %s: %w", device, err)
	}
	return nil
}

// RecordEvent journals one accepted push event with its merged fields.
func (s *Store) RecordEvent(device string, fields map[string]any) error {
	blob, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal event fields for %s: %w", device, err)
	}

	_, err = s.db.Exec(
		`INSERT INTO events (device, at, fields) VALUES (?, ?, ?)`,
		device, time.Now().Format(time.RFC3339), string(blob),
	)
	if err != nil {
		return fmt.Errorf("failed to record event for %s: %w", device, err)
	}
	return nil
}

// BumpRequestCount stores the running API request count for one day.
func (s *Store) BumpRequestCount(day string, total int) error {
	_, err := s.db.Exec(
		`INSERT INTO api_requests (day, total) VALUES (?, ?)
		 ON CONFLICT(day) DO UPDATE SET total = excluded.total`,
		day, total,
	)
	if err != nil {
		return fmt.Errorf("failed to record request count for %s: %w", day, err)
	}
	return nil
}

// RequestCount returns the journaled API request count for one day.
func (s *Store) RequestCount(day string) (int, error) {
	var total int
	err := s.db.QueryRow(`SELECT total FROM api_requests WHERE day = ?`, day).Scan(&total)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get request count for %s: %w", day, err)
	}
	return total, nil
}

// RecentRefreshes returns the newest refresh journal rows for a device.
func (s *Store) RecentRefreshes(device string, limit int) ([]RefreshRecord, error) {
	rows, err := s.db.Query(
		`SELECT device, sku, at, took_ms, ok, error FROM refreshes
		 WHERE device = ? ORDER BY id DESC LIMIT ?`,
		device, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query refreshes for %s: %w", device, err)
	}
	defer rows.Close()

	var records []RefreshRecord
	for rows.Next() {
		var r RefreshRecord
		var at string
		var ok int
		var errText sql.NullString
		if err := rows.Scan(&r.Device, &r.SKU, &at, &r.TookMS, &ok, &errText); err != nil {
			return nil, fmt.Errorf("failed to scan refresh row: %w", err)
		}
		r.At, _ = time.Parse(time.RFC3339, at)
		r.OK = ok == 1
		r.Error = errText.String
		records = append(records, r)
	}
	return records, nil
}

// RefreshRecord is one journaled poll cycle.
type RefreshRecord struct {
	Device string
	SKU    string
	At     time.Time
	TookMS int64
	OK     bool
	Error  string
}
