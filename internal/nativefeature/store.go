package nativefeature

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// sqliteStore persists periodic metrics snapshots, grounded on
// internal/scheduler.Store's sql.Open/migrate/Exec shape, swapping the
// teacher's cgo mattn/go-sqlite3 driver for the pure-Go modernc.org/sqlite
// (see DESIGN.md).
type sqliteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) a metrics database at
// dbPath.
func NewSQLiteStore(dbPath string) (Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open metrics database: %w", err)
	}

	s := &sqliteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate metrics database: %w", err)
	}
	return s, nil
}

func (s *sqliteStore) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS metrics_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		recorded_at TEXT NOT NULL,
		total_events INTEGER NOT NULL,
		category_counts_json TEXT NOT NULL,
		type_counts_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_metrics_snapshots_recorded_at ON metrics_snapshots(recorded_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordSnapshot persists one metrics snapshot.
func (s *sqliteStore) RecordSnapshot(ts time.Time, stats Stats) error {
	categoryJSON, err := json.Marshal(stats.CategoryCounts)
	if err != nil {
		return fmt.Errorf("marshal category counts: %w", err)
	}
	typeJSON, err := json.Marshal(stats.TypeCounts)
	if err != nil {
		return fmt.Errorf("marshal type counts: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO metrics_snapshots (recorded_at, total_events, category_counts_json, type_counts_json)
		VALUES (?, ?, ?, ?)
	`, ts.Format(time.RFC3339Nano), stats.TotalEvents, string(categoryJSON), string(typeJSON))
	return err
}

// RecentSnapshots returns the most recent snapshots, newest first.
func (s *sqliteStore) RecentSnapshots(limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(`
		SELECT recorded_at, total_events, category_counts_json, type_counts_json
		FROM metrics_snapshots ORDER BY recorded_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var recordedAt, categoryJSON, typeJSON string
		var snap Snapshot
		if err := rows.Scan(&recordedAt, &snap.Stats.TotalEvents, &categoryJSON, &typeJSON); err != nil {
			return nil, err
		}
		snap.RecordedAt, _ = time.Parse(time.RFC3339Nano, recordedAt)
		snap.Stats.CategoryCounts = map[string]int64{}
		snap.Stats.TypeCounts = map[string]int64{}
		if err := json.Unmarshal([]byte(categoryJSON), &snap.Stats.CategoryCounts); err != nil {
			return nil, fmt.Errorf("unmarshal category counts: %w", err)
		}
		if err := json.Unmarshal([]byte(typeJSON), &snap.Stats.TypeCounts); err != nil {
			return nil, fmt.Errorf("unmarshal type counts: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Close closes the underlying database connection.
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// Snapshot is one persisted metrics sample.
type Snapshot struct {
	RecordedAt time.Time
	Stats      Stats
}
