// Package snapshot persists analysis snapshots to an embedded SQLite
// store and computes diffs between them: per-signal time series
// statistics and finding lifecycle with rename-aware identity remapping.
package snapshot

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver
)

// Store wraps the snapshot database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	path   string
}

// Open opens or creates the snapshot database under dir (typically
// <root>/.insight/snapshots.db).
func Open(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot dir: %w", err)
	}
	dbPath := filepath.Join(dir, "snapshots.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	s := &Store{db: db, logger: logger, path: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) initSchema() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT PRIMARY KEY,
			timestamp INTEGER NOT NULL,
			commit_sha TEXT,
			data BLOB NOT NULL,
			file_count INTEGER NOT NULL,
			finding_count INTEGER NOT NULL,
			health REAL NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS finding_lifecycle (
			finding_id TEXT NOT NULL,
			snapshot_id TEXT NOT NULL,
			status TEXT NOT NULL CHECK (status IN ('open', 'resolved')),
			first_seen INTEGER NOT NULL,
			last_seen INTEGER NOT NULL,
			persistence_count INTEGER NOT NULL DEFAULT 1,
			PRIMARY KEY (finding_id, snapshot_id)
		)`,
		`CREATE TABLE IF NOT EXISTS signal_history (
			entity_key TEXT NOT NULL,
			signal TEXT NOT NULL,
			snapshot_id TEXT NOT NULL,
			value REAL NOT NULL,
			PRIMARY KEY (entity_key, signal, snapshot_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_lifecycle_finding ON finding_lifecycle(finding_id)`,
		`CREATE INDEX IF NOT EXISTS idx_history_entity ON signal_history(entity_key, signal)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("initializing schema: %w", err)
		}
	}
	return nil
}

// Record is one stored snapshot row.
type Record struct {
	ID           string
	Timestamp    time.Time
	CommitSHA    string
	Data         []byte
	FileCount    int
	FindingCount int
	Health       float64
}

// SaveSnapshot inserts a snapshot row.
func (s *Store) SaveSnapshot(rec *Record) error {
	_, err := s.db.Exec(`
		INSERT INTO snapshots (id, timestamp, commit_sha, data, file_count, finding_count, health)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Timestamp.Unix(), rec.CommitSHA, rec.Data,
		rec.FileCount, rec.FindingCount, rec.Health)
	return err
}

// LoadSnapshot reads one snapshot by id.
func (s *Store) LoadSnapshot(id string) (*Record, error) {
	row := s.db.QueryRow(`
		SELECT id, timestamp, commit_sha, data, file_count, finding_count, health
		FROM snapshots WHERE id = ?`, id)
	var rec Record
	var ts int64
	if err := row.Scan(&rec.ID, &ts, &rec.CommitSHA, &rec.Data,
		&rec.FileCount, &rec.FindingCount, &rec.Health); err != nil {
		return nil, err
	}
	rec.Timestamp = time.Unix(ts, 0).UTC()
	return &rec, nil
}

// Meta is a snapshot listing row, without the blob.
type Meta struct {
	ID           string
	Timestamp    time.Time
	CommitSHA    string
	FileCount    int
	FindingCount int
	Health       float64
}

// ListSnapshots returns snapshot metadata ordered oldest first.
func (s *Store) ListSnapshots() ([]Meta, error) {
	rows, err := s.db.Query(`
		SELECT id, timestamp, commit_sha, file_count, finding_count, health
		FROM snapshots ORDER BY timestamp ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Meta
	for rows.Next() {
		var m Meta
		var ts int64
		if err := rows.Scan(&m.ID, &ts, &m.CommitSHA, &m.FileCount, &m.FindingCount, &m.Health); err != nil {
			return nil, err
		}
		m.Timestamp = time.Unix(ts, 0).UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

// RecordLifecycle updates the finding lifecycle table for a new
// snapshot: present findings are open (persistence incremented when they
// were open before); previously open findings now absent are recorded as
// resolved.
func (s *Store) RecordLifecycle(snapshotID string, findingIDs []string, ts time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Latest state per finding id.
	prev := make(map[string]struct {
		firstSeen   int64
		persistence int
		status      string
	})
	rows, err := tx.Query(`
		SELECT fl.finding_id, fl.first_seen, fl.persistence_count, fl.status
		FROM finding_lifecycle fl
		JOIN snapshots sn ON sn.id = fl.snapshot_id
		WHERE NOT EXISTS (
			SELECT 1 FROM finding_lifecycle fl2
			JOIN snapshots sn2 ON sn2.id = fl2.snapshot_id
			WHERE fl2.finding_id = fl.finding_id
			  AND (sn2.timestamp > sn.timestamp OR (sn2.timestamp = sn.timestamp AND sn2.id > sn.id))
		)`)
	if err != nil {
		return err
	}
	for rows.Next() {
		var id, status string
		var firstSeen int64
		var persistence int
		if err := rows.Scan(&id, &firstSeen, &persistence, &status); err != nil {
			rows.Close()
			return err
		}
		prev[id] = struct {
			firstSeen   int64
			persistence int
			status      string
		}{firstSeen, persistence, status}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	now := ts.Unix()
	present := make(map[string]bool, len(findingIDs))
	for _, id := range findingIDs {
		present[id] = true
		firstSeen := now
		persistence := 1
		if p, ok := prev[id]; ok {
			firstSeen = p.firstSeen
			if p.status == "open" {
				persistence = p.persistence + 1
			}
		}
		if _, err := tx.Exec(`
			INSERT INTO finding_lifecycle (finding_id, snapshot_id, status, first_seen, last_seen, persistence_count)
			VALUES (?, ?, 'open', ?, ?, ?)`,
			id, snapshotID, firstSeen, now, persistence); err != nil {
			return err
		}
	}

	for id, p := range prev {
		if present[id] || p.status != "open" {
			continue
		}
		if _, err := tx.Exec(`
			INSERT INTO finding_lifecycle (finding_id, snapshot_id, status, first_seen, last_seen, persistence_count)
			VALUES (?, ?, 'resolved', ?, ?, ?)`,
			id, snapshotID, p.firstSeen, now, p.persistence); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// PersistenceCounts returns the current open persistence count per
// finding id, feeding the chronic amplification wrapper.
func (s *Store) PersistenceCounts() (map[string]int, error) {
	rows, err := s.db.Query(`
		SELECT fl.finding_id, fl.persistence_count, fl.status
		FROM finding_lifecycle fl
		JOIN snapshots sn ON sn.id = fl.snapshot_id
		WHERE NOT EXISTS (
			SELECT 1 FROM finding_lifecycle fl2
			JOIN snapshots sn2 ON sn2.id = fl2.snapshot_id
			WHERE fl2.finding_id = fl.finding_id
			  AND (sn2.timestamp > sn.timestamp OR (sn2.timestamp = sn.timestamp AND sn2.id > sn.id))
		)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var id, status string
		var count int
		if err := rows.Scan(&id, &count, &status); err != nil {
			return nil, err
		}
		if status == "open" {
			out[id] = count
		}
	}
	return out, rows.Err()
}

// LifecycleStatuses returns every (finding, snapshot) status pair for a
// finding id, ordered by snapshot time.
func (s *Store) LifecycleStatuses(findingID string) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT fl.status FROM finding_lifecycle fl
		JOIN snapshots sn ON sn.id = fl.snapshot_id
		WHERE fl.finding_id = ?
		ORDER BY sn.timestamp ASC, sn.id ASC`, findingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var status string
		if err := rows.Scan(&status); err != nil {
			return nil, err
		}
		out = append(out, status)
	}
	return out, rows.Err()
}

// SignalRow is one signal history entry.
type SignalRow struct {
	EntityKey string
	Signal    string
	Value     float64
}

// SaveSignalHistory bulk-inserts the signal values of one snapshot.
func (s *Store) SaveSignalHistory(snapshotID string, rows []SignalRow) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO signal_history (entity_key, signal, snapshot_id, value)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.Exec(r.EntityKey, r.Signal, snapshotID, r.Value); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SignalSeries returns the chronological value series of one
// entity/signal pair across snapshots.
func (s *Store) SignalSeries(entityKey, signal string) ([]float64, error) {
	rows, err := s.db.Query(`
		SELECT sh.value FROM signal_history sh
		JOIN snapshots sn ON sn.id = sh.snapshot_id
		WHERE sh.entity_key = ? AND sh.signal = ?
		ORDER BY sn.timestamp ASC, sn.id ASC`, entityKey, signal)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
