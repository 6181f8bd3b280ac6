// Package storage persists sweep runs and the movers each one finds,
// via a sqlite-backed Store with plain CREATE TABLE IF NOT EXISTS
// migrations over the modernc.org/sqlite driver.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps SQLite-backed persistence for runs and movers.
type Store struct {
	DB *sql.DB // Export for direct database access
}

// New opens (or creates) the database at path and ensures schema.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{DB: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
            id TEXT PRIMARY KEY,
            status TEXT NOT NULL,
            group_sizes_json TEXT,
            config_json TEXT,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            started_at TIMESTAMP,
            completed_at TIMESTAMP,
            error_message TEXT
        );`,
		`CREATE TABLE IF NOT EXISTS movers (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            run_id TEXT NOT NULL,
            sequence INTEGER,
            motion REAL,
            pa_deg REAL,
            err_mid REAL,
            score REAL,
            objects_json TEXT,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE INDEX IF NOT EXISTS idx_movers_run_id ON movers(run_id);`,
		`CREATE INDEX IF NOT EXISTS idx_movers_score ON movers(score);`,
	}
	for _, stmt := range stmts {
		if _, err := s.DB.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying DB.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// RunRecord captures persisted run info.
type RunRecord struct {
	ID             string
	Status         string
	GroupSizesJSON string
	ConfigJSON     string
	Error          string
	CreatedAt      time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time
}

// MoverRecord captures one persisted mover detection.
type MoverRecord struct {
	RunID       string
	Sequence    int
	Motion      float64
	PADeg       float64
	ErrMid      float64
	Score       float64
	ObjectsJSON string
}

// RecordRunQueued inserts a pending run.
func (s *Store) RecordRunQueued(rec RunRecord) error {
	if s == nil {
		return nil
	}
	_, err := s.DB.Exec(`INSERT OR REPLACE INTO runs (id, status, group_sizes_json, config_json) VALUES (?, ?, ?, ?);`,
		rec.ID, rec.Status, rec.GroupSizesJSON, rec.ConfigJSON)
	return err
}

// RecordRunStart marks a run as running.
func (s *Store) RecordRunStart(id string) error {
	if s == nil {
		return nil
	}
	_, err := s.DB.Exec(`UPDATE runs SET status='running', started_at=CURRENT_TIMESTAMP WHERE id=?;`, id)
	return err
}

// RecordRunResult finalizes a run with status and error (if any).
func (s *Store) RecordRunResult(id string, status string, errMsg string) error {
	if s == nil {
		return nil
	}
	_, err := s.DB.Exec(`UPDATE runs SET status=?, completed_at=CURRENT_TIMESTAMP, error_message=? WHERE id=?;`, status, errMsg, id)
	return err
}

// RecentRuns returns the latest runs up to limit.
func (s *Store) RecentRuns(limit int) ([]RunRecord, error) {
	if s == nil {
		return nil, errors.New("store not initialized")
	}
	rows, err := s.DB.Query(`SELECT id, status, group_sizes_json, config_json, created_at, started_at, completed_at, error_message FROM runs ORDER BY created_at DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []RunRecord
	for rows.Next() {
		var rec RunRecord
		var created time.Time
		var started, completed sql.NullTime
		var errorMsg sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Status, &rec.GroupSizesJSON, &rec.ConfigJSON, &created, &started, &completed, &errorMsg); err != nil {
			return nil, err
		}
		rec.CreatedAt = created
		if started.Valid {
			rec.StartedAt = &started.Time
		}
		if completed.Valid {
			rec.CompletedAt = &completed.Time
		}
		if errorMsg.Valid {
			rec.Error = errorMsg.String
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// RecordMover persists one mover detection belonging to a run.
func (s *Store) RecordMover(rec MoverRecord) error {
	if s == nil {
		return nil
	}
	_, err := s.DB.Exec(`INSERT INTO movers (run_id, sequence, motion, pa_deg, err_mid, score, objects_json) VALUES (?, ?, ?, ?, ?, ?, ?);`,
		rec.RunID, rec.Sequence, rec.Motion, rec.PADeg, rec.ErrMid, rec.Score, rec.ObjectsJSON)
	return err
}

// MoversForRun returns every mover recorded for a run, ordered by score
// descending.
func (s *Store) MoversForRun(runID string) ([]MoverRecord, error) {
	if s == nil {
		return nil, errors.New("store not initialized")
	}
	rows, err := s.DB.Query(`SELECT run_id, sequence, motion, pa_deg, err_mid, score, objects_json FROM movers WHERE run_id=? ORDER BY score DESC;`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []MoverRecord
	for rows.Next() {
		var rec MoverRecord
		if err := rows.Scan(&rec.RunID, &rec.Sequence, &rec.Motion, &rec.PADeg, &rec.ErrMid, &rec.Score, &rec.ObjectsJSON); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// MarshalObjects is a small helper for callers assembling ObjectsJSON
// from a mover's three detections.
func MarshalObjects(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
