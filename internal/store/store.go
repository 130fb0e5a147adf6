// Package store persists submitted exam results in SQLite. Grading detail
// and the per-question snapshot are kept as JSON documents alongside the
// scalar columns, so a result round-trips exactly as submitted.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ngochuy/onthisu/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		score INTEGER NOT NULL,
		total INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		meta TEXT NOT NULL DEFAULT '{}',
		questions TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_results_session ON results(session_id);
	CREATE INDEX IF NOT EXISTS idx_results_user_created ON results(user_id, created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// timeFormat keeps nanosecond precision so consecutive inserts order
// correctly without an extra sequence column.
const timeFormat = time.RFC3339Nano

// SaveResult inserts a submitted result and returns it with the
// server-assigned creation timestamp filled in. Results are insert-only.
func (s *Store) SaveResult(r model.Result) (model.Result, error) {
	meta, err := json.Marshal(r.Meta)
	if err != nil {
		return model.Result{}, fmt.Errorf("encode meta: %w", err)
	}
	questions, err := json.Marshal(r.Questions)
	if err != nil {
		return model.Result{}, fmt.Errorf("encode questions: %w", err)
	}

	r.CreatedAt = time.Now().UTC()
	_, err = s.db.Exec(
		`INSERT INTO results (session_id, user_id, score, total, started_at, finished_at, meta, questions, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SessionID, r.UserID, r.Score, r.Total,
		r.StartedAt.UTC().Format(timeFormat), r.FinishedAt.UTC().Format(timeFormat),
		string(meta), string(questions), r.CreatedAt.Format(timeFormat),
	)
	if err != nil {
		return model.Result{}, fmt.Errorf("insert result: %w", err)
	}
	return r, nil
}

// ResultsByUser returns a user's results, newest first.
func (s *Store) ResultsByUser(userID string) ([]model.Result, error) {
	rows, err := s.db.Query(
		`SELECT session_id, user_id, score, total, started_at, finished_at, meta, questions, created_at
		 FROM results WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()
	return scanResults(rows)
}

// AllResults returns every stored result, newest first. Used by the export
// command.
func (s *Store) AllResults() ([]model.Result, error) {
	rows, err := s.db.Query(
		`SELECT session_id, user_id, score, total, started_at, finished_at, meta, questions, created_at
		 FROM results ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()
	return scanResults(rows)
}

// ResultCount returns the number of stored results.
func (s *Store) ResultCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM results`).Scan(&count)
	return count, err
}

func scanResults(rows *sql.Rows) ([]model.Result, error) {
	var results []model.Result
	for rows.Next() {
		var r model.Result
		var startedAt, finishedAt, createdAt string
		var meta, questions string
		if err := rows.Scan(&r.SessionID, &r.UserID, &r.Score, &r.Total,
			&startedAt, &finishedAt, &meta, &questions, &createdAt); err != nil {
			return nil, err
		}
		var err error
		if r.StartedAt, err = time.Parse(timeFormat, startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if r.FinishedAt, err = time.Parse(timeFormat, finishedAt); err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		if r.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &r.Meta); err != nil {
			return nil, fmt.Errorf("decode meta: %w", err)
		}
		if err := json.Unmarshal([]byte(questions), &r.Questions); err != nil {
			return nil, fmt.Errorf("decode questions: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
