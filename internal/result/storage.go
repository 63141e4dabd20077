package result

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

func CreateRunDir(baseDir string) (string, error) {
	runsDir := filepath.Join(baseDir, "runs")
	stamp := time.Now().UTC().Format("2006-01-02T15-04-05")
	runDir := filepath.Join(runsDir, stamp)
	runDir, err := filepath.Abs(runDir)
	if err != nil {
		return "", fmt.Errorf("resolving run dir: %w", err)
	}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", fmt.Errorf("creating run dir: %w", err)
	}
	latest := filepath.Join(baseDir, "latest")
	os.Remove(latest)
	if err := os.Symlink(runDir, latest); err != nil {
		return "", fmt.Errorf("creating latest symlink: %w", err)
	}
	return runDir, nil
}

// DBPath is where a run keeps its invocation records.
func DBPath(runDir string) string {
	return filepath.Join(runDir, "results.db")
}

// Store persists invocation records for one run in a local sqlite database.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS invocations (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	round        INTEGER NOT NULL,
	worker       INTEGER NOT NULL,
	contract     TEXT NOT NULL,
	method       TEXT NOT NULL,
	readonly     INTEGER NOT NULL,
	succeeded    INTEGER NOT NULL,
	verified     INTEGER NOT NULL,
	polls        INTEGER NOT NULL,
	duration_ms  INTEGER NOT NULL,
	error        TEXT NOT NULL DEFAULT '',
	submitted_at TEXT NOT NULL
);`

func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening results db %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing results db: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Add(rec *Record) error {
	res, err := s.db.Exec(`INSERT INTO invocations
		(round, worker, contract, method, readonly, succeeded, verified, polls, duration_ms, error, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Round, rec.Worker, rec.Contract, rec.Method,
		rec.ReadOnly, rec.Succeeded, rec.Verified,
		rec.Polls, rec.DurationMS, rec.Error,
		rec.SubmittedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting record: %w", err)
	}
	rec.ID, _ = res.LastInsertId()
	return nil
}

func (s *Store) Records() ([]*Record, error) {
	rows, err := s.db.Query(`SELECT id, round, worker, contract, method,
		readonly, succeeded, verified, polls, duration_ms, error, submitted_at
		FROM invocations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var rec Record
		var submitted string
		if err := rows.Scan(&rec.ID, &rec.Round, &rec.Worker, &rec.Contract, &rec.Method,
			&rec.ReadOnly, &rec.Succeeded, &rec.Verified, &rec.Polls, &rec.DurationMS,
			&rec.Error, &submitted); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, submitted); err == nil {
			rec.SubmittedAt = t
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
