package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNoRuns is returned by LatestRun on an empty store.
var ErrNoRuns = errors.New("no comparison runs recorded")

// Run describes one recorded comparison.
type Run struct {
	ID        string
	Label     string
	CreatedAt time.Time
}

// CreateRun records a new run and returns it.
func (s *Store) CreateRun(label string) (*Run, error) {
	r := &Run{
		ID:        uuid.NewString(),
		Label:     label,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.db.Exec(`INSERT INTO runs (id, label, created_at) VALUES (?, ?, ?)`,
		r.ID, r.Label, r.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return r, nil
}

// Runs lists recorded runs, newest first.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(`SELECT id, label, created_at FROM runs ORDER BY seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r     Run
			label sql.NullString
		)
		if err := rows.Scan(&r.ID, &label, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Label = label.String
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LatestRun returns the most recently created run.
func (s *Store) LatestRun() (*Run, error) {
	runs, err := s.Runs()
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrNoRuns
	}
	return &runs[0], nil
}

// FindRun returns the run with the given ID, or the latest run whose ID
// starts with it.
func (s *Store) FindRun(id string) (*Run, error) {
	runs, err := s.Runs()
	if err != nil {
		return nil, err
	}
	for i := range runs {
		if runs[i].ID == id {
			return &runs[i], nil
		}
	}
	for i := range runs {
		if len(id) >= 4 && strings.HasPrefix(runs[i].ID, id) {
			return &runs[i], nil
		}
	}
	return nil, fmt.Errorf("run %q not found", id)
}

// RecordInputs stores the fingerprints of the files a run was computed from,
// keyed by their role (e.g. "varsim_tp").
func (s *Store) RecordInputs(runID string, inputs map[string]FileFingerprint) error {
	for role, fp := range inputs {
		if _, err := s.db.Exec(`INSERT OR REPLACE INTO run_inputs VALUES (?, ?, ?, ?, ?)`,
			runID, role, fp.Path, fp.Size, fp.ModTime.UTC()); err != nil {
			return fmt.Errorf("insert input %s: %w", role, err)
		}
	}
	return nil
}

// Inputs returns the recorded input fingerprints of a run.
func (s *Store) Inputs(runID string) (map[string]FileFingerprint, error) {
	rows, err := s.db.Query(`SELECT role, path, size, mod_time FROM run_inputs WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("query inputs: %w", err)
	}
	defer rows.Close()

	inputs := make(map[string]FileFingerprint)
	for rows.Next() {
		var (
			role string
			fp   FileFingerprint
		)
		if err := rows.Scan(&role, &fp.Path, &fp.Size, &fp.ModTime); err != nil {
			return nil, fmt.Errorf("scan input: %w", err)
		}
		inputs[role] = fp
	}
	return inputs, rows.Err()
}
