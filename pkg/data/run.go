package data

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

const (
	SourceCLI    = "cli"
	SourceBatch  = "batch"
	SourceServer = "server"

	RunListLimitDefault = 50
)

var (
	insertRun = `INSERT INTO run (input, output, steps, valid, error, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	selectRun = `SELECT id, input, output, steps, valid, error, source, created_at
		FROM run
	`
)

// Run is a single recorded shortening.
type Run struct {
	ID        int64     `json:"id" yaml:"id"`
	Input     string    `json:"input" yaml:"input"`
	Output    string    `json:"output" yaml:"output"`
	Steps     int       `json:"steps" yaml:"steps"`
	Valid     bool      `json:"valid" yaml:"valid"`
	Error     string    `json:"error,omitempty" yaml:"error,omitempty"`
	Source    string    `json:"source" yaml:"source"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// SaveRun records r and returns its ID.
func SaveRun(db *sql.DB, r *Run) (int64, error) {
	if db == nil {
		return 0, ErrDBNotInitialized
	}
	if r == nil {
		return 0, errors.New("run required")
	}
	if r.Source == "" {
		r.Source = SourceCLI
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	stmt, err := db.Prepare(insertRun)
	if err != nil {
		return 0, errors.Wrap(err, "failed to prepare run insert statement")
	}
	defer stmt.Close()

	res, err := stmt.Exec(r.Input, r.Output, r.Steps, boolToInt(r.Valid), r.Error, r.Source, r.CreatedAt.Unix())
	if err != nil {
		return 0, errors.Wrapf(err, "failed to insert run: %s", r.Input)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get run id")
	}
	r.ID = id
	return id, nil
}

// SaveRuns records all runs in a single transaction.
func SaveRuns(db *sql.DB, runs []*Run) error {
	if db == nil {
		return ErrDBNotInitialized
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	stmt, err := tx.Prepare(insertRun)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "failed to prepare run insert statement")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, r := range runs {
		if r.Source == "" {
			r.Source = SourceBatch
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		if _, err := stmt.Exec(r.Input, r.Output, r.Steps, boolToInt(r.Valid), r.Error, r.Source, r.CreatedAt.Unix()); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "failed to insert run: %s", r.Input)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit runs")
	}
	return nil
}

// GetRun returns the run with the given ID or nil when there is none.
func GetRun(db *sql.DB, id int64) (*Run, error) {
	if db == nil {
		return nil, ErrDBNotInitialized
	}

	row := db.QueryRow(selectRun+" WHERE id = ?", id)
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to get run: %d", id)
	}
	return r, nil
}

// ListRuns returns up to limit runs, newest first.
func ListRuns(db *sql.DB, limit int) ([]*Run, error) {
	if db == nil {
		return nil, ErrDBNotInitialized
	}
	if limit <= 0 {
		limit = RunListLimitDefault
	}

	rows, err := db.Query(selectRun+" ORDER BY created_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query runs")
	}
	defer rows.Close()

	list := make([]*Run, 0)
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan run")
		}
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate runs")
	}
	return list, nil
}

// DeleteRuns removes all recorded runs and returns how many were deleted.
func DeleteRuns(db *sql.DB) (int64, error) {
	if db == nil {
		return 0, ErrDBNotInitialized
	}

	res, err := db.Exec("DELETE FROM run")
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete runs")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get affected rows")
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		r       Run
		created int64
	)
	if err := s.Scan(&r.ID, &r.Input, &r.Output, &r.Steps, &r.Valid, &r.Error, &r.Source, &created); err != nil {
		return nil, err
	}
	r.CreatedAt = time.Unix(created, 0).UTC()
	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
