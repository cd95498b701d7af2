package data

import (
	"database/sql"

	"github.com/pkg/errors"
)

var stateQueries = map[string]string{
	"runs":    "SELECT COUNT(*) FROM run",
	"valid":   "SELECT COUNT(*) FROM run WHERE valid = 1",
	"invalid": "SELECT COUNT(*) FROM run WHERE valid = 0",
	"inputs":  "SELECT COUNT(DISTINCT input) FROM run",
}

// GetDataState returns the current state of the database.
func GetDataState(db *sql.DB) (map[string]int64, error) {
	if db == nil {
		return nil, ErrDBNotInitialized
	}

	state := make(map[string]int64)
	for k, v := range stateQueries {
		var count int64
		if err := db.QueryRow(v).Scan(&count); err != nil {
			return nil, errors.Wrapf(err, "error scanning %s count", k)
		}
		state[k] = count
	}

	return state, nil
}
