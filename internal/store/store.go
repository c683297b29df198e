// Package store is the persistence layer: accounts, brand context rows,
// comment locks, approval tasks, pending WhatsApp approvals, and the
// comment audit log.
package store

import (
	"database/sql"

	"github.com/Pbezama/admin-panel-back/pkg/logging"
)

// Store wraps the Postgres connection with the service's queries.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

func New(db *sql.DB, logger logging.Logger) *Store {
	return &Store{db: db, logger: logger}
}
