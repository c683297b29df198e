package store

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/Pbezama/admin-panel-back/pkg/logging"
)

// lockRetention is how long claim rows are kept before the sweep
// removes them. Meta stops redelivering an event well before this.
const lockRetention = 24 * time.Hour

// Claim attempts to take the durable processing claim for an event id.
// The uniqueness constraint on comment_locks is the arbiter: the insert
// succeeding grants the claim, a unique violation means another delivery
// already owns it. Any other storage error fails open and grants the
// claim, favoring availability over strict exactly-once.
func (s *Store) Claim(ctx context.Context, eventID, brandID, platform string) bool {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comment_locks (comment_id, instagram_id, platform)
		VALUES ($1, $2, $3)
	`, eventID, brandID, platform)
	if err == nil {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		s.logger.WithField("event_id", eventID).Debug("Claim denied, event already locked")
		return false
	}

	s.logger.WithError(err).WithField("event_id", eventID).Warn("Lock insert failed, failing open")
	return true
}

// SweepExpiredLocks deletes claim rows older than the retention window
// and returns how many were removed.
func (s *Store) SweepExpiredLocks(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-lockRetention)
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM comment_locks
		WHERE created_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.WithFields(logging.Fields{"removed": removed}).Info("Swept expired comment locks")
	}
	return removed, nil
}
