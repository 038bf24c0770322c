package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/opinio-dev/opinio/internal/domain"
	internal_errors "github.com/opinio-dev/opinio/internal/errors"
)

// Server-side session records for cookie auth mode.

func (s *Storage) CreateSession(sess domain.Session) error {
	return s.withTx(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.Exec(`
            INSERT INTO sessions(id, admin_id, reset_verified, expires_at)
            VALUES($1, $2, $3, $4)`,
			sess.Id, sess.AdminId, sess.ResetVerified, sess.ExpiresAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}
		return nil
	})
}

func (s *Storage) Session(id string) (domain.Session, error) {
	var sess domain.Session
	err := s.db.QueryRow(`
        SELECT id, admin_id, reset_verified, (expires_at at time zone 'utc'), (created_at at time zone 'utc')
        FROM sessions WHERE id = $1`,
		id,
	).Scan(&sess.Id, &sess.AdminId, &sess.ResetVerified, &sess.ExpiresAt, &sess.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, &internal_errors.ErrorWithStatusCode{Message: "Session not found", StatusCode: http.StatusNotFound}
		}
		return domain.Session{}, fmt.Errorf("failed to query session: %w", err)
	}
	return sess, nil
}

// DeleteSession is idempotent: deleting a missing session is not an error,
// which is what makes logout safely repeatable.
func (s *Storage) DeleteSession(id string) error {
	_, err := s.db.Exec("DELETE FROM sessions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
