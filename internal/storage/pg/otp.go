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

// ReplaceOtp atomically supersedes any active record for the same
// (admin, context) pair with the new one.
func (s *Storage) ReplaceOtp(rec domain.OtpRecord) error {
	return s.withTx(context.Background(), func(tx *sql.Tx) error {
		if err := s.deleteOtp(tx, rec.AdminId, rec.Context); err != nil && !internal_errors.IsNotFound(err) {
			return err
		}
		return s.saveOtp(tx, rec)
	})
}

func (s *Storage) Otp(adminId domain.AdminId, context domain.OtpContext) (domain.OtpRecord, error) {
	return s.otp(s.db, adminId, context)
}

func (s *Storage) DeleteOtp(adminId domain.AdminId, otpContext domain.OtpContext) error {
	return s.withTx(context.Background(), func(tx *sql.Tx) error {
		return s.deleteOtp(tx, adminId, otpContext)
	})
}

// IncrementOtpAttempts bumps the attempt counter and returns the new value
// in one statement, so concurrent verification attempts against the same
// record can never lose an update.
func (s *Storage) IncrementOtpAttempts(adminId domain.AdminId, context domain.OtpContext) (int, error) {
	var attempts int
	err := s.db.QueryRow(
		"UPDATE otp_tokens SET attempts = attempts + 1 WHERE admin_id = $1 AND context = $2 RETURNING attempts",
		adminId, string(context),
	).Scan(&attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, &internal_errors.ErrorWithStatusCode{Message: "OTP not found", StatusCode: http.StatusNotFound}
		}
		return 0, fmt.Errorf("failed to increment otp attempts: %w", err)
	}
	return attempts, nil
}

func (s *Storage) saveOtp(q Querier, rec domain.OtpRecord) error {
	_, err := q.Exec(`
        INSERT INTO otp_tokens(admin_id, context, code_hash, expires_at, resend_available_at, attempts)
        VALUES($1, $2, $3, $4, $5, $6)`,
		rec.AdminId, string(rec.Context), rec.CodeHash, rec.ExpiresAt, rec.ResendAvailableAt, rec.Attempts,
	)
	if err != nil {
		return fmt.Errorf("failed to insert otp record: %w", err)
	}
	return nil
}

func (s *Storage) otp(q Querier, adminId domain.AdminId, context domain.OtpContext) (domain.OtpRecord, error) {
	var rec domain.OtpRecord
	var ctx string
	err := q.QueryRow(`
        SELECT admin_id, context, code_hash, (expires_at at time zone 'utc'),
               (resend_available_at at time zone 'utc'), attempts, (created_at at time zone 'utc')
        FROM otp_tokens WHERE admin_id = $1 AND context = $2`,
		adminId, string(context),
	).Scan(&rec.AdminId, &ctx, &rec.CodeHash, &rec.ExpiresAt, &rec.ResendAvailableAt, &rec.Attempts, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.OtpRecord{}, &internal_errors.ErrorWithStatusCode{Message: "OTP not found", StatusCode: http.StatusNotFound}
		}
		return domain.OtpRecord{}, fmt.Errorf("failed to query otp record: %w", err)
	}
	rec.Context = domain.OtpContext(ctx)
	return rec, nil
}

func (s *Storage) deleteOtp(q Querier, adminId domain.AdminId, context domain.OtpContext) error {
	result, err := q.Exec("DELETE FROM otp_tokens WHERE admin_id = $1 AND context = $2", adminId, string(context))
	if err != nil {
		return fmt.Errorf("failed to delete otp record: %w", err)
	}
	rowsDeleted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows for otp deletion: %w", err)
	}
	if rowsDeleted == 0 {
		return &internal_errors.ErrorWithStatusCode{Message: "OTP not found", StatusCode: http.StatusNotFound}
	}
	return nil
}
