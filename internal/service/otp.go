package service

import (
	"net/http"
	"time"

	"github.com/opinio-dev/opinio/internal/domain"
	internal_errors "github.com/opinio-dev/opinio/internal/errors"
	"github.com/opinio-dev/opinio/internal/otp"
)

// OtpStorage is the persistence surface of the ledger: one active record
// per (admin, context), with an atomic increment for the attempt counter.
type OtpStorage interface {
	ReplaceOtp(rec domain.OtpRecord) error
	Otp(adminId domain.AdminId, context domain.OtpContext) (domain.OtpRecord, error)
	DeleteOtp(adminId domain.AdminId, context domain.OtpContext) error
	IncrementOtpAttempts(adminId domain.AdminId, context domain.OtpContext) (int, error)
}

// OtpLedger owns the lifecycle of one-time codes: issuance, resend
// throttling, attempt counting and the single-use verification step.
type OtpLedger struct {
	storage      OtpStorage
	expiry       time.Duration
	resendWindow time.Duration
	maxAttempts  int
	now          func() time.Time
}

func NewOtpLedger(storage OtpStorage, expiry, resendWindow time.Duration, maxAttempts int) *OtpLedger {
	return &OtpLedger{
		storage:      storage,
		expiry:       expiry,
		resendWindow: resendWindow,
		maxAttempts:  maxAttempts,
		now:          time.Now,
	}
}

// Issue supersedes any active record for (adminId, context) with a fresh
// code. The plaintext is returned for delivery only; storage sees the hash.
func (l *OtpLedger) Issue(adminId domain.AdminId, context domain.OtpContext) (domain.OtpIssue, error) {
	code, err := otp.GenerateCode()
	if err != nil {
		return domain.OtpIssue{}, err
	}

	now := l.now().UTC()
	rec := domain.OtpRecord{
		AdminId:           adminId,
		Context:           context,
		CodeHash:          otp.HashCode(code),
		ExpiresAt:         now.Add(l.expiry),
		ResendAvailableAt: now.Add(l.resendWindow),
	}
	if err := l.storage.ReplaceOtp(rec); err != nil {
		return domain.OtpIssue{}, err
	}

	return domain.OtpIssue{
		Code:              code,
		ExpiresAt:         rec.ExpiresAt,
		ResendAvailableAt: rec.ResendAvailableAt,
	}, nil
}

// Resend issues a new code unless the active record is still inside its
// resend window. A missing or expired record does not block a resend.
func (l *OtpLedger) Resend(adminId domain.AdminId, context domain.OtpContext) (domain.OtpIssue, error) {
	rec, err := l.storage.Otp(adminId, context)
	if err != nil && !internal_errors.IsNotFound(err) {
		return domain.OtpIssue{}, err
	}
	if err == nil && l.now().UTC().Before(rec.ResendAvailableAt) {
		return domain.OtpIssue{}, &internal_errors.ErrorWithStatusCode{
			Message:    "Please wait before requesting a new code",
			StatusCode: http.StatusTooManyRequests,
		}
	}
	return l.Issue(adminId, context)
}

// Verify checks a candidate code against the active record. The attempt
// counter is incremented and persisted BEFORE the hash comparison, so a
// concurrent or retried request can never bypass the ceiling. Success and
// every terminal failure (expiry, exhaustion) delete the record, which is
// why a correct code presented afterwards comes back as not found.
func (l *OtpLedger) Verify(adminId domain.AdminId, context domain.OtpContext, code string) error {
	rec, err := l.storage.Otp(adminId, context)
	if err != nil {
		return err
	}

	if !l.now().UTC().Before(rec.ExpiresAt) {
		if err := l.discard(adminId, context); err != nil {
			return err
		}
		return &internal_errors.ErrorWithStatusCode{
			Message:    "Verification code has expired. Please request a new one",
			StatusCode: http.StatusBadRequest,
		}
	}

	if rec.Attempts >= l.maxAttempts {
		if err := l.discard(adminId, context); err != nil {
			return err
		}
		return errTooManyAttempts()
	}

	attempts, err := l.storage.IncrementOtpAttempts(adminId, context)
	if err != nil {
		return err
	}

	if otp.HashCode(code) != rec.CodeHash {
		if attempts >= l.maxAttempts {
			if err := l.discard(adminId, context); err != nil {
				return err
			}
			return errTooManyAttempts()
		}
		return &internal_errors.ErrorWithStatusCode{
			Message:    "Invalid verification code",
			StatusCode: http.StatusBadRequest,
		}
	}

	return l.discard(adminId, context)
}

// discard removes the active record, tolerating a concurrent delete.
func (l *OtpLedger) discard(adminId domain.AdminId, context domain.OtpContext) error {
	if err := l.storage.DeleteOtp(adminId, context); err != nil && !internal_errors.IsNotFound(err) {
		return err
	}
	return nil
}

func errTooManyAttempts() error {
	return &internal_errors.ErrorWithStatusCode{
		Message:    "Too many attempts. Please request a new code",
		StatusCode: http.StatusTooManyRequests,
	}
}
