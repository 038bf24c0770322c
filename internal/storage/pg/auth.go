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

// =========================================================================
// Public Methods (satisfy the service.AdminStorage interface)
// =========================================================================

// SaveAdmin wraps the insert in a transaction; the unique index on email is
// what enforces the one-admin-per-email invariant, reported as 409.
func (s *Storage) SaveAdmin(admin domain.Admin) (domain.AdminId, error) {
	var id domain.AdminId
	err := s.withTx(context.Background(), func(tx *sql.Tx) error {
		var err error
		id, err = s.saveAdmin(tx, admin)
		return err
	})
	return id, err
}

// Admin fetches an administrator by email using the main connection pool.
func (s *Storage) Admin(email domain.Email) (domain.Admin, error) {
	return s.admin(s.db, "email = $1", email)
}

func (s *Storage) AdminById(id domain.AdminId) (domain.Admin, error) {
	return s.admin(s.db, "id = $1", id)
}

// UpdatePassword replaces the stored hash for a security-sensitive change.
func (s *Storage) UpdatePassword(email domain.Email, newHash string) error {
	return s.withTx(context.Background(), func(tx *sql.Tx) error {
		return s.updatePassword(tx, email, newHash)
	})
}

// =========================================================================
// Internal Methods (Core Database Logic)
// =========================================================================

func (s *Storage) saveAdmin(q Querier, admin domain.Admin) (domain.AdminId, error) {
	var id int64
	err := q.QueryRow(
		"INSERT INTO admins(email, password_hash, name, is_active) VALUES($1, $2, $3, $4) ON CONFLICT (email) DO NOTHING RETURNING id",
		admin.Email, admin.PassHash, admin.Name, admin.Active,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return -1, &internal_errors.ErrorWithStatusCode{Message: "Email already registered", StatusCode: http.StatusConflict}
		}
		return -1, fmt.Errorf("failed to insert admin: %w", err)
	}
	return id, nil
}

func (s *Storage) admin(q Querier, where string, arg any) (domain.Admin, error) {
	var admin domain.Admin
	var name sql.NullString
	err := q.QueryRow(
		"SELECT id, email, password_hash, name, is_active, (created_at at time zone 'utc') FROM admins WHERE "+where,
		arg,
	).Scan(&admin.Id, &admin.Email, &admin.PassHash, &name, &admin.Active, &admin.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Admin{}, &internal_errors.ErrorWithStatusCode{Message: "Admin not found", StatusCode: http.StatusNotFound}
		}
		return domain.Admin{}, fmt.Errorf("failed to query admin: %w", err)
	}
	admin.Name = name.String
	return admin, nil
}

func (s *Storage) updatePassword(q Querier, email domain.Email, newHash string) error {
	result, err := q.Exec("UPDATE admins SET password_hash = $1 WHERE email = $2", newHash, email)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows for password update: %w", err)
	}
	if rowsAffected == 0 {
		return &internal_errors.ErrorWithStatusCode{Message: "Admin not found", StatusCode: http.StatusNotFound}
	}
	return nil
}
