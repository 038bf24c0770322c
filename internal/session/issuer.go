// Package session provides the two interchangeable authentication
// strategies: stateless bearer tokens and server-side sessions with
// cookies. Business logic only ever sees the Issuer capability and is
// oblivious to which one a deployment selected.
package session

import (
	"net/http"

	"github.com/opinio-dev/opinio/internal/domain"
	internal_errors "github.com/opinio-dev/opinio/internal/errors"
)

type Issuer interface {
	// Issue authenticates the response: it returns the grant for the JSON
	// body and, in cookie mode, sets the session/token cookie pair.
	// Any previously issued session for the caller is invalidated first.
	Issue(w http.ResponseWriter, r *http.Request, admin domain.Admin) (domain.Grant, error)

	// Authenticate resolves the calling admin or fails with 401.
	Authenticate(r *http.Request) (domain.AdminId, error)

	// Revoke invalidates the caller's credential. Idempotent: revoking
	// with nothing held still succeeds.
	Revoke(w http.ResponseWriter, r *http.Request) error

	// MintResetProof records that the caller passed a reset-context OTP
	// check. Token mode returns an opaque proof for the client to send
	// back; cookie mode marks the server-side session and returns "".
	MintResetProof(w http.ResponseWriter, r *http.Request, adminId domain.AdminId) (string, error)

	// ConsumeResetProof validates and invalidates a reset proof, returning
	// the admin it was minted for. Single use.
	ConsumeResetProof(w http.ResponseWriter, r *http.Request, proof string) (domain.AdminId, error)
}

func errUnauthorized(msg string) error {
	return &internal_errors.ErrorWithStatusCode{Message: msg, StatusCode: http.StatusUnauthorized}
}
