package session

import (
	"net/http"
	"strings"

	"github.com/opinio-dev/opinio/internal/domain"
	"github.com/opinio-dev/opinio/internal/jwt"
)

// TokenIssuer is the stateless strategy: a signed bearer token in the
// response body, presented back via the Authorization header. Validity is
// entirely signature + expiry; there is nothing server-side to revoke.
type TokenIssuer struct {
	jwt jwt.Service
}

func NewTokenIssuer(jwtService jwt.Service) *TokenIssuer {
	return &TokenIssuer{jwt: jwtService}
}

func (t *TokenIssuer) Issue(_ http.ResponseWriter, _ *http.Request, admin domain.Admin) (domain.Grant, error) {
	token, err := t.jwt.NewToken(admin.Id)
	if err != nil {
		return domain.Grant{}, err
	}
	return domain.Grant{Token: token, Admin: admin.Profile()}, nil
}

func (t *TokenIssuer) Authenticate(r *http.Request) (domain.AdminId, error) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return 0, errUnauthorized("Authentication required")
	}
	return t.jwt.VerifyToken(strings.TrimPrefix(authHeader, "Bearer "))
}

// Revoke is a no-op beyond reporting success: the client discards the
// token, and expiry takes care of the rest.
func (t *TokenIssuer) Revoke(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

func (t *TokenIssuer) MintResetProof(_ http.ResponseWriter, _ *http.Request, adminId domain.AdminId) (string, error) {
	return t.jwt.NewResetProof(adminId)
}

func (t *TokenIssuer) ConsumeResetProof(_ http.ResponseWriter, _ *http.Request, proof string) (domain.AdminId, error) {
	if proof == "" {
		return 0, errUnauthorized("Password reset not verified")
	}
	return t.jwt.VerifyResetProof(proof)
}
