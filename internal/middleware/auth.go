// Package middleware holds the HTTP middleware chain: authentication
// guard, rate limiting and security headers.
package middleware

import (
	"net/http"

	"github.com/opinio-dev/opinio/internal/session"
	"github.com/opinio-dev/opinio/internal/utils"
)

// RequireAdmin rejects requests without a valid credential before they
// reach the admin handlers. Works for both auth modes through the Issuer.
func RequireAdmin(issuer session.Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := issuer.Authenticate(r); err != nil {
				utils.WriteErrorAndStatusCode(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
