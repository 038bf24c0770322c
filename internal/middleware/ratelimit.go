package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/opinio-dev/opinio/internal/middleware/ratelimiter"
	"github.com/opinio-dev/opinio/internal/utils"
)

// RateLimit applies a keyed limiter with a pluggable identity extractor.
// An unidentifiable request is rejected rather than waved through.
func RateLimit(kl *ratelimiter.KeyedLimiter, getIdentity func(r *http.Request) (string, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := getIdentity(r)
			if err != nil {
				utils.WriteErrorAndStatusCode(w, err)
				return
			}
			if !kl.Allow(identity) {
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func GetIP(r *http.Request) (string, error) {
	return utils.GetIP(r)
}

// GetEmailFromBody keys the limiter on the email field of a JSON body.
// The body is buffered and restored so the handler can still decode it.
func GetEmailFromBody(r *http.Request) (string, error) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return "", err
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	var body struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.Email == "" {
		// malformed bodies fall back to the client IP so they still count
		return utils.GetIP(r)
	}
	return strings.ToLower(strings.TrimSpace(body.Email)), nil
}

// LimitByIpAndEmail stacks the per-IP and per-email limits, used on the
// OTP-sending and OTP-verifying endpoints.
func LimitByIpAndEmail(kl *ratelimiter.KeyedLimiter, h http.HandlerFunc) http.HandlerFunc {
	limited := RateLimit(kl, GetIP)(RateLimit(kl, GetEmailFromBody)(h))
	return limited.ServeHTTP
}
