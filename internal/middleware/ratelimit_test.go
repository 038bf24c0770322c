package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/opinio-dev/opinio/internal/middleware/ratelimiter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestRateLimitByIP(t *testing.T) {
	kl := ratelimiter.NewKeyedLimiter(0.0001, 2, time.Hour)
	defer kl.Stop()
	h := RateLimit(kl, GetIP)(http.HandlerFunc(okHandler))

	send := func(addr string) int {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = addr
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("203.0.113.9:1000"))
	assert.Equal(t, http.StatusOK, send("203.0.113.9:1001"))
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.9:1002"))
	assert.Equal(t, http.StatusOK, send("203.0.113.10:1000"), "other clients are unaffected")
}

func TestGetEmailFromBodyRestoresBody(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"A@X.com","password":"p"}`))
	r.RemoteAddr = "203.0.113.9:1000"

	email, err := GetEmailFromBody(r)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", email)

	// the handler downstream must still see the full body
	raw, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"password":"p"`)
}

func TestGetEmailFromBodyFallsBackToIP(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`not json`))
	r.RemoteAddr = "203.0.113.9:1000"

	key, err := GetEmailFromBody(r)
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.9", key)
}

func TestLimitByIpAndEmail(t *testing.T) {
	kl := ratelimiter.NewKeyedLimiter(0.0001, 2, time.Hour)
	defer kl.Stop()
	h := LimitByIpAndEmail(kl, okHandler)

	send := func(addr, email string) int {
		r := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"`+email+`"}`))
		r.RemoteAddr = addr
		w := httptest.NewRecorder()
		h(w, r)
		return w.Code
	}

	// same email from rotating IPs still runs out of budget
	assert.Equal(t, http.StatusOK, send("203.0.113.1:1", "a@x.com"))
	assert.Equal(t, http.StatusOK, send("203.0.113.2:1", "a@x.com"))
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.3:1", "a@x.com"))
}
