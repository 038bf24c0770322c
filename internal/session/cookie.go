package session

import (
	"crypto/sha256"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/opinio-dev/opinio/internal/domain"
	"github.com/opinio-dev/opinio/internal/jwt"
	"github.com/opinio-dev/opinio/internal/logger"
)

const (
	sessionCookieName = "admin_session"
	tokenCookieName   = "admin_token"
)

// Store is the server-side session record store (pg-backed in production).
// The reset marker travels inside the record: a fresh session is always
// created to carry it, never an existing one mutated.
type Store interface {
	CreateSession(s domain.Session) error
	Session(id string) (domain.Session, error)
	DeleteSession(id string) error
}

// CookieIssuer is the session-backed strategy: an opaque session id in a
// signed+encrypted cookie plus an admin_token JWT cookie. A request is
// authenticated only when both are valid and agree on the admin.
type CookieIssuer struct {
	store  Store
	jwt    jwt.Service
	codec  *securecookie.SecureCookie
	ttl    time.Duration
	secure bool
}

func NewCookieIssuer(store Store, jwtService jwt.Service, secret string, ttl time.Duration, secure bool) *CookieIssuer {
	// Derive independent signing and encryption keys from the one secret,
	// sized for securecookie.
	h := sha256.Sum256([]byte("auth:" + secret))
	e := sha256.Sum256([]byte("enc:" + secret))

	return &CookieIssuer{
		store:  store,
		jwt:    jwtService,
		codec:  securecookie.New(h[:], e[:]),
		ttl:    ttl,
		secure: secure,
	}
}

func (c *CookieIssuer) Issue(w http.ResponseWriter, r *http.Request, admin domain.Admin) (domain.Grant, error) {
	// Session fixation defense: never reuse an identifier across a
	// privilege change.
	c.destroyCurrent(r)

	sess := domain.Session{
		Id:        uuid.NewString(),
		AdminId:   admin.Id,
		ExpiresAt: time.Now().UTC().Add(c.ttl),
	}
	if err := c.store.CreateSession(sess); err != nil {
		return domain.Grant{}, err
	}

	token, err := c.jwt.NewToken(admin.Id)
	if err != nil {
		return domain.Grant{}, err
	}

	if err := c.setSessionCookie(w, sess.Id); err != nil {
		return domain.Grant{}, err
	}
	c.setCookie(w, tokenCookieName, token, int(c.ttl.Seconds()))

	// No token in the body: the credential lives in the cookies.
	return domain.Grant{Admin: admin.Profile()}, nil
}

func (c *CookieIssuer) Authenticate(r *http.Request) (domain.AdminId, error) {
	sess, err := c.currentSession(r)
	if err != nil {
		return 0, err
	}

	tokenCookie, err := r.Cookie(tokenCookieName)
	if err != nil {
		return 0, errUnauthorized("Authentication required")
	}
	tokenAdminId, err := c.jwt.VerifyToken(tokenCookie.Value)
	if err != nil {
		return 0, err
	}

	// Both halves must agree; a swapped cookie fails here.
	if tokenAdminId != sess.AdminId {
		return 0, errUnauthorized("Authentication failed")
	}

	return sess.AdminId, nil
}

func (c *CookieIssuer) Revoke(w http.ResponseWriter, r *http.Request) error {
	c.destroyCurrent(r)
	c.clearCookie(w, sessionCookieName)
	c.clearCookie(w, tokenCookieName)
	return nil
}

// MintResetProof creates a session carrying only the reset marker. The
// token cookie is deliberately not set, so the session cannot authenticate
// admin requests.
func (c *CookieIssuer) MintResetProof(w http.ResponseWriter, r *http.Request, adminId domain.AdminId) (string, error) {
	c.destroyCurrent(r)

	sess := domain.Session{
		Id:            uuid.NewString(),
		AdminId:       adminId,
		ResetVerified: true,
		ExpiresAt:     time.Now().UTC().Add(c.ttl),
	}
	if err := c.store.CreateSession(sess); err != nil {
		return "", err
	}
	if err := c.setSessionCookie(w, sess.Id); err != nil {
		return "", err
	}
	return "", nil
}

func (c *CookieIssuer) ConsumeResetProof(w http.ResponseWriter, r *http.Request, _ string) (domain.AdminId, error) {
	sess, err := c.currentSession(r)
	if err != nil {
		return 0, errUnauthorized("Password reset not verified")
	}
	if !sess.ResetVerified {
		return 0, errUnauthorized("Password reset not verified")
	}

	// Single use: the marker (and the carrier session) goes away with it.
	if err := c.store.DeleteSession(sess.Id); err != nil {
		logger.Log.Error("failed to consume reset session", "error", err)
	}
	c.clearCookie(w, sessionCookieName)

	return sess.AdminId, nil
}

func (c *CookieIssuer) currentSession(r *http.Request) (domain.Session, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return domain.Session{}, errUnauthorized("Authentication required")
	}

	var sessionId string
	if err := c.codec.Decode(sessionCookieName, cookie.Value, &sessionId); err != nil {
		return domain.Session{}, errUnauthorized("Invalid session cookie")
	}

	sess, err := c.store.Session(sessionId)
	if err != nil {
		return domain.Session{}, errUnauthorized("Authentication required")
	}

	if time.Now().UTC().After(sess.ExpiresAt) {
		if err := c.store.DeleteSession(sess.Id); err != nil {
			logger.Log.Error("failed to delete expired session", "error", err)
		}
		return domain.Session{}, errUnauthorized("Session expired")
	}

	return sess, nil
}

func (c *CookieIssuer) destroyCurrent(r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return
	}
	var sessionId string
	if err := c.codec.Decode(sessionCookieName, cookie.Value, &sessionId); err != nil {
		return
	}
	if err := c.store.DeleteSession(sessionId); err != nil {
		logger.Log.Error("failed to destroy previous session", "session_id", sessionId, "error", err)
	}
}

func (c *CookieIssuer) setSessionCookie(w http.ResponseWriter, sessionId string) error {
	encoded, err := c.codec.Encode(sessionCookieName, sessionId)
	if err != nil {
		return err
	}
	c.setCookie(w, sessionCookieName, encoded, int(c.ttl.Seconds()))
	return nil
}

func (c *CookieIssuer) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Path:     "/",
		Name:     name,
		Value:    value,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c *CookieIssuer) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Path:     "/",
		Name:     name,
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
