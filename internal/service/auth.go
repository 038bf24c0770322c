package service

import (
	"net/http"
	"strings"
	"time"

	"github.com/opinio-dev/opinio/internal/domain"
	internal_errors "github.com/opinio-dev/opinio/internal/errors"
	"github.com/opinio-dev/opinio/internal/logger"
	"github.com/opinio-dev/opinio/internal/session"
	"golang.org/x/crypto/bcrypt"
)

// AdminStorage is the credential store surface the auth flows need.
type AdminStorage interface {
	SaveAdmin(admin domain.Admin) (domain.AdminId, error)
	Admin(email domain.Email) (domain.Admin, error)
	AdminById(id domain.AdminId) (domain.Admin, error)
	UpdatePassword(email domain.Email, newHash string) error
}

// CodeLedger is what Auth needs from the OTP ledger.
type CodeLedger interface {
	Issue(adminId domain.AdminId, context domain.OtpContext) (domain.OtpIssue, error)
	Resend(adminId domain.AdminId, context domain.OtpContext) (domain.OtpIssue, error)
	Verify(adminId domain.AdminId, context domain.OtpContext, code string) error
}

// CodeDeliverer sends an issued code to the administrator's mailbox.
type CodeDeliverer interface {
	Deliver(email, code string, context domain.OtpContext, expiryMinutes int) error
}

// AuthService is the surface the HTTP handlers consume.
type AuthService interface {
	Login(w http.ResponseWriter, r *http.Request, creds domain.Credentials) (LoginResult, error)
	Signup(w http.ResponseWriter, r *http.Request, email, password, confirmPassword, name string) (domain.Grant, error)
	VerifyOtp(w http.ResponseWriter, r *http.Request, email domain.Email, code string, context domain.OtpContext, newPassword string) (VerifyResult, error)
	ResendOtp(email domain.Email, context domain.OtpContext) (time.Time, error)
	ForgotPassword(email domain.Email) (time.Time, error)
	ResetPassword(w http.ResponseWriter, r *http.Request, newPassword, proof string) error
	Me(r *http.Request) (domain.AdminProfile, error)
	Logout(w http.ResponseWriter, r *http.Request) error
}

// Auth drives the login/signup/reset state machine. It holds the session
// issuer (token or cookie strategy) and therefore takes the response writer
// on operations that may authenticate the caller.
type Auth struct {
	storage       AdminStorage
	ledger        CodeLedger
	deliverer     CodeDeliverer
	issuer        session.Issuer
	requireOtp    bool
	expiryMinutes int
}

func NewAuth(storage AdminStorage, ledger CodeLedger, deliverer CodeDeliverer, issuer session.Issuer, requireOtp bool, expiryMinutes int) *Auth {
	return &Auth{
		storage:       storage,
		ledger:        ledger,
		deliverer:     deliverer,
		issuer:        issuer,
		requireOtp:    requireOtp,
		expiryMinutes: expiryMinutes,
	}
}

// LoginResult is either an authenticated grant or an OTP-pending marker,
// never both.
type LoginResult struct {
	OtpRequired       bool
	ResendAvailableAt time.Time
	Grant             domain.Grant
}

// VerifyResult covers the three verify-otp outcomes: a login grant, an
// inline password reset, or a reset proof for a follow-up reset call.
// ResetProof is empty in cookie mode, where the proof lives server-side.
type VerifyResult struct {
	Grant         *domain.Grant
	ResetProof    string
	PasswordReset bool
}

// Login verifies credentials and either authenticates immediately or, when
// OTP is required, issues and delivers a login code. Unknown email and
// wrong password produce the same error so accounts cannot be enumerated.
func (s *Auth) Login(w http.ResponseWriter, r *http.Request, creds domain.Credentials) (LoginResult, error) {
	admin, err := s.storage.Admin(creds.Email)
	if err != nil {
		if internal_errors.IsNotFound(err) {
			return LoginResult{}, errInvalidCredentials()
		}
		return LoginResult{}, err
	}
	if !admin.Active || bcrypt.CompareHashAndPassword([]byte(admin.PassHash), []byte(creds.Password)) != nil {
		return LoginResult{}, errInvalidCredentials()
	}

	if !s.requireOtp {
		grant, err := s.issuer.Issue(w, r, admin)
		if err != nil {
			return LoginResult{}, err
		}
		return LoginResult{Grant: grant}, nil
	}

	issue, err := s.ledger.Issue(admin.Id, domain.OtpContextLogin)
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.deliverer.Deliver(admin.Email, issue.Code, domain.OtpContextLogin, s.expiryMinutes); err != nil {
		return LoginResult{}, err
	}
	return LoginResult{OtpRequired: true, ResendAvailableAt: issue.ResendAvailableAt}, nil
}

// Signup creates an administrator and authenticates it directly, skipping
// the OTP hop. Duplicate email surfaces as a conflict from storage.
func (s *Auth) Signup(w http.ResponseWriter, r *http.Request, email, password, confirmPassword, name string) (domain.Grant, error) {
	if password != confirmPassword {
		return domain.Grant{}, &internal_errors.ErrorWithStatusCode{
			Message:    "Passwords do not match",
			StatusCode: http.StatusBadRequest,
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Grant{}, err
	}

	admin := domain.Admin{Email: email, PassHash: string(hash), Name: name, Active: true}
	admin.Id, err = s.storage.SaveAdmin(admin)
	if err != nil {
		return domain.Grant{}, err
	}
	return s.issuer.Issue(w, r, admin)
}

// VerifyOtp settles a pending code. Ledger failures propagate with their
// own status codes rather than being collapsed into one.
func (s *Auth) VerifyOtp(w http.ResponseWriter, r *http.Request, email domain.Email, code string, context domain.OtpContext, newPassword string) (VerifyResult, error) {
	admin, err := s.storage.Admin(email)
	if err != nil {
		return VerifyResult{}, err
	}
	if err := s.ledger.Verify(admin.Id, context, code); err != nil {
		return VerifyResult{}, err
	}

	if context == domain.OtpContextLogin {
		grant, err := s.issuer.Issue(w, r, admin)
		if err != nil {
			return VerifyResult{}, err
		}
		return VerifyResult{Grant: &grant}, nil
	}

	// reset context: either finish the reset inline or hand out a
	// single-use proof for a separate reset-password call.
	if newPassword != "" {
		if err := s.changePassword(admin.Email, newPassword); err != nil {
			return VerifyResult{}, err
		}
		return VerifyResult{PasswordReset: true}, nil
	}

	proof, err := s.issuer.MintResetProof(w, r, admin.Id)
	if err != nil {
		return VerifyResult{}, err
	}
	return VerifyResult{ResetProof: proof}, nil
}

// ResendOtp re-delivers a code, subject to the ledger's resend window.
// Unlike login, an unknown email is reported as such.
func (s *Auth) ResendOtp(email domain.Email, context domain.OtpContext) (time.Time, error) {
	admin, err := s.storage.Admin(email)
	if err != nil {
		return time.Time{}, err
	}
	issue, err := s.ledger.Resend(admin.Id, context)
	if err != nil {
		return time.Time{}, err
	}
	if err := s.deliverer.Deliver(admin.Email, issue.Code, context, s.expiryMinutes); err != nil {
		return time.Time{}, err
	}
	return issue.ResendAvailableAt, nil
}

// ForgotPassword always goes through a reset code, even when the login
// flow has OTP switched off.
func (s *Auth) ForgotPassword(email domain.Email) (time.Time, error) {
	admin, err := s.storage.Admin(email)
	if err != nil {
		return time.Time{}, err
	}
	issue, err := s.ledger.Issue(admin.Id, domain.OtpContextReset)
	if err != nil {
		return time.Time{}, err
	}
	if err := s.deliverer.Deliver(admin.Email, issue.Code, domain.OtpContextReset, s.expiryMinutes); err != nil {
		return time.Time{}, err
	}
	return issue.ResendAvailableAt, nil
}

// ResetPassword consumes the reset proof minted by VerifyOtp. The proof is
// single use: a second call with the same proof fails unauthorized.
func (s *Auth) ResetPassword(w http.ResponseWriter, r *http.Request, newPassword, proof string) error {
	adminId, err := s.issuer.ConsumeResetProof(w, r, proof)
	if err != nil {
		return err
	}
	admin, err := s.storage.AdminById(adminId)
	if err != nil {
		return err
	}
	return s.changePassword(admin.Email, newPassword)
}

// Me resolves the calling administrator's public profile.
func (s *Auth) Me(r *http.Request) (domain.AdminProfile, error) {
	adminId, err := s.issuer.Authenticate(r)
	if err != nil {
		return domain.AdminProfile{}, err
	}
	admin, err := s.storage.AdminById(adminId)
	if err != nil {
		if internal_errors.IsNotFound(err) {
			return domain.AdminProfile{}, &internal_errors.ErrorWithStatusCode{
				Message:    "Unauthorized",
				StatusCode: http.StatusUnauthorized,
			}
		}
		return domain.AdminProfile{}, err
	}
	return admin.Profile(), nil
}

// Logout revokes whatever credential the caller holds. Idempotent.
func (s *Auth) Logout(w http.ResponseWriter, r *http.Request) error {
	return s.issuer.Revoke(w, r)
}

// EnsureDefaultAdmin seeds the configured bootstrap account on startup.
// When resyncPassword is set (development only) an existing account's
// password is re-aligned with the configured one.
func (s *Auth) EnsureDefaultAdmin(email domain.Email, password domain.Password, resyncPassword bool) error {
	// Stored the same way login normalizes it, or the account is unreachable.
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}

	_, err := s.storage.Admin(email)
	if err == nil {
		if !resyncPassword {
			return nil
		}
		logger.Log.Info("resyncing default admin password", "email", email)
		return s.changePassword(email, password)
	}
	if !internal_errors.IsNotFound(err) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = s.storage.SaveAdmin(domain.Admin{Email: email, PassHash: string(hash), Active: true})
	if err != nil {
		return err
	}
	logger.Log.Info("default admin created", "email", email)
	return nil
}

func (s *Auth) changePassword(email domain.Email, newPassword domain.Password) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.storage.UpdatePassword(email, string(hash))
}

func errInvalidCredentials() error {
	return &internal_errors.ErrorWithStatusCode{
		Message:    "Invalid email or password",
		StatusCode: http.StatusUnauthorized,
	}
}
