package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/opinio-dev/opinio/internal/domain"
	internal_errors "github.com/opinio-dev/opinio/internal/errors"
	"github.com/opinio-dev/opinio/internal/utils"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	OtpRequired       bool                 `json:"otpRequired,omitempty"`
	ResendAvailableAt *time.Time           `json:"resendAvailableAt,omitempty"`
	Token             string               `json:"token,omitempty"`
	Admin             *domain.AdminProfile `json:"admin,omitempty"`
	ResetToken        string               `json:"resetToken,omitempty"`
	Message           string               `json:"message,omitempty"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := utils.DecodeValidate(r.Body, &req); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	result, err := h.auth.Login(w, r, domain.Credentials{
		Email:    normalizeEmail(req.Email),
		Password: req.Password,
	})
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	if result.OtpRequired {
		writeJSON(w, http.StatusOK, authResponse{
			OtpRequired:       true,
			ResendAvailableAt: &result.ResendAvailableAt,
			Message:           "Verification code sent",
		})
		return
	}
	writeJSON(w, http.StatusOK, authResponse{
		Token: result.Grant.Token,
		Admin: &result.Grant.Admin,
	})
}

type signupRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
	Name            string `json:"name"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := utils.DecodeValidate(r.Body, &req); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	grant, err := h.auth.Signup(w, r, normalizeEmail(req.Email), req.Password, req.ConfirmPassword, req.Name)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: grant.Token, Admin: &grant.Admin})
}

type verifyOtpRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Otp         string `json:"otp" validate:"required,len=6,numeric"`
	Context     string `json:"context" validate:"required"`
	NewPassword string `json:"newPassword" validate:"omitempty,min=8"`
}

func (h *Handler) VerifyOtp(w http.ResponseWriter, r *http.Request) {
	var req verifyOtpRequest
	if err := utils.DecodeValidate(r.Body, &req); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	context := domain.OtpContext(req.Context)
	if !context.Valid() {
		utils.WriteErrorAndStatusCode(w, errInvalidContext())
		return
	}

	result, err := h.auth.VerifyOtp(w, r, normalizeEmail(req.Email), req.Otp, context, req.NewPassword)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	switch {
	case result.Grant != nil:
		writeJSON(w, http.StatusOK, authResponse{Token: result.Grant.Token, Admin: &result.Grant.Admin})
	case result.PasswordReset:
		writeJSON(w, http.StatusOK, authResponse{Message: "Password has been reset"})
	default:
		writeJSON(w, http.StatusOK, authResponse{
			ResetToken: result.ResetProof,
			Message:    "Code verified",
		})
	}
}

type resendOtpRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Context string `json:"context" validate:"required"`
}

func (h *Handler) ResendOtp(w http.ResponseWriter, r *http.Request) {
	var req resendOtpRequest
	if err := utils.DecodeValidate(r.Body, &req); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	context := domain.OtpContext(req.Context)
	if !context.Valid() {
		utils.WriteErrorAndStatusCode(w, errInvalidContext())
		return
	}

	resendAvailableAt, err := h.auth.ResendOtp(normalizeEmail(req.Email), context)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{
		ResendAvailableAt: &resendAvailableAt,
		Message:           "Verification code sent",
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := utils.DecodeValidate(r.Body, &req); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	resendAvailableAt, err := h.auth.ForgotPassword(normalizeEmail(req.Email))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{
		ResendAvailableAt: &resendAvailableAt,
		Message:           "Password reset code sent",
	})
}

type resetPasswordRequest struct {
	NewPassword string `json:"newPassword" validate:"required,min=8"`
	ResetToken  string `json:"resetToken"`
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := utils.DecodeValidate(r.Body, &req); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	if err := h.auth.ResetPassword(w, r, req.NewPassword, req.ResetToken); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Message: "Password has been reset"})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(w, r); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Message: "Logged out"})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	profile, err := h.auth.Me(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]domain.AdminProfile{"admin": profile})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func errInvalidContext() error {
	return &internal_errors.ErrorWithStatusCode{
		Message:    "Context must be 'login' or 'reset'",
		StatusCode: http.StatusBadRequest,
	}
}
