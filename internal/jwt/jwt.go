package jwt

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/opinio-dev/opinio/internal/domain"
	internal_errors "github.com/opinio-dev/opinio/internal/errors"
	"github.com/opinio-dev/opinio/internal/logger"
)

// purposeReset marks tokens that only prove a completed reset-context
// OTP verification. They are never accepted as access tokens.
const purposeReset = "reset"

const resetProofTTL = 10 * time.Minute

type Service interface {
	NewToken(adminId domain.AdminId) (string, error)
	VerifyToken(tokenStr string) (domain.AdminId, error)
	NewResetProof(adminId domain.AdminId) (string, error)
	VerifyResetProof(tokenStr string) (domain.AdminId, error)
}

type Jwt struct {
	secretKey string
	ttl       time.Duration
}

func New(secretKey string, ttl time.Duration) *Jwt {
	return &Jwt{secretKey, ttl}
}

func (j *Jwt) NewToken(adminId domain.AdminId) (string, error) {
	return j.sign(adminId, "", j.ttl)
}

// VerifyToken returns the admin id from a valid access token.
func (j *Jwt) VerifyToken(tokenStr string) (domain.AdminId, error) {
	return j.verify(tokenStr, "")
}

// NewResetProof mints the short-lived proof returned by a successful
// reset-context OTP verification in token mode.
func (j *Jwt) NewResetProof(adminId domain.AdminId) (string, error) {
	return j.sign(adminId, purposeReset, resetProofTTL)
}

func (j *Jwt) VerifyResetProof(tokenStr string) (domain.AdminId, error) {
	return j.verify(tokenStr, purposeReset)
}

func (j *Jwt) sign(adminId domain.AdminId, purpose string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"adminId": strconv.FormatInt(adminId, 10),
		"exp":     time.Now().Add(ttl).Unix(),
	}
	if purpose != "" {
		claims["purpose"] = purpose
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		logger.Log.Error("failed to sign token", "error", err)
		return "", fmt.Errorf("can't create token: %w", err)
	}

	return tokenString, nil
}

func (j *Jwt) verify(tokenStr, purpose string) (domain.AdminId, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, &internal_errors.ErrorWithStatusCode{Message: fmt.Sprintf("Unexpected signing method: %v", token.Header["alg"]), StatusCode: http.StatusUnauthorized}
		}
		return []byte(j.secretKey), nil
	})
	if err != nil || !token.Valid {
		return 0, &internal_errors.ErrorWithStatusCode{Message: "Invalid access token", StatusCode: http.StatusUnauthorized}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, &internal_errors.ErrorWithStatusCode{Message: "Invalid access token", StatusCode: http.StatusUnauthorized}
	}

	gotPurpose, _ := claims["purpose"].(string)
	if gotPurpose != purpose {
		return 0, &internal_errors.ErrorWithStatusCode{Message: "Invalid access token", StatusCode: http.StatusUnauthorized}
	}

	rawId, _ := claims["adminId"].(string)
	adminId, err := strconv.ParseInt(rawId, 10, 64)
	if err != nil {
		return 0, &internal_errors.ErrorWithStatusCode{Message: "Invalid access token", StatusCode: http.StatusUnauthorized}
	}

	return adminId, nil
}
