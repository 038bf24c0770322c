// Package otp generates and digests the 6-digit one-time codes.
package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

const CodeLength = 6

var codeSpace = big.NewInt(1_000_000)

// GenerateCode returns a zero-padded 6-digit code drawn uniformly
// from 000000-999999 using crypto/rand.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("failed to draw otp code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// HashCode digests a plaintext code. Codes are single-use and short-lived,
// so a plain deterministic digest is sufficient; only this value is stored.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
