package domain

import "time"

// OtpContext scopes a one-time code to the flow that requested it.
type OtpContext string

const (
	OtpContextLogin OtpContext = "login"
	OtpContextReset OtpContext = "reset"
)

func (c OtpContext) Valid() bool {
	return c == OtpContextLogin || c == OtpContextReset
}

// OtpRecord holds one active code per (admin, context) pair. Only the
// sha256 digest of the code is ever stored.
type OtpRecord struct {
	AdminId           AdminId
	Context           OtpContext
	CodeHash          string
	ExpiresAt         time.Time
	ResendAvailableAt time.Time
	Attempts          int
	CreatedAt         time.Time
}

// OtpIssue is what the ledger hands back on issue/resend. Code is the
// plaintext for delivery and is never persisted.
type OtpIssue struct {
	Code              string
	ExpiresAt         time.Time
	ResendAvailableAt time.Time
}
