package domain

import "time"

// Session is a server-side session record (cookie auth mode only).
type Session struct {
	Id            string
	AdminId       AdminId
	ResetVerified bool
	ExpiresAt     time.Time
	CreatedAt     time.Time
}

// Grant is what a successful authentication hands to the client.
// Token is empty in session mode, where the credential travels in cookies.
type Grant struct {
	Token string       `json:"token,omitempty"`
	Admin AdminProfile `json:"admin"`
}
