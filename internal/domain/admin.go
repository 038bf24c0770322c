package domain

import "time"

type (
	AdminId  = int64
	Email    = string
	Password = string
)

// Administrator account. Exactly one per (lowercased) email.
type Admin struct {
	Id        AdminId
	Email     Email
	PassHash  string
	Name      string
	Active    bool
	CreatedAt time.Time
}

// DisplayName falls back to "Administrator" when no name was set,
// matching what clients render in the admin header.
func (a Admin) DisplayName() string {
	if a.Name == "" {
		return "Administrator"
	}
	return a.Name
}

type Credentials struct {
	Email    Email
	Password Password
}

// AdminProfile is the public shape returned by login/signup/me.
type AdminProfile struct {
	Email Email  `json:"email"`
	Name  string `json:"name"`
}

func (a Admin) Profile() AdminProfile {
	return AdminProfile{Email: a.Email, Name: a.DisplayName()}
}
